package domain

// Role 操作员角色（从凭证中解码得到，仅用于界面门控）
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleTrader Role = "trader"
)

// User 后端用户记录
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Settings 全局模拟参数
type Settings struct {
	SimMinInterval float64 `json:"sim_min_interval"`
	SimMaxInterval float64 `json:"sim_max_interval"`
	SimMinQty      float64 `json:"sim_min_qty"`
	SimMaxQty      float64 `json:"sim_max_qty"`
}
