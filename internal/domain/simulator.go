package domain

import "time"

// Simulator 模拟交易者领域模型
// 由后端持有；客户端只保存一份读写缓存，所有变更都通过显式的
// 保存/删除/注资操作写回，聚合流不会隐式修改它
type Simulator struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Pubkey      string     `json:"pubkey,omitempty"`
	IsActive    bool       `json:"is_active"`
	AvgInterval float64    `json:"avg_interval"` // 平均交易间隔（秒）
	VolMean     float64    `json:"vol_mean"`     // 交易量均值
	VolStd      float64    `json:"vol_std"`      // 交易量标准差
	BuyBias     float64    `json:"buy_bias"`     // 买入倾向 [0,1]
	LastTrade   *time.Time `json:"last_trade"`
}

// TraderKey 返回该模拟交易者在聚合序列中的列键
func (s *Simulator) TraderKey() string {
	return TraderKey(s.ID)
}
