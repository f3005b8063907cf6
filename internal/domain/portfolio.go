package domain

import (
	"fmt"
	"time"
)

// PortfolioEvent 实时推送的单次模拟交易事件
// 仅在聚合窗口内存在，不做客户端持久化
type PortfolioEvent struct {
	TraderID  int64
	Timestamp time.Time
}

// TraderKey 返回交易者在聚合行中的列键，例如 "T3"
func TraderKey(id int64) string {
	return fmt.Sprintf("T%d", id)
}

// BucketLabel 按秒粒度格式化时间桶标签（本地时区）
// 后端约每 5 秒推送一次，秒级粒度足够区分相邻批次
func BucketLabel(t time.Time) string {
	return t.Local().Format("15:04:05")
}
