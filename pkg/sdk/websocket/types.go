// Package websocket 提供组合活动推送的 WebSocket 客户端
package websocket

import (
	"fmt"
	"strings"
	"time"
)

const (
	// 消息通道缓冲区大小
	defaultMessageBufferSize = 100
	defaultErrorBufferSize   = 100

	// 连接设置
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadBufferSize   = 4096
	defaultWriteBufferSize  = 4096
)

// Tick 推送消息中的单个模拟交易者条目
// 后端以 JSON 数组的形式整批推送：[{"id":1,"last_trade":"..."}, ...]
type Tick struct {
	ID        int64     `json:"id"`
	LastTrade *FeedTime `json:"last_trade"`
}

// FeedTime 兼容后端推送的几种时间格式（isoformat，带不带时区均可）
type FeedTime struct {
	time.Time
}

var feedTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON 解析时间字符串，空值和 null 解析为零值
func (t *FeedTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("无法解析时间: %q", s)
}

// Config 是 WebSocket 客户端配置
type Config struct {
	MessageBufferSize int           // 消息通道缓冲区大小
	ErrorBufferSize   int           // 错误通道缓冲区大小
	ReadBufferSize    int           // 读缓冲区大小
	WriteBufferSize   int           // 写缓冲区大小
	HandshakeTimeout  time.Duration // 握手超时时间
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MessageBufferSize: defaultMessageBufferSize,
		ErrorBufferSize:   defaultErrorBufferSize,
		ReadBufferSize:    defaultReadBufferSize,
		WriteBufferSize:   defaultWriteBufferSize,
		HandshakeTimeout:  defaultHandshakeTimeout,
	}
}
