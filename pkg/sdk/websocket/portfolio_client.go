package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/simfleet/gopanel/pkg/logger"
	"github.com/simfleet/gopanel/pkg/syncgroup"
)

// PortfolioClient 管理到 /ws/portfolio 的单条实时连接
// 每个活跃的仪表盘视图打开恰好一条连接；连接断开后不自动重连，
// 由上层决定是否建立新的订阅（重连策略不属于本客户端的职责）
type PortfolioClient struct {
	url    string
	config *Config

	conn   *websocket.Conn
	connMu sync.Mutex

	running   bool
	runningMu sync.Mutex

	msgChan chan []Tick
	errChan chan error

	ctx    context.Context
	cancel context.CancelFunc
	group  *syncgroup.SyncGroup

	closeOnce sync.Once
}

// NewPortfolioClient 创建新的组合推送客户端
func NewPortfolioClient(url string, config *Config) *PortfolioClient {
	if config == nil {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PortfolioClient{
		url:     url,
		config:  config,
		msgChan: make(chan []Tick, config.MessageBufferSize),
		errChan: make(chan error, config.ErrorBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		group:   syncgroup.NewSyncGroup(),
	}
}

// Start 建立连接并开始读取
func (c *PortfolioClient) Start(ctx context.Context) error {
	c.runningMu.Lock()
	if c.running {
		c.runningMu.Unlock()
		return fmt.Errorf("组合推送客户端已在运行")
	}
	c.running = true
	c.runningMu.Unlock()

	if ctx != nil {
		c.ctx, c.cancel = context.WithCancel(ctx)
	}

	dialer := websocket.Dialer{
		ReadBufferSize:   c.config.ReadBufferSize,
		WriteBufferSize:  c.config.WriteBufferSize,
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		c.runningMu.Lock()
		c.running = false
		c.runningMu.Unlock()
		return fmt.Errorf("连接失败: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.group.Add(c.readLoop)
	c.group.Run()

	logger.Infof("[组合推送] 已连接 %s", c.url)
	return nil
}

// Close 关闭连接并停止消息投递
// 对已关闭的连接重复调用是安全的
func (c *PortfolioClient) Close() {
	c.closeOnce.Do(func() {
		c.runningMu.Lock()
		c.running = false
		c.runningMu.Unlock()

		c.cancel()

		c.connMu.Lock()
		if c.conn != nil {
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()

		c.group.Wait()
		close(c.msgChan)
		logger.Infof("[组合推送] 已关闭")
	})
}

// Messages 返回批量事件通道（连接关闭后该通道随之关闭）
func (c *PortfolioClient) Messages() <-chan []Tick {
	return c.msgChan
}

// Errors 返回错误通道
func (c *PortfolioClient) Errors() <-chan error {
	return c.errChan
}

// IsRunning 检查客户端是否正在运行
func (c *PortfolioClient) IsRunning() bool {
	c.runningMu.Lock()
	defer c.runningMu.Unlock()
	return c.running
}

// readLoop 持续读取推送帧，直到连接关闭或 context 取消
func (c *PortfolioClient) readLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Infof("[组合推送] 连接正常关闭")
				return
			}
			select {
			case <-c.ctx.Done():
				// Close() 进行中，读取错误是预期的
			default:
				select {
				case c.errChan <- fmt.Errorf("读取失败: %w", err):
				default:
				}
				logger.Warnf("[组合推送] 读取失败，订阅终止: %v", err)
			}
			return
		}

		c.handleMessage(message)
	}
}

// handleMessage 解码一帧消息
// 畸形帧按无操作处理：跳过本帧，不更新序列，不终止订阅
func (c *PortfolioClient) handleMessage(data []byte) {
	var ticks []Tick
	if err := json.Unmarshal(data, &ticks); err != nil {
		preview := string(data)
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		select {
		case c.errChan <- fmt.Errorf("解码消息失败，已跳过: %s", preview):
		default:
		}
		return
	}

	select {
	case c.msgChan <- ticks:
	default:
		select {
		case c.errChan <- fmt.Errorf("消息通道已满，丢弃 %d 条事件", len(ticks)):
		default:
		}
	}
}
