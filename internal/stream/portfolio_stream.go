package stream

import (
	"sync"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/pkg/logger"
	"github.com/simfleet/gopanel/pkg/sdk/websocket"
	"github.com/simfleet/gopanel/pkg/sigchan"
)

// presenceMarker 标记"该时间桶内此交易者有活动"
const presenceMarker = 1

// Row 聚合序列中的一行：一个时间桶
// Marks 的键是交易者键（如 "T3"），值恒为 presenceMarker
type Row struct {
	Time  string
	Marks map[string]int
}

// Feed 是聚合器消费的推送源（由 websocket.PortfolioClient 实现）
type Feed interface {
	Messages() <-chan []websocket.Tick
	Close()
}

// PortfolioStream 把实时事件批次折叠为按到达顺序排列的时间桶序列
// 折叠由单个 goroutine 串行执行，快照总是反映最近一次完整批次之后的状态
type PortfolioStream struct {
	feed     Feed
	selector int64 // 0 表示不过滤；非 0 只保留该交易者的事件

	mu    sync.RWMutex
	rows  []*Row
	index map[string]*Row // 桶标签 -> 行；标签唯一

	updates *sigchan.Chan

	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	done      chan struct{}
}

// NewPortfolioStream 创建聚合器
// selector 为 0 时不过滤（绝不能因为选择器未设置而悄悄丢弃事件）
func NewPortfolioStream(feed Feed, selector int64) *PortfolioStream {
	return &PortfolioStream{
		feed:     feed,
		selector: selector,
		index:    make(map[string]*Row),
		updates:  sigchan.New(1),
		done:     make(chan struct{}),
	}
}

// Start 启动折叠循环
func (s *PortfolioStream) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.foldLoop()
	})
}

// Close 终止订阅：关闭底层连接并停止折叠
// 重复调用是安全的，未 Start 过也可以 Close
func (s *PortfolioStream) Close() {
	s.closeOnce.Do(func() {
		s.feed.Close()
		s.mu.RLock()
		started := s.started
		s.mu.RUnlock()
		if started {
			<-s.done
		}
	})
}

// Updates 返回快照更新通知通道（每个完整批次之后至多一次信号）
func (s *PortfolioStream) Updates() <-chan struct{} {
	return s.updates.C()
}

// Snapshot 返回当前序列的完整副本（行序即到达序）
func (s *PortfolioStream) Snapshot() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Row, len(s.rows))
	for i, row := range s.rows {
		marks := make(map[string]int, len(row.Marks))
		for k, v := range row.Marks {
			marks[k] = v
		}
		out[i] = Row{Time: row.Time, Marks: marks}
	}
	return out
}

// foldLoop 串行消费批次，直到推送源关闭
func (s *PortfolioStream) foldLoop() {
	defer close(s.done)
	for batch := range s.feed.Messages() {
		events := make([]domain.PortfolioEvent, 0, len(batch))
		for _, tick := range batch {
			// last_trade 为空的条目没有活动，跳过
			if tick.LastTrade == nil || tick.LastTrade.IsZero() {
				continue
			}
			events = append(events, domain.PortfolioEvent{
				TraderID:  tick.ID,
				Timestamp: tick.LastTrade.Time,
			})
		}
		s.Apply(events)
	}
	logger.Debugf("[聚合] 推送源已关闭，折叠循环退出")
}

// Apply 把一批事件折叠进序列，批次结束后发布一次快照通知
// 新桶按到达顺序追加（不按时间戳重排）；同桶同交易者重复到达是幂等的
func (s *PortfolioStream) Apply(events []domain.PortfolioEvent) {
	s.mu.Lock()
	changed := false
	for _, ev := range events {
		if s.selector != 0 && ev.TraderID != s.selector {
			continue
		}
		label := domain.BucketLabel(ev.Timestamp)
		row, ok := s.index[label]
		if !ok {
			row = &Row{Time: label, Marks: make(map[string]int)}
			s.rows = append(s.rows, row)
			s.index[label] = row
		}
		key := domain.TraderKey(ev.TraderID)
		if row.Marks[key] != presenceMarker {
			row.Marks[key] = presenceMarker
		}
		changed = true
	}
	s.mu.Unlock()

	if changed {
		s.updates.Emit()
	}
}

// Reset 清空已聚合的序列
// 选择器变化时由上层调用：新过滤条件不回溯应用，序列从空重新开始
func (s *PortfolioStream) Reset(selector int64) {
	s.mu.Lock()
	s.selector = selector
	s.rows = nil
	s.index = make(map[string]*Row)
	s.mu.Unlock()
	s.updates.Emit()
}
