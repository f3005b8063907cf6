package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/pkg/sdk/websocket"
)

// stubFeed 是不依赖真实连接的推送源
type stubFeed struct {
	msgs   chan []websocket.Tick
	closed bool
}

func newStubFeed() *stubFeed {
	return &stubFeed{msgs: make(chan []websocket.Tick, 16)}
}

func (f *stubFeed) Messages() <-chan []websocket.Tick { return f.msgs }

func (f *stubFeed) Close() {
	if !f.closed {
		f.closed = true
		close(f.msgs)
	}
}

func at(sec int) time.Time {
	return time.Date(2026, 8, 28, 10, 0, sec, 0, time.Local)
}

func ev(trader int64, sec int) domain.PortfolioEvent {
	return domain.PortfolioEvent{TraderID: trader, Timestamp: at(sec)}
}

func TestApplyMergesSameBucket(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)

	// 同一时间桶的两个批次应合并为一行
	s.Apply([]domain.PortfolioEvent{ev(1, 5)})
	s.Apply([]domain.PortfolioEvent{ev(2, 5)})

	rows := s.Snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, domain.BucketLabel(at(5)), rows[0].Time)
	assert.Equal(t, presenceMarker, rows[0].Marks["T1"])
	assert.Equal(t, presenceMarker, rows[0].Marks["T2"])
}

func TestApplyIsIdempotentPerBucket(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)

	s.Apply([]domain.PortfolioEvent{ev(3, 10), ev(3, 10), ev(3, 10)})
	s.Apply([]domain.PortfolioEvent{ev(3, 10)})

	rows := s.Snapshot()
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Marks, 1)
	assert.Equal(t, presenceMarker, rows[0].Marks["T3"])
}

func TestRowsKeepArrivalOrder(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)

	// 乱序时间戳到达：行序按到达顺序，不按时间戳重排
	s.Apply([]domain.PortfolioEvent{ev(1, 30)})
	s.Apply([]domain.PortfolioEvent{ev(1, 10)})
	s.Apply([]domain.PortfolioEvent{ev(1, 20)})

	rows := s.Snapshot()
	require.Len(t, rows, 3)
	assert.Equal(t, domain.BucketLabel(at(30)), rows[0].Time)
	assert.Equal(t, domain.BucketLabel(at(10)), rows[1].Time)
	assert.Equal(t, domain.BucketLabel(at(20)), rows[2].Time)
}

func TestSelectorFiltersOtherTraders(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 2)

	s.Apply([]domain.PortfolioEvent{ev(2, 5), ev(5, 5), ev(5, 6)})

	rows := s.Snapshot()
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Marks, "T2")
	assert.NotContains(t, rows[0].Marks, "T5")
}

func TestZeroSelectorKeepsAll(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)

	s.Apply([]domain.PortfolioEvent{ev(1, 5), ev(2, 5), ev(3, 5)})

	rows := s.Snapshot()
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Marks, 3)
}

func TestResetRestartsSeriesEmpty(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)

	s.Apply([]domain.PortfolioEvent{ev(1, 5), ev(2, 6)})
	require.Len(t, s.Snapshot(), 2)

	// 切换选择器：序列清空，新条件不回溯已聚合的数据
	s.Reset(2)
	assert.Empty(t, s.Snapshot())

	s.Apply([]domain.PortfolioEvent{ev(1, 7), ev(2, 7)})
	rows := s.Snapshot()
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0].Marks, "T1")
	assert.Contains(t, rows[0].Marks, "T2")
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)
	s.Apply([]domain.PortfolioEvent{ev(1, 5)})

	rows := s.Snapshot()
	rows[0].Marks["T99"] = presenceMarker
	rows[0].Time = "tampered"

	fresh := s.Snapshot()
	assert.NotContains(t, fresh[0].Marks, "T99")
	assert.Equal(t, domain.BucketLabel(at(5)), fresh[0].Time)
}

func TestFoldLoopConsumesFeed(t *testing.T) {
	feed := newStubFeed()
	s := NewPortfolioStream(feed, 0)
	s.Start()

	ts := websocket.FeedTime{Time: at(5)}
	feed.msgs <- []websocket.Tick{
		{ID: 1, LastTrade: &ts},
		{ID: 2, LastTrade: nil}, // 无活动的条目应被跳过
	}

	select {
	case <-s.Updates():
	case <-time.After(2 * time.Second):
		t.Fatal("折叠循环未发布快照更新")
	}

	rows := s.Snapshot()
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Marks, "T1")
	assert.NotContains(t, rows[0].Marks, "T2")

	s.Close()
	s.Close() // 重复关闭安全
}

func TestCloseWithoutStartReturnsImmediately(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("未启动的聚合器 Close 不应阻塞")
	}
}

func TestConcurrentStartAndClose(t *testing.T) {
	s := NewPortfolioStream(newStubFeed(), 0)

	go s.Start()
	go s.Close()

	// 两条路径都必须在有限时间内收敛
	deadline := time.After(time.Second)
	finished := make(chan struct{})
	go func() {
		s.Start()
		s.Close()
		close(finished)
	}()
	select {
	case <-finished:
	case <-deadline:
		t.Fatal("Start/Close 并发时不应死锁")
	}
}
