package syncgroup

import (
	"sync"
)

// SyncGroup 是 sync.WaitGroup 的包装器，简化 goroutine 生命周期管理
// 自动管理 Add() 和 Done()，减少遗漏 Done() 的风险
type SyncGroup struct {
	wg sync.WaitGroup

	mu    sync.Mutex
	funcs []func()
}

// NewSyncGroup 创建新的 SyncGroup
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add 添加一个 goroutine 函数（应在 Run() 之前调用）
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.funcs = append(g.funcs, fn)
}

// Run 启动所有已添加的 goroutine，并清空函数列表避免重复启动
func (g *SyncGroup) Run() {
	g.mu.Lock()
	fns := g.funcs
	g.funcs = nil
	g.mu.Unlock()

	for _, fn := range fns {
		g.wg.Add(1)
		go func(f func()) {
			defer g.wg.Done()
			f()
		}(fn)
	}
}

// Wait 等待所有 goroutine 完成
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}
