// Package panel 终端控制面板
// 登录后提供仪表板、模拟交易者管理、收益总览、交易/铸币和角色管理视图
package panel

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/simfleet/gopanel/internal/orchestrator"
	"github.com/simfleet/gopanel/internal/session"
	"github.com/simfleet/gopanel/internal/stream"
	"github.com/simfleet/gopanel/pkg/sdk/api"
	"github.com/simfleet/gopanel/pkg/sdk/websocket"
)

var log = logrus.WithField("module", "panel")

// StreamFactory 按需建立组合推送订阅（仪表板视图挂载时调用）
type StreamFactory func(ctx context.Context) (*stream.PortfolioStream, error)

// Deps 面板运行所需的全部协作方
type Deps struct {
	Session      *session.Store
	API          *api.Client
	Orchestrator *orchestrator.Orchestrator
	NewStream    StreamFactory
	Username     string // 配置中预填的登录名，可为空
	Password     string // 配置中预填的密码，可为空
}

// Run 启动面板并阻塞到退出
func Run(ctx context.Context, deps Deps) error {
	m := newRootModel(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if m.stream != nil {
		m.stream.Close()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "面板异常退出")
	}
	return nil
}

// DefaultStreamFactory 用给定的 WS 地址建立订阅
func DefaultStreamFactory(wsURL string) StreamFactory {
	return func(ctx context.Context) (*stream.PortfolioStream, error) {
		client := websocket.NewPortfolioClient(wsURL, websocket.DefaultConfig())
		if err := client.Start(ctx); err != nil {
			return nil, err
		}
		s := stream.NewPortfolioStream(client, 0)
		s.Start()
		return s, nil
	}
}
