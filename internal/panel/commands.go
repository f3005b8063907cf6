package panel

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/internal/orchestrator"
	"github.com/simfleet/gopanel/internal/stream"
)

type loginDoneMsg struct{ err error }

type streamReadyMsg struct {
	stream *stream.PortfolioStream
	err    error
}

type streamTickMsg struct{}

type simulatorsMsg struct {
	sims []domain.Simulator
	err  error
}

// simMutatedMsg 一次模拟交易者变更（保存/删除/注资/新建）的结果
type simMutatedMsg struct {
	label string
	err   error
}

type settingsMsg struct {
	settings domain.Settings
	saved    bool // true 表示本次来自 PATCH 而非普通读取
	err      error
}

type pnlMsg struct {
	pnl     domain.PnLSummary
	balance domain.WalletBalance
	err     error
}

type usersMsg struct {
	users []domain.User
	err   error
}

type actionDoneMsg struct{ action *orchestrator.Action }

func loginCmd(ctx context.Context, deps Deps, username, password string) tea.Cmd {
	return func() tea.Msg {
		resp, err := deps.API.Login(ctx, username, password)
		if err != nil {
			return loginDoneMsg{err: err}
		}
		deps.Session.SetCredential(resp.AccessToken)
		log.Infof("登录成功, 角色=%s", deps.Session.Role())
		return loginDoneMsg{}
	}
}

func openStreamCmd(ctx context.Context, factory StreamFactory) tea.Cmd {
	return func() tea.Msg {
		s, err := factory(ctx)
		return streamReadyMsg{stream: s, err: err}
	}
}

// waitStreamCmd 挂起等待下一次快照更新
func waitStreamCmd(s *stream.PortfolioStream) tea.Cmd {
	return func() tea.Msg {
		<-s.Updates()
		return streamTickMsg{}
	}
}

func loadSimulatorsCmd(ctx context.Context, deps Deps) tea.Cmd {
	return func() tea.Msg {
		sims, err := deps.API.ListSimulators(ctx)
		return simulatorsMsg{sims: sims, err: err}
	}
}

func loadSettingsCmd(ctx context.Context, deps Deps) tea.Cmd {
	return func() tea.Msg {
		settings, err := deps.API.GetSettings(ctx)
		return settingsMsg{settings: settings, err: err}
	}
}

func updateSettingsCmd(ctx context.Context, deps Deps, settings domain.Settings) tea.Cmd {
	return func() tea.Msg {
		persisted, err := deps.API.UpdateSettings(ctx, settings)
		return settingsMsg{settings: persisted, saved: true, err: err}
	}
}

func loadPnLCmd(ctx context.Context, deps Deps) tea.Cmd {
	return func() tea.Msg {
		pnl, err := deps.API.PnLSummary(ctx)
		if err != nil {
			return pnlMsg{err: err}
		}
		balance, err := deps.API.MainWalletBalance(ctx)
		return pnlMsg{pnl: pnl, balance: balance, err: err}
	}
}

func loadUsersCmd(ctx context.Context, deps Deps) tea.Cmd {
	return func() tea.Msg {
		users, err := deps.API.ListUsers(ctx)
		return usersMsg{users: users, err: err}
	}
}

func createSimulatorCmd(ctx context.Context, deps Deps) tea.Cmd {
	return func() tea.Msg {
		_, err := deps.API.CreateSimulator(ctx)
		return simMutatedMsg{label: "新建", err: err}
	}
}

func saveSimulatorCmd(ctx context.Context, deps Deps, sim domain.Simulator) tea.Cmd {
	return func() tea.Msg {
		return simMutatedMsg{label: "保存", err: deps.API.SaveSimulator(ctx, sim)}
	}
}

func deleteSimulatorCmd(ctx context.Context, deps Deps, simID int64) tea.Cmd {
	return func() tea.Msg {
		return simMutatedMsg{label: "删除", err: deps.API.DeleteSimulator(ctx, simID)}
	}
}

func fundSimulatorCmd(ctx context.Context, deps Deps, simID int64, amount decimal.Decimal) tea.Cmd {
	return func() tea.Msg {
		return simMutatedMsg{label: "注资", err: deps.API.FundSimulator(ctx, simID, amount)}
	}
}

func updateRoleCmd(ctx context.Context, deps Deps, userID int64, role domain.Role) tea.Cmd {
	return func() tea.Msg {
		if _, err := deps.API.UpdateUserRole(ctx, userID, role); err != nil {
			return usersMsg{err: err}
		}
		users, err := deps.API.ListUsers(ctx)
		return usersMsg{users: users, err: err}
	}
}

func swapCmd(ctx context.Context, deps Deps, req domain.TradeRequest) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: deps.Orchestrator.Swap(ctx, req)}
	}
}

func createTokenCmd(ctx context.Context, deps Deps, params domain.TokenParams) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: deps.Orchestrator.CreateToken(ctx, params)}
	}
}
