package panel

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/internal/orchestrator"
	"github.com/simfleet/gopanel/internal/stream"
)

type view int

const (
	viewLogin view = iota
	viewDashboard
	viewSimulators
	viewPnL
	viewTrade
	viewRoles
)

// editKind 模拟交易者视图里当前打开的编辑表单
type editKind int

const (
	editNone editKind = iota
	editSettings
	editSimulator
)

var viewTitles = map[view]string{
	viewDashboard:  "仪表板",
	viewSimulators: "模拟交易者",
	viewPnL:        "收益",
	viewTrade:      "交易",
	viewRoles:      "角色管理",
}

// field 一个可编辑的文本字段
type field struct {
	label  string
	value  string
	secret bool // 密码字段回显星号
}

// form 顺序聚焦的字段组
type form struct {
	fields []field
	focus  int
}

// handleKey 处理字段编辑按键；返回 false 表示按键不属于表单
func (f *form) handleKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
		return true
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
		return true
	case "backspace":
		v := f.fields[f.focus].value
		if v != "" {
			f.fields[f.focus].value = v[:len(v)-1]
		}
		return true
	}
	if msg.Type == tea.KeyRunes {
		f.fields[f.focus].value += string(msg.Runes)
		return true
	}
	if msg.Type == tea.KeySpace {
		f.fields[f.focus].value += " "
		return true
	}
	return false
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].value)
}

type rootModel struct {
	ctx  context.Context
	deps Deps

	active view
	width  int
	height int
	status string
	busy   bool

	// 登录表单
	login form

	// 仪表板
	stream        *stream.PortfolioStream
	rows          []stream.Row
	filterInput   string
	filterEditing bool
	streamErr     string

	// 模拟交易者
	sims        []domain.Simulator
	settings    domain.Settings
	simCursor   int
	fundInput   string
	fundEditing bool
	editKind    editKind
	editForm    form
	editSimID   int64

	// 收益
	pnl     domain.PnLSummary
	balance domain.WalletBalance

	// 交易 / 铸币
	tradeForm  form
	tokenForm  form
	tokenMode  bool // true 时展示铸币表单
	lastAction *orchestrator.Action

	// 角色管理
	users          []domain.User
	userCursor     int
	usersRequested bool
}

func newRootModel(ctx context.Context, deps Deps) *rootModel {
	return &rootModel{
		ctx:    ctx,
		deps:   deps,
		active: viewLogin,
		login: form{fields: []field{
			{label: "用户名", value: deps.Username},
			{label: "密码", value: deps.Password, secret: true},
		}},
		tradeForm: form{fields: []field{
			{label: "方向 (buy/sell/sell-all)", value: "buy"},
			{label: "Mint 地址"},
			{label: "数量"},
		}},
		tokenForm: form{fields: []field{
			{label: "名称"},
			{label: "符号"},
			{label: "发行量", value: "1000000"},
			{label: "精度", value: "6"},
			{label: "Logo 路径"},
		}},
	}
}

func (m *rootModel) Init() tea.Cmd {
	return nil
}

// tabs 当前可见的视图页签；角色管理只对 admin 出现
func (m *rootModel) tabs() []view {
	tabs := []view{viewDashboard, viewSimulators, viewPnL, viewTrade}
	if m.deps.Session.IsAdmin() {
		tabs = append(tabs, viewRoles)
	}
	return tabs
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)

	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "登录失败: " + msg.err.Error()
			return m, nil
		}
		m.status = "登录成功，角色: " + roleLabel(m.deps.Session.Role())
		m.active = viewDashboard
		return m, tea.Batch(
			openStreamCmd(m.ctx, m.deps.NewStream),
			loadSimulatorsCmd(m.ctx, m.deps),
			loadSettingsCmd(m.ctx, m.deps),
			loadPnLCmd(m.ctx, m.deps),
		)

	case streamReadyMsg:
		if msg.err != nil {
			m.streamErr = msg.err.Error()
			return m, nil
		}
		m.stream = msg.stream
		return m, waitStreamCmd(m.stream)
	case streamTickMsg:
		if m.stream == nil {
			return m, nil
		}
		m.rows = m.stream.Snapshot()
		return m, waitStreamCmd(m.stream)

	case simulatorsMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "加载模拟交易者失败: " + msg.err.Error()
			return m, nil
		}
		m.sims = msg.sims
		if m.simCursor >= len(m.sims) {
			m.simCursor = 0
		}
		return m, nil
	case simMutatedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = msg.label + "失败: " + msg.err.Error()
			return m, nil
		}
		m.status = msg.label + "成功"
		return m, loadSimulatorsCmd(m.ctx, m.deps)

	case settingsMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "全局参数操作失败: " + msg.err.Error()
			return m, nil
		}
		m.settings = msg.settings
		if msg.saved {
			m.status = "全局参数已保存"
		}
		return m, nil

	case pnlMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "加载收益失败: " + msg.err.Error()
			return m, nil
		}
		m.pnl = msg.pnl
		m.balance = msg.balance
		return m, nil

	case usersMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "加载用户失败: " + msg.err.Error()
			return m, nil
		}
		m.users = msg.users
		if m.userCursor >= len(m.users) {
			m.userCursor = 0
		}
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.lastAction = msg.action
		if msg.action.Settled() {
			m.status = "动作完成: " + msg.action.Signature.String()
		} else {
			m.status = "动作失败(" + string(msg.action.Failure) + ")"
		}
		return m, nil
	}
	return m, nil
}

func (m *rootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.active == viewLogin {
		return m.handleLoginKey(msg)
	}

	// 字段编辑优先于全局按键
	switch m.active {
	case viewDashboard:
		if m.filterEditing {
			return m.handleFilterKey(msg)
		}
	case viewSimulators:
		if m.fundEditing {
			return m.handleFundKey(msg)
		}
		if m.editKind != editNone {
			return m.handleEditKey(msg)
		}
	case viewTrade:
		if mdl, cmd, handled := m.handleTradeKey(msg); handled {
			return mdl, cmd
		}
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "1", "2", "3", "4", "5":
		tabs := m.tabs()
		idx := int(msg.String()[0] - '1')
		if idx < len(tabs) {
			return m.switchTo(tabs[idx])
		}
		return m, nil
	case "r":
		return m.refreshActive()
	}

	switch m.active {
	case viewDashboard:
		return m.handleDashboardKey(msg)
	case viewSimulators:
		return m.handleSimulatorsKey(msg)
	case viewRoles:
		return m.handleRolesKey(msg)
	}
	return m, nil
}

func (m *rootModel) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		user := m.login.value(0)
		pass := m.login.value(1)
		if user == "" || pass == "" {
			m.status = "请输入用户名和密码"
			return m, nil
		}
		m.busy = true
		m.status = "登录中..."
		return m, loginCmd(m.ctx, m.deps, user, pass)
	}
	m.login.handleKey(msg)
	return m, nil
}

// switchTo 切换视图，按需触发该视图的数据加载
func (m *rootModel) switchTo(v view) (tea.Model, tea.Cmd) {
	m.active = v
	switch v {
	case viewRoles:
		// 用户列表在视图首次展示时拉取一次
		if !m.usersRequested {
			m.usersRequested = true
			m.busy = true
			return m, loadUsersCmd(m.ctx, m.deps)
		}
	case viewPnL:
		m.busy = true
		return m, loadPnLCmd(m.ctx, m.deps)
	}
	return m, nil
}

func (m *rootModel) refreshActive() (tea.Model, tea.Cmd) {
	m.busy = true
	switch m.active {
	case viewSimulators:
		return m, tea.Batch(loadSimulatorsCmd(m.ctx, m.deps), loadSettingsCmd(m.ctx, m.deps))
	case viewPnL:
		return m, loadPnLCmd(m.ctx, m.deps)
	case viewRoles:
		return m, loadUsersCmd(m.ctx, m.deps)
	}
	m.busy = false
	return m, nil
}

func roleLabel(r domain.Role) string {
	if r == "" {
		return "未知"
	}
	return string(r)
}
