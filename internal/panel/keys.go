package panel

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/simfleet/gopanel/internal/domain"
)

func (m *rootModel) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "f":
		m.filterEditing = true
		m.filterInput = ""
		return m, nil
	case "c":
		// 清除过滤：序列重新开始
		if m.stream != nil {
			m.stream.Reset(0)
			m.rows = nil
		}
		return m, nil
	}
	return m, nil
}

// handleFilterKey 编辑交易者过滤器；回车生效
func (m *rootModel) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterEditing = false
		id, err := strconv.ParseInt(m.filterInput, 10, 64)
		if err != nil || id <= 0 {
			m.status = "过滤器需要正整数交易者 ID"
			return m, nil
		}
		if m.stream != nil {
			// 过滤条件不回溯：序列清空后按新条件重新聚合
			m.stream.Reset(id)
			m.rows = nil
		}
		return m, nil
	case "esc":
		m.filterEditing = false
		return m, nil
	case "backspace":
		if m.filterInput != "" {
			m.filterInput = m.filterInput[:len(m.filterInput)-1]
		}
		return m, nil
	}
	if msg.Type == tea.KeyRunes {
		m.filterInput += string(msg.Runes)
	}
	return m, nil
}

func (m *rootModel) handleSimulatorsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.simCursor > 0 {
			m.simCursor--
		}
		return m, nil
	case "down", "j":
		if m.simCursor < len(m.sims)-1 {
			m.simCursor++
		}
		return m, nil
	case "n":
		m.busy = true
		return m, createSimulatorCmd(m.ctx, m.deps)
	case " ":
		if sim, ok := m.selectedSim(); ok {
			sim.IsActive = !sim.IsActive
			m.busy = true
			return m, saveSimulatorCmd(m.ctx, m.deps, sim)
		}
		return m, nil
	case "d":
		if sim, ok := m.selectedSim(); ok {
			m.busy = true
			return m, deleteSimulatorCmd(m.ctx, m.deps, sim.ID)
		}
		return m, nil
	case "f":
		if _, ok := m.selectedSim(); ok {
			m.fundEditing = true
			m.fundInput = ""
		}
		return m, nil
	case "g":
		m.beginSettingsEdit()
		return m, nil
	case "e":
		if sim, ok := m.selectedSim(); ok {
			m.beginSimulatorEdit(sim)
		}
		return m, nil
	}
	return m, nil
}

func (m *rootModel) beginSettingsEdit() {
	m.editKind = editSettings
	m.editForm = form{fields: []field{
		{label: "最小间隔 (秒)", value: formatFloat(m.settings.SimMinInterval)},
		{label: "最大间隔 (秒)", value: formatFloat(m.settings.SimMaxInterval)},
		{label: "最小单笔 (SOL)", value: formatFloat(m.settings.SimMinQty)},
		{label: "最大单笔 (SOL)", value: formatFloat(m.settings.SimMaxQty)},
	}}
}

func (m *rootModel) beginSimulatorEdit(sim domain.Simulator) {
	m.editKind = editSimulator
	m.editSimID = sim.ID
	m.editForm = form{fields: []field{
		{label: "名称", value: sim.Name},
		{label: "间隔 (秒)", value: formatFloat(sim.AvgInterval)},
		{label: "量均值", value: formatFloat(sim.VolMean)},
		{label: "量标准差", value: formatFloat(sim.VolStd)},
		{label: "买偏 [0,1]", value: formatFloat(sim.BuyBias)},
	}}
}

// handleEditKey 编辑全局参数或模拟交易者可调项；回车提交，esc 取消
func (m *rootModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editKind = editNone
		return m, nil
	case "enter":
		if m.editKind == editSettings {
			return m.submitSettingsEdit()
		}
		return m.submitSimulatorEdit()
	}
	m.editForm.handleKey(msg)
	return m, nil
}

func (m *rootModel) submitSettingsEdit() (tea.Model, tea.Cmd) {
	values, err := m.editFloats()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	settings := domain.Settings{
		SimMinInterval: values[0],
		SimMaxInterval: values[1],
		SimMinQty:      values[2],
		SimMaxQty:      values[3],
	}
	m.editKind = editNone
	m.busy = true
	return m, updateSettingsCmd(m.ctx, m.deps, settings)
}

func (m *rootModel) submitSimulatorEdit() (tea.Model, tea.Cmd) {
	sim, ok := m.findSim(m.editSimID)
	if !ok {
		m.editKind = editNone
		m.status = "模拟交易者已不存在"
		return m, nil
	}
	name := m.editForm.value(0)
	if name == "" {
		m.status = "名称不能为空"
		return m, nil
	}
	values, err := m.editFloats()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	sim.Name = name
	sim.AvgInterval = values[0]
	sim.VolMean = values[1]
	sim.VolStd = values[2]
	sim.BuyBias = values[3]
	if sim.BuyBias < 0 || sim.BuyBias > 1 {
		m.status = "买偏必须在 [0,1] 之间"
		return m, nil
	}
	m.editKind = editNone
	m.busy = true
	return m, saveSimulatorCmd(m.ctx, m.deps, sim)
}

// editFloats 解析编辑表单里的数值字段（跳过模拟交易者表单的名称字段）
func (m *rootModel) editFloats() ([]float64, error) {
	start := 0
	if m.editKind == editSimulator {
		start = 1
	}
	var out []float64
	for i := start; i < len(m.editForm.fields); i++ {
		v, err := strconv.ParseFloat(m.editForm.value(i), 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%s 不是合法的非负数值", m.editForm.fields[i].label)
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *rootModel) findSim(id int64) (domain.Simulator, bool) {
	for _, sim := range m.sims {
		if sim.ID == id {
			return sim, true
		}
	}
	return domain.Simulator{}, false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (m *rootModel) handleFundKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.fundEditing = false
		amount, err := decimal.NewFromString(m.fundInput)
		if err != nil || !amount.IsPositive() {
			m.status = "注资金额必须是正数"
			return m, nil
		}
		if sim, ok := m.selectedSim(); ok {
			m.busy = true
			return m, fundSimulatorCmd(m.ctx, m.deps, sim.ID, amount)
		}
		return m, nil
	case "esc":
		m.fundEditing = false
		return m, nil
	case "backspace":
		if m.fundInput != "" {
			m.fundInput = m.fundInput[:len(m.fundInput)-1]
		}
		return m, nil
	}
	if msg.Type == tea.KeyRunes {
		m.fundInput += string(msg.Runes)
	}
	return m, nil
}

func (m *rootModel) selectedSim() (domain.Simulator, bool) {
	if m.simCursor < 0 || m.simCursor >= len(m.sims) {
		return domain.Simulator{}, false
	}
	return m.sims[m.simCursor], true
}

// handleTradeKey 交易视图按键；第三个返回值为 false 时交还全局按键处理
func (m *rootModel) handleTradeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+t":
		m.tokenMode = !m.tokenMode
		return m, nil, true
	case "esc":
		// 表单里数字键是输入字符，esc 负责离开本视图
		m.active = viewDashboard
		return m, nil, true
	case "enter":
		if m.busy {
			return m, nil, true
		}
		if m.tokenMode {
			return m.submitCreateToken()
		}
		return m.submitSwap()
	case "q", "1", "2", "3", "4", "5", "r":
		// 表单里这些是普通字符
	}

	f := &m.tradeForm
	if m.tokenMode {
		f = &m.tokenForm
	}
	if f.handleKey(msg) {
		return m, nil, true
	}
	return m, nil, false
}

func (m *rootModel) submitSwap() (tea.Model, tea.Cmd, bool) {
	side, err := domain.ParseTradeSide(m.tradeForm.value(0))
	if err != nil {
		m.status = err.Error()
		return m, nil, true
	}
	req := domain.TradeRequest{Side: side, MintAddress: m.tradeForm.value(1)}
	if side != domain.SideSellAll {
		qty, err := decimal.NewFromString(m.tradeForm.value(2))
		if err != nil {
			m.status = "数量不是合法数字"
			return m, nil, true
		}
		req.Quantity = qty
	}
	m.busy = true
	m.status = "交易进行中..."
	return m, swapCmd(m.ctx, m.deps, req), true
}

func (m *rootModel) submitCreateToken() (tea.Model, tea.Cmd, bool) {
	supply, err := strconv.ParseUint(m.tokenForm.value(2), 10, 64)
	if err != nil {
		m.status = "发行量不是合法整数"
		return m, nil, true
	}
	decimals, err := strconv.ParseUint(m.tokenForm.value(3), 10, 8)
	if err != nil {
		m.status = "精度不是合法整数"
		return m, nil, true
	}
	params := domain.TokenParams{
		Name:     m.tokenForm.value(0),
		Symbol:   m.tokenForm.value(1),
		Supply:   supply,
		Decimals: uint8(decimals),
		LogoPath: m.tokenForm.value(4),
	}
	if err := params.Validate(); err != nil {
		m.status = err.Error()
		return m, nil, true
	}
	m.busy = true
	m.status = "铸币进行中..."
	return m, createTokenCmd(m.ctx, m.deps, params), true
}

func (m *rootModel) handleRolesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.userCursor > 0 {
			m.userCursor--
		}
	case "down", "j":
		if m.userCursor < len(m.users)-1 {
			m.userCursor++
		}
	case "a":
		if u, ok := m.selectedUser(); ok {
			m.busy = true
			return m, updateRoleCmd(m.ctx, m.deps, u.ID, domain.RoleAdmin)
		}
	case "t":
		if u, ok := m.selectedUser(); ok {
			m.busy = true
			return m, updateRoleCmd(m.ctx, m.deps, u.ID, domain.RoleTrader)
		}
	}
	return m, nil
}

func (m *rootModel) selectedUser() (domain.User, bool) {
	if m.userCursor < 0 || m.userCursor >= len(m.users) {
		return domain.User{}, false
	}
	return m.users[m.userCursor], true
}
