package panel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/simfleet/gopanel/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

func (m *rootModel) View() string {
	if m.active == viewLogin {
		return m.renderLogin()
	}

	var body string
	switch m.active {
	case viewDashboard:
		body = m.renderDashboard()
	case viewSimulators:
		body = m.renderSimulators()
	case viewPnL:
		body = m.renderPnL()
	case viewTrade:
		body = m.renderTrade()
	case viewRoles:
		body = m.renderRoles()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabs(),
		body,
		m.renderStatus(),
	)
}

func (m *rootModel) renderTabs() string {
	var cells []string
	for i, v := range m.tabs() {
		label := fmt.Sprintf("%d %s", i+1, viewTitles[v])
		if v == m.active {
			cells = append(cells, activeTabStyle.Render(label))
		} else {
			cells = append(cells, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m *rootModel) renderStatus() string {
	status := m.status
	if m.busy {
		status = "… " + status
	}
	return dimStyle.Render(status)
}

func (m *rootModel) renderLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("模拟交易车队控制台") + "\n\n")
	b.WriteString(renderForm(&m.login))
	b.WriteString("\n" + dimStyle.Render("enter 登录 · ctrl+c 退出"))
	if m.status != "" {
		b.WriteString("\n" + errStyle.Render(m.status))
	}
	return b.String()
}

func renderForm(f *form) string {
	var b strings.Builder
	for i, fl := range f.fields {
		value := fl.value
		if fl.secret {
			value = strings.Repeat("*", len(value))
		}
		line := fmt.Sprintf("%-24s %s", fl.label+":", value)
		if i == f.focus {
			line = focusStyle.Render("> " + line + "_")
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// renderDashboard 把聚合序列画成一张时间桶 × 交易者的表
func (m *rootModel) renderDashboard() string {
	var b strings.Builder

	if m.streamErr != "" {
		b.WriteString(errStyle.Render("订阅失败: "+m.streamErr) + "\n")
		b.WriteString(dimStyle.Render("组合推送不自动重连，重启面板以重新订阅") + "\n")
		return b.String()
	}
	if m.filterEditing {
		b.WriteString(focusStyle.Render("交易者过滤: "+m.filterInput+"_") + "\n")
	} else {
		b.WriteString(dimStyle.Render("f 过滤交易者 · c 清除过滤 · q 退出") + "\n")
	}

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("等待组合推送...") + "\n")
		return b.String()
	}

	// 列集合取全部行的并集，稳定排序
	keySet := map[string]struct{}{}
	for _, row := range m.rows {
		for k := range row.Marks {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString(fmt.Sprintf("%-10s", "时间"))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%-6s", k))
	}
	b.WriteString("\n")

	// 只画放得下的最近若干行
	visible := m.height - 6
	if visible < 5 {
		visible = 5
	}
	rows := m.rows
	if len(rows) > visible {
		rows = rows[len(rows)-visible:]
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%-10s", row.Time))
		for _, k := range keys {
			if _, ok := row.Marks[k]; ok {
				b.WriteString(okStyle.Render(fmt.Sprintf("%-6s", "●")))
			} else {
				b.WriteString(fmt.Sprintf("%-6s", ""))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *rootModel) renderSimulators() string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("space 启停 · n 新建 · e 编辑 · f 注资 · d 删除 · g 全局参数 · r 刷新") + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("全局参数: 间隔 [%.0f, %.0f]s · 单笔 [%.2f, %.2f] SOL",
		m.settings.SimMinInterval, m.settings.SimMaxInterval,
		m.settings.SimMinQty, m.settings.SimMaxQty)) + "\n")
	if m.fundEditing {
		b.WriteString(focusStyle.Render("注资金额 (SOL): "+m.fundInput+"_") + "\n")
	}
	switch m.editKind {
	case editSettings:
		b.WriteString(titleStyle.Render("编辑全局参数") + "\n")
		b.WriteString(renderForm(&m.editForm))
		b.WriteString(dimStyle.Render("enter 保存 · esc 取消") + "\n")
	case editSimulator:
		b.WriteString(titleStyle.Render(fmt.Sprintf("编辑模拟交易者 #%d", m.editSimID)) + "\n")
		b.WriteString(renderForm(&m.editForm))
		b.WriteString(dimStyle.Render("enter 保存 · esc 取消") + "\n")
	}

	header := fmt.Sprintf("%-4s %-16s %-6s %-10s %-10s %-10s %-10s %-20s",
		"ID", "名称", "状态", "间隔", "均量", "量差", "买偏", "最近成交")
	b.WriteString(header + "\n")
	for i, sim := range m.sims {
		state := "停"
		if sim.IsActive {
			state = "跑"
		}
		last := "-"
		if sim.LastTrade != nil {
			last = sim.LastTrade.Local().Format("01-02 15:04:05")
		}
		line := fmt.Sprintf("%-4d %-16s %-6s %-10.1f %-10.3f %-10.3f %-10.2f %-20s",
			sim.ID, sim.Name, state, sim.AvgInterval, sim.VolMean, sim.VolStd, sim.BuyBias, last)
		if i == m.simCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(m.sims) == 0 {
		b.WriteString(dimStyle.Render("暂无模拟交易者，n 新建") + "\n")
	}
	return b.String()
}

func (m *rootModel) renderPnL() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("已实现收益") + "\n\n")
	b.WriteString(fmt.Sprintf("主钱包余额: %s SOL\n", m.balance.BalanceSOL))
	b.WriteString(fmt.Sprintf("总收益:     %s SOL\n\n", styledPnL(m.pnl.TotalRealizedPnL.String())))

	ids := make([]int64, 0, len(m.pnl.PerSimulator))
	for id := range m.pnl.PerSimulator {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", domain.TraderKey(id), styledPnL(m.pnl.PerSimulator[id].String())))
	}
	b.WriteString("\n" + dimStyle.Render("r 刷新（约 30 秒缓存）"))
	return b.String()
}

func styledPnL(v string) string {
	if strings.HasPrefix(v, "-") {
		return errStyle.Render(v)
	}
	return okStyle.Render(v)
}

func (m *rootModel) renderTrade() string {
	var b strings.Builder
	if m.tokenMode {
		b.WriteString(titleStyle.Render("创建代币") + "\n\n")
		b.WriteString(renderForm(&m.tokenForm))
	} else {
		b.WriteString(titleStyle.Render("手动交易") + "\n\n")
		b.WriteString(renderForm(&m.tradeForm))
	}
	b.WriteString("\n" + dimStyle.Render("enter 提交 · ctrl+t 切换交易/铸币 · esc 返回仪表板"))

	if a := m.lastAction; a != nil {
		b.WriteString("\n\n")
		if a.Settled() {
			b.WriteString(okStyle.Render(fmt.Sprintf("✓ %s 已确认  签名 %s", a.Kind, a.Signature)))
			if a.Mint != "" {
				b.WriteString("\n" + okStyle.Render("  mint "+a.Mint))
			}
		} else {
			b.WriteString(errStyle.Render(fmt.Sprintf("✗ %s 失败(%s): %v", a.Kind, a.Failure, a.Err)))
			if !a.Signature.IsZero() {
				// 已广播但未确认：把签名留给操作员自行核对
				b.WriteString("\n" + dimStyle.Render("  已广播签名 "+a.Signature.String()+"，请自行核对链上状态"))
			}
		}
	}
	return b.String()
}

func (m *rootModel) renderRoles() string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("a 设为 admin · t 设为 trader · r 刷新") + "\n")
	b.WriteString(fmt.Sprintf("%-6s %-20s %-10s\n", "ID", "用户名", "角色"))
	for i, u := range m.users {
		line := fmt.Sprintf("%-6d %-20s %-10s", u.ID, u.Username, u.Role)
		if i == m.userCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(m.users) == 0 {
		b.WriteString(dimStyle.Render("暂无用户") + "\n")
	}
	return b.String()
}
