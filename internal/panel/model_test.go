package panel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/internal/session"
	"github.com/simfleet/gopanel/pkg/sdk/api"
	transport "github.com/simfleet/gopanel/pkg/sdk/http"
)

func tokenWithRole(t *testing.T, role string) string {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"role": role})
	require.NoError(t, err)
	seg := base64.RawURLEncoding.EncodeToString(payload)
	return "header." + seg + ".sig"
}

func newTestModel(t *testing.T, role string, handler http.Handler) (*rootModel, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore()
	store.SetCredential(tokenWithRole(t, role))

	deps := Deps{
		Session: store,
		API:     api.NewClient(transport.NewClient(srv.URL, store)),
	}
	return newRootModel(context.Background(), deps), srv
}

func TestRolesTabHiddenForTrader(t *testing.T) {
	m, _ := newTestModel(t, "trader", http.NewServeMux())

	tabs := m.tabs()
	assert.Len(t, tabs, 4)
	for _, v := range tabs {
		assert.NotEqual(t, viewRoles, v)
	}
}

func TestRolesTabShownForAdmin(t *testing.T) {
	m, _ := newTestModel(t, "admin", http.NewServeMux())

	tabs := m.tabs()
	require.Len(t, tabs, 5)
	assert.Equal(t, viewRoles, tabs[4])
}

func TestUsersFetchedOncePerSession(t *testing.T) {
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode([]domain.User{{ID: 1, Username: "ops", Role: domain.RoleAdmin}})
	})
	m, _ := newTestModel(t, "admin", mux)

	// 首次进入角色管理视图触发一次拉取
	_, cmd := m.switchTo(viewRoles)
	require.NotNil(t, cmd)
	msg, ok := cmd().(usersMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	m.Update(msg)
	assert.Equal(t, 1, hits)

	// 再次进入不重复拉取
	m.active = viewDashboard
	_, cmd = m.switchTo(viewRoles)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, hits)
	assert.Len(t, m.users, 1)
}

func TestSellAllSubmitWithoutQuantity(t *testing.T) {
	m, _ := newTestModel(t, "trader", http.NewServeMux())
	m.active = viewTrade
	m.tradeForm.fields[0].value = "sell-all"
	m.tradeForm.fields[1].value = "So11111111111111111111111111111111111111112"
	// 数量留空

	_, cmd, handled := m.submitSwap()
	assert.True(t, handled)
	assert.NotNil(t, cmd, "sell-all 不做数量校验，应直接提交")
	assert.True(t, m.busy)
}

func TestSwapSubmitRejectsBadQuantity(t *testing.T) {
	m, _ := newTestModel(t, "trader", http.NewServeMux())
	m.active = viewTrade
	m.tradeForm.fields[0].value = "buy"
	m.tradeForm.fields[1].value = "So11111111111111111111111111111111111111112"
	m.tradeForm.fields[2].value = "abc"

	_, cmd, handled := m.submitSwap()
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.NotEmpty(t, m.status)
}

func TestFormEditing(t *testing.T) {
	f := form{fields: []field{{label: "a"}, {label: "b"}}}

	f.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	assert.Equal(t, "hi", f.fields[0].value)

	f.handleKey(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, f.focus)

	f.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	f.handleKey(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "", f.fields[1].value)
}

func TestSettingsEditPatchesBackend(t *testing.T) {
	var patched domain.Settings
	mux := http.NewServeMux()
	mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
		_ = json.NewEncoder(w).Encode(patched)
	})
	m, _ := newTestModel(t, "admin", mux)
	m.active = viewSimulators
	m.settings = domain.Settings{SimMinInterval: 5, SimMaxInterval: 30, SimMinQty: 0.1, SimMaxQty: 2}

	m.beginSettingsEdit()
	require.Equal(t, editSettings, m.editKind)
	assert.Equal(t, "5", m.editForm.value(0), "表单应预填当前全局参数")

	// 改最大间隔
	m.editForm.focus = 1
	m.editForm.fields[1].value = "60"
	_, cmd := m.handleEditKey(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, editNone, m.editKind)
	assert.True(t, m.busy)

	msg, ok := cmd().(settingsMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.True(t, msg.saved)
	assert.Equal(t, float64(60), patched.SimMaxInterval)
	assert.Equal(t, float64(5), patched.SimMinInterval)

	m.Update(msg)
	assert.Equal(t, float64(60), m.settings.SimMaxInterval)
	assert.Equal(t, "全局参数已保存", m.status)
}

func TestSimulatorEditSendsTunables(t *testing.T) {
	var patched map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/simulators/7", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
		w.WriteHeader(http.StatusOK)
	})
	m, _ := newTestModel(t, "admin", mux)
	m.active = viewSimulators
	m.sims = []domain.Simulator{{ID: 7, Name: "alpha", AvgInterval: 10, VolMean: 1, VolStd: 0.5, BuyBias: 0.6}}

	m.beginSimulatorEdit(m.sims[0])
	require.Equal(t, editSimulator, m.editKind)
	assert.Equal(t, "alpha", m.editForm.value(0))

	m.editForm.fields[1].value = "15"
	m.editForm.fields[4].value = "0.7"
	_, cmd := m.handleEditKey(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, editNone, m.editKind)

	msg, ok := cmd().(simMutatedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, "alpha", patched["name"])
	assert.Equal(t, float64(15), patched["avg_interval"])
	assert.Equal(t, float64(0.7), patched["buy_bias"])
}

func TestSettingsEditRejectsBadNumber(t *testing.T) {
	m, _ := newTestModel(t, "admin", http.NewServeMux())
	m.active = viewSimulators
	m.beginSettingsEdit()

	m.editForm.fields[0].value = "abc"
	_, cmd := m.handleEditKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, editSettings, m.editKind, "校验失败应留在表单里继续改")
	assert.NotEmpty(t, m.status)
	assert.False(t, m.busy)
}

func TestSimulatorEditRejectsBuyBiasOutOfRange(t *testing.T) {
	m, _ := newTestModel(t, "admin", http.NewServeMux())
	m.active = viewSimulators
	m.sims = []domain.Simulator{{ID: 3, Name: "beta", BuyBias: 0.5}}

	m.beginSimulatorEdit(m.sims[0])
	m.editForm.fields[4].value = "1.5"
	_, cmd := m.handleEditKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, editSimulator, m.editKind)
	assert.NotEmpty(t, m.status)
}
