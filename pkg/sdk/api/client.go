// Package api provides the typed client for the simulation backend REST surface.
package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/pkg/cache"
	transport "github.com/simfleet/gopanel/pkg/sdk/http"
)

// readCacheTTL mirrors the backend's own cache expiry on summary reads.
const readCacheTTL = 30 * time.Second

const (
	cacheKeyPnL      = "pnl-summary"
	cacheKeySettings = "settings"
)

// Client talks to the simulation backend. All calls go through the
// authenticated transport, so the bearer header is attached uniformly.
type Client struct {
	http *transport.Client

	pnlCache      cache.Cache[string, domain.PnLSummary]
	settingsCache cache.Cache[string, domain.Settings]
}

// NewClient creates a backend client on top of the authenticated transport.
func NewClient(http *transport.Client) *Client {
	return &Client{
		http:          http,
		pnlCache:      cache.NewInMemoryCache[string, domain.PnLSummary](readCacheTTL),
		settingsCache: cache.NewInMemoryCache[string, domain.Settings](readCacheTTL),
	}
}

// Login exchanges username/password for a bearer credential.
// The body is form-encoded, matching the backend's OAuth2 password flow.
func (c *Client) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	var out TokenResponse
	resp, err := c.http.DoRequest(ctx, http.MethodPost, "/token", &transport.RequestOptions{
		Form: map[string]string{
			"username": username,
			"password": password,
		},
	}, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return TokenResponse{}, err
	}
	if out.AccessToken == "" {
		return TokenResponse{}, errors.New("登录响应缺少 access_token")
	}
	return out, nil
}

// ListUsers fetches all users. Admin-only; the backend enforces the role,
// the client only gates the view.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	resp, err := c.http.DoRequest(ctx, http.MethodGet, "/users", nil, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUserRole patches a user's role.
func (c *Client) UpdateUserRole(ctx context.Context, userID int64, role domain.Role) (domain.User, error) {
	var out domain.User
	resp, err := c.http.DoRequest(ctx, http.MethodPatch, fmt.Sprintf("/users/%d/role", userID), &transport.RequestOptions{
		JSON: RolePatch{NewRole: string(role)},
	}, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return domain.User{}, err
	}
	return out, nil
}

// GetSettings fetches the global simulation parameters (cached briefly).
func (c *Client) GetSettings(ctx context.Context) (domain.Settings, error) {
	if cached, ok := c.settingsCache.Get(cacheKeySettings); ok {
		return cached, nil
	}
	var out domain.Settings
	resp, err := c.http.DoRequest(ctx, http.MethodGet, "/settings", nil, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return domain.Settings{}, err
	}
	c.settingsCache.Set(cacheKeySettings, out, 0)
	return out, nil
}

// UpdateSettings patches the global simulation parameters and returns the
// persisted object. The local cache is refreshed from the response.
func (c *Client) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	var out domain.Settings
	resp, err := c.http.DoRequest(ctx, http.MethodPatch, "/settings", &transport.RequestOptions{
		JSON: settings,
	}, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return domain.Settings{}, err
	}
	c.settingsCache.Set(cacheKeySettings, out, 0)
	return out, nil
}

// ListSimulators fetches the simulated-trader fleet.
func (c *Client) ListSimulators(ctx context.Context) ([]domain.Simulator, error) {
	var out []domain.Simulator
	resp, err := c.http.DoRequest(ctx, http.MethodGet, "/simulators", nil, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSimulator creates a simulator with backend-assigned defaults.
func (c *Client) CreateSimulator(ctx context.Context) (domain.Simulator, error) {
	var out domain.Simulator
	resp, err := c.http.DoRequest(ctx, http.MethodPost, "/simulators", nil, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return domain.Simulator{}, err
	}
	return out, nil
}

// UpdateSimulator patches the given fields of one simulator.
func (c *Client) UpdateSimulator(ctx context.Context, simID int64, fields map[string]any) error {
	resp, err := c.http.DoRequest(ctx, http.MethodPatch, "/simulators/"+strconv.FormatInt(simID, 10), &transport.RequestOptions{
		JSON: fields,
	}, nil)
	return transport.CheckResponse(resp, err)
}

// SaveSimulator writes back the tunable fields of a simulator.
func (c *Client) SaveSimulator(ctx context.Context, sim domain.Simulator) error {
	return c.UpdateSimulator(ctx, sim.ID, map[string]any{
		"name":         sim.Name,
		"is_active":    sim.IsActive,
		"avg_interval": sim.AvgInterval,
		"vol_mean":     sim.VolMean,
		"vol_std":      sim.VolStd,
		"buy_bias":     sim.BuyBias,
	})
}

// DeleteSimulator removes a simulator. The backend acknowledges with the
// deleted id; a mismatch means the row was gone already.
func (c *Client) DeleteSimulator(ctx context.Context, simID int64) error {
	var out DeleteResponse
	resp, err := c.http.DoRequest(ctx, http.MethodDelete, "/simulators/"+strconv.FormatInt(simID, 10), nil, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return err
	}
	if out.Deleted != simID {
		return errors.Errorf("模拟交易者 %d 已不存在", simID)
	}
	return nil
}

// FundSimulator deposits SOL into a simulated trader's wallet.
func (c *Client) FundSimulator(ctx context.Context, simID int64, amountSOL decimal.Decimal) error {
	resp, err := c.http.DoRequest(ctx, http.MethodPost, fmt.Sprintf("/simulators/%d/fund", simID), &transport.RequestOptions{
		JSON: FundRequest{AmountSOL: amountSOL},
	}, nil)
	return transport.CheckResponse(resp, err)
}

// MainWalletBalance fetches the operator wallet balance.
func (c *Client) MainWalletBalance(ctx context.Context) (domain.WalletBalance, error) {
	var out domain.WalletBalance
	resp, err := c.http.DoRequest(ctx, http.MethodGet, "/main-wallet/balance", nil, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return domain.WalletBalance{}, err
	}
	return out, nil
}

// PnLSummary fetches realized profit/loss, aggregate and per trader
// (cached briefly, matching the backend's own cache TTL).
func (c *Client) PnLSummary(ctx context.Context) (domain.PnLSummary, error) {
	if cached, ok := c.pnlCache.Get(cacheKeyPnL); ok {
		return cached, nil
	}
	var out domain.PnLSummary
	resp, err := c.http.DoRequest(ctx, http.MethodGet, "/pnl-summary", nil, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return domain.PnLSummary{}, err
	}
	c.pnlCache.Set(cacheKeyPnL, out, 0)
	return out, nil
}

// RequestSwap asks the backend for an unsigned swap transaction and returns
// the decoded transaction bytes. Quantity is omitted for sell-all.
func (c *Client) RequestSwap(ctx context.Context, req domain.TradeRequest) ([]byte, error) {
	body := map[string]any{
		"mint_address": req.MintAddress,
	}
	if req.Side != domain.SideSellAll {
		qty, _ := req.Quantity.Float64()
		body["quantity"] = qty
	}

	var out SwapResponse
	resp, err := c.http.DoRequest(ctx, http.MethodPost, "/trade/"+string(req.Side), &transport.RequestOptions{
		JSON: body,
	}, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(out.SwapTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "后端返回的交易不是合法 base64")
	}
	if len(raw) == 0 {
		return nil, errors.New("后端返回了空交易")
	}
	return raw, nil
}

// RegisterToken registers token metadata with the backend after the mint
// account exists on-chain. Multipart body: signer material + metadata + logo.
func (c *Client) RegisterToken(ctx context.Context, secretKey string, params domain.TokenParams) (string, error) {
	var out CreateTokenResponse
	resp, err := c.http.DoRequest(ctx, http.MethodPost, "/create-token", &transport.RequestOptions{
		Fields: map[string]string{
			"secret_key": secretKey,
			"name":       params.Name,
			"symbol":     params.Symbol,
			"supply":     strconv.FormatUint(params.Supply, 10),
			"decimals":   strconv.Itoa(int(params.Decimals)),
		},
		Files: map[string]string{
			"logo": params.LogoPath,
		},
	}, &out)
	if err := transport.CheckResponse(resp, err); err != nil {
		return "", err
	}
	return out.Mint, nil
}
