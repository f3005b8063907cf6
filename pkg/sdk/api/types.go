package api

import "github.com/shopspring/decimal"

// TokenResponse is the /token login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SwapResponse carries the backend-issued unsigned swap transaction.
type SwapResponse struct {
	SwapTransaction string `json:"swapTransaction"` // base64-encoded transaction bytes
}

// CreateTokenResponse is the /create-token registration response.
type CreateTokenResponse struct {
	Mint string `json:"mint"`
}

// FundRequest is the /simulators/{id}/fund body.
type FundRequest struct {
	AmountSOL decimal.Decimal `json:"amount_sol"`
}

// RolePatch is the /users/{id}/role body.
type RolePatch struct {
	NewRole string `json:"new_role"`
}

// DeleteResponse is returned by DELETE /simulators/{id}.
type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}
