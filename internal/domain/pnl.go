package domain

import "github.com/shopspring/decimal"

// PnLSummary 已实现盈亏汇总（单位 SOL）
type PnLSummary struct {
	TotalRealizedPnL decimal.Decimal           `json:"total_realized_pnl"`
	PerSimulator     map[int64]decimal.Decimal `json:"per_simulator"`
}

// WalletBalance 主钱包余额
type WalletBalance struct {
	BalanceSOL decimal.Decimal `json:"balance_sol"`
}
