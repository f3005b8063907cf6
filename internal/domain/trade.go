package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeSide 交易方向
type TradeSide string

const (
	SideBuy     TradeSide = "buy"
	SideSell    TradeSide = "sell"
	SideSellAll TradeSide = "sell-all" // 全部卖出，不携带数量
)

// ParseTradeSide 解析交易方向字符串
func ParseTradeSide(s string) (TradeSide, error) {
	switch TradeSide(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	case SideSellAll:
		return SideSellAll, nil
	}
	return "", fmt.Errorf("未知交易方向: %q", s)
}

// TradeRequest 客户端构造的换币请求，发给后端换取未签名交易
type TradeRequest struct {
	Side        TradeSide
	MintAddress string
	Quantity    decimal.Decimal // sell-all 时忽略
}

// Validate 校验请求本身（不含钱包等外部前置条件）
func (r TradeRequest) Validate() error {
	switch r.Side {
	case SideBuy, SideSell, SideSellAll:
	default:
		return fmt.Errorf("未知交易方向: %q", r.Side)
	}
	if strings.TrimSpace(r.MintAddress) == "" {
		return fmt.Errorf("mint 地址不能为空")
	}
	// sell-all 不校验数量，后端会忽略该字段
	if r.Side != SideSellAll && !r.Quantity.IsPositive() {
		return fmt.Errorf("数量必须大于 0")
	}
	return nil
}

// TokenParams 创建 meme 代币的参数
type TokenParams struct {
	Name     string
	Symbol   string
	Supply   uint64
	Decimals uint8
	LogoPath string // 代币 logo 图片文件路径
}

// Validate 校验代币参数
func (p TokenParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("代币名称不能为空")
	}
	if strings.TrimSpace(p.Symbol) == "" {
		return fmt.Errorf("代币符号不能为空")
	}
	if p.Supply == 0 {
		return fmt.Errorf("发行量必须大于 0")
	}
	if p.Decimals > 9 {
		return fmt.Errorf("精度不能超过 9")
	}
	if strings.TrimSpace(p.LogoPath) == "" {
		return fmt.Errorf("必须提供 logo 图片")
	}
	if _, err := p.BaseUnits(); err != nil {
		return err
	}
	return nil
}

// BaseUnits 把发行量换算成最小单位（supply × 10^decimals）
// 超出 uint64 表示范围时报错，绝不能让溢出后的数值上链
func (p TokenParams) BaseUnits() (uint64, error) {
	units := p.Supply
	for i := uint8(0); i < p.Decimals; i++ {
		if units > math.MaxUint64/10 {
			return 0, fmt.Errorf("发行量 %d 精度 %d 超出最小单位可表示范围", p.Supply, p.Decimals)
		}
		units *= 10
	}
	return units, nil
}
