package events

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
)

const (
	// TypeWellSwap is emitted whenever a trade executes against a well.
	TypeWellSwap = "well.swap"
	// TypeWellLiquidity is emitted when liquidity is added or removed.
	TypeWellLiquidity = "well.liquidity"
)

type WellSwap struct {
	Well      string
	Trader    crypto.Address
	TokenIn   string
	AmountIn  *big.Int
	TokenOut  string
	AmountOut *big.Int
}

func (WellSwap) EventType() string { return TypeWellSwap }

func (e WellSwap) Event() *types.Event {
	return &types.Event{
		Type: TypeWellSwap,
		Attributes: map[string]string{
			"well":      normalizeAsset(e.Well),
			"trader":    formatAddress(e.Trader),
			"tokenIn":   normalizeAsset(e.TokenIn),
			"amountIn":  formatAmount(e.AmountIn),
			"tokenOut":  normalizeAsset(e.TokenOut),
			"amountOut": formatAmount(e.AmountOut),
		},
	}
}

// WellLiquidity reports reserves moving in ("add") or out ("remove").
type WellLiquidity struct {
	Well     string
	Provider crypto.Address
	Action   string
	Bean     *big.Int
	Pair     *big.Int
	LP       *big.Int
}

func (WellLiquidity) EventType() string { return TypeWellLiquidity }

func (e WellLiquidity) Event() *types.Event {
	return &types.Event{
		Type: TypeWellLiquidity,
		Attributes: map[string]string{
			"well":     normalizeAsset(e.Well),
			"provider": formatAddress(e.Provider),
			"action":   e.Action,
			"bean":     formatAmount(e.Bean),
			"pair":     formatAmount(e.Pair),
			"lp":       formatAmount(e.LP),
		},
	}
}
