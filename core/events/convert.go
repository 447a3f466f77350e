package events

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
)

const TypeConvert = "convert.executed"

// Convert summarises one convert leg.
type Convert struct {
	Account    crypto.Address
	FromToken  string
	ToToken    string
	FromAmount *big.Int
	ToAmount   *big.Int
	FromBdv    *big.Int
	ToBdv      *big.Int
	GrownIn    *big.Int
	GrownOut   *big.Int
	Stem       int64
}

func (Convert) EventType() string { return TypeConvert }

func (e Convert) Event() *types.Event {
	return &types.Event{Type: TypeConvert, Attributes: map[string]string{
		"account":    e.Account.String(),
		"fromToken":  normalizeAsset(e.FromToken),
		"toToken":    normalizeAsset(e.ToToken),
		"fromAmount": formatAmount(e.FromAmount),
		"toAmount":   formatAmount(e.ToAmount),
		"fromBdv":    formatAmount(e.FromBdv),
		"toBdv":      formatAmount(e.ToBdv),
		"grownIn":    formatAmount(e.GrownIn),
		"grownOut":   formatAmount(e.GrownOut),
		"stem":       formatInt(e.Stem),
	}}
}
