package events

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
)

const (
	TypeMint     = "bank.mint"
	TypeBurn     = "bank.burn"
	TypeTransfer = "bank.transfer"
)

// Mint is emitted when new units of a token are credited. Sunrise mints,
// faucet credits and well LP issuance all pass through it.
type Mint struct {
	Token  string
	To     crypto.Address
	Amount *big.Int
	Supply *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{Type: TypeMint, Attributes: supplyAttrs(e.Token, e.To, e.Amount, e.Supply)}
}

// Burn is emitted when units leave circulation, for example beans sown into
// the field.
type Burn struct {
	Token  string
	From   crypto.Address
	Amount *big.Int
	Supply *big.Int
}

func (Burn) EventType() string { return TypeBurn }

func (e Burn) Event() *types.Event {
	return &types.Event{Type: TypeBurn, Attributes: supplyAttrs(e.Token, e.From, e.Amount, e.Supply)}
}

// Transfer moves a balance between two accounts without touching supply.
type Transfer struct {
	Token  string
	From   crypto.Address
	To     crypto.Address
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"token":  normalizeAsset(e.Token),
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}

func supplyAttrs(token string, account crypto.Address, amount, supply *big.Int) map[string]string {
	attrs := map[string]string{
		"token":  normalizeAsset(token),
		"amount": formatAmount(amount),
		"supply": formatAmount(supply),
	}
	if addr := formatAddress(account); addr != "" {
		attrs["account"] = addr
	}
	return attrs
}
