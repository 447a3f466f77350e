package events

import (
	"math/big"
	"strings"

	"beanchain/core/types"
	"beanchain/crypto"
)

const (
	TypeSow     = "field.sow"
	TypeHarvest = "field.harvest"
)

// Sow is emitted when beans are lent to the Field in exchange for pods.
type Sow struct {
	Account     crypto.Address
	Index       *big.Int
	Beans       *big.Int
	Pods        *big.Int
	Temperature *big.Int
}

func (Sow) EventType() string { return TypeSow }

func (e Sow) Event() *types.Event {
	return &types.Event{Type: TypeSow, Attributes: map[string]string{
		"account":     e.Account.String(),
		"index":       formatAmount(e.Index),
		"beans":       formatAmount(e.Beans),
		"pods":        formatAmount(e.Pods),
		"temperature": formatAmount(e.Temperature),
	}}
}

type Harvest struct {
	Account crypto.Address
	Plots   []*big.Int
	Beans   *big.Int
}

func (Harvest) EventType() string { return TypeHarvest }

func (e Harvest) Event() *types.Event {
	plots := make([]string, len(e.Plots))
	for i, plot := range e.Plots {
		plots[i] = formatAmount(plot)
	}
	return &types.Event{Type: TypeHarvest, Attributes: map[string]string{
		"account": e.Account.String(),
		"plots":   strings.Join(plots, ","),
		"beans":   formatAmount(e.Beans),
	}}
}
