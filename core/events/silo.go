package events

import (
	"math/big"
	"strings"

	"beanchain/core/types"
	"beanchain/crypto"
)

const (
	TypeAddDeposit          = "silo.deposit.added"
	TypeRemoveDeposit       = "silo.deposit.removed"
	TypeRemoveDeposits      = "silo.deposits.removed"
	TypeTransferDeposit     = "silo.deposit.transferred"
	TypeDepositApproval     = "silo.deposit.approval"
	TypeStalkBalanceChanged = "silo.stalk.changed"
	TypeMow                 = "silo.mow"
	TypePlant               = "silo.plant"
	TypeGermination         = "silo.germination"
	TypeWhitelist           = "silo.whitelist"
	TypeDewhitelist         = "silo.dewhitelist"
	TypeSeedsUpdated        = "silo.seeds.updated"
	TypeClaimPlenty         = "silo.plenty.claimed"
)

// AddDeposit is emitted when a crate is created or grown.
type AddDeposit struct {
	Account crypto.Address
	Token   string
	Stem    int64
	Amount  *big.Int
	Bdv     *big.Int
}

func (AddDeposit) EventType() string { return TypeAddDeposit }

func (e AddDeposit) Event() *types.Event {
	return &types.Event{Type: TypeAddDeposit, Attributes: map[string]string{
		"account": e.Account.String(),
		"token":   normalizeAsset(e.Token),
		"stem":    formatInt(e.Stem),
		"amount":  formatAmount(e.Amount),
		"bdv":     formatAmount(e.Bdv),
	}}
}

// RemoveDeposit is emitted when part or all of a crate leaves the account.
type RemoveDeposit struct {
	Account crypto.Address
	Token   string
	Stem    int64
	Amount  *big.Int
	Bdv     *big.Int
}

func (RemoveDeposit) EventType() string { return TypeRemoveDeposit }

func (e RemoveDeposit) Event() *types.Event {
	return &types.Event{Type: TypeRemoveDeposit, Attributes: map[string]string{
		"account": e.Account.String(),
		"token":   normalizeAsset(e.Token),
		"stem":    formatInt(e.Stem),
		"amount":  formatAmount(e.Amount),
		"bdv":     formatAmount(e.Bdv),
	}}
}

// RemoveDeposits summarises a batch withdrawal.
type RemoveDeposits struct {
	Account     crypto.Address
	Token       string
	Stems       []int64
	Amounts     []*big.Int
	TotalAmount *big.Int
	TotalBdv    *big.Int
}

func (RemoveDeposits) EventType() string { return TypeRemoveDeposits }

func (e RemoveDeposits) Event() *types.Event {
	stems := make([]string, len(e.Stems))
	for i, stem := range e.Stems {
		stems[i] = formatInt(stem)
	}
	amounts := make([]string, len(e.Amounts))
	for i, amount := range e.Amounts {
		amounts[i] = formatAmount(amount)
	}
	return &types.Event{Type: TypeRemoveDeposits, Attributes: map[string]string{
		"account": e.Account.String(),
		"token":   normalizeAsset(e.Token),
		"stems":   strings.Join(stems, ","),
		"amounts": strings.Join(amounts, ","),
		"amount":  formatAmount(e.TotalAmount),
		"bdv":     formatAmount(e.TotalBdv),
	}}
}

// TransferDeposit records a crate moving between accounts.
type TransferDeposit struct {
	From   crypto.Address
	To     crypto.Address
	Token  string
	Stem   int64
	Amount *big.Int
	Bdv    *big.Int
}

func (TransferDeposit) EventType() string { return TypeTransferDeposit }

func (e TransferDeposit) Event() *types.Event {
	return &types.Event{Type: TypeTransferDeposit, Attributes: map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"token":  normalizeAsset(e.Token),
		"stem":   formatInt(e.Stem),
		"amount": formatAmount(e.Amount),
		"bdv":    formatAmount(e.Bdv),
	}}
}

// DepositApproval reports the new allowance after a grant or spend.
type DepositApproval struct {
	Owner   crypto.Address
	Spender crypto.Address
	Token   string
	Amount  *big.Int
}

func (DepositApproval) EventType() string { return TypeDepositApproval }

func (e DepositApproval) Event() *types.Event {
	return &types.Event{Type: TypeDepositApproval, Attributes: map[string]string{
		"owner":   e.Owner.String(),
		"spender": e.Spender.String(),
		"token":   normalizeAsset(e.Token),
		"amount":  formatAmount(e.Amount),
	}}
}

// StalkBalanceChanged carries signed deltas of an account's active stalk and roots.
type StalkBalanceChanged struct {
	Account    crypto.Address
	DeltaStalk *big.Int
	DeltaRoots *big.Int
}

func (StalkBalanceChanged) EventType() string { return TypeStalkBalanceChanged }

func (e StalkBalanceChanged) Event() *types.Event {
	return &types.Event{Type: TypeStalkBalanceChanged, Attributes: map[string]string{
		"account":    e.Account.String(),
		"deltaStalk": formatAmount(e.DeltaStalk),
		"deltaRoots": formatAmount(e.DeltaRoots),
	}}
}

// Mow is emitted when grown stalk is realised for an (account, token) pair.
type Mow struct {
	Account crypto.Address
	Token   string
	Stalk   *big.Int
	Stem    int64
}

func (Mow) EventType() string { return TypeMow }

func (e Mow) Event() *types.Event {
	return &types.Event{Type: TypeMow, Attributes: map[string]string{
		"account": e.Account.String(),
		"token":   normalizeAsset(e.Token),
		"stalk":   formatAmount(e.Stalk),
		"stem":    formatInt(e.Stem),
	}}
}

// Plant records earned beans turned into a deposit.
type Plant struct {
	Account crypto.Address
	Beans   *big.Int
	Stem    int64
}

func (Plant) EventType() string { return TypePlant }

func (e Plant) Event() *types.Event {
	return &types.Event{Type: TypePlant, Attributes: map[string]string{
		"account": e.Account.String(),
		"beans":   formatAmount(e.Beans),
		"stem":    formatInt(e.Stem),
	}}
}

// Germination is emitted when a parity bucket is promoted to active stalk.
type Germination struct {
	Season   uint64
	Bucket   int
	Stalk    *big.Int
	Roots    *big.Int
	Accounts int
}

func (Germination) EventType() string { return TypeGermination }

func (e Germination) Event() *types.Event {
	return &types.Event{Type: TypeGermination, Season: e.Season, Attributes: map[string]string{
		"bucket":   formatInt(int64(e.Bucket)),
		"stalk":    formatAmount(e.Stalk),
		"roots":    formatAmount(e.Roots),
		"accounts": formatInt(int64(e.Accounts)),
	}}
}

// Whitelist is emitted when an asset becomes depositable.
type Whitelist struct {
	Token                string
	BdvMethod            string
	StalkIssuedPerBdv    *big.Int
	StalkEarnedPerSeason int64
	Stem                 int64
}

func (Whitelist) EventType() string { return TypeWhitelist }

func (e Whitelist) Event() *types.Event {
	return &types.Event{Type: TypeWhitelist, Attributes: map[string]string{
		"token":                normalizeAsset(e.Token),
		"bdvMethod":            e.BdvMethod,
		"stalkIssuedPerBdv":    formatAmount(e.StalkIssuedPerBdv),
		"stalkEarnedPerSeason": formatInt(e.StalkEarnedPerSeason),
		"stem":                 formatInt(e.Stem),
	}}
}

type Dewhitelist struct {
	Token string
}

func (Dewhitelist) EventType() string { return TypeDewhitelist }

func (e Dewhitelist) Event() *types.Event {
	return &types.Event{Type: TypeDewhitelist, Attributes: map[string]string{"token": normalizeAsset(e.Token)}}
}

// SeedsUpdated records a gauge driven seed rate change.
type SeedsUpdated struct {
	Token     string
	Season    uint64
	Rate      int64
	Delta     int64
	Milestone int64
}

func (SeedsUpdated) EventType() string { return TypeSeedsUpdated }

func (e SeedsUpdated) Event() *types.Event {
	return &types.Event{Type: TypeSeedsUpdated, Season: e.Season, Attributes: map[string]string{
		"token":     normalizeAsset(e.Token),
		"rate":      formatInt(e.Rate),
		"delta":     formatInt(e.Delta),
		"milestone": formatInt(e.Milestone),
	}}
}

type ClaimPlenty struct {
	Account crypto.Address
	Token   string
	Amount  *big.Int
}

func (ClaimPlenty) EventType() string { return TypeClaimPlenty }

func (e ClaimPlenty) Event() *types.Event {
	return &types.Event{Type: TypeClaimPlenty, Attributes: map[string]string{
		"account": e.Account.String(),
		"token":   normalizeAsset(e.Token),
		"amount":  formatAmount(e.Amount),
	}}
}
