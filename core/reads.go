package core

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
	"beanchain/native/field"
	"beanchain/native/season"
	"beanchain/native/silo"
	"beanchain/native/well"
)

// AccountView is the silo position of one account.
type AccountView struct {
	Address     crypto.Address `json:"address"`
	Stalk       *big.Int       `json:"stalk"`
	Roots       *big.Int       `json:"roots"`
	Germinating *big.Int       `json:"germinatingStalk"`
	EarnedBeans *big.Int       `json:"earnedBeans"`
	Plenty      *big.Int       `json:"plenty"`
	Beans       *big.Int       `json:"beans"`
}

func read[T any](n *Node, fn func() (T, error)) (T, error) {
	var out T
	err := n.view(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// Account gathers the stalk, roots and claimable balances of addr.
func (n *Node) Account(addr crypto.Address) (*AccountView, error) {
	return read(n, func() (*AccountView, error) {
		view := &AccountView{Address: addr}
		var err error
		if view.Stalk, err = n.silo.BalanceOfStalk(addr); err != nil {
			return nil, err
		}
		if view.Roots, err = n.silo.BalanceOfRoots(addr); err != nil {
			return nil, err
		}
		if view.Germinating, err = n.silo.BalanceOfGerminatingStalk(addr); err != nil {
			return nil, err
		}
		if view.EarnedBeans, err = n.silo.BalanceOfEarnedBeans(addr); err != nil {
			return nil, err
		}
		if view.Plenty, err = n.silo.BalanceOfPlenty(addr); err != nil {
			return nil, err
		}
		if view.Beans, err = n.bank.BalanceOf(types.BeanToken, addr); err != nil {
			return nil, err
		}
		return view, nil
	})
}

func (n *Node) Balance(token string, addr crypto.Address) (*big.Int, error) {
	return read(n, func() (*big.Int, error) { return n.bank.BalanceOf(token, addr) })
}

func (n *Node) TotalSupply(token string) (*big.Int, error) {
	return read(n, func() (*big.Int, error) { return n.bank.TotalSupply(token) })
}

// GrownStalk returns the unmown grown stalk of addr in token.
func (n *Node) GrownStalk(addr crypto.Address, token string) (*big.Int, error) {
	return read(n, func() (*big.Int, error) { return n.silo.BalanceOfGrownStalk(addr, token) })
}

func (n *Node) GetDeposit(addr crypto.Address, token string, stem silo.Stem) (*silo.Deposit, error) {
	return read(n, func() (*silo.Deposit, error) { return n.silo.GetDeposit(addr, token, stem) })
}

// GetDeposits lists the crates of addr in token ordered by stem.
func (n *Node) GetDeposits(addr crypto.Address, token string) ([]*silo.Deposit, error) {
	return read(n, func() ([]*silo.Deposit, error) { return n.silo.GetDeposits(addr, token) })
}

func (n *Node) StemTip(token string) (silo.Stem, error) {
	return read(n, func() (silo.Stem, error) { return n.silo.StemTip(token) })
}

func (n *Node) Allowance(owner, spender crypto.Address, token string) (*big.Int, error) {
	return read(n, func() (*big.Int, error) { return n.silo.Allowance(owner, spender, token) })
}

func (n *Node) SiloTotals() (*silo.Totals, error) {
	return read(n, n.silo.Totals)
}

func (n *Node) Asset(token string) (*silo.Asset, error) {
	return read(n, func() (*silo.Asset, error) { return n.silo.Asset(token) })
}

func (n *Node) Assets() ([]*silo.Asset, error) {
	return read(n, n.silo.Assets)
}

func (n *Node) SeasonStatus() (*season.Status, error) {
	return read(n, n.season.Status)
}

// Weather returns the evaluation of the last sunrise, nil before the first.
func (n *Node) Weather() (*season.Weather, error) {
	return read(n, n.season.Weather)
}

// SeasonParams returns the active sunrise configuration.
func (n *Node) SeasonParams() *season.Params {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.season.Params()
}

func (n *Node) FieldStatus() (*field.Status, error) {
	return read(n, n.field.Status)
}

// Temperature is the morning adjusted temperature a sow would get now.
func (n *Node) Temperature() (*big.Int, error) {
	return read(n, n.field.CurrentTemperature)
}

func (n *Node) Plots(addr crypto.Address) ([]field.Plot, error) {
	return read(n, func() ([]field.Plot, error) { return n.field.Plots(addr) })
}

func (n *Node) Pool(token string) (*well.Pool, error) {
	return read(n, func() (*well.Pool, error) { return n.well.Pool(token) })
}

func (n *Node) Pools() ([]*well.Pool, error) {
	return read(n, n.well.Pools)
}

// ConvertCapacity is the up-convert bonus BDV left this season, nil when
// unlimited.
func (n *Node) ConvertCapacity() (*big.Int, error) {
	return read(n, n.convert.RemainingCapacity)
}
