package core

import (
	"math/big"

	"beanchain/crypto"
	"beanchain/native/silo"
	"beanchain/native/well"
)

// Deposit adds amount of token to the silo at the current stem tip.
func (n *Node) Deposit(addr crypto.Address, token string, amount *big.Int) (silo.Stem, error) {
	var stem silo.Stem
	err := n.apply("deposit", func() error {
		var err error
		stem, err = n.silo.Deposit(addr, token, amount)
		return err
	})
	return stem, err
}

// Withdraw removes amount from one crate and returns the tokens.
func (n *Node) Withdraw(addr crypto.Address, token string, stem silo.Stem, amount *big.Int) error {
	return n.apply("withdraw", func() error {
		return n.silo.Withdraw(addr, token, stem, amount)
	})
}

// WithdrawBatch removes amounts from several crates of one token.
func (n *Node) WithdrawBatch(addr crypto.Address, token string, stems []silo.Stem, amounts []*big.Int) (*big.Int, error) {
	var total *big.Int
	err := n.apply("withdraw_batch", func() error {
		var err error
		total, err = n.silo.WithdrawBatch(addr, token, stems, amounts)
		return err
	})
	return total, err
}

// TransferDeposit moves part of a crate between accounts. caller must be
// from or hold an allowance.
func (n *Node) TransferDeposit(caller, from, to crypto.Address, token string, stem silo.Stem, amount *big.Int) (*big.Int, error) {
	var bdv *big.Int
	err := n.apply("transfer_deposit", func() error {
		var err error
		bdv, err = n.silo.Transfer(caller, from, to, token, stem, amount)
		return err
	})
	return bdv, err
}

func (n *Node) TransferDeposits(caller, from, to crypto.Address, token string, stems []silo.Stem, amounts []*big.Int) ([]*big.Int, error) {
	var bdvs []*big.Int
	err := n.apply("transfer_deposits", func() error {
		var err error
		bdvs, err = n.silo.TransferBatch(caller, from, to, token, stems, amounts)
		return err
	})
	return bdvs, err
}

func (n *Node) Approve(owner, spender crypto.Address, token string, amount *big.Int) error {
	return n.apply("approve", func() error {
		return n.silo.Approve(owner, spender, token, amount)
	})
}

func (n *Node) IncreaseAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	return n.apply("increase_allowance", func() error {
		return n.silo.IncreaseAllowance(owner, spender, token, amount)
	})
}

func (n *Node) DecreaseAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	return n.apply("decrease_allowance", func() error {
		return n.silo.DecreaseAllowance(owner, spender, token, amount)
	})
}

// Mow settles grown stalk for the given tokens, or every whitelisted token
// when none are named.
func (n *Node) Mow(addr crypto.Address, tokens ...string) error {
	return n.apply("mow", func() error {
		if len(tokens) == 0 {
			assets, err := n.silo.Assets()
			if err != nil {
				return err
			}
			for _, asset := range assets {
				tokens = append(tokens, asset.Token)
			}
		}
		return n.silo.MowMultiple(addr, tokens)
	})
}

// Plant deposits the account's earned beans.
func (n *Node) Plant(addr crypto.Address) (*big.Int, silo.Stem, error) {
	var (
		beans *big.Int
		stem  silo.Stem
	)
	err := n.apply("plant", func() error {
		var err error
		beans, stem, err = n.silo.Plant(addr)
		return err
	})
	return beans, stem, err
}

func (n *Node) ClaimPlenty(addr crypto.Address) (*big.Int, error) {
	var amount *big.Int
	err := n.apply("claim_plenty", func() error {
		var err error
		amount, err = n.silo.ClaimPlenty(addr)
		return err
	})
	return amount, err
}

// Sow lends beans to the field at no less than minTemperature.
func (n *Node) Sow(addr crypto.Address, beans, minTemperature *big.Int) (*big.Int, error) {
	var pods *big.Int
	err := n.apply("sow", func() error {
		var err error
		pods, err = n.field.Sow(addr, beans, minTemperature)
		return err
	})
	return pods, err
}

func (n *Node) Harvest(addr crypto.Address, indexes []*big.Int) (*big.Int, error) {
	var beans *big.Int
	err := n.apply("harvest", func() error {
		var err error
		beans, err = n.field.Harvest(addr, indexes)
		return err
	})
	return beans, err
}

// Whitelist admits a new depositable asset.
func (n *Node) Whitelist(params silo.WhitelistParams) (*silo.Asset, error) {
	var asset *silo.Asset
	err := n.apply("whitelist", func() error {
		var err error
		asset, err = n.silo.Whitelist(params)
		return err
	})
	return asset, err
}

func (n *Node) Dewhitelist(token string) error {
	return n.apply("dewhitelist", func() error {
		return n.silo.Dewhitelist(token)
	})
}

func (n *Node) UpdateOptimalPercent(token string, percent *big.Int) error {
	return n.apply("update_optimal_percent", func() error {
		return n.silo.UpdateOptimalPercent(token, percent)
	})
}

func (n *Node) UpdateGaugePoints(token string, points *big.Int) error {
	return n.apply("update_gauge_points", func() error {
		return n.silo.UpdateGaugePoints(token, points)
	})
}

// Swap trades through the well behind lpToken.
func (n *Node) Swap(trader crypto.Address, lpToken, tokenIn string, amountIn, minOut *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.apply("swap", func() error {
		var err error
		out, err = n.well.Swap(trader, lpToken, tokenIn, amountIn, minOut)
		return err
	})
	return out, err
}

func (n *Node) AddLiquidity(provider crypto.Address, lpToken string, beanIn, pairIn, minLP *big.Int) (*big.Int, error) {
	var lp *big.Int
	err := n.apply("add_liquidity", func() error {
		var err error
		lp, err = n.well.AddLiquidity(provider, lpToken, beanIn, pairIn, minLP)
		return err
	})
	return lp, err
}

func (n *Node) RemoveLiquidity(provider crypto.Address, lpToken string, lp, minBean, minPair *big.Int) (*big.Int, *big.Int, error) {
	var beans, pair *big.Int
	err := n.apply("remove_liquidity", func() error {
		var err error
		beans, pair, err = n.well.RemoveLiquidity(provider, lpToken, lp, minBean, minPair)
		return err
	})
	return beans, pair, err
}

// Transfer moves plain token balances between accounts.
func (n *Node) Transfer(token string, from, to crypto.Address, amount *big.Int) error {
	return n.apply("transfer", func() error {
		return n.bank.Transfer(token, from, to, amount)
	})
}

// Faucet mints tokens to an account. Only exposed on development daemons.
func (n *Node) Faucet(token string, to crypto.Address, amount *big.Int) error {
	return n.apply("faucet", func() error {
		return n.bank.Mint(token, to, amount)
	})
}

// CreateWell registers a new empty pool.
func (n *Node) CreateWell(params well.PoolParams) (*well.Pool, error) {
	var pool *well.Pool
	err := n.apply("create_well", func() error {
		var err error
		pool, err = n.well.CreatePool(params)
		return err
	})
	return pool, err
}
