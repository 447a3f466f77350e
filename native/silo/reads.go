package silo

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
)

// BalanceOfStalk returns the active stalk of addr.
func (e *Engine) BalanceOfStalk(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return account.Stalk, nil
}

func (e *Engine) BalanceOfRoots(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return account.Roots, nil
}

// BalanceOfGerminatingStalk sums both parity buckets of addr.
func (e *Engine) BalanceOfGerminatingStalk(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return account.TotalGerminating(), nil
}

// BalanceOfEarnedBeans returns the beans addr could plant right now.
func (e *Engine) BalanceOfEarnedBeans(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	bean, ok, err := e.state.SiloGetAsset(types.BeanToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	bean.ensure()
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, err
	}
	return earnedBeans(account, totals, bean), nil
}

// BalanceOfGrownStalk returns the grown stalk of addr's token position that
// has not been mowed yet.
func (e *Engine) BalanceOfGrownStalk(addr crypto.Address, token string) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	asset, err := e.asset(token)
	if err != nil {
		return nil, err
	}
	season, err := e.season()
	if err != nil {
		return nil, err
	}
	status, err := e.mowStatus(addr, asset.Token)
	if err != nil {
		return nil, err
	}
	tip := asset.StemTipAt(season)
	if status.Bdv.Sign() == 0 || tip <= status.LastStem {
		return big.NewInt(0), nil
	}
	return new(big.Int).Mul(status.Bdv, (tip - status.LastStem).big()), nil
}

// GrownStalkForDeposit returns bdv * (tip - stem) for one crate.
func (e *Engine) GrownStalkForDeposit(addr crypto.Address, token string, stem Stem) (*big.Int, error) {
	deposit, err := e.GetDeposit(addr, token, stem)
	if err != nil {
		return nil, err
	}
	tip, err := e.StemTip(token)
	if err != nil {
		return nil, err
	}
	if tip <= stem {
		return big.NewInt(0), nil
	}
	return new(big.Int).Mul(deposit.Bdv, (tip - stem).big()), nil
}

// BalanceOfPlenty returns the settled plus pending flood balance of addr.
func (e *Engine) BalanceOfPlenty(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, err
	}
	settlePlenty(account, totals)
	return account.Plenty, nil
}

// GetDeposit returns the crate at stem; a missing crate reads as zero.
func (e *Engine) GetDeposit(addr crypto.Address, token string, stem Stem) (*Deposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	token = types.NormalizeToken(token)
	crate, ok, err := e.state.SiloGetCrate(addr, token, stem)
	if err != nil {
		return nil, err
	}
	out := &Deposit{Token: token, Stem: stem, Amount: big.NewInt(0), Bdv: big.NewInt(0)}
	if ok && crate != nil {
		out.Amount = cloneInt(crate.Amount)
		out.Bdv = cloneInt(crate.Bdv)
	}
	return out, nil
}

// GetDeposits lists addr's crates of token ordered by stem.
func (e *Engine) GetDeposits(addr crypto.Address, token string) ([]*Deposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	token = types.NormalizeToken(token)
	stems, err := e.state.SiloCrateStems(addr, token)
	if err != nil {
		return nil, err
	}
	out := make([]*Deposit, 0, len(stems))
	for _, stem := range stems {
		deposit, err := e.GetDeposit(addr, token, stem)
		if err != nil {
			return nil, err
		}
		if deposit.Amount.Sign() == 0 {
			continue
		}
		out = append(out, deposit)
	}
	return out, nil
}

// StemTip returns the current stem tip of token.
func (e *Engine) StemTip(token string) (Stem, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	asset, err := e.asset(token)
	if err != nil {
		return 0, err
	}
	season, err := e.season()
	if err != nil {
		return 0, err
	}
	return asset.StemTipAt(season), nil
}

// Totals returns a copy of the silo wide balances.
func (e *Engine) Totals() (*Totals, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, err
	}
	return totals.Clone(), nil
}

// Asset returns a copy of the settings of token.
func (e *Engine) Asset(token string) (*Asset, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	asset, err := e.asset(token)
	if err != nil {
		return nil, err
	}
	return asset.Clone(), nil
}

// Assets lists every asset ever whitelisted in whitelist order.
func (e *Engine) Assets() ([]*Asset, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	tokens, err := e.state.SiloAssets()
	if err != nil {
		return nil, err
	}
	out := make([]*Asset, 0, len(tokens))
	for _, token := range tokens {
		asset, err := e.asset(token)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, nil
}
