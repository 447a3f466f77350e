package silo

import (
	"math/big"

	"beanchain/core/events"
	"beanchain/crypto"
)

// settlePlenty accrues flood proceeds for the roots the account held since
// its last settlement. Must run before the account's roots change.
func settlePlenty(account *Account, totals *Totals) {
	if totals.PlentyPerRoot.Cmp(account.PlentyPerRoot) <= 0 {
		account.PlentyPerRoot = new(big.Int).Set(totals.PlentyPerRoot)
		return
	}
	if account.Roots.Sign() > 0 {
		delta := new(big.Int).Sub(totals.PlentyPerRoot, account.PlentyPerRoot)
		account.Plenty.Add(account.Plenty, mulDiv(account.Roots, delta, plentyPrecision))
	}
	account.PlentyPerRoot = new(big.Int).Set(totals.PlentyPerRoot)
}

// rootsFor converts stalk into roots at the current exchange rate, 1:1 while
// the silo is empty.
func rootsFor(totals *Totals, stalk *big.Int) *big.Int {
	if totals.Stalk.Sign() == 0 || totals.Roots.Sign() == 0 {
		return new(big.Int).Set(stalk)
	}
	return mulDiv(stalk, totals.Roots, totals.Stalk)
}

// rootsToRemove rounds up so the remaining holders are never diluted, and
// never exceeds what the account owns.
func rootsToRemove(account *Account, totals *Totals, stalk *big.Int) *big.Int {
	if totals.Stalk.Sign() == 0 {
		return big.NewInt(0)
	}
	roots := mulDivUp(totals.Roots, stalk, totals.Stalk)
	if roots.Cmp(account.Roots) > 0 {
		roots.Set(account.Roots)
	}
	return roots
}

func (e *Engine) mintActiveStalk(addr crypto.Address, account *Account, totals *Totals, stalk *big.Int) {
	if isZero(stalk) {
		return
	}
	roots := rootsFor(totals, stalk)
	account.Stalk.Add(account.Stalk, stalk)
	account.Roots.Add(account.Roots, roots)
	totals.Stalk.Add(totals.Stalk, stalk)
	totals.Roots.Add(totals.Roots, roots)
	e.emitter.Emit(events.StalkBalanceChanged{Account: addr, DeltaStalk: new(big.Int).Set(stalk), DeltaRoots: roots})
}

func (e *Engine) burnActiveStalk(addr crypto.Address, account *Account, totals *Totals, stalk *big.Int) error {
	if isZero(stalk) {
		return nil
	}
	if account.Stalk.Cmp(stalk) < 0 || totals.Stalk.Cmp(stalk) < 0 {
		return errStalkUnderflow
	}
	roots := rootsToRemove(account, totals, stalk)
	account.Stalk.Sub(account.Stalk, stalk)
	account.Roots.Sub(account.Roots, roots)
	totals.Stalk.Sub(totals.Stalk, stalk)
	totals.Roots.Sub(totals.Roots, roots)
	e.emitter.Emit(events.StalkBalanceChanged{
		Account:    addr,
		DeltaStalk: new(big.Int).Neg(stalk),
		DeltaRoots: new(big.Int).Neg(roots),
	})
	return nil
}

// moveActiveStalk transfers active stalk and the matching roots between two
// accounts. Totals do not change.
func (e *Engine) moveActiveStalk(fromAddr, toAddr crypto.Address, from, to *Account, totals *Totals, stalk *big.Int) error {
	if isZero(stalk) {
		return nil
	}
	if from.Stalk.Cmp(stalk) < 0 {
		return errStalkUnderflow
	}
	roots := rootsToRemove(from, totals, stalk)
	from.Stalk.Sub(from.Stalk, stalk)
	from.Roots.Sub(from.Roots, roots)
	to.Stalk.Add(to.Stalk, stalk)
	to.Roots.Add(to.Roots, roots)
	e.emitter.Emit(events.StalkBalanceChanged{Account: fromAddr, DeltaStalk: new(big.Int).Neg(stalk), DeltaRoots: new(big.Int).Neg(roots)})
	e.emitter.Emit(events.StalkBalanceChanged{Account: toAddr, DeltaStalk: new(big.Int).Set(stalk), DeltaRoots: new(big.Int).Set(roots)})
	return nil
}

// mow realises the grown stalk of addr's token position into active stalk.
// The caller persists account and totals.
func (e *Engine) mow(addr crypto.Address, account *Account, totals *Totals, asset *Asset, season uint64) error {
	status, err := e.mowStatus(addr, asset.Token)
	if err != nil {
		return err
	}
	tip := asset.StemTipAt(season)
	if status.LastStem == tip {
		return nil
	}
	grown := big.NewInt(0)
	if status.Bdv.Sign() > 0 && tip > status.LastStem {
		grown = new(big.Int).Mul(status.Bdv, (tip - status.LastStem).big())
		e.mintActiveStalk(addr, account, totals, grown)
	}
	status.LastStem = tip
	if err := e.state.SiloPutMowStatus(addr, asset.Token, status); err != nil {
		return err
	}
	if grown.Sign() > 0 {
		e.emitter.Emit(events.Mow{Account: addr, Token: asset.Token, Stalk: grown, Stem: int64(tip)})
	}
	return nil
}

// Mow realises grown stalk for one (account, token) pair.
func (e *Engine) Mow(addr crypto.Address, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	asset, err := e.asset(token)
	if err != nil {
		return err
	}
	season, err := e.season()
	if err != nil {
		return err
	}
	account, err := e.account(addr)
	if err != nil {
		return err
	}
	totals, err := e.totals()
	if err != nil {
		return err
	}
	settlePlenty(account, totals)
	if err := e.mow(addr, account, totals, asset, season); err != nil {
		return err
	}
	return e.save(addr, account, totals)
}

// MowMultiple mows every listed token for addr.
func (e *Engine) MowMultiple(addr crypto.Address, tokens []string) error {
	for _, token := range tokens {
		if err := e.Mow(addr, token); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) save(addr crypto.Address, account *Account, totals *Totals) error {
	if err := e.state.SiloPutAccount(addr, account); err != nil {
		return err
	}
	return e.state.SiloPutTotals(totals)
}

// earnedStalk is the stalk attributable to the account's roots beyond its
// own active stalk: its share of shipped beans not yet planted.
func earnedStalk(account *Account, totals *Totals) *big.Int {
	if totals.Roots.Sign() == 0 || account.Roots.Sign() == 0 {
		return big.NewInt(0)
	}
	entitled := mulDiv(totals.Stalk, account.Roots, totals.Roots)
	earned := entitled.Sub(entitled, account.Stalk)
	if earned.Sign() < 0 {
		return big.NewInt(0)
	}
	return earned
}

func earnedBeans(account *Account, totals *Totals, beanAsset *Asset) *big.Int {
	if beanAsset == nil || isZero(beanAsset.StalkIssuedPerBdv) {
		return big.NewInt(0)
	}
	beans := new(big.Int).Quo(earnedStalk(account, totals), beanAsset.StalkIssuedPerBdv)
	if beans.Cmp(totals.EarnedBeans) > 0 {
		beans.Set(totals.EarnedBeans)
	}
	return beans
}
