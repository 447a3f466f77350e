package silo

import (
	"errors"
	"math/big"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
)

// ReceiveShipment accepts beans minted for depositors. The beans join the
// earned pool and their stalk is added to total stalk without new roots, so
// every root holder's entitlement grows pro rata. Nothing is accepted while
// no roots exist.
func (e *Engine) ReceiveShipment(route string, amount *big.Int) (*big.Int, error) {
	if err := e.readyForTransfers(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	bean, err := e.asset(types.BeanToken)
	if errors.Is(err, coreerrors.ErrNotWhitelisted) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, err
	}
	if totals.Roots.Sign() == 0 {
		e.logger.Info("silo shipment declined: no roots", "route", route, "amount", amount.String())
		return big.NewInt(0), nil
	}
	if err := e.bank.Mint(types.BeanToken, e.address, amount); err != nil {
		return nil, err
	}
	totals.EarnedBeans.Add(totals.EarnedBeans, amount)
	totals.Stalk.Add(totals.Stalk, new(big.Int).Mul(amount, bean.StalkIssuedPerBdv))
	if err := e.state.SiloPutTotals(totals); err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

// Plant deposits the account's earned beans at the bean stem tip. Calling it
// with nothing earned is a no-op.
func (e *Engine) Plant(addr crypto.Address) (*big.Int, Stem, error) {
	if err := e.ready(); err != nil {
		return nil, 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, 0, err
	}
	bean, err := e.asset(types.BeanToken)
	if err != nil {
		return nil, 0, errNoBeanAsset
	}
	season, err := e.season()
	if err != nil {
		return nil, 0, err
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, 0, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, 0, err
	}
	settlePlenty(account, totals)
	if err := e.mow(addr, account, totals, bean, season); err != nil {
		return nil, 0, err
	}
	stem := bean.StemTipAt(season)
	beans := earnedBeans(account, totals, bean)
	if beans.Sign() == 0 {
		if err := e.save(addr, account, totals); err != nil {
			return nil, 0, err
		}
		return beans, stem, nil
	}
	stalk := new(big.Int).Mul(beans, bean.StalkIssuedPerBdv)
	roots := rootsToRemove(account, totals, stalk)
	totals.Stalk.Sub(totals.Stalk, stalk)
	totals.Roots.Sub(totals.Roots, roots)
	account.Roots.Sub(account.Roots, roots)
	totals.EarnedBeans.Sub(totals.EarnedBeans, beans)
	if err := e.placeCrate(addr, account, totals, bean, stem, beans, beans, season); err != nil {
		return nil, 0, err
	}
	if err := e.state.SiloPutAsset(bean); err != nil {
		return nil, 0, err
	}
	if err := e.save(addr, account, totals); err != nil {
		return nil, 0, err
	}
	e.emitter.Emit(events.StalkBalanceChanged{Account: addr, DeltaStalk: big.NewInt(0), DeltaRoots: new(big.Int).Neg(roots)})
	e.emitter.Emit(events.AddDeposit{Account: addr, Token: bean.Token, Stem: int64(stem), Amount: new(big.Int).Set(beans), Bdv: new(big.Int).Set(beans)})
	e.emitter.Emit(events.Plant{Account: addr, Beans: beans, Stem: int64(stem)})
	return beans, stem, nil
}

// DistributePlenty spreads amount of the flood token, already held by the
// silo, across all roots.
func (e *Engine) DistributePlenty(amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	totals, err := e.totals()
	if err != nil {
		return err
	}
	if totals.Roots.Sign() == 0 {
		return coreerrors.ErrNoRoots
	}
	perRoot := mulDiv(amount, plentyPrecision, totals.Roots)
	totals.PlentyPerRoot.Add(totals.PlentyPerRoot, perRoot)
	return e.state.SiloPutTotals(totals)
}

// ClaimPlenty pays out the account's settled flood balance.
func (e *Engine) ClaimPlenty(addr crypto.Address) (*big.Int, error) {
	if err := e.readyForTransfers(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
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
	amount := new(big.Int).Set(account.Plenty)
	if amount.Sign() == 0 || e.plentyToken == "" {
		return nil, coreerrors.ErrNothingToClaim
	}
	account.Plenty.SetInt64(0)
	if err := e.bank.Transfer(e.plentyToken, e.address, addr, amount); err != nil {
		return nil, err
	}
	if err := e.state.SiloPutAccount(addr, account); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ClaimPlenty{Account: addr, Token: e.plentyToken, Amount: amount})
	return amount, nil
}
