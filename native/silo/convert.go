package silo

import (
	"math/big"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
)

// WithdrawForConvert removes amount from a crate for conversion. The tokens
// stay in silo custody. Germinating crates cannot be converted. Returns the
// removed BDV and the grown stalk the crate carried.
func (e *Engine) WithdrawForConvert(addr crypto.Address, token string, stem Stem, amount *big.Int) (*big.Int, *big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, coreerrors.ErrZeroAmount
	}
	asset, err := e.asset(token)
	if err != nil {
		return nil, nil, err
	}
	season, err := e.season()
	if err != nil {
		return nil, nil, err
	}
	if _, germinating := crateBucket(asset, stem, season); germinating {
		return nil, nil, coreerrors.ErrConvertGerminating
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, nil, err
	}
	settlePlenty(account, totals)
	if err := e.mow(addr, account, totals, asset, season); err != nil {
		return nil, nil, err
	}
	bdv, grown, err := e.removeDeposit(addr, account, totals, asset, stem, amount, season)
	if err != nil {
		return nil, nil, err
	}
	if err := e.state.SiloPutAsset(asset); err != nil {
		return nil, nil, err
	}
	if err := e.save(addr, account, totals); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.RemoveDeposit{Account: addr, Token: asset.Token, Stem: int64(stem), Amount: new(big.Int).Set(amount), Bdv: bdv})
	return bdv, grown, nil
}

// DepositConverted records converted tokens already in silo custody. The
// crate is placed below the tip so that it carries grown stalk per BDV of
// floor(grown / bdv); that grown stalk is credited as active stalk.
func (e *Engine) DepositConverted(addr crypto.Address, token string, amount, bdv, grown *big.Int) (Stem, *big.Int, error) {
	if err := e.ready(); err != nil {
		return 0, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, nil, coreerrors.ErrZeroAmount
	}
	if bdv == nil || bdv.Sign() <= 0 {
		return 0, nil, coreerrors.ErrZeroBdv
	}
	asset, err := e.asset(token)
	if err != nil {
		return 0, nil, err
	}
	season, err := e.season()
	if err != nil {
		return 0, nil, err
	}
	account, err := e.account(addr)
	if err != nil {
		return 0, nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return 0, nil, err
	}
	settlePlenty(account, totals)
	if err := e.mow(addr, account, totals, asset, season); err != nil {
		return 0, nil, err
	}
	tip := asset.StemTipAt(season)
	perBdv := big.NewInt(0)
	if grown != nil && grown.Sign() > 0 {
		perBdv.Quo(grown, bdv)
	}
	if !perBdv.IsInt64() || perBdv.Int64() > int64(tip)-minStem {
		perBdv.SetInt64(int64(tip) - minStem)
	}
	stem := tip - Stem(perBdv.Int64())
	credited := new(big.Int).Mul(bdv, perBdv)
	if err := e.placeCrate(addr, account, totals, asset, stem, amount, bdv, season); err != nil {
		return 0, nil, err
	}
	e.mintActiveStalk(addr, account, totals, credited)
	if err := e.state.SiloPutAsset(asset); err != nil {
		return 0, nil, err
	}
	if err := e.save(addr, account, totals); err != nil {
		return 0, nil, err
	}
	e.emitter.Emit(events.AddDeposit{Account: addr, Token: asset.Token, Stem: int64(stem), Amount: new(big.Int).Set(amount), Bdv: new(big.Int).Set(bdv)})
	return stem, credited, nil
}

// IsGerminating reports whether the crate at stem still germinates.
func (e *Engine) IsGerminating(token string, stem Stem) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	asset, err := e.asset(token)
	if err != nil {
		return false, err
	}
	season, err := e.season()
	if err != nil {
		return false, err
	}
	_, germinating := crateBucket(asset, stem, season)
	return germinating, nil
}

const minStem = -(1 << 62)
