package silo

import (
	"math/big"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
)

// placeCrate merges amount/bdv into the crate at stem and credits its base
// stalk to the germinating bucket or the active balance the stem belongs to.
// The caller has mowed the position and persists account, totals and asset.
func (e *Engine) placeCrate(addr crypto.Address, account *Account, totals *Totals, asset *Asset, stem Stem, amount, bdv *big.Int, season uint64) error {
	crate, ok, err := e.state.SiloGetCrate(addr, asset.Token, stem)
	if err != nil {
		return err
	}
	if !ok || crate == nil {
		crate = &Crate{Amount: big.NewInt(0), Bdv: big.NewInt(0)}
	}
	crate.Amount = new(big.Int).Add(cloneInt(crate.Amount), amount)
	crate.Bdv = new(big.Int).Add(cloneInt(crate.Bdv), bdv)
	if err := e.state.SiloPutCrate(addr, asset.Token, stem, crate); err != nil {
		return err
	}
	base := new(big.Int).Mul(bdv, asset.StalkIssuedPerBdv)
	if bucket, germinating := crateBucket(asset, stem, season); germinating {
		if err := e.addGerminating(addr, account, totals, bucket, base); err != nil {
			return err
		}
	} else {
		e.mintActiveStalk(addr, account, totals, base)
	}
	asset.TotalDeposited.Add(asset.TotalDeposited, amount)
	asset.TotalDepositedBdv.Add(asset.TotalDepositedBdv, bdv)
	status, err := e.mowStatus(addr, asset.Token)
	if err != nil {
		return err
	}
	status.Bdv.Add(status.Bdv, bdv)
	return e.state.SiloPutMowStatus(addr, asset.Token, status)
}

// takeCrate removes amount from the crate at stem. The removed BDV is the
// truncated pro-rata share except for the last unit, which takes whatever
// remains. Returns the removed bdv, base stalk and grown stalk.
func (e *Engine) takeCrate(addr crypto.Address, asset *Asset, stem Stem, amount *big.Int, season uint64) (*big.Int, *big.Int, *big.Int, error) {
	crate, ok, err := e.state.SiloGetCrate(addr, asset.Token, stem)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok || crate == nil || crate.Amount == nil || crate.Amount.Cmp(amount) < 0 {
		return nil, nil, nil, coreerrors.ErrInsufficientCrateBalance
	}
	var bdv *big.Int
	if crate.Amount.Cmp(amount) == 0 {
		bdv = cloneInt(crate.Bdv)
	} else {
		bdv = mulDiv(amount, crate.Bdv, crate.Amount)
	}
	remaining := new(big.Int).Sub(crate.Amount, amount)
	if remaining.Sign() == 0 {
		if err := e.state.SiloDeleteCrate(addr, asset.Token, stem); err != nil {
			return nil, nil, nil, err
		}
	} else {
		crate.Amount = remaining
		crate.Bdv = new(big.Int).Sub(crate.Bdv, bdv)
		if err := e.state.SiloPutCrate(addr, asset.Token, stem, crate); err != nil {
			return nil, nil, nil, err
		}
	}
	status, err := e.mowStatus(addr, asset.Token)
	if err != nil {
		return nil, nil, nil, err
	}
	status.Bdv.Sub(status.Bdv, bdv)
	if status.Bdv.Sign() < 0 {
		status.Bdv.SetInt64(0)
	}
	if err := e.state.SiloPutMowStatus(addr, asset.Token, status); err != nil {
		return nil, nil, nil, err
	}
	base := new(big.Int).Mul(bdv, asset.StalkIssuedPerBdv)
	grown := big.NewInt(0)
	if tip := asset.StemTipAt(season); tip > stem {
		grown = new(big.Int).Mul(bdv, (tip - stem).big())
	}
	return bdv, base, grown, nil
}

// removeDeposit withdraws part of a crate and burns the stalk it carried.
func (e *Engine) removeDeposit(addr crypto.Address, account *Account, totals *Totals, asset *Asset, stem Stem, amount *big.Int, season uint64) (*big.Int, *big.Int, error) {
	bdv, base, grown, err := e.takeCrate(addr, asset, stem, amount, season)
	if err != nil {
		return nil, nil, err
	}
	if bucket, germinating := crateBucket(asset, stem, season); germinating {
		if err := removeGerminating(account, totals, bucket, base); err != nil {
			return nil, nil, err
		}
		if err := e.burnActiveStalk(addr, account, totals, grown); err != nil {
			return nil, nil, err
		}
	} else {
		if err := e.burnActiveStalk(addr, account, totals, new(big.Int).Add(base, grown)); err != nil {
			return nil, nil, err
		}
	}
	asset.TotalDeposited.Sub(asset.TotalDeposited, amount)
	asset.TotalDepositedBdv.Sub(asset.TotalDepositedBdv, bdv)
	if asset.TotalDepositedBdv.Sign() < 0 {
		asset.TotalDepositedBdv.SetInt64(0)
	}
	return bdv, grown, nil
}

// Deposit moves amount of token from addr into silo custody and records a
// germinating crate at the current stem tip.
func (e *Engine) Deposit(addr crypto.Address, token string, amount *big.Int) (Stem, error) {
	if err := e.readyForTransfers(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if addr.IsZero() {
		return 0, coreerrors.ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, coreerrors.ErrZeroAmount
	}
	asset, err := e.asset(token)
	if err != nil {
		return 0, err
	}
	if asset.Dewhitelisted {
		return 0, coreerrors.ErrDepositsFrozen
	}
	bdv, err := e.BDV(asset.Token, amount)
	if err != nil {
		return 0, err
	}
	if bdv.Sign() <= 0 {
		return 0, coreerrors.ErrZeroBdv
	}
	season, err := e.season()
	if err != nil {
		return 0, err
	}
	account, err := e.account(addr)
	if err != nil {
		return 0, err
	}
	totals, err := e.totals()
	if err != nil {
		return 0, err
	}
	settlePlenty(account, totals)
	if err := e.mow(addr, account, totals, asset, season); err != nil {
		return 0, err
	}
	stem := asset.StemTipAt(season)
	if err := e.placeCrate(addr, account, totals, asset, stem, amount, bdv, season); err != nil {
		return 0, err
	}
	if err := e.bank.Transfer(asset.Token, addr, e.address, amount); err != nil {
		return 0, err
	}
	if err := e.state.SiloPutAsset(asset); err != nil {
		return 0, err
	}
	if err := e.save(addr, account, totals); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.AddDeposit{Account: addr, Token: asset.Token, Stem: int64(stem), Amount: new(big.Int).Set(amount), Bdv: bdv})
	return stem, nil
}

// Withdraw removes amount from the crate at stem and returns the tokens to
// addr.
func (e *Engine) Withdraw(addr crypto.Address, token string, stem Stem, amount *big.Int) error {
	_, err := e.withdraw(addr, token, []Stem{stem}, []*big.Int{amount}, false)
	return err
}

// WithdrawBatch removes several crates of one token in a single operation
// and returns the withdrawn amount.
func (e *Engine) WithdrawBatch(addr crypto.Address, token string, stems []Stem, amounts []*big.Int) (*big.Int, error) {
	return e.withdraw(addr, token, stems, amounts, true)
}

func validateAmounts(stems []Stem, amounts []*big.Int) error {
	if len(stems) != len(amounts) {
		return coreerrors.ErrLengthMismatch
	}
	if len(amounts) == 0 {
		return coreerrors.ErrEmptyAmounts
	}
	for _, amount := range amounts {
		if amount == nil || amount.Sign() <= 0 {
			return coreerrors.ErrZeroAmount
		}
	}
	return nil
}

func (e *Engine) withdraw(addr crypto.Address, token string, stems []Stem, amounts []*big.Int, batch bool) (*big.Int, error) {
	if err := e.readyForTransfers(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := validateAmounts(stems, amounts); err != nil {
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
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, err
	}
	settlePlenty(account, totals)
	if err := e.mow(addr, account, totals, asset, season); err != nil {
		return nil, err
	}
	totalAmount := big.NewInt(0)
	totalBdv := big.NewInt(0)
	for i, stem := range stems {
		bdv, _, err := e.removeDeposit(addr, account, totals, asset, stem, amounts[i], season)
		if err != nil {
			return nil, err
		}
		totalAmount.Add(totalAmount, amounts[i])
		totalBdv.Add(totalBdv, bdv)
		if !batch {
			e.emitter.Emit(events.RemoveDeposit{Account: addr, Token: asset.Token, Stem: int64(stem), Amount: new(big.Int).Set(amounts[i]), Bdv: bdv})
		}
	}
	if err := e.bank.Transfer(asset.Token, e.address, addr, totalAmount); err != nil {
		return nil, err
	}
	if err := e.state.SiloPutAsset(asset); err != nil {
		return nil, err
	}
	if err := e.save(addr, account, totals); err != nil {
		return nil, err
	}
	if batch {
		stemValues := make([]int64, len(stems))
		for i, stem := range stems {
			stemValues[i] = int64(stem)
		}
		e.emitter.Emit(events.RemoveDeposits{
			Account:     addr,
			Token:       asset.Token,
			Stems:       stemValues,
			Amounts:     amounts,
			TotalAmount: totalAmount,
			TotalBdv:    totalBdv,
		})
	}
	return totalAmount, nil
}

// Transfer moves amount of the crate at stem from one account to another.
// When caller is not the owner the deposit allowance is consumed.
func (e *Engine) Transfer(caller, from, to crypto.Address, token string, stem Stem, amount *big.Int) (*big.Int, error) {
	return e.transfer(caller, from, to, token, []Stem{stem}, []*big.Int{amount})
}

// TransferBatch moves several crates of one token and returns the BDV moved
// per crate.
func (e *Engine) TransferBatch(caller, from, to crypto.Address, token string, stems []Stem, amounts []*big.Int) ([]*big.Int, error) {
	if err := validateAmounts(stems, amounts); err != nil {
		return nil, err
	}
	return e.transferMany(caller, from, to, token, stems, amounts)
}

func (e *Engine) transfer(caller, from, to crypto.Address, token string, stems []Stem, amounts []*big.Int) (*big.Int, error) {
	if amounts[0] == nil || amounts[0].Sign() <= 0 {
		return nil, coreerrors.ErrZeroAmount
	}
	bdvs, err := e.transferMany(caller, from, to, token, stems, amounts)
	if err != nil {
		return nil, err
	}
	return bdvs[0], nil
}

func (e *Engine) transferMany(caller, from, to crypto.Address, token string, stems []Stem, amounts []*big.Int) ([]*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if to.IsZero() || from.IsZero() {
		return nil, coreerrors.ErrZeroAddress
	}
	if from == to {
		return nil, coreerrors.ErrSelfTransfer
	}
	asset, err := e.asset(token)
	if err != nil {
		return nil, err
	}
	if caller != from {
		total := big.NewInt(0)
		for _, amount := range amounts {
			total.Add(total, amount)
		}
		if err := e.spendAllowance(from, caller, asset.Token, total); err != nil {
			return nil, err
		}
	}
	season, err := e.season()
	if err != nil {
		return nil, err
	}
	sender, err := e.account(from)
	if err != nil {
		return nil, err
	}
	recipient, err := e.account(to)
	if err != nil {
		return nil, err
	}
	totals, err := e.totals()
	if err != nil {
		return nil, err
	}
	settlePlenty(sender, totals)
	settlePlenty(recipient, totals)
	if err := e.mow(from, sender, totals, asset, season); err != nil {
		return nil, err
	}
	if err := e.mow(to, recipient, totals, asset, season); err != nil {
		return nil, err
	}
	bdvs := make([]*big.Int, len(stems))
	for i, stem := range stems {
		bdv, base, grown, err := e.takeCrate(from, asset, stem, amounts[i], season)
		if err != nil {
			return nil, err
		}
		active := new(big.Int).Set(grown)
		if bucket, germinating := crateBucket(asset, stem, season); germinating {
			if err := removeGerminating(sender, totals, bucket, base); err != nil {
				return nil, err
			}
			if err := e.addGerminating(to, recipient, totals, bucket, base); err != nil {
				return nil, err
			}
		} else {
			active.Add(active, base)
		}
		if err := e.moveActiveStalk(from, to, sender, recipient, totals, active); err != nil {
			return nil, err
		}
		if err := e.receiveCrate(to, asset, stem, amounts[i], bdv); err != nil {
			return nil, err
		}
		bdvs[i] = bdv
		e.emitter.Emit(events.TransferDeposit{From: from, To: to, Token: asset.Token, Stem: int64(stem), Amount: new(big.Int).Set(amounts[i]), Bdv: bdv})
	}
	if err := e.state.SiloPutAccount(from, sender); err != nil {
		return nil, err
	}
	if err := e.save(to, recipient, totals); err != nil {
		return nil, err
	}
	return bdvs, nil
}

// receiveCrate merges a transferred crate into the recipient without
// touching stalk or asset totals.
func (e *Engine) receiveCrate(addr crypto.Address, asset *Asset, stem Stem, amount, bdv *big.Int) error {
	crate, ok, err := e.state.SiloGetCrate(addr, asset.Token, stem)
	if err != nil {
		return err
	}
	if !ok || crate == nil {
		crate = &Crate{Amount: big.NewInt(0), Bdv: big.NewInt(0)}
	}
	crate.Amount = new(big.Int).Add(cloneInt(crate.Amount), amount)
	crate.Bdv = new(big.Int).Add(cloneInt(crate.Bdv), bdv)
	if err := e.state.SiloPutCrate(addr, asset.Token, stem, crate); err != nil {
		return err
	}
	status, err := e.mowStatus(addr, asset.Token)
	if err != nil {
		return err
	}
	status.Bdv.Add(status.Bdv, bdv)
	return e.state.SiloPutMowStatus(addr, asset.Token, status)
}
