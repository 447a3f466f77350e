package silo

import (
	"math/big"

	"beanchain/core/events"
	"beanchain/crypto"
)

// crateBucket reports whether the base stalk of a crate at stem is still
// germinating at season and, if so, which parity bucket holds it. Crates at
// the current tip were created this season; crates between the previous
// tip and the current one were created last season.
func crateBucket(asset *Asset, stem Stem, season uint64) (int, bool) {
	tip := asset.StemTipAt(season)
	if stem >= tip {
		return int(season % 2), true
	}
	if season > 0 && stem >= asset.GerminatingStem {
		return int((season - 1) % 2), true
	}
	return 0, false
}

func (e *Engine) addGerminating(addr crypto.Address, account *Account, totals *Totals, bucket int, stalk *big.Int) error {
	if isZero(stalk) {
		return nil
	}
	account.Germinating(bucket).Add(account.Germinating(bucket), stalk)
	totals.Germinating(bucket).Add(totals.Germinating(bucket), stalk)
	return e.state.SiloAddGerminatingAccount(bucket, addr)
}

func removeGerminating(account *Account, totals *Totals, bucket int, stalk *big.Int) error {
	if isZero(stalk) {
		return nil
	}
	if account.Germinating(bucket).Cmp(stalk) < 0 || totals.Germinating(bucket).Cmp(stalk) < 0 {
		return errStalkUnderflow
	}
	account.Germinating(bucket).Sub(account.Germinating(bucket), stalk)
	totals.Germinating(bucket).Sub(totals.Germinating(bucket), stalk)
	return nil
}

// endGermination promotes the bucket of the given season's parity. Roots
// are minted at the exchange rate observed before any account in the bucket
// is credited so that processing order does not matter.
func (e *Engine) endGermination(season uint64) error {
	bucket := int(season % 2)
	totals, err := e.totals()
	if err != nil {
		return err
	}
	addrs, err := e.state.SiloGerminatingAccounts(bucket)
	if err != nil {
		return err
	}
	sortAddresses(addrs)
	stalk0 := new(big.Int).Set(totals.Stalk)
	roots0 := new(big.Int).Set(totals.Roots)
	promotedStalk := big.NewInt(0)
	promotedRoots := big.NewInt(0)
	promotedAccounts := 0
	for _, addr := range addrs {
		account, err := e.account(addr)
		if err != nil {
			return err
		}
		stalk := new(big.Int).Set(account.Germinating(bucket))
		if stalk.Sign() == 0 {
			continue
		}
		settlePlenty(account, totals)
		var roots *big.Int
		if stalk0.Sign() == 0 || roots0.Sign() == 0 {
			roots = new(big.Int).Set(stalk)
		} else {
			roots = mulDiv(stalk, roots0, stalk0)
		}
		account.Germinating(bucket).SetInt64(0)
		account.Stalk.Add(account.Stalk, stalk)
		account.Roots.Add(account.Roots, roots)
		if err := e.state.SiloPutAccount(addr, account); err != nil {
			return err
		}
		promotedStalk.Add(promotedStalk, stalk)
		promotedRoots.Add(promotedRoots, roots)
		promotedAccounts++
		e.emitter.Emit(events.StalkBalanceChanged{Account: addr, DeltaStalk: stalk, DeltaRoots: roots})
	}
	if totals.Germinating(bucket).Cmp(promotedStalk) != 0 {
		e.logger.Warn("silo germination bucket mismatch",
			"season", season,
			"bucket", bucket,
			"total", totals.Germinating(bucket).String(),
			"promoted", promotedStalk.String())
	}
	totals.Germinating(bucket).SetInt64(0)
	totals.Stalk.Add(totals.Stalk, promotedStalk)
	totals.Roots.Add(totals.Roots, promotedRoots)
	if err := e.state.SiloPutTotals(totals); err != nil {
		return err
	}
	if err := e.state.SiloClearGerminatingAccounts(bucket); err != nil {
		return err
	}
	if promotedAccounts > 0 {
		e.emitter.Emit(events.Germination{
			Season:   season,
			Bucket:   bucket,
			Stalk:    promotedStalk,
			Roots:    promotedRoots,
			Accounts: promotedAccounts,
		})
	}
	return nil
}
