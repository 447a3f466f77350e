package silo

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	coreerrors "beanchain/core/errors"
	nativecommon "beanchain/native/common"
)

func TestDepositGerminatesForTwoSunrises(t *testing.T) {
	f := newFixture(t)
	f.whitelist("SEED", BdvMethodBean, 10_000, 2)
	user := testAddr(1)
	f.fund("SEED", user, 1000)

	stem := f.deposit(user, "SEED", 1000)
	if stem != 0 {
		t.Fatalf("expected deposit at stem 0, got %d", stem)
	}
	account := f.account(user)
	if account.TotalGerminating().Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("expected 1e7 germinating stalk, got %s", account.TotalGerminating())
	}
	if account.Stalk.Sign() != 0 || account.Roots.Sign() != 0 {
		t.Fatalf("expected no active stalk or roots, got %s/%s", account.Stalk, account.Roots)
	}
	f.assertConservation()

	f.sunrise()
	grown, err := f.engine.BalanceOfGrownStalk(user, "SEED")
	if err != nil {
		t.Fatalf("grown stalk: %v", err)
	}
	if grown.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("expected 2000 grown stalk one season later, got %s", grown)
	}
	if stalk, _ := f.engine.BalanceOfStalk(user); stalk.Sign() != 0 {
		t.Fatalf("stalk counted before second sunrise: %s", stalk)
	}
	totals, _ := f.engine.Totals()
	if totals.Stalk.Sign() != 0 {
		t.Fatalf("total stalk counted before second sunrise: %s", totals.Stalk)
	}

	f.sunrise()
	account = f.account(user)
	if account.Stalk.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("expected 1e7 active stalk, got %s", account.Stalk)
	}
	if account.Roots.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("expected roots minted 1:1, got %s", account.Roots)
	}
	if account.TotalGerminating().Sign() != 0 {
		t.Fatalf("expected germination to end, got %s", account.TotalGerminating())
	}
	f.assertConservation()

	if balance := f.bank.balance("SEED", f.engine.Address()); balance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected silo custody of 1000, got %s", balance)
	}
}

func TestDepositValidation(t *testing.T) {
	f := newFixture(t)
	f.whitelist("SEED", BdvMethodBean, 10_000, 2)
	f.whitelist("DUST", "two-thirds", 10_000, 2)
	user := testAddr(1)
	f.fund("SEED", user, 10)
	f.fund("DUST", user, 10)

	if _, err := f.engine.Deposit(user, "SEED", big.NewInt(0)); !errors.Is(err, coreerrors.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := f.engine.Deposit(user, "NOPE", big.NewInt(1)); !errors.Is(err, coreerrors.ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
	if _, err := f.engine.Deposit(user, "DUST", big.NewInt(1)); !errors.Is(err, coreerrors.ErrZeroBdv) {
		t.Fatalf("expected ErrZeroBdv, got %v", err)
	}
	if err := f.engine.Dewhitelist("SEED"); err != nil {
		t.Fatalf("dewhitelist: %v", err)
	}
	if _, err := f.engine.Deposit(user, "seed", big.NewInt(5)); !errors.Is(err, coreerrors.ErrDepositsFrozen) {
		t.Fatalf("expected ErrDepositsFrozen, got %v", err)
	}
	f.engine.SetPauses(nativecommon.NewPauseSet(nativecommon.ModuleSilo))
	if _, err := f.engine.Deposit(user, "DUST", big.NewInt(9)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}

func TestWithdrawGerminatingAndGrownCrates(t *testing.T) {
	f := newFixture(t)
	f.whitelist("SEED", BdvMethodBean, 10_000_000_000, 1_000_000)
	user := testAddr(1)
	f.fund("SEED", user, 2000)

	stem0 := f.deposit(user, "SEED", 1000)
	f.sunrise()
	stem1 := f.deposit(user, "SEED", 1000)
	if stem1-stem0 != 1_000_000 {
		t.Fatalf("expected stems one season apart, got %d and %d", stem0, stem1)
	}
	before := f.bank.balance("SEED", user)
	if _, err := f.engine.WithdrawBatch(user, "SEED", []Stem{stem0, stem1}, []*big.Int{big.NewInt(500), big.NewInt(1000)}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	account := f.account(user)
	if account.Stalk.Cmp(big.NewInt(500_000_000)) != 0 {
		t.Fatalf("expected 5e8 active stalk, got %s", account.Stalk)
	}
	if account.TotalGerminating().Cmp(mustBigInt("5000000000000")) != 0 {
		t.Fatalf("expected 5e12 germinating stalk, got %s", account.TotalGerminating())
	}
	totals, _ := f.engine.Totals()
	if totals.Stalk.Cmp(big.NewInt(500_000_000)) != 0 {
		t.Fatalf("unexpected total stalk %s", totals.Stalk)
	}
	if totals.Germinating(int((f.state.season-1)%2)).Cmp(mustBigInt("5000000000000")) != 0 {
		t.Fatalf("expected previous season bucket to hold 5e12")
	}
	if got := new(big.Int).Sub(f.bank.balance("SEED", user), before); got.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("expected 1500 returned, got %s", got)
	}
	deposit, _ := f.engine.GetDeposit(user, "SEED", stem0)
	if deposit.Amount.Cmp(big.NewInt(500)) != 0 || deposit.Bdv.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected remaining crate %+v", deposit)
	}
	deposits, _ := f.engine.GetDeposits(user, "SEED")
	if len(deposits) != 1 || deposits[0].Stem != stem0 {
		t.Fatalf("expected a single remaining crate, got %d", len(deposits))
	}
	f.assertConservation()
}

func TestWithdrawErrors(t *testing.T) {
	f := newFixture(t)
	f.whitelist("SEED", BdvMethodBean, 10_000, 2)
	user := testAddr(1)
	f.fund("SEED", user, 100)
	stem := f.deposit(user, "SEED", 100)

	if err := f.engine.Withdraw(user, "SEED", stem, big.NewInt(101)); !errors.Is(err, coreerrors.ErrInsufficientCrateBalance) {
		t.Fatalf("expected ErrInsufficientCrateBalance, got %v", err)
	}
	if err := f.engine.Withdraw(user, "SEED", stem+7, big.NewInt(1)); !errors.Is(err, coreerrors.ErrInsufficientCrateBalance) {
		t.Fatalf("expected ErrInsufficientCrateBalance for missing crate, got %v", err)
	}
	if _, err := f.engine.WithdrawBatch(user, "SEED", []Stem{stem}, nil); !errors.Is(err, coreerrors.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := f.engine.WithdrawBatch(user, "SEED", nil, nil); !errors.Is(err, coreerrors.ErrEmptyAmounts) {
		t.Fatalf("expected ErrEmptyAmounts, got %v", err)
	}
	if _, err := f.engine.WithdrawBatch(user, "SEED", []Stem{stem}, []*big.Int{big.NewInt(0)}); !errors.Is(err, coreerrors.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestPartialWithdrawMatchesFullWithdraw(t *testing.T) {
	run := func(parts []int64) (*fixture, *Account) {
		f := newFixture(t)
		f.whitelist("LP", "two-thirds", 10_000, 3)
		user := testAddr(1)
		other := testAddr(2)
		f.fund("LP", user, 1000)
		f.fund("LP", other, 900)
		stem := f.deposit(user, "LP", 1000)
		f.deposit(other, "LP", 900)
		f.sunrise()
		f.sunrise()
		f.sunrise()
		for _, part := range parts {
			if err := f.engine.Withdraw(user, "LP", stem, big.NewInt(part)); err != nil {
				t.Fatalf("withdraw %d: %v", part, err)
			}
			f.assertConservation()
		}
		return f, f.account(user)
	}

	full, fullAccount := run([]int64{1000})
	split, splitAccount := run([]int64{333, 667})

	if fullAccount.Stalk.Cmp(splitAccount.Stalk) != 0 || fullAccount.Roots.Cmp(splitAccount.Roots) != 0 {
		t.Fatalf("account diverged: full %s/%s split %s/%s",
			fullAccount.Stalk, fullAccount.Roots, splitAccount.Stalk, splitAccount.Roots)
	}
	fullTotals, _ := full.engine.Totals()
	splitTotals, _ := split.engine.Totals()
	if fullTotals.Stalk.Cmp(splitTotals.Stalk) != 0 || fullTotals.Roots.Cmp(splitTotals.Roots) != 0 {
		t.Fatalf("totals diverged: full %s/%s split %s/%s",
			fullTotals.Stalk, fullTotals.Roots, splitTotals.Stalk, splitTotals.Roots)
	}
	fullAsset, _ := full.engine.Asset("LP")
	splitAsset, _ := split.engine.Asset("LP")
	if fullAsset.TotalDepositedBdv.Cmp(splitAsset.TotalDepositedBdv) != 0 || splitAsset.TotalDepositedBdv.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("unexpected deposited bdv: full %s split %s", fullAsset.TotalDepositedBdv, splitAsset.TotalDepositedBdv)
	}
	if fullAccount.Stalk.Sign() != 0 {
		t.Fatalf("expected no stalk left after withdrawing everything, got %s", fullAccount.Stalk)
	}
}

func TestTransferNeutrality(t *testing.T) {
	f := newFixture(t)
	f.whitelist("SEED", BdvMethodBean, 10_000, 2)
	alice := testAddr(1)
	bob := testAddr(2)
	f.fund("SEED", alice, 1000)
	f.fund("SEED", bob, 500)
	stem := f.deposit(alice, "SEED", 1000)
	f.deposit(bob, "SEED", 500)
	f.sunrise()
	f.sunrise()
	f.sunrise()
	if err := f.engine.MowMultiple(alice, []string{"SEED"}); err != nil {
		t.Fatalf("mow: %v", err)
	}
	if err := f.engine.Mow(bob, "SEED"); err != nil {
		t.Fatalf("mow: %v", err)
	}

	aliceBefore := f.account(alice)
	totalsBefore, _ := f.engine.Totals()

	bdv, err := f.engine.Transfer(alice, alice, bob, "SEED", stem, big.NewInt(400))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bdv.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected 400 bdv moved, got %s", bdv)
	}
	f.assertConservation()
	totalsMid, _ := f.engine.Totals()
	if totalsMid.Stalk.Cmp(totalsBefore.Stalk) != 0 || totalsMid.Roots.Cmp(totalsBefore.Roots) != 0 {
		t.Fatalf("transfer changed totals")
	}

	if _, err := f.engine.Transfer(bob, bob, alice, "SEED", stem, big.NewInt(400)); err != nil {
		t.Fatalf("transfer back: %v", err)
	}
	f.assertConservation()
	aliceAfter := f.account(alice)
	if aliceAfter.Stalk.Cmp(aliceBefore.Stalk) != 0 || aliceAfter.Roots.Cmp(aliceBefore.Roots) != 0 {
		t.Fatalf("alice balances not restored: %s/%s vs %s/%s",
			aliceAfter.Stalk, aliceAfter.Roots, aliceBefore.Stalk, aliceBefore.Roots)
	}
	deposit, _ := f.engine.GetDeposit(alice, "SEED", stem)
	if deposit.Amount.Cmp(big.NewInt(1000)) != 0 || deposit.Bdv.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("crate not restored: %+v", deposit)
	}
	totalsAfter, _ := f.engine.Totals()
	if totalsAfter.Stalk.Cmp(totalsBefore.Stalk) != 0 || totalsAfter.Roots.Cmp(totalsBefore.Roots) != 0 {
		t.Fatalf("round trip changed totals")
	}
}

func TestTransferGerminatingCrateMovesBucket(t *testing.T) {
	f := newFixture(t)
	f.whitelist("SEED", BdvMethodBean, 10_000, 2)
	alice := testAddr(1)
	bob := testAddr(2)
	f.fund("SEED", alice, 100)
	stem := f.deposit(alice, "SEED", 100)
	if _, err := f.engine.Transfer(alice, alice, bob, "SEED", stem, big.NewInt(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if germ := f.account(alice).TotalGerminating(); germ.Sign() != 0 {
		t.Fatalf("expected sender bucket emptied, got %s", germ)
	}
	if germ := f.account(bob).TotalGerminating(); germ.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("expected recipient to germinate 1e6, got %s", germ)
	}
	f.sunrise()
	f.sunrise()
	if stalk := f.account(bob).Stalk; stalk.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("expected recipient stalk promoted, got %s", stalk)
	}
	f.assertConservation()
}

func TestTransferAllowance(t *testing.T) {
	f := newFixture(t)
	f.whitelist("SEED", BdvMethodBean, 10_000, 2)
	owner := testAddr(1)
	spender := testAddr(2)
	recipient := testAddr(3)
	f.fund("SEED", owner, 100)
	stem := f.deposit(owner, "SEED", 100)

	if _, err := f.engine.Transfer(spender, owner, recipient, "SEED", stem, big.NewInt(10)); !errors.Is(err, coreerrors.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := f.engine.IncreaseAllowance(owner, spender, "SEED", big.NewInt(30)); err != nil {
		t.Fatalf("increase allowance: %v", err)
	}
	if err := f.engine.DecreaseAllowance(owner, spender, "SEED", big.NewInt(31)); !errors.Is(err, coreerrors.ErrAllowanceUnderflow) {
		t.Fatalf("expected ErrAllowanceUnderflow, got %v", err)
	}
	if _, err := f.engine.TransferBatch(spender, owner, recipient, "SEED", []Stem{stem, stem}, []*big.Int{big.NewInt(10), big.NewInt(15)}); err != nil {
		t.Fatalf("transfer batch: %v", err)
	}
	remaining, _ := f.engine.Allowance(owner, spender, "SEED")
	if remaining.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected 5 remaining allowance, got %s", remaining)
	}
	deposit, _ := f.engine.GetDeposit(recipient, "SEED", stem)
	if deposit.Amount.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected recipient crate of 25, got %s", deposit.Amount)
	}
	if _, err := f.engine.Transfer(owner, owner, owner, "SEED", stem, big.NewInt(1)); !errors.Is(err, coreerrors.ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	if _, err := f.engine.Transfer(owner, owner, recipient, "SEED", stem, big.NewInt(0)); !errors.Is(err, coreerrors.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := f.engine.TransferBatch(owner, owner, recipient, "SEED", nil, nil); !errors.Is(err, coreerrors.ErrEmptyAmounts) {
		t.Fatalf("expected ErrEmptyAmounts, got %v", err)
	}
	f.assertConservation()
}

func TestSeedRateChangeKeepsStemTipExact(t *testing.T) {
	asset := &Asset{StalkEarnedPerSeason: 2, MilestoneSeason: 1}
	if tip := asset.StemTipAt(5); tip != 8 {
		t.Fatalf("expected tip 8, got %d", tip)
	}
	asset.UpdateSeedRate(5, 5)
	if asset.DeltaStalkEarnedPerSeason != 3 {
		t.Fatalf("expected delta 3, got %d", asset.DeltaStalkEarnedPerSeason)
	}
	if asset.StemTipAt(5) != 8 || asset.StemTipAt(7) != 18 {
		t.Fatalf("unexpected tips after rate change: %d %d", asset.StemTipAt(5), asset.StemTipAt(7))
	}
	asset.UpdateSeedRate(0, 7)
	if asset.StalkEarnedPerSeason != 1 || asset.DeltaStalkEarnedPerSeason != -4 {
		t.Fatalf("expected clamp to 1 with delta -4, got %d %d", asset.StalkEarnedPerSeason, asset.DeltaStalkEarnedPerSeason)
	}
	prev := asset.StemTipAt(7)
	for season := uint64(8); season < 12; season++ {
		tip := asset.StemTipAt(season)
		if tip <= prev {
			t.Fatalf("stem tip not increasing at season %d", season)
		}
		prev = tip
	}
}

func TestNegativeStemEncoding(t *testing.T) {
	status := MowStatus{LastStem: -42, Bdv: big.NewInt(7)}
	encoded, err := rlp.EncodeToBytes(&status)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded MowStatus
	if err := rlp.DecodeBytes(encoded, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.LastStem != -42 || decoded.Bdv.Int64() != 7 {
		t.Fatalf("unexpected decoded status %+v", decoded)
	}
}
