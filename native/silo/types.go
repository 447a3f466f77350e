package silo

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Stem is the per-asset accrual counter. A crate deposited at stem s has
// earned bdv * (tip - s) grown stalk.
type Stem int64

// EncodeRLP stores the stem as its two's complement bit pattern.
func (s Stem) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, uint64(s))
}

func (s *Stem) DecodeRLP(stream *rlp.Stream) error {
	v, err := stream.Uint64()
	if err != nil {
		return err
	}
	*s = Stem(int64(v))
	return nil
}

func (s Stem) big() *big.Int { return big.NewInt(int64(s)) }

// RateDelta is the signed change applied to a seed rate.
type RateDelta int64

func (d RateDelta) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, uint64(d))
}

func (d *RateDelta) DecodeRLP(stream *rlp.Stream) error {
	v, err := stream.Uint64()
	if err != nil {
		return err
	}
	*d = RateDelta(int64(v))
	return nil
}

// Asset captures the silo settings and totals of a whitelisted token.
type Asset struct {
	// Token is the canonical upper case symbol.
	Token string
	// Decimals of the raw token amounts.
	Decimals uint8
	// BdvMethod names the registered BDV function used to value deposits.
	BdvMethod string
	// IsLP marks well LP tokens that participate in the gauge.
	IsLP bool
	// StalkIssuedPerBdv is the base stalk credited per unit of BDV.
	StalkIssuedPerBdv *big.Int
	// StalkEarnedPerSeason is the seed rate: stem increase per season.
	StalkEarnedPerSeason uint64
	// MilestoneSeason and MilestoneStem anchor the stem tip at the last
	// rate change.
	MilestoneSeason uint64
	MilestoneStem   Stem
	// DeltaStalkEarnedPerSeason records the last applied rate change.
	DeltaStalkEarnedPerSeason RateDelta
	// GaugePoints weight the asset when seed rates are redistributed.
	GaugePoints *big.Int
	// OptimalPercentDepositedBdv is the target share of LP BDV, 1e6 = 1%.
	OptimalPercentDepositedBdv *big.Int
	// GerminatingStem is the stem tip of the previous season. Crates at or
	// above it still germinate.
	GerminatingStem Stem
	// TotalDeposited and TotalDepositedBdv aggregate every crate of the asset.
	TotalDeposited    *big.Int
	TotalDepositedBdv *big.Int
	// Dewhitelisted assets reject new deposits.
	Dewhitelisted bool
}

// StemTipAt returns the stem tip of the asset at the given season.
func (a *Asset) StemTipAt(season uint64) Stem {
	if a == nil {
		return 0
	}
	if season <= a.MilestoneSeason {
		return a.MilestoneStem
	}
	elapsed := season - a.MilestoneSeason
	return a.MilestoneStem + Stem(elapsed*a.StalkEarnedPerSeason)
}

// UpdateSeedRate applies a new seed rate starting at season. The milestone
// advances to the current tip so earlier accrual is preserved exactly.
func (a *Asset) UpdateSeedRate(rate uint64, season uint64) {
	if rate == 0 {
		rate = 1
	}
	tip := a.StemTipAt(season)
	a.DeltaStalkEarnedPerSeason = RateDelta(int64(rate) - int64(a.StalkEarnedPerSeason))
	a.StalkEarnedPerSeason = rate
	a.MilestoneSeason = season
	a.MilestoneStem = tip
}

func (a *Asset) ensure() {
	if a.StalkIssuedPerBdv == nil {
		a.StalkIssuedPerBdv = big.NewInt(0)
	}
	if a.GaugePoints == nil {
		a.GaugePoints = big.NewInt(0)
	}
	if a.OptimalPercentDepositedBdv == nil {
		a.OptimalPercentDepositedBdv = big.NewInt(0)
	}
	if a.TotalDeposited == nil {
		a.TotalDeposited = big.NewInt(0)
	}
	if a.TotalDepositedBdv == nil {
		a.TotalDepositedBdv = big.NewInt(0)
	}
}

// Clone returns a deep copy of the asset.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	out := *a
	out.StalkIssuedPerBdv = cloneInt(a.StalkIssuedPerBdv)
	out.GaugePoints = cloneInt(a.GaugePoints)
	out.OptimalPercentDepositedBdv = cloneInt(a.OptimalPercentDepositedBdv)
	out.TotalDeposited = cloneInt(a.TotalDeposited)
	out.TotalDepositedBdv = cloneInt(a.TotalDepositedBdv)
	return &out
}

// Crate is a deposit of one asset at one stem.
type Crate struct {
	Amount *big.Int
	Bdv    *big.Int
}

// Deposit is the read-side view of a crate.
type Deposit struct {
	Token  string
	Stem   Stem
	Amount *big.Int
	Bdv    *big.Int
}

// Account holds the stalk, roots and flood balances of a depositor.
type Account struct {
	// Stalk is the active stalk balance.
	Stalk *big.Int
	// Roots is the account's share of total active stalk.
	Roots *big.Int
	// GerminatingEven and GerminatingOdd hold stalk created in even and odd
	// seasons that has not been promoted yet.
	GerminatingEven *big.Int
	GerminatingOdd  *big.Int
	// Plenty is the settled but unclaimed flood balance.
	Plenty *big.Int
	// PlentyPerRoot is the global plenty index seen at the last settlement.
	PlentyPerRoot *big.Int
}

func (a *Account) ensure() {
	if a.Stalk == nil {
		a.Stalk = big.NewInt(0)
	}
	if a.Roots == nil {
		a.Roots = big.NewInt(0)
	}
	if a.GerminatingEven == nil {
		a.GerminatingEven = big.NewInt(0)
	}
	if a.GerminatingOdd == nil {
		a.GerminatingOdd = big.NewInt(0)
	}
	if a.Plenty == nil {
		a.Plenty = big.NewInt(0)
	}
	if a.PlentyPerRoot == nil {
		a.PlentyPerRoot = big.NewInt(0)
	}
}

// Germinating returns the bucket balance for the given season parity.
func (a *Account) Germinating(bucket int) *big.Int {
	if bucket%2 == 0 {
		return a.GerminatingEven
	}
	return a.GerminatingOdd
}

// TotalGerminating sums both parity buckets.
func (a *Account) TotalGerminating() *big.Int {
	return new(big.Int).Add(a.GerminatingEven, a.GerminatingOdd)
}

// MowStatus tracks the last stem an (account, token) position was mowed at
// and the BDV that grows from it.
type MowStatus struct {
	LastStem Stem
	Bdv      *big.Int
}

// Totals aggregates silo wide balances.
type Totals struct {
	Stalk           *big.Int
	Roots           *big.Int
	GerminatingEven *big.Int
	GerminatingOdd  *big.Int
	// EarnedBeans is the pool of shipped beans not yet planted.
	EarnedBeans *big.Int
	// PlentyPerRoot is the cumulative flood distribution index scaled by 1e18.
	PlentyPerRoot *big.Int
}

func (t *Totals) ensure() {
	if t.Stalk == nil {
		t.Stalk = big.NewInt(0)
	}
	if t.Roots == nil {
		t.Roots = big.NewInt(0)
	}
	if t.GerminatingEven == nil {
		t.GerminatingEven = big.NewInt(0)
	}
	if t.GerminatingOdd == nil {
		t.GerminatingOdd = big.NewInt(0)
	}
	if t.EarnedBeans == nil {
		t.EarnedBeans = big.NewInt(0)
	}
	if t.PlentyPerRoot == nil {
		t.PlentyPerRoot = big.NewInt(0)
	}
}

func (t *Totals) Germinating(bucket int) *big.Int {
	if bucket%2 == 0 {
		return t.GerminatingEven
	}
	return t.GerminatingOdd
}

// TotalGerminating sums both parity buckets.
func (t *Totals) TotalGerminating() *big.Int {
	return new(big.Int).Add(t.GerminatingEven, t.GerminatingOdd)
}

// Clone returns a deep copy of the totals.
func (t *Totals) Clone() *Totals {
	if t == nil {
		return nil
	}
	return &Totals{
		Stalk:           cloneInt(t.Stalk),
		Roots:           cloneInt(t.Roots),
		GerminatingEven: cloneInt(t.GerminatingEven),
		GerminatingOdd:  cloneInt(t.GerminatingOdd),
		EarnedBeans:     cloneInt(t.EarnedBeans),
		PlentyPerRoot:   cloneInt(t.PlentyPerRoot),
	}
}

// WhitelistParams configures a new silo asset.
type WhitelistParams struct {
	Token                      string
	Decimals                   uint8
	BdvMethod                  string
	IsLP                       bool
	StalkIssuedPerBdv          *big.Int
	StalkEarnedPerSeason       uint64
	GaugePoints                *big.Int
	OptimalPercentDepositedBdv *big.Int
}
