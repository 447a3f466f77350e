package gauge

import "math/big"

var (
	// PointPrecision is one gauge point.
	PointPrecision = mustBigInt("1000000000000000000")
	// RatioPrecision is 1% of the bean to max LP gauge point ratio.
	RatioPrecision = mustBigInt("1000000000000000000")
	// PercentPrecision is 1% of deposited LP BDV.
	PercentPrecision = big.NewInt(1_000_000)

	maxRatio         = new(big.Int).Mul(big.NewInt(100), RatioPrecision)
	hundredPercent   = new(big.Int).Mul(big.NewInt(100), PercentPrecision)
	bdvPrecision     = big.NewInt(1_000_000)
	maxGaugePoints   = new(big.Int).Mul(big.NewInt(1000), PointPrecision)
	smallPointStep   = new(big.Int).Set(PointPrecision)
	largePointStep   = new(big.Int).Mul(big.NewInt(5), PointPrecision)
	basisPointsTotal = big.NewInt(10_000)
)

func mustBigInt(v string) *big.Int {
	out, ok := new(big.Int).SetString(v, 10)
	if !ok {
		panic("gauge: invalid constant " + v)
	}
	return out
}

// Params is the persisted gauge configuration and controller state.
type Params struct {
	// BeanToMaxLpGpPerBdvRatio is in [0, 100%] at RatioPrecision.
	BeanToMaxLpGpPerBdvRatio *big.Int
	// MinRatio and MaxRatio bound the scaled ratio applied to Bean.
	MinRatio *big.Int
	MaxRatio *big.Int
	// AverageGrownStalkPerBdvPerSeason is the target stem growth per season
	// averaged over all deposited BDV.
	AverageGrownStalkPerBdvPerSeason *big.Int
	MinAvgGrownStalkPerBdv           *big.Int
	TargetSeasonsToCatchUp           uint64
	// AvgUpdateInterval is the number of seasons between average updates.
	AvgUpdateInterval uint64
	LastAvgUpdate     uint64
	// MaxRateChangeBps limits each season's seed rate move. Zero disables it.
	MaxRateChangeBps uint64
}

// DefaultParams returns the parameters used when none are stored.
func DefaultParams() *Params {
	return &Params{
		BeanToMaxLpGpPerBdvRatio:         new(big.Int).Mul(big.NewInt(50), RatioPrecision),
		MinRatio:                         new(big.Int).Mul(big.NewInt(50), RatioPrecision),
		MaxRatio:                         new(big.Int).Set(maxRatio),
		AverageGrownStalkPerBdvPerSeason: big.NewInt(3_000_000),
		MinAvgGrownStalkPerBdv:           big.NewInt(1),
		TargetSeasonsToCatchUp:           4320,
		AvgUpdateInterval:                168,
		MaxRateChangeBps:                 1000,
	}
}

func (p *Params) ensure() {
	d := DefaultParams()
	if p.BeanToMaxLpGpPerBdvRatio == nil {
		p.BeanToMaxLpGpPerBdvRatio = d.BeanToMaxLpGpPerBdvRatio
	}
	if p.MinRatio == nil {
		p.MinRatio = d.MinRatio
	}
	if p.MaxRatio == nil {
		p.MaxRatio = d.MaxRatio
	}
	if p.AverageGrownStalkPerBdvPerSeason == nil {
		p.AverageGrownStalkPerBdvPerSeason = d.AverageGrownStalkPerBdvPerSeason
	}
	if p.MinAvgGrownStalkPerBdv == nil {
		p.MinAvgGrownStalkPerBdv = big.NewInt(0)
	}
}

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	out := *p
	out.BeanToMaxLpGpPerBdvRatio = cloneInt(p.BeanToMaxLpGpPerBdvRatio)
	out.MinRatio = cloneInt(p.MinRatio)
	out.MaxRatio = cloneInt(p.MaxRatio)
	out.AverageGrownStalkPerBdvPerSeason = cloneInt(p.AverageGrownStalkPerBdvPerSeason)
	out.MinAvgGrownStalkPerBdv = cloneInt(p.MinAvgGrownStalkPerBdv)
	return &out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
