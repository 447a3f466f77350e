package season

import (
	"fmt"
	"math/big"
)

var (
	// PricePrecision matches the oracle: 1e6 = $1.
	PricePrecision = big.NewInt(1_000_000)
	// RatioScale is the scale of pod rate and L2SR.
	RatioScale = big.NewInt(1_000_000_000_000_000_000)
)

// Params configures the sunrise. Zero values fall back to DefaultParams.
type Params struct {
	Period uint64
	// MaxMint caps the Beans minted in one season. Nil disables the cap.
	MaxMint          *big.Int
	BaseIncentive    *big.Int
	MaxIncentiveLate uint64
	// ExcessivePrice is the well price above which a season counts as
	// excessively above peg.
	ExcessivePrice *big.Int

	PodRateLow     *big.Int
	PodRateOptimal *big.Int
	PodRateHigh    *big.Int

	DemandLow      *big.Int
	DemandHigh     *big.Int
	SellOutSeconds uint64

	L2SRLow     *big.Int
	L2SROptimal *big.Int
	L2SRHigh    *big.Int

	// RainDuration is the number of raining seasons before a flood.
	RainDuration uint64
	FloodWell    string

	Routes []Route
	Cases  [CaseCount]Case
}

// DefaultParams returns the stock sunrise configuration.
func DefaultParams() *Params {
	return &Params{
		Period:           DefaultPeriod,
		BaseIncentive:    big.NewInt(5_000_000),
		MaxIncentiveLate: 300,
		ExcessivePrice:   big.NewInt(1_050_000),
		PodRateLow:       scaled(5),
		PodRateOptimal:   scaled(15),
		PodRateHigh:      scaled(25),
		DemandLow:        scaled(95),
		DemandHigh:       scaled(105),
		SellOutSeconds:   60,
		L2SRLow:          scaled(12),
		L2SROptimal:      scaled(40),
		L2SRHigh:         scaled(80),
		RainDuration:     1,
		Routes: []Route{
			{Name: RouteSilo, Bps: 5000},
			{Name: RouteField, Bps: 5000},
		},
		Cases: DefaultCases(),
	}
}

// scaled returns pct percent at RatioScale.
func scaled(pct int64) *big.Int {
	out := new(big.Int).Mul(big.NewInt(pct), RatioScale)
	return out.Quo(out, big.NewInt(100))
}

func (p *Params) ensure() {
	def := DefaultParams()
	if p.Period == 0 {
		p.Period = def.Period
	}
	if p.BaseIncentive == nil {
		p.BaseIncentive = def.BaseIncentive
	}
	if p.MaxIncentiveLate == 0 {
		p.MaxIncentiveLate = def.MaxIncentiveLate
	}
	if p.ExcessivePrice == nil {
		p.ExcessivePrice = def.ExcessivePrice
	}
	if p.PodRateLow == nil || p.PodRateOptimal == nil || p.PodRateHigh == nil {
		p.PodRateLow, p.PodRateOptimal, p.PodRateHigh = def.PodRateLow, def.PodRateOptimal, def.PodRateHigh
	}
	if p.DemandLow == nil || p.DemandHigh == nil {
		p.DemandLow, p.DemandHigh = def.DemandLow, def.DemandHigh
	}
	if p.SellOutSeconds == 0 {
		p.SellOutSeconds = def.SellOutSeconds
	}
	if p.L2SRLow == nil || p.L2SROptimal == nil || p.L2SRHigh == nil {
		p.L2SRLow, p.L2SROptimal, p.L2SRHigh = def.L2SRLow, def.L2SROptimal, def.L2SRHigh
	}
	if p.RainDuration == 0 {
		p.RainDuration = def.RainDuration
	}
	if len(p.Routes) == 0 {
		p.Routes = def.Routes
	}
	for i := range p.Cases {
		if p.Cases[i].RatioDelta == nil || p.Cases[i].SoilCoefficient == nil {
			p.Cases = def.Cases
			break
		}
	}
}

// Validate checks route weights and threshold ordering.
func (p *Params) Validate() error {
	var total uint64
	seen := make(map[string]bool, len(p.Routes))
	for _, route := range p.Routes {
		switch route.Name {
		case RouteSilo, RouteField, RoutePayback:
		default:
			return fmt.Errorf("season: unknown shipment route %q", route.Name)
		}
		if seen[route.Name] {
			return fmt.Errorf("season: duplicate shipment route %q", route.Name)
		}
		seen[route.Name] = true
		total += route.Bps
	}
	if total != 10_000 {
		return fmt.Errorf("season: shipment routes sum to %d bps, want 10000", total)
	}
	if p.PodRateLow.Cmp(p.PodRateOptimal) > 0 || p.PodRateOptimal.Cmp(p.PodRateHigh) > 0 {
		return fmt.Errorf("season: pod rate thresholds out of order")
	}
	if p.L2SRLow.Cmp(p.L2SROptimal) > 0 || p.L2SROptimal.Cmp(p.L2SRHigh) > 0 {
		return fmt.Errorf("season: l2sr thresholds out of order")
	}
	if p.DemandLow.Cmp(p.DemandHigh) > 0 {
		return fmt.Errorf("season: demand thresholds out of order")
	}
	return nil
}
