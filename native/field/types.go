package field

import "math/big"

var (
	// TemperaturePrecision is one percent of temperature.
	TemperaturePrecision = big.NewInt(1_000_000)
	// MinTemperature is the floor applied to every temperature change.
	MinTemperature = big.NewInt(1_000_000)

	hundredPercent = new(big.Int).Mul(big.NewInt(100), TemperaturePrecision)
	podRateScale   = big.NewInt(1_000_000_000_000_000_000)
)

// Status is the Field's global state.
type Status struct {
	// Temperature is the steady state interest paid in pods, 1e6 = 1%.
	Temperature *big.Int
	// Soil is the number of Beans the Field will accept this season.
	Soil *big.Int
	// Pods is the total ever issued; it is also the index of the next plot.
	Pods *big.Int
	// Harvestable is the pod index below which plots may be harvested.
	Harvestable *big.Int
	Harvested   *big.Int
	// BeanSown and LastBeanSown track demand this and last season.
	BeanSown     *big.Int
	LastBeanSown *big.Int
	// ThisSowTime and LastSowTime hold the seconds into the season at which
	// Soil ran out, or NoSellOut.
	ThisSowTime uint64
	LastSowTime uint64
}

// NoSellOut marks a season in which soil never ran out.
const NoSellOut = ^uint64(0)

func (s *Status) ensure() {
	for _, p := range []**big.Int{&s.Temperature, &s.Soil, &s.Pods, &s.Harvestable, &s.Harvested, &s.BeanSown, &s.LastBeanSown} {
		if *p == nil {
			*p = big.NewInt(0)
		}
	}
}

// Clone returns a deep copy.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}
	out := *s
	out.ensure()
	out.Temperature = new(big.Int).Set(out.Temperature)
	out.Soil = new(big.Int).Set(out.Soil)
	out.Pods = new(big.Int).Set(out.Pods)
	out.Harvestable = new(big.Int).Set(out.Harvestable)
	out.Harvested = new(big.Int).Set(out.Harvested)
	out.BeanSown = new(big.Int).Set(out.BeanSown)
	out.LastBeanSown = new(big.Int).Set(out.LastBeanSown)
	return &out
}

// Unharvestable returns the pods still waiting in line.
func (s *Status) Unharvestable() *big.Int {
	out := new(big.Int).Sub(s.Pods, s.Harvestable)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

// Plot is a run of pods owned by one account starting at Index.
type Plot struct {
	Index *big.Int
	Pods  *big.Int
}

// Demand summarises one season of sowing for the weather evaluation.
type Demand struct {
	BeanSown     *big.Int
	LastBeanSown *big.Int
	ThisSowTime  uint64
	LastSowTime  uint64
}
