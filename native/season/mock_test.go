package season

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
	"beanchain/native/bank"
	"beanchain/native/field"
	"beanchain/native/gauge"
	"beanchain/native/silo"
	"beanchain/native/well"
)

type mockState struct {
	status  *Status
	weather *Weather
}

func (m *mockState) SeasonGetStatus() (*Status, error) { return m.status.Clone(), nil }

func (m *mockState) SeasonPutStatus(status *Status) error {
	m.status = status.Clone()
	return nil
}

func (m *mockState) SeasonGetWeather() (*Weather, error) {
	if m.weather == nil {
		return nil, nil
	}
	clone := *m.weather
	return &clone, nil
}

func (m *mockState) SeasonPutWeather(weather *Weather) error {
	clone := *weather
	m.weather = &clone
	return nil
}

type bankState struct {
	balances map[string]*big.Int
	supply   map[string]*big.Int
}

func (b *bankState) BankBalance(token string, addr crypto.Address) (*big.Int, error) {
	if v, ok := b.balances[token+"/"+addr.String()]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (b *bankState) BankSetBalance(token string, addr crypto.Address, amount *big.Int) error {
	b.balances[token+"/"+addr.String()] = new(big.Int).Set(amount)
	return nil
}

func (b *bankState) BankSupply(token string) (*big.Int, error) {
	if v, ok := b.supply[token]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (b *bankState) BankSetSupply(token string, amount *big.Int) error {
	b.supply[token] = new(big.Int).Set(amount)
	return nil
}

type quote struct {
	deltaB    *big.Int
	price     *big.Int
	liquidity *big.Int
	err       error
}

type fakeOracle struct {
	quotes map[string]quote
}

func (o *fakeOracle) GetDeltaB(token string) (*big.Int, error) {
	q := o.quotes[token]
	if q.err != nil {
		return nil, q.err
	}
	return new(big.Int).Set(q.deltaB), nil
}

func (o *fakeOracle) GetPrice(token string) (*big.Int, error) {
	q := o.quotes[token]
	if q.err != nil {
		return nil, q.err
	}
	return new(big.Int).Set(q.price), nil
}

func (o *fakeOracle) GetLiquidity(token string) (*big.Int, error) {
	q := o.quotes[token]
	if q.err != nil {
		return nil, q.err
	}
	return new(big.Int).Set(q.liquidity), nil
}

type fakeSilo struct {
	assets   []*silo.Asset
	totals   *silo.Totals
	received []*big.Int
	plenty   *big.Int
	seasons  []uint64
	decline  bool
}

func newFakeSilo(tokens ...string) *fakeSilo {
	s := &fakeSilo{
		totals: &silo.Totals{Stalk: big.NewInt(1_000), Roots: big.NewInt(1_000), EarnedBeans: big.NewInt(0)},
		plenty: big.NewInt(0),
	}
	s.assets = append(s.assets, &silo.Asset{Token: types.BeanToken})
	for _, token := range tokens {
		s.assets = append(s.assets, &silo.Asset{Token: token, IsLP: true})
	}
	return s
}

func (s *fakeSilo) ReceiveShipment(_ string, amount *big.Int) (*big.Int, error) {
	if s.decline {
		return big.NewInt(0), nil
	}
	s.received = append(s.received, new(big.Int).Set(amount))
	s.totals.EarnedBeans.Add(s.totals.EarnedBeans, amount)
	return new(big.Int).Set(amount), nil
}

func (s *fakeSilo) Sunrise(season uint64) error {
	s.seasons = append(s.seasons, season)
	return nil
}

func (s *fakeSilo) Assets() ([]*silo.Asset, error) { return s.assets, nil }

func (s *fakeSilo) Totals() (*silo.Totals, error) { return s.totals, nil }

func (s *fakeSilo) DistributePlenty(amount *big.Int) error {
	s.plenty.Add(s.plenty, amount)
	return nil
}

func (s *fakeSilo) PlentyToken() string { return "WETH" }

func (s *fakeSilo) Address() crypto.Address { return crypto.ModuleAddress("silo") }

type fakeField struct {
	temperature *big.Int
	pods        *big.Int
	podRate     *big.Int
	demand      *field.Demand
	soil        *big.Int
	ended       int
}

func newFakeField() *fakeField {
	return &fakeField{
		temperature: big.NewInt(100_000_000),
		pods:        big.NewInt(0),
		podRate:     big.NewInt(0),
		soil:        big.NewInt(0),
	}
}

func (f *fakeField) ReceiveShipment(_ string, amount *big.Int) (*big.Int, error) {
	accepted := new(big.Int).Set(amount)
	if accepted.Cmp(f.pods) > 0 {
		accepted.Set(f.pods)
	}
	f.pods.Sub(f.pods, accepted)
	return accepted, nil
}

func (f *fakeField) EndSeason() (*field.Demand, error) {
	f.ended++
	if f.demand != nil {
		return f.demand, nil
	}
	return &field.Demand{BeanSown: big.NewInt(0), LastBeanSown: big.NewInt(0), ThisSowTime: field.NoSellOut, LastSowTime: field.NoSellOut}, nil
}

func (f *fakeField) PodRate() (*big.Int, error) { return new(big.Int).Set(f.podRate), nil }

func (f *fakeField) AdjustTemperature(delta *big.Int) (*big.Int, error) {
	f.temperature.Add(f.temperature, delta)
	if f.temperature.Cmp(field.MinTemperature) < 0 {
		f.temperature.Set(field.MinTemperature)
	}
	return new(big.Int).Set(f.temperature), nil
}

func (f *fakeField) SetSoil(soil *big.Int) error {
	f.soil = new(big.Int).Set(soil)
	return nil
}

type fakeGauge struct {
	ratioDeltas []*big.Int
	steps       int
}

func (g *fakeGauge) ApplyRatioDelta(delta *big.Int) (*big.Int, error) {
	g.ratioDeltas = append(g.ratioDeltas, new(big.Int).Set(delta))
	return new(big.Int).Set(delta), nil
}

func (g *fakeGauge) Step() (*gauge.Result, error) {
	g.steps++
	return &gauge.Result{}, nil
}

// fakeWell sells Beans for a thousandth of a WETH unit each.
type fakeWell struct {
	bank *bank.Engine
}

func (w *fakeWell) Pool(token string) (*well.Pool, error) {
	return &well.Pool{Token: token, PairToken: "WETH"}, nil
}

func (w *fakeWell) Swap(trader crypto.Address, _ string, tokenIn string, amountIn, _ *big.Int) (*big.Int, error) {
	if err := w.bank.Burn(tokenIn, trader, amountIn); err != nil {
		return nil, err
	}
	out := new(big.Int).Quo(amountIn, big.NewInt(1_000))
	if err := w.bank.Mint("WETH", trader, out); err != nil {
		return nil, err
	}
	return out, nil
}

const noSellOut = field.NoSellOut

type demandCase struct {
	sown, last int64
	this, prev uint64
}

func (d *demandCase) demand() *field.Demand {
	return &field.Demand{BeanSown: big.NewInt(d.sown), LastBeanSown: big.NewInt(d.last), ThisSowTime: d.this, LastSowTime: d.prev}
}
