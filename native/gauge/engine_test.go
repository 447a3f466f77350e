package gauge

import (
	"math/big"
	"testing"

	"beanchain/core/events"
	"beanchain/native/silo"
)

type mockState struct {
	season uint64
	params *Params
}

func (m *mockState) SeasonCurrent() (uint64, error) { return m.season, nil }

func (m *mockState) GaugeGetParams() (*Params, error) {
	if m.params == nil {
		return nil, nil
	}
	return m.params.Clone(), nil
}

func (m *mockState) GaugePutParams(p *Params) error {
	m.params = p.Clone()
	return nil
}

type fakeSilo struct {
	assets map[string]*silo.Asset
	order  []string
	totals *silo.Totals
}

func (f *fakeSilo) add(token string, lp bool, bdv int64, points *big.Int, rate uint64) {
	f.assets[token] = &silo.Asset{
		Token:                      token,
		IsLP:                       lp,
		StalkEarnedPerSeason:       rate,
		GaugePoints:                points,
		OptimalPercentDepositedBdv: big.NewInt(50_000_000),
		TotalDeposited:             big.NewInt(bdv),
		TotalDepositedBdv:          big.NewInt(bdv),
	}
	f.order = append(f.order, token)
}

func (f *fakeSilo) Assets() ([]*silo.Asset, error) {
	out := make([]*silo.Asset, 0, len(f.order))
	for _, token := range f.order {
		out = append(out, f.assets[token].Clone())
	}
	return out, nil
}

func (f *fakeSilo) Totals() (*silo.Totals, error) { return f.totals.Clone(), nil }

func (f *fakeSilo) ApplySeedRate(token string, rate uint64, points *big.Int) error {
	asset := f.assets[token]
	asset.StalkEarnedPerSeason = rate
	if points != nil {
		asset.GaugePoints = new(big.Int).Set(points)
	}
	return nil
}

func points(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), PointPrecision) }

func newFixture(t *testing.T, rate uint64, maxBps uint64) (*Engine, *fakeSilo, *mockState, *events.Buffer) {
	t.Helper()
	s := &fakeSilo{assets: map[string]*silo.Asset{}, totals: &silo.Totals{}}
	s.add("BEAN", false, 1000, nil, rate)
	s.add("BEANWETH", true, 1000, points(100), rate)
	s.add("BEANWSTETH", true, 3000, points(100), rate)
	state := &mockState{season: 10, params: &Params{
		BeanToMaxLpGpPerBdvRatio:         new(big.Int).Mul(big.NewInt(100), RatioPrecision),
		MinRatio:                         new(big.Int).Mul(big.NewInt(50), RatioPrecision),
		MaxRatio:                         new(big.Int).Mul(big.NewInt(100), RatioPrecision),
		AverageGrownStalkPerBdvPerSeason: big.NewInt(301),
		MaxRateChangeBps:                 maxBps,
	}}
	buf := &events.Buffer{}
	e := NewEngine()
	e.SetState(state)
	e.SetSilo(s)
	e.SetEmitter(buf)
	return e, s, state, buf
}

func TestStepRedistributesByGaugePoints(t *testing.T) {
	e, s, _, buf := newFixture(t, 400, 0)
	res, err := e.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	// BEANWETH holds 25% of LP BDV against a 50% target and gains a point;
	// BEANWSTETH holds 75% and loses one.
	if got := res.Points["BEANWETH"]; got.Cmp(points(101)) != 0 {
		t.Fatalf("BEANWETH points = %s", got)
	}
	if got := res.Points["BEANWSTETH"]; got.Cmp(points(99)) != 0 {
		t.Fatalf("BEANWSTETH points = %s", got)
	}
	want := map[string]uint64{"BEAN": 505, "BEANWETH": 505, "BEANWSTETH": 165}
	for token, rate := range want {
		if s.assets[token].StalkEarnedPerSeason != rate {
			t.Fatalf("%s rate = %d, want %d", token, s.assets[token].StalkEarnedPerSeason, rate)
		}
	}
	// The target grown stalk is fully allocated: 301 per BDV over 5000 BDV.
	var grown uint64
	for token, asset := range s.assets {
		grown += res.Rates[token] * uint64(asset.TotalDepositedBdv.Int64())
	}
	if grown != 301*5000 {
		t.Fatalf("allocated grown stalk %d", grown)
	}
	if n := len(buf.Drain()); n != 2 {
		t.Fatalf("expected 2 gauge point events, got %d", n)
	}
}

func TestStepLimitsRateChange(t *testing.T) {
	e, s, _, _ := newFixture(t, 400, 1000)
	if _, err := e.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := s.assets["BEANWETH"].StalkEarnedPerSeason; got != 440 {
		t.Fatalf("BEANWETH rate = %d, want 440", got)
	}
	if got := s.assets["BEANWSTETH"].StalkEarnedPerSeason; got != 360 {
		t.Fatalf("BEANWSTETH rate = %d, want 360", got)
	}
}

func TestStepWithoutDepositsKeepsRates(t *testing.T) {
	state := &mockState{season: 3}
	s := &fakeSilo{assets: map[string]*silo.Asset{}, totals: &silo.Totals{}}
	s.add("BEAN", false, 0, nil, 7)
	s.add("BEANWETH", true, 0, points(10), 9)
	e := NewEngine()
	e.SetState(state)
	e.SetSilo(s)
	if _, err := e.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.assets["BEAN"].StalkEarnedPerSeason != 7 || s.assets["BEANWETH"].StalkEarnedPerSeason != 9 {
		t.Fatalf("rates changed without deposits")
	}
}

func TestApplyRatioDeltaClamps(t *testing.T) {
	e, _, _, _ := newFixture(t, 1, 0)
	got, err := e.ApplyRatioDelta(new(big.Int).Mul(big.NewInt(5), RatioPrecision))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Cmp(maxRatio) != 0 {
		t.Fatalf("ratio not clamped to 100%%: %s", got)
	}
	got, err = e.ApplyRatioDelta(new(big.Int).Mul(big.NewInt(-250), RatioPrecision))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Sign() != 0 {
		t.Fatalf("ratio not clamped to zero: %s", got)
	}
}

func TestGaugePointSteps(t *testing.T) {
	optimal := big.NewInt(40_000_000)
	cases := []struct {
		name    string
		points  int64
		current int64
		want    int64
	}{
		{"far below", 10, 10_000_000, 15},
		{"below", 10, 30_000_000, 11},
		{"at optimal", 10, 40_000_000, 10},
		{"above", 10, 50_000_000, 9},
		{"far above", 10, 70_000_000, 5},
		{"floor", 3, 90_000_000, 0},
		{"cap", 999, 0, 1000},
	}
	for _, tc := range cases {
		got := nextGaugePoints(points(tc.points), big.NewInt(tc.current), optimal)
		if got.Cmp(points(tc.want)) != 0 {
			t.Fatalf("%s: got %s want %d points", tc.name, got, tc.want)
		}
	}
}

func TestAverageUpdate(t *testing.T) {
	e, s, state, _ := newFixture(t, 400, 0)
	state.params.AvgUpdateInterval = 5
	state.params.TargetSeasonsToCatchUp = 10
	state.params.MinAvgGrownStalkPerBdv = big.NewInt(1)
	// 5000 BDV holding 5e7 stalk: ratio 1e4, catching up over 10 seasons.
	s.totals = &silo.Totals{Stalk: big.NewInt(40_000_000), GerminatingEven: big.NewInt(10_000_000)}
	res, err := e.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.AverageGrownStalkPerBdvPerSeason.Int64() != 1000 {
		t.Fatalf("average = %s", res.AverageGrownStalkPerBdvPerSeason)
	}
	if state.params.LastAvgUpdate != 10 {
		t.Fatalf("last update season %d", state.params.LastAvgUpdate)
	}
}
