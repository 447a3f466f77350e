package field

import (
	"errors"
	"math/big"
	"sort"
	"testing"

	coreerrors "beanchain/core/errors"
	"beanchain/crypto"
	"beanchain/native/bank"
)

type plotKey struct {
	addr  crypto.Address
	index string
}

type mockState struct {
	status *Status
	plots  map[plotKey]*big.Int
}

func newMockState() *mockState {
	return &mockState{plots: make(map[plotKey]*big.Int)}
}

func (m *mockState) FieldGetStatus() (*Status, error) { return m.status.Clone(), nil }

func (m *mockState) FieldPutStatus(s *Status) error {
	m.status = s.Clone()
	return nil
}

func (m *mockState) FieldGetPlot(addr crypto.Address, index *big.Int) (*big.Int, bool, error) {
	pods, ok := m.plots[plotKey{addr, index.String()}]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(pods), true, nil
}

func (m *mockState) FieldPutPlot(addr crypto.Address, index, pods *big.Int) error {
	m.plots[plotKey{addr, index.String()}] = new(big.Int).Set(pods)
	return nil
}

func (m *mockState) FieldDeletePlot(addr crypto.Address, index *big.Int) error {
	delete(m.plots, plotKey{addr, index.String()})
	return nil
}

func (m *mockState) FieldPlotIndexes(addr crypto.Address) ([]*big.Int, error) {
	var out []*big.Int
	for key := range m.plots {
		if key.addr == addr {
			v, _ := new(big.Int).SetString(key.index, 10)
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out, nil
}

type bankState struct {
	balances map[string]*big.Int
	supply   map[string]*big.Int
}

func (b *bankState) BankBalance(token string, addr crypto.Address) (*big.Int, error) {
	if v, ok := b.balances[token+addr.String()]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (b *bankState) BankSetBalance(token string, addr crypto.Address, amount *big.Int) error {
	b.balances[token+addr.String()] = new(big.Int).Set(amount)
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

var farmer = crypto.BytesToAddress([]byte{0xfa})

func newField(t *testing.T, elapsed uint64) (*Engine, *bank.Engine, *mockState) {
	t.Helper()
	b := bank.NewEngine()
	b.SetState(&bankState{balances: map[string]*big.Int{}, supply: map[string]*big.Int{}})
	if err := b.Mint("BEAN", farmer, big.NewInt(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	state := newMockState()
	e := NewEngine()
	e.SetState(state)
	e.SetBank(b)
	e.SetMorning(func() uint64 { return elapsed }, 20_000)
	if _, err := e.SetTemperature(big.NewInt(50_000_000)); err != nil {
		t.Fatalf("temperature: %v", err)
	}
	if err := e.SetSoil(big.NewInt(1_000)); err != nil {
		t.Fatalf("soil: %v", err)
	}
	return e, b, state
}

func TestSowAtSteadyTemperature(t *testing.T) {
	e, b, _ := newField(t, MorningDuration)
	pods, err := e.Sow(farmer, big.NewInt(400), big.NewInt(50_000_000))
	if err != nil {
		t.Fatalf("sow: %v", err)
	}
	if pods.Int64() != 600 {
		t.Fatalf("pods = %s, want 600 at 50%%", pods)
	}
	status, _ := e.Status()
	if status.Soil.Int64() != 600 || status.Pods.Int64() != 600 || status.BeanSown.Int64() != 400 {
		t.Fatalf("unexpected status %+v", status)
	}
	supply, _ := b.TotalSupply("BEAN")
	if supply.Int64() != 9_600 {
		t.Fatalf("sown beans not burned: supply %s", supply)
	}
	if _, err := e.Sow(farmer, big.NewInt(601), nil); !errors.Is(err, coreerrors.ErrInsufficientSoil) {
		t.Fatalf("expected soil error, got %v", err)
	}
	if _, err := e.Sow(farmer, big.NewInt(600), nil); err != nil {
		t.Fatalf("sow rest: %v", err)
	}
	status, _ = e.Status()
	if status.ThisSowTime != MorningDuration {
		t.Fatalf("sell out time = %d", status.ThisSowTime)
	}
}

func TestMorningAuction(t *testing.T) {
	steady := big.NewInt(50_000_000)
	if got := MorningTemperature(steady, 20_000, 0); got.Int64() != 100_000_000 {
		t.Fatalf("opening temperature = %s", got)
	}
	// Step 1 (12s): 50% + 50% * (1 - 0.238046).
	if got := MorningTemperature(steady, 20_000, 12); got.Int64() != 88_097_700 {
		t.Fatalf("step one temperature = %s", got)
	}
	if got := MorningTemperature(steady, 20_000, 599); got.Int64() != 50_216_700 {
		t.Fatalf("last step temperature = %s", got)
	}
	if got := MorningTemperature(steady, 20_000, 600); got.Cmp(steady) != 0 {
		t.Fatalf("temperature after morning = %s", got)
	}
	prev := MorningTemperature(steady, 20_000, 0)
	for s := uint64(MorningBlock); s < MorningDuration; s += MorningBlock {
		cur := MorningTemperature(steady, 20_000, s)
		if cur.Cmp(prev) > 0 {
			t.Fatalf("temperature rose at %ds", s)
		}
		prev = cur
	}

	e, _, _ := newField(t, 0)
	if _, err := e.Sow(farmer, big.NewInt(100), big.NewInt(150_000_000)); !errors.Is(err, coreerrors.ErrTemperatureTooLow) {
		t.Fatalf("expected temperature error, got %v", err)
	}
	pods, err := e.Sow(farmer, big.NewInt(100), nil)
	if err != nil {
		t.Fatalf("sow: %v", err)
	}
	if pods.Int64() != 200 {
		t.Fatalf("morning pods = %s", pods)
	}
}

func TestHarvestPartialPlot(t *testing.T) {
	e, b, _ := newField(t, MorningDuration)
	if _, err := e.Sow(farmer, big.NewInt(400), nil); err != nil {
		t.Fatalf("sow: %v", err)
	}
	if _, err := e.Harvest(farmer, []*big.Int{big.NewInt(0)}); !errors.Is(err, coreerrors.ErrPlotNotHarvestable) {
		t.Fatalf("expected not harvestable, got %v", err)
	}
	accepted, err := e.ReceiveShipment("field", big.NewInt(250))
	if err != nil || accepted.Int64() != 250 {
		t.Fatalf("shipment accepted %v err %v", accepted, err)
	}
	beans, err := e.Harvest(farmer, []*big.Int{big.NewInt(0)})
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if beans.Int64() != 250 {
		t.Fatalf("harvested %s", beans)
	}
	plots, _ := e.Plots(farmer)
	if len(plots) != 1 || plots[0].Index.Int64() != 250 || plots[0].Pods.Int64() != 350 {
		t.Fatalf("unexpected remaining plots %+v", plots)
	}
	balance, _ := b.BalanceOf("BEAN", farmer)
	if balance.Int64() != 10_000-400+250 {
		t.Fatalf("balance = %s", balance)
	}
	// Only 350 pods remain in line; the excess is declined.
	accepted, err = e.ReceiveShipment("field", big.NewInt(1_000))
	if err != nil || accepted.Int64() != 350 {
		t.Fatalf("capped shipment accepted %v err %v", accepted, err)
	}
	if _, err := e.Harvest(farmer, []*big.Int{big.NewInt(7)}); !errors.Is(err, coreerrors.ErrUnknownPlot) {
		t.Fatalf("expected unknown plot, got %v", err)
	}
}

func TestPodRateAndDemand(t *testing.T) {
	e, _, _ := newField(t, MorningDuration)
	if _, err := e.Sow(farmer, big.NewInt(1_000), nil); err != nil {
		t.Fatalf("sow: %v", err)
	}
	rate, err := e.PodRate()
	if err != nil {
		t.Fatalf("pod rate: %v", err)
	}
	// 1500 pods over 9000 Beans.
	want, _ := new(big.Int).SetString("166666666666666666", 10)
	if rate.Cmp(want) != 0 {
		t.Fatalf("pod rate = %s", rate)
	}
	demand, err := e.EndSeason()
	if err != nil {
		t.Fatalf("end season: %v", err)
	}
	if demand.BeanSown.Int64() != 1_000 || demand.ThisSowTime != MorningDuration || demand.LastSowTime != NoSellOut {
		t.Fatalf("unexpected demand %+v", demand)
	}
	status, _ := e.Status()
	if status.BeanSown.Sign() != 0 || status.LastBeanSown.Int64() != 1_000 || status.ThisSowTime != NoSellOut {
		t.Fatalf("season counters not rolled: %+v", status)
	}
}

func TestTemperatureFloor(t *testing.T) {
	e, _, _ := newField(t, MorningDuration)
	got, err := e.AdjustTemperature(big.NewInt(-80_000_000))
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got.Cmp(MinTemperature) != 0 {
		t.Fatalf("temperature below floor: %s", got)
	}
}
