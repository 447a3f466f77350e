package field

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
)

var (
	errNilState = errors.New("field engine: state not configured")
	errNilBank  = errors.New("field engine: bank not configured")
)

type engineState interface {
	FieldGetStatus() (*Status, error)
	FieldPutStatus(status *Status) error
	FieldGetPlot(addr crypto.Address, index *big.Int) (*big.Int, bool, error)
	FieldPutPlot(addr crypto.Address, index, pods *big.Int) error
	FieldDeletePlot(addr crypto.Address, index *big.Int) error
	FieldPlotIndexes(addr crypto.Address) ([]*big.Int, error)
}

// Bank burns sown Beans and mints harvested ones.
type Bank interface {
	Mint(token string, to crypto.Address, amount *big.Int) error
	Burn(token string, from crypto.Address, amount *big.Int) error
	TotalSupply(token string) (*big.Int, error)
}

// Engine is the protocol credit facility: Beans are lent (sown) for pods
// that become redeemable (harvestable) as Field shipments arrive.
type Engine struct {
	state   engineState
	bank    Bank
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
	// elapsed reports seconds since the sunrise that opened the season.
	elapsed func() uint64
	peakBps uint64
	maxTemp *big.Int
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		elapsed: func() uint64 { return MorningDuration },
		peakBps: DefaultPeakBps,
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetBank(bank Bank) { e.bank = bank }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetMorning configures the morning auction: elapsed reports seconds since
// the current season's sunrise and peakBps is the opening multiple of the steady
// temperature.
func (e *Engine) SetMorning(elapsed func() uint64, peakBps uint64) {
	if elapsed != nil {
		e.elapsed = elapsed
	}
	e.peakBps = peakBps
}

// SetMaxTemperature caps the steady temperature. Nil removes the cap.
func (e *Engine) SetMaxTemperature(max *big.Int) {
	if max == nil {
		e.maxTemp = nil
		return
	}
	e.maxTemp = new(big.Int).Set(max)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.bank == nil {
		return errNilBank
	}
	return nil
}

func (e *Engine) status() (*Status, error) {
	status, err := e.state.FieldGetStatus()
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = &Status{ThisSowTime: NoSellOut, LastSowTime: NoSellOut}
	}
	status.ensure()
	return status, nil
}

// Status returns a copy of the field state.
func (e *Engine) Status() (*Status, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	status, err := e.status()
	if err != nil {
		return nil, err
	}
	return status, nil
}

// CurrentTemperature is the morning adjusted temperature Sow pays right now.
func (e *Engine) CurrentTemperature() (*big.Int, error) {
	status, err := e.Status()
	if err != nil {
		return nil, err
	}
	return MorningTemperature(status.Temperature, e.peakBps, e.elapsed()), nil
}

// Sow lends beans to the protocol for pods at the current temperature.
func (e *Engine) Sow(addr crypto.Address, beans, minTemperature *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleField); err != nil {
		return nil, err
	}
	if beans == nil || beans.Sign() <= 0 {
		return nil, coreerrors.ErrInvalidAmount
	}
	status, err := e.status()
	if err != nil {
		return nil, err
	}
	if beans.Cmp(status.Soil) > 0 {
		return nil, fmt.Errorf("%w: want %s have %s", coreerrors.ErrInsufficientSoil, beans, status.Soil)
	}
	elapsed := e.elapsed()
	temperature := MorningTemperature(status.Temperature, e.peakBps, elapsed)
	if minTemperature != nil && temperature.Cmp(minTemperature) < 0 {
		return nil, fmt.Errorf("%w: %s < %s", coreerrors.ErrTemperatureTooLow, temperature, minTemperature)
	}
	pods := new(big.Int).Add(hundredPercent, temperature)
	pods.Mul(pods, beans)
	pods.Quo(pods, hundredPercent)

	if err := e.bank.Burn(types.BeanToken, addr, beans); err != nil {
		return nil, err
	}
	index := new(big.Int).Set(status.Pods)
	if err := e.state.FieldPutPlot(addr, index, pods); err != nil {
		return nil, err
	}
	status.Pods.Add(status.Pods, pods)
	status.Soil.Sub(status.Soil, beans)
	status.BeanSown.Add(status.BeanSown, beans)
	if status.Soil.Sign() == 0 && status.ThisSowTime == NoSellOut {
		status.ThisSowTime = elapsed
	}
	if err := e.state.FieldPutStatus(status); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Sow{Account: addr, Index: index, Beans: new(big.Int).Set(beans), Pods: new(big.Int).Set(pods), Temperature: temperature})
	return pods, nil
}

// Harvest redeems the harvestable part of each listed plot for Beans. A
// partially harvestable plot keeps its remainder at a new index.
func (e *Engine) Harvest(addr crypto.Address, indexes []*big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleField); err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return nil, coreerrors.ErrEmptyAmounts
	}
	status, err := e.status()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	harvested := make([]*big.Int, 0, len(indexes))
	for _, index := range indexes {
		if index == nil || index.Sign() < 0 {
			return nil, coreerrors.ErrUnknownPlot
		}
		pods, ok, err := e.state.FieldGetPlot(addr, index)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", coreerrors.ErrUnknownPlot, index)
		}
		if index.Cmp(status.Harvestable) >= 0 {
			return nil, fmt.Errorf("%w: %s", coreerrors.ErrPlotNotHarvestable, index)
		}
		ready := new(big.Int).Sub(status.Harvestable, index)
		if ready.Cmp(pods) > 0 {
			ready.Set(pods)
		}
		if err := e.state.FieldDeletePlot(addr, index); err != nil {
			return nil, err
		}
		if rest := new(big.Int).Sub(pods, ready); rest.Sign() > 0 {
			if err := e.state.FieldPutPlot(addr, new(big.Int).Add(index, ready), rest); err != nil {
				return nil, err
			}
		}
		total.Add(total, ready)
		harvested = append(harvested, new(big.Int).Set(index))
	}
	if err := e.bank.Mint(types.BeanToken, addr, total); err != nil {
		return nil, err
	}
	status.Harvested.Add(status.Harvested, total)
	if err := e.state.FieldPutStatus(status); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Harvest{Account: addr, Plots: harvested, Beans: new(big.Int).Set(total)})
	return total, nil
}

// ReceiveShipment advances the harvestable index by up to amount. Pods in
// line cap the accepted amount; Beans are minted when harvested.
func (e *Engine) ReceiveShipment(route string, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	status, err := e.status()
	if err != nil {
		return nil, err
	}
	accepted := minInt(amount, status.Unharvestable())
	if accepted.Sign() == 0 {
		return accepted, nil
	}
	status.Harvestable.Add(status.Harvestable, accepted)
	if err := e.state.FieldPutStatus(status); err != nil {
		return nil, err
	}
	e.logger.Debug("field shipment", "route", route, "offered", amount.String(), "accepted", accepted.String())
	return accepted, nil
}

// PodRate is unharvestable pods over Bean supply, scaled by 1e18.
func (e *Engine) PodRate() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	status, err := e.status()
	if err != nil {
		return nil, err
	}
	supply, err := e.bank.TotalSupply(types.BeanToken)
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 {
		return big.NewInt(0), nil
	}
	rate := new(big.Int).Mul(status.Unharvestable(), podRateScale)
	return rate.Quo(rate, supply), nil
}

// SetTemperature replaces the steady temperature, floored at 1% and capped
// by the configured maximum.
func (e *Engine) SetTemperature(temperature *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	status, err := e.status()
	if err != nil {
		return nil, err
	}
	next := new(big.Int).Set(temperature)
	if next.Cmp(MinTemperature) < 0 {
		next.Set(MinTemperature)
	}
	if e.maxTemp != nil && next.Cmp(e.maxTemp) > 0 {
		next.Set(e.maxTemp)
	}
	status.Temperature = next
	if err := e.state.FieldPutStatus(status); err != nil {
		return nil, err
	}
	return new(big.Int).Set(next), nil
}

// AdjustTemperature moves the steady temperature by delta percent points at
// TemperaturePrecision.
func (e *Engine) AdjustTemperature(delta *big.Int) (*big.Int, error) {
	status, err := e.Status()
	if err != nil {
		return nil, err
	}
	next := new(big.Int).Add(status.Temperature, delta)
	return e.SetTemperature(next)
}

// SetSoil replaces the soil available this season.
func (e *Engine) SetSoil(soil *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if soil == nil || soil.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	status, err := e.status()
	if err != nil {
		return err
	}
	status.Soil = new(big.Int).Set(soil)
	return e.state.FieldPutStatus(status)
}

// EndSeason returns this season's demand and resets the counters for the
// next one.
func (e *Engine) EndSeason() (*Demand, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	status, err := e.status()
	if err != nil {
		return nil, err
	}
	demand := &Demand{
		BeanSown:     new(big.Int).Set(status.BeanSown),
		LastBeanSown: new(big.Int).Set(status.LastBeanSown),
		ThisSowTime:  status.ThisSowTime,
		LastSowTime:  status.LastSowTime,
	}
	status.LastBeanSown = status.BeanSown
	status.BeanSown = big.NewInt(0)
	status.LastSowTime = status.ThisSowTime
	status.ThisSowTime = NoSellOut
	if err := e.state.FieldPutStatus(status); err != nil {
		return nil, err
	}
	return demand, nil
}

// Plots lists the account's plots in index order.
func (e *Engine) Plots(addr crypto.Address) ([]Plot, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	indexes, err := e.state.FieldPlotIndexes(addr)
	if err != nil {
		return nil, err
	}
	out := make([]Plot, 0, len(indexes))
	for _, index := range indexes {
		pods, ok, err := e.state.FieldGetPlot(addr, index)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Plot{Index: new(big.Int).Set(index), Pods: pods})
	}
	return out, nil
}

func minInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
