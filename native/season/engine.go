package season

import (
	"errors"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
	"beanchain/native/field"
	"beanchain/native/gauge"
	"beanchain/native/silo"
	"beanchain/native/well"
)

var (
	errNilState          = errors.New("season engine: state not configured")
	errNilCollaborator   = errors.New("season engine: collaborators not configured")
	errSunriseInProgress = errors.New("season engine: sunrise already in progress")
)

const moduleName = "season"

type engineState interface {
	SeasonGetStatus() (*Status, error)
	SeasonPutStatus(status *Status) error
	SeasonGetWeather() (*Weather, error)
	SeasonPutWeather(weather *Weather) error
}

// Oracle reports per well pricing. Stale or missing prices exclude the well
// from the evaluation.
type Oracle interface {
	GetDeltaB(lpToken string) (*big.Int, error)
	GetPrice(lpToken string) (*big.Int, error)
	GetLiquidity(lpToken string) (*big.Int, error)
}

// ShipmentReceiver accepts part of a season's mint. The accepted amount may
// be smaller than offered.
type ShipmentReceiver interface {
	ReceiveShipment(route string, amount *big.Int) (*big.Int, error)
}

// Silo is the subset of the silo engine a sunrise drives.
type Silo interface {
	ShipmentReceiver
	Sunrise(season uint64) error
	Assets() ([]*silo.Asset, error)
	Totals() (*silo.Totals, error)
	DistributePlenty(amount *big.Int) error
	PlentyToken() string
	Address() crypto.Address
}

// Field is the subset of the field engine a sunrise drives.
type Field interface {
	ShipmentReceiver
	EndSeason() (*field.Demand, error)
	PodRate() (*big.Int, error)
	AdjustTemperature(delta *big.Int) (*big.Int, error)
	SetSoil(soil *big.Int) error
}

type Gauge interface {
	ApplyRatioDelta(delta *big.Int) (*big.Int, error)
	Step() (*gauge.Result, error)
}

// Well swaps flood Beans into the plenty token.
type Well interface {
	Pool(token string) (*well.Pool, error)
	Swap(trader crypto.Address, lpToken, tokenIn string, amountIn, minOut *big.Int) (*big.Int, error)
}

type Bank interface {
	Mint(token string, to crypto.Address, amount *big.Int) error
	Transfer(token string, from, to crypto.Address, amount *big.Int) error
	TotalSupply(token string) (*big.Int, error)
}

// Engine advances the protocol one season per sunrise: it evaluates the
// wells, picks a weather case, mints and ships Beans and handles rain.
type Engine struct {
	state   engineState
	bank    Bank
	oracle  Oracle
	silo    Silo
	field   Field
	gauge   Gauge
	well    Well
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
	params  *Params
	now     func() time.Time
	address crypto.Address
	phase   atomic.Int32

	receivers map[string]ShipmentReceiver
}

func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		logger:    slog.Default(),
		params:    DefaultParams(),
		now:       time.Now,
		address:   crypto.ModuleAddress(moduleName),
		receivers: make(map[string]ShipmentReceiver),
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetBank(bank Bank) { e.bank = bank }

func (e *Engine) SetOracle(oracle Oracle) { e.oracle = oracle }

func (e *Engine) SetSilo(s Silo) { e.silo = s }

func (e *Engine) SetField(f Field) { e.field = f }

func (e *Engine) SetGauge(g Gauge) { e.gauge = g }

func (e *Engine) SetWell(w Well) { e.well = w }

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

// SetClock overrides the wall clock used for the sunrise gate.
func (e *Engine) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	e.now = now
}

// SetParams replaces the sunrise configuration after filling defaults.
func (e *Engine) SetParams(params *Params) error {
	if params == nil {
		params = DefaultParams()
	}
	clone := *params
	clone.Routes = append([]Route(nil), params.Routes...)
	clone.ensure()
	if err := clone.Validate(); err != nil {
		return err
	}
	e.params = &clone
	return nil
}

// Params returns the active configuration.
func (e *Engine) Params() *Params {
	clone := *e.params
	clone.Routes = append([]Route(nil), e.params.Routes...)
	return &clone
}

// SetReceiver overrides the receiver of a shipment route.
func (e *Engine) SetReceiver(route string, receiver ShipmentReceiver) {
	if receiver == nil {
		delete(e.receivers, route)
		return
	}
	e.receivers[route] = receiver
}

// Address is the module account that holds flood Beans while they swap.
func (e *Engine) Address() crypto.Address { return e.address }

// Phase reports the step of an in-flight sunrise.
func (e *Engine) Phase() Phase { return Phase(e.phase.Load()) }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.bank == nil || e.oracle == nil || e.silo == nil || e.field == nil || e.gauge == nil {
		return errNilCollaborator
	}
	return nil
}

func (e *Engine) status() (*Status, error) {
	status, err := e.state.SeasonGetStatus()
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = &Status{GenesisTime: uint64(e.now().Unix()), Period: e.params.Period}
	}
	status.ensure()
	return status, nil
}

// Init anchors season 1 at genesis. It is a no-op once a status exists.
func (e *Engine) Init(genesis time.Time) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	existing, err := e.state.SeasonGetStatus()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	status := &Status{Current: 1, GenesisTime: uint64(genesis.Unix()), Period: e.params.Period, SunriseTime: uint64(genesis.Unix())}
	return e.state.SeasonPutStatus(status)
}

// Status returns the persisted season clock.
func (e *Engine) Status() (*Status, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.status()
}

// Weather returns the last evaluation, nil before the first sunrise.
func (e *Engine) Weather() (*Weather, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.SeasonGetWeather()
}

// Elapsed returns seconds since the sunrise that opened the current season,
// not since its slot on the hour grid. It drives the Field morning auction.
func (e *Engine) Elapsed() uint64 {
	status, err := e.Status()
	if err != nil {
		return field.MorningDuration
	}
	now := uint64(e.now().Unix())
	start := status.SunriseTime
	if start == 0 {
		start = status.Start(status.Current)
	}
	if now < start {
		return 0
	}
	return now - start
}

// Sunrise starts the next season. It fails with ErrSeasonNotElapsed before
// the boundary and otherwise evaluates, mints, ships and pays the caller.
// Callers run it inside a state transaction; any error leaves the season
// unchanged once that transaction is discarded. The gate follows the hour
// grid, so after downtime several sunrises may succeed back to back.
func (e *Engine) Sunrise(caller crypto.Address) (*Report, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSeason); err != nil {
		return nil, err
	}
	if !e.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseEvaluating)) {
		return nil, errSunriseInProgress
	}
	defer e.phase.Store(int32(PhaseIdle))

	status, err := e.status()
	if err != nil {
		return nil, err
	}
	now := e.now()
	unix := uint64(now.Unix())
	boundary := status.NextSunrise()
	if unix < boundary {
		return nil, coreerrors.ErrSeasonNotElapsed
	}
	secondsLate := unix - boundary
	status.Current++
	status.SunriseTime = unix
	season := status.Current
	if err := e.state.SeasonPutStatus(status); err != nil {
		return nil, err
	}
	if err := e.silo.Sunrise(season); err != nil {
		return nil, err
	}

	eval, err := e.evaluate()
	if err != nil {
		return nil, err
	}
	weatherCase := e.params.Cases[eval.CaseID]
	temperature, err := e.field.AdjustTemperature(big.NewInt(weatherCase.TemperatureDelta))
	if err != nil {
		return nil, err
	}
	if _, err := e.gauge.ApplyRatioDelta(weatherCase.RatioDelta); err != nil {
		return nil, err
	}
	if _, err := e.gauge.Step(); err != nil {
		return nil, err
	}

	e.phase.Store(int32(PhaseMinting))
	minted := e.mintAmount(eval.DeltaB)
	if minted.Sign() == 0 {
		e.logger.Info("season below peg, no mint", "season", season, "deltaB", eval.DeltaB.String())
	}

	e.phase.Store(int32(PhaseDistributing))
	shipments, fieldAccepted, err := e.ship(season, minted)
	if err != nil {
		return nil, err
	}
	delivered := new(big.Int)
	for _, shipment := range shipments {
		delivered.Add(delivered, shipment.Accepted)
	}
	soil := e.soil(eval.DeltaB, fieldAccepted, temperature, weatherCase.SoilCoefficient)
	if err := e.field.SetSoil(soil); err != nil {
		return nil, err
	}
	flood, err := e.rain(status, eval, season)
	if err != nil {
		return nil, err
	}
	if err := e.state.SeasonPutStatus(status); err != nil {
		return nil, err
	}
	weather := &Weather{
		Season:      season,
		CaseID:      uint64(eval.CaseID),
		DeltaB:      new(big.Int).Abs(eval.DeltaB),
		BelowPeg:    eval.DeltaB.Sign() < 0,
		Price:       new(big.Int).Set(eval.Price),
		PodRate:     new(big.Int).Set(eval.PodRate),
		L2SR:        new(big.Int).Set(eval.L2SR),
		Temperature: new(big.Int).Set(temperature),
	}
	if err := e.state.SeasonPutWeather(weather); err != nil {
		return nil, err
	}

	incentive := Incentive(e.params.BaseIncentive, secondsLate, e.params.MaxIncentiveLate)
	if err := e.bank.Mint(types.BeanToken, caller, incentive); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.Sunrise{Season: season, Timestamp: now.Unix()})
	e.emitter.Emit(events.Weather{Season: season, CaseID: eval.CaseID, DeltaB: new(big.Int).Set(eval.DeltaB), Price: new(big.Int).Set(eval.Price), TemperatureDelta: weatherCase.TemperatureDelta, RatioDelta: new(big.Int).Set(weatherCase.RatioDelta)})
	for _, shipment := range shipments {
		e.emitter.Emit(events.Shipment{Season: season, Route: shipment.Route, Amount: new(big.Int).Set(shipment.Accepted)})
	}
	e.emitter.Emit(events.Soil{Season: season, Soil: new(big.Int).Set(soil)})
	e.emitter.Emit(events.Temperature{Season: season, Temperature: new(big.Int).Set(temperature)})
	e.emitter.Emit(events.Rain{Season: season, Raining: status.Raining})
	if flood != nil {
		e.emitter.Emit(events.SeasonOfPlenty{Season: season, Well: flood.Well, Token: flood.Token, Beans: new(big.Int).Set(flood.Beans), Amount: new(big.Int).Set(flood.Amount)})
	}
	e.emitter.Emit(events.Incentive{Season: season, Account: caller, Beans: new(big.Int).Set(incentive), SecondsLate: secondsLate})

	report := &Report{
		Season:      season,
		Timestamp:   now.UTC(),
		Caller:      caller,
		Evaluation:  *eval,
		Case:        weatherCase,
		Minted:      delivered,
		Shipments:   shipments,
		Soil:        soil,
		Temperature: temperature,
		Raining:     status.Raining,
		Flood:       flood,
		Incentive:   incentive,
		SecondsLate: secondsLate,
	}
	if err := e.seal(report); err != nil {
		return nil, err
	}
	e.logger.Info("sunrise",
		"season", season,
		"case", eval.CaseID,
		"deltaB", eval.DeltaB.String(),
		"minted", delivered.String(),
		"soil", soil.String(),
		"temperature", temperature.String(),
		"raining", status.Raining,
		"secondsLate", secondsLate,
	)
	return report, nil
}

func (e *Engine) mintAmount(deltaB *big.Int) *big.Int {
	if deltaB.Sign() <= 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Set(deltaB)
	if e.params.MaxMint != nil && out.Cmp(e.params.MaxMint) > 0 {
		out.Set(e.params.MaxMint)
	}
	return out
}

var hundredPercent = big.NewInt(100_000_000)

// soil offers the deficit below peg. Above peg it prices the Field shipment
// at the current temperature, scaled by the case coefficient.
func (e *Engine) soil(deltaB, fieldAccepted, temperature, coefficient *big.Int) *big.Int {
	if deltaB.Sign() < 0 {
		return new(big.Int).Neg(deltaB)
	}
	if fieldAccepted == nil || fieldAccepted.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(fieldAccepted, hundredPercent)
	out.Quo(out, new(big.Int).Add(hundredPercent, temperature))
	out.Mul(out, coefficient)
	return out.Quo(out, RatioScale)
}
