package convert

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
	"beanchain/native/silo"
	"beanchain/native/well"
)

var (
	errNilState = errors.New("convert engine: state not configured")
	errNilSilo  = errors.New("convert engine: silo not configured")
	errNilWell  = errors.New("convert engine: well not configured")
)

type engineState interface {
	SeasonCurrent() (uint64, error)
	ConvertGetCapacity() (nativecommon.CapacityUsage, error)
	ConvertPutCapacity(usage nativecommon.CapacityUsage) error
}

// Silo is the deposit ledger a convert withdraws from and deposits into.
type Silo interface {
	WithdrawForConvert(addr crypto.Address, token string, stem silo.Stem, amount *big.Int) (*big.Int, *big.Int, error)
	DepositConverted(addr crypto.Address, token string, amount, bdv, grown *big.Int) (silo.Stem, *big.Int, error)
	Asset(token string) (*silo.Asset, error)
	BDV(token string, amount *big.Int) (*big.Int, error)
	Address() crypto.Address
}

// Well is the AMM that turns Beans into LP shares and back.
type Well interface {
	Pool(token string) (*well.Pool, error)
	AddLiquidity(provider crypto.Address, lpToken string, beanIn, pairIn, minLP *big.Int) (*big.Int, error)
	RemoveLiquidityOneToken(provider crypto.Address, lpToken string, lp *big.Int, tokenOut string, minOut *big.Int) (*big.Int, error)
}

// Engine moves deposits between whitelisted assets without leaving the
// silo. Grown stalk follows the deposit, adjusted by the gauge preference.
type Engine struct {
	state   engineState
	silo    Silo
	well    Well
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
	params  Params
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		params:  DefaultParams(),
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetSilo(s Silo) { e.silo = s }

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

func (e *Engine) SetParams(params Params) error {
	if params.PenaltyBps > basisPoints {
		return fmt.Errorf("convert: penalty %d bps exceeds 100%%", params.PenaltyBps)
	}
	e.params = params
	return nil
}

func (e *Engine) Params() Params { return e.params }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.silo == nil {
		return errNilSilo
	}
	if e.well == nil {
		return errNilWell
	}
	return nil
}

// Convert moves amount of from at fromStem into to. The new crate keeps the
// adjusted grown stalk per BDV. Fails with ErrSlippageExceeded when the new
// BDV is below minOut.
func (e *Engine) Convert(addr crypto.Address, from string, fromStem silo.Stem, amount *big.Int, to string, minOut *big.Int) (silo.Stem, *big.Int, error) {
	result, err := e.Pipeline(addr, from, fromStem, amount, []string{to}, minOut)
	if err != nil {
		return 0, nil, err
	}
	return result.Stem, result.ToBdv, nil
}

// Pipeline converts through every token in path in order. Intermediate
// tokens never become deposits; the whole pipeline fails if any leg fails.
func (e *Engine) Pipeline(addr crypto.Address, from string, fromStem silo.Stem, amount *big.Int, path []string, minOut *big.Int) (*Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleConvert); err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, coreerrors.ErrEmptyPipeline
	}
	from = types.NormalizeToken(from)
	tokens := make([]string, len(path))
	for i, token := range path {
		tokens[i] = types.NormalizeToken(token)
	}
	to := tokens[len(tokens)-1]
	if len(tokens) == 1 && to == from {
		return e.lambda(addr, from, fromStem, amount, minOut)
	}

	fromAsset, err := e.silo.Asset(from)
	if err != nil {
		return nil, err
	}
	toAsset, err := e.silo.Asset(to)
	if err != nil {
		return nil, err
	}
	if toAsset.Dewhitelisted {
		return nil, fmt.Errorf("%w: %s is not whitelisted", coreerrors.ErrUnsupportedConvert, to)
	}

	bdvIn, grownIn, err := e.silo.WithdrawForConvert(addr, from, fromStem, amount)
	if err != nil {
		return nil, err
	}
	current, held := from, new(big.Int).Set(amount)
	for _, next := range tokens {
		out, err := e.leg(current, next, held)
		if err != nil {
			return nil, fmt.Errorf("convert %s -> %s: %w", current, next, err)
		}
		current, held = next, out
	}
	if held.Sign() == 0 {
		return nil, fmt.Errorf("%w: convert produced nothing", coreerrors.ErrSlippageExceeded)
	}
	bdvOut, err := e.silo.BDV(to, held)
	if err != nil {
		return nil, err
	}
	if minOut != nil && bdvOut.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: bdv %s below %s", coreerrors.ErrSlippageExceeded, bdvOut, minOut)
	}

	dir := direction(fromAsset.StalkEarnedPerSeason, toAsset.StalkEarnedPerSeason)
	eligible, err := e.takeCapacity(dir, bdvIn)
	if err != nil {
		return nil, err
	}
	grownOut := adjustGrown(grownIn, bdvIn, eligible, dir, e.params)
	stem, credited, err := e.silo.DepositConverted(addr, to, held, bdvOut, grownOut)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Path:       append([]string{from}, tokens...),
		Direction:  dir,
		Stem:       stem,
		FromAmount: new(big.Int).Set(amount),
		ToAmount:   held,
		FromBdv:    bdvIn,
		ToBdv:      bdvOut,
		GrownIn:    grownIn,
		GrownOut:   grownOut,
		Credited:   credited,
	}
	e.emit(addr, result)
	e.logger.Debug("convert",
		"account", addr.String(),
		"path", result.Path,
		"direction", dir.String(),
		"bdvIn", bdvIn.String(),
		"bdvOut", bdvOut.String(),
	)
	return result, nil
}

// lambda revalues a crate in place. It only succeeds when the BDV grows.
func (e *Engine) lambda(addr crypto.Address, token string, stem silo.Stem, amount, minOut *big.Int) (*Result, error) {
	bdvIn, grownIn, err := e.silo.WithdrawForConvert(addr, token, stem, amount)
	if err != nil {
		return nil, err
	}
	bdvOut, err := e.silo.BDV(token, amount)
	if err != nil {
		return nil, err
	}
	if bdvOut.Cmp(bdvIn) <= 0 {
		return nil, fmt.Errorf("%w: %s to %s", coreerrors.ErrLambdaDoesNotIncrease, bdvIn, bdvOut)
	}
	if minOut != nil && bdvOut.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: bdv %s below %s", coreerrors.ErrSlippageExceeded, bdvOut, minOut)
	}
	newStem, credited, err := e.silo.DepositConverted(addr, token, amount, bdvOut, grownIn)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Path:       []string{token, token},
		Direction:  Neutral,
		Stem:       newStem,
		FromAmount: new(big.Int).Set(amount),
		ToAmount:   new(big.Int).Set(amount),
		FromBdv:    bdvIn,
		ToBdv:      bdvOut,
		GrownIn:    grownIn,
		GrownOut:   new(big.Int).Set(grownIn),
		Credited:   credited,
	}
	e.emit(addr, result)
	return result, nil
}

// takeCapacity reserves bonus capacity for up converts and returns the
// granted BDV.
func (e *Engine) takeCapacity(dir Direction, bdv *big.Int) (*big.Int, error) {
	if dir != Up || e.params.BonusBps == 0 {
		return big.NewInt(0), nil
	}
	season, err := e.state.SeasonCurrent()
	if err != nil {
		return nil, err
	}
	usage, err := e.state.ConvertGetCapacity()
	if err != nil {
		return nil, err
	}
	next, granted := nativecommon.TakeCapacity(e.params.Capacity, season, usage, bdv)
	if err := e.state.ConvertPutCapacity(next); err != nil {
		return nil, err
	}
	return granted, nil
}

// RemainingCapacity reports the up bonus BDV left this season. Nil means
// unlimited.
func (e *Engine) RemainingCapacity() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	season, err := e.state.SeasonCurrent()
	if err != nil {
		return nil, err
	}
	usage, err := e.state.ConvertGetCapacity()
	if err != nil {
		return nil, err
	}
	return e.params.Capacity.Remaining(season, usage), nil
}

func (e *Engine) emit(addr crypto.Address, r *Result) {
	e.emitter.Emit(events.Convert{
		Account:    addr,
		FromToken:  r.Path[0],
		ToToken:    r.Path[len(r.Path)-1],
		FromAmount: new(big.Int).Set(r.FromAmount),
		ToAmount:   new(big.Int).Set(r.ToAmount),
		FromBdv:    new(big.Int).Set(r.FromBdv),
		ToBdv:      new(big.Int).Set(r.ToBdv),
		GrownIn:    new(big.Int).Set(r.GrownIn),
		GrownOut:   new(big.Int).Set(r.GrownOut),
		Stem:       int64(r.Stem),
	})
}
