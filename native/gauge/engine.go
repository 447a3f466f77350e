package gauge

import (
	"errors"
	"log/slog"
	"math/big"

	"beanchain/core/events"
	"beanchain/core/types"
	"beanchain/native/silo"
)

var (
	errNilState = errors.New("gauge engine: state not configured")
	errNilSilo  = errors.New("gauge engine: silo not configured")
)

type engineState interface {
	SeasonCurrent() (uint64, error)
	GaugeGetParams() (*Params, error)
	GaugePutParams(params *Params) error
}

// Silo is the ledger surface the controller steers.
type Silo interface {
	Assets() ([]*silo.Asset, error)
	Totals() (*silo.Totals, error)
	ApplySeedRate(token string, rate uint64, gaugePoints *big.Int) error
}

// Engine redistributes seed rates across whitelisted assets each season.
type Engine struct {
	state   engineState
	silo    Silo
	emitter events.Emitter
	logger  *slog.Logger
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, logger: slog.Default()}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetSilo(s Silo) { e.silo = s }

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

// Params returns the stored parameters, or the defaults when unset.
func (e *Engine) Params() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	params, err := e.state.GaugeGetParams()
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = DefaultParams()
	}
	params.ensure()
	return params, nil
}

// SetParams replaces the stored parameters. Out of range values are clamped.
func (e *Engine) SetParams(params *Params) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	next := params.Clone()
	if next == nil {
		next = DefaultParams()
	}
	next.ensure()
	next.BeanToMaxLpGpPerBdvRatio = clamp(next.BeanToMaxLpGpPerBdvRatio, big.NewInt(0), maxRatio)
	next.MaxRatio = clamp(next.MaxRatio, big.NewInt(0), maxRatio)
	next.MinRatio = clamp(next.MinRatio, big.NewInt(0), next.MaxRatio)
	return e.state.GaugePutParams(next)
}

// ApplyRatioDelta moves the bean to max LP gauge point ratio by delta,
// clamped to [0, 100%]. It returns the new ratio.
func (e *Engine) ApplyRatioDelta(delta *big.Int) (*big.Int, error) {
	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	if delta == nil || delta.Sign() == 0 {
		return new(big.Int).Set(params.BeanToMaxLpGpPerBdvRatio), nil
	}
	next := new(big.Int).Add(params.BeanToMaxLpGpPerBdvRatio, delta)
	params.BeanToMaxLpGpPerBdvRatio = clamp(next, big.NewInt(0), maxRatio)
	if err := e.state.GaugePutParams(params); err != nil {
		return nil, err
	}
	return new(big.Int).Set(params.BeanToMaxLpGpPerBdvRatio), nil
}

// Result reports what one gauge step applied.
type Result struct {
	Points map[string]*big.Int
	Rates  map[string]uint64
	// BeanGpPerBdv is the gauge points per BDV assigned to Bean.
	BeanGpPerBdv *big.Int
	// AverageGrownStalkPerBdvPerSeason after any periodic update.
	AverageGrownStalkPerBdvPerSeason *big.Int
}

type entry struct {
	asset    *silo.Asset
	points   *big.Int
	gpPerBdv *big.Int
}

// Step runs the controller for the current season: LP gauge points move
// toward their optimal share of deposited LP BDV and the target grown stalk
// is split across assets by gauge points per BDV.
func (e *Engine) Step() (*Result, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.silo == nil {
		return nil, errNilSilo
	}
	season, err := e.state.SeasonCurrent()
	if err != nil {
		return nil, err
	}
	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	assets, err := e.silo.Assets()
	if err != nil {
		return nil, err
	}
	result := &Result{Points: make(map[string]*big.Int), Rates: make(map[string]uint64)}

	var bean *silo.Asset
	lps := make([]*entry, 0, len(assets))
	lpBdv := big.NewInt(0)
	totalBdv := big.NewInt(0)
	for _, asset := range assets {
		if asset.Dewhitelisted {
			continue
		}
		switch {
		case asset.Token == types.BeanToken:
			bean = asset
		case asset.IsLP:
			lps = append(lps, &entry{asset: asset})
			lpBdv.Add(lpBdv, asset.TotalDepositedBdv)
		default:
			continue
		}
		totalBdv.Add(totalBdv, asset.TotalDepositedBdv)
	}

	maxGpPerBdv := big.NewInt(0)
	totalPoints := big.NewInt(0)
	for _, lp := range lps {
		lp.points = nextGaugePoints(lp.asset.GaugePoints, percentOf(lp.asset.TotalDepositedBdv, lpBdv), lp.asset.OptimalPercentDepositedBdv)
		result.Points[lp.asset.Token] = lp.points
		totalPoints.Add(totalPoints, lp.points)
		lp.gpPerBdv = big.NewInt(0)
		if lp.asset.TotalDepositedBdv.Sign() > 0 {
			lp.gpPerBdv = new(big.Int).Mul(lp.points, bdvPrecision)
			lp.gpPerBdv.Quo(lp.gpPerBdv, lp.asset.TotalDepositedBdv)
		}
		if lp.gpPerBdv.Cmp(maxGpPerBdv) > 0 {
			maxGpPerBdv = lp.gpPerBdv
		}
		e.emitter.Emit(events.GaugePoints{Season: season, Token: lp.asset.Token, Points: new(big.Int).Set(lp.points)})
	}

	scaled := scaledRatio(params)
	beanGpPerBdv := new(big.Int).Mul(maxGpPerBdv, scaled)
	beanGpPerBdv.Quo(beanGpPerBdv, maxRatio)
	result.BeanGpPerBdv = beanGpPerBdv
	if bean != nil {
		beanPoints := new(big.Int).Mul(beanGpPerBdv, bean.TotalDepositedBdv)
		beanPoints.Quo(beanPoints, bdvPrecision)
		totalPoints.Add(totalPoints, beanPoints)
	}

	if err := e.maybeUpdateAverage(params, season); err != nil {
		return nil, err
	}
	result.AverageGrownStalkPerBdvPerSeason = new(big.Int).Set(params.AverageGrownStalkPerBdvPerSeason)

	if totalBdv.Sign() == 0 || totalPoints.Sign() == 0 {
		e.logger.Debug("gauge: nothing deposited, seed rates unchanged", "season", season)
		for _, lp := range lps {
			if err := e.silo.ApplySeedRate(lp.asset.Token, lp.asset.StalkEarnedPerSeason, lp.points); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	// newGrown / totalPoints is the grown stalk paid per gauge point.
	newGrown := new(big.Int).Mul(params.AverageGrownStalkPerBdvPerSeason, totalBdv)
	denominator := new(big.Int).Mul(totalPoints, bdvPrecision)
	rateFor := func(gpPerBdv *big.Int) *big.Int {
		rate := new(big.Int).Mul(newGrown, gpPerBdv)
		return rate.Quo(rate, denominator)
	}
	for _, lp := range lps {
		rate := lp.asset.StalkEarnedPerSeason
		if lp.asset.TotalDepositedBdv.Sign() > 0 {
			rate = limitRate(lp.asset.StalkEarnedPerSeason, rateFor(lp.gpPerBdv), params.MaxRateChangeBps)
		}
		if err := e.silo.ApplySeedRate(lp.asset.Token, rate, lp.points); err != nil {
			return nil, err
		}
		result.Rates[lp.asset.Token] = rate
	}
	if bean != nil {
		rate := limitRate(bean.StalkEarnedPerSeason, rateFor(beanGpPerBdv), params.MaxRateChangeBps)
		if err := e.silo.ApplySeedRate(bean.Token, rate, nil); err != nil {
			return nil, err
		}
		result.Rates[bean.Token] = rate
	}
	return result, nil
}

// maybeUpdateAverage retargets the average grown stalk so that the stalk to
// BDV ratio catches up over TargetSeasonsToCatchUp seasons.
func (e *Engine) maybeUpdateAverage(params *Params, season uint64) error {
	if params.AvgUpdateInterval == 0 || params.TargetSeasonsToCatchUp == 0 {
		return nil
	}
	if season < params.LastAvgUpdate+params.AvgUpdateInterval {
		return nil
	}
	totals, err := e.silo.Totals()
	if err != nil {
		return err
	}
	assets, err := e.silo.Assets()
	if err != nil {
		return err
	}
	totalBdv := big.NewInt(0)
	for _, asset := range assets {
		totalBdv.Add(totalBdv, asset.TotalDepositedBdv)
	}
	params.LastAvgUpdate = season
	if totalBdv.Sign() > 0 {
		stalk := new(big.Int).Add(totals.Stalk, totals.TotalGerminating())
		avg := new(big.Int).Quo(stalk, totalBdv)
		avg.Quo(avg, new(big.Int).SetUint64(params.TargetSeasonsToCatchUp))
		if avg.Cmp(params.MinAvgGrownStalkPerBdv) < 0 {
			avg.Set(params.MinAvgGrownStalkPerBdv)
		}
		params.AverageGrownStalkPerBdvPerSeason = avg
	}
	return e.state.GaugePutParams(params)
}

func scaledRatio(params *Params) *big.Int {
	span := new(big.Int).Sub(params.MaxRatio, params.MinRatio)
	if span.Sign() < 0 {
		span.SetInt64(0)
	}
	scaled := new(big.Int).Mul(span, params.BeanToMaxLpGpPerBdvRatio)
	scaled.Quo(scaled, maxRatio)
	return scaled.Add(scaled, params.MinRatio)
}

func percentOf(part, whole *big.Int) *big.Int {
	if whole.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(part, hundredPercent)
	return out.Quo(out, whole)
}

// nextGaugePoints moves points one step toward the optimal share: five
// points when the share is beyond half of the optimal again (or under half
// of it), one point otherwise.
func nextGaugePoints(points, current, optimal *big.Int) *big.Int {
	next := cloneInt(points)
	switch current.Cmp(optimal) {
	case 1:
		upper := new(big.Int).Mul(optimal, big.NewInt(3))
		upper.Quo(upper, big.NewInt(2))
		step := smallPointStep
		if current.Cmp(upper) > 0 {
			step = largePointStep
		}
		next.Sub(next, step)
		if next.Sign() < 0 {
			next.SetInt64(0)
		}
	case -1:
		lower := new(big.Int).Quo(optimal, big.NewInt(2))
		step := smallPointStep
		if current.Cmp(lower) < 0 {
			step = largePointStep
		}
		next.Add(next, step)
		if next.Cmp(maxGaugePoints) > 0 {
			next.Set(maxGaugePoints)
		}
	}
	return next
}

// limitRate clamps target to within maxBps of current, moving at least one
// unit, and never below one.
func limitRate(current uint64, target *big.Int, maxBps uint64) uint64 {
	if !target.IsUint64() {
		target = new(big.Int).SetUint64(^uint64(0))
	}
	next := target.Uint64()
	if maxBps > 0 && current > 0 {
		step := new(big.Int).SetUint64(current)
		step.Mul(step, new(big.Int).SetUint64(maxBps))
		step.Quo(step, basisPointsTotal)
		maxStep := step.Uint64()
		if maxStep == 0 {
			maxStep = 1
		}
		if next > current && next-current > maxStep {
			next = current + maxStep
		}
		if next < current && current-next > maxStep {
			next = current - maxStep
		}
	}
	if next == 0 {
		next = 1
	}
	return next
}

func clamp(v, lo, hi *big.Int) *big.Int {
	out := cloneInt(v)
	if out.Cmp(lo) < 0 {
		out.Set(lo)
	}
	if out.Cmp(hi) > 0 {
		out.Set(hi)
	}
	return out
}
