package season

import (
	"fmt"
	"math/big"

	"beanchain/core/types"
)

// rain updates the rain state and floods when the rain has lasted long
// enough with excessive liquidity. At most one flood runs per rain cycle.
func (e *Engine) rain(status *Status, eval *Evaluation, season uint64) (*Flood, error) {
	raining := eval.PriceLevel != PriceBelowPeg && eval.DebtLevel == LevelExcessivelyLow
	if raining && !status.Raining {
		status.RainStart = season
	}
	status.Raining = raining
	status.AbovePeg = eval.DeltaB.Sign() > 0
	if !raining || season-status.RainStart < e.params.RainDuration {
		return nil, nil
	}
	if eval.L2SRLevel != LevelExcessivelyHigh || status.LastSopSeason >= status.RainStart {
		return nil, nil
	}
	flood, err := e.flood()
	if err != nil || flood == nil {
		return nil, err
	}
	status.LastSopSeason = season
	return flood, nil
}

// flood sells the flood well's excess Beans and spreads the proceeds over
// all roots.
func (e *Engine) flood() (*Flood, error) {
	wellToken := e.params.FloodWell
	if wellToken == "" || e.well == nil {
		return nil, nil
	}
	totals, err := e.silo.Totals()
	if err != nil {
		return nil, err
	}
	if totals.Roots == nil || totals.Roots.Sign() == 0 {
		e.logger.Info("flood skipped, no roots")
		return nil, nil
	}
	deltaB, err := e.oracle.GetDeltaB(wellToken)
	if err != nil {
		e.logger.Warn("flood skipped", "well", wellToken, "error", err)
		return nil, nil
	}
	if deltaB.Sign() <= 0 {
		return nil, nil
	}
	pool, err := e.well.Pool(wellToken)
	if err != nil {
		return nil, err
	}
	if types.NormalizeToken(pool.PairToken) != types.NormalizeToken(e.silo.PlentyToken()) {
		return nil, fmt.Errorf("season: flood well %s pairs %s, silo pays plenty in %s", wellToken, pool.PairToken, e.silo.PlentyToken())
	}
	if err := e.bank.Mint(types.BeanToken, e.address, deltaB); err != nil {
		return nil, err
	}
	out, err := e.well.Swap(e.address, wellToken, types.BeanToken, deltaB, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(pool.PairToken, e.address, e.silo.Address(), out); err != nil {
		return nil, err
	}
	if err := e.silo.DistributePlenty(out); err != nil {
		return nil, err
	}
	return &Flood{Well: types.NormalizeToken(wellToken), Token: types.NormalizeToken(pool.PairToken), Beans: new(big.Int).Set(deltaB), Amount: out}, nil
}
