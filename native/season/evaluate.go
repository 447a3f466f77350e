package season

import (
	"errors"
	"math/big"

	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/native/field"
)

// evaluate aggregates every priced LP well and classifies the season.
func (e *Engine) evaluate() (*Evaluation, error) {
	assets, err := e.silo.Assets()
	if err != nil {
		return nil, err
	}
	eval := &Evaluation{
		DeltaB:    big.NewInt(0),
		Price:     big.NewInt(0),
		MaxPrice:  big.NewInt(0),
		Liquidity: big.NewInt(0),
	}
	weighted := new(big.Int)
	for _, asset := range assets {
		if asset == nil || !asset.IsLP || asset.Dewhitelisted {
			continue
		}
		deltaB, price, liquidity, err := e.observe(asset.Token)
		if err != nil {
			if errors.Is(err, coreerrors.ErrStaleOracle) || errors.Is(err, coreerrors.ErrNoPrice) {
				e.logger.Warn("well excluded from sunrise", "token", asset.Token, "error", err)
				eval.Excluded = append(eval.Excluded, asset.Token)
				continue
			}
			return nil, err
		}
		eval.DeltaB.Add(eval.DeltaB, deltaB)
		eval.Liquidity.Add(eval.Liquidity, liquidity)
		weighted.Add(weighted, new(big.Int).Mul(price, liquidity))
		if price.Cmp(eval.MaxPrice) > 0 {
			eval.MaxPrice.Set(price)
		}
	}
	if eval.Liquidity.Sign() > 0 {
		eval.Price.Quo(weighted, eval.Liquidity)
	}

	supply, err := e.bank.TotalSupply(types.BeanToken)
	if err != nil {
		return nil, err
	}
	eval.BeanSupply = new(big.Int).Set(supply)
	eval.L2SR = big.NewInt(0)
	if supply.Sign() > 0 {
		eval.L2SR.Mul(eval.Liquidity, RatioScale)
		eval.L2SR.Quo(eval.L2SR, supply)
	}
	podRate, err := e.field.PodRate()
	if err != nil {
		return nil, err
	}
	eval.PodRate = podRate
	demand, err := e.field.EndSeason()
	if err != nil {
		return nil, err
	}

	p := e.params
	eval.PriceLevel = priceLevel(eval.DeltaB, eval.MaxPrice, p.ExcessivePrice)
	eval.DebtLevel = level(podRate, p.PodRateLow, p.PodRateOptimal, p.PodRateHigh)
	eval.L2SRLevel = level(eval.L2SR, p.L2SRLow, p.L2SROptimal, p.L2SRHigh)
	eval.Demand = demandLevel(demand, p.DemandLow, p.DemandHigh, p.SellOutSeconds)
	eval.CaseID = CaseID(eval.L2SRLevel, eval.DebtLevel, eval.PriceLevel, eval.Demand)
	return eval, nil
}

func (e *Engine) observe(token string) (*big.Int, *big.Int, *big.Int, error) {
	deltaB, err := e.oracle.GetDeltaB(token)
	if err != nil {
		return nil, nil, nil, err
	}
	price, err := e.oracle.GetPrice(token)
	if err != nil {
		return nil, nil, nil, err
	}
	liquidity, err := e.oracle.GetLiquidity(token)
	if err != nil {
		return nil, nil, nil, err
	}
	return deltaB, price, liquidity, nil
}

func priceLevel(deltaB, maxPrice, excessive *big.Int) int {
	if deltaB.Sign() <= 0 {
		return PriceBelowPeg
	}
	if maxPrice.Cmp(excessive) > 0 {
		return PriceExcessive
	}
	return PriceAbovePeg
}

// level buckets value against three ascending thresholds.
func level(value, low, optimal, high *big.Int) int {
	switch {
	case value.Cmp(low) < 0:
		return LevelExcessivelyLow
	case value.Cmp(optimal) < 0:
		return LevelReasonablyLow
	case value.Cmp(high) < 0:
		return LevelReasonablyHigh
	default:
		return LevelExcessivelyHigh
	}
}

// demandLevel compares this season's sowing to the last one. A first sell
// out, or one more than sellOut seconds faster, counts as increasing.
func demandLevel(d *field.Demand, low, high *big.Int, sellOut uint64) int {
	if d == nil {
		return DemandSteady
	}
	if d.ThisSowTime != field.NoSellOut {
		if d.LastSowTime == field.NoSellOut {
			return DemandIncreasing
		}
		if d.ThisSowTime+sellOut < d.LastSowTime {
			return DemandIncreasing
		}
		return DemandSteady
	}
	if d.LastBeanSown == nil || d.LastBeanSown.Sign() == 0 {
		if d.BeanSown != nil && d.BeanSown.Sign() > 0 {
			return DemandIncreasing
		}
		return DemandSteady
	}
	ratio := new(big.Int).Mul(d.BeanSown, RatioScale)
	ratio.Quo(ratio, d.LastBeanSown)
	switch {
	case ratio.Cmp(low) < 0:
		return DemandDecreasing
	case ratio.Cmp(high) > 0:
		return DemandIncreasing
	default:
		return DemandSteady
	}
}
