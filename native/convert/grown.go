package convert

import "math/big"

const basisPoints = 10_000

// direction compares seed rates of the source and target assets.
func direction(fromRate, toRate uint64) Direction {
	switch {
	case toRate > fromRate:
		return Up
	case toRate < fromRate:
		return Down
	default:
		return Neutral
	}
}

// adjustGrown applies the penalty or bonus to grown stalk. eligible is the
// part of bdvIn that was granted bonus capacity.
func adjustGrown(grown, bdvIn, eligible *big.Int, dir Direction, params Params) *big.Int {
	out := new(big.Int).Set(grown)
	switch dir {
	case Down:
		forfeit := new(big.Int).Mul(grown, new(big.Int).SetUint64(params.PenaltyBps))
		forfeit.Quo(forfeit, big.NewInt(basisPoints))
		out.Sub(out, forfeit)
	case Up:
		if eligible == nil || eligible.Sign() == 0 || bdvIn.Sign() == 0 {
			break
		}
		bonus := new(big.Int).Mul(grown, new(big.Int).SetUint64(params.BonusBps))
		bonus.Mul(bonus, eligible)
		bonus.Quo(bonus, new(big.Int).Mul(big.NewInt(basisPoints), bdvIn))
		out.Add(out, bonus)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}
