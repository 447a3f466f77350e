package season

import "math/big"

var (
	incentiveBase  = big.NewInt(101)
	incentiveDenom = big.NewInt(100)
)

// incentiveScaler returns 1.01^seconds at 1e6 precision rounded half up.
func incentiveScaler(seconds uint64) *big.Int {
	exp := new(big.Int).SetUint64(seconds)
	num := new(big.Int).Exp(incentiveBase, exp, nil)
	num.Mul(num, PricePrecision)
	den := new(big.Int).Exp(incentiveDenom, exp, nil)
	num.Add(num, new(big.Int).Rsh(den, 1))
	return num.Quo(num, den)
}

// Incentive is the Bean reward for a sunrise called secondsLate after the
// season boundary. Lateness is capped at maxLate.
func Incentive(base *big.Int, secondsLate, maxLate uint64) *big.Int {
	if secondsLate > maxLate {
		secondsLate = maxLate
	}
	out := new(big.Int).Mul(base, incentiveScaler(secondsLate))
	return out.Quo(out, PricePrecision)
}
