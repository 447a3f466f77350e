package season

import "math/big"

// CaseCount is the number of weather cases: 4 L2SR levels x 4 debt levels x
// 3 price levels x 3 demand levels.
const CaseCount = 144

// Level indexes used to build a case id.
const (
	PriceBelowPeg  = 0
	PriceAbovePeg  = 1
	PriceExcessive = 2

	DemandDecreasing = 0
	DemandSteady     = 1
	DemandIncreasing = 2

	LevelExcessivelyLow  = 0
	LevelReasonablyLow   = 1
	LevelReasonablyHigh  = 2
	LevelExcessivelyHigh = 3
)

// CaseID combines the four evaluation levels into a case table index.
func CaseID(l2sr, debt, price, demand int) int {
	return l2sr*36 + debt*9 + price*3 + demand
}

// SplitCaseID reverses CaseID.
func SplitCaseID(id int) (l2sr, debt, price, demand int) {
	l2sr = id / 36
	debt = (id % 36) / 9
	price = (id % 9) / 3
	demand = id % 3
	return
}

// Case is the response to one weather case.
type Case struct {
	// TemperatureDelta in percent points at 1e6 precision.
	TemperatureDelta int64
	// RatioDelta moves the bean to max LP gauge point ratio, 1e18 = 1%.
	RatioDelta *big.Int
	// SoilCoefficient scales above peg soil, 1e18 = 1x.
	SoilCoefficient *big.Int
}

var (
	ratioOne   = big.NewInt(1_000_000_000_000_000_000)
	percentOne = int64(1_000_000)

	soilCoefficientHigh = big.NewInt(1_500_000_000_000_000_000)
	soilCoefficientLow  = big.NewInt(500_000_000_000_000_000)
)

// temperature response by [price>peg][debt][demand]: above peg the Field
// pays less, below peg it pays more, and high debt damps increases.
var temperatureTable = [2][4][3]int64{
	// below peg
	{
		{3, 3, 1},
		{3, 1, 0},
		{1, 0, -1},
		{0, -1, -3},
	},
	// above peg
	{
		{3, 1, 0},
		{1, 0, -1},
		{0, -1, -3},
		{0, -3, -3},
	},
}

// ratioTable by [l2sr]: abundant liquidity shifts seeds toward Bean deposits,
// scarce liquidity toward LP deposits.
var ratioTable = [4]int64{-2, -1, 1, 2}

// DefaultCases builds the case table. Excessive price always halves the
// ratio toward LP unless liquidity is already excessive.
func DefaultCases() [CaseCount]Case {
	var cases [CaseCount]Case
	for l2sr := 0; l2sr < 4; l2sr++ {
		for debt := 0; debt < 4; debt++ {
			for price := 0; price < 3; price++ {
				for demand := 0; demand < 3; demand++ {
					above := 0
					if price != PriceBelowPeg {
						above = 1
					}
					ratio := new(big.Int).Mul(big.NewInt(ratioTable[l2sr]), ratioOne)
					if price == PriceExcessive && l2sr != LevelExcessivelyHigh {
						ratio = new(big.Int).Mul(big.NewInt(-50), ratioOne)
					}
					coefficient := soilCoefficientHigh
					if debt >= LevelReasonablyHigh {
						coefficient = soilCoefficientLow
					}
					cases[CaseID(l2sr, debt, price, demand)] = Case{
						TemperatureDelta: temperatureTable[above][debt][demand] * percentOne,
						RatioDelta:       ratio,
						SoilCoefficient:  new(big.Int).Set(coefficient),
					}
				}
			}
		}
	}
	return cases
}
