package field

import "math/big"

const (
	// MorningDuration is the number of seconds the morning auction lasts.
	MorningDuration = 600
	// MorningBlock is the auction step length in seconds.
	MorningBlock    = 12
	// DefaultPeakBps opens the auction at twice the steady temperature.
	DefaultPeakBps  = 20_000
	morningBlocks   = MorningDuration / MorningBlock
)

// morningScale[n] = log(2n+1)/log(2N+1) at 1e6 precision for N auction steps.
var morningScale = [morningBlocks]int64{
	0, 238046, 348731, 421637, 476092, 519573, 555770, 586777, 613898, 637998,
	659684, 679395, 697463, 714138, 729622, 744073, 757619, 770369, 782410, 793817,
	804653, 814973, 824824, 834246, 843275, 851944, 860279, 868305, 876044, 883517,
	890740, 897730, 904502, 911068, 917442, 923633, 929652, 935509, 941211, 946767,
	952185, 957470, 962629, 967668, 972593, 977408, 982119, 986729, 991244, 995666,
}

var scalePrecision = big.NewInt(1_000_000)

// MorningTemperature returns the temperature elapsed seconds after sunrise. It starts at peakBps/10000 times the steady temperature and decays
// logarithmically, reaching the steady value once the morning is over.
func MorningTemperature(temperature *big.Int, peakBps uint64, elapsed uint64) *big.Int {
	if temperature == nil {
		return big.NewInt(0)
	}
	if elapsed >= MorningDuration || peakBps <= 10_000 {
		return new(big.Int).Set(temperature)
	}
	peak := new(big.Int).Mul(temperature, new(big.Int).SetUint64(peakBps))
	peak.Quo(peak, big.NewInt(10_000))
	span := new(big.Int).Sub(peak, temperature)
	remaining := new(big.Int).Sub(scalePrecision, big.NewInt(morningScale[elapsed/MorningBlock]))
	bonus := span.Mul(span, remaining)
	bonus.Quo(bonus, scalePrecision)
	return bonus.Add(bonus, temperature)
}
