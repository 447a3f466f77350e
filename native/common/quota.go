package common

import (
	"errors"
	"math/big"
)

var ErrCapacityExhausted = errors.New("season capacity exhausted")

// CapacityUsage captures how much of a per-season allowance has been consumed.
type CapacityUsage struct {
	Season uint64
	Used   *big.Int
}

// Capacity defines an amount that may be consumed per season. A nil or
// non-positive MaxPerSeason disables the limit.
type Capacity struct {
	MaxPerSeason *big.Int
}

func (c Capacity) limited() bool {
	return c.MaxPerSeason != nil && c.MaxPerSeason.Sign() > 0
}

// Remaining reports the unconsumed capacity for the given season. Unlimited
// capacities return nil.
func (c Capacity) Remaining(season uint64, prev CapacityUsage) *big.Int {
	if !c.limited() {
		return nil
	}
	used := big.NewInt(0)
	if prev.Season == season && prev.Used != nil {
		used.Set(prev.Used)
	}
	remaining := new(big.Int).Sub(c.MaxPerSeason, used)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	return remaining
}

// TakeCapacity consumes up to want from the season allowance. The granted
// amount may be smaller than want when the allowance runs out. The returned
// usage reflects the updated counters.
func TakeCapacity(c Capacity, season uint64, prev CapacityUsage, want *big.Int) (CapacityUsage, *big.Int) {
	next := CapacityUsage{Season: season, Used: big.NewInt(0)}
	if prev.Season == season && prev.Used != nil {
		next.Used.Set(prev.Used)
	}
	if want == nil || want.Sign() <= 0 {
		return next, big.NewInt(0)
	}
	granted := new(big.Int).Set(want)
	if remaining := c.Remaining(season, prev); remaining != nil && granted.Cmp(remaining) > 0 {
		granted.Set(remaining)
	}
	next.Used.Add(next.Used, granted)
	return next, granted
}

// CheckCapacity consumes exactly want or fails without changing the counters.
func CheckCapacity(c Capacity, season uint64, prev CapacityUsage, want *big.Int) (CapacityUsage, error) {
	next, granted := TakeCapacity(c, season, prev, want)
	if want != nil && granted.Cmp(want) < 0 {
		return prev, ErrCapacityExhausted
	}
	return next, nil
}
