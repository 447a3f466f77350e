package convert

import (
	"math/big"

	nativecommon "beanchain/native/common"
	"beanchain/native/silo"
)

// Direction classifies a convert against the gauge preference.
type Direction int

const (
	// Neutral converts keep grown stalk as is.
	Neutral Direction = iota
	// Up converts move toward the asset with the higher seed rate.
	Up
	// Down converts move toward the asset with the lower seed rate.
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "neutral"
	}
}

// Params tunes grown stalk adjustments.
type Params struct {
	// PenaltyBps of grown stalk is forfeited on a down convert.
	PenaltyBps uint64
	// BonusBps of grown stalk is added on an up convert, limited by
	// Capacity.
	BonusBps uint64
	// Capacity bounds the BDV per season that may earn the up bonus.
	Capacity nativecommon.Capacity
}

func DefaultParams() Params {
	return Params{PenaltyBps: 1000, BonusBps: 500}
}

// Result describes one completed convert.
type Result struct {
	Path       []string
	Direction  Direction
	Stem       silo.Stem
	FromAmount *big.Int
	ToAmount   *big.Int
	FromBdv    *big.Int
	ToBdv      *big.Int
	GrownIn    *big.Int
	GrownOut   *big.Int
	// Credited is the grown stalk carried by the new crate after stem
	// rounding.
	Credited *big.Int
}
