package well

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var errOverflow = errors.New("well: arithmetic overflow")

var (
	basisPoints    = uint256.NewInt(10_000)
	pricePrecision = uint256.NewInt(1_000_000)
)

func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, errOverflow
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errOverflow
	}
	return out, nil
}

func mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, errOverflow
	}
	return out, nil
}

// mulDiv returns floor(a*b/d) with a 512-bit intermediate product.
func mulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil, errOverflow
	}
	return out, nil
}

func sqrt(v *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(v)
}

// sqrtUp rounds the root up so share pricing never favours the depositor.
func sqrtUp(v *uint256.Int) *uint256.Int {
	root := sqrt(v)
	sq := new(uint256.Int).Mul(root, root)
	if sq.Cmp(v) < 0 {
		root.AddUint64(root, 1)
	}
	return root
}

func pow10(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

// amountOut is the constant product output for amountIn after the fee.
func amountOut(reserveIn, reserveOut, amountIn *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if amountIn.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), nil
	}
	fee := uint256.NewInt(feeBps)
	afterFee, err := mulDiv(amountIn, new(uint256.Int).Sub(basisPoints, fee), basisPoints)
	if err != nil {
		return nil, err
	}
	denominator := new(uint256.Int).Add(reserveIn, afterFee)
	return mulDiv(reserveOut, afterFee, denominator)
}

// beanAtPeg is the Bean reserve that prices Bean at exactly one dollar for
// the pool's invariant: sqrt(bean * pair * pairPrice / 10^pairDecimals).
// pairPrice is the USD price of one pair token scaled by 1e6.
func beanAtPeg(bean, pair, pairPrice *uint256.Int, pairDecimals uint8) (*uint256.Int, error) {
	k, err := mul(bean, pair)
	if err != nil {
		return nil, err
	}
	scaled, err := mulDiv(k, pairPrice, pow10(pairDecimals))
	if err != nil {
		return nil, err
	}
	return sqrt(scaled), nil
}
