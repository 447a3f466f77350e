package well

import (
	"math/big"

	"github.com/holiman/uint256"

	coreerrors "beanchain/core/errors"
)

// Pricing helpers take pairPrice as the USD value of one whole pair token
// scaled by 1e6.

func pegReserve(pool *Pool, pairPrice *big.Int) (*uint256.Int, error) {
	if pairPrice == nil || pairPrice.Sign() <= 0 {
		return nil, coreerrors.ErrNoPrice
	}
	bean, err := toU256(pool.BeanReserve)
	if err != nil {
		return nil, err
	}
	pair, err := toU256(pool.PairReserve)
	if err != nil {
		return nil, err
	}
	price, err := toU256(pairPrice)
	if err != nil {
		return nil, err
	}
	return beanAtPeg(bean, pair, price, pool.PairDecimals)
}

// DeltaB is the signed number of Beans the pool must absorb (negative) or
// release (positive) to trade at one dollar.
func DeltaB(pool *Pool, pairPrice *big.Int) (*big.Int, error) {
	pool.ensure()
	if pool.BeanReserve.Sign() == 0 || pool.PairReserve.Sign() == 0 {
		return big.NewInt(0), nil
	}
	target, err := pegReserve(pool, pairPrice)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(target.ToBig(), pool.BeanReserve), nil
}

// PairValue is the USD value (1e6) of the pool's pair reserve.
func PairValue(pool *Pool, pairPrice *big.Int) (*big.Int, error) {
	pool.ensure()
	if pairPrice == nil || pairPrice.Sign() <= 0 {
		return nil, coreerrors.ErrNoPrice
	}
	pair, err := toU256(pool.PairReserve)
	if err != nil {
		return nil, err
	}
	price, err := toU256(pairPrice)
	if err != nil {
		return nil, err
	}
	value, err := mulDiv(pair, price, pow10(pool.PairDecimals))
	if err != nil {
		return nil, err
	}
	return value.ToBig(), nil
}

// Price is the USD price of one Bean implied by the reserves, scaled by 1e6.
func Price(pool *Pool, pairPrice *big.Int) (*big.Int, error) {
	value, err := PairValue(pool, pairPrice)
	if err != nil {
		return nil, err
	}
	if pool.BeanReserve.Sign() == 0 {
		return big.NewInt(0), nil
	}
	v, err := toU256(value)
	if err != nil {
		return nil, err
	}
	bean, err := toU256(pool.BeanReserve)
	if err != nil {
		return nil, err
	}
	price, err := mulDiv(v, pricePrecision, bean)
	if err != nil {
		return nil, err
	}
	return price.ToBig(), nil
}

// LPBdv values lp shares at the peg reserve: 2 * pegReserve * lp / supply.
func LPBdv(pool *Pool, lp, pairPrice *big.Int) (*big.Int, error) {
	pool.ensure()
	if lp == nil || lp.Sign() < 0 {
		return nil, coreerrors.ErrInvalidAmount
	}
	if lp.Sign() == 0 || pool.LPSupply.Sign() == 0 {
		return big.NewInt(0), nil
	}
	target, err := pegReserve(pool, pairPrice)
	if err != nil {
		return nil, err
	}
	amount, err := toU256(lp)
	if err != nil {
		return nil, err
	}
	supply, err := toU256(pool.LPSupply)
	if err != nil {
		return nil, err
	}
	doubled := new(uint256.Int).Lsh(target, 1)
	bdv, err := mulDiv(doubled, amount, supply)
	if err != nil {
		return nil, err
	}
	return bdv.ToBig(), nil
}
