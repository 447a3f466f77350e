package well

import "math/big"

// Pool is a constant product Bean:pair liquidity pool. LP shares are a bank
// token named after the pool.
type Pool struct {
	// Token is the LP token symbol, e.g. BEANWETH.
	Token string
	// PairToken is the non-Bean side of the pool.
	PairToken    string
	PairDecimals uint8
	BeanReserve  *big.Int
	PairReserve  *big.Int
	LPSupply     *big.Int
	// FeeBps is charged on swap input.
	FeeBps uint64
}

func (p *Pool) ensure() {
	if p.BeanReserve == nil {
		p.BeanReserve = big.NewInt(0)
	}
	if p.PairReserve == nil {
		p.PairReserve = big.NewInt(0)
	}
	if p.LPSupply == nil {
		p.LPSupply = big.NewInt(0)
	}
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.BeanReserve = new(big.Int).Set(orZero(p.BeanReserve))
	out.PairReserve = new(big.Int).Set(orZero(p.PairReserve))
	out.LPSupply = new(big.Int).Set(orZero(p.LPSupply))
	return &out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// PoolParams configures a new pool.
type PoolParams struct {
	Token        string
	PairToken    string
	PairDecimals uint8
	FeeBps       uint64
}
