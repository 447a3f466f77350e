package oracle

import (
	"math/big"

	"beanchain/native/well"
)

// BdvMethod is the silo BDV method name served by LPBdv.
const BdvMethod = "well"

// Pools resolves the well behind an LP token.
type Pools interface {
	Pool(token string) (*well.Pool, error)
}

// Adapter prices Bean liquidity by combining well reserves with the USD
// price of each well's pair token.
type Adapter struct {
	pools Pools
	feed  *Feed
}

func NewAdapter(pools Pools, feed *Feed) *Adapter {
	return &Adapter{pools: pools, feed: feed}
}

// Feed exposes the underlying price feed.
func (a *Adapter) Feed() *Feed { return a.feed }

// SetTimeoutOverride forwards the operator override to the feed.
func (a *Adapter) SetTimeoutOverride(enabled bool) { a.feed.SetTimeoutOverride(enabled) }

func (a *Adapter) pairPrice(lpToken string) (*well.Pool, *big.Int, error) {
	pool, err := a.pools.Pool(lpToken)
	if err != nil {
		return nil, nil, err
	}
	price, err := a.feed.Price(pool.PairToken)
	if err != nil {
		return nil, nil, err
	}
	return pool, price, nil
}

// GetDeltaB returns the Bean shortage (positive) or excess (negative) of the
// well behind lpToken. ErrStaleOracle when the pair price is stale.
func (a *Adapter) GetDeltaB(lpToken string) (*big.Int, error) {
	pool, price, err := a.pairPrice(lpToken)
	if err != nil {
		return nil, err
	}
	return well.DeltaB(pool, price)
}

// GetPrice returns the Bean price (USD, 1e6) in the well behind lpToken.
func (a *Adapter) GetPrice(lpToken string) (*big.Int, error) {
	pool, price, err := a.pairPrice(lpToken)
	if err != nil {
		return nil, err
	}
	return well.Price(pool, price)
}

// GetLiquidity returns the USD value (1e6) of the non-Bean side of the well.
func (a *Adapter) GetLiquidity(lpToken string) (*big.Int, error) {
	pool, price, err := a.pairPrice(lpToken)
	if err != nil {
		return nil, err
	}
	return well.PairValue(pool, price)
}

// LPBdv values LP shares in Beans. Its signature matches silo.BdvFunc.
func (a *Adapter) LPBdv(lpToken string, amount *big.Int) (*big.Int, error) {
	pool, price, err := a.pairPrice(lpToken)
	if err != nil {
		return nil, err
	}
	return well.LPBdv(pool, amount, price)
}
