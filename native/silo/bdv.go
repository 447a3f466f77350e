package silo

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "beanchain/core/errors"
)

// BdvMethodBean values Beans one to one.
const BdvMethodBean = "bean"

// BdvFunc values amount of token in Beans. Implementations must be
// deterministic and monotonic in amount.
type BdvFunc func(token string, amount *big.Int) (*big.Int, error)

func beanBdv(_ string, amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(amount), nil
}

// RegisterBdv installs a named BDV function.
func (e *Engine) RegisterBdv(method string, fn BdvFunc) error {
	method = strings.TrimSpace(method)
	if method == "" || fn == nil {
		return fmt.Errorf("silo: invalid bdv registration %q", method)
	}
	e.bdv[method] = fn
	return nil
}

// BDV values amount of token using the asset's registered method.
func (e *Engine) BDV(token string, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, coreerrors.ErrInvalidAmount
	}
	asset, err := e.asset(token)
	if err != nil {
		return nil, err
	}
	fn, ok := e.bdv[asset.BdvMethod]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownBdvMethod, asset.BdvMethod)
	}
	bdv, err := fn(asset.Token, amount)
	if err != nil {
		return nil, fmt.Errorf("silo: bdv %s: %w", asset.Token, err)
	}
	if bdv == nil {
		return big.NewInt(0), nil
	}
	return bdv, nil
}
