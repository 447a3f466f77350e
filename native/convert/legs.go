package convert

import (
	"errors"
	"fmt"
	"math/big"

	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
)

// leg swaps amount of from held by the silo into to. Beans enter a well as
// single sided liquidity; LP leaves a well as Beans. LP to LP goes through
// Beans.
func (e *Engine) leg(from, to string, amount *big.Int) (*big.Int, error) {
	if from == to {
		return nil, fmt.Errorf("%w: %s to itself inside a pipeline", coreerrors.ErrUnsupportedConvert, from)
	}
	custody := e.silo.Address()
	switch {
	case from == types.BeanToken:
		if err := e.isWell(to); err != nil {
			return nil, err
		}
		return e.well.AddLiquidity(custody, to, amount, big.NewInt(0), big.NewInt(0))
	case to == types.BeanToken:
		if err := e.isWell(from); err != nil {
			return nil, err
		}
		return e.well.RemoveLiquidityOneToken(custody, from, amount, types.BeanToken, big.NewInt(0))
	default:
		beans, err := e.leg(from, types.BeanToken, amount)
		if err != nil {
			return nil, err
		}
		return e.leg(types.BeanToken, to, beans)
	}
}

func (e *Engine) isWell(token string) error {
	if _, err := e.well.Pool(token); err != nil {
		if errors.Is(err, coreerrors.ErrUnknownPool) {
			return fmt.Errorf("%w: %s is not a well", coreerrors.ErrUnsupportedConvert, token)
		}
		return err
	}
	return nil
}
