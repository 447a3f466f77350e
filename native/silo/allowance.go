package silo

import (
	"math/big"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/crypto"
)

// Allowance returns how much of owner's token deposits spender may move.
func (e *Engine) Allowance(owner, spender crypto.Address, token string) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	amount, err := e.state.SiloGetAllowance(owner, spender, types.NormalizeToken(token))
	if err != nil {
		return nil, err
	}
	return cloneInt(amount), nil
}

// Approve sets the deposit allowance of spender to amount.
func (e *Engine) Approve(owner, spender crypto.Address, token string, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if spender.IsZero() {
		return coreerrors.ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	if _, err := e.asset(token); err != nil {
		return err
	}
	return e.setAllowance(owner, spender, types.NormalizeToken(token), new(big.Int).Set(amount))
}

// IncreaseAllowance grows the deposit allowance of spender by amount.
func (e *Engine) IncreaseAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if spender.IsZero() {
		return coreerrors.ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	token = types.NormalizeToken(token)
	if _, err := e.asset(token); err != nil {
		return err
	}
	current, err := e.Allowance(owner, spender, token)
	if err != nil {
		return err
	}
	return e.setAllowance(owner, spender, token, current.Add(current, amount))
}

// DecreaseAllowance shrinks the deposit allowance of spender by amount and
// fails with ErrAllowanceUnderflow when it would go negative.
func (e *Engine) DecreaseAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	token = types.NormalizeToken(token)
	current, err := e.Allowance(owner, spender, token)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return coreerrors.ErrAllowanceUnderflow
	}
	return e.setAllowance(owner, spender, token, current.Sub(current, amount))
}

func (e *Engine) spendAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	current, err := e.Allowance(owner, spender, token)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientAllowance
	}
	return e.setAllowance(owner, spender, token, current.Sub(current, amount))
}

func (e *Engine) setAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	if err := e.state.SiloPutAllowance(owner, spender, token, amount); err != nil {
		return err
	}
	e.emitter.Emit(events.DepositApproval{Owner: owner, Spender: spender, Token: token, Amount: new(big.Int).Set(amount)})
	return nil
}
