package bank

import (
	"errors"
	"math/big"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/crypto"
)

var errNilState = errors.New("bank engine: state not configured")

type engineState interface {
	BankBalance(token string, addr crypto.Address) (*big.Int, error)
	BankSetBalance(token string, addr crypto.Address, amount *big.Int) error
	BankSupply(token string) (*big.Int, error)
	BankSetSupply(token string, amount *big.Int) error
}

// Engine keeps fungible token balances for every asset the protocol touches:
// Beans, LP tokens and the non-Bean side of each well.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the sink for supply and transfer events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// BalanceOf returns the balance of addr in token.
func (e *Engine) BalanceOf(token string, addr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.BankBalance(types.NormalizeToken(token), addr)
}

// TotalSupply returns the circulating supply of token.
func (e *Engine) TotalSupply(token string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.BankSupply(types.NormalizeToken(token))
}

// Mint credits amount of token to addr and grows the supply.
func (e *Engine) Mint(token string, to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	token = types.NormalizeToken(token)
	balance, err := e.state.BankBalance(token, to)
	if err != nil {
		return err
	}
	supply, err := e.state.BankSupply(token)
	if err != nil {
		return err
	}
	if err := e.state.BankSetBalance(token, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	total := new(big.Int).Add(supply, amount)
	if err := e.state.BankSetSupply(token, total); err != nil {
		return err
	}
	e.emitter.Emit(events.Mint{Token: token, To: to, Amount: amount, Supply: total})
	return nil
}

// Burn debits amount of token from addr and shrinks the supply.
func (e *Engine) Burn(token string, from crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	token = types.NormalizeToken(token)
	balance, err := e.state.BankBalance(token, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	supply, err := e.state.BankSupply(token)
	if err != nil {
		return err
	}
	if err := e.state.BankSetBalance(token, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	total := new(big.Int).Sub(supply, amount)
	if total.Sign() < 0 {
		total.SetInt64(0)
	}
	if err := e.state.BankSetSupply(token, total); err != nil {
		return err
	}
	e.emitter.Emit(events.Burn{Token: token, From: from, Amount: amount, Supply: total})
	return nil
}

// Transfer moves amount of token between two accounts.
func (e *Engine) Transfer(token string, from, to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	token = types.NormalizeToken(token)
	fromBal, err := e.state.BankBalance(token, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	toBal, err := e.state.BankBalance(token, to)
	if err != nil {
		return err
	}
	if err := e.state.BankSetBalance(token, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	if err := e.state.BankSetBalance(token, to, new(big.Int).Add(toBal, amount)); err != nil {
		return err
	}
	e.emitter.Emit(events.Transfer{Token: token, From: from, To: to, Amount: amount})
	return nil
}
