package state

import (
	"fmt"
	"math/big"

	"beanchain/crypto"
)

func bankBalanceKey(token string, addr crypto.Address) []byte {
	return joinKey(bankBalancePrefix, []byte(normalizeToken(token)), addr.Bytes())
}

// BankBalance returns the token balance of addr. Missing entries default to
// zero.
func (m *Manager) BankBalance(token string, addr crypto.Address) (*big.Int, error) {
	if m == nil {
		return nil, fmt.Errorf("state manager unavailable")
	}
	if normalizeToken(token) == "" {
		return nil, fmt.Errorf("token symbol required")
	}
	balance := new(big.Int)
	ok, err := m.KVGet(bankBalanceKey(token, addr), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// BankSetBalance overwrites the token balance of addr. Zero balances are
// removed from state.
func (m *Manager) BankSetBalance(token string, addr crypto.Address, amount *big.Int) error {
	if normalizeToken(token) == "" {
		return fmt.Errorf("token symbol required")
	}
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(bankBalanceKey(token, addr))
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("token %s balance cannot be negative", normalizeToken(token))
	}
	return m.KVPut(bankBalanceKey(token, addr), amount)
}

// BankSupply returns the persisted total supply for the provided token.
// Missing entries default to zero.
func (m *Manager) BankSupply(token string) (*big.Int, error) {
	if m == nil {
		return nil, fmt.Errorf("state manager unavailable")
	}
	if normalizeToken(token) == "" {
		return nil, fmt.Errorf("token symbol required")
	}
	total := new(big.Int)
	ok, err := m.KVGet(tokenKey(bankSupplyPrefix, token), total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// BankSetSupply overwrites the stored total supply for the token.
func (m *Manager) BankSetSupply(token string, amount *big.Int) error {
	normalized := normalizeToken(token)
	if normalized == "" {
		return fmt.Errorf("token symbol required")
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("token %s supply cannot be negative", normalized)
	}
	return m.KVPut(tokenKey(bankSupplyPrefix, normalized), amount)
}
