package state

import (
	"fmt"

	"beanchain/native/well"
)

func (m *Manager) WellGetPool(token string) (*well.Pool, bool, error) {
	pool := new(well.Pool)
	ok, err := m.KVGet(tokenKey(wellPoolPrefix, token), pool)
	if err != nil || !ok {
		return nil, ok, err
	}
	return pool, true, nil
}

// WellPutPool stores the pool and records its LP token in the pool list.
func (m *Manager) WellPutPool(pool *well.Pool) error {
	if pool == nil || normalizeToken(pool.Token) == "" {
		return fmt.Errorf("well pool token required")
	}
	if err := m.KVPut(tokenKey(wellPoolPrefix, pool.Token), pool); err != nil {
		return err
	}
	return m.KVAppend(wellPoolListKey, []byte(normalizeToken(pool.Token)))
}

func (m *Manager) WellPools() ([]string, error) {
	var raw [][]byte
	if err := m.KVGetList(wellPoolListKey, &raw); err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, token := range raw {
		out[i] = string(token)
	}
	return out, nil
}
