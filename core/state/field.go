package state

import (
	"math/big"
	"sort"

	"beanchain/crypto"
	"beanchain/native/field"
)

func fieldPlotKey(addr crypto.Address, index *big.Int) []byte {
	return joinKey(fieldPlotPrefix, addr.Bytes(), index.Bytes())
}

func (m *Manager) FieldGetStatus() (*field.Status, error) {
	status := new(field.Status)
	ok, err := m.KVGet(fieldStatusKey, status)
	if err != nil || !ok {
		return nil, err
	}
	return status, nil
}

func (m *Manager) FieldPutStatus(status *field.Status) error {
	return m.KVPut(fieldStatusKey, status)
}

// FieldGetPlot returns the pods of addr's plot starting at index.
func (m *Manager) FieldGetPlot(addr crypto.Address, index *big.Int) (*big.Int, bool, error) {
	pods := new(big.Int)
	ok, err := m.KVGet(fieldPlotKey(addr, index), pods)
	if err != nil || !ok {
		return nil, ok, err
	}
	return pods, true, nil
}

// FieldPutPlot stores a plot and keeps the account's index list sorted.
func (m *Manager) FieldPutPlot(addr crypto.Address, index, pods *big.Int) error {
	if err := m.KVPut(fieldPlotKey(addr, index), pods); err != nil {
		return err
	}
	indexes, err := m.FieldPlotIndexes(addr)
	if err != nil {
		return err
	}
	pos := sort.Search(len(indexes), func(i int) bool { return indexes[i].Cmp(index) >= 0 })
	if pos < len(indexes) && indexes[pos].Cmp(index) == 0 {
		return nil
	}
	indexes = append(indexes, nil)
	copy(indexes[pos+1:], indexes[pos:])
	indexes[pos] = new(big.Int).Set(index)
	return m.KVPut(joinKey(fieldPlotIndexPrefix, addr.Bytes()), indexes)
}

func (m *Manager) FieldDeletePlot(addr crypto.Address, index *big.Int) error {
	if err := m.KVDelete(fieldPlotKey(addr, index)); err != nil {
		return err
	}
	indexes, err := m.FieldPlotIndexes(addr)
	if err != nil {
		return err
	}
	pos := sort.Search(len(indexes), func(i int) bool { return indexes[i].Cmp(index) >= 0 })
	if pos >= len(indexes) || indexes[pos].Cmp(index) != 0 {
		return nil
	}
	indexes = append(indexes[:pos], indexes[pos+1:]...)
	key := joinKey(fieldPlotIndexPrefix, addr.Bytes())
	if len(indexes) == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, indexes)
}

func (m *Manager) FieldPlotIndexes(addr crypto.Address) ([]*big.Int, error) {
	var indexes []*big.Int
	if err := m.KVGetList(joinKey(fieldPlotIndexPrefix, addr.Bytes()), &indexes); err != nil {
		return nil, err
	}
	return indexes, nil
}
