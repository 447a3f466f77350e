package state

import (
	"fmt"
	"math/big"
	"sort"

	"beanchain/crypto"
	"beanchain/native/silo"
)

func siloCrateKey(addr crypto.Address, token string, stem silo.Stem) []byte {
	return joinKey(siloCratePrefix, addr.Bytes(), []byte(normalizeToken(token)), int64Bytes(int64(stem)))
}

func siloAllowanceKey(owner, spender crypto.Address, token string) []byte {
	return joinKey(siloAllowancePrefix, owner.Bytes(), spender.Bytes(), []byte(normalizeToken(token)))
}

// SiloGetAsset loads the silo settings of token.
func (m *Manager) SiloGetAsset(token string) (*silo.Asset, bool, error) {
	asset := new(silo.Asset)
	ok, err := m.KVGet(tokenKey(siloAssetPrefix, token), asset)
	if err != nil || !ok {
		return nil, ok, err
	}
	return asset, true, nil
}

// SiloPutAsset stores the asset and appends new tokens to the whitelist
// order.
func (m *Manager) SiloPutAsset(asset *silo.Asset) error {
	if asset == nil || normalizeToken(asset.Token) == "" {
		return fmt.Errorf("silo asset token required")
	}
	if err := m.KVPut(tokenKey(siloAssetPrefix, asset.Token), asset); err != nil {
		return err
	}
	return m.KVAppend(siloAssetListKey, []byte(normalizeToken(asset.Token)))
}

// SiloAssets lists every token ever whitelisted in whitelist order.
func (m *Manager) SiloAssets() ([]string, error) {
	var raw [][]byte
	if err := m.KVGetList(siloAssetListKey, &raw); err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, token := range raw {
		out[i] = string(token)
	}
	return out, nil
}

func (m *Manager) SiloGetAccount(addr crypto.Address) (*silo.Account, error) {
	account := new(silo.Account)
	ok, err := m.KVGet(joinKey(siloAccountPrefix, addr.Bytes()), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return account, nil
}

func (m *Manager) SiloPutAccount(addr crypto.Address, account *silo.Account) error {
	return m.KVPut(joinKey(siloAccountPrefix, addr.Bytes()), account)
}

func (m *Manager) SiloGetCrate(addr crypto.Address, token string, stem silo.Stem) (*silo.Crate, bool, error) {
	crate := new(silo.Crate)
	ok, err := m.KVGet(siloCrateKey(addr, token, stem), crate)
	if err != nil || !ok {
		return nil, ok, err
	}
	return crate, true, nil
}

// SiloPutCrate stores a crate and keeps the per-position stem index sorted.
func (m *Manager) SiloPutCrate(addr crypto.Address, token string, stem silo.Stem, crate *silo.Crate) error {
	if err := m.KVPut(siloCrateKey(addr, token, stem), crate); err != nil {
		return err
	}
	stems, err := m.SiloCrateStems(addr, token)
	if err != nil {
		return err
	}
	idx := sort.Search(len(stems), func(i int) bool { return stems[i] >= stem })
	if idx < len(stems) && stems[idx] == stem {
		return nil
	}
	stems = append(stems, 0)
	copy(stems[idx+1:], stems[idx:])
	stems[idx] = stem
	return m.KVPut(addrTokenKey(siloStemIndexPrefix, addr, token), stems)
}

func (m *Manager) SiloDeleteCrate(addr crypto.Address, token string, stem silo.Stem) error {
	if err := m.KVDelete(siloCrateKey(addr, token, stem)); err != nil {
		return err
	}
	stems, err := m.SiloCrateStems(addr, token)
	if err != nil {
		return err
	}
	idx := sort.Search(len(stems), func(i int) bool { return stems[i] >= stem })
	if idx >= len(stems) || stems[idx] != stem {
		return nil
	}
	stems = append(stems[:idx], stems[idx+1:]...)
	key := addrTokenKey(siloStemIndexPrefix, addr, token)
	if len(stems) == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, stems)
}

// SiloCrateStems returns the stems of addr's token crates in ascending
// order.
func (m *Manager) SiloCrateStems(addr crypto.Address, token string) ([]silo.Stem, error) {
	var stems []silo.Stem
	if err := m.KVGetList(addrTokenKey(siloStemIndexPrefix, addr, token), &stems); err != nil {
		return nil, err
	}
	return stems, nil
}

func (m *Manager) SiloGetMowStatus(addr crypto.Address, token string) (*silo.MowStatus, error) {
	status := new(silo.MowStatus)
	ok, err := m.KVGet(addrTokenKey(siloMowPrefix, addr, token), status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return status, nil
}

func (m *Manager) SiloPutMowStatus(addr crypto.Address, token string, status *silo.MowStatus) error {
	return m.KVPut(addrTokenKey(siloMowPrefix, addr, token), status)
}

func (m *Manager) SiloGetTotals() (*silo.Totals, error) {
	totals := new(silo.Totals)
	ok, err := m.KVGet(siloTotalsKey, totals)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return totals, nil
}

func (m *Manager) SiloPutTotals(totals *silo.Totals) error {
	return m.KVPut(siloTotalsKey, totals)
}

// SiloGetAllowance returns the deposit allowance; missing entries are zero.
func (m *Manager) SiloGetAllowance(owner, spender crypto.Address, token string) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(siloAllowanceKey(owner, spender, token), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (m *Manager) SiloPutAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	key := siloAllowanceKey(owner, spender, token)
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, amount)
}

// SiloGerminatingAccounts lists the accounts holding stalk in a parity
// bucket.
func (m *Manager) SiloGerminatingAccounts(bucket int) ([]crypto.Address, error) {
	var raw [][]byte
	if err := m.KVGetList(germinatingKey(bucket), &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, len(raw))
	for i, addr := range raw {
		out[i] = crypto.BytesToAddress(addr)
	}
	return out, nil
}

func (m *Manager) SiloAddGerminatingAccount(bucket int, addr crypto.Address) error {
	return m.KVAppend(germinatingKey(bucket), addr.Bytes())
}

func (m *Manager) SiloClearGerminatingAccounts(bucket int) error {
	return m.KVDelete(germinatingKey(bucket))
}
