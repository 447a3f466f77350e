package silo

import (
	"fmt"
	"math/big"
	"sort"
	"testing"

	coreerrors "beanchain/core/errors"
	"beanchain/crypto"
)

type mockState struct {
	season      uint64
	assets      map[string]*Asset
	order       []string
	accounts    map[crypto.Address]*Account
	crates      map[string]*Crate
	mow         map[string]*MowStatus
	totals      *Totals
	allowances  map[string]*big.Int
	germinating [2]map[crypto.Address]struct{}
}

func newMockState() *mockState {
	return &mockState{
		season:      1,
		assets:      make(map[string]*Asset),
		accounts:    make(map[crypto.Address]*Account),
		crates:      make(map[string]*Crate),
		mow:         make(map[string]*MowStatus),
		allowances:  make(map[string]*big.Int),
		germinating: [2]map[crypto.Address]struct{}{{}, {}},
	}
}

func crateKey(addr crypto.Address, token string, stem Stem) string {
	return fmt.Sprintf("%x/%s/%d", addr[:], token, stem)
}

func positionKey(addr crypto.Address, token string) string {
	return fmt.Sprintf("%x/%s", addr[:], token)
}

func (m *mockState) SeasonCurrent() (uint64, error) { return m.season, nil }

func (m *mockState) SiloGetAsset(token string) (*Asset, bool, error) {
	asset, ok := m.assets[token]
	if !ok {
		return nil, false, nil
	}
	return asset.Clone(), true, nil
}

func (m *mockState) SiloPutAsset(asset *Asset) error {
	if _, ok := m.assets[asset.Token]; !ok {
		m.order = append(m.order, asset.Token)
	}
	m.assets[asset.Token] = asset.Clone()
	return nil
}

func (m *mockState) SiloAssets() ([]string, error) {
	return append([]string(nil), m.order...), nil
}

func (m *mockState) SiloGetAccount(addr crypto.Address) (*Account, error) {
	account, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return cloneAccount(account), nil
}

func (m *mockState) SiloPutAccount(addr crypto.Address, account *Account) error {
	m.accounts[addr] = cloneAccount(account)
	return nil
}

func (m *mockState) SiloGetCrate(addr crypto.Address, token string, stem Stem) (*Crate, bool, error) {
	crate, ok := m.crates[crateKey(addr, token, stem)]
	if !ok {
		return nil, false, nil
	}
	return &Crate{Amount: cloneInt(crate.Amount), Bdv: cloneInt(crate.Bdv)}, true, nil
}

func (m *mockState) SiloPutCrate(addr crypto.Address, token string, stem Stem, crate *Crate) error {
	m.crates[crateKey(addr, token, stem)] = &Crate{Amount: cloneInt(crate.Amount), Bdv: cloneInt(crate.Bdv)}
	return nil
}

func (m *mockState) SiloDeleteCrate(addr crypto.Address, token string, stem Stem) error {
	delete(m.crates, crateKey(addr, token, stem))
	return nil
}

func (m *mockState) SiloCrateStems(addr crypto.Address, token string) ([]Stem, error) {
	prefix := positionKey(addr, token) + "/"
	var stems []Stem
	for key := range m.crates {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		var stem int64
		if _, err := fmt.Sscanf(key[len(prefix):], "%d", &stem); err != nil {
			return nil, err
		}
		stems = append(stems, Stem(stem))
	}
	sort.Slice(stems, func(i, j int) bool { return stems[i] < stems[j] })
	return stems, nil
}

func (m *mockState) SiloGetMowStatus(addr crypto.Address, token string) (*MowStatus, error) {
	status, ok := m.mow[positionKey(addr, token)]
	if !ok {
		return nil, nil
	}
	return &MowStatus{LastStem: status.LastStem, Bdv: cloneInt(status.Bdv)}, nil
}

func (m *mockState) SiloPutMowStatus(addr crypto.Address, token string, status *MowStatus) error {
	m.mow[positionKey(addr, token)] = &MowStatus{LastStem: status.LastStem, Bdv: cloneInt(status.Bdv)}
	return nil
}

func (m *mockState) SiloGetTotals() (*Totals, error) {
	return m.totals.Clone(), nil
}

func (m *mockState) SiloPutTotals(totals *Totals) error {
	m.totals = totals.Clone()
	return nil
}

func (m *mockState) SiloGetAllowance(owner, spender crypto.Address, token string) (*big.Int, error) {
	return cloneInt(m.allowances[positionKey(owner, token)+fmt.Sprintf("/%x", spender[:])]), nil
}

func (m *mockState) SiloPutAllowance(owner, spender crypto.Address, token string, amount *big.Int) error {
	m.allowances[positionKey(owner, token)+fmt.Sprintf("/%x", spender[:])] = cloneInt(amount)
	return nil
}

func (m *mockState) SiloGerminatingAccounts(bucket int) ([]crypto.Address, error) {
	out := make([]crypto.Address, 0, len(m.germinating[bucket]))
	for addr := range m.germinating[bucket] {
		out = append(out, addr)
	}
	return out, nil
}

func (m *mockState) SiloAddGerminatingAccount(bucket int, addr crypto.Address) error {
	m.germinating[bucket][addr] = struct{}{}
	return nil
}

func (m *mockState) SiloClearGerminatingAccounts(bucket int) error {
	m.germinating[bucket] = map[crypto.Address]struct{}{}
	return nil
}

func cloneAccount(a *Account) *Account {
	return &Account{
		Stalk:           cloneInt(a.Stalk),
		Roots:           cloneInt(a.Roots),
		GerminatingEven: cloneInt(a.GerminatingEven),
		GerminatingOdd:  cloneInt(a.GerminatingOdd),
		Plenty:          cloneInt(a.Plenty),
		PlentyPerRoot:   cloneInt(a.PlentyPerRoot),
	}
}

type mockBank struct {
	balances map[string]*big.Int
}

func newMockBank() *mockBank {
	return &mockBank{balances: make(map[string]*big.Int)}
}

func bankKey(token string, addr crypto.Address) string {
	return fmt.Sprintf("%s/%x", token, addr[:])
}

func (b *mockBank) balance(token string, addr crypto.Address) *big.Int {
	return cloneInt(b.balances[bankKey(token, addr)])
}

func (b *mockBank) Mint(token string, to crypto.Address, amount *big.Int) error {
	current := b.balance(token, to)
	b.balances[bankKey(token, to)] = current.Add(current, amount)
	return nil
}

func (b *mockBank) Transfer(token string, from, to crypto.Address, amount *big.Int) error {
	fromBal := b.balance(token, from)
	if fromBal.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	b.balances[bankKey(token, from)] = fromBal.Sub(fromBal, amount)
	toBal := b.balance(token, to)
	b.balances[bankKey(token, to)] = toBal.Add(toBal, amount)
	return nil
}

type fixture struct {
	t      *testing.T
	state  *mockState
	bank   *mockBank
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state := newMockState()
	state.totals = &Totals{}
	bank := newMockBank()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetBank(bank)
	engine.SetPlentyToken("WETH")
	if err := engine.RegisterBdv("two-thirds", func(_ string, amount *big.Int) (*big.Int, error) {
		return new(big.Int).Quo(new(big.Int).Mul(amount, big.NewInt(2)), big.NewInt(3)), nil
	}); err != nil {
		t.Fatalf("register bdv: %v", err)
	}
	return &fixture{t: t, state: state, bank: bank, engine: engine}
}

func (f *fixture) whitelist(token, method string, issued int64, rate uint64) {
	f.t.Helper()
	if _, err := f.engine.Whitelist(WhitelistParams{
		Token:                token,
		BdvMethod:            method,
		StalkIssuedPerBdv:    big.NewInt(issued),
		StalkEarnedPerSeason: rate,
	}); err != nil {
		f.t.Fatalf("whitelist %s: %v", token, err)
	}
}

func (f *fixture) fund(token string, addr crypto.Address, amount int64) {
	f.t.Helper()
	if err := f.bank.Mint(token, addr, big.NewInt(amount)); err != nil {
		f.t.Fatalf("fund: %v", err)
	}
}

func (f *fixture) deposit(addr crypto.Address, token string, amount int64) Stem {
	f.t.Helper()
	stem, err := f.engine.Deposit(addr, token, big.NewInt(amount))
	if err != nil {
		f.t.Fatalf("deposit: %v", err)
	}
	return stem
}

func (f *fixture) sunrise() {
	f.t.Helper()
	f.state.season++
	if err := f.engine.Sunrise(f.state.season); err != nil {
		f.t.Fatalf("sunrise %d: %v", f.state.season, err)
	}
}

func (f *fixture) account(addr crypto.Address) *Account {
	f.t.Helper()
	account, err := f.engine.account(addr)
	if err != nil {
		f.t.Fatalf("load account: %v", err)
	}
	return account
}

// assertConservation checks that every unit of stalk and every root held by
// accounts is reflected in the totals.
func (f *fixture) assertConservation() {
	f.t.Helper()
	totals, err := f.engine.totals()
	if err != nil {
		f.t.Fatalf("totals: %v", err)
	}
	stalk := big.NewInt(0)
	roots := big.NewInt(0)
	for _, account := range f.state.accounts {
		account.ensure()
		stalk.Add(stalk, account.Stalk)
		stalk.Add(stalk, account.TotalGerminating())
		roots.Add(roots, account.Roots)
	}
	if bean, ok := f.state.assets["BEAN"]; ok {
		stalk.Add(stalk, new(big.Int).Mul(totals.EarnedBeans, bean.StalkIssuedPerBdv))
	}
	want := new(big.Int).Add(totals.Stalk, totals.TotalGerminating())
	if stalk.Cmp(want) != 0 {
		f.t.Fatalf("stalk not conserved: accounts=%s totals=%s", stalk, want)
	}
	if roots.Cmp(totals.Roots) != 0 {
		f.t.Fatalf("roots not conserved: accounts=%s totals=%s", roots, totals.Roots)
	}
	if totals.Roots.Sign() > 0 && totals.Stalk.Sign() == 0 {
		f.t.Fatalf("roots without stalk")
	}
}

func testAddr(b byte) crypto.Address {
	var addr crypto.Address
	addr[19] = b
	return addr
}
