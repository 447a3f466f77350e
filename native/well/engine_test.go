package well

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "beanchain/core/errors"
	"beanchain/crypto"
	"beanchain/native/bank"
)

type mockState struct {
	pools map[string]*Pool
}

func (m *mockState) WellGetPool(token string) (*Pool, bool, error) {
	pool, ok := m.pools[token]
	if !ok {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

func (m *mockState) WellPutPool(pool *Pool) error {
	m.pools[pool.Token] = pool.Clone()
	return nil
}

func (m *mockState) WellPools() ([]string, error) {
	out := make([]string, 0, len(m.pools))
	for token := range m.pools {
		out = append(out, token)
	}
	return out, nil
}

type bankState struct {
	balances map[string]*big.Int
	supply   map[string]*big.Int
}

func (b *bankState) BankBalance(token string, addr crypto.Address) (*big.Int, error) {
	if v, ok := b.balances[token+"/"+addr.String()]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (b *bankState) BankSetBalance(token string, addr crypto.Address, amount *big.Int) error {
	b.balances[token+"/"+addr.String()] = new(big.Int).Set(amount)
	return nil
}

func (b *bankState) BankSupply(token string) (*big.Int, error) {
	if v, ok := b.supply[token]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (b *bankState) BankSetSupply(token string, amount *big.Int) error {
	b.supply[token] = new(big.Int).Set(amount)
	return nil
}

var (
	lp       = crypto.BytesToAddress([]byte{0x01})
	trader   = crypto.BytesToAddress([]byte{0x02})
	wethUSD  = big.NewInt(1_000_000_000)
	oneWeth  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	rootSeed = big.NewInt(31622776601683)
)

func newTestEngine(t *testing.T, feeBps uint64) (*Engine, *bank.Engine) {
	t.Helper()
	b := bank.NewEngine()
	b.SetState(&bankState{balances: map[string]*big.Int{}, supply: map[string]*big.Int{}})
	e := NewEngine()
	e.SetState(&mockState{pools: map[string]*Pool{}})
	e.SetBank(b)
	if _, err := e.CreatePool(PoolParams{Token: "beanweth", PairToken: "weth", PairDecimals: 18, FeeBps: feeBps}); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	for _, addr := range []crypto.Address{lp, trader} {
		if err := b.Mint("BEAN", addr, big.NewInt(10_000_000_000)); err != nil {
			t.Fatalf("mint bean: %v", err)
		}
		if err := b.Mint("WETH", addr, new(big.Int).Mul(oneWeth, big.NewInt(10))); err != nil {
			t.Fatalf("mint weth: %v", err)
		}
	}
	minted, err := e.AddLiquidity(lp, "BEANWETH", big.NewInt(1_000_000_000), oneWeth, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if minted.Cmp(rootSeed) != 0 {
		t.Fatalf("seed lp = %s, want %s", minted, rootSeed)
	}
	return e, b
}

func TestCreatePoolValidation(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	if _, err := e.CreatePool(PoolParams{Token: "BEANWETH", PairToken: "WETH"}); !errors.Is(err, errPoolExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := e.CreatePool(PoolParams{Token: "BEAN3CRV", PairToken: "BEAN"}); !errors.Is(err, errInvalidPool) {
		t.Fatalf("expected invalid pool, got %v", err)
	}
	if _, err := e.CreatePool(PoolParams{Token: "BEANUSDC", PairToken: "USDC", FeeBps: 10_000}); !errors.Is(err, errFeeTooHigh) {
		t.Fatalf("expected fee error, got %v", err)
	}
	if _, err := e.Pool("NOPE"); !errors.Is(err, coreerrors.ErrUnknownPool) {
		t.Fatalf("expected unknown pool, got %v", err)
	}
}

func TestSwapAppliesFee(t *testing.T) {
	e, b := newTestEngine(t, 30)
	quoted, err := e.QuoteSwap("BEANWETH", "BEAN", big.NewInt(1_000_000_000))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	want, _ := new(big.Int).SetString("499248873309964947", 10)
	require.Equal(t, want.String(), quoted.String())

	if _, err := e.Swap(trader, "BEANWETH", "BEAN", big.NewInt(1_000_000_000), new(big.Int).Add(want, big.NewInt(1))); !errors.Is(err, coreerrors.ErrWellSlippage) {
		t.Fatalf("expected slippage error, got %v", err)
	}
	out, err := e.Swap(trader, "BEANWETH", "BEAN", big.NewInt(1_000_000_000), want)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	require.Equal(t, want.String(), out.String())

	pool, err := e.Pool("BEANWETH")
	require.NoError(t, err)
	require.Equal(t, "2000000000", pool.BeanReserve.String())
	require.Equal(t, new(big.Int).Sub(oneWeth, want).String(), pool.PairReserve.String())

	custody, err := b.BalanceOf("WETH", e.Address())
	require.NoError(t, err)
	require.Equal(t, pool.PairReserve.String(), custody.String())

	if _, err := e.QuoteSwap("BEANWETH", "USDC", big.NewInt(1)); !errors.Is(err, errWrongToken) {
		t.Fatalf("expected wrong token error, got %v", err)
	}
}

func TestLiquidityRoundTrip(t *testing.T) {
	e, b := newTestEngine(t, 0)
	minted, err := e.AddLiquidity(trader, "BEANWETH", big.NewInt(1_000_000_000), oneWeth, nil)
	require.NoError(t, err)
	require.Equal(t, "31622776601682", minted.String())

	bean, pair, err := e.RemoveLiquidity(trader, "BEANWETH", minted, nil, nil)
	require.NoError(t, err)
	require.True(t, bean.Cmp(big.NewInt(1_000_000_000)) <= 0)
	require.True(t, pair.Cmp(oneWeth) <= 0)

	lpBalance, err := b.BalanceOf("BEANWETH", trader)
	require.NoError(t, err)
	require.Equal(t, int64(0), lpBalance.Int64())

	pool, err := e.Pool("BEANWETH")
	require.NoError(t, err)
	require.Equal(t, rootSeed.String(), pool.LPSupply.String())
}

func TestRemoveLiquidityOneToken(t *testing.T) {
	e, b := newTestEngine(t, 0)
	half := new(big.Int).Rsh(rootSeed, 1)
	quoted, err := e.QuoteRemoveLiquidityOneToken("BEANWETH", half, "BEAN")
	require.NoError(t, err)
	require.Equal(t, "749999999", quoted.String())

	before, _ := b.BalanceOf("BEAN", lp)
	out, err := e.RemoveLiquidityOneToken(lp, "BEANWETH", half, "BEAN", quoted)
	require.NoError(t, err)
	after, _ := b.BalanceOf("BEAN", lp)
	require.Equal(t, out.String(), new(big.Int).Sub(after, before).String())

	pool, err := e.Pool("BEANWETH")
	require.NoError(t, err)
	require.Equal(t, oneWeth.String(), pool.PairReserve.String())
	require.Equal(t, "250000001", pool.BeanReserve.String())
}

func TestSingleSidedSeedRejected(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	if _, err := e.CreatePool(PoolParams{Token: "BEANUSDC", PairToken: "USDC", PairDecimals: 6}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.AddLiquidity(lp, "BEANUSDC", big.NewInt(100), nil, nil); !errors.Is(err, errEmptySeed) {
		t.Fatalf("expected seed error, got %v", err)
	}
}

func TestPricing(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	pool, err := e.Pool("BEANWETH")
	require.NoError(t, err)

	price, err := Price(pool, wethUSD)
	require.NoError(t, err)
	require.Equal(t, "1000000", price.String())

	delta, err := DeltaB(pool, wethUSD)
	require.NoError(t, err)
	require.Equal(t, int64(0), delta.Int64())

	// WETH at $4000 puts Bean at $4 and the pool 1000 Beans short.
	high := big.NewInt(4_000_000_000)
	delta, err = DeltaB(pool, high)
	require.NoError(t, err)
	require.Equal(t, "1000000000", delta.String())
	price, err = Price(pool, high)
	require.NoError(t, err)
	require.Equal(t, "4000000", price.String())

	bdv, err := LPBdv(pool, pool.LPSupply, wethUSD)
	require.NoError(t, err)
	require.Equal(t, "2000000000", bdv.String())

	if _, err := DeltaB(pool, nil); !errors.Is(err, coreerrors.ErrNoPrice) {
		t.Fatalf("expected missing price error, got %v", err)
	}
}
