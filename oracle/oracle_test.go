package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coreerrors "beanchain/core/errors"
	"beanchain/native/well"
	"beanchain/oracle/storage"
)

func TestFeedStalenessAndOverride(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	now := base
	feed := NewFeed(time.Minute)
	feed.SetClock(func() time.Time { return now })

	if _, err := feed.Price("WETH"); !errors.Is(err, coreerrors.ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
	require.NoError(t, feed.Publish("weth", big.NewInt(2_000_000_000), base))
	price, err := feed.Price("WETH")
	require.NoError(t, err)
	require.Equal(t, "2000000000", price.String())

	now = base.Add(2 * time.Minute)
	if _, err := feed.Price("WETH"); !errors.Is(err, coreerrors.ErrStaleOracle) {
		t.Fatalf("expected ErrStaleOracle, got %v", err)
	}
	feed.SetTimeoutOverride(true)
	if _, err := feed.Price("WETH"); err != nil {
		t.Fatalf("override should serve stale price: %v", err)
	}
	snap := feed.Snapshot()
	require.Len(t, snap, 1)
	require.True(t, snap[0].Stale)

	if err := feed.Publish("WETH", big.NewInt(0), base); err == nil {
		t.Fatalf("expected zero price to be rejected")
	}
}

func staticSource(t *testing.T, name, price string) Source {
	t.Helper()
	src, err := NewStaticSource(name, map[string]string{"WETH": price})
	require.NoError(t, err)
	return src
}

type failingSource struct{}

func (failingSource) Name() string { return "down" }

func (failingSource) Fetch(context.Context, string) (Quote, error) {
	return Quote{}, errors.New("unreachable")
}

func TestManagerPublishesMedian(t *testing.T) {
	store, err := storage.Open("file:oracle_manager_test?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	feed := NewFeed(time.Hour)
	sources := []Source{
		staticSource(t, "a", "2000"),
		staticSource(t, "b", "2100.5"),
		staticSource(t, "c", "5000"),
		failingSource{},
	}
	mgr, err := NewManager(feed, sources, []string{"weth"}, time.Second, time.Minute, 3, WithRecorder(store))
	require.NoError(t, err)
	require.NoError(t, mgr.Tick(context.Background()))

	price, err := feed.Price("WETH")
	require.NoError(t, err)
	require.Equal(t, "2100500000", price.String())

	snap, err := store.LatestSnapshot(context.Background(), "WETH")
	require.NoError(t, err)
	require.Equal(t, "2100500000", snap.MedianPrice)
	require.Len(t, snap.Feeders, 3)
	require.Len(t, snap.ProofID, 64)
}

func TestManagerRequiresQuorum(t *testing.T) {
	feed := NewFeed(time.Hour)
	mgr, err := NewManager(feed, []Source{staticSource(t, "a", "1"), failingSource{}}, []string{"WETH"}, time.Second, time.Minute, 2)
	require.NoError(t, err)
	if err := mgr.Tick(context.Background()); err == nil {
		t.Fatalf("expected quorum failure")
	}
	if _, err := feed.Price("WETH"); !errors.Is(err, coreerrors.ErrNoPrice) {
		t.Fatalf("nothing should be published, got %v", err)
	}
}

func TestMedianEvenCount(t *testing.T) {
	median := computeMedian([]*big.Rat{big.NewRat(2100, 1), big.NewRat(2000, 1)})
	require.Equal(t, "2050", median.RatString())
}

func TestCoinGeckoSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "weth" {
			http.Error(w, "unknown id", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]map[string]interface{}{
			"weth": {"usd": 2456.78, "last_updated_at": 1_700_000_000},
		})
	}))
	defer server.Close()

	src, err := BuildSource(server.Client(), SourceConfig{Type: "coingecko", Endpoint: server.URL, Assets: map[string]string{"WETH": "weth"}})
	require.NoError(t, err)
	quote, err := src.Fetch(context.Background(), "weth")
	require.NoError(t, err)
	require.Equal(t, "2456.78", quote.Price.FloatString(2))
	require.Equal(t, int64(1_700_000_000), quote.Timestamp.Unix())

	if _, err := BuildSource(nil, SourceConfig{Type: "chainlink"}); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

type stubPools map[string]*well.Pool

func (s stubPools) Pool(token string) (*well.Pool, error) {
	pool, ok := s[token]
	if !ok {
		return nil, coreerrors.ErrUnknownPool
	}
	return pool.Clone(), nil
}

func TestAdapterPricesWell(t *testing.T) {
	oneWeth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	pools := stubPools{"BEANWETH": {
		Token:        "BEANWETH",
		PairToken:    "WETH",
		PairDecimals: 18,
		BeanReserve:  big.NewInt(1_000_000_000),
		PairReserve:  oneWeth,
		LPSupply:     big.NewInt(1_000),
	}}
	now := time.Unix(1_700_000_000, 0)
	feed := NewFeed(time.Minute)
	feed.SetClock(func() time.Time { return now })
	adapter := NewAdapter(pools, feed)

	require.NoError(t, feed.Publish("WETH", big.NewInt(4_000_000_000), now))
	delta, err := adapter.GetDeltaB("BEANWETH")
	require.NoError(t, err)
	require.Equal(t, "1000000000", delta.String())
	price, err := adapter.GetPrice("BEANWETH")
	require.NoError(t, err)
	require.Equal(t, "4000000", price.String())
	liquidity, err := adapter.GetLiquidity("BEANWETH")
	require.NoError(t, err)
	require.Equal(t, "4000000000", liquidity.String())
	bdv, err := adapter.LPBdv("BEANWETH", big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, "2000000000", bdv.String())

	now = now.Add(time.Hour)
	if _, err := adapter.GetDeltaB("BEANWETH"); !errors.Is(err, coreerrors.ErrStaleOracle) {
		t.Fatalf("expected stale oracle, got %v", err)
	}
	adapter.SetTimeoutOverride(true)
	if _, err := adapter.GetDeltaB("BEANWETH"); err != nil {
		t.Fatalf("override: %v", err)
	}
}
