package oracle

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
)

// PricePrecision scales every USD price held by the feed.
const PricePrecision = 1_000_000

// DefaultMaxAge is how long a published price stays usable.
const DefaultMaxAge = 15 * time.Minute

type observation struct {
	price *big.Int
	at    time.Time
}

// Feed holds the latest USD price of each pair token. The manager writes it
// from its polling goroutine while the ledger reads it during sunrise.
type Feed struct {
	mu       sync.RWMutex
	prices   map[string]observation
	maxAge   time.Duration
	override bool
	now      func() time.Time
}

func NewFeed(maxAge time.Duration) *Feed {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Feed{prices: make(map[string]observation), maxAge: maxAge, now: time.Now}
}

// SetClock replaces the wall clock used for staleness checks.
func (f *Feed) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// SetTimeoutOverride lets operators keep using the last published prices
// after they go stale.
func (f *Feed) SetTimeoutOverride(enabled bool) {
	f.mu.Lock()
	f.override = enabled
	f.mu.Unlock()
}

func (f *Feed) TimeoutOverride() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.override
}

// Publish records price (USD, 1e6) for token observed at the given time.
func (f *Feed) Publish(token string, price *big.Int, at time.Time) error {
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("oracle: invalid price for %s", token)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[types.NormalizeToken(token)] = observation{price: new(big.Int).Set(price), at: at}
	return nil
}

// Price returns the latest usable price of token.
func (f *Feed) Price(token string) (*big.Int, error) {
	token = types.NormalizeToken(token)
	f.mu.RLock()
	defer f.mu.RUnlock()
	obs, ok := f.prices[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrNoPrice, token)
	}
	if !f.override && f.now().Sub(obs.at) > f.maxAge {
		return nil, fmt.Errorf("%w: %s last updated %s", coreerrors.ErrStaleOracle, token, obs.at.UTC().Format(time.RFC3339))
	}
	return new(big.Int).Set(obs.price), nil
}

// Observation describes one feed entry for the read API.
type Observation struct {
	Token     string    `json:"token"`
	Price     string    `json:"price"`
	UpdatedAt time.Time `json:"updatedAt"`
	Stale     bool      `json:"stale"`
}

// Snapshot lists every token the feed has seen, ordered by symbol.
func (f *Feed) Snapshot() []Observation {
	f.mu.RLock()
	defer f.mu.RUnlock()
	now := f.now()
	out := make([]Observation, 0, len(f.prices))
	for token, obs := range f.prices {
		out = append(out, Observation{
			Token:     token,
			Price:     obs.price.String(),
			UpdatedAt: obs.at.UTC(),
			Stale:     now.Sub(obs.at) > f.maxAge,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}
