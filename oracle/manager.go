package oracle

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"beanchain/core/types"
	"beanchain/observability"
	"beanchain/oracle/storage"
)

// Quote is one source's USD price for a token.
type Quote struct {
	Price     *big.Rat
	Timestamp time.Time
}

// Source resolves USD prices for pair tokens.
type Source interface {
	Name() string
	Fetch(ctx context.Context, token string) (Quote, error)
}

// Recorder persists samples and medians. *storage.Storage implements it.
type Recorder interface {
	RecordSample(ctx context.Context, token, source, price string, observed, recorded time.Time) error
	RecordSnapshot(ctx context.Context, snap storage.Snapshot) error
}

// Manager polls every source for every token, takes the median of the fresh
// quotes and publishes it to the feed.
type Manager struct {
	logger   *slog.Logger
	recorder Recorder
	feed     *Feed
	sources  []Source
	tokens   []string
	minFeeds int
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
	once     sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a manager publishing into feed.
func NewManager(feed *Feed, sources []Source, tokens []string, interval, maxAge time.Duration, minFeeds int, opts ...Option) (*Manager, error) {
	if feed == nil {
		return nil, fmt.Errorf("feed required")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source required")
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("at least one token required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if maxAge <= 0 {
		maxAge = time.Minute
	}
	if minFeeds <= 0 {
		minFeeds = 1
	}
	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if t := types.NormalizeToken(token); t != "" {
			normalized = append(normalized, t)
		}
	}
	mgr := &Manager{
		logger:   slog.Default(),
		feed:     feed,
		sources:  append([]Source{}, sources...),
		tokens:   normalized,
		interval: interval,
		maxAge:   maxAge,
		minFeeds: minFeeds,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(mgr)
		}
	}
	return mgr, nil
}

// Run blocks, polling sources until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("manager not configured")
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.once.Do(func() {
		m.logger.Info("oracle manager started", "sources", len(m.sources), "tokens", m.tokens)
	})
	for {
		if err := m.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("oracle tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one aggregation cycle. Every token is attempted; the first error
// is returned.
func (m *Manager) Tick(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("manager not configured")
	}
	var first error
	for _, token := range m.tokens {
		if err := m.processToken(ctx, token); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Manager) processToken(ctx context.Context, token string) error {
	now := m.now()
	quotes := make([]*big.Rat, 0, len(m.sources))
	feeders := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		if src == nil {
			continue
		}
		q, err := src.Fetch(ctx, token)
		if err != nil {
			m.logger.Warn("oracle source failed", "source", src.Name(), "token", token, "error", err)
			continue
		}
		if q.Price == nil || q.Price.Sign() <= 0 {
			m.logger.Warn("oracle source returned invalid price", "source", src.Name(), "token", token)
			continue
		}
		if q.Timestamp.After(now.Add(5 * time.Second)) {
			m.logger.Warn("oracle source produced future timestamp", "source", src.Name(), "token", token)
			continue
		}
		if q.Timestamp.Before(now.Add(-m.maxAge)) {
			m.logger.Warn("oracle quote expired", "source", src.Name(), "token", token)
			continue
		}
		feeders = append(feeders, src.Name())
		quotes = append(quotes, new(big.Rat).Set(q.Price))
		if m.recorder != nil {
			if err := m.recorder.RecordSample(ctx, token, src.Name(), q.Price.FloatString(6), q.Timestamp, now); err != nil {
				m.logger.Warn("oracle record sample", "error", err)
			}
		}
	}
	if len(quotes) < m.minFeeds {
		observability.Oracle().RecordFailure(token)
		return fmt.Errorf("insufficient oracle feeds for %s: %d < %d", token, len(quotes), m.minFeeds)
	}
	median := computeMedian(quotes)
	if median == nil || median.Sign() <= 0 {
		return fmt.Errorf("median computation failed for %s", token)
	}
	scaled := toPrecision(median)
	if m.recorder != nil {
		snap := storage.Snapshot{
			Token:       token,
			MedianPrice: scaled.String(),
			Feeders:     feeders,
			ProofID:     proofID(token, feeders, now),
			ObservedAt:  now,
		}
		if err := m.recorder.RecordSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("record snapshot: %w", err)
		}
	}
	if err := m.feed.Publish(token, scaled, now); err != nil {
		observability.Oracle().RecordFailure(token)
		return err
	}
	observability.Oracle().RecordPrice(token, scaled, 0)
	return nil
}

func toPrecision(price *big.Rat) *big.Int {
	scaled := new(big.Rat).Mul(price, new(big.Rat).SetInt64(PricePrecision))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}

func computeMedian(quotes []*big.Rat) *big.Rat {
	if len(quotes) == 0 {
		return nil
	}
	sorted := append([]*big.Rat(nil), quotes...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cmp(sorted[j]) < 0
	})
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return new(big.Rat).Set(sorted[mid])
	}
	sum := new(big.Rat).Add(sorted[mid-1], sorted[mid])
	return sum.Quo(sum, big.NewRat(2, 1))
}

func proofID(token string, feeders []string, ts time.Time) string {
	digest := blake3.New(32, nil)
	digest.Write([]byte(strings.ToUpper(strings.TrimSpace(token))))
	digest.Write([]byte(ts.UTC().Format(time.RFC3339Nano)))
	sorted := append([]string{}, feeders...)
	sort.Strings(sorted)
	for _, f := range sorted {
		digest.Write([]byte(strings.ToLower(strings.TrimSpace(f))))
	}
	return hex.EncodeToString(digest.Sum(nil))
}
