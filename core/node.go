package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"beanchain/core/events"
	"beanchain/core/state"
	"beanchain/core/types"
	"beanchain/crypto"
	"beanchain/native/bank"
	nativecommon "beanchain/native/common"
	"beanchain/native/convert"
	"beanchain/native/field"
	"beanchain/native/gauge"
	"beanchain/native/season"
	"beanchain/native/silo"
	"beanchain/native/well"
	"beanchain/observability"
	"beanchain/oracle"
	"beanchain/storage"
)

var errNilDatabase = errors.New("node: database must not be nil")

// ReportSink receives every committed season report, e.g. the history store.
type ReportSink interface {
	SaveReport(ctx context.Context, report *season.Report) error
}

// Options tune a Node. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Clock drives the season gate, the morning auction and oracle
	// staleness. Defaults to time.Now.
	Clock func() time.Time
	// Feed is shared with an oracle manager when prices are polled.
	Feed *oracle.Feed
	// Pauses is toggled by operators. A fresh set is created when nil.
	Pauses *nativecommon.PauseSet
}

// Node is the central controller, wiring all components together. Every
// mutating call takes the write lock, runs inside the state overlay and
// either commits all of its writes or none.
type Node struct {
	mu     sync.Mutex
	db     storage.Database
	state  *state.Manager
	buffer *events.Buffer
	pauses *nativecommon.PauseSet
	logger *slog.Logger
	now    func() time.Time
	tracer trace.Tracer

	bank    *bank.Engine
	well    *well.Engine
	feed    *oracle.Feed
	oracle  *oracle.Adapter
	silo    *silo.Engine
	field   *field.Engine
	gauge   *gauge.Engine
	season  *season.Engine
	convert *convert.Engine

	subMu   sync.RWMutex
	subs    map[uint64]chan []*types.Event
	nextSub uint64
	sink    ReportSink
}

// NewNode builds and wires every engine over db.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, errNilDatabase
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	feed := opts.Feed
	if feed == nil {
		feed = oracle.NewFeed(oracle.DefaultMaxAge)
		feed.SetClock(now)
	}
	pauses := opts.Pauses
	if pauses == nil {
		pauses = nativecommon.NewPauseSet()
	}

	n := &Node{
		db:      db,
		state:   state.NewManager(db),
		buffer:  &events.Buffer{},
		pauses:  pauses,
		logger:  logger,
		now:     now,
		tracer:  otel.Tracer("beanchain/core"),
		bank:    bank.NewEngine(),
		well:    well.NewEngine(),
		feed:    feed,
		silo:    silo.NewEngine(),
		field:   field.NewEngine(),
		gauge:   gauge.NewEngine(),
		season:  season.NewEngine(),
		convert: convert.NewEngine(),
		subs:    make(map[uint64]chan []*types.Event),
	}
	n.oracle = oracle.NewAdapter(n.well, feed)

	n.bank.SetState(n.state)
	n.bank.SetEmitter(n.buffer)

	n.well.SetState(n.state)
	n.well.SetBank(n.bank)
	n.well.SetEmitter(n.buffer)
	n.well.SetLogger(logger.With("component", "well"))

	n.silo.SetState(n.state)
	n.silo.SetBank(n.bank)
	n.silo.SetPauses(pauses)
	n.silo.SetEmitter(n.buffer)
	n.silo.SetLogger(logger.With("component", "silo"))
	if err := n.silo.RegisterBdv(oracle.BdvMethod, n.oracle.LPBdv); err != nil {
		return nil, err
	}

	n.field.SetState(n.state)
	n.field.SetBank(n.bank)
	n.field.SetPauses(pauses)
	n.field.SetEmitter(n.buffer)
	n.field.SetLogger(logger.With("component", "field"))

	n.gauge.SetState(n.state)
	n.gauge.SetSilo(n.silo)
	n.gauge.SetEmitter(n.buffer)
	n.gauge.SetLogger(logger.With("component", "gauge"))

	n.season.SetState(n.state)
	n.season.SetBank(n.bank)
	n.season.SetOracle(n.oracle)
	n.season.SetSilo(n.silo)
	n.season.SetField(n.field)
	n.season.SetGauge(n.gauge)
	n.season.SetWell(n.well)
	n.season.SetPauses(pauses)
	n.season.SetEmitter(n.buffer)
	n.season.SetLogger(logger.With("component", "season"))
	n.season.SetClock(now)
	n.field.SetMorning(n.season.Elapsed, field.DefaultPeakBps)

	n.convert.SetState(n.state)
	n.convert.SetSilo(n.silo)
	n.convert.SetWell(n.well)
	n.convert.SetPauses(pauses)
	n.convert.SetEmitter(n.buffer)
	n.convert.SetLogger(logger.With("component", "convert"))
	return n, nil
}

// SetReportSink installs the receiver of committed season reports.
func (n *Node) SetReportSink(sink ReportSink) {
	n.mu.Lock()
	n.sink = sink
	n.mu.Unlock()
}

// Feed exposes the price feed for the oracle manager.
func (n *Node) Feed() *oracle.Feed { return n.feed }

// Pauses exposes the operator pause switches.
func (n *Node) Pauses() *nativecommon.PauseSet { return n.pauses }

// Close releases the backing database.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closeSubscribers()
	return n.db.Close()
}

// apply runs fn as one atomic ledger operation.
func (n *Node) apply(op string, fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	err := n.applyLocked(fn)
	observability.Ledger().Observe(op, time.Since(start), err)
	if err != nil {
		n.logger.Debug("ledger operation reverted", "operation", op, "error", err)
	}
	return err
}

func (n *Node) applyLocked(fn func() error) error {
	if err := fn(); err != nil {
		n.state.Discard()
		n.buffer.Reset()
		return err
	}
	if err := n.state.Commit(); err != nil {
		n.state.Discard()
		n.buffer.Reset()
		return err
	}
	current, err := n.state.SeasonCurrent()
	if err != nil {
		current = 0
	}
	rendered := events.Render(current, n.buffer.Drain())
	observability.Events().Record(rendered)
	n.publish(rendered)
	return nil
}

// view runs a read under the lock so it never observes a half-applied
// overlay.
func (n *Node) view(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

// Subscribe streams rendered events of every committed operation. Slow
// subscribers drop batches rather than stall the ledger. The returned
// function cancels the subscription.
func (n *Node) Subscribe(buffer int) (<-chan []*types.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan []*types.Event, buffer)
	n.subMu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = ch
	n.subMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.subMu.Lock()
			if existing, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(existing)
			}
			n.subMu.Unlock()
		})
	}
}

func (n *Node) publish(evts []*types.Event) {
	if len(evts) == 0 {
		return
	}
	n.subMu.RLock()
	defer n.subMu.RUnlock()
	for id, ch := range n.subs {
		select {
		case ch <- evts:
		default:
			n.logger.Warn("event subscriber lagging, batch dropped", "subscriber", id, "events", len(evts))
		}
	}
}

func (n *Node) closeSubscribers() {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}

// Sunrise advances the season. A failed sunrise leaves the ledger exactly as
// it was, including the season number.
func (n *Node) Sunrise(ctx context.Context, caller crypto.Address) (*season.Report, error) {
	ctx, span := n.tracer.Start(ctx, "season.sunrise")
	defer span.End()
	var report *season.Report
	err := n.apply("sunrise", func() error {
		var err error
		report, err = n.season.Sunrise(caller)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("season", int64(report.Season)),
		attribute.Int("case_id", report.Evaluation.CaseID),
		attribute.String("minted", report.Minted.String()),
	)
	observability.Season().RecordSunrise(sunriseSample(report))
	n.mu.Lock()
	sink := n.sink
	n.mu.Unlock()
	if sink != nil {
		if err := sink.SaveReport(ctx, report); err != nil {
			n.logger.Error("persist season report", "season", report.Season, "error", err)
		}
	}
	return report, nil
}

func sunriseSample(r *season.Report) observability.SunriseSample {
	sample := observability.SunriseSample{
		Season:      r.Season,
		CaseID:      r.Evaluation.CaseID,
		DeltaB:      r.Evaluation.DeltaB,
		Price:       r.Evaluation.Price,
		Soil:        r.Soil,
		Temperature: r.Temperature,
		Minted:      r.Minted,
		Flood:       r.Flood != nil,
		Excluded:    r.Evaluation.Excluded,
	}
	for _, shipment := range r.Shipments {
		sample.Shipments = append(sample.Shipments, observability.Shipment{Route: shipment.Route, Accepted: shipment.Accepted})
	}
	return sample
}

// Convert moves a deposit along path (a single target token or a multi hop
// pipeline) and redeposits the result.
func (n *Node) Convert(ctx context.Context, addr crypto.Address, from string, stem silo.Stem, amount *big.Int, path []string, minOut *big.Int) (*convert.Result, error) {
	_, span := n.tracer.Start(ctx, "convert.pipeline", trace.WithAttributes(
		attribute.String("from", types.NormalizeToken(from)),
		attribute.StringSlice("path", path),
	))
	defer span.End()
	var result *convert.Result
	err := n.apply("convert", func() error {
		var err error
		result, err = n.convert.Pipeline(addr, from, stem, amount, path, minOut)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("direction", result.Direction.String()))
	return result, nil
}

// SetPaused pauses or resumes a module.
func (n *Node) SetPaused(module string, paused bool) error {
	switch module {
	case nativecommon.ModuleSilo, nativecommon.ModuleSeason, nativecommon.ModuleConvert, nativecommon.ModuleField:
	default:
		return fmt.Errorf("node: unknown module %q", module)
	}
	n.pauses.Set(module, paused)
	n.logger.Info("module pause updated", "module", module, "paused", paused)
	return nil
}

// SetOracleOverride keeps stale prices usable until cleared.
func (n *Node) SetOracleOverride(enabled bool) {
	n.oracle.SetTimeoutOverride(enabled)
	n.logger.Warn("oracle timeout override updated", "enabled", enabled)
}
