package events

import (
	"sync"

	"beanchain/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Renderable events expose the flattened attribute form used by the API.
type Renderable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events raised inside one ledger operation. The owner drains
// it after commit or resets it when the operation is reverted.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Drain returns and clears the buffered events.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Reset discards the buffered events.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Render converts events into their attribute form, skipping events that do
// not implement Renderable.
func Render(season uint64, evts []Event) []*types.Event {
	out := make([]*types.Event, 0, len(evts))
	for _, evt := range evts {
		r, ok := evt.(Renderable)
		if !ok {
			continue
		}
		rendered := r.Event()
		if rendered == nil {
			continue
		}
		if rendered.Season == 0 {
			rendered.Season = season
		}
		out = append(out, rendered)
	}
	return out
}
