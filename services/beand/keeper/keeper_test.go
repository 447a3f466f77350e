package keeper

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	coreerrors "beanchain/core/errors"
	"beanchain/crypto"
	"beanchain/native/season"
)

type fakeNode struct {
	calls   int
	results []error
	callers []crypto.Address
}

func (f *fakeNode) Sunrise(_ context.Context, caller crypto.Address) (*season.Report, error) {
	f.calls++
	f.callers = append(f.callers, caller)
	if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return nil, err
		}
	}
	return &season.Report{Season: uint64(f.calls + 1), Minted: big.NewInt(0), Incentive: big.NewInt(5_000_000)}, nil
}

func TestTickReportsOnlyAdvancedSeasons(t *testing.T) {
	node := &fakeNode{results: []error{
		fmt.Errorf("sunrise: %w", coreerrors.ErrSeasonNotElapsed),
		nil,
		fmt.Errorf("boom"),
	}}
	caller := crypto.BytesToAddress([]byte{0x0a})
	k, err := New(node, caller, "@every 1m", nil)
	if err != nil {
		t.Fatalf("new keeper: %v", err)
	}
	if report := k.Tick(context.Background()); report != nil {
		t.Fatalf("expected no report while season is current")
	}
	report := k.Tick(context.Background())
	if report == nil || report.Season != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report := k.Tick(context.Background()); report != nil {
		t.Fatalf("expected failure to yield no report")
	}
	for _, c := range node.callers {
		if c != caller {
			t.Fatalf("sunrise called with %s", c)
		}
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New(&fakeNode{}, crypto.Address{}, "whenever", nil); err == nil {
		t.Fatalf("expected schedule error")
	}
	if _, err := New(nil, crypto.Address{}, "@hourly", nil); err == nil {
		t.Fatalf("expected node error")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	k, err := New(&fakeNode{}, crypto.Address{}, "@every 1h", nil)
	if err != nil {
		t.Fatalf("new keeper: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("unexpected run error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("keeper did not stop")
	}
}
