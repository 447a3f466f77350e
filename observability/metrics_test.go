package observability

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"beanchain/core/types"
)

func TestSeasonRecordSunrise(t *testing.T) {
	m := Season()
	before := testutil.ToFloat64(m.shipments.WithLabelValues("silo"))
	m.RecordSunrise(SunriseSample{
		Season:    12,
		CaseID:    99,
		DeltaB:    big.NewInt(-250),
		Minted:    big.NewInt(0),
		Shipments: []Shipment{{Route: "silo", Accepted: big.NewInt(400)}},
		Excluded:  []string{"bean:weth"},
	})
	if got := testutil.ToFloat64(m.height); got != 12 {
		t.Fatalf("season gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.deltaB); got != -250 {
		t.Fatalf("deltaB gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.shipments.WithLabelValues("silo")) - before; got != 400 {
		t.Fatalf("silo shipment delta = %v", got)
	}
	if got := testutil.ToFloat64(m.excluded.WithLabelValues("BEAN:WETH")); got < 1 {
		t.Fatalf("excluded well not counted")
	}
}

func TestLedgerObserveOutcome(t *testing.T) {
	m := Ledger()
	ok := testutil.ToFloat64(m.operations.WithLabelValues("deposit", "success"))
	failed := testutil.ToFloat64(m.operations.WithLabelValues("deposit", "error"))
	m.Observe("deposit", time.Millisecond, nil)
	m.Observe("deposit", time.Millisecond, errors.New("boom"))
	if testutil.ToFloat64(m.operations.WithLabelValues("deposit", "success"))-ok != 1 {
		t.Fatalf("success not counted")
	}
	if testutil.ToFloat64(m.operations.WithLabelValues("deposit", "error"))-failed != 1 {
		t.Fatalf("error not counted")
	}
}

func TestEventsRecordTransfers(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.transfers.WithLabelValues("BEAN"))
	m.Record([]*types.Event{
		nil,
		{Type: "bank.transfer", Attributes: map[string]string{"token": "bean"}},
		{Type: "silo.deposit.added"},
	})
	if got := testutil.ToFloat64(m.transfers.WithLabelValues("BEAN")) - before; got != 1 {
		t.Fatalf("transfer delta = %v", got)
	}
}

func TestBigToFloatHandlesNil(t *testing.T) {
	if bigToFloat(nil) != 0 {
		t.Fatalf("nil should map to zero")
	}
}
