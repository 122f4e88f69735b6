package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLedgerCounters(t *testing.T) {
	m := NewLedger(prometheus.NewRegistry())

	m.ExpenseRecorded()
	m.ExpenseRecorded()
	m.SettlementsRecorded(3)
	m.ObserveTx("record_expense", time.Now(), nil)
	m.ObserveTx("settle_up", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(m.expenses); got != 2 {
		t.Errorf("expenses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.settlements); got != 3 {
		t.Errorf("settlements = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("settle_up")); got != 1 {
		t.Errorf("settle_up failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("record_expense")); got != 0 {
		t.Errorf("record_expense failures = %v, want 0", got)
	}
}

func TestNilLedgerIsSafe(t *testing.T) {
	var m *Ledger
	m.ExpenseRecorded()
	m.SettlementsRecorded(1)
	m.ObserveTx("record_expense", time.Now(), nil)
}
