package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ledger holds the ledger write-path instruments. A nil *Ledger is valid and
// records nothing.
type Ledger struct {
	expenses    prometheus.Counter
	settlements prometheus.Counter
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		expenses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "expenses_recorded_total",
			Help:      "Expenses committed to the ledger.",
		}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "settlements_recorded_total",
			Help:      "Debt rows settled to zero.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "ledger_tx_failures_total",
			Help:      "Ledger transactions rolled back, by operation.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitledger",
			Name:      "ledger_tx_duration_seconds",
			Help:      "Wall time of ledger transactions, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.expenses, m.settlements, m.failures, m.duration)
	return m
}

func (m *Ledger) ObserveTx(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(operation).Inc()
	}
}

func (m *Ledger) ExpenseRecorded() {
	if m == nil {
		return
	}
	m.expenses.Inc()
}

func (m *Ledger) SettlementsRecorded(n int) {
	if m == nil {
		return
	}
	m.settlements.Add(float64(n))
}
