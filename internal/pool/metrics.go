package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the pool program.
type Metrics struct {
	instructionDuration *prometheus.HistogramVec
	instructionsTotal   *prometheus.CounterVec
	poolsCreated        prometheus.Counter
	depositedAmount     *prometheus.CounterVec
	receiptHoldings     prometheus.Counter
}

// NewMetrics creates and registers the metrics for the program.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		instructionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poolvault_instruction_duration_seconds",
			Help:    "Time taken to execute an instruction, including the store transaction.",
			Buckets: prometheus.DefBuckets,
		}, []string{"instruction"}),
		instructionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poolvault_instructions_total",
			Help: "Instructions executed, labeled by instruction and result.",
		}, []string{"instruction", "result"}),
		poolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poolvault_pools_created_total",
			Help: "Pools created.",
		}),
		depositedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poolvault_deposited_amount_total",
			Help: "Base units deposited, labeled by pool id.",
		}, []string{"pool_id"}),
		receiptHoldings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poolvault_receipt_holdings_created_total",
			Help: "Receipt holdings provisioned during deposits.",
		}),
	}
	reg.MustRegister(m.instructionDuration, m.instructionsTotal, m.poolsCreated, m.depositedAmount, m.receiptHoldings)
	return m
}
