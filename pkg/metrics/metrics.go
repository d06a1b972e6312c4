package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TransactionsAppended counts ledger transactions by type and status
var TransactionsAppended = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_transactions_appended_total",
		Help: "Total number of transactions appended to the ledger",
	},
	[]string{"type", "status"},
)

// WithdrawalOutcomes counts withdrawal request terminal outcomes
var WithdrawalOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_withdrawal_outcomes_total",
		Help: "Total number of withdrawal requests reaching a terminal state",
	},
	[]string{"outcome"},
)

// OtpIssued counts issued one-time codes
var OtpIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "walletcore_otp_issued_total",
		Help: "Total number of one-time codes issued",
	},
)

// OtpValidationFailures counts failed code validations by reason
var OtpValidationFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_otp_validation_failures_total",
		Help: "Total number of failed one-time code validations",
	},
	[]string{"reason"},
)

// TransferLatency records latency distribution for wallet-to-wallet transfers
var TransferLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "walletcore_transfer_latency_seconds",
		Help:    "Latency in seconds to apply a wallet-to-wallet transfer",
		Buckets: prometheus.DefBuckets,
	},
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletcore_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletcore_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(TransactionsAppended, WithdrawalOutcomes)
	prometheus.MustRegister(OtpIssued, OtpValidationFailures, TransferLatency)
	prometheus.MustRegister(DBOpenConns, DBInUseConns)
}
