package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackcnote",
		Name:      "payment_callback_total",
		Help:      "Inbound gateway callbacks by gateway and verification result.",
	}, []string{"gateway", "result"})

	DepositCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackcnote",
		Name:      "deposit_credited_total",
		Help:      "Deposits credited to user wallets.",
	}, []string{"gateway"})

	DepositCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackcnote",
		Name:      "deposit_created_total",
		Help:      "Deposits initiated by users.",
	}, []string{"gateway"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blackcnote",
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of building payment requests against gateway APIs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gateway"})

	InterestPaid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blackcnote",
		Name:      "interest_payout_total",
		Help:      "Interest payouts made by the invest scheduler.",
	})

	TaskProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackcnote",
		Name:      "worker_task_total",
		Help:      "Background tasks processed by type and result.",
	}, []string{"type", "result"})
)

const (
	ResultSuccess  = "success"
	ResultPending  = "pending"
	ResultFailed   = "failed"
	ResultRejected = "rejected"
	ResultIgnored  = "ignored"
	ResultError    = "error"
)
