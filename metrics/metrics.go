// Package metrics exposes the coordinator's and participant's Prometheus
// collectors. Neither the teacher nor the original Java source
// instruments this protocol; this follows the layout
// sushant-115/gojodb uses for its storage engine metrics. Metrics are
// observational only — they never gate a protocol decision.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Coordinator holds the coordinator role's collectors.
type Coordinator struct {
	VotesReceived        *prometheus.CounterVec
	DecisionsSent        *prometheus.CounterVec
	AcksReceived          prometheus.Counter
	TransactionsPreparing prometheus.Gauge
	TransactionsTerminal  *prometheus.CounterVec
}

// NewCoordinator registers and returns the coordinator's collectors
// against reg. Pass prometheus.NewRegistry() in tests to avoid polluting
// the global default registry.
func NewCoordinator(reg prometheus.Registerer) *Coordinator {
	f := promauto.With(reg)
	return &Coordinator{
		VotesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collagecommit_coordinator_votes_total",
			Help: "Votes received by the coordinator, labeled by vote outcome.",
		}, []string{"vote"}),
		DecisionsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collagecommit_coordinator_decisions_sent_total",
			Help: "COMMIT/ABORT messages sent to participants, labeled by decision.",
		}, []string{"decision"}),
		AcksReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "collagecommit_coordinator_acks_received_total",
			Help: "ACK messages received from participants.",
		}),
		TransactionsPreparing: f.NewGauge(prometheus.GaugeOpts{
			Name: "collagecommit_coordinator_transactions_preparing",
			Help: "Number of transactions currently in PREPARING.",
		}),
		TransactionsTerminal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collagecommit_coordinator_transactions_terminal_total",
			Help: "Transactions that reached a terminal state, labeled by outcome.",
		}, []string{"outcome"}),
	}
}

// Participant holds the participant role's collectors.
type Participant struct {
	PrepareVotes   *prometheus.CounterVec
	CommitsApplied prometheus.Counter
	AbortsApplied  prometheus.Counter
	LocksHeld      prometheus.Gauge
}

// NewParticipant registers and returns the participant role's collectors.
func NewParticipant(reg prometheus.Registerer) *Participant {
	f := promauto.With(reg)
	return &Participant{
		PrepareVotes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collagecommit_participant_prepare_votes_total",
			Help: "Votes cast on PREPARE, labeled by vote and reason.",
		}, []string{"vote", "reason"}),
		CommitsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "collagecommit_participant_commits_applied_total",
			Help: "COMMIT messages that resulted in source files being deleted.",
		}),
		AbortsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "collagecommit_participant_aborts_applied_total",
			Help: "ABORT messages processed.",
		}),
		LocksHeld: f.NewGauge(prometheus.GaugeOpts{
			Name: "collagecommit_participant_locks_held",
			Help: "Number of source files currently locked.",
		}),
	}
}

// Serve starts a background HTTP server exposing /metrics against reg.
// Used by cmd/coordinator and cmd/participant when given a non-empty
// metrics address; the returned error channel receives the ListenAndServe
// error, if any, once the server stops.
func Serve(addr string, reg *prometheus.Registry) <-chan error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	errCh := make(chan error, 1)
	go func() {
		errCh <- http.ListenAndServe(addr, mux)
	}()
	return errCh
}
