package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinatorRegistersDistinctCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCoordinator(reg)

	m.VotesReceived.WithLabelValues("yes").Inc()
	m.DecisionsSent.WithLabelValues("commit").Inc()
	m.AcksReceived.Inc()
	m.TransactionsPreparing.Inc()
	m.TransactionsTerminal.WithLabelValues("committed").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 5)
}

func TestNewParticipantRegistersDistinctCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewParticipant(reg)

	m.PrepareVotes.WithLabelValues("yes", "").Inc()
	m.CommitsApplied.Inc()
	m.AbortsApplied.Inc()
	m.LocksHeld.Set(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)
}

func TestTwoRegistriesDoNotCollide(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	require.NotPanics(t, func() {
		NewCoordinator(reg1)
		NewCoordinator(reg2)
	})
}
