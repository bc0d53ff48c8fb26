package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTable struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeTable) Each(fn func(id string)) {
	f.mu.Lock()
	ids := append([]string(nil), f.ids...)
	f.mu.Unlock()
	for _, id := range ids {
		fn(id)
	}
}

type fakeCallbacks struct {
	mu        sync.Mutex
	expired   []string
	resends   []string
	expiredCh chan struct{}
}

func (f *fakeCallbacks) ExpireIfPreparing(ctx context.Context, id string) {
	f.mu.Lock()
	f.expired = append(f.expired, id)
	f.mu.Unlock()
	if f.expiredCh != nil {
		f.expiredCh <- struct{}{}
	}
}

func (f *fakeCallbacks) ResendDecision(ctx context.Context, id string) {
	f.mu.Lock()
	f.resends = append(f.resends, id)
	f.mu.Unlock()
}

func TestArmPrepareDeadlineFiresOnce(t *testing.T) {
	cb := &fakeCallbacks{expiredCh: make(chan struct{}, 1)}
	e := New(&fakeTable{}, cb, 20*time.Millisecond, time.Hour)

	e.ArmPrepareDeadline(context.Background(), "txn-1")

	select {
	case <-cb.expiredCh:
	case <-time.After(time.Second):
		t.Fatal("ExpireIfPreparing did not fire within the deadline")
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.Equal(t, []string{"txn-1"}, cb.expired)
}

func TestHeartbeatSweepsEveryTrackedTransaction(t *testing.T) {
	table := &fakeTable{ids: []string{"txn-1", "txn-2"}}
	cb := &fakeCallbacks{}
	e := New(table, cb, time.Hour, 15*time.Millisecond)

	e.Start(context.Background())
	defer e.Stop()

	require.Eventually(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.resends) >= 2
	}, time.Second, 10*time.Millisecond)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.Contains(t, cb.resends, "txn-1")
	require.Contains(t, cb.resends, "txn-2")
}

func TestStopHaltsTheSweeper(t *testing.T) {
	table := &fakeTable{ids: []string{"txn-1"}}
	cb := &fakeCallbacks{}
	e := New(table, cb, time.Hour, 10*time.Millisecond)

	e.Start(context.Background())
	require.Eventually(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.resends) > 0
	}, time.Second, 10*time.Millisecond)

	e.Stop()

	cb.mu.Lock()
	countAtStop := len(cb.resends)
	cb.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.Equal(t, countAtStop, len(cb.resends), "sweeper kept running after Stop")
}
