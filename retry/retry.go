// Package retry implements the coordinator-only retry/timeout engine
// (spec.md §4.4): a PREPARE deadline per transaction and a periodic
// decision heartbeat that resends COMMIT/ABORT to any participant still
// outstanding in AckPending.
//
// Grounded on original_source/src/Server.java's
// startTransactionPreparingTimer (one thread per transaction, per-timer
// sleep) and checkingActionsComplete (one thread, 1s sleep loop
// resending decisions). This keeps a thread(goroutine)-per-transaction
// deadline — the design-note's single min-heap timer wheel is a scale
// optimization spec.md §9 offers, not a correctness requirement, and at
// the "up to four participants" scale this protocol targets a
// goroutine-per-pending-transaction is the plainer, still idiomatic,
// choice — and collapses the heartbeat into a single shared ticker.
package retry

import (
	"context"
	"time"
)

// Table is the subset of the coordinator's transaction table the engine
// needs: enumerate every transaction id currently tracked.
type Table interface {
	// Each calls fn once per transaction id currently in the table.
	// Iteration order is unspecified; concurrent inserts may or may not
	// be observed by a given call, which is fine since the sweep simply
	// runs again on the next tick.
	Each(fn func(id string))
}

// Callbacks are the actions the engine drives; the coordinator supplies
// these so this package has no dependency on package coordinator.
type Callbacks interface {
	// ExpireIfPreparing is called once per transaction, prepareDeadline
	// after that transaction was created. It should abort the
	// transaction if (and only if) it is still PREPARING.
	ExpireIfPreparing(ctx context.Context, id string)

	// ResendDecision is called every heartbeat tick, once per tracked
	// transaction. It should resend COMMIT/ABORT to every participant
	// still in that transaction's AckPending, and do nothing for
	// transactions not in COMMITTING/ABORTING.
	ResendDecision(ctx context.Context, id string)
}

// Engine runs the PREPARE-deadline timers and the decision heartbeat.
type Engine struct {
	table           Table
	cb              Callbacks
	prepareDeadline time.Duration
	heartbeat       time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an Engine. Call Start to begin the heartbeat sweep;
// ArmPrepareDeadline is called once per transaction by the coordinator
// when it enters PREPARING.
func New(table Table, cb Callbacks, prepareDeadline, heartbeat time.Duration) *Engine {
	return &Engine{table: table, cb: cb, prepareDeadline: prepareDeadline, heartbeat: heartbeat}
}

// ArmPrepareDeadline schedules a single ExpireIfPreparing call for id
// after the PREPARE deadline elapses.
func (e *Engine) ArmPrepareDeadline(ctx context.Context, id string) {
	time.AfterFunc(e.prepareDeadline, func() {
		e.cb.ExpireIfPreparing(ctx, id)
	})
}

// Start launches the single decision-heartbeat sweeper goroutine. It runs
// for the process lifetime, per spec.md §5 ("the retry sweeper itself is
// never cancelled during normal operation"); Stop is provided only so
// tests can tear it down deterministically.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.table.Each(func(id string) {
					e.cb.ResendDecision(ctx, id)
				})
			}
		}
	}()
}

// Stop cancels the heartbeat sweeper and waits for it to exit.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}
