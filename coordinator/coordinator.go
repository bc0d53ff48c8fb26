// Package coordinator implements the coordinator role of the collage
// commit protocol: spec.md §4.1. Grounded on service/2pc_coordinator.go
// and service/coordinator.go, restructured from the teacher's generic
// key-value Put/Get/Gather API onto the spec's startCommit/vote/ack
// contract, and on original_source/src/Server.java for the exact phase
// semantics (log-then-write ordering, forced-abort-on-recovery).
package coordinator

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elenmora/collagecommit/domain"
	collagelog "github.com/elenmora/collagecommit/durablelog"
	applog "github.com/elenmora/collagecommit/log"
	"github.com/elenmora/collagecommit/metrics"
	"github.com/elenmora/collagecommit/retry"
	"github.com/elenmora/collagecommit/txn"
)

// ParticipantClient is what the coordinator needs to talk to one
// participant. rpc.ParticipantRemote satisfies this structurally; tests
// use an in-process fake.
type ParticipantClient interface {
	Prepare(ctx context.Context, txnId string, imageBytes []byte, filenames []string) error
	Commit(ctx context.Context, txnId string) error
	Abort(ctx context.Context, txnId string) error
}

// Fsyncer flushes previously written files to stable storage.
type Fsyncer interface {
	Fsync() error
}

// CompositeWriter writes the composite image to the coordinator's
// filesystem. The default implementation writes a plain file.
type CompositeWriter interface {
	Write(filename string, data []byte) error
}

type fileWriter struct{}

func (fileWriter) Write(filename string, data []byte) error {
	return os.WriteFile(filename, data, 0o644)
}

// Snapshot is the coordinator's durable-log payload: the transaction
// table plus the id counter, per spec.md §6.
type Snapshot struct {
	Epoch        string             `json:"epoch"`
	Counter      uint64             `json:"counter"`
	Transactions map[string]txn.View `json:"transactions"`
}

// Config configures a Coordinator.
type Config struct {
	LogPath         string
	PrepareDeadline time.Duration
	HeartbeatPeriod time.Duration
	Participants    map[string]ParticipantClient // address -> client
	Transport       Fsyncer
	Writer          CompositeWriter // nil uses the real filesystem
	Logger          applog.Logger   // nil uses a no-op logger
	Registerer      prometheus.Registerer
}

// Coordinator drives every collage commit through PREPARING ->
// COMMITTING/ABORTING -> COMMITTED/ABORTED.
type Coordinator struct {
	table   sync.Map // id -> *txn.Transaction
	counter uint64   // atomic
	epoch   string

	log          *collagelog.Log[Snapshot]
	transport    Fsyncer
	participants map[string]ParticipantClient
	writer       CompositeWriter
	logger       applog.Logger
	metrics      *metrics.Coordinator
	retryEngine  *retry.Engine

	prepareDeadline time.Duration
}

// New constructs a Coordinator. Call Recover before serving traffic.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.NewNoop()
	}
	writer := cfg.Writer
	if writer == nil {
		writer = fileWriter{}
	}
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Coordinator{
		epoch:           uuid.NewString(),
		log:             collagelog.New[Snapshot](cfg.LogPath),
		transport:       cfg.Transport,
		participants:    cfg.Participants,
		writer:          writer,
		logger:          logger,
		metrics:         metrics.NewCoordinator(reg),
		prepareDeadline: cfg.PrepareDeadline,
	}
	c.retryEngine = retry.New(tableAdapter{c}, callbacksAdapter{c}, cfg.PrepareDeadline, cfg.HeartbeatPeriod)
	return c
}

// Start launches the decision-heartbeat sweeper. Call once, after
// Recover.
func (c *Coordinator) Start(ctx context.Context) {
	c.retryEngine.Start(ctx)
}

// Stop tears down the heartbeat sweeper.
func (c *Coordinator) Stop() {
	c.retryEngine.Stop()
}

// Recover replays the durable log. Any transaction found in PREPARING is
// forced to ABORTING — the coordinator conservatively assumes it may
// have lost in-flight votes and had not yet decided (spec.md §4.1). Any
// transaction found already in COMMITTING has its composite file
// re-written: the write is idempotent, and this covers the crash window
// between flushing COMMITTING and finishing the write under the
// log-then-write ordering this repo uses (spec.md §9).
func (c *Coordinator) Recover() error {
	var snap Snapshot
	found, err := c.log.Recover(&snap)
	if err != nil {
		c.logger.Warnf("coordinator: log corrupt, resetting to empty state: %v", err)
		c.epoch = uuid.NewString()
		return nil
	}
	if !found {
		return nil
	}

	c.epoch = snap.Epoch
	atomic.StoreUint64(&c.counter, snap.Counter)

	for id, view := range snap.Transactions {
		t := txn.FromView(view)
		c.table.Store(id, t)

		t.Lock()
		switch t.State {
		case domain.StatePreparing:
			t.ForceAborting()
			c.logger.Warnf("coordinator: forcing txn %s from PREPARING to ABORTING on recovery", id)
		case domain.StateCommitting:
			if err := c.writer.Write(t.Filename, t.ImageBytes); err != nil {
				c.logger.Errorf("coordinator: re-writing composite for txn %s on recovery: %v", id, err)
			} else if c.transport != nil {
				_ = c.transport.Fsync()
			}
		}
		t.Unlock()
	}

	return c.flushAll()
}

// StartCommit is the single entry point from the commit originator.
// sources[] is a list of "<participant>:<filename>" strings; an
// unparseable source is skipped with a logged warning (spec.md §4.1,
// §7).
func (c *Coordinator) StartCommit(ctx context.Context, filename string, imageBytes []byte, sources []string) (string, error) {
	participantImages := make(map[string][]string)
	for _, src := range sources {
		parts := strings.SplitN(src, ":", 2)
		if len(parts) != 2 {
			c.logger.Warnf("coordinator: malformed source reference %q, dropping", src)
			continue
		}
		participantImages[parts[0]] = append(participantImages[parts[0]], parts[1])
	}

	id := c.nextID()
	t := txn.New(id, filename, imageBytes, participantImages)
	t.Lock()
	t.BeginPreparing()
	c.table.Store(id, t)

	// Flush before any message is sent (spec.md §4.1 step 4).
	if err := c.flushLocked(t); err != nil {
		t.Unlock()
		return "", fmt.Errorf("collagecommit: flushing new transaction: %w", err)
	}
	participants := t.Participants()
	t.Unlock()

	for _, addr := range participants {
		go c.sendPrepare(ctx, id, addr)
	}

	c.retryEngine.ArmPrepareDeadline(ctx, id)
	c.metrics.TransactionsPreparing.Inc()

	return id, nil
}

func (c *Coordinator) sendPrepare(ctx context.Context, id, addr string) {
	client, ok := c.participants[addr]
	if !ok {
		c.logger.Warnf("coordinator: no client configured for participant %q", addr)
		return
	}
	tv, ok := c.load(id)
	if !ok {
		return
	}
	tv.Lock()
	filenames := append([]string(nil), tv.ParticipantImages[addr]...)
	imageBytes := tv.ImageBytes
	tv.Unlock()

	if err := client.Prepare(ctx, id, imageBytes, filenames); err != nil {
		// Swallowed: reliability is provided by the retry engine's
		// deadline, not by this send.
		c.logger.Warnf("coordinator: PREPARE to %s for txn %s failed: %v", addr, id, err)
	}
}

// HandleVote applies a VOTE while the transaction is PREPARING.
func (c *Coordinator) HandleVote(ctx context.Context, txnId string, vote bool, from string) error {
	t, ok := c.load(txnId)
	if !ok {
		return domain.ErrUnknownTransaction
	}

	t.Lock()
	enteredCommitting, enteredAborting := t.ReceiveVote(from, vote)
	var filename string
	var imageBytes []byte
	if enteredCommitting {
		filename, imageBytes = t.Filename, t.ImageBytes
	}
	// log-then-write: flush COMMITTING/ABORTING before the composite is
	// ever written to disk (spec.md §9 resolved open question).
	var err error
	if enteredCommitting || enteredAborting {
		err = c.flushLocked(t)
	}
	participants := t.Participants()
	t.Unlock()

	if err != nil {
		c.logger.Errorf("coordinator: flushing vote for txn %s: %v", txnId, err)
	}

	if vote {
		c.metrics.VotesReceived.WithLabelValues("yes").Inc()
	} else {
		c.metrics.VotesReceived.WithLabelValues("no").Inc()
	}

	if enteredCommitting {
		c.metrics.TransactionsPreparing.Dec()
		if werr := c.writer.Write(filename, imageBytes); werr != nil {
			c.logger.Errorf("coordinator: writing composite for txn %s: %v", txnId, werr)
		} else if c.transport != nil {
			_ = c.transport.Fsync()
		}
		for _, addr := range participants {
			go c.sendDecision(ctx, txnId, addr, domain.DecisionCommit)
		}
	} else if enteredAborting {
		c.metrics.TransactionsPreparing.Dec()
		for _, addr := range participants {
			go c.sendDecision(ctx, txnId, addr, domain.DecisionAbort)
		}
	}

	return nil
}

// HandleAck applies an ACK.
func (c *Coordinator) HandleAck(ctx context.Context, txnId string, from string) error {
	t, ok := c.load(txnId)
	if !ok {
		return domain.ErrUnknownTransaction
	}

	t.Lock()
	wasTerminal := t.State.Terminal()
	t.ReceiveAck(from)
	terminal := t.State
	err := c.flushLocked(t)
	t.Unlock()

	if err != nil {
		c.logger.Errorf("coordinator: flushing ack for txn %s: %v", txnId, err)
	}
	c.metrics.AcksReceived.Inc()
	if terminal.Terminal() && !wasTerminal {
		c.metrics.TransactionsTerminal.WithLabelValues(strings.ToLower(terminal.String())).Inc()
	}
	return nil
}

// ExpireIfPreparing implements retry.Callbacks.
func (c *Coordinator) ExpireIfPreparing(ctx context.Context, id string) {
	t, ok := c.load(id)
	if !ok {
		return
	}
	t.Lock()
	fired := t.ExpirePreparing()
	err := c.flushLocked(t)
	participants := t.Participants()
	t.Unlock()

	if !fired {
		return
	}
	if err != nil {
		c.logger.Errorf("coordinator: flushing PREPARE-deadline abort for txn %s: %v", id, err)
	}
	c.metrics.TransactionsPreparing.Dec()
	for _, addr := range participants {
		go c.sendDecision(ctx, id, addr, domain.DecisionAbort)
	}
}

// ResendDecision implements retry.Callbacks: it is called once per
// heartbeat tick, per transaction.
func (c *Coordinator) ResendDecision(ctx context.Context, id string) {
	t, ok := c.load(id)
	if !ok {
		return
	}
	t.Lock()
	state := t.State
	remaining := t.AckRemaining()
	t.Unlock()

	if len(remaining) == 0 {
		return
	}

	var decision domain.Decision
	switch state {
	case domain.StateCommitting:
		decision = domain.DecisionCommit
	case domain.StateAborting:
		decision = domain.DecisionAbort
	default:
		return
	}
	for _, addr := range remaining {
		go c.sendDecision(ctx, id, addr, decision)
	}
}

func (c *Coordinator) sendDecision(ctx context.Context, id, addr string, decision domain.Decision) {
	client, ok := c.participants[addr]
	if !ok {
		return
	}
	var err error
	if decision == domain.DecisionCommit {
		err = client.Commit(ctx, id)
	} else {
		err = client.Abort(ctx, id)
	}
	if err != nil {
		c.logger.Warnf("coordinator: %s to %s for txn %s failed: %v", decision, addr, id, err)
		return
	}
	c.metrics.DecisionsSent.WithLabelValues(strings.ToLower(decision.String())).Inc()
}

// State returns a transaction's current state, for observability and
// tests.
func (c *Coordinator) State(txnId string) (domain.State, bool) {
	t, ok := c.load(txnId)
	if !ok {
		return domain.StateInit, false
	}
	t.Lock()
	defer t.Unlock()
	return t.State, true
}

func (c *Coordinator) load(id string) (*txn.Transaction, bool) {
	v, ok := c.table.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*txn.Transaction), true
}

func (c *Coordinator) nextID() string {
	n := atomic.AddUint64(&c.counter, 1)
	return fmt.Sprintf("%s-%s", c.epoch, strconv.FormatUint(n, 10))
}

// flushLocked flushes the whole table to the durable log. t must already
// be locked by the caller and reflects the freshest state for its own
// entry; every other transaction is locked briefly to take a consistent
// copy.
func (c *Coordinator) flushLocked(t *txn.Transaction) error {
	snap := Snapshot{
		Epoch:        c.epoch,
		Counter:      atomic.LoadUint64(&c.counter),
		Transactions: make(map[string]txn.View),
	}
	snap.Transactions[t.ID] = t.View()

	c.table.Range(func(k, v interface{}) bool {
		id := k.(string)
		if id == t.ID {
			return true
		}
		other := v.(*txn.Transaction)
		snap.Transactions[id] = other.SafeView()
		return true
	})

	return c.log.Flush(snap, fsyncerOrNoop{c.transport})
}

// flushAll is used once, after Recover, to persist the forced-abort /
// re-written-composite fixups before serving any traffic.
func (c *Coordinator) flushAll() error {
	snap := Snapshot{
		Epoch:        c.epoch,
		Counter:      atomic.LoadUint64(&c.counter),
		Transactions: make(map[string]txn.View),
	}
	c.table.Range(func(k, v interface{}) bool {
		id := k.(string)
		t := v.(*txn.Transaction)
		snap.Transactions[id] = t.SafeView()
		return true
	})
	return c.log.Flush(snap, fsyncerOrNoop{c.transport})
}

type fsyncerOrNoop struct{ f Fsyncer }

func (n fsyncerOrNoop) Fsync() error {
	if n.f == nil {
		return nil
	}
	return n.f.Fsync()
}

type tableAdapter struct{ c *Coordinator }

func (a tableAdapter) Each(fn func(id string)) {
	a.c.table.Range(func(k, _ interface{}) bool {
		fn(k.(string))
		return true
	})
}

type callbacksAdapter struct{ c *Coordinator }

func (a callbacksAdapter) ExpireIfPreparing(ctx context.Context, id string) { a.c.ExpireIfPreparing(ctx, id) }
func (a callbacksAdapter) ResendDecision(ctx context.Context, id string)    { a.c.ResendDecision(ctx, id) }
