// Package participant implements the participant role of the collage
// commit protocol: spec.md §4.2. Grounded on service/2pc_participant.go
// and service/participant.go, restructured from the teacher's single-key
// commit/abort onto the spec's file-list lock/delete semantics, and on
// original_source/src/UserNode.java for the exact PREPARE validation
// order (existence check, then cross-lock check, then user prompt).
package participant

import (
	"context"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/elenmora/collagecommit/domain"
	collagelog "github.com/elenmora/collagecommit/durablelog"
	"github.com/elenmora/collagecommit/lockmanager"
	applog "github.com/elenmora/collagecommit/log"
	"github.com/elenmora/collagecommit/metrics"
)

// CoordinatorClient is what a participant needs to talk back to the
// coordinator. rpc.CoordinatorRemote satisfies this structurally.
type CoordinatorClient interface {
	Vote(ctx context.Context, txnId string, vote bool, from string) error
	Ack(ctx context.Context, txnId string, from string) error
}

// UserOracle is the local-user approval prompt (spec.md §6 askUser).
type UserOracle interface {
	Ask(ctx context.Context, imageBytes []byte, filenames []string) bool
}

// FileStore is the local filesystem of source images. The default
// implementation reads/deletes real files rooted at a configured
// directory.
type FileStore interface {
	Exists(filename string) bool
	Delete(filename string) error
}

// NewFileStore returns the default FileStore, rooted at dir (the empty
// string roots it at the process working directory).
func NewFileStore(dir string) FileStore {
	return osFileStore{root: dir}
}

type osFileStore struct{ root string }

func (s osFileStore) path(name string) string {
	if s.root == "" {
		return name
	}
	return s.root + "/" + name
}

func (s osFileStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s osFileStore) Delete(name string) error {
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Fsyncer flushes previously written files to stable storage.
type Fsyncer interface {
	Fsync() error
}

// Config configures a Participant.
type Config struct {
	Address     string // this participant's own address, sent as VOTE/ACK "from"
	LogPath     string
	Coordinator CoordinatorClient
	Oracle      UserOracle
	Files       FileStore // nil roots at the working directory
	Transport   Fsyncer
	Logger      applog.Logger
	Registerer  prometheus.Registerer
}

// Participant holds a coarse lock over its two tables per spec.md §5.
type Participant struct {
	address     string
	locks       *lockmanager.Manager
	log         *collagelog.Log[lockmanager.Snapshot]
	coordinator CoordinatorClient
	oracle      UserOracle
	files       FileStore
	transport   Fsyncer
	logger      applog.Logger
	metrics     *metrics.Participant

	mu sync.Mutex // serializes flush + file ops against Recover
}

// New constructs a Participant. Call Recover before serving traffic.
func New(cfg Config) *Participant {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.NewNoop()
	}
	files := cfg.Files
	if files == nil {
		files = osFileStore{}
	}
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Participant{
		address:     cfg.Address,
		locks:       lockmanager.New(),
		log:         collagelog.New[lockmanager.Snapshot](cfg.LogPath),
		coordinator: cfg.Coordinator,
		oracle:      cfg.Oracle,
		files:       files,
		transport:   cfg.Transport,
		logger:      logger,
		metrics:     metrics.NewParticipant(reg),
	}
}

// Recover replays the durable log. Locks and active transactions are
// restored as-is: a lock held before the crash is still held after, so
// the coordinator's retry can be applied when it arrives (spec.md §4.2
// failure semantics).
func (p *Participant) Recover() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var snap lockmanager.Snapshot
	found, err := p.log.Recover(&snap)
	if err != nil {
		p.logger.Warnf("participant %s: log corrupt, resetting to empty state: %v", p.address, err)
		return nil
	}
	if !found {
		return nil
	}
	p.locks.Restore(snap)
	p.metrics.LocksHeld.Set(float64(len(snap.LockedImages)))
	return nil
}

// HandlePrepare implements the PREPARE algorithm of spec.md §4.2.
func (p *Participant) HandlePrepare(ctx context.Context, txnId string, imageBytes []byte, filenames []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range filenames {
		if !p.files.Exists(f) {
			p.metrics.PrepareVotes.WithLabelValues("no", "missing").Inc()
			return p.vote(ctx, txnId, false, domain.ErrSourceMissing)
		}
	}
	if conflict, locked := p.locks.Conflict(txnId, filenames); locked {
		p.logger.Infof("participant %s: txn %s conflicts on %s, voting NO", p.address, txnId, conflict)
		p.metrics.PrepareVotes.WithLabelValues("no", "locked").Inc()
		return p.vote(ctx, txnId, false, domain.ErrSourceLocked)
	}

	// The user oracle is blocking and may take arbitrarily long; it runs
	// outside any lock the retry sweeper needs. This participant has no
	// such sweeper, but the lock is still released for other
	// transactions' handlers by not holding p.mu across the call.
	p.mu.Unlock()
	approved := p.oracle.Ask(ctx, imageBytes, filenames)
	p.mu.Lock()

	if !approved {
		p.metrics.PrepareVotes.WithLabelValues("no", "user-rejected").Inc()
		return p.vote(ctx, txnId, false, domain.ErrUserRejected)
	}

	// Re-check after re-acquiring the lock: another PREPARE for a
	// conflicting transaction may have raced in while we were blocked on
	// the oracle.
	if conflict, locked := p.locks.Conflict(txnId, filenames); locked {
		p.logger.Infof("participant %s: txn %s conflicts on %s after approval, voting NO", p.address, txnId, conflict)
		p.metrics.PrepareVotes.WithLabelValues("no", "locked").Inc()
		return p.vote(ctx, txnId, false, domain.ErrSourceLocked)
	}

	p.locks.Acquire(txnId, filenames)
	if err := p.flushLocked(); err != nil {
		p.logger.Errorf("participant %s: flushing lock acquisition for txn %s: %v", p.address, txnId, err)
	}
	p.metrics.PrepareVotes.WithLabelValues("yes", "").Inc()

	go p.sendVote(ctx, txnId, true)
	return nil
}

// vote releases any partially-acquired locks (spec.md §4.2 step 5: voting
// NO on a transaction that already has an activeTransactions entry also
// aborts it) and sends the NO vote. Caller holds p.mu.
func (p *Participant) vote(ctx context.Context, txnId string, ok bool, reason error) error {
	if !ok {
		if _, active := p.locks.Active(txnId); active {
			p.locks.Release(txnId)
			if err := p.flushLocked(); err != nil {
				p.logger.Errorf("participant %s: flushing abort-on-no-vote for txn %s: %v", p.address, txnId, err)
			}
		}
	}
	go p.sendVote(ctx, txnId, ok)
	return reason
}

func (p *Participant) sendVote(ctx context.Context, txnId string, vote bool) {
	if err := p.coordinator.Vote(ctx, txnId, vote, p.address); err != nil {
		// Swallowed: the coordinator's PREPARE deadline / decision
		// heartbeat is what provides reliability here, not this send.
		p.logger.Warnf("participant %s: sending VOTE for txn %s failed: %v", p.address, txnId, err)
	}
}

// HandleCommit implements the COMMIT algorithm of spec.md §4.2.
func (p *Participant) HandleCommit(ctx context.Context, txnId string) error {
	p.mu.Lock()
	filenames, active := p.locks.Active(txnId)
	if !active {
		// Already applied (or never known locally): at-most-once effect
		// under retries. ACK anyway.
		p.mu.Unlock()
		go p.sendAck(ctx, txnId)
		return nil
	}

	for _, f := range filenames {
		if err := p.files.Delete(f); err != nil {
			p.logger.Errorf("participant %s: deleting %s for txn %s: %v", p.address, f, txnId, err)
		}
	}
	p.locks.Release(txnId)
	err := p.flushLocked()
	p.mu.Unlock()

	if err != nil {
		p.logger.Errorf("participant %s: flushing commit for txn %s: %v", p.address, txnId, err)
	}
	p.metrics.CommitsApplied.Inc()
	go p.sendAck(ctx, txnId)
	return nil
}

// HandleAbort implements the ABORT algorithm of spec.md §4.2. Idempotent:
// an ABORT for an unknown transaction is acknowledged without state
// change.
func (p *Participant) HandleAbort(ctx context.Context, txnId string) error {
	p.mu.Lock()
	if _, active := p.locks.Active(txnId); active {
		p.locks.Release(txnId)
		if err := p.flushLocked(); err != nil {
			p.logger.Errorf("participant %s: flushing abort for txn %s: %v", p.address, txnId, err)
		}
	}
	p.mu.Unlock()

	p.metrics.AbortsApplied.Inc()
	go p.sendAck(ctx, txnId)
	return nil
}

func (p *Participant) sendAck(ctx context.Context, txnId string) {
	if err := p.coordinator.Ack(ctx, txnId, p.address); err != nil {
		p.logger.Warnf("participant %s: sending ACK for txn %s failed: %v", p.address, txnId, err)
	}
}

// HasLock reports whether txnId still holds a lock, for tests checking
// for lock leakage after termination.
func (p *Participant) HasLock(txnId string) bool {
	return p.locks.HasLock(txnId)
}

func (p *Participant) flushLocked() error {
	snap := p.locks.Export()
	p.metrics.LocksHeld.Set(float64(len(snap.LockedImages)))
	return p.log.Flush(snap, fsyncerOrNoop{p.transport})
}

type fsyncerOrNoop struct{ f Fsyncer }

func (n fsyncerOrNoop) Fsync() error {
	if n.f == nil {
		return nil
	}
	return n.f.Fsync()
}
