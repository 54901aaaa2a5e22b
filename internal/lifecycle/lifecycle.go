// Package lifecycle implements the Column index descriptor and
// per-SSTable index state machines (spec.md 3 "Entity lifecycles", §8
// corruption-recovery property) and the per-column-index build barrier
// queries wait on (spec.md 5).
//
// Grounded on the teacher's sql/index/config_test.go processing-file
// pattern (ExistsProcessingFile/CreateProcessingFile/RemoveProcessingFile,
// TestProcessingFile): that pattern is exactly a two-state "is a build in
// flight" flag; this package generalizes it into the full multi-state
// machine spec.md describes in prose.
package lifecycle

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saiengine/sai/internal/saierrors"
)

// State is one point in the SSTable-index lifecycle.
type State int

const (
	Created State = iota
	Building
	Queryable
	Failed
	NonQueryable
	Dropped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Building:
		return "building"
	case Queryable:
		return "queryable"
	case Failed:
		return "failed"
	case NonQueryable:
		return "non_queryable"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// validTransitions enumerates every legal state change (spec.md 3):
//
//	Created -> Building -> Queryable
//	                \-> Failed -> (rebuild) -> Building
//	Queryable -> Dropped
//	Queryable -> (corruption detected) -> NonQueryable -> (rebuild) -> Building
var validTransitions = map[State]map[State]bool{
	Created:      {Building: true},
	Building:     {Queryable: true, Failed: true},
	Queryable:    {Dropped: true, NonQueryable: true},
	Failed:       {Building: true, Dropped: true},
	NonQueryable: {Building: true, Dropped: true},
	Dropped:      {},
}

// Entry is one SSTable-index's lifecycle record.
type Entry struct {
	mu      sync.RWMutex
	state   State
	barrier *BuildBarrier
	log     *logrus.Entry
	sstable string
	column  string
}

// NewEntry returns an Entry in the Created state, with no sstable/column
// identity (used directly by tests that don't need it in error messages).
// Manager.Entry sets the sstable identity on every Entry it creates.
func NewEntry() *Entry {
	return &Entry{state: Created, barrier: newBuildBarrier()}
}

// setLogger attaches a logger, used by Manager to thread its configured
// logger through to every Entry it creates.
func (e *Entry) setLogger(l *logrus.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = l
}

// setSSTable records the owning SSTable id, for ErrBuildFailed's error
// context. Called once by Manager.Entry at construction.
func (e *Entry) setSSTable(sstable string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sstable = sstable
}

// SetColumn records which column the next Transition call builds, for
// ErrBuildFailed's error context (spec.md 7 class 3). A single Entry's
// lifecycle spans every column built for its SSTable, so the build
// orchestrator (internal/engine) sets this immediately before each
// Transition call.
func (e *Entry) SetColumn(column string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.column = column
}

// State returns the current state.
func (e *Entry) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Transition moves the entry to next, or returns an error if the
// transition is not legal from the current state.
func (e *Entry) Transition(next State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !validTransitions[e.state][next] {
		return saierrors.ErrBuildFailed.New(e.sstable, e.column, e.state.String()+" cannot transition to "+next.String())
	}
	if next == Building {
		e.barrier = newBuildBarrier()
	}
	prev := e.state
	e.state = next
	if next == Queryable {
		e.barrier.complete(nil)
		if e.log != nil {
			e.log.WithField("from", prev.String()).Debug("sai: index build completed")
		}
	}
	if next == Failed {
		e.barrier.complete(saierrors.ErrBuildFailed.New(e.sstable, e.column, "build failed after leaving "+prev.String()))
		if e.log != nil {
			e.log.WithField("from", prev.String()).Error("sai: index build failed")
		}
	}
	if next == NonQueryable && e.log != nil {
		e.log.WithField("from", prev.String()).Warn("sai: index marked non-queryable after corruption")
	}
	return nil
}

// Barrier returns the build-completion future queries wait on while the
// entry is Building (spec.md 5: "the per-column-index build barrier").
func (e *Entry) Barrier() *BuildBarrier {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.barrier
}

// Queryable reports whether the entry's current state permits queries.
func (e *Entry) Queryable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state == Queryable
}

// BuildBarrier is a one-shot completion future: queries against an index
// under (re)build wait on it, with a bounded timeout that escalates to
// saierrors.ErrBuildIncomplete rather than blocking forever (spec.md 5).
type BuildBarrier struct {
	done chan struct{}
	mu   sync.Mutex
	err  error
}

func newBuildBarrier() *BuildBarrier {
	return &BuildBarrier{done: make(chan struct{})}
}

// complete signals the barrier, recording err (nil on success) for anyone
// waiting. Safe to call at most once; subsequent calls are no-ops.
func (b *BuildBarrier) complete(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		return // already completed
	default:
	}
	b.err = err
	close(b.done)
}

// Wait blocks until the build completes or timeout elapses, whichever
// comes first. On timeout it returns saierrors.ErrBuildIncomplete; on a
// completed failed build it returns the build's error; on success it
// returns nil.
func (b *BuildBarrier) Wait(timeout time.Duration) error {
	select {
	case <-b.done:
		b.mu.Lock()
		err := b.err
		b.mu.Unlock()
		return err
	case <-time.After(timeout):
		return saierrors.ErrBuildIncomplete.New("<index>")
	}
}

// Manager owns every SSTable-index Entry, keyed by SSTable id. It keeps no
// separate state for the column index as a whole: the index-build gate
// (spec.md 4.7, RequireQueryable) is applied per SSTable entry.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	log     *logrus.Entry
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*Entry)}
}

// SetLogger attaches l to the manager; every Entry created afterwards logs
// build completion, failure, and corruption transitions through it
// (spec.md 2A: "Debug for per-segment progress, Warn for recoverable
// corruption, Error for build failure"). A nil manager logger (the
// default) makes every Entry silent.
func (m *Manager) SetLogger(l *logrus.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = l
}

// Entry returns (creating if absent) the lifecycle Entry for sstable.
func (m *Manager) Entry(sstable string) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sstable]
	if !ok {
		e = NewEntry()
		e.setSSTable(sstable)
		e.setLogger(m.log)
		m.entries[sstable] = e
	}
	return e
}

// Drop removes the tracked entry for sstable once the host has physically
// removed the SSTable and its components.
func (m *Manager) Drop(sstable string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sstable)
}

// RequireQueryable implements spec.md 4.7's "index-build gate": a query
// against an sstable whose index build is in progress waits (bounded) on
// the barrier; a failed or non-queryable index is rejected immediately.
func (m *Manager) RequireQueryable(sstable string, buildWait time.Duration) error {
	e := m.Entry(sstable)
	switch e.State() {
	case Queryable:
		return nil
	case Building:
		return e.Barrier().Wait(buildWait)
	case Failed, NonQueryable:
		return saierrors.ErrNotQueryable.New(sstable, e.State().String())
	default:
		return saierrors.ErrNotQueryable.New(sstable, e.State().String())
	}
}
