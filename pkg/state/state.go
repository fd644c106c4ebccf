// Package state provides the shared race-time primitives for the
// factorization engine: the stop signal, the single-assignment result slot,
// and the per-worker heartbeat registry. One instance of each is created per
// factorization call and discarded at its return; nothing here is a
// process-wide singleton.
//
// Each primitive is independently safe for concurrent use through its own
// lock or atomic; no lock spans more than one of them, so there is no lock
// ordering to get wrong.
package state

import (
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fissio/fissio/pkg/types"
)

var one = big.NewInt(1)

// StopSignal is a monotonic cancellation flag observed cooperatively by all
// workers. It transitions false -> true exactly once and never reverts; any
// party may set it, none may clear it.
type StopSignal struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewStopSignal creates an unset stop signal
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Set raises the signal. Idempotent; safe to call from any goroutine.
func (s *StopSignal) Set() {
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// IsSet reports whether the signal has been raised. Cheap enough for
// hot-loop polling.
func (s *StopSignal) IsSet() bool {
	return s.set.Load()
}

// Done returns a channel that is closed once the signal is raised,
// for callers that want to block instead of poll.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// ResultSlot is a single-writer-wins container for the discovered factor
// pair of one specific N. Once non-empty it is never overwritten; later
// commits are no-ops. The read-check-write sequence is guarded by a single
// mutex held only for its duration.
type ResultSlot struct {
	mu     sync.Mutex
	n      *big.Int
	pair   *types.FactorPair
	winner string
}

// NewResultSlot creates an empty slot for factorizations of n
func NewResultSlot(n *big.Int) *ResultSlot {
	return &ResultSlot{n: new(big.Int).Set(n)}
}

// Commit offers the divisor d found by the named worker. It is accepted only
// if the slot is still empty and d is a nontrivial divisor of N (1 < d < N
// and d | N); the stored pair is normalized to (min(d, N/d), max(d, N/d)).
// Returns whether this caller won the slot. Degenerate divisors (0, 1, N,
// non-divisors) are silently rejected, never an error.
func (s *ResultSlot) Commit(worker string, d *big.Int) bool {
	if d == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair != nil {
		return false
	}
	if d.Cmp(one) <= 0 || d.Cmp(s.n) >= 0 {
		return false
	}
	q, r := new(big.Int).QuoRem(s.n, d, new(big.Int))
	if r.Sign() != 0 {
		return false
	}

	pair := types.NewFactorPair(d, q)
	s.pair = &pair
	s.winner = worker
	return true
}

// Get returns the committed pair, if any
func (s *ResultSlot) Get() (types.FactorPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair == nil {
		return types.FactorPair{}, false
	}
	return *s.pair, true
}

// Winner returns the name of the worker whose commit was accepted
func (s *ResultSlot) Winner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// Heartbeat records one worker's latest progress report
type Heartbeat struct {
	Count uint64    `json:"count"`
	At    time.Time `json:"at"`
}

// HeartbeatRegistry maps worker identities to monotonically non-decreasing
// progress counters. Each entry is written only by its owning worker and read
// by the coordinator's monitor. Heartbeats indicate liveness, never
// correctness.
type HeartbeatRegistry struct {
	mu    sync.RWMutex
	beats map[string]Heartbeat
}

// NewHeartbeatRegistry creates an empty registry
func NewHeartbeatRegistry() *HeartbeatRegistry {
	return &HeartbeatRegistry{beats: make(map[string]Heartbeat)}
}

// Register creates a zero-progress entry for a worker, stamped now.
// Called by the coordinator before the worker starts so stall detection
// covers workers that never reach their first batch.
func (r *HeartbeatRegistry) Register(worker string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beats[worker] = Heartbeat{At: time.Now()}
}

// Beat records forward progress for a worker. Counter regressions are
// ignored so the registry stays monotonic even under a misbehaving caller.
func (r *HeartbeatRegistry) Beat(worker string, progress uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.beats[worker]; ok && progress < prev.Count {
		return
	}
	r.beats[worker] = Heartbeat{Count: progress, At: time.Now()}
}

// LastBeat returns a worker's most recent heartbeat
func (r *HeartbeatRegistry) LastBeat(worker string) (Heartbeat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hb, ok := r.beats[worker]
	return hb, ok
}

// Snapshot returns a copy of all current heartbeats
func (r *HeartbeatRegistry) Snapshot() map[string]Heartbeat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Heartbeat, len(r.beats))
	for k, v := range r.beats {
		out[k] = v
	}
	return out
}
