package engine

import (
	"context"
	"math/big"

	"github.com/fissio/fissio/pkg/logger"
	"github.com/fissio/fissio/pkg/state"
)

var one = big.NewInt(1)

// raceShared bundles the per-call state every worker receives: the number
// being split plus the three shared primitives. N is read-only for the life
// of the race; the slot, signal, and registry handle their own locking.
type raceShared struct {
	n    *big.Int
	slot *state.ResultSlot
	stop *state.StopSignal
	hb   *state.HeartbeatRegistry
	log  logger.Logger
}

// worker is one algorithm instance in the race. run blocks until the worker
// succeeds, exhausts its budget, or observes the stop signal; the returned
// error is reserved for recovered faults, never for "no factor found".
type worker interface {
	name() string
	run(ctx context.Context) error
}

// shouldStop is the per-batch cooperative cancellation check
func (rs *raceShared) shouldStop(ctx context.Context) bool {
	return rs.stop.IsSet() || ctx.Err() != nil
}

// commit offers a candidate divisor to the result slot and raises the stop
// signal. The slot enforces first-writer-wins; a losing worker's still-valid
// factor is discarded silently.
func (rs *raceShared) commit(name string, d *big.Int) {
	if rs.slot.Commit(name, d) {
		rs.log.Success("Factor found", logger.WithField("divisor", d.String()))
	}
	rs.stop.Set()
}

// nontrivial reports whether d is a usable divisor: 1 < d < N.
// Degenerate gcds (0, 1, N) mean "no factor this round", not an error.
func (rs *raceShared) nontrivial(d *big.Int) bool {
	return d.Cmp(one) > 0 && d.Cmp(rs.n) < 0
}
