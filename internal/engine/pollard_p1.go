package engine

import (
	"context"
	"math/big"

	"github.com/fissio/fissio/pkg/logger"
	"github.com/fissio/fissio/pkg/numeric"
)

// p1Worker runs Pollard's p-1, which splits N when some prime factor p has a
// smooth p-1 (all prime power factors below the bound). The accumulator a
// starts at 2 and is raised to every exponent j = 2..B modulo N; gcd(a-1, N)
// is checked after each step. The bound escalates from baseBound by x10 up to
// maxBound within the same run: the exponent ladder for a smaller bound is a
// prefix of every larger one, so the accumulator carries over. Each ladder
// boundary is also a heartbeat and stop checkpoint, independent of the batch
// cadence.
type p1Worker struct {
	*raceShared
	id        string
	baseBound uint64
	maxBound  uint64
	batch     uint64
}

func newP1Worker(shared *raceShared, id string, baseBound, maxBound, batch uint64) *p1Worker {
	return &p1Worker{
		raceShared: shared,
		id:         id,
		baseBound:  baseBound,
		maxBound:   maxBound,
		batch:      batch,
	}
}

func (w *p1Worker) name() string { return w.id }

func (w *p1Worker) run(ctx context.Context) error {
	log := w.log.WithWorker(w.id)
	log.Debug("Starting Pollard p-1",
		logger.WithField("baseBound", w.baseBound),
		logger.WithField("maxBound", w.maxBound))

	a := big.NewInt(2)
	exp := new(big.Int)
	am1 := new(big.Int)

	bound := w.baseBound
	var done uint64

	for j := uint64(2); j <= w.maxBound; j++ {
		if j > bound {
			bound *= 10
			if bound > w.maxBound {
				bound = w.maxBound
			}
			// Ladder boundaries double as liveness checkpoints, so the
			// base bound sets where the first one lands.
			w.hb.Beat(w.id, done)
			if w.shouldStop(ctx) {
				log.Debug("Stop signal observed at bound escalation",
					logger.WithField("iterations", done))
				return nil
			}
			log.Debug("Escalating smoothness bound", logger.WithField("bound", bound))
		}

		a.Exp(a, exp.SetUint64(j), w.n)

		am1.Sub(a, one)
		d := numeric.GCD(am1, w.n)
		if w.nontrivial(d) {
			w.commit(w.id, d)
			return nil
		}

		done++
		if done%w.batch == 0 {
			// Heartbeat first, then the stop check: cancellation latency
			// is bounded by one batch.
			w.hb.Beat(w.id, done)
			if w.shouldStop(ctx) {
				log.Debug("Stop signal observed", logger.WithField("iterations", done))
				return nil
			}
		}
	}

	w.hb.Beat(w.id, done)
	log.Debug("Smoothness bound exhausted without a factor",
		logger.WithField("iterations", done))
	return nil
}
