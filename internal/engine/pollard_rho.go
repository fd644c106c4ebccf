package engine

import (
	"context"
	"math/big"
	"math/rand"

	"github.com/fissio/fissio/pkg/logger"
	"github.com/fissio/fissio/pkg/numeric"
)

// rhoWorker runs Pollard's rho with Floyd cycle detection on the sequence
// x_{i+1} = x_i^2 + c mod N. The constant c is derived from the worker's seed
// so concurrent instances explore statistically independent cycles. Per
// iteration the slow pointer advances once and the fast pointer twice;
// |fast - slow| values are multiplied into a running product and one gcd is
// taken per batch. gcd == N signals a failed cycle: the worker stops without
// a result and leaves reseeding to whoever configured the race.
type rhoWorker struct {
	*raceShared
	id            string
	seed          int64
	maxIterations uint64
	batch         uint64
}

func newRhoWorker(shared *raceShared, id string, seed int64, maxIterations, batch uint64) *rhoWorker {
	return &rhoWorker{
		raceShared:    shared,
		id:            id,
		seed:          seed,
		maxIterations: maxIterations,
		batch:         batch,
	}
}

func (w *rhoWorker) name() string { return w.id }

func (w *rhoWorker) run(ctx context.Context) error {
	log := w.log.WithWorker(w.id)

	c := w.deriveConstant()
	log.Debug("Starting Pollard rho",
		logger.WithField("seed", w.seed),
		logger.WithField("c", c.String()))

	slow := big.NewInt(2)
	fast := big.NewInt(2)
	prod := big.NewInt(1)
	diff := new(big.Int)

	step := func(x *big.Int) {
		x.Mul(x, x)
		x.Add(x, c)
		x.Mod(x, w.n)
	}

	var iter uint64
	for iter < w.maxIterations {
		batchEnd := iter + w.batch
		if batchEnd > w.maxIterations {
			batchEnd = w.maxIterations
		}

		for ; iter < batchEnd; iter++ {
			step(slow)
			step(fast)
			step(fast)

			diff.Sub(fast, slow)
			diff.Abs(diff)
			prod.Mul(prod, diff)
			prod.Mod(prod, w.n)
		}

		d := numeric.GCD(prod, w.n)
		if d.Cmp(one) > 0 {
			if w.nontrivial(d) {
				w.commit(w.id, d)
				return nil
			}
			// gcd == N: the tortoise met the hare (or the batch product
			// collapsed to zero). Failed cycle; stop without a result.
			log.Debug("Cycle exhausted without a factor", logger.WithField("iterations", iter))
			return nil
		}

		w.hb.Beat(w.id, iter)
		if w.shouldStop(ctx) {
			log.Debug("Stop signal observed", logger.WithField("iterations", iter))
			return nil
		}
	}

	log.Debug("Iteration budget exhausted without a factor",
		logger.WithField("iterations", iter))
	return nil
}

// deriveConstant maps the worker's seed to a polynomial constant c in
// [1, N-2]. Distinct seeds give distinct pseudo-random constants, so
// concurrent rho instances are not redundant.
func (w *rhoWorker) deriveConstant() *big.Int {
	rng := rand.New(rand.NewSource(w.seed))

	span := new(big.Int).Sub(w.n, big.NewInt(2)) // c drawn from [1, N-2]
	if span.Sign() <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Add(new(big.Int).Rand(rng, span), one)
}
