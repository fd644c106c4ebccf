// Package engine implements the hybrid factorization engine: a coordinator
// that splits N by racing independent factoring workers and adopting the
// first valid result.
package engine

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"

	fcontext "github.com/fissio/fissio/pkg/context"
	"github.com/fissio/fissio/pkg/logger"
	"github.com/fissio/fissio/pkg/numeric"
	"github.com/fissio/fissio/pkg/state"
	"github.com/fissio/fissio/pkg/types"
)

// Factorizer coordinates one race per call: pre-filter, spawn, arbitrate,
// wind down, conclude. It holds no per-call state, so one instance may be
// shared across goroutines; every call builds a fresh stop signal, result
// slot, and heartbeat registry.
type Factorizer struct {
	cfg *types.EngineConfig
	log logger.LoggerContext
}

// New creates a Factorizer. A nil logger is replaced by a silent one so
// library callers are not forced to configure logging. Coordinator log
// lines pick up the request id and operation from the call's context.
func New(cfg *types.EngineConfig, log logger.Logger) *Factorizer {
	if log == nil {
		log = logger.CreateLoggerWithOutput("error", io.Discard)
	}
	return &Factorizer{cfg: cfg, log: logger.WithContext(log)}
}

// Factorize splits n into a factor pair using the engine's configured
// defaults. See FactorizeRequest for the full contract.
func (f *Factorizer) Factorize(ctx context.Context, n *big.Int) (types.FactorPair, error) {
	if err := validateConfig(f.cfg); err != nil {
		return types.FactorPair{}, err
	}
	res, err := f.FactorizeRequest(ctx, &types.FactorizationRequest{
		N:           n,
		TrialLimit:  f.cfg.TrialLimit,
		WorkerCount: f.cfg.RhoWorkers,
		Timeout:     f.cfg.TimeoutDuration(),
	})
	if err != nil {
		return types.FactorPair{}, err
	}
	return res.Pair, nil
}

// FactorizeRequest returns a pair (p, q) with p <= q and p*q == N. By
// convention the result is (1, 1) for N = 1 and (1, N) when no factor was
// found within the time budget, which is treated as probable primality, not
// proof. Input validity errors fail fast before any worker is spawned;
// timeout exhaustion is a defined terminal state, not an error.
func (f *Factorizer) FactorizeRequest(ctx context.Context, req *types.FactorizationRequest) (*types.FactorizationResult, error) {
	if err := validateConfig(f.cfg); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	ctx = fcontext.WithRequestID(ctx, req.ID)
	ctx = fcontext.WithOperation(ctx, "factorize")
	start := time.Now()
	ctx = fcontext.WithStartTime(ctx, start)

	// Stage 0: trivial
	if req.N.Cmp(one) == 0 {
		return &types.FactorizationResult{
			Pair:    types.NewFactorPair(one, one),
			Method:  types.MethodTrivial,
			Elapsed: time.Since(start),
		}, nil
	}

	// Stage 1: pre-filter. Strictly sequential; numbers with a small factor
	// must resolve here without paying goroutine-spawn overhead.
	if numeric.IsEven(req.N) {
		two := big.NewInt(2)
		return &types.FactorizationResult{
			Pair:    types.NewFactorPair(two, new(big.Int).Quo(req.N, two)),
			Method:  types.MethodTrialDivision,
			Elapsed: time.Since(start),
		}, nil
	}
	if d, ok := numeric.TrialDivision(req.N, req.TrialLimit); ok {
		q := new(big.Int).Quo(req.N, d)
		f.log.DebugContext(ctx, "Pre-filter hit",
			logger.WithField("divisor", d.String()))
		return &types.FactorizationResult{
			Pair:    types.NewFactorPair(d, q),
			Method:  types.MethodTrialDivision,
			Elapsed: time.Since(start),
		}, nil
	}

	// Stage 2: the race
	return f.race(ctx, req, start)
}

func (f *Factorizer) race(ctx context.Context, req *types.FactorizationRequest, start time.Time) (*types.FactorizationResult, error) {
	stop := state.NewStopSignal()
	slot := state.NewResultSlot(req.N)
	hb := state.NewHeartbeatRegistry()

	shared := &raceShared{
		n:    new(big.Int).Set(req.N),
		slot: slot,
		stop: stop,
		hb:   hb,
		log:  f.log,
	}

	workers := make([]worker, 0, req.WorkerCount+1)
	methods := make(map[string]types.Method, req.WorkerCount+1)

	p1 := newP1Worker(shared, "pollard-p1", f.cfg.P1BaseBound, f.cfg.P1MaxBound, f.cfg.BatchSize)
	workers = append(workers, p1)
	methods[p1.name()] = types.MethodPollardP1

	seedBase := time.Now().UnixNano()
	for i := 0; i < req.WorkerCount; i++ {
		rho := newRhoWorker(shared,
			fmt.Sprintf("pollard-rho-%d", i+1),
			seedBase+int64(i)*7919,
			f.cfg.RhoMaxIterations,
			f.cfg.BatchSize)
		workers = append(workers, rho)
		methods[rho.name()] = types.MethodPollardRho
	}

	f.log.InfoContext(ctx, "Starting factor race",
		logger.WithField("bits", req.N.BitLen()),
		logger.WithField("workers", len(workers)),
		logger.WithField("timeout", req.Timeout))

	g := NewSafeGroup(f.log)
	for _, w := range workers {
		w := w
		hb.Register(w.name())
		g.Go(func() error { return w.run(ctx) })
	}

	monitor := &heartbeatMonitor{
		hb:         hb,
		stop:       stop,
		log:        f.log,
		interval:   f.cfg.MonitorIntervalDuration(),
		stallAfter: f.cfg.StallTimeoutDuration(),
	}
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		monitor.run(ctx)
	}()

	// Wait collects the workers in the background so arbitration can block
	// on whichever comes first: a committed result, full exhaustion, the
	// timeout, or the caller giving up.
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		if err := g.Wait(); err != nil {
			f.log.ErrorContext(ctx, "Worker fault", logger.WithField("error", err))
		}
	}()

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	select {
	case <-stop.Done():
	case <-workersDone:
	case <-timer.C:
		f.log.DebugContext(ctx, "Race timeout elapsed")
	case <-ctx.Done():
	}

	// Wind-down: idempotent if a winning worker already raised the signal.
	// The grace wait is bounded; stragglers are reported, not joined forever.
	stop.Set()
	grace := time.NewTimer(f.cfg.GraceDuration())
	defer grace.Stop()
	select {
	case <-workersDone:
	case <-grace.C:
		f.log.WarnContext(ctx, "Workers did not exit within grace period",
			logger.WithField("heartbeats", hb.Snapshot()))
	}
	<-monitorDone

	elapsed := time.Since(start)

	if pair, ok := slot.Get(); ok {
		winner := slot.Winner()
		f.log.InfoContext(ctx, "Race concluded",
			logger.WithField("winner", winner))
		return &types.FactorizationResult{
			Pair:           pair,
			Method:         methods[winner],
			Winner:         winner,
			WorkersSpawned: len(workers),
			Elapsed:        elapsed,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.log.InfoContext(ctx, "No factor within budget; treating as probably prime")
	return &types.FactorizationResult{
		Pair:           types.NewFactorPair(one, req.N),
		Method:         types.MethodProbablePrime,
		WorkersSpawned: len(workers),
		ProbablePrime:  true,
		Elapsed:        elapsed,
	}, nil
}

// validateConfig enforces the tunables the race consumes directly. A zero
// monitor interval would feed time.NewTicker and a zero batch size would
// feed a modulus in the worker hot loops, so both must be rejected before
// any goroutine starts. The config file format version is a file concern and
// is checked by pkg/config, not here.
func validateConfig(cfg *types.EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil engine config")
	}
	if cfg.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive, got %dms", cfg.GracePeriod)
	}
	if cfg.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %dms", cfg.MonitorInterval)
	}
	if cfg.StallTimeout <= 0 {
		return fmt.Errorf("stall timeout must be positive, got %dms", cfg.StallTimeout)
	}
	if cfg.P1BaseBound < 2 {
		return fmt.Errorf("p-1 base bound must be >= 2, got %d", cfg.P1BaseBound)
	}
	if cfg.P1MaxBound < cfg.P1BaseBound {
		return fmt.Errorf("p-1 max bound (%d) must be >= base bound (%d)", cfg.P1MaxBound, cfg.P1BaseBound)
	}
	if cfg.RhoMaxIterations < 1 {
		return fmt.Errorf("rho iteration budget must be >= 1, got %d", cfg.RhoMaxIterations)
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch size must be >= 1, got %d", cfg.BatchSize)
	}
	return nil
}

// validateRequest enforces the input domain before any goroutine starts
func validateRequest(req *types.FactorizationRequest) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	if req.N == nil || req.N.Sign() < 1 {
		return fmt.Errorf("N must be a positive integer, got %v", req.N)
	}
	if req.TrialLimit < 1 {
		return fmt.Errorf("trial limit must be >= 1, got %d", req.TrialLimit)
	}
	if req.WorkerCount < 1 {
		return fmt.Errorf("worker count must be >= 1, got %d", req.WorkerCount)
	}
	if req.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", req.Timeout)
	}
	return nil
}
