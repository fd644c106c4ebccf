package engine

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/fissio/fissio/pkg/logger"
	"github.com/fissio/fissio/pkg/state"
	"github.com/fissio/fissio/pkg/types"
)

func quietLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", io.Discard)
}

// testConfig keeps worker budgets small so exhaustion paths finish fast
func testConfig() *types.EngineConfig {
	return &types.EngineConfig{
		Version:          "1.0",
		TrialLimit:       1000,
		RhoWorkers:       2,
		Timeout:          5000,
		GracePeriod:      500,
		MonitorInterval:  50,
		StallTimeout:     10000,
		P1BaseBound:      1000,
		P1MaxBound:       5000,
		RhoMaxIterations: 20000,
		BatchSize:        16,
	}
}

func newShared(n int64) *raceShared {
	nn := big.NewInt(n)
	return &raceShared{
		n:    nn,
		slot: state.NewResultSlot(nn),
		stop: state.NewStopSignal(),
		hb:   state.NewHeartbeatRegistry(),
		log:  quietLogger(),
	}
}

func TestFactorize_One(t *testing.T) {
	f := New(testConfig(), quietLogger())

	pair, err := f.Factorize(context.Background(), big.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.P.Int64() != 1 || pair.Q.Int64() != 1 {
		t.Errorf("Factorize(1) = %s, want 1 x 1", pair)
	}
}

func TestFactorize_EvenFastPath(t *testing.T) {
	f := New(testConfig(), quietLogger())

	res, err := f.FactorizeRequest(context.Background(), &types.FactorizationRequest{
		N: big.NewInt(14), TrialLimit: 1000, WorkerCount: 2, Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pair.P.Int64() != 2 || res.Pair.Q.Int64() != 7 {
		t.Errorf("Factorize(14) = %s, want 2 x 7", res.Pair)
	}
	if res.WorkersSpawned != 0 {
		t.Errorf("pre-filter path spawned %d workers, want 0", res.WorkersSpawned)
	}
}

func TestFactorize_TrialDivisionPath(t *testing.T) {
	f := New(testConfig(), quietLogger())

	res, err := f.FactorizeRequest(context.Background(), &types.FactorizationRequest{
		N: big.NewInt(15), TrialLimit: 1000, WorkerCount: 2, Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pair.P.Int64() != 3 || res.Pair.Q.Int64() != 5 {
		t.Errorf("Factorize(15) = %s, want 3 x 5", res.Pair)
	}
	if res.Method != types.MethodTrialDivision {
		t.Errorf("method = %s, want %s", res.Method, types.MethodTrialDivision)
	}
	if res.WorkersSpawned != 0 {
		t.Errorf("pre-filter path spawned %d workers, want 0", res.WorkersSpawned)
	}
}

func TestFactorize_RaceSplitsSemiprime(t *testing.T) {
	// 101 * 103 with the pre-filter bounded below both factors, forcing the race
	f := New(testConfig(), quietLogger())

	res, err := f.FactorizeRequest(context.Background(), &types.FactorizationRequest{
		N: big.NewInt(101 * 103), TrialLimit: 5, WorkerCount: 2, Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pair.P.Int64() != 101 || res.Pair.Q.Int64() != 103 {
		t.Errorf("Factorize(10403) = %s, want 101 x 103", res.Pair)
	}
	if res.WorkersSpawned != 3 { // 1 p-1 + 2 rho
		t.Errorf("spawned %d workers, want 3", res.WorkersSpawned)
	}
	if res.Winner == "" {
		t.Error("race result should name a winner")
	}
	if res.Method != types.MethodPollardP1 && res.Method != types.MethodPollardRho {
		t.Errorf("unexpected method %s", res.Method)
	}
}

func TestFactorize_ProbablePrimeFallback(t *testing.T) {
	f := New(testConfig(), quietLogger())

	res, err := f.FactorizeRequest(context.Background(), &types.FactorizationRequest{
		N: big.NewInt(97), TrialLimit: 10, WorkerCount: 2, Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pair.P.Int64() != 1 || res.Pair.Q.Int64() != 97 {
		t.Errorf("Factorize(97) = %s, want 1 x 97", res.Pair)
	}
	if !res.ProbablePrime {
		t.Error("expected probable-prime flag")
	}
	if res.Method != types.MethodProbablePrime {
		t.Errorf("method = %s, want %s", res.Method, types.MethodProbablePrime)
	}
}

func TestFactorize_PostconditionHolds(t *testing.T) {
	f := New(testConfig(), quietLogger())

	for _, n := range []int64{2, 3, 4, 9, 14, 97, 143, 1001, 9409, 10403} {
		res, err := f.FactorizeRequest(context.Background(), &types.FactorizationRequest{
			N: big.NewInt(n), TrialLimit: 1000, WorkerCount: 2, Timeout: 2 * time.Second,
		})
		if err != nil {
			t.Fatalf("Factorize(%d): %v", n, err)
		}
		if !res.Pair.Verify(big.NewInt(n)) {
			t.Errorf("Factorize(%d) = %s; product mismatch", n, res.Pair)
		}
		if res.Pair.P.Cmp(res.Pair.Q) > 0 {
			t.Errorf("Factorize(%d) = %s; want P <= Q", n, res.Pair)
		}
	}
}

func TestFactorize_InputValidation(t *testing.T) {
	f := New(testConfig(), quietLogger())

	tests := []struct {
		name string
		req  *types.FactorizationRequest
	}{
		{"nil request", nil},
		{"nil N", &types.FactorizationRequest{TrialLimit: 10, WorkerCount: 1, Timeout: time.Second}},
		{"zero N", &types.FactorizationRequest{N: big.NewInt(0), TrialLimit: 10, WorkerCount: 1, Timeout: time.Second}},
		{"negative N", &types.FactorizationRequest{N: big.NewInt(-6), TrialLimit: 10, WorkerCount: 1, Timeout: time.Second}},
		{"zero trial limit", &types.FactorizationRequest{N: big.NewInt(6), WorkerCount: 1, Timeout: time.Second}},
		{"zero workers", &types.FactorizationRequest{N: big.NewInt(6), TrialLimit: 10, Timeout: time.Second}},
		{"zero timeout", &types.FactorizationRequest{N: big.NewInt(6), TrialLimit: 10, WorkerCount: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.FactorizeRequest(context.Background(), tt.req); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestFactorize_LogsCarryRequestID(t *testing.T) {
	var buf bytes.Buffer
	f := New(testConfig(), logger.CreateLoggerWithOutput("info", &buf))

	// Prime input exercises both race log sites: start and the
	// probable-prime conclusion.
	_, err := f.FactorizeRequest(context.Background(), &types.FactorizationRequest{
		ID: "req-trace-7", N: big.NewInt(97), TrialLimit: 10, WorkerCount: 1, Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "req-trace-7") {
		t.Errorf("race logs should carry the request id, got: %s", out)
	}
	if !strings.Contains(out, "factorize") {
		t.Errorf("race logs should carry the operation, got: %s", out)
	}
}

func TestFactorize_ConfigValidation(t *testing.T) {
	// Degenerate tunables must be rejected before any goroutine starts. A
	// zero monitor interval in particular would otherwise feed
	// time.NewTicker inside the monitor goroutine and kill the process.
	tests := []struct {
		name   string
		mutate func(*types.EngineConfig)
	}{
		{"zero monitor interval", func(c *types.EngineConfig) { c.MonitorInterval = 0 }},
		{"zero batch size", func(c *types.EngineConfig) { c.BatchSize = 0 }},
		{"zero grace period", func(c *types.EngineConfig) { c.GracePeriod = 0 }},
		{"zero stall timeout", func(c *types.EngineConfig) { c.StallTimeout = 0 }},
		{"p-1 base bound below 2", func(c *types.EngineConfig) { c.P1BaseBound = 1 }},
		{"p-1 max below base", func(c *types.EngineConfig) { c.P1MaxBound = c.P1BaseBound - 1 }},
		{"zero rho iteration budget", func(c *types.EngineConfig) { c.RhoMaxIterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			f := New(cfg, quietLogger())

			// The pre-filter is bounded below both factors so a missing
			// check would reach the race and its goroutines.
			_, err := f.FactorizeRequest(context.Background(), &types.FactorizationRequest{
				N: big.NewInt(101 * 103), TrialLimit: 5, WorkerCount: 2, Timeout: time.Second,
			})
			if err == nil {
				t.Error("expected a config validation error")
			}
		})
	}

	t.Run("nil config", func(t *testing.T) {
		f := New(nil, quietLogger())
		if _, err := f.Factorize(context.Background(), big.NewInt(6)); err == nil {
			t.Error("expected a config validation error")
		}
	})
}

func TestFactorize_ContextCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.P1MaxBound = 10_000_000
	cfg.RhoMaxIterations = 1_000_000_000
	f := New(cfg, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// A large prime keeps every worker busy well past the cancellation point
	n, _ := new(big.Int).SetString("18446744073709551557", 10)
	_, err := f.FactorizeRequest(ctx, &types.FactorizationRequest{
		N: n, TrialLimit: 10, WorkerCount: 2, Timeout: time.Minute,
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestP1Worker_FindsSmoothFactor(t *testing.T) {
	// 101 - 1 = 100 = 2^2 * 5^2 is smooth well below the base bound
	shared := newShared(101 * 103)
	w := newP1Worker(shared, "p1", 1000, 5000, 8)

	if err := w.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pair, ok := shared.slot.Get()
	if !ok {
		t.Fatal("p-1 should split 10403")
	}
	if pair.P.Int64() != 101 || pair.Q.Int64() != 103 {
		t.Errorf("got %s, want 101 x 103", pair)
	}
	if !shared.stop.IsSet() {
		t.Error("winning worker must raise the stop signal")
	}
}

func TestP1Worker_ObservesStopSignal(t *testing.T) {
	shared := newShared(101 * 103)
	shared.stop.Set()

	// Base bound below the smooth threshold would still find the factor
	// eventually; the raised signal must end the run inside one batch.
	w := newP1Worker(shared, "p1", 2, 5, 1)
	if err := w.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := shared.slot.Get(); ok {
		t.Error("worker must not commit after observing the stop signal")
	}
}

func TestP1Worker_ChecksStopAtBoundEscalation(t *testing.T) {
	shared := newShared(101 * 103)
	shared.stop.Set()

	// Batch far larger than the run, so ladder boundaries are the only stop
	// checkpoints. The first escalation (past the base bound of 4) comes
	// before j = 10, where the per-step gcd would split 10403.
	w := newP1Worker(shared, "p1", 4, 1000, 1<<20)
	if err := w.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := shared.slot.Get(); ok {
		t.Error("worker must exit at the first bound escalation, not run to the factor")
	}
	if _, ok := shared.hb.LastBeat("p1"); !ok {
		t.Error("escalation checkpoint should emit a heartbeat")
	}
}

func TestRhoWorker_FindsFactor(t *testing.T) {
	// A single rho run can end in a failed cycle (gcd == N); distinct seeds
	// explore independent cycles, so a handful of attempts is conclusive.
	for seed := int64(1); seed <= 8; seed++ {
		shared := newShared(101 * 103)
		w := newRhoWorker(shared, "rho", seed, 200000, 16)

		if err := w.run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if pair, ok := shared.slot.Get(); ok {
			if pair.P.Int64() != 101 || pair.Q.Int64() != 103 {
				t.Errorf("seed %d: got %s, want 101 x 103", seed, pair)
			}
			if !shared.stop.IsSet() {
				t.Error("winning worker must raise the stop signal")
			}
			return
		}
	}
	t.Fatal("no rho seed in 1..8 split 10403")
}

func TestRhoWorker_ObservesStopSignal(t *testing.T) {
	shared := newShared(101 * 103)
	shared.stop.Set()

	w := newRhoWorker(shared, "rho", 1, 1_000_000, 4)
	if err := w.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := shared.slot.Get(); ok {
		t.Error("worker must not commit after observing the stop signal")
	}
}

func TestRhoWorker_Heartbeats(t *testing.T) {
	shared := newShared(97) // prime: rho runs until the cycle collapses
	w := newRhoWorker(shared, "rho-hb", 3, 50000, 8)

	if err := w.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := shared.hb.LastBeat("rho-hb"); !ok {
		// A very short run can exit before its first full batch; only a
		// worker that looped at least one batch must have beaten.
		t.Log("worker exited before first batch")
	}
}

func TestHeartbeatMonitor_ReportsStalledWorkers(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("debug", &buf)

	hb := state.NewHeartbeatRegistry()
	hb.Register("sleepy")
	time.Sleep(5 * time.Millisecond)

	m := &heartbeatMonitor{
		hb:         hb,
		stop:       state.NewStopSignal(),
		log:        log,
		interval:   time.Millisecond,
		stallAfter: time.Millisecond,
	}
	m.inspect()

	if !strings.Contains(buf.String(), "stalled") {
		t.Errorf("expected a stall report, got: %s", buf.String())
	}
}

func TestHeartbeatMonitor_ExitsOnStopSignal(t *testing.T) {
	stop := state.NewStopSignal()
	m := &heartbeatMonitor{
		hb:         state.NewHeartbeatRegistry(),
		stop:       stop,
		log:        quietLogger(),
		interval:   time.Millisecond,
		stallAfter: time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.run(context.Background())
	}()

	stop.Set()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not exit after stop signal")
	}
}
