// Package types provides core types and configurations for Fissio
package types

import (
	"fmt"
	"math/big"
	"time"
)

// Method identifies which stage of the pipeline produced a result
type Method string

const (
	MethodTrivial       Method = "trivial"
	MethodTrialDivision Method = "trial-division"
	MethodPollardP1     Method = "pollard-p1"
	MethodPollardRho    Method = "pollard-rho"
	MethodProbablePrime Method = "probable-prime"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// FactorPair is a pair of positive integers (P, Q) with P <= Q.
// For a factorization of N the invariant P*Q == N holds, with the
// conventions (1, 1) for N = 1 and (1, N) when no factor was found.
type FactorPair struct {
	P *big.Int `json:"p"`
	Q *big.Int `json:"q"`
}

// NewFactorPair builds a normalized pair with P <= Q.
// The inputs are copied; callers may keep mutating their own values.
func NewFactorPair(a, b *big.Int) FactorPair {
	p := new(big.Int).Set(a)
	q := new(big.Int).Set(b)
	if p.Cmp(q) > 0 {
		p, q = q, p
	}
	return FactorPair{P: p, Q: q}
}

// Product returns P*Q
func (fp FactorPair) Product() *big.Int {
	return new(big.Int).Mul(fp.P, fp.Q)
}

// Verify reports whether the pair multiplies back to n
func (fp FactorPair) Verify(n *big.Int) bool {
	if fp.P == nil || fp.Q == nil || n == nil {
		return false
	}
	return fp.Product().Cmp(n) == 0
}

// Trivial reports whether the pair carries no factoring information
// (the P = 1 convention for primes and for N = 1).
func (fp FactorPair) Trivial() bool {
	return fp.P != nil && fp.P.Cmp(big.NewInt(1)) == 0
}

func (fp FactorPair) String() string {
	return fmt.Sprintf("%s x %s", fp.P, fp.Q)
}

// FactorizationRequest describes a single factorization call.
// It is immutable once the race begins.
type FactorizationRequest struct {
	ID          string        `json:"id"`
	N           *big.Int      `json:"n"`
	TrialLimit  uint64        `json:"trialLimit"`
	WorkerCount int           `json:"workerCount"`
	Timeout     time.Duration `json:"timeout"`
}

// FactorizationResult is the outcome of one factorization call
type FactorizationResult struct {
	Pair           FactorPair    `json:"pair"`
	Method         Method        `json:"method"`
	Winner         string        `json:"winner,omitempty"`
	WorkersSpawned int           `json:"workersSpawned"`
	ProbablePrime  bool          `json:"probablePrime"`
	Elapsed        time.Duration `json:"elapsed"`
}

// EngineConfig holds the tunables for the factorization engine.
// All durations are in milliseconds, matching the config file format.
type EngineConfig struct {
	Version string `json:"version"`

	// Pre-filter
	TrialLimit uint64 `json:"trialLimit"`

	// Race
	RhoWorkers      int `json:"rhoWorkers"`
	Timeout         int `json:"timeout"`         // ms; overall race budget
	GracePeriod     int `json:"gracePeriod"`     // ms; wind-down wait for stragglers
	MonitorInterval int `json:"monitorInterval"` // ms; heartbeat inspection cadence
	StallTimeout    int `json:"stallTimeout"`    // ms; beat age before a worker is reported stalled

	// Worker tunables
	P1BaseBound      uint64 `json:"p1BaseBound"`
	P1MaxBound       uint64 `json:"p1MaxBound"`
	RhoMaxIterations uint64 `json:"rhoMaxIterations"`
	BatchSize        uint64 `json:"batchSize"` // iterations between heartbeat/stop checks
}

// TimeoutDuration returns the race budget as a time.Duration
func (c *EngineConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GraceDuration returns the wind-down grace period as a time.Duration
func (c *EngineConfig) GraceDuration() time.Duration {
	return time.Duration(c.GracePeriod) * time.Millisecond
}

// MonitorIntervalDuration returns the heartbeat inspection cadence
func (c *EngineConfig) MonitorIntervalDuration() time.Duration {
	return time.Duration(c.MonitorInterval) * time.Millisecond
}

// StallTimeoutDuration returns the stall reporting threshold
func (c *EngineConfig) StallTimeoutDuration() time.Duration {
	return time.Duration(c.StallTimeout) * time.Millisecond
}
