package engine

import (
	"context"
	"time"

	"github.com/fissio/fissio/pkg/logger"
	"github.com/fissio/fissio/pkg/state"
)

// heartbeatMonitor periodically inspects the heartbeat registry and reports
// workers whose last beat is older than the stall threshold. Observability
// only: a stalled worker is logged, never restarted or killed. A worker stuck
// in an unbounded inner loop will not observe the stop signal either; that is
// a documented limitation of cooperative cancellation.
type heartbeatMonitor struct {
	hb         *state.HeartbeatRegistry
	stop       *state.StopSignal
	log        logger.Logger
	interval   time.Duration
	stallAfter time.Duration
}

func (m *heartbeatMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.inspect()
		}
	}
}

func (m *heartbeatMonitor) inspect() {
	now := time.Now()
	for name, beat := range m.hb.Snapshot() {
		if age := now.Sub(beat.At); age > m.stallAfter {
			m.log.Warn("Worker appears stalled",
				logger.WithField("worker", name),
				logger.WithField("last_beat_age", age.Round(time.Millisecond)),
				logger.WithField("progress", beat.Count))
		}
	}
}
