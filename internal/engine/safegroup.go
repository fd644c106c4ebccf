package engine

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/fissio/fissio/pkg/logger"
)

// SafeGroup wraps errgroup.Group with panic recovery so a panicking worker
// stops without a result instead of crashing the coordinator or its peers.
// It deliberately does not use errgroup.WithContext: racing workers signal
// each other through the shared StopSignal, and one worker's failure must
// never cancel the rest.
type SafeGroup struct {
	group  errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a new SafeGroup with panic recovery
func NewSafeGroup(log logger.Logger) *SafeGroup {
	return &SafeGroup{logger: log}
}

// Go runs the given function in a new goroutine with panic recovery.
// Any panic is converted to an error and logged with stack trace.
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()

				sg.logger.Error("Goroutine panic recovered",
					logger.WithField("panic", r),
					logger.WithField("stack_trace", string(stack)))

				err = fmt.Errorf("goroutine panic: %v", r)
			}
		}()

		return fn()
	})
}

// Wait blocks until all goroutines have completed.
// Returns the first error encountered.
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
