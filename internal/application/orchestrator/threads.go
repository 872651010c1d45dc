package orchestrator

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/aescanero/ordo/internal/tools"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// MaxThreads asks SetThreadCount for all available parallelism
const MaxThreads = 0

func resolveThreads(n int) int {
	if n <= MaxThreads {
		return runtime.NumCPU()
	}
	return n
}

// SetThreadCount resolves n, stores it and resizes the pool of every
// parallel tool in construction order before returning. It must not be
// called while a tool has parallel work in flight.
func (r *Runtime) SetThreadCount(n int, printInfo bool) error {
	if err := r.requireInit("SetThreadCount"); err != nil {
		return err
	}

	threads := resolveThreads(n)
	if hw := runtime.NumCPU(); threads > hw {
		r.logger.Warn(utl.ORD, 30, "thread count exceeds available processors",
			zap.Int("requested", threads), zap.Int("available", hw))
	}
	r.threads = threads

	var errs []error
	for _, t := range r.order {
		ta, ok := t.(tools.ThreadAware)
		if !ok {
			continue
		}
		if err := ta.SetThreadCount(threads); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
		}
	}
	r.metrics.SetThreadCount(threads)

	if printInfo {
		r.logger.Info(utl.ORD, 31, fmt.Sprintf("Using %d thread(s).", threads), zap.Int("threads", threads))
	}

	if err := errors.Join(errs...); err != nil {
		r.logger.Error(utl.ORD, 32, "failed to resize tool pools", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrResource, err)
	}
	return nil
}

// SetThreadCountString accepts "max" or a decimal integer. Anything else
// logs a warning and keeps the current budget.
func (r *Runtime) SetThreadCountString(s string, printInfo bool) error {
	if err := r.requireInit("SetThreadCountString"); err != nil {
		return err
	}

	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "max") {
		return r.SetThreadCount(MaxThreads, printInfo)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.logger.Warn(utl.ORD, 33, "invalid thread count, keeping current value",
			zap.String("value", s), zap.Int("threads", r.threads))
		return nil
	}
	return r.SetThreadCount(n, printInfo)
}

// ThreadCount returns the last resolved thread budget
func (r *Runtime) ThreadCount() int {
	return r.threads
}
