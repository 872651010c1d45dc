package flow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// Interpreter executes flow scripts. It is the interpreter handed to
// Runtime.Init by the command line.
type Interpreter struct {
	logger  *utl.Logger
	environ func() []string
}

// NewInterpreter creates an interpreter that exposes the process
// environment to scripts
func NewInterpreter(logger *utl.Logger) *Interpreter {
	if logger == nil {
		logger = utl.NewNop()
	}
	return &Interpreter{logger: logger, environ: os.Environ}
}

// WithEnviron replaces the environment seen by scripts
func (i *Interpreter) WithEnviron(environ []string) *Interpreter {
	i.environ = func() []string { return environ }
	return i
}

// Name implements orchestrator.Interpreter
func (i *Interpreter) Name() string {
	return "hcl"
}

// Run executes the steps of s in order and stops at the first failure. The
// returned error keeps the runtime's error class.
func (i *Interpreter) Run(ctx context.Context, r *orchestrator.Runtime, s *Script) error {
	start := time.Now()
	i.logger.Info(utl.FLW, 1, "flow started",
		zap.String("script", s.Path), zap.Int("steps", len(s.Steps)))

	if s.Threads != "" {
		if err := r.SetThreadCountString(s.Threads, true); err != nil {
			return err
		}
	}

	environ := i.environ()
	for n, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("flow cancelled before step %d (%s): %w", n+1, step.Op, err)
		}

		ectx, err := s.evalContext(environ, r.ThreadCount())
		if err != nil {
			return err
		}

		stepStart := time.Now()
		if err := runners[step.Op](ctx, r, s, step.Body, ectx); err != nil {
			i.logger.Error(utl.FLW, 2, "flow step failed",
				zap.Int("step", n+1),
				zap.String("op", step.Op),
				zap.String("at", step.Range.String()),
				zap.Error(err))
			return fmt.Errorf("step %d (%s): %w", n+1, step.Op, err)
		}
		i.logger.Debug(utl.FLW, 3, "flow step done",
			zap.Int("step", n+1),
			zap.String("op", step.Op),
			zap.Duration("duration", time.Since(stepStart)))
	}

	i.logger.Info(utl.FLW, 4, "flow finished",
		zap.String("script", s.Path), zap.Duration("duration", time.Since(start)))
	return nil
}
