package utl

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ContinueHook is a fatal hook that returns control to the caller instead of
// exiting. It records how many fatal entries it saw.
type ContinueHook struct {
	Fatals int
}

// OnWrite implements zapcore.CheckWriteHook
func (h *ContinueHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {
	h.Fatals++
}

// NewObserved returns a logger whose entries are captured in memory and whose
// fatal messages do not terminate the process.
func NewObserved() (*Logger, *observer.ObservedLogs, *ContinueHook) {
	core, logs := observer.New(zapcore.DebugLevel)
	hook := &ContinueHook{}
	z := zap.New(core, zap.WithFatalHook(hook))
	return New(z), logs, hook
}
