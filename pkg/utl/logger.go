package utl

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ToolID identifies the component reporting a message
type ToolID string

const (
	ORD  ToolID = "ORD"
	ODB  ToolID = "ODB"
	STA  ToolID = "STA"
	STT  ToolID = "STT"
	ANT  ToolID = "ANT"
	DPL  ToolID = "DPL"
	DPO  ToolID = "DPO"
	GRT  ToolID = "GRT"
	RSZ  ToolID = "RSZ"
	RMP  ToolID = "RMP"
	CTS  ToolID = "CTS"
	GPL  ToolID = "GPL"
	DRT  ToolID = "DRT"
	DST  ToolID = "DST"
	PPL  ToolID = "PPL"
	TAP  ToolID = "TAP"
	MPL  ToolID = "MPL"
	FIN  ToolID = "FIN"
	RCX  ToolID = "RCX"
	PSM  ToolID = "PSM"
	PAR  ToolID = "PAR"
	PDN  ToolID = "PDN"
	PAD  ToolID = "PAD"
	DFT  ToolID = "DFT"
	VLOG ToolID = "VLOG"
	LEF  ToolID = "LEF"
	DEF  ToolID = "DEF"
	CDL  ToolID = "CDL"
	FLW  ToolID = "FLW"
	API  ToolID = "API"
)

// Logger wraps zap with tool/message tagging and severity counters
type Logger struct {
	z *zap.Logger

	warnings atomic.Int64
	errors   atomic.Int64
}

// New wraps an existing zap logger
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return New(zap.NewNop())
}

// NewLogger builds a production logger for the given level and encoding.
// Unknown levels fall back to info, unknown formats to json.
func NewLogger(level, format string, opts ...zap.Option) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		config.Encoding = "console"
	}

	z, err := config.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(z), nil
}

// ParseLevel maps a level name to a zap level
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap exposes the underlying zap logger for adapters that take one directly
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Debug logs a tagged debug message
func (l *Logger) Debug(tool ToolID, id int, msg string, fields ...zap.Field) {
	l.z.Debug(msg, tag(tool, id, fields)...)
}

// Info logs a tagged informational message
func (l *Logger) Info(tool ToolID, id int, msg string, fields ...zap.Field) {
	l.z.Info(msg, tag(tool, id, fields)...)
}

// Warn logs a tagged warning and counts it
func (l *Logger) Warn(tool ToolID, id int, msg string, fields ...zap.Field) {
	l.warnings.Add(1)
	l.z.Warn(msg, tag(tool, id, fields)...)
}

// Error logs a tagged error and counts it. Errors do not stop the process.
func (l *Logger) Error(tool ToolID, id int, msg string, fields ...zap.Field) {
	l.errors.Add(1)
	l.z.Error(msg, tag(tool, id, fields)...)
}

// Fatal logs a tagged fatal message. With the default hook the process exits;
// callers must still return afterwards for loggers built with a non-exiting hook.
func (l *Logger) Fatal(tool ToolID, id int, msg string, fields ...zap.Field) {
	l.errors.Add(1)
	l.z.Fatal(msg, tag(tool, id, fields)...)
}

// Report logs an untagged informational line
func (l *Logger) Report(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

// WarningCount returns the number of warnings logged so far
func (l *Logger) WarningCount() int64 {
	return l.warnings.Load()
}

// ErrorCount returns the number of errors (including fatals) logged so far
func (l *Logger) ErrorCount() int64 {
	return l.errors.Load()
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func tag(tool ToolID, id int, fields []zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	out = append(out, zap.String("tool", string(tool)), zap.Int("msg_id", id))
	return append(out, fields...)
}
