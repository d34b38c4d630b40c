// Package embedflow is the stable public surface over internal/pipeline: a
// multimodal embedding pipeline covering extraction, chunking,
// batching/streaming, polymorphic embedding, and reranking.
package embedflow

import "github.com/embedflow/embedflow/internal/pipeline"

// Logger is the structured, leveled logger used throughout the pipeline.
type Logger = pipeline.Logger

// LogLevel selects a Logger's verbosity.
type LogLevel = pipeline.LogLevel

const (
	LogLevelOff   = pipeline.LogLevelOff
	LogLevelError = pipeline.LogLevelError
	LogLevelWarn  = pipeline.LogLevelWarn
	LogLevelInfo  = pipeline.LogLevelInfo
	LogLevelDebug = pipeline.LogLevelDebug
)

// NewLogger builds a zap-backed Logger at the given starting level.
func NewLogger(level LogLevel) Logger {
	return pipeline.NewLogger(level)
}

// SetGlobalLogLevel controls the verbosity of the package-level logger used
// where a caller hasn't supplied one explicitly.
func SetGlobalLogLevel(level LogLevel) {
	pipeline.SetGlobalLogLevel(level)
}
