package pipeline

import (
	"github.com/cockroachdb/errors"
)

// Error kind markers. Each kind is a distinct sentinel so callers can test
// membership with errors.Is(err, pipeline.KindSourceError) etc., while the
// wrapped error still carries path/identifier and underlying cause via
// cockroachdb/errors' structured wrapping.
var (
	KindConfigError    = errors.New("config error")
	KindSourceError    = errors.New("source error")
	KindModelLoadError = errors.New("model load error")
	KindInferenceError = errors.New("inference error")
	KindSinkError      = errors.New("sink error")
	KindCancelled      = errors.New("cancelled")
)

// SourceError sub-kinds.
const (
	SourceNotFound           = "not_found"
	SourceUnsupportedExt      = "unsupported_extension"
	SourceDecodeFailed        = "decode_failed"
)

// ModelLoadError sub-kinds.
const (
	ModelMissingWeights  = "missing_weights"
	ModelDtypeUnsupported = "dtype_unsupported"
	ModelIOFailure        = "io_failure"
)

// InferenceError sub-kinds.
const (
	InferenceOutOfMemory    = "out_of_memory"
	InferenceBackendFailure = "backend_failure"
)

// SinkError sub-kinds. Transient triggers the driver's retry-with-backoff;
// Permanent surfaces immediately.
const (
	SinkTransient = "transient"
	SinkPermanent = "permanent"
)

// sinkTransientMarker/sinkPermanentMarker are separate marks from
// KindSinkError so the sub-kind survives wrapping and can be recovered with
// errors.Is, independent of the human-readable sub-kind string baked into
// the message.
var (
	sinkTransientMarker = errors.New("sink error: transient")
	sinkPermanentMarker = errors.New("sink error: permanent")
)

// NewConfigError reports an invalid or inconsistent configuration, e.g.
// semantic chunking requested without a semantic_encoder.
func NewConfigError(reason string) error {
	return errors.Mark(errors.Newf("config error: %s", reason), KindConfigError)
}

// NewSourceError reports a C1 failure scoped to a single source path.
func NewSourceError(subKind, path string, cause error) error {
	var err error
	if cause == nil {
		err = errors.Newf("source error [%s] %s", subKind, path)
	} else {
		err = errors.Wrapf(cause, "source error [%s] %s", subKind, path)
	}
	return errors.Mark(err, KindSourceError)
}

// NewModelLoadError reports a C4 factory failure.
func NewModelLoadError(subKind string, cause error) error {
	err := errors.Wrapf(cause, "model load error [%s]", subKind)
	return errors.Mark(err, KindModelLoadError)
}

// NewInferenceError reports a forward-call failure; always fatal to the run.
func NewInferenceError(subKind string, cause error) error {
	err := errors.Wrapf(cause, "inference error [%s]", subKind)
	return errors.Mark(err, KindInferenceError)
}

// NewSinkError reports an adapter failure. Transient errors are retried by
// the driver per §4.5; Permanent errors surface immediately.
func NewSinkError(subKind string, cause error) error {
	err := errors.Wrapf(cause, "sink error [%s]", subKind)
	err = errors.Mark(err, KindSinkError)
	if subKind == SinkTransient {
		return errors.Mark(err, sinkTransientMarker)
	}
	return errors.Mark(err, sinkPermanentMarker)
}

// IsSinkTransient reports whether err is a sink error marked transient.
func IsSinkTransient(err error) bool {
	return errors.Is(err, sinkTransientMarker)
}

// ErrCancelled is returned by the driver when cooperative cancellation is
// observed at a stage boundary.
var ErrCancelled = errors.Mark(errors.New("cancelled"), KindCancelled)

// IsCancelled reports whether err is, or wraps, ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, KindCancelled)
}
