package pipeline_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/embedflow/embedflow/internal/pipeline"
)

func TestNewSourceError_IsKindSourceError(t *testing.T) {
	err := pipeline.NewSourceError(pipeline.SourceNotFound, "missing.pdf", nil)
	assert.True(t, errors.Is(err, pipeline.KindSourceError))
	assert.Contains(t, err.Error(), "missing.pdf")
}

func TestNewSinkError_TransientVsPermanent(t *testing.T) {
	transient := pipeline.NewSinkError(pipeline.SinkTransient, errors.New("boom"))
	permanent := pipeline.NewSinkError(pipeline.SinkPermanent, errors.New("boom"))

	assert.True(t, pipeline.IsSinkTransient(transient))
	assert.False(t, pipeline.IsSinkTransient(permanent))
	assert.True(t, errors.Is(transient, pipeline.KindSinkError))
	assert.True(t, errors.Is(permanent, pipeline.KindSinkError))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, pipeline.IsCancelled(pipeline.ErrCancelled))
	assert.False(t, pipeline.IsCancelled(errors.New("unrelated")))

	wrapped := errors.Wrap(pipeline.ErrCancelled, "during read stage")
	assert.True(t, pipeline.IsCancelled(wrapped))
}
