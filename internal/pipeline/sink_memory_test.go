package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedflow/embedflow/internal/pipeline"
)

func TestMemorySink_UpsertAndAll(t *testing.T) {
	sink, err := pipeline.NewSink(&pipeline.SinkConfig{Type: "memory"})
	require.NoError(t, err)
	defer sink.Close()

	units := []pipeline.EmbedUnit{
		{Text: "a", Dense: pipeline.Vector{1, 0}},
		{Text: "b", Dense: pipeline.Vector{0, 1}},
	}

	require.NoError(t, sink.Upsert(context.Background(), "docs", units))

	mem, ok := sink.(*pipeline.MemorySink)
	require.True(t, ok)

	got := mem.All("docs")
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
}

func TestMemorySink_FailNextReturnsTransientError(t *testing.T) {
	sink, err := pipeline.NewSink(&pipeline.SinkConfig{Type: "memory"})
	require.NoError(t, err)

	mem := sink.(*pipeline.MemorySink)
	mem.FailNext(1)

	err = sink.Upsert(context.Background(), "docs", []pipeline.EmbedUnit{{Text: "a"}})
	require.Error(t, err)
	assert.True(t, pipeline.IsSinkTransient(err))

	// Second attempt succeeds since FailNext(1) only injects one failure.
	err = sink.Upsert(context.Background(), "docs", []pipeline.EmbedUnit{{Text: "a"}})
	assert.NoError(t, err)
}

func TestMemorySink_CreateIndexRejectsDuplicate(t *testing.T) {
	sink, err := pipeline.NewSink(&pipeline.SinkConfig{Type: "memory"})
	require.NoError(t, err)

	require.NoError(t, sink.CreateIndex(context.Background(), "docs", 8, pipeline.MetricCosine, nil))
	err = sink.CreateIndex(context.Background(), "docs", 8, pipeline.MetricCosine, nil)
	assert.Error(t, err)
}
