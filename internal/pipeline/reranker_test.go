package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedflow/embedflow/internal/pipeline"
)

// fakeCrossEncoder scores a pair by the length of its document text, so
// tests can assert a deterministic ranking without a real model.
type fakeCrossEncoder struct {
	head   pipeline.ScoreHead
	calls  int
	closed bool
}

func (f *fakeCrossEncoder) Head() pipeline.ScoreHead { return f.head }
func (f *fakeCrossEncoder) Close() error             { f.closed = true; return nil }

func (f *fakeCrossEncoder) ScoreBatch(ctx context.Context, pairs []pipeline.QueryDocPair) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(pairs))
	for i, p := range pairs {
		out[i] = []float32{float32(len(p.Document))}
	}
	return out, nil
}

func TestReranker_RerankOrdersByDescendingScore(t *testing.T) {
	raw := &fakeCrossEncoder{head: pipeline.ScoreHeadSigmoid}
	r := pipeline.NewReranker(raw, 0)

	results, err := r.Rerank(context.Background(), []string{"q"}, []string{"a", "abc", "ab"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)

	docs := results[0].Documents
	require.Len(t, docs, 2)
	assert.Equal(t, "abc", docs[0].Text)
	assert.Equal(t, 1, docs[0].Rank)
	assert.Equal(t, "ab", docs[1].Text)
	assert.Equal(t, 2, docs[1].Rank)
	assert.GreaterOrEqual(t, docs[0].Score, docs[1].Score)
}

func TestReranker_ComputeScoresBatchesOverPairs(t *testing.T) {
	raw := &fakeCrossEncoder{head: pipeline.ScoreHeadSigmoid}
	r := pipeline.NewReranker(raw, 2)

	scores, err := r.ComputeScores(context.Background(), []string{"q1", "q2"}, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Len(t, scores[0], 3)
	assert.True(t, raw.calls > 1, "expected batching to split 6 pairs across multiple ScoreBatch calls")
}

func TestCombineRanked_FusesAndReRanks(t *testing.T) {
	dense := []pipeline.RankedDocument{
		{Rank: 1, Text: "doc-a"},
		{Rank: 2, Text: "doc-b"},
	}
	sparse := []pipeline.RankedDocument{
		{Rank: 1, Text: "doc-b"},
		{Rank: 2, Text: "doc-a"},
	}

	combined := pipeline.CombineRanked(60, dense, sparse)
	require.Len(t, combined, 2)
	// Both documents appear in both lists at symmetric ranks, so RRF scores
	// tie; either order is valid but ranks must be renumbered from 1.
	assert.Equal(t, 1, combined[0].Rank)
	assert.Equal(t, 2, combined[1].Rank)
}
