package pipeline

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMultiVectorRaw implements providers.RawEmbedder and
// providers.MultiVectorEmbedder: EmbedBatchMulti returns one vector per
// token of the input (tokenized with the same adapter the test hands to
// WithTokenizer), each vector [tokenIndex, 0, 0, ...]. That makes
// mean-pooling a token range trivially checkable: pooling tokens [a,b)
// yields a first component equal to the average of a..b-1.
type fakeMultiVectorRaw struct {
	dim int
	tok *TokenizerAdapter
}

func (f *fakeMultiVectorRaw) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeMultiVectorRaw) Dimension() int { return f.dim }
func (f *fakeMultiVectorRaw) Close() error   { return nil }

func (f *fakeMultiVectorRaw) EmbedBatchMulti(ctx context.Context, texts []string) ([][][]float32, error) {
	out := make([][][]float32, len(texts))
	for i, text := range texts {
		n := f.tok.CountTokens(text)
		toks := make([][]float32, n)
		for j := 0; j < n; j++ {
			vec := make([]float32, f.dim)
			vec[0] = float32(j)
			toks[j] = vec
		}
		out[i] = toks
	}
	return out, nil
}

func TestDenseEmbedder_EmbedLateChunked_PoolsTokenRange(t *testing.T) {
	tok, err := NewTokenizerAdapter("cl100k_base", 0)
	require.NoError(t, err)

	raw := &fakeMultiVectorRaw{dim: 4, tok: tok}
	e, err := newFamilyEmbedder(FamilyDenseText, raw, &embedderOptions{tokenizer: tok})
	require.NoError(t, err)
	require.True(t, e.SupportsLateChunking())

	doc := "The quick brown fox jumps over the lazy dog. It runs far away quickly."
	spans := tok.SentenceToTokenOffsets(doc, []SentenceSpan{
		{CharStart: 0, CharEnd: 44},
		{CharStart: 45, CharEnd: len(doc)},
	})

	chunks := []Chunk{
		{Text: doc[0:44], DocText: doc, SentenceSpans: []SentenceSpan{spans[0]}},
		{Text: doc[45:], DocText: doc, SentenceSpans: []SentenceSpan{spans[1]}},
	}

	cfg := DefaultTextEmbedConfig()
	cfg.LateChunking = true

	units, err := e.EmbedBatch(context.Background(), chunks, cfg)
	require.NoError(t, err)
	require.Len(t, units, 2)

	for i, u := range units {
		assert.Equal(t, VectorKindDense, u.Kind)
		assert.Equal(t, chunks[i].Text, u.Text)
		assert.NotEmpty(t, u.Dense)
	}
	// The two chunks cover disjoint token ranges of the same document, so
	// their pooled vectors must differ.
	assert.NotEqual(t, units[0].Dense, units[1].Dense)
}

func TestDenseEmbedder_EmbedLateChunked_RejectsUnsupportedBackend(t *testing.T) {
	raw := &fakeRawEmbedderNoMulti{dim: 4}
	e, err := newFamilyEmbedder(FamilyDenseText, raw, &embedderOptions{})
	require.NoError(t, err)

	cfg := DefaultTextEmbedConfig()
	cfg.LateChunking = true

	chunks := []Chunk{
		{Text: "a", DocText: "a document.", SentenceSpans: []SentenceSpan{{CharStart: 0, CharEnd: 1}}},
	}

	_, err = e.EmbedBatch(context.Background(), chunks, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, KindConfigError))
}

// fakeRawEmbedderNoMulti implements only providers.RawEmbedder, matching a
// backend like OpenAIEmbedder that has no per-token output.
type fakeRawEmbedderNoMulti struct{ dim int }

func (f *fakeRawEmbedderNoMulti) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f *fakeRawEmbedderNoMulti) Dimension() int { return f.dim }
func (f *fakeRawEmbedderNoMulti) Close() error   { return nil }
