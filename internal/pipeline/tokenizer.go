package pipeline

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenizerAdapter implements C3's encode_batch contract on top of
// tiktoken-go: for each input string EncodeBatch returns token ids and an
// attention mask, and SentenceToTokenOffsets translates character ranges
// (SentenceSpans) into the token ranges late chunking needs.
type TokenizerAdapter struct {
	enc       *tiktoken.Tiktoken
	maxTokens int
}

// NewTokenizerAdapter builds a TokenizerAdapter for the named tiktoken
// encoding (e.g. "cl100k_base"). maxTokens of 0 means unbounded.
func NewTokenizerAdapter(encoding string, maxTokens int) (*TokenizerAdapter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, NewModelLoadError(ModelIOFailure, err)
	}
	return &TokenizerAdapter{enc: enc, maxTokens: maxTokens}, nil
}

// EncodedBatch is the result of EncodeBatch for one input string.
type EncodedBatch struct {
	InputIDs      []int
	AttentionMask []int
	Truncated     bool
}

// CountTokens returns the token count for a single string without
// allocating the full encoded batch; used by the chunker for sizing.
func (t *TokenizerAdapter) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// EncodeBatch tokenizes each input independently, applying maxTokens
// truncation and an all-ones attention mask (no padding is performed here;
// padding to a common length is the embedder's concern, since only it
// knows the target batch shape).
func (t *TokenizerAdapter) EncodeBatch(texts []string) []EncodedBatch {
	out := make([]EncodedBatch, len(texts))
	for i, text := range texts {
		ids := t.enc.Encode(text, nil, nil)
		truncated := false
		if t.maxTokens > 0 && len(ids) > t.maxTokens {
			ids = ids[:t.maxTokens]
			truncated = true
		}
		mask := make([]int, len(ids))
		for j := range mask {
			mask[j] = 1
		}
		out[i] = EncodedBatch{InputIDs: ids, AttentionMask: mask, Truncated: truncated}
	}
	return out
}

// SentenceToTokenOffsets maps character-based SentenceSpans onto token
// indices within a single encoded text, by re-encoding each character
// prefix. This is O(sentences) re-encodes per chunk, acceptable since late
// chunking is only enabled for moderate chunk sizes.
func (t *TokenizerAdapter) SentenceToTokenOffsets(text string, spans []SentenceSpan) []SentenceSpan {
	out := make([]SentenceSpan, len(spans))
	for i, s := range spans {
		startTokens := len(t.enc.Encode(text[:s.CharStart], nil, nil))
		endTokens := len(t.enc.Encode(text[:s.CharEnd], nil, nil))
		out[i] = SentenceSpan{
			CharStart:  s.CharStart,
			CharEnd:    s.CharEnd,
			TokenStart: startTokens,
			TokenEnd:   endTokens,
		}
	}
	return out
}
