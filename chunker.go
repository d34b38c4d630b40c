package embedflow

import "github.com/embedflow/embedflow/internal/pipeline"

// Chunk is the C2->C3->C4 handoff unit: a span of text (or a pass-through
// image/audio-frame segment) sized to ChunkSize characters.
type Chunk = pipeline.Chunk

// SentenceSpan records a chunk's character range within the full document
// text (DocText), populated only when late chunking is enabled.
type SentenceSpan = pipeline.SentenceSpan

// Chunker implements C2: it consumes RawSegments and produces Chunks sized
// to ChunkSize characters, according to one of the sentence/word/semantic
// strategies.
type Chunker = pipeline.Chunker

// TokenCounter measures a unit of text for chunk-sizing decisions.
type TokenCounter = pipeline.TokenCounter

// CharCounter measures text in runes, matching ChunkSize's "max characters
// per chunk" definition. This is what NewChunker uses by default.
type CharCounter = pipeline.CharCounter

// WordTokenCounter approximates token count by whitespace-delimited word
// count. Not chunk-size accounting (see CharCounter); useful where an
// actual word/token estimate is wanted instead.
type WordTokenCounter = pipeline.WordTokenCounter

// NewChunker selects a Chunker implementation for cfg.SplittingStrategy. A
// nil counter defaults to CharCounter, so ChunkSize is honored as the
// spec's character budget; pass a tiktoken-backed counter (via
// NewTokenizerAdapter) to knowingly redefine it as a token budget instead.
func NewChunker(counter TokenCounter, cfg TextEmbedConfig) (Chunker, error) {
	return pipeline.NewChunker(counter, cfg)
}

// SmartSentenceSplitter splits text into sentences after every '.', '!' or
// '?' that is not inside double quotes. Abbreviations and decimal numbers
// are not special-cased: a period inside them also ends a sentence.
func SmartSentenceSplitter(text string) []string {
	return pipeline.SmartSentenceSplitter(text)
}

// TokenizerAdapter wraps tiktoken-go for C3's encode_batch contract.
type TokenizerAdapter = pipeline.TokenizerAdapter

// NewTokenizerAdapter builds a TokenizerAdapter for the named tiktoken
// encoding (e.g. "cl100k_base"), truncating to maxTokens.
func NewTokenizerAdapter(encoding string, maxTokens int) (*TokenizerAdapter, error) {
	return pipeline.NewTokenizerAdapter(encoding, maxTokens)
}

// NewTikTokenCounter adapts tok to TokenCounter so a chunker sizes chunks
// against the same tokenizer the embedder will ultimately see.
func NewTikTokenCounter(tok *TokenizerAdapter) TokenCounter {
	return pipeline.NewTikTokenCounter(tok)
}
