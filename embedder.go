package embedflow

import (
	"time"

	"github.com/embedflow/embedflow/internal/pipeline"
	"github.com/redis/go-redis/v9"
)

// Family identifies an embedder's post-processing rule: dense_text,
// sparse_text, colbert, image_text, colpali, or audio_transcriber.
type Family = pipeline.Family

const (
	FamilyDenseText        = pipeline.FamilyDenseText
	FamilySparseText       = pipeline.FamilySparseText
	FamilyColBERT          = pipeline.FamilyColBERT
	FamilyImageText        = pipeline.FamilyImageText
	FamilyColPali          = pipeline.FamilyColPali
	FamilyAudioTranscriber = pipeline.FamilyAudioTranscriber
)

// Dtype is the load-time quantization option.
type Dtype = pipeline.Dtype

const (
	DtypeF32   = pipeline.DtypeF32
	DtypeF16   = pipeline.DtypeF16
	DtypeBF16  = pipeline.DtypeBF16
	DtypeQ4F16 = pipeline.DtypeQ4F16
	DtypeQ8    = pipeline.DtypeQ8
)

// Embedder is C4's public contract: forward a batch of chunks through a
// model and apply the family's post-processing rules.
type Embedder = pipeline.Embedder

// EmbedderOption configures an embedder at construction time.
type EmbedderOption = pipeline.EmbedderOption

func WithAPIKey(key string) EmbedderOption          { return pipeline.WithAPIKey(key) }
func WithModel(model string) EmbedderOption         { return pipeline.WithModel(model) }
func WithAPIURL(url string) EmbedderOption          { return pipeline.WithAPIURL(url) }
func WithDtype(d Dtype) EmbedderOption              { return pipeline.WithDtype(d) }
func WithDimension(dim int) EmbedderOption          { return pipeline.WithDimension(dim) }
func WithCache(c QueryCache) EmbedderOption         { return pipeline.WithCache(c) }

// WithTokenizer attaches the tokenizer a dense embedder uses to translate a
// late-chunked Chunk's SentenceSpans into the token range to mean-pool out
// of one full-document forward pass. Required for late_chunking=true.
func WithTokenizer(tok *TokenizerAdapter) EmbedderOption { return pipeline.WithTokenizer(tok) }
func WithOption(key string, value interface{}) EmbedderOption {
	return pipeline.WithOption(key, value)
}

// FromCloud implements from_cloud(provider, model_id, api_key_env): provider
// selects a registered cloud backend (e.g. "openai"); family fixes the
// post-processing rule applied to its raw output.
func FromCloud(family Family, provider string, opts ...EmbedderOption) (Embedder, error) {
	return pipeline.FromCloud(family, provider, opts...)
}

// FromLocal implements from_local(family, model_path, dtype?).
func FromLocal(family Family, modelPath string, opts ...EmbedderOption) (Embedder, error) {
	return pipeline.FromLocal(family, modelPath, opts...)
}

// FromHub implements from_hub(family, hub_id, revision?, dtype?, token?).
func FromHub(family Family, hubID string, opts ...EmbedderOption) (Embedder, error) {
	return pipeline.FromHub(family, hubID, opts...)
}

// FromONNX implements from_onnx(family, hub_id|onnx_model_enum, path_in_repo?, dtype?).
func FromONNX(family Family, modelRef string, opts ...EmbedderOption) (Embedder, error) {
	return pipeline.FromONNX(family, modelRef, opts...)
}

// QueryCache is C14's optional embedding cache, consulted by EmbedQuery.
type QueryCache = pipeline.QueryCache

// NewRedisQueryCache builds a QueryCache backed by go-redis, with entries
// that never expire (ttl 0). Use pipeline.NewRedisQueryCache directly for a
// bounded ttl.
func NewRedisQueryCache(client *redis.Client, prefix string) QueryCache {
	return pipeline.NewRedisQueryCache(client, prefix, time.Duration(0))
}
