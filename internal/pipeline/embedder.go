package pipeline

import (
	"context"
	"math"

	"github.com/embedflow/embedflow/internal/pipeline/providers"
)

// Family identifies which post-processing rule a model output gets,
// per the §4.4 table. Fixed at construction; an Embedder never switches
// family at runtime.
type Family string

const (
	FamilyDenseText       Family = "dense_text"
	FamilySparseText      Family = "sparse_text"
	FamilyColBERT         Family = "colbert"
	FamilyImageText       Family = "image_text"
	FamilyColPali         Family = "colpali"
	FamilyAudioTranscriber Family = "audio_transcriber"
)

// Dtype is the load-time quantization option.
type Dtype string

const (
	DtypeF32   Dtype = "f32"
	DtypeF16   Dtype = "f16"
	DtypeBF16  Dtype = "bf16"
	DtypeQ4F16 Dtype = "q4_f16"
	DtypeQ8    Dtype = "q8"
)

// Embedder is C4's public contract: forward a batch of chunks through a
// model and apply the family's post-processing rules.
type Embedder interface {
	Family() Family
	Dimension() int
	// SourceAgnostic reports whether batches may be assembled across
	// multiple sources (true for text families; false for document-page
	// embedders where page numbering is semantically scoped to one source).
	SourceAgnostic() bool
	// SupportsLateChunking reports whether TextEmbedConfig.LateChunking may be set;
	// only dense-text models support it.
	SupportsLateChunking() bool
	EmbedBatch(ctx context.Context, chunks []Chunk, cfg TextEmbedConfig) ([]EmbedUnit, error)
	EmbedSentences(sentences []string) ([]Vector, error)
	Close() error
}

// EmbedderOption configures an embedder at construction time (functional
// options pattern, generalized from the teacher's EmbedderOption).
type EmbedderOption func(*embedderOptions)

type embedderOptions struct {
	apiKey    string
	apiURL    string
	model     string
	dtype     Dtype
	dimension int
	cache     QueryCache
	tokenizer *TokenizerAdapter
	extra     map[string]interface{}
}

func WithAPIKey(key string) EmbedderOption {
	return func(o *embedderOptions) { o.apiKey = key }
}

func WithModel(model string) EmbedderOption {
	return func(o *embedderOptions) { o.model = model }
}

func WithAPIURL(url string) EmbedderOption {
	return func(o *embedderOptions) { o.apiURL = url }
}

func WithDtype(d Dtype) EmbedderOption {
	return func(o *embedderOptions) { o.dtype = d }
}

func WithDimension(dim int) EmbedderOption {
	return func(o *embedderOptions) { o.dimension = dim }
}

// WithCache stores an embedding cache (C14) on the embedder. EmbedQuery does
// not read it; it consults only the cache passed to it as an argument.
func WithCache(c QueryCache) EmbedderOption {
	return func(o *embedderOptions) { o.cache = c }
}

// WithTokenizer attaches the tokenizer a dense embedder uses to translate a
// late-chunked Chunk's document-relative SentenceSpans into the token range
// to mean-pool out of one full-document forward pass. Required for
// late_chunking=true; without it (or a raw backend that doesn't expose
// per-token output) EmbedBatch rejects late-chunked requests instead of
// silently falling back to per-chunk embedding.
func WithTokenizer(tok *TokenizerAdapter) EmbedderOption {
	return func(o *embedderOptions) { o.tokenizer = tok }
}

func WithOption(key string, value interface{}) EmbedderOption {
	return func(o *embedderOptions) {
		if o.extra == nil {
			o.extra = make(map[string]interface{})
		}
		o.extra[key] = value
	}
}

func buildOptions(opts ...EmbedderOption) *embedderOptions {
	o := &embedderOptions{dtype: DtypeF32, extra: make(map[string]interface{})}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *embedderOptions) toProviderConfig() map[string]interface{} {
	cfg := make(map[string]interface{}, len(o.extra)+4)
	for k, v := range o.extra {
		cfg[k] = v
	}
	if o.apiKey != "" {
		cfg["api_key"] = o.apiKey
	}
	if o.apiURL != "" {
		cfg["api_url"] = o.apiURL
	}
	if o.model != "" {
		cfg["model"] = o.model
	}
	if o.dimension > 0 {
		cfg["dimension"] = o.dimension
	}
	return cfg
}

// FromCloud implements the §6 from_cloud(provider, model_id, api_key_env)
// factory: provider selects the registered cloud backend (e.g. "openai"),
// family fixes the post-processing rule applied to its raw output.
func FromCloud(family Family, provider string, opts ...EmbedderOption) (Embedder, error) {
	o := buildOptions(opts...)
	factory, err := providers.Get(providers.KindCloud, provider)
	if err != nil {
		return nil, NewModelLoadError(ModelIOFailure, err)
	}
	raw, err := factory(o.toProviderConfig())
	if err != nil {
		return nil, NewModelLoadError(ModelIOFailure, err)
	}
	return newFamilyEmbedder(family, raw, o)
}

// FromLocal implements from_local(family, model_path, dtype?): loads
// weights from a local directory via the "local" backend kind.
func FromLocal(family Family, modelPath string, opts ...EmbedderOption) (Embedder, error) {
	o := buildOptions(opts...)
	o.extra["model_path"] = modelPath
	factory, err := providers.Get(providers.KindLocal, string(family))
	if err != nil {
		return nil, NewModelLoadError(ModelMissingWeights, err)
	}
	raw, err := factory(o.toProviderConfig())
	if err != nil {
		return nil, NewModelLoadError(ModelMissingWeights, err)
	}
	return newFamilyEmbedder(family, raw, o)
}

// FromHub implements from_hub(family, hub_id, revision?, dtype?, token?).
func FromHub(family Family, hubID string, opts ...EmbedderOption) (Embedder, error) {
	o := buildOptions(opts...)
	o.extra["hub_id"] = hubID
	factory, err := providers.Get(providers.KindHub, string(family))
	if err != nil {
		return nil, NewModelLoadError(ModelMissingWeights, err)
	}
	raw, err := factory(o.toProviderConfig())
	if err != nil {
		return nil, NewModelLoadError(ModelMissingWeights, err)
	}
	return newFamilyEmbedder(family, raw, o)
}

// FromONNX implements from_onnx(family, hub_id|onnx_model_enum, path_in_repo?, dtype?).
func FromONNX(family Family, modelRef string, opts ...EmbedderOption) (Embedder, error) {
	o := buildOptions(opts...)
	o.extra["model_ref"] = modelRef
	factory, err := providers.Get(providers.KindONNX, string(family))
	if err != nil {
		return nil, NewModelLoadError(ModelDtypeUnsupported, err)
	}
	raw, err := factory(o.toProviderConfig())
	if err != nil {
		return nil, NewModelLoadError(ModelDtypeUnsupported, err)
	}
	return newFamilyEmbedder(family, raw, o)
}

func newFamilyEmbedder(family Family, raw providers.RawEmbedder, o *embedderOptions) (Embedder, error) {
	base := &familyEmbedder{family: family, raw: raw, cache: o.cache, tokenizer: o.tokenizer}
	switch family {
	case FamilyDenseText:
		return &denseEmbedder{base}, nil
	case FamilySparseText:
		return &sparseEmbedder{base}, nil
	case FamilyColBERT:
		return &colbertEmbedder{base}, nil
	case FamilyImageText:
		return &imageEmbedder{base}, nil
	case FamilyColPali:
		return &colpaliEmbedder{base}, nil
	default:
		return nil, NewConfigError("unsupported embedder family: " + string(family))
	}
}

// familyEmbedder holds the parts shared by every family wrapper: the raw
// backend and an optional query cache.
type familyEmbedder struct {
	family    Family
	raw       providers.RawEmbedder
	cache     QueryCache
	tokenizer *TokenizerAdapter
}

func (f *familyEmbedder) Family() Family  { return f.family }
func (f *familyEmbedder) Dimension() int  { return f.raw.Dimension() }
func (f *familyEmbedder) Close() error    { return f.raw.Close() }
func (f *familyEmbedder) SourceAgnostic() bool {
	return f.family != FamilyColPali
}

// EmbedSentences is the SemanticEncoder capability used by C2's semantic
// chunking strategy: one mean-pooled, L2-normalized vector per sentence,
// regardless of the embedder's own family (sparse/multi-vector embedders
// still expose a dense projection for this purpose via their raw backend).
func (f *familyEmbedder) EmbedSentences(sentences []string) ([]Vector, error) {
	raw, err := f.raw.EmbedBatch(context.Background(), sentences)
	if err != nil {
		return nil, NewInferenceError(InferenceBackendFailure, err)
	}
	out := make([]Vector, len(raw))
	for i, v := range raw {
		out[i] = l2Normalize(Vector(v))
	}
	return out, nil
}

func l2Normalize(v Vector) Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// chunkTexts extracts the text payload of a batch for backends that only
// understand strings; image-bearing chunks are represented as their
// source path since vision backends key off the file, not raw text.
func chunkTexts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.IsImage {
			texts[i] = c.SourceMetadata["file_path"]
		} else {
			texts[i] = c.Text
		}
	}
	return texts
}

// unitMetadata builds an EmbedUnit's metadata from its source Chunk.
// chunk_index is a per-source running counter (§4.5 step 5), which the
// driver (or embed_ops.go/embed_query.go for paths that bypass the driver)
// already stamps into c.SourceMetadata before batching; chunkIndex here is
// only a fallback for a Chunk that reached EmbedBatch without going through
// that stamping, so it never resets to a batch-local count for a real run.
func unitMetadata(c Chunk, chunkIndex int) map[string]string {
	m := cloneMetadata(c.SourceMetadata)
	if _, ok := m["chunk_index"]; !ok {
		m["chunk_index"] = itoa(chunkIndex)
	}
	if c.ChunkTooLarge {
		m["warning"] = "chunk_exceeds_configured_size"
	}
	if c.IsImage {
		m["image"] = "true"
	}
	return m
}
