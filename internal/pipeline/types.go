// Package pipeline implements the extraction, chunking, embedding, and
// sink machinery behind the embedflow module. It is not imported
// directly by consumers of the module; the embedflow package wraps it with
// a stable public surface.
package pipeline

// Vector is a dense embedding.
type Vector []float32

// SparseVector is a sparse embedding: vocabulary index to positive weight.
// Indices are unique; their range is not checked (the embedder's vocabulary
// owns it).
type SparseVector map[uint32]float32

// MultiVector holds one vector per token (late-interaction / document-page
// families). Each row is independently L2-normalized by the embedder.
type MultiVector []Vector

// VectorKind tags which variant of EmbedUnit.Vector is populated.
type VectorKind int

const (
	VectorKindDense VectorKind = iota
	VectorKindSparse
	VectorKindMulti
)

// EmbedUnit is the atomic output of the pipeline: a vector (exactly one
// variant populated, per VectorKind) together with the text/image span it
// describes and its metadata.
type EmbedUnit struct {
	Kind   VectorKind
	Dense  Vector
	Sparse SparseVector
	Multi  MultiVector

	// Text is the chunk string, or (for pure-image units) the source image
	// path.
	Text string

	// Metadata carries file_path, page_number, frame_index, chunk_index,
	// and family-specific keys (image, warning). file_name, created and
	// modified are not set.
	Metadata map[string]string
}

// RawSegment is the C1->C2 handoff unit: one of Text, Image, or AudioFrame.
// Exactly one of the typed payload fields is populated; Kind says which.
type RawSegmentKind int

const (
	SegmentText RawSegmentKind = iota
	SegmentImage
	SegmentAudioFrame
)

type RawSegment struct {
	Kind RawSegmentKind

	// Text payload.
	Content    string
	FilePath   string
	PageNumber int // 0 means "not applicable"
	CharOffset int

	// Image payload.
	Pixels     []byte // decoded bitmap, row-major RGBA
	Width      int
	Height     int
	SourcePath string
	FrameIndex int // set for video-sampled frames

	// AudioFrame payload (consumed entirely within C1; never reaches C2
	// directly except as the Text segments it is transcribed into).
	PCMSamples []byte
	SampleRate int
	StartMS    int64
	EndMS      int64
}

// SentenceSpan holds a chunk's character range within its Chunk.DocText and
// the matching token range; it is populated only when late chunking is
// enabled.
type SentenceSpan struct {
	CharStart  int
	CharEnd    int
	TokenStart int
	TokenEnd int
}

// Chunk is the C2->C3->C4 handoff unit.
type Chunk struct {
	Text             string
	SourceMetadata   map[string]string

	// DocText and SentenceSpans are populated only when late chunking is
	// requested (§4.4): DocText is the full source text this chunk was cut
	// from (one RawSegment's Content — a page, an HTML document, a
	// transcript), and SentenceSpans holds this chunk's own [CharStart,
	// CharEnd) range within DocText, ready to hand to
	// TokenizerAdapter.SentenceToTokenOffsets so the embedder can mean-pool
	// the matching token range out of one full-document forward pass.
	DocText       string
	SentenceSpans []SentenceSpan

	IsImage          bool
	ImagePixels      []byte
	ImageWidth       int
	ImageHeight      int
	ChunkTooLarge    bool // emitted as a warning metadata key downstream
}

// cloneMetadata returns a shallow copy so callers can safely mutate the
// result without aliasing the source segment's map.
func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
