package embedflow

import "github.com/embedflow/embedflow/internal/pipeline"

// Config is the process-level configuration: provider/model selection,
// sink target, and the embedded TextEmbedConfig/VideoConfig knob sets.
// Loaded from defaults, then an optional JSON file, then environment
// variables, highest precedence last.
type Config = pipeline.Config

// TextEmbedConfig is the §6 knob set: chunk_size, batch_size, buffer_size,
// splitting_strategy, late_chunking, use_ocr, overlap, continue_on_error.
type TextEmbedConfig = pipeline.TextEmbedConfig

// VideoConfig controls frame sampling for embed_video_file.
type VideoConfig = pipeline.VideoConfig

// SplittingStrategy selects the C2 chunker.
type SplittingStrategy = pipeline.SplittingStrategy

const (
	StrategySentence = pipeline.StrategySentence
	StrategyWord      = pipeline.StrategyWord
	StrategySemantic  = pipeline.StrategySemantic
)

// SemanticEncoder is the narrow capability the semantic chunking strategy
// needs: one vector per sentence.
type SemanticEncoder = pipeline.SemanticEncoder

// DefaultTextEmbedConfig returns the §6 defaults: chunk_size=1000,
// batch_size=32, buffer_size=100, splitting_strategy=sentence.
func DefaultTextEmbedConfig() TextEmbedConfig {
	return pipeline.DefaultTextEmbedConfig()
}

// LoadConfig loads Config from defaults, an optional JSON file, a .env
// file, and environment variables, in that precedence order.
func LoadConfig() (*Config, error) {
	return pipeline.LoadConfig()
}
