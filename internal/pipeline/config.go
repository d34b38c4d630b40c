package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// SplittingStrategy selects the chunker used by C2.
type SplittingStrategy string

const (
	StrategySentence SplittingStrategy = "sentence"
	StrategyWord      SplittingStrategy = "word"
	StrategySemantic  SplittingStrategy = "semantic"
)

// TextEmbedConfig is the public knob set of §6: chunk sizing, batching,
// buffering, the chunking strategy, late chunking, OCR forcing, and
// inter-chunk overlap.
type TextEmbedConfig struct {
	ChunkSize         int               `env:"EMBEDFLOW_CHUNK_SIZE" envDefault:"1000"`
	BatchSize         int               `env:"EMBEDFLOW_BATCH_SIZE" envDefault:"32"`
	BufferSize        int               `env:"EMBEDFLOW_BUFFER_SIZE" envDefault:"100"`
	SplittingStrategy SplittingStrategy `env:"EMBEDFLOW_STRATEGY" envDefault:"sentence"`
	LateChunking      bool              `env:"EMBEDFLOW_LATE_CHUNKING" envDefault:"false"`
	UseOCR            bool              `env:"EMBEDFLOW_USE_OCR" envDefault:"false"`
	Overlap           int               `env:"EMBEDFLOW_OVERLAP" envDefault:"0"`
	ContinueOnError   bool              `env:"EMBEDFLOW_CONTINUE_ON_ERROR" envDefault:"false"`

	// SemanticEncoder is required iff SplittingStrategy == semantic. It is
	// not env-bindable (it is a live object, not a scalar) and must be set
	// programmatically by assigning this field.
	SemanticEncoder SemanticEncoder `env:"-"`
}

// SemanticEncoder is the narrow capability C2's semantic strategy needs
// from a dense embedder: one vector per sentence.
type SemanticEncoder interface {
	EmbedSentences(sentences []string) ([]Vector, error)
}

// DefaultTextEmbedConfig returns the §6 defaults.
func DefaultTextEmbedConfig() TextEmbedConfig {
	return TextEmbedConfig{
		ChunkSize:         1000,
		BatchSize:         32,
		BufferSize:        100,
		SplittingStrategy: StrategySentence,
	}
}

// Validate enforces the configuration-time invariants of §4.4/§7:
// semantic strategy requires an encoder; late chunking is incompatible
// with a sparse embedder (checked by NewDriver, which knows the embedder's
// family) and is only meaningful for dense text.
func (c TextEmbedConfig) Validate() error {
	if c.SplittingStrategy == StrategySemantic && c.SemanticEncoder == nil {
		return NewConfigError("splitting_strategy=semantic requires a semantic_encoder")
	}
	if c.ChunkSize <= 0 {
		return NewConfigError("chunk_size must be positive")
	}
	if c.BatchSize <= 0 {
		return NewConfigError("batch_size must be positive")
	}
	if c.BufferSize <= 0 {
		return NewConfigError("buffer_size must be positive")
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return NewConfigError("overlap must be in [0, chunk_size)")
	}
	return nil
}

// VideoConfig controls C1's video frame sampling.
type VideoConfig struct {
	FrameStep int `env:"EMBEDFLOW_VIDEO_FRAME_STEP" envDefault:"30"`
	MaxFrames int `env:"EMBEDFLOW_VIDEO_MAX_FRAMES" envDefault:"64"`
}

// Config is the process-level configuration loaded from defaults, an
// optional JSON file, and environment variables (highest precedence),
// generalized from the teacher's config package in the same three-tier
// shape.
type Config struct {
	Provider   string        `json:"provider" env:"EMBEDFLOW_PROVIDER" envDefault:"openai"`
	Model      string        `json:"model" env:"EMBEDFLOW_MODEL" envDefault:"text-embedding-3-small"`
	APIKey     string        `json:"-" env:"EMBEDFLOW_API_KEY"`
	SinkType   string        `json:"sink_type" env:"EMBEDFLOW_SINK_TYPE" envDefault:"memory"`
	SinkAddr   string        `json:"sink_address" env:"EMBEDFLOW_SINK_ADDRESS"`
	Timeout    time.Duration `json:"timeout" env:"EMBEDFLOW_TIMEOUT" envDefault:"30s"`
	MaxRetries int           `json:"max_retries" env:"EMBEDFLOW_MAX_RETRIES" envDefault:"3"`

	Text  TextEmbedConfig `json:"-" env:"-"`
	Video VideoConfig     `json:"-" env:"-"`
}

// LoadConfig loads defaults, then a JSON file (if present at one of the
// standard search paths or $EMBEDFLOW_CONFIG), then a .env file (if
// present, via godotenv, so local development doesn't require exported
// shell variables), then environment variables via struct tags — each
// stage overriding the previous, per the precedence documented on Config.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Text:  DefaultTextEmbedConfig(),
		Video: VideoConfig{FrameStep: 30, MaxFrames: 64},
	}

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, NewConfigError("invalid config file " + path + ": " + err.Error())
			}
		}
	}

	_ = godotenv.Load() // best-effort; absence of .env is not an error

	if err := env.Parse(cfg); err != nil {
		return nil, NewConfigError("env parse: " + err.Error())
	}

	return cfg, nil
}

func configFilePath() string {
	if p := os.Getenv("EMBEDFLOW_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, candidate := range []string{
		filepath.Join(home, ".embedflow", "config.json"),
		filepath.Join(home, ".config", "embedflow", "config.json"),
		"embedflow.json",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Save persists the configuration as JSON, generalized from the teacher's
// config.Save.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
