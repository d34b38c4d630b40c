// Package providers implements the raw model backends behind C4's Embedder
// families: HTTP calls to a hosted API, or local/hub/ONNX runtime loading.
// Each backend only knows how to turn batches of text into raw float32
// vectors; family-specific post-processing (pooling, normalization, SPLADE
// expansion, multi-vector assembly) lives in the pipeline package above it.
package providers

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// RawEmbedder is the narrow contract every backend implements: batch text
// in, batch of raw vectors out, plus the fixed output dimension and a way
// to release resources (HTTP connections, loaded model handles).
type RawEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Close() error
}

// MultiVectorEmbedder is an optional capability a RawEmbedder may also
// implement: one vector per token (or per image patch) instead of one
// vector per input. Late-interaction (ColBERT) and document-page (ColPali)
// backends implement this in addition to RawEmbedder.
type MultiVectorEmbedder interface {
	EmbedBatchMulti(ctx context.Context, texts []string) ([][][]float32, error)
}

// Factory constructs a RawEmbedder from a flat option map (api_key, model,
// api_url, timeout, weights_path, device, ...).
type Factory func(config map[string]interface{}) (RawEmbedder, error)

// Kind distinguishes how a model is sourced, matching §6's from_local /
// from_hub / from_onnx / from_cloud constructors.
type Kind string

const (
	KindLocal Kind = "local"
	KindHub   Kind = "hub"
	KindONNX  Kind = "onnx"
	KindCloud Kind = "cloud"
)

type registry struct {
	mu        sync.RWMutex
	factories map[Kind]map[string]Factory
}

var global = &registry{factories: make(map[Kind]map[string]Factory)}

// Register adds a named factory under the given sourcing kind. Re-registering
// the same (kind, name) pair overwrites the previous factory, matching the
// teacher's RegisterEmbedder overwrite semantics.
func Register(kind Kind, name string, factory Factory) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.factories[kind] == nil {
		global.factories[kind] = make(map[string]Factory)
	}
	global.factories[kind][name] = factory
}

// Get resolves a factory by kind and name.
func Get(kind Kind, name string) (Factory, error) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	byName, ok := global.factories[kind]
	if !ok {
		return nil, errors.Newf("no backends registered for kind %q", kind)
	}
	factory, ok := byName[name]
	if !ok {
		return nil, errors.Newf("backend %q not registered for kind %q", name, kind)
	}
	return factory, nil
}

// List returns the registered names for a kind, for diagnostics.
func List(kind Kind) []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	names := make([]string, 0, len(global.factories[kind]))
	for name := range global.factories[kind] {
		names = append(names, name)
	}
	return names
}
