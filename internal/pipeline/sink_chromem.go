package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/philippgille/chromem-go"
)

func init() {
	RegisterSink("chromem", newChromemSink)
}

// ChromemSink is the embedded-database backend, generalized from the
// teacher's ChromemDB: chromem-go's own embedding function is never
// invoked, since the driver hands it already-computed vectors — the
// configured function exists only to satisfy chromem's collection
// constructor and returns a config error if chromem ever calls it, which it won't because
// every AddDocument call supplies an explicit Embedding.
type ChromemSink struct {
	db          *chromem.DB
	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

func newChromemSink(cfg *SinkConfig) (Sink, error) {
	var db *chromem.DB
	var err error
	if cfg.Address != "" {
		if dir := filepath.Dir(cfg.Address); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, NewSinkError(SinkPermanent, mkErr)
			}
		}
		db, err = chromem.NewPersistentDB(cfg.Address, false)
	} else {
		db = chromem.NewDB()
	}
	if err != nil {
		return nil, NewSinkError(SinkPermanent, err)
	}
	return &ChromemSink{db: db, collections: make(map[string]*chromem.Collection)}, nil
}

func precomputedEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, NewConfigError("chromem sink requires every document to carry a precomputed embedding")
}

func (c *ChromemSink) CreateIndex(ctx context.Context, name string, dimension int, metric Metric, options map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.collections[name]; exists {
		return nil
	}
	col, err := c.db.CreateCollection(name, map[string]string{}, precomputedEmbeddingFunc)
	if err != nil {
		return NewSinkError(SinkTransient, err)
	}
	c.collections[name] = col
	return nil
}

func (c *ChromemSink) DeleteIndex(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.collections, name)
	return nil
}

func (c *ChromemSink) Convert(units []EmbedUnit) (interface{}, error) {
	docs := make([]chromem.Document, 0, len(units))
	for i, u := range units {
		if u.Kind != VectorKindDense {
			return nil, NewConfigError("chromem sink only supports dense vectors")
		}
		meta := make(map[string]string, len(u.Metadata))
		for k, v := range u.Metadata {
			meta[k] = v
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(i) + "-" + u.Metadata["chunk_index"],
			Content:   u.Text,
			Metadata:  meta,
			Embedding: []float32(u.Dense),
		})
	}
	return docs, nil
}

func (c *ChromemSink) Upsert(ctx context.Context, name string, units []EmbedUnit) error {
	c.mu.Lock()
	col, exists := c.collections[name]
	c.mu.Unlock()
	if !exists {
		return NewSinkError(SinkPermanent, errors.Newf("index %q does not exist", name))
	}

	converted, err := c.Convert(units)
	if err != nil {
		return err
	}
	for _, doc := range converted.([]chromem.Document) {
		if err := col.AddDocument(ctx, doc); err != nil {
			return NewSinkError(SinkTransient, err)
		}
	}
	return nil
}

func (c *ChromemSink) Close() error { return nil }
