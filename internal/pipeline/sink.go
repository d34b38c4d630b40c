package pipeline

import (
	"context"
	"sync"
	"time"
)

// Metric identifies the similarity metric an index is built for.
type Metric string

const (
	MetricL2     Metric = "L2"
	MetricIP     Metric = "IP"
	MetricCosine Metric = "cosine"
)

// Sink is C7's adapter contract. The driver calls only Upsert during a run;
// CreateIndex/DeleteIndex are provisioning operations called ahead of a
// run, and Convert is a pure function the driver may use to estimate
// payload sizes before it decides how large to make a flush buffer.
// Implementations must be idempotent under retry of the same batch — the
// driver's retry-with-backoff (§4.5) assumes at-least-once delivery is
// safe to repeat.
type Sink interface {
	CreateIndex(ctx context.Context, name string, dimension int, metric Metric, options map[string]interface{}) error
	DeleteIndex(ctx context.Context, name string) error
	Convert(units []EmbedUnit) (interface{}, error)
	Upsert(ctx context.Context, name string, units []EmbedUnit) error
	Close() error
}

// SinkConfig configures a Sink at construction time, generalized from the
// teacher's vectordb Config (renamed to avoid colliding with the process
// Config in config.go).
type SinkConfig struct {
	Type        string
	Address     string
	MaxPoolSize int
	Timeout     time.Duration
	Parameters  map[string]interface{}
}

// SinkFactory constructs a Sink from a SinkConfig.
type SinkFactory func(cfg *SinkConfig) (Sink, error)

var (
	sinkFactories   = make(map[string]SinkFactory)
	sinkFactoriesMu sync.RWMutex
)

// RegisterSink adds a new sink factory under name (e.g. "milvus", "chromem",
// "qdrant", "sqlite", "memory"). Backends register themselves via init().
func RegisterSink(name string, factory SinkFactory) {
	sinkFactoriesMu.Lock()
	defer sinkFactoriesMu.Unlock()
	sinkFactories[name] = factory
}

// NewSink builds a Sink for cfg.Type.
func NewSink(cfg *SinkConfig) (Sink, error) {
	sinkFactoriesMu.RLock()
	factory, ok := sinkFactories[cfg.Type]
	sinkFactoriesMu.RUnlock()
	if !ok {
		return nil, NewConfigError("unsupported sink type: " + cfg.Type)
	}
	return factory(cfg)
}

// retryUpsert implements the driver's sink-failure policy: when the sink
// reports a transient error, it retries with exponential backoff (base
// 100ms, factor 2), up to 3 attempts in all.
func retryUpsert(ctx context.Context, metrics *Metrics, do func() error) error {
	backoff := 100 * time.Millisecond
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = do(); err == nil {
			return nil
		}
		if !IsSinkTransient(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		if metrics != nil {
			metrics.SinkRetries.Inc()
		}
		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
