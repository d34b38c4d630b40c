package pipeline

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

var errTransientInjected = errors.New("injected transient failure")

func errAlreadyExists(name string) error {
	return errors.Newf("index %q already exists", name)
}

func init() {
	RegisterSink("memory", newMemorySink)
}

// MemorySink is an in-process Sink used for tests that exercise the
// driver's retry/back-pressure behavior without a real vector database. It
// keeps units in a plain slice per index name, guarded by a mutex, and
// supports injecting a transient failure for the next N upserts via
// FailNext, a hook for driving the exponential-backoff path in tests.
type MemorySink struct {
	mu      sync.Mutex
	indices map[string][]EmbedUnit
	dims    map[string]int

	failNext int
}

func newMemorySink(cfg *SinkConfig) (Sink, error) {
	return &MemorySink{
		indices: make(map[string][]EmbedUnit),
		dims:    make(map[string]int),
	}, nil
}

// FailNext configures the sink to return a transient SinkError for the
// next n Upsert calls.
func (m *MemorySink) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

func (m *MemorySink) CreateIndex(ctx context.Context, name string, dimension int, metric Metric, options map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.indices[name]; exists {
		return NewSinkError(SinkPermanent, errAlreadyExists(name))
	}
	m.indices[name] = nil
	m.dims[name] = dimension
	return nil
}

func (m *MemorySink) DeleteIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indices, name)
	delete(m.dims, name)
	return nil
}

// Convert is a pure copy; MemorySink's native representation is just
// []EmbedUnit, so conversion is the identity.
func (m *MemorySink) Convert(units []EmbedUnit) (interface{}, error) {
	out := make([]EmbedUnit, len(units))
	copy(out, units)
	return out, nil
}

func (m *MemorySink) Upsert(ctx context.Context, name string, units []EmbedUnit) error {
	m.mu.Lock()
	if m.failNext > 0 {
		m.failNext--
		m.mu.Unlock()
		return NewSinkError(SinkTransient, errTransientInjected)
	}
	defer m.mu.Unlock()
	if _, exists := m.indices[name]; !exists {
		m.indices[name] = nil
	}
	m.indices[name] = append(m.indices[name], units...)
	return nil
}

func (m *MemorySink) Close() error { return nil }

// All returns a snapshot of the units stored under name, for test assertions.
func (m *MemorySink) All(name string) []EmbedUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmbedUnit, len(m.indices[name]))
	copy(out, m.indices[name])
	return out
}
