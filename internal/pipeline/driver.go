package pipeline

import (
	"context"
	"time"

	"github.com/docker/go-units"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// assumedMaxChunkBytes and assumedVectorBytes back estimatedMemoryCap's
// back-of-envelope figure; real footprint depends on the embedder's actual
// dimension and the corpus's chunk sizes, neither known before a run starts.
const (
	assumedMaxChunkBytes = 8 * 1024
	assumedVectorBytes   = 1536 * 4
)

// estimatedMemoryCap reports the driver's approximate worst-case memory
// footprint per §5: (buffer_size + batch_size) * max_chunk_bytes +
// buffer_size * vector_bytes, formatted for a human reading a startup log
// line rather than for programmatic use.
func estimatedMemoryCap(cfg TextEmbedConfig) string {
	bytes := int64(cfg.BufferSize+cfg.BatchSize)*assumedMaxChunkBytes + int64(cfg.BufferSize)*assumedVectorBytes
	return units.HumanSize(float64(bytes))
}

// Driver is C5: it wires a Reader-per-source, a Chunker, an Embedder, and a
// Sink into a staged pipeline (read / chunk / batch / embed+sink, one
// goroutine each), connected by bounded channels so producers block rather
// than grow memory unbounded. Each stage is internally sequential and order-preserving;
// chunk_index in the resulting EmbedUnit.Metadata always matches emission
// order within a source.
type Driver struct {
	chunker  Chunker
	embedder Embedder
	sink     Sink
	cfg      TextEmbedConfig

	sinkName   string
	metrics    *Metrics
	logger     Logger
	embedLimit *rate.Limiter
	sinkLimit  *rate.Limiter
}

// DriverOption configures a Driver at construction time.
type DriverOption func(*Driver)

// WithMetrics attaches C10 instrumentation; nil leaves metrics disabled.
func WithMetrics(m *Metrics) DriverOption {
	return func(d *Driver) { d.metrics = m }
}

// WithLogger attaches a Logger; nil falls back to GlobalLogger.
func WithLogger(l Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// WithRateLimits governs C13's model-forward and sink-upsert call rates.
// A zero limiter argument means unlimited for that stage.
func WithRateLimits(embedPerSecond, sinkPerSecond rate.Limit) DriverOption {
	return func(d *Driver) {
		if embedPerSecond > 0 {
			d.embedLimit = rate.NewLimiter(embedPerSecond, 1)
		}
		if sinkPerSecond > 0 {
			d.sinkLimit = rate.NewLimiter(sinkPerSecond, 1)
		}
	}
}

// NewDriver builds a Driver targeting sinkName as the destination index/
// collection/table for every Upsert in a Run.
func NewDriver(chunker Chunker, embedder Embedder, sink Sink, sinkName string, cfg TextEmbedConfig, opts ...DriverOption) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LateChunking && !embedder.SupportsLateChunking() {
		return nil, NewConfigError("late_chunking is not supported for the " + string(embedder.Family()) + " family")
	}
	d := &Driver{
		chunker:  chunker,
		embedder: embedder,
		sink:     sink,
		cfg:      cfg,
		sinkName: sinkName,
		logger:   GlobalLogger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// RunResult is the outcome of a Run: the number of units actually sunk and
// the per-source reader errors collected when continue_on_error is set.
type RunResult struct {
	UnitsSunk    int
	SourceErrors []SourceFailure
}

// SourceFailure pairs a failed source path with its reader error.
type SourceFailure struct {
	Path string
	Err  error
}

// readerResolver resolves a Reader for a source path; NewReaderForPath by
// default, overridable in tests.
type readerResolver func(path string, cfg TextEmbedConfig) (Reader, error)

// Run drives root through enumeration, reading, chunking, embedding, and
// sinking, honoring ctx cancellation per §4.5: on cancellation the driver
// finishes the in-flight model call, best-effort flushes any pending sink
// buffer, and returns. A reader error on one source aborts only that source
// when cfg.ContinueOnError is set; otherwise it aborts the run.
func (d *Driver) Run(ctx context.Context, root string) (*RunResult, error) {
	return d.run(ctx, root, NewReaderForPath)
}

func (d *Driver) run(ctx context.Context, root string, resolve readerResolver) (*RunResult, error) {
	sources, err := EnumerateSources(root)
	if err != nil {
		return nil, err
	}
	d.logger.Info("run starting",
		"sources", len(sources),
		"estimated_memory_cap", estimatedMemoryCap(d.cfg))

	segCh := make(chan RawSegment, d.cfg.BufferSize)
	chunkCh := make(chan Chunk, d.cfg.BufferSize)
	batchCh := make(chan []Chunk, 1)

	result := &RunResult{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(segCh)
		return d.readStage(gctx, sources, resolve, segCh, result)
	})

	g.Go(func() error {
		defer close(chunkCh)
		return d.chunkStage(gctx, segCh, chunkCh)
	})

	g.Go(func() error {
		defer close(batchCh)
		return d.batchStage(gctx, chunkCh, batchCh)
	})

	g.Go(func() error {
		return d.embedSinkStage(gctx, batchCh, result)
	})

	if err := g.Wait(); err != nil {
		if IsCancelled(err) {
			return result, err
		}
		return result, err
	}
	return result, nil
}

// readStage reads every source in order, emitting its RawSegments onto out.
// A per-source decode failure is recorded and skipped when ContinueOnError
// is set; otherwise it aborts the whole run.
func (d *Driver) readStage(ctx context.Context, sources []string, resolve readerResolver, out chan<- RawSegment, result *RunResult) error {
	for _, path := range sources {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		reader, err := resolve(path, d.cfg)
		if err != nil {
			if d.cfg.ContinueOnError {
				result.SourceErrors = append(result.SourceErrors, SourceFailure{Path: path, Err: err})
				continue
			}
			return err
		}
		if err := reader.Read(ctx, path, out); err != nil {
			if IsCancelled(err) {
				return err
			}
			if d.cfg.ContinueOnError {
				result.SourceErrors = append(result.SourceErrors, SourceFailure{Path: path, Err: err})
				continue
			}
			return err
		}
	}
	return nil
}

// chunkStage groups RawSegments belonging to the same source file (Chunker
// implementations work on one source's segments at a time so overlap and
// sentence-boundary logic stay within a single document) and hands each
// completed group to the Chunker as soon as the source changes or the
// stream ends.
func (d *Driver) chunkStage(ctx context.Context, in <-chan RawSegment, out chan<- Chunk) error {
	var pending []RawSegment
	currentSource := ""

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		chunks, err := d.chunker.Chunk(pending, d.cfg)
		if err != nil {
			return err
		}
		// pending always holds one source's segments in full (flush only
		// runs on a source boundary or stream close), so chunks is already
		// that source's complete ordered list: index it here, before it
		// reaches batchStage, so chunk_index survives batch boundaries.
		stampChunkIndices(chunks)
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return ErrCancelled
			}
		}
		pending = nil
		return nil
	}

	for {
		select {
		case seg, ok := <-in:
			if !ok {
				return flush()
			}
			source := segmentSource(seg)
			if source != currentSource && len(pending) > 0 {
				if err := flush(); err != nil {
					return err
				}
			}
			currentSource = source
			pending = append(pending, seg)
		case <-ctx.Done():
			return ErrCancelled
		}
	}
}

func segmentSource(seg RawSegment) string {
	if seg.FilePath != "" {
		return seg.FilePath
	}
	return seg.SourcePath
}

// batchStage accumulates Chunks into batch_size groups. When the embedder is
// not source-agnostic (document-page families), a batch never spans two
// sources: a source boundary flushes the in-progress batch even if it is
// short, since page numbering is only meaningful within one document.
func (d *Driver) batchStage(ctx context.Context, in <-chan Chunk, out chan<- []Chunk) error {
	var batch []Chunk
	currentSource := ""

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case out <- batch:
		case <-ctx.Done():
			return ErrCancelled
		}
		batch = nil
		return nil
	}

	for {
		select {
		case c, ok := <-in:
			if !ok {
				return flush()
			}
			source := c.SourceMetadata["file_path"]
			if !d.embedder.SourceAgnostic() && source != currentSource && len(batch) > 0 {
				if err := flush(); err != nil {
					return err
				}
			}
			currentSource = source
			batch = append(batch, c)
			if d.metrics != nil {
				d.metrics.ChunksProduced.Inc()
				d.metrics.QueueDepth.Set(float64(len(batch)))
			}
			if len(batch) >= d.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ErrCancelled
		}
	}
}

// embedSinkStage is the final stage: it embeds each batch, then upserts the
// resulting units, retrying transient sink failures per §4.5. An embedder
// error is always fatal to the run; a transient sink error is attempted at
// most three times in all (two retries) before surfacing, and any other
// sink error surfaces at once.
func (d *Driver) embedSinkStage(ctx context.Context, in <-chan []Chunk, result *RunResult) error {
	for {
		select {
		case batch, ok := <-in:
			if !ok {
				return nil
			}
			if err := d.embedAndSink(ctx, batch, result); err != nil {
				return err
			}
		case <-ctx.Done():
			// Cooperative cancellation: drain nothing further, the
			// in-flight call (if any) already completed inside
			// embedAndSink before this select is reached again.
			return ErrCancelled
		}
	}
}

func (d *Driver) embedAndSink(ctx context.Context, batch []Chunk, result *RunResult) error {
	if d.embedLimit != nil {
		if err := d.embedLimit.Wait(ctx); err != nil {
			return ErrCancelled
		}
	}

	start := time.Now()
	units, err := d.embedder.EmbedBatch(ctx, batch, d.cfg)
	if d.metrics != nil {
		d.metrics.BatchLatency.Observe(time.Since(start).Seconds())
		d.metrics.BatchesEmbedded.Inc()
	}
	if err != nil {
		return NewInferenceError(InferenceBackendFailure, err)
	}

	if d.sinkLimit != nil {
		if err := d.sinkLimit.Wait(ctx); err != nil {
			return ErrCancelled
		}
	}

	err = retryUpsert(ctx, d.metrics, func() error {
		return d.sink.Upsert(ctx, d.sinkName, units)
	})
	if err != nil {
		return err
	}

	result.UnitsSunk += len(units)
	if d.metrics != nil {
		d.metrics.UnitsSunk.Add(float64(len(units)))
	}
	return nil
}
