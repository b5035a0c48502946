package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wod-wiki/wodwiki/internal/obslog"
	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// FlushMode controls flush semantics for BufferedPolicy.
type FlushMode string

const (
	// FlushAtLeastOnce preserves all buffers on any failure. May cause
	// duplicate span writes on retry, but guarantees no data loss. This
	// is the default and safest mode.
	FlushAtLeastOnce FlushMode = "at_least_once"

	// FlushMetricsFirst writes metrics snapshots before spans. If
	// metrics fail, spans are not written (no duplicates). If metrics
	// succeed but spans fail, the written metrics are cleared from the
	// buffer and only the spans are retried.
	FlushMetricsFirst FlushMode = "metrics_first"

	// FlushTwoPhase tracks per-buffer success to avoid duplicates.
	// Spans written successfully are not re-written on retry even if
	// metrics fail.
	FlushTwoPhase FlushMode = "two_phase"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferSpans is the maximum number of spans to buffer. Zero means
	// no limit (use MaxBufferBytes instead).
	MaxBufferSpans int

	// MaxBufferBytes is the maximum buffer size in bytes (estimated).
	// Zero means no limit (use MaxBufferSpans instead). At least one
	// limit must be set.
	MaxBufferBytes int64

	// FlushMode controls flush failure semantics. Default is
	// FlushAtLeastOnce (safest, may duplicate on retry).
	FlushMode FlushMode

	// Logger is an optional logger for policy observability. If nil, no
	// logging is emitted.
	Logger *obslog.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered policy.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferSpans: 1000,
		MaxBufferBytes: 10 * 1024 * 1024, // 10 MB
		FlushMode:      FlushAtLeastOnce,
	}
}

// ErrBufferFull is returned when the buffer is full and the incoming span
// is non-droppable.
var ErrBufferFull = errors.New("buffer full: cannot accept non-droppable span")

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferSpans or MaxBufferBytes must be set")

// ErrInvalidFlushMode is returned when FlushMode is unknown.
var ErrInvalidFlushMode = errors.New("invalid flush mode")

// BufferedPolicy implements buffered persistence with drop rules.
//
//   - Bounded buffer with explicit limits.
//   - May drop droppable spans (sound/system-time/tick timestamps); every
//     metrics snapshot is droppable by definition.
//   - Must NOT drop record/group spans.
//   - Batch writes on flush.
//   - Flush on workout:complete, run error, or runtime termination.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *obslog.Logger

	mu              sync.Mutex // guards buffer state only
	spanBuffer      []*types.ExecutionSpan
	spanBufferNext  []*types.ExecutionSpan // TwoPhase: spans added after spansFlushed=true
	metricsBuffer   []*metrics.Snapshot
	bufferBytes     int64
	spansFlushed    bool // TwoPhase: spanBuffer written, awaiting metrics success
	stats           *statsRecorder
}

// NewBufferedPolicy creates a new buffered policy. Returns error if config
// is invalid.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferSpans <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}

	if config.FlushMode == "" {
		config.FlushMode = FlushAtLeastOnce
	}

	switch config.FlushMode {
	case FlushAtLeastOnce, FlushMetricsFirst, FlushTwoPhase:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFlushMode, config.FlushMode)
	}

	return &BufferedPolicy{
		sink:           sink,
		config:         config,
		logger:         config.Logger,
		spanBuffer:     make([]*types.ExecutionSpan, 0, max(config.MaxBufferSpans, 100)),
		spanBufferNext: make([]*types.ExecutionSpan, 0),
		metricsBuffer:  make([]*metrics.Snapshot, 0),
		stats:          newStatsRecorder(),
	}, nil
}

// IngestSpan buffers the span, applying drop rules if the buffer is full.
//
// Drop strategy when full:
//   - If the incoming span is droppable: drop it, record in stats.
//   - If non-droppable and the buffer has droppable spans: drop the
//     oldest droppable span to make room.
//   - If non-droppable and no droppable spans exist: return error (fail
//     the run).
//
// In TwoPhase mode, spans added after a partial flush go to spanBufferNext.
func (p *BufferedPolicy) IngestSpan(ctx context.Context, span *types.ExecutionSpan) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalSpansLocked()

	spanSize := p.estimateSpanSize(span)

	if p.hasRoomForSpan(spanSize) {
		p.appendSpan(span, spanSize)
		return nil
	}

	if IsDroppable(span) {
		p.stats.incSpansDroppedLocked(span.EventType)
		p.logDrop(span.EventType, "buffer_full")
		return nil
	}

	if p.dropOldestDroppable() && p.hasRoomForBytes(spanSize) {
		p.appendSpan(span, spanSize)
		return nil
	}

	p.stats.incErrorsLocked()
	p.logBufferOverflow(span.EventType)
	return ErrBufferFull
}

// appendSpan adds a span to the appropriate buffer. Caller must hold mu.
func (p *BufferedPolicy) appendSpan(span *types.ExecutionSpan, spanSize int64) {
	if p.config.FlushMode == FlushTwoPhase && p.spansFlushed {
		p.spanBufferNext = append(p.spanBufferNext, span)
	} else {
		p.spanBuffer = append(p.spanBuffer, span)
	}
	p.bufferBytes += spanSize
	p.stats.setBufferSizeLocked(p.bufferBytes)
}

// IngestMetrics buffers the snapshot. Snapshots are always droppable: if
// the buffer is out of room, the oldest buffered snapshot is dropped
// silently to make way for the newest one, and IngestMetrics never fails
// the run.
func (p *BufferedPolicy) IngestMetrics(ctx context.Context, snap *metrics.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalSnapshotsLocked()

	if p.config.MaxBufferBytes > 0 {
		size := p.estimateMetricsSize(snap)
		for p.bufferBytes+size > p.config.MaxBufferBytes && len(p.metricsBuffer) > 0 {
			dropped := p.metricsBuffer[0]
			p.metricsBuffer = p.metricsBuffer[1:]
			p.bufferBytes -= p.estimateMetricsSize(dropped)
		}
	}

	p.metricsBuffer = append(p.metricsBuffer, snap)
	p.bufferBytes += p.estimateMetricsSize(snap)
	p.stats.setBufferSizeLocked(p.bufferBytes)
	return nil
}

// Flush writes all buffered spans and metrics to the sink. Behavior
// depends on FlushMode configuration.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	switch p.config.FlushMode {
	case FlushMetricsFirst:
		return p.flushMetricsFirst(ctx)
	case FlushTwoPhase:
		return p.flushTwoPhase(ctx)
	default:
		return p.flushAtLeastOnce(ctx)
	}
}

// flushAtLeastOnce writes spans then metrics; preserves all buffers on
// any failure.
func (p *BufferedPolicy) flushAtLeastOnce(ctx context.Context) error {
	p.mu.Lock()
	p.stats.incFlushLocked()
	spans := p.spanBuffer
	snaps := p.metricsBuffer
	p.mu.Unlock()

	if len(spans) > 0 {
		if err := p.sink.WriteSpans(ctx, spans); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.mu.Unlock()
			p.logFlushFailure("spans", err)
			return err
		}
		p.mu.Lock()
		p.stats.incSpansPersistedLocked(int64(len(spans)))
		p.mu.Unlock()
	}

	if len(snaps) > 0 {
		if err := p.sink.WriteMetrics(ctx, snaps); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.mu.Unlock()
			p.logFlushFailure("metrics", err)
			return err
		}
		p.mu.Lock()
		p.stats.incSnapshotsSyncedLocked(int64(len(snaps)))
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.clearSpanBuffer()
	p.clearMetricsBuffer()
	p.mu.Unlock()

	return nil
}

// flushMetricsFirst writes metrics, then spans. If metrics fail, spans
// are not attempted.
func (p *BufferedPolicy) flushMetricsFirst(ctx context.Context) error {
	p.mu.Lock()
	p.stats.incFlushLocked()
	spans := p.spanBuffer
	snaps := p.metricsBuffer
	p.mu.Unlock()

	if len(snaps) > 0 {
		if err := p.sink.WriteMetrics(ctx, snaps); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.mu.Unlock()
			return err
		}
		p.mu.Lock()
		p.stats.incSnapshotsSyncedLocked(int64(len(snaps)))
		p.mu.Unlock()
	}

	if len(spans) > 0 {
		if err := p.sink.WriteSpans(ctx, spans); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.clearMetricsBuffer()
			p.mu.Unlock()
			return err
		}
		p.mu.Lock()
		p.stats.incSpansPersistedLocked(int64(len(spans)))
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.clearSpanBuffer()
	p.clearMetricsBuffer()
	p.mu.Unlock()

	return nil
}

// flushTwoPhase tracks per-buffer success to avoid duplicates on retry.
// Handles spans added after a partial flush via spanBufferNext.
func (p *BufferedPolicy) flushTwoPhase(ctx context.Context) error {
	p.mu.Lock()
	p.stats.incFlushLocked()
	spans := p.spanBuffer
	spansNext := p.spanBufferNext
	snaps := p.metricsBuffer
	spansFlushed := p.spansFlushed
	p.mu.Unlock()

	if len(spans) > 0 && !spansFlushed {
		if err := p.sink.WriteSpans(ctx, spans); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.mu.Unlock()
			return err
		}
		p.mu.Lock()
		p.stats.incSpansPersistedLocked(int64(len(spans)))
		p.spansFlushed = true
		p.mu.Unlock()
	}

	if len(spansNext) > 0 {
		if err := p.sink.WriteSpans(ctx, spansNext); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.mu.Unlock()
			return err
		}
		p.mu.Lock()
		p.stats.incSpansPersistedLocked(int64(len(spansNext)))
		p.mu.Unlock()
	}

	if len(snaps) > 0 {
		if err := p.sink.WriteMetrics(ctx, snaps); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.clearSpanBufferNext()
			p.mu.Unlock()
			return err
		}
		p.mu.Lock()
		p.stats.incSnapshotsSyncedLocked(int64(len(snaps)))
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.clearSpanBuffer()
	p.clearSpanBufferNext()
	p.clearMetricsBuffer()
	p.spansFlushed = false
	p.mu.Unlock()

	return nil
}

func (p *BufferedPolicy) clearSpanBuffer() {
	p.spanBuffer = make([]*types.ExecutionSpan, 0, max(p.config.MaxBufferSpans, 100))
	p.recalculateBufferBytes()
}

func (p *BufferedPolicy) clearSpanBufferNext() {
	p.spanBufferNext = make([]*types.ExecutionSpan, 0)
	p.recalculateBufferBytes()
}

func (p *BufferedPolicy) clearMetricsBuffer() {
	p.metricsBuffer = make([]*metrics.Snapshot, 0)
	p.recalculateBufferBytes()
}

// recalculateBufferBytes recalculates bufferBytes from all buffers.
// Caller must hold mu.
func (p *BufferedPolicy) recalculateBufferBytes() {
	var total int64
	for _, span := range p.spanBuffer {
		total += p.estimateSpanSize(span)
	}
	for _, span := range p.spanBufferNext {
		total += p.estimateSpanSize(span)
	}
	for _, snap := range p.metricsBuffer {
		total += p.estimateMetricsSize(snap)
	}
	p.bufferBytes = total
	p.stats.setBufferSizeLocked(p.bufferBytes)
}

// Close flushes remaining data and closes the sink.
func (p *BufferedPolicy) Close() error {
	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns an atomic snapshot: the buffer mutex is held while taking
// it, so all counters and buffer size are captured from the same instant.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(p.bufferBytes)
}

func (p *BufferedPolicy) hasRoomForSpan(spanSize int64) bool {
	total := len(p.spanBuffer) + len(p.spanBufferNext)
	if p.config.MaxBufferSpans > 0 && total >= p.config.MaxBufferSpans {
		return false
	}
	return p.hasRoomForBytes(spanSize)
}

func (p *BufferedPolicy) hasRoomForBytes(size int64) bool {
	if p.config.MaxBufferBytes > 0 && p.bufferBytes+size > p.config.MaxBufferBytes {
		return false
	}
	return true
}

// dropOldestDroppable removes the oldest droppable span from the buffer.
// Scans spanBuffer first, then spanBufferNext (TwoPhase mode). Returns
// true if a span was dropped. Caller must hold mu.
func (p *BufferedPolicy) dropOldestDroppable() bool {
	for i, span := range p.spanBuffer {
		if IsDroppable(span) {
			eventType := span.EventType
			size := p.estimateSpanSize(span)
			p.spanBuffer = append(p.spanBuffer[:i], p.spanBuffer[i+1:]...)
			p.bufferBytes -= size
			p.stats.setBufferSizeLocked(p.bufferBytes)
			p.stats.incSpansDroppedLocked(eventType)
			p.logDrop(eventType, "evicted_for_non_droppable")
			return true
		}
	}

	for i, span := range p.spanBufferNext {
		if IsDroppable(span) {
			eventType := span.EventType
			size := p.estimateSpanSize(span)
			p.spanBufferNext = append(p.spanBufferNext[:i], p.spanBufferNext[i+1:]...)
			p.bufferBytes -= size
			p.stats.setBufferSizeLocked(p.bufferBytes)
			p.stats.incSpansDroppedLocked(eventType)
			p.logDrop(eventType, "evicted_for_non_droppable")
			return true
		}
	}

	return false
}

// estimateSpanSize returns a rough size estimate in bytes, for buffer
// management only.
func (p *BufferedPolicy) estimateSpanSize(span *types.ExecutionSpan) int64 {
	size := int64(200)
	if span.Metrics != nil {
		size += 100
	}
	if span.Aggregated != nil {
		size += 100
	}
	size += int64(len(span.SourceIDs)) * 16
	return size
}

func (p *BufferedPolicy) estimateMetricsSize(*metrics.Snapshot) int64 {
	return 150
}

// --- Logging helpers ---

func (p *BufferedPolicy) logDrop(eventType string, reason string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("span dropped", map[string]any{
		"event_type": eventType,
		"reason":     reason,
		"policy":     "buffered",
	})
}

func (p *BufferedPolicy) logBufferOverflow(eventType string) {
	if p.logger == nil {
		return
	}
	p.logger.Error("buffer overflow", map[string]any{
		"event_type": eventType,
		"policy":     "buffered",
	})
}

func (p *BufferedPolicy) logFlushFailure(bufferType string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"buffer_type": bufferType,
		"error":       err.Error(),
		"policy":      "buffered",
	})
}

var _ Policy = (*BufferedPolicy)(nil)
