package policy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wod-wiki/wodwiki/internal/obslog"
	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// StreamingConfig configures a StreamingPolicy.
type StreamingConfig struct {
	// FlushCount triggers a flush after N spans accumulate. Zero means
	// count-based flush is disabled.
	FlushCount int

	// FlushInterval triggers a flush every interval. Zero means
	// interval-based flush is disabled.
	FlushInterval time.Duration

	// Logger is an optional logger for policy observability.
	Logger *obslog.Logger
}

// FlushTrigger identifies which trigger caused a flush.
type FlushTrigger string

const (
	FlushTriggerCount       FlushTrigger = "count"
	FlushTriggerInterval    FlushTrigger = "interval"
	FlushTriggerTermination FlushTrigger = "termination"
)

// ErrStreamingInvalidConfig is returned when StreamingConfig is invalid.
var ErrStreamingInvalidConfig = errors.New("invalid streaming config: at least one of FlushCount or FlushInterval must be set")

// StreamingPolicy implements continuous persistence with batched writes.
//
//   - No drops: every span is persisted (same guarantee as strict).
//   - Unbounded buffer: spans accumulate in an in-memory buffer with no
//     size cap; only a flush empties it.
//   - Periodic flush: buffer flushed to storage when any trigger fires.
//
// Flush semantics: metrics snapshots first, then spans. On flush failure,
// the buffer is preserved and retried on the next trigger.
//
// Thread safety:
//   - mu guards buffer state (append, size tracking, stats)
//   - flushMu serializes flush operations to prevent concurrent writes
//   - IngestSpan/IngestMetrics hold mu briefly to append
//   - triggerFlush holds flushMu for the duration of the write, and mu
//     briefly to swap/restore buffers
type StreamingPolicy struct {
	sink   Sink
	config StreamingConfig
	logger *obslog.Logger

	mu            sync.Mutex // guards buffer state and stats
	spanBuffer    []*types.ExecutionSpan
	metricsBuffer []*metrics.Snapshot
	bufferBytes   int64
	stats         *statsRecorder

	flushMu sync.Mutex

	flushByCount       int64
	flushByInterval    int64
	flushByTermination int64

	stopCh  chan struct{}
	stopped bool
}

// NewStreamingPolicy creates a new streaming policy. Returns error if
// config is invalid.
func NewStreamingPolicy(sink Sink, config StreamingConfig) (*StreamingPolicy, error) {
	if config.FlushCount <= 0 && config.FlushInterval <= 0 {
		return nil, ErrStreamingInvalidConfig
	}

	p := &StreamingPolicy{
		sink:          sink,
		config:        config,
		logger:        config.Logger,
		spanBuffer:    make([]*types.ExecutionSpan, 0, 128),
		metricsBuffer: make([]*metrics.Snapshot, 0),
		stats:         newStatsRecorder(),
		stopCh:        make(chan struct{}),
	}

	if config.FlushInterval > 0 {
		go p.intervalLoop()
	}

	return p, nil
}

// IngestSpan adds the span to the buffer. Never drops spans. If the
// count threshold is reached, triggers a flush.
func (p *StreamingPolicy) IngestSpan(ctx context.Context, span *types.ExecutionSpan) error {
	p.mu.Lock()

	p.stats.incTotalSpansLocked()
	spanSize := p.estimateSpanSize(span)
	p.spanBuffer = append(p.spanBuffer, span)
	p.bufferBytes += spanSize
	p.stats.setBufferSizeLocked(p.bufferBytes)

	shouldFlush := p.config.FlushCount > 0 && len(p.spanBuffer) >= p.config.FlushCount
	p.mu.Unlock()

	if shouldFlush {
		return p.triggerFlush(ctx, FlushTriggerCount)
	}

	return nil
}

// IngestMetrics adds the snapshot to the buffer. Never drops.
func (p *StreamingPolicy) IngestMetrics(_ context.Context, snap *metrics.Snapshot) error {
	p.mu.Lock()

	p.stats.incTotalSnapshotsLocked()
	p.metricsBuffer = append(p.metricsBuffer, snap)
	p.bufferBytes += p.estimateMetricsSize(snap)
	p.stats.setBufferSizeLocked(p.bufferBytes)

	p.mu.Unlock()

	return nil
}

// Flush flushes all buffered data (run termination trigger).
func (p *StreamingPolicy) Flush(ctx context.Context) error {
	return p.triggerFlush(ctx, FlushTriggerTermination)
}

// triggerFlush performs a flush with the given trigger reason, serialized
// by flushMu. Buffers are swapped under mu, written outside mu, and
// restored on failure, so ingestion can continue into fresh buffers
// during a write without blocking on the sink.
func (p *StreamingPolicy) triggerFlush(ctx context.Context, trigger FlushTrigger) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()

	switch trigger {
	case FlushTriggerCount:
		p.flushByCount++
	case FlushTriggerInterval:
		p.flushByInterval++
	case FlushTriggerTermination:
		p.flushByTermination++
	}

	p.stats.incFlushLocked()

	spans := p.spanBuffer
	snaps := p.metricsBuffer

	if len(spans) == 0 && len(snaps) == 0 {
		p.mu.Unlock()
		return nil
	}

	p.spanBuffer = make([]*types.ExecutionSpan, 0, 128)
	p.metricsBuffer = make([]*metrics.Snapshot, 0)
	p.recalculateBufferBytes()

	p.mu.Unlock()

	if len(snaps) > 0 {
		if err := p.sink.WriteMetrics(ctx, snaps); err != nil {
			p.mu.Lock()
			p.stats.incErrorsLocked()
			p.spanBuffer = append(spans, p.spanBuffer...)
			p.metricsBuffer = append(snaps, p.metricsBuffer...)
			p.recalculateBufferBytes()
			p.mu.Unlock()
			p.logFlushFailure("metrics", trigger, err)
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
			p.spanBuffer = append(spans, p.spanBuffer...)
			p.recalculateBufferBytes()
			p.mu.Unlock()
			p.logFlushFailure("spans", trigger, err)
			return err
		}
		p.mu.Lock()
		p.stats.incSpansPersistedLocked(int64(len(spans)))
		p.mu.Unlock()
	}

	p.logFlush(trigger, len(spans), len(snaps))

	return nil
}

// Close stops the interval goroutine and closes the sink.
func (p *StreamingPolicy) Close() error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stopCh)
	}
	p.mu.Unlock()

	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns an atomic snapshot of stats and buffer size.
func (p *StreamingPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats.snapshotLocked(p.bufferBytes)
}

// FlushTriggerStats returns per-trigger flush counts for observability.
// Additive to the base Stats.
func (p *StreamingPolicy) FlushTriggerStats() map[FlushTrigger]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return map[FlushTrigger]int64{
		FlushTriggerCount:       p.flushByCount,
		FlushTriggerInterval:    p.flushByInterval,
		FlushTriggerTermination: p.flushByTermination,
	}
}

func (p *StreamingPolicy) intervalLoop() {
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			hasData := len(p.spanBuffer) > 0 || len(p.metricsBuffer) > 0
			p.mu.Unlock()

			if hasData {
				_ = p.triggerFlush(context.Background(), FlushTriggerInterval)
			}
		case <-p.stopCh:
			return
		}
	}
}

func (p *StreamingPolicy) estimateSpanSize(span *types.ExecutionSpan) int64 {
	size := int64(200)
	if span.Metrics != nil {
		size += 100
	}
	return size
}

func (p *StreamingPolicy) estimateMetricsSize(*metrics.Snapshot) int64 {
	return 150
}

// recalculateBufferBytes recalculates bufferBytes from all buffers.
// Caller must hold mu.
func (p *StreamingPolicy) recalculateBufferBytes() {
	var total int64
	for _, span := range p.spanBuffer {
		total += p.estimateSpanSize(span)
	}
	for _, snap := range p.metricsBuffer {
		total += p.estimateMetricsSize(snap)
	}
	p.bufferBytes = total
	p.stats.setBufferSizeLocked(p.bufferBytes)
}

// --- Logging helpers ---

func (p *StreamingPolicy) logFlush(trigger FlushTrigger, spans, snaps int) {
	if p.logger == nil {
		return
	}
	p.logger.Info("streaming flush", map[string]any{
		"trigger": string(trigger),
		"spans":   spans,
		"metrics": snaps,
		"policy":  "streaming",
	})
}

func (p *StreamingPolicy) logFlushFailure(bufferType string, trigger FlushTrigger, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("streaming flush failed", map[string]any{
		"buffer_type": bufferType,
		"trigger":     string(trigger),
		"error":       err.Error(),
		"policy":      "streaming",
	})
}

var _ Policy = (*StreamingPolicy)(nil)
