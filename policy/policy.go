// Package policy controls how the append-only execution log is persisted
// as spans close: synchronously, batched, streamed through an adapter, or
// not at all.
package policy

import (
	"context"
	"sync"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// Policy is the ingestion contract every persistence strategy satisfies.
//
//   - May drop: timestamp spans of event-type sound:milestone, system-time,
//     or timer:tick, and metrics snapshots.
//   - Must NOT drop: record and group spans, and any span carrying a
//     non-empty Status of "error".
//   - Policy must not alter span shapes.
//   - Policy failure terminates the run.
type Policy interface {
	// IngestSpan handles one completed ExecutionSpan. May drop droppable
	// spans. Must not drop non-droppable spans; return error to terminate
	// the run.
	IngestSpan(ctx context.Context, span *types.ExecutionSpan) error

	// IngestMetrics handles a periodic metrics.Snapshot. Always droppable.
	IngestMetrics(ctx context.Context, snap *metrics.Snapshot) error

	// Flush flushes any buffered data. Called on workout:complete or
	// runtime termination.
	Flush(ctx context.Context) error

	// Close cleans up policy resources.
	Close() error

	// Stats returns an atomic snapshot of policy metrics.
	Stats() Stats
}

// Stats represents policy observability metrics.
type Stats struct {
	TotalSpans      int64
	SpansPersisted  int64
	SpansDropped    int64
	DroppedByType   map[string]int64
	TotalSnapshots  int64
	SnapshotsSynced int64
	BufferSize      int64
	FlushCount      int64
	Errors          int64
}

// IsDroppable returns true if span may be dropped under backpressure: a
// timestamp span whose EventType is sound:milestone, system-time, or
// timer:tick. Record and group spans are never droppable, regardless of
// EventType.
func IsDroppable(span *types.ExecutionSpan) bool {
	if span.Category != types.SpanTimestamp {
		return false
	}
	switch span.EventType {
	case types.EventSoundMilestone, systemTimeEventType, types.EventTimerTick:
		return true
	default:
		return false
	}
}

// systemTimeEventType marks timestamp spans derived from the system clock
// rather than the workout clock (wall-clock checkpoints), which a policy
// may drop under backpressure same as sound cues and ticks.
const systemTimeEventType = "system-time"

// statsRecorder is an internal helper for thread-safe stats management.
// Policies call explicit methods to record mutations; the recorder does
// not infer or automate any policy decisions.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{stats: Stats{DroppedByType: make(map[string]int64)}}
}

func (r *statsRecorder) incTotalSpans() {
	r.mu.Lock()
	r.stats.TotalSpans++
	r.mu.Unlock()
}

func (r *statsRecorder) incSpansPersisted(n int64) {
	r.mu.Lock()
	r.stats.SpansPersisted += n
	r.mu.Unlock()
}

func (r *statsRecorder) incTotalSnapshots() {
	r.mu.Lock()
	r.stats.TotalSnapshots++
	r.mu.Unlock()
}

func (r *statsRecorder) incSnapshotsSynced(n int64) {
	r.mu.Lock()
	r.stats.SnapshotsSynced += n
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush() {
	r.mu.Lock()
	r.stats.FlushCount++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stats
	s.DroppedByType = make(map[string]int64, len(r.stats.DroppedByType))
	for k, v := range r.stats.DroppedByType {
		s.DroppedByType[k] = v
	}
	return s
}

// --- Locked variants, for BufferedPolicy which holds its own mutex across
// a buffer mutation and its stats update. ---

func (r *statsRecorder) incTotalSpansLocked() {
	r.stats.TotalSpans++
}

func (r *statsRecorder) incSpansPersistedLocked(n int64) {
	r.stats.SpansPersisted += n
}

func (r *statsRecorder) incSpansDroppedLocked(eventType string) {
	r.stats.SpansDropped++
	r.stats.DroppedByType[eventType]++
}

func (r *statsRecorder) incTotalSnapshotsLocked() {
	r.stats.TotalSnapshots++
}

func (r *statsRecorder) incSnapshotsSyncedLocked(n int64) {
	r.stats.SnapshotsSynced += n
}

func (r *statsRecorder) incErrorsLocked() {
	r.stats.Errors++
}

func (r *statsRecorder) incFlushLocked() {
	r.stats.FlushCount++
}

func (r *statsRecorder) setBufferSizeLocked(bytes int64) {
	r.stats.BufferSize = bytes
}

func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	s.DroppedByType = make(map[string]int64, len(r.stats.DroppedByType))
	for k, v := range r.stats.DroppedByType {
		s.DroppedByType[k] = v
	}
	return s
}
