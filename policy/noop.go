package policy

import (
	"context"
	"sync"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// NoopPolicy accepts all spans and snapshots but does not persist them —
// for tests and other in-memory-only runs. Stats still reflect
// droppable vs non-droppable semantics:
//   - Droppable spans are counted as dropped.
//   - Non-droppable spans are counted as "persisted" even though nothing
//     is actually written, to keep Stats meaningful regardless of policy.
type NoopPolicy struct {
	mu    sync.Mutex
	stats Stats
}

// NewNoopPolicy creates a new no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: Stats{DroppedByType: make(map[string]int64)}}
}

func (p *NoopPolicy) IngestSpan(_ context.Context, span *types.ExecutionSpan) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalSpans++
	if IsDroppable(span) {
		p.stats.SpansDropped++
		p.stats.DroppedByType[span.EventType]++
	} else {
		p.stats.SpansPersisted++
	}
	return nil
}

func (p *NoopPolicy) IngestMetrics(_ context.Context, _ *metrics.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.TotalSnapshots++
	return nil
}

func (p *NoopPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.FlushCount++
	return nil
}

func (p *NoopPolicy) Close() error { return nil }

func (p *NoopPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	stats.DroppedByType = make(map[string]int64, len(p.stats.DroppedByType))
	for k, v := range p.stats.DroppedByType {
		stats.DroppedByType[k] = v
	}
	return stats
}

var _ Policy = (*NoopPolicy)(nil)
