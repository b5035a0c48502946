package policy

import (
	"context"
	"sync"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// StrictPolicy implements synchronous, unbuffered persistence.
//
//   - No buffering: each span/snapshot is written immediately.
//   - No drops: everything is persisted, including otherwise-droppable
//     spans, since there's no backpressure to relieve.
//   - Backpressure: caller blocks on sink latency.
//   - Sink errors fail the run.
type StrictPolicy struct {
	sink Sink

	mu    sync.Mutex
	stats Stats
}

// NewStrictPolicy creates a new strict policy writing to the given sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink, stats: Stats{DroppedByType: make(map[string]int64)}}
}

func (p *StrictPolicy) IngestSpan(ctx context.Context, span *types.ExecutionSpan) error {
	p.mu.Lock()
	p.stats.TotalSpans++
	p.mu.Unlock()

	if err := p.sink.WriteSpans(ctx, []*types.ExecutionSpan{span}); err != nil {
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.stats.SpansPersisted++
	p.mu.Unlock()
	return nil
}

func (p *StrictPolicy) IngestMetrics(ctx context.Context, snap *metrics.Snapshot) error {
	p.mu.Lock()
	p.stats.TotalSnapshots++
	p.mu.Unlock()

	if err := p.sink.WriteMetrics(ctx, []*metrics.Snapshot{snap}); err != nil {
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.stats.SnapshotsSynced++
	p.mu.Unlock()
	return nil
}

// Flush is a no-op for strict policy (nothing is buffered).
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.FlushCount++
	return nil
}

func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

func (p *StrictPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	stats.DroppedByType = make(map[string]int64, len(p.stats.DroppedByType))
	for k, v := range p.stats.DroppedByType {
		stats.DroppedByType[k] = v
	}
	return stats
}

var _ Policy = (*StrictPolicy)(nil)
