package policy

import (
	"context"
	"sync"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// Sink abstracts persistence for policies: a history.Sink (optionally
// wrapped in history.InstrumentedSink) in production, or a stub for
// testing. Methods are batch-oriented to
// support both strict (batch of 1) and buffered policies.
type Sink interface {
	// WriteSpans persists a batch of execution spans, preserving order.
	WriteSpans(ctx context.Context, spans []*types.ExecutionSpan) error

	// WriteMetrics persists a batch of metrics snapshots, preserving order.
	WriteMetrics(ctx context.Context, snaps []*metrics.Snapshot) error

	// Close releases any resources held by the sink.
	Close() error
}

// WriteOp records one write operation for ordering verification in tests.
type WriteOp struct {
	Kind    string // "spans" or "metrics"
	Spans   []*types.ExecutionSpan
	Metrics []*metrics.Snapshot
}

// StubSink is a test sink that accepts writes without persisting.
type StubSink struct {
	mu sync.Mutex

	SpansWritten   int64
	MetricsWritten int64
	SpanBatches    int64
	MetricBatches  int64
	Closed         bool

	WrittenSpans   []*types.ExecutionSpan
	WrittenMetrics []*metrics.Snapshot
	WriteOrder     []WriteOp

	// ErrorOnWrite, if non-nil, is returned by WriteSpans/WriteMetrics.
	ErrorOnWrite error
}

func NewStubSink() *StubSink {
	return &StubSink{}
}

func (s *StubSink) WriteSpans(_ context.Context, spans []*types.ExecutionSpan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}

	s.SpanBatches++
	s.SpansWritten += int64(len(spans))
	s.WrittenSpans = append(s.WrittenSpans, spans...)
	s.WriteOrder = append(s.WriteOrder, WriteOp{Kind: "spans", Spans: spans})
	return nil
}

func (s *StubSink) WriteMetrics(_ context.Context, snaps []*metrics.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}

	s.MetricBatches++
	s.MetricsWritten += int64(len(snaps))
	s.WrittenMetrics = append(s.WrittenMetrics, snaps...)
	s.WriteOrder = append(s.WriteOrder, WriteOp{Kind: "metrics", Metrics: snaps})
	return nil
}

func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Stats returns a snapshot of sink statistics.
func (s *StubSink) Stats() StubSinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StubSinkStats{
		SpansWritten:   s.SpansWritten,
		MetricsWritten: s.MetricsWritten,
		SpanBatches:    s.SpanBatches,
		MetricBatches:  s.MetricBatches,
		Closed:         s.Closed,
	}
}

// StubSinkStats is a snapshot of StubSink statistics.
type StubSinkStats struct {
	SpansWritten   int64
	MetricsWritten int64
	SpanBatches    int64
	MetricBatches  int64
	Closed         bool
}
