package history

import (
	"context"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/policy"
	"github.com/wod-wiki/wodwiki/types"
)

// InstrumentedSink wraps a policy.Sink and records write outcomes on a
// metrics.Collector. Each WriteSpans/WriteMetrics call increments
// HistoryWriteSuccess or HistoryWriteFailure.
type InstrumentedSink struct {
	inner     policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteSpans delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteSpans(ctx context.Context, spans []*types.ExecutionSpan) error {
	err := s.inner.WriteSpans(ctx, spans)
	if err != nil {
		s.collector.IncHistoryWriteFailure()
	} else {
		s.collector.IncHistoryWriteSuccess()
	}
	return err
}

// WriteMetrics delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteMetrics(ctx context.Context, snaps []*metrics.Snapshot) error {
	err := s.inner.WriteMetrics(ctx, snaps)
	if err != nil {
		s.collector.IncHistoryWriteFailure()
	} else {
		s.collector.IncHistoryWriteSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedSink implements policy.Sink.
var _ policy.Sink = (*InstrumentedSink)(nil)
