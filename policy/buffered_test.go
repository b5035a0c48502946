package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/policy"
	"github.com/wod-wiki/wodwiki/types"
)

func mustNewBufferedPolicy(t *testing.T, sink policy.Sink, config policy.BufferedConfig) *policy.BufferedPolicy {
	t.Helper()
	pol, err := policy.NewBufferedPolicy(sink, config)
	if err != nil {
		t.Fatalf("NewBufferedPolicy failed: %v", err)
	}
	return pol
}

func tickSpan(id string) *types.ExecutionSpan {
	return &types.ExecutionSpan{ID: id, Category: types.SpanTimestamp, EventType: types.EventTimerTick}
}

func recordSpan(id string) *types.ExecutionSpan {
	return &types.ExecutionSpan{ID: id, Category: types.SpanRecord}
}

func newSnapshot() *metrics.Snapshot {
	c := metrics.NewCollector("script-1", "run-1")
	s := c.Snapshot()
	return &s
}

func TestBufferedPolicy_BuffersSpans(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 10})

	for i := 1; i <= 3; i++ {
		if err := pol.IngestSpan(context.Background(), recordSpan(string(rune('0'+i)))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if sink.Stats().SpansWritten != 0 {
		t.Errorf("expected 0 spans written before flush, got %d", sink.Stats().SpansWritten)
	}

	stats := pol.Stats()
	if stats.TotalSpans != 3 {
		t.Errorf("expected TotalSpans=3, got %d", stats.TotalSpans)
	}
	if stats.SpansPersisted != 0 {
		t.Errorf("expected SpansPersisted=0 before flush, got %d", stats.SpansPersisted)
	}
}

func TestBufferedPolicy_FlushWritesBatch(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 10})

	for i := 1; i <= 5; i++ {
		_ = pol.IngestSpan(context.Background(), recordSpan(string(rune('0'+i))))
	}

	if err := pol.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sinkStats := sink.Stats()
	if sinkStats.SpansWritten != 5 {
		t.Errorf("expected 5 spans written, got %d", sinkStats.SpansWritten)
	}
	if sinkStats.SpanBatches != 1 {
		t.Errorf("expected 1 batch, got %d", sinkStats.SpanBatches)
	}

	stats := pol.Stats()
	if stats.SpansPersisted != 5 {
		t.Errorf("expected SpansPersisted=5, got %d", stats.SpansPersisted)
	}
	if stats.FlushCount != 1 {
		t.Errorf("expected FlushCount=1, got %d", stats.FlushCount)
	}
}

func TestBufferedPolicy_DropsDroppableWhenFull(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 3})

	for i := 1; i <= 3; i++ {
		if err := pol.IngestSpan(context.Background(), recordSpan(string(rune('0'+i)))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := pol.IngestSpan(context.Background(), tickSpan("tick1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := pol.Stats()
	if stats.SpansDropped != 1 {
		t.Errorf("expected 1 dropped span, got %d", stats.SpansDropped)
	}
	if stats.DroppedByType[types.EventTimerTick] != 1 {
		t.Errorf("expected 1 tick dropped, got %d", stats.DroppedByType[types.EventTimerTick])
	}
}

func TestBufferedPolicy_EvictsDroppableForNonDroppable(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 3})

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))
	_ = pol.IngestSpan(context.Background(), tickSpan("tick1"))
	_ = pol.IngestSpan(context.Background(), recordSpan("s2"))

	if err := pol.IngestSpan(context.Background(), recordSpan("s3")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := pol.Stats()
	if stats.SpansDropped != 1 {
		t.Errorf("expected 1 dropped span, got %d", stats.SpansDropped)
	}
	if stats.DroppedByType[types.EventTimerTick] != 1 {
		t.Errorf("expected tick to be dropped, got %v", stats.DroppedByType)
	}

	_ = pol.Flush(context.Background())
	if sink.Stats().SpansWritten != 3 {
		t.Errorf("expected 3 spans written, got %d", sink.Stats().SpansWritten)
	}
	for _, s := range sink.WrittenSpans {
		if s.EventType == types.EventTimerTick {
			t.Error("tick span should have been evicted")
		}
	}
}

func TestBufferedPolicy_ErrorsOnNonDroppableWhenNoDroppable(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 2})

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))
	_ = pol.IngestSpan(context.Background(), &types.ExecutionSpan{ID: "s2", Category: types.SpanGroup})

	err := pol.IngestSpan(context.Background(), recordSpan("s3"))
	if !errors.Is(err, policy.ErrBufferFull) {
		t.Errorf("expected ErrBufferFull, got %v", err)
	}

	if stats := pol.Stats(); stats.Errors != 1 {
		t.Errorf("expected Errors=1, got %d", stats.Errors)
	}
}

func TestBufferedPolicy_OrderingPreserved(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 10})

	for i := 1; i <= 5; i++ {
		span := &types.ExecutionSpan{ID: string(rune('0' + i)), StartTime: int64(i), Category: types.SpanRecord}
		_ = pol.IngestSpan(context.Background(), span)
	}
	_ = pol.Flush(context.Background())

	if len(sink.WrittenSpans) != 5 {
		t.Fatalf("expected 5 spans, got %d", len(sink.WrittenSpans))
	}
	for i, s := range sink.WrittenSpans {
		if s.StartTime != int64(i+1) {
			t.Errorf("span %d: expected StartTime %d, got %d", i, i+1, s.StartTime)
		}
	}
}

func TestBufferedPolicy_MetricsBufferedAndFlushed(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferBytes: 1024})

	for i := 0; i < 3; i++ {
		if err := pol.IngestMetrics(context.Background(), newSnapshot()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if sink.Stats().MetricsWritten != 0 {
		t.Errorf("expected 0 metrics written before flush, got %d", sink.Stats().MetricsWritten)
	}

	_ = pol.Flush(context.Background())

	if sink.Stats().MetricsWritten != 3 {
		t.Errorf("expected 3 metrics written after flush, got %d", sink.Stats().MetricsWritten)
	}
	if sink.Stats().MetricBatches != 1 {
		t.Errorf("expected 1 metric batch, got %d", sink.Stats().MetricBatches)
	}
}

func TestBufferedPolicy_MetricsNeverErrorWhenFull_EvictsOldest(t *testing.T) {
	sink := policy.NewStubSink()
	// Each snapshot estimated at 150 bytes; only room for 2.
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferBytes: 300})

	for i := 0; i < 5; i++ {
		if err := pol.IngestMetrics(context.Background(), newSnapshot()); err != nil {
			t.Fatalf("IngestMetrics should never error, got: %v", err)
		}
	}

	stats := pol.Stats()
	if stats.TotalSnapshots != 5 {
		t.Errorf("expected TotalSnapshots=5, got %d", stats.TotalSnapshots)
	}
	if stats.Errors != 0 {
		t.Errorf("metrics ingestion should never error, got Errors=%d", stats.Errors)
	}

	_ = pol.Flush(context.Background())
	// Older snapshots silently evicted to stay within the byte budget.
	if sink.Stats().MetricsWritten >= 5 {
		t.Errorf("expected fewer than 5 snapshots surviving eviction, got %d", sink.Stats().MetricsWritten)
	}
}

func TestBufferedPolicy_SinkError(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 10})

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))

	expectedErr := errors.New("sink failure")
	sink.ErrorOnWrite = expectedErr

	err := pol.Flush(context.Background())
	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}

	if stats := pol.Stats(); stats.Errors != 1 {
		t.Errorf("expected Errors=1, got %d", stats.Errors)
	}
}

func TestBufferedPolicy_Close_FlushesAndCloses(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 10})

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))

	if err := pol.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sink.Stats().SpansWritten != 1 {
		t.Errorf("expected 1 span written on close, got %d", sink.Stats().SpansWritten)
	}
	if !sink.Stats().Closed {
		t.Error("sink should be closed")
	}
}

func TestBufferedPolicy_DropsOnlyAllowedEventTypes(t *testing.T) {
	droppable := []string{types.EventSoundMilestone, types.EventTimerTick, "system-time"}

	for _, et := range droppable {
		t.Run(et, func(t *testing.T) {
			sink := policy.NewStubSink()
			pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 1})

			_ = pol.IngestSpan(context.Background(), recordSpan("s1"))

			err := pol.IngestSpan(context.Background(), &types.ExecutionSpan{
				ID: "d1", Category: types.SpanTimestamp, EventType: et,
			})
			if err != nil {
				t.Errorf("droppable type %s should not error, got %v", et, err)
			}

			if stats := pol.Stats(); stats.SpansDropped != 1 {
				t.Errorf("expected 1 drop for %s, got %d", et, stats.SpansDropped)
			}
		})
	}
}

func TestBufferedPolicy_NeverDropsRecordOrGroup(t *testing.T) {
	categories := []types.SpanCategory{types.SpanRecord, types.SpanGroup}

	for _, cat := range categories {
		t.Run(string(cat), func(t *testing.T) {
			sink := policy.NewStubSink()
			pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 1})

			_ = pol.IngestSpan(context.Background(), recordSpan("s1"))

			err := pol.IngestSpan(context.Background(), &types.ExecutionSpan{ID: "s2", Category: cat})
			if !errors.Is(err, policy.ErrBufferFull) {
				t.Errorf("category %s should error when buffer full, got %v", cat, err)
			}
		})
	}
}

func TestBufferedPolicy_InvalidConfig_BothLimitsZero(t *testing.T) {
	sink := policy.NewStubSink()
	_, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{})
	if !errors.Is(err, policy.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBufferedPolicy_ValidConfig_OnlySpanLimit(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferSpans: 10})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if pol == nil {
		t.Fatal("expected non-nil policy")
	}
}

func TestBufferedPolicy_ValidConfig_OnlyByteLimit(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferBytes: 1024})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if pol == nil {
		t.Fatal("expected non-nil policy")
	}
}

func TestBufferedPolicy_InvalidFlushMode(t *testing.T) {
	sink := policy.NewStubSink()
	_, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferBytes: 1000, FlushMode: "invalid_mode"})
	if !errors.Is(err, policy.ErrInvalidFlushMode) {
		t.Errorf("expected ErrInvalidFlushMode, got %v", err)
	}
}

func TestBufferedPolicy_DefaultFlushMode(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxBufferBytes: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pol == nil {
		t.Fatal("expected non-nil policy")
	}
}

func TestBufferedPolicy_FlushMetricsFirst_NoSpansOnMetricsFailure(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{
		MaxBufferBytes: 1000,
		FlushMode:      policy.FlushMetricsFirst,
	})

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))
	_ = pol.IngestMetrics(context.Background(), newSnapshot())

	sink.ErrorOnWrite = errors.New("metrics write failed")

	err := pol.Flush(context.Background())
	if err == nil {
		t.Fatal("expected flush to fail")
	}

	if sink.Stats().SpansWritten != 0 {
		t.Errorf("expected 0 spans written when metrics fail first, got %d", sink.Stats().SpansWritten)
	}
}

func TestBufferedPolicy_FlushTwoPhase_SpansNotRewrittenOnMetricsFailure(t *testing.T) {
	baseSink := policy.NewStubSink()
	failingSink := &bufferedSelectiveFailSink{StubSink: baseSink, failOnMetrics: true}

	pol, err := policy.NewBufferedPolicy(failingSink, policy.BufferedConfig{
		MaxBufferBytes: 10000,
		FlushMode:      policy.FlushTwoPhase,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))
	_ = pol.IngestMetrics(context.Background(), newSnapshot())

	if err := pol.Flush(context.Background()); err == nil {
		t.Fatal("expected flush to fail on metrics")
	}

	if baseSink.Stats().SpansWritten != 1 {
		t.Errorf("expected 1 span written, got %d", baseSink.Stats().SpansWritten)
	}

	failingSink.failOnMetrics = false
	if err := pol.Flush(context.Background()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}

	if baseSink.Stats().SpansWritten != 1 {
		t.Errorf("expected spans not re-written, got %d", baseSink.Stats().SpansWritten)
	}
	if baseSink.Stats().MetricsWritten != 1 {
		t.Errorf("expected 1 metrics snapshot written, got %d", baseSink.Stats().MetricsWritten)
	}
}

func TestBufferedPolicy_FlushTwoPhase_NewSpansAfterPartialFlushAreWritten(t *testing.T) {
	baseSink := policy.NewStubSink()
	failingSink := &bufferedSelectiveFailSink{StubSink: baseSink, failOnMetrics: true}

	pol, _ := policy.NewBufferedPolicy(failingSink, policy.BufferedConfig{
		MaxBufferBytes: 10000,
		FlushMode:      policy.FlushTwoPhase,
	})

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))
	_ = pol.IngestMetrics(context.Background(), newSnapshot())

	if err := pol.Flush(context.Background()); err == nil {
		t.Fatal("expected flush to fail on metrics")
	}

	_ = pol.IngestSpan(context.Background(), recordSpan("s2"))

	failingSink.failOnMetrics = false
	if err := pol.Flush(context.Background()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}

	if baseSink.Stats().SpansWritten != 2 {
		t.Errorf("expected 2 spans written (s1 + s2), got %d", baseSink.Stats().SpansWritten)
	}

	ids := make(map[string]int)
	for _, s := range baseSink.WrittenSpans {
		ids[s.ID]++
	}
	if ids["s1"] != 1 {
		t.Errorf("s1 should be written exactly once, got %d", ids["s1"])
	}
	if ids["s2"] != 1 {
		t.Errorf("s2 should be written exactly once, got %d", ids["s2"])
	}
}

// bufferedSelectiveFailSink allows controlling which write fails.
type bufferedSelectiveFailSink struct {
	*policy.StubSink
	failOnSpans   bool
	failOnMetrics bool
}

func (s *bufferedSelectiveFailSink) WriteSpans(ctx context.Context, spans []*types.ExecutionSpan) error {
	if s.failOnSpans {
		return errors.New("span write failed")
	}
	return s.StubSink.WriteSpans(ctx, spans)
}

func (s *bufferedSelectiveFailSink) WriteMetrics(ctx context.Context, snaps []*metrics.Snapshot) error {
	if s.failOnMetrics {
		return errors.New("metrics write failed")
	}
	return s.StubSink.WriteMetrics(ctx, snaps)
}

func TestBufferedPolicy_BufferSize_ZeroAfterSuccessfulFlush(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferBytes: 1000})

	_ = pol.IngestSpan(context.Background(), recordSpan("s1"))
	_ = pol.IngestMetrics(context.Background(), newSnapshot())

	if pol.Stats().BufferSize == 0 {
		t.Fatal("buffer should have data before flush")
	}

	if err := pol.Flush(context.Background()); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if stats := pol.Stats(); stats.BufferSize != 0 {
		t.Errorf("expected BufferSize=0 after successful flush, got %d", stats.BufferSize)
	}
}

func TestBufferedPolicy_FlushFailure_PreservesSpanBuffer(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferSpans: 10})

	for i := 1; i <= 3; i++ {
		_ = pol.IngestSpan(context.Background(), recordSpan(string(rune('0'+i))))
	}

	sink.ErrorOnWrite = errors.New("write failed")
	if err := pol.Flush(context.Background()); err == nil {
		t.Fatal("expected flush to fail")
	}

	if stats := pol.Stats(); stats.BufferSize == 0 {
		t.Error("buffer should not be cleared on flush failure")
	}

	sink.ErrorOnWrite = nil
	if err := pol.Flush(context.Background()); err != nil {
		t.Fatalf("retry flush failed: %v", err)
	}

	if sink.Stats().SpansWritten != 3 {
		t.Errorf("expected 3 spans written after retry, got %d", sink.Stats().SpansWritten)
	}
}
