package runtime

import "github.com/wod-wiki/wodwiki/types"

// Tracker accumulates the execution log: one open ExecutionSpan at a time
// per block, moved into the append-only log when closed. This is the
// "tracker" a Runtime owns alongside its stack, memory, and clock.
type Tracker struct {
	active map[types.BlockKey]*types.ExecutionSpan
	log    []types.ExecutionSpan
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[types.BlockKey]*types.ExecutionSpan)}
}

// Open starts a new active span for span.BlockID. Opening a second span
// for a block that already has one open replaces it without closing the
// first into the log — callers must Close before Open to preserve the
// at-most-one-open-span invariant.
func (t *Tracker) Open(span types.ExecutionSpan) {
	s := span
	t.active[span.BlockID] = &s
}

// Close ends the active span for blockKey at endTime and moves it into the
// append-only log. A no-op if blockKey has no open span.
func (t *Tracker) Close(blockKey types.BlockKey, endTime int64) {
	span, ok := t.active[blockKey]
	if !ok {
		return
	}
	span.EndTime = &endTime
	t.log = append(t.log, *span)
	delete(t.active, blockKey)
}

// AppendMetric merges a metric into blockKey's active span if one exists;
// otherwise it appends a standalone record span directly to the log.
func (t *Tracker) AppendMetric(blockKey types.BlockKey, metric types.SpanMetrics) {
	if span, ok := t.active[blockKey]; ok {
		mergeMetrics(span, metric)
		return
	}
	m := metric
	t.log = append(t.log, types.ExecutionSpan{
		Category: types.SpanRecord,
		BlockID:  blockKey,
		Metrics:  &m,
	})
}

// AppendTimestamp appends a zero-duration timestamp span directly to the
// log; timestamp spans never pass through the active map.
func (t *Tracker) AppendTimestamp(span types.ExecutionSpan) {
	span.Category = types.SpanTimestamp
	end := span.StartTime
	span.EndTime = &end
	t.log = append(t.log, span)
}

// Active returns blockKey's open span, if any.
func (t *Tracker) Active(blockKey types.BlockKey) (*types.ExecutionSpan, bool) {
	s, ok := t.active[blockKey]
	return s, ok
}

// Log returns a copy of the append-only execution log.
func (t *Tracker) Log() []types.ExecutionSpan {
	out := make([]types.ExecutionSpan, len(t.log))
	copy(out, t.log)
	return out
}

func mergeMetrics(span *types.ExecutionSpan, metric types.SpanMetrics) {
	if span.Metrics == nil {
		span.Metrics = &types.SpanMetrics{}
	}
	dst := span.Metrics
	if metric.Reps != nil {
		dst.Reps = metric.Reps
	}
	if metric.Weight != nil {
		dst.Weight = metric.Weight
	}
	if metric.Distance != nil {
		dst.Distance = metric.Distance
	}
	if metric.Duration != nil {
		dst.Duration = metric.Duration
	}
	if metric.Calories != nil {
		dst.Calories = metric.Calories
	}
	if metric.Custom != nil {
		if dst.Custom == nil {
			dst.Custom = make(map[string]any, len(metric.Custom))
		}
		for k, v := range metric.Custom {
			dst.Custom[k] = v
		}
	}
}
