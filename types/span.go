package types

// TimeSpan is the canonical open/closed time interval type used throughout
// the system: by RuntimeClock, by timer-spans memory entries, and embedded
// in ExecutionSpan bookkeeping.
type TimeSpan struct {
	Started int64 // epoch milliseconds
	Ended   *int64
}

// Open reports whether the span has not yet been closed.
func (t TimeSpan) Open() bool {
	return t.Ended == nil
}

// Duration returns the span's duration in milliseconds as of "now" (an
// epoch-millisecond timestamp supplied by the caller): Ended-Started if
// closed, or now-Started if still open.
func (t TimeSpan) Duration(nowMs int64) int64 {
	if t.Ended != nil {
		return *t.Ended - t.Started
	}
	return nowMs - t.Started
}

// SpanCategory discriminates the three kinds of ExecutionSpan.
type SpanCategory string

const (
	// SpanTimestamp is a zero-duration, childless point-in-time event
	// (workout-start, round-start, pause).
	SpanTimestamp SpanCategory = "timestamp"
	// SpanGroup has duration and children; created for container blocks
	// (loops, root). Carries only aggregated metrics.
	SpanGroup SpanCategory = "group"
	// SpanRecord has duration, no children, and full metrics; created for
	// leaf blocks (individual exercises, timers).
	SpanRecord SpanCategory = "record"
)

// SpanMetrics is the metric bundle a record-category ExecutionSpan carries.
type SpanMetrics struct {
	Reps     *int
	Weight   *ResistanceValue
	Distance *DistanceValue
	Duration *int64 // milliseconds
	Calories *float64
	Custom   map[string]any
}

// LoopState summarizes a group span's loop progress at close time.
type LoopState struct {
	Index int
	Round int
	Total int
}

// ExecutionSpan is one record of a block's run in the append-only execution
// log. Category discriminates which optional fields are meaningful:
// timestamp spans have zero duration and no children; group spans have
// duration and ChildIDs but only Aggregated metrics; record spans have
// duration and full Metrics.
type ExecutionSpan struct {
	ID           string
	Category     SpanCategory
	BlockID      BlockKey
	ParentSpanID string // empty if no parent span
	StartTime    int64
	EndTime      *int64
	Label        string
	Status       string
	SourceIDs    []StatementID

	// timestamp-only
	EventType string

	// group-only
	ChildIDs   []string
	LoopState  *LoopState
	Aggregated *SpanMetrics

	// record-only
	Metrics *SpanMetrics
}

// Closed reports whether the span has an end time recorded.
func (e *ExecutionSpan) Closed() bool {
	return e.EndTime != nil
}
