package reader

import (
	"context"
	"time"
)

// StubReader returns shape-correct stub data for development and testing.
// Replace with NewLodeReader when real history storage is wired up.
type StubReader struct{}

// NewStubReader creates a new stub reader.
func NewStubReader() *StubReader {
	return &StubReader{}
}

// InspectEntry returns stub entry details.
func (r *StubReader) InspectEntry(ctx context.Context, id string) (*InspectEntryResponse, error) {
	now := time.Now()
	return &InspectEntryResponse{
		ID:         id,
		Title:      "Stub Workout",
		CreatedAt:  now.Add(-time.Hour),
		UpdatedAt:  now.Add(-time.Minute),
		Tags:       []string{"amrap"},
		Notes:      "",
		Outcome:    "completed",
		DurationMs: 720000,
		SpanCount:  12,
	}, nil
}

// StatsHistory returns stub aggregate history stats.
func (r *StubReader) StatsHistory(ctx context.Context, opts ListEntriesOptions) (*HistoryStats, error) {
	return &HistoryStats{
		TotalEntries:    100,
		CompletedCount:  92,
		AbortedCount:    8,
		TotalDurationMs: 72000000,
	}, nil
}

// StatsMetrics returns stub metrics statistics.
func (r *StubReader) StatsMetrics(ctx context.Context, runID string) (*MetricsSnapshot, error) {
	if runID == "" {
		runID = "stub-run-001"
	}
	return &MetricsSnapshot{
		Ts:                  time.Now().UTC().Format(time.RFC3339),
		WorkoutsStarted:     100,
		WorkoutsCompleted:   92,
		WorkoutsAborted:     8,
		BlocksPushed:        4200,
		BlocksDisposed:      4200,
		RoundsCompleted:     530,
		RepsLogged:          21200,
		TimerTicksObserved:  96000,
		HistoryWriteSuccess: 98,
		HistoryWriteFailure: 2,
		ScriptID:            "stub-script-001",
		RunID:               runID,
	}, nil
}

// ListEntries returns stub entry list.
func (r *StubReader) ListEntries(ctx context.Context, opts ListEntriesOptions) ([]ListEntryItem, error) {
	now := time.Now()
	entries := []ListEntryItem{
		{ID: "entry-001", Title: "Fran", CreatedAt: now.Add(-1 * time.Hour), Tags: []string{"benchmark"}, Outcome: "completed", DurationMs: 215000},
		{ID: "entry-002", Title: "Murph", CreatedAt: now.Add(-24 * time.Hour), Tags: []string{"hero"}, Outcome: "completed", DurationMs: 2580000},
		{ID: "entry-003", Title: "EMOM 20", CreatedAt: now.Add(-5 * time.Minute), Tags: []string{"emom"}, Outcome: "aborted", DurationMs: 480000},
	}

	if len(opts.Tags) > 0 {
		filtered := entries[:0]
		for _, e := range entries {
			if hasAllTags(e.Tags, opts.Tags) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	return entries, nil
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// Verify StubReader implements Reader.
var _ Reader = (*StubReader)(nil)
