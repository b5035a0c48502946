package reader

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"

	"github.com/wod-wiki/wodwiki/history"
)

// LodeReader implements Reader over a history.ContentProvider, with metrics
// queries answered directly against the underlying Lode dataset.
type LodeReader struct {
	provider       history.ContentProvider
	metricsDataset lode.Dataset
	metricsSource  string
}

// NewLodeReader creates a reader backed by provider for entries and ds for
// metrics snapshot lookups. source scopes StatsMetrics when runID is empty.
func NewLodeReader(provider history.ContentProvider, ds lode.Dataset, source string) *LodeReader {
	return &LodeReader{provider: provider, metricsDataset: ds, metricsSource: source}
}

// InspectEntry implements Reader.
func (r *LodeReader) InspectEntry(ctx context.Context, id string) (*InspectEntryResponse, error) {
	entry, err := r.provider.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inspect entry %q: %w", id, err)
	}
	return toInspectResponse(entry), nil
}

// ListEntries implements Reader.
func (r *LodeReader) ListEntries(ctx context.Context, opts ListEntriesOptions) ([]ListEntryItem, error) {
	entries, err := r.provider.GetEntries(ctx, toHistoryQuery(opts))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	items := make([]ListEntryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, toListItem(e))
	}
	return items, nil
}

// StatsHistory implements Reader.
func (r *LodeReader) StatsHistory(ctx context.Context, opts ListEntriesOptions) (*HistoryStats, error) {
	entries, err := r.provider.GetEntries(ctx, toHistoryQuery(opts))
	if err != nil {
		return nil, fmt.Errorf("stats history: %w", err)
	}

	stats := &HistoryStats{TotalEntries: len(entries)}
	for _, e := range entries {
		if e.Results == nil {
			continue
		}
		stats.TotalDurationMs += e.Results.Duration
		if entryOutcome(e) == "aborted" {
			stats.AbortedCount++
		} else {
			stats.CompletedCount++
		}
	}
	return stats, nil
}

// StatsMetrics implements Reader.
func (r *LodeReader) StatsMetrics(ctx context.Context, runID string) (*MetricsSnapshot, error) {
	record, err := history.QueryLatestMetrics(ctx, r.metricsDataset, runID, r.metricsSource)
	if err != nil {
		return nil, fmt.Errorf("stats metrics: %w", err)
	}
	return ParseMetricsRecord(record)
}

func toHistoryQuery(opts ListEntriesOptions) history.Query {
	q := history.Query{Tags: opts.Tags, Limit: opts.Limit, Offset: opts.Offset}
	if opts.DaysBack > 0 {
		days := opts.DaysBack
		q.DaysBack = &days
	}
	return q
}

func toInspectResponse(e *history.HistoryEntry) *InspectEntryResponse {
	resp := &InspectEntryResponse{
		ID:        e.ID,
		Title:     e.Title,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		Tags:      e.Tags,
		Notes:     e.Notes,
		Outcome:   entryOutcome(*e),
	}
	if e.Results != nil {
		resp.DurationMs = e.Results.Duration
		resp.SpanCount = len(e.Results.Log)
	}
	return resp
}

func toListItem(e history.HistoryEntry) ListEntryItem {
	item := ListEntryItem{
		ID:        e.ID,
		Title:     e.Title,
		CreatedAt: e.CreatedAt,
		Tags:      e.Tags,
		Outcome:   entryOutcome(e),
	}
	if e.Results != nil {
		item.DurationMs = e.Results.Duration
	}
	return item
}

// entryOutcome reports "completed" once results are attached, "aborted" for
// entries explicitly tagged as such, or "in_progress" for unattached entries.
func entryOutcome(e history.HistoryEntry) string {
	if e.Results == nil {
		return "in_progress"
	}
	for _, tag := range e.Tags {
		if tag == "aborted" {
			return "aborted"
		}
	}
	return "completed"
}
