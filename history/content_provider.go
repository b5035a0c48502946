package history

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/wod-wiki/wodwiki/types"
)

// RecordKindHistoryEntry is the storage record_kind for a HistoryEntry.
const RecordKindHistoryEntry = "history_entry"

// ErrReadOnly is returned by SaveEntry/UpdateEntry when the provider's
// backend does not accept writes (e.g. an archived, read-replica S3 dataset).
var ErrReadOnly = errors.New("content provider is read-only")

// ErrEntryNotFound is returned when GetEntry/UpdateEntry targets an id with
// no corresponding HistoryEntry.
var ErrEntryNotFound = errors.New("history entry not found")

// HistoryResults holds the completed-run outcome attached to a HistoryEntry.
type HistoryResults struct {
	CompletedAt time.Time
	Duration    int64 // milliseconds
	Log         []*types.ExecutionSpan
}

// HistoryEntry is one saved workout: its source text, parsed statements, and
// (once run) its completion results.
type HistoryEntry struct {
	ID            string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	RawContent    string
	Statements    []types.CodeStatement
	Results       *HistoryResults
	Tags          []string
	Notes         string
	SchemaVersion int
}

// HistoryEntryPatch carries partial updates for UpdateEntry. Nil fields are
// left unchanged; Tags/Results, if non-nil, replace wholesale.
type HistoryEntryPatch struct {
	Title   *string
	Notes   *string
	Tags    []string
	Results *HistoryResults
}

// DateRange bounds a query by entry CreatedAt.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Query filters GetEntries. DaysBack, if set, is sugar for a DateRange
// ending now; an explicit DateRange takes precedence when both are set.
type Query struct {
	DateRange *DateRange
	DaysBack  *int
	Tags      []string
	Limit     int
	Offset    int
}

// effectiveRange resolves DaysBack into a concrete DateRange when DateRange
// itself is unset.
func (q Query) effectiveRange(now time.Time) *DateRange {
	if q.DateRange != nil {
		return q.DateRange
	}
	if q.DaysBack != nil {
		return &DateRange{Start: now.AddDate(0, 0, -*q.DaysBack), End: now}
	}
	return nil
}

// ContentProvider is the async CRUD contract for saved workout history.
type ContentProvider interface {
	GetEntries(ctx context.Context, query Query) ([]HistoryEntry, error)
	GetEntry(ctx context.Context, id string) (*HistoryEntry, error)
	SaveEntry(ctx context.Context, entry HistoryEntry) (*HistoryEntry, error)
	UpdateEntry(ctx context.Context, id string, patch HistoryEntryPatch) (*HistoryEntry, error)
	CanWrite() bool
}

// LodeContentProvider implements ContentProvider on a Lode dataset.
// Updates are append-only: UpdateEntry writes a new record for the same id
// with a fresher UpdatedAt, and reads always resolve to the newest record
// per id (the same "latest wins" technique QueryLatestMetrics uses for
// metrics snapshots).
type LodeContentProvider struct {
	dataset  lode.Dataset
	config   Config
	readOnly bool
}

// NewLodeContentProvider creates a content provider over the given dataset.
// readOnly true rejects SaveEntry/UpdateEntry with ErrReadOnly, for backends
// meant to serve archived, historical reads only.
func NewLodeContentProvider(ds lode.Dataset, cfg Config, readOnly bool) *LodeContentProvider {
	return &LodeContentProvider{dataset: ds, config: cfg, readOnly: readOnly}
}

// CanWrite reports whether SaveEntry/UpdateEntry are accepted.
func (p *LodeContentProvider) CanWrite() bool {
	return !p.readOnly
}

// GetEntries scans dataset snapshots for history_entry records, resolves
// each id to its newest record, and applies the query filters.
func (p *LodeContentProvider) GetEntries(ctx context.Context, query Query) ([]HistoryEntry, error) {
	latest, err := p.latestByID(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(latest))
	for _, e := range latest {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	filtered := entries[:0]
	rng := query.effectiveRange(time.Now())
	for _, e := range entries {
		if rng != nil && (e.CreatedAt.Before(rng.Start) || e.CreatedAt.After(rng.End)) {
			continue
		}
		if len(query.Tags) > 0 && !hasAllTags(e.Tags, query.Tags) {
			continue
		}
		filtered = append(filtered, e)
	}

	return paginate(filtered, query.Limit, query.Offset), nil
}

// GetEntry returns the newest record for id, or ErrEntryNotFound.
func (p *LodeContentProvider) GetEntry(ctx context.Context, id string) (*HistoryEntry, error) {
	latest, err := p.latestByID(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := latest[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &entry, nil
}

// SaveEntry writes a new HistoryEntry. Returns ErrReadOnly if the provider
// does not accept writes.
func (p *LodeContentProvider) SaveEntry(ctx context.Context, entry HistoryEntry) (*HistoryEntry, error) {
	if p.readOnly {
		return nil, ErrReadOnly
	}
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if _, err := p.dataset.Write(ctx, []any{toHistoryEntryMap(&entry, p.config)}, lode.Metadata{}); err != nil {
		return nil, WrapWriteError(err, p.config.Dataset)
	}
	return &entry, nil
}

// UpdateEntry applies patch to the newest record for id and writes the
// result as a new record. Returns ErrEntryNotFound if id is unknown, or
// ErrReadOnly if the provider does not accept writes.
func (p *LodeContentProvider) UpdateEntry(ctx context.Context, id string, patch HistoryEntryPatch) (*HistoryEntry, error) {
	if p.readOnly {
		return nil, ErrReadOnly
	}

	existing, err := p.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		existing.Title = *patch.Title
	}
	if patch.Notes != nil {
		existing.Notes = *patch.Notes
	}
	if patch.Tags != nil {
		existing.Tags = patch.Tags
	}
	if patch.Results != nil {
		existing.Results = patch.Results
	}
	existing.UpdatedAt = time.Now()

	if _, err := p.dataset.Write(ctx, []any{toHistoryEntryMap(existing, p.config)}, lode.Metadata{}); err != nil {
		return nil, WrapWriteError(err, p.config.Dataset)
	}
	return existing, nil
}

// latestByID scans every snapshot and keeps, per entry id, the record with
// the newest updated_at.
func (p *LodeContentProvider) latestByID(ctx context.Context) (map[string]HistoryEntry, error) {
	snapshots, err := p.dataset.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, p.config.Dataset)
	}

	latest := make(map[string]HistoryEntry)
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "span_category", "history_entry") {
			continue
		}
		data, err := p.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, p.config.Dataset)
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindHistoryEntry {
				continue
			}
			entry := fromHistoryEntryMap(record)
			if prev, ok := latest[entry.ID]; !ok || entry.UpdatedAt.After(prev.UpdatedAt) {
				latest[entry.ID] = entry
			}
		}
	}
	return latest, nil
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

func paginate(entries []HistoryEntry, limit, offset int) []HistoryEntry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []HistoryEntry{}
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
