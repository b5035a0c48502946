package history

import (
	"context"
	"sync"
	"time"
)

// StubContentProvider is an in-memory ContentProvider for testing.
type StubContentProvider struct {
	mu       sync.Mutex
	entries  map[string]HistoryEntry
	readOnly bool
}

// NewStubContentProvider creates an empty in-memory content provider.
func NewStubContentProvider() *StubContentProvider {
	return &StubContentProvider{entries: make(map[string]HistoryEntry)}
}

// SetReadOnly toggles whether SaveEntry/UpdateEntry are accepted.
func (p *StubContentProvider) SetReadOnly(readOnly bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readOnly = readOnly
}

// CanWrite implements ContentProvider.
func (p *StubContentProvider) CanWrite() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.readOnly
}

// GetEntries implements ContentProvider.
func (p *StubContentProvider) GetEntries(ctx context.Context, query Query) ([]HistoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := make([]HistoryEntry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}

	rng := query.effectiveRange(time.Now())
	filtered := entries[:0]
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

// GetEntry implements ContentProvider.
func (p *StubContentProvider) GetEntry(ctx context.Context, id string) (*HistoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &entry, nil
}

// SaveEntry implements ContentProvider.
func (p *StubContentProvider) SaveEntry(ctx context.Context, entry HistoryEntry) (*HistoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readOnly {
		return nil, ErrReadOnly
	}

	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	p.entries[entry.ID] = entry
	return &entry, nil
}

// UpdateEntry implements ContentProvider.
func (p *StubContentProvider) UpdateEntry(ctx context.Context, id string, patch HistoryEntryPatch) (*HistoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readOnly {
		return nil, ErrReadOnly
	}

	entry, ok := p.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}

	if patch.Title != nil {
		entry.Title = *patch.Title
	}
	if patch.Notes != nil {
		entry.Notes = *patch.Notes
	}
	if patch.Tags != nil {
		entry.Tags = patch.Tags
	}
	if patch.Results != nil {
		entry.Results = patch.Results
	}
	entry.UpdatedAt = time.Now()
	p.entries[id] = entry
	return &entry, nil
}

// Verify StubContentProvider implements ContentProvider.
var _ ContentProvider = (*StubContentProvider)(nil)
