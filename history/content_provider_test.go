package history

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"
)

func newTestContentProvider(t *testing.T) *LodeContentProvider {
	t.Helper()
	store := lode.NewMemory()
	factory := sharedFactory(store)

	ds, err := NewReadDataset(testConfig().Dataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	return NewLodeContentProvider(ds, testConfig(), false)
}

func TestLodeContentProvider_SaveAndGetEntry(t *testing.T) {
	p := newTestContentProvider(t)

	saved, err := p.SaveEntry(t.Context(), HistoryEntry{ID: "entry-1", Title: "Fran", RawContent: "21-15-9 thrusters pullups"})
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if saved.CreatedAt.IsZero() {
		t.Error("SaveEntry should assign CreatedAt when zero")
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("SaveEntry should assign UpdatedAt")
	}

	got, err := p.GetEntry(t.Context(), "entry-1")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Title != "Fran" {
		t.Errorf("Title = %q, want %q", got.Title, "Fran")
	}
	if got.RawContent != "21-15-9 thrusters pullups" {
		t.Errorf("RawContent = %q, want round-tripped value", got.RawContent)
	}
}

func TestLodeContentProvider_GetEntry_NotFound(t *testing.T) {
	p := newTestContentProvider(t)

	_, err := p.GetEntry(t.Context(), "missing")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("GetEntry(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestLodeContentProvider_SaveEntry_PreservesExplicitCreatedAt(t *testing.T) {
	p := newTestContentProvider(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	saved, err := p.SaveEntry(t.Context(), HistoryEntry{ID: "entry-2", CreatedAt: created})
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if !saved.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", saved.CreatedAt, created)
	}
}

func TestLodeContentProvider_SaveEntry_ReadOnlyRejected(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)
	ds, err := NewReadDataset(testConfig().Dataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	p := NewLodeContentProvider(ds, testConfig(), true)

	if p.CanWrite() {
		t.Error("CanWrite() should be false for a read-only provider")
	}

	if _, err := p.SaveEntry(t.Context(), HistoryEntry{ID: "entry-3"}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("SaveEntry error = %v, want ErrReadOnly", err)
	}
	if _, err := p.UpdateEntry(t.Context(), "entry-3", HistoryEntryPatch{}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("UpdateEntry error = %v, want ErrReadOnly", err)
	}
}

func TestLodeContentProvider_UpdateEntry_PatchesFields(t *testing.T) {
	p := newTestContentProvider(t)

	original, err := p.SaveEntry(t.Context(), HistoryEntry{ID: "entry-4", Title: "Fran", Tags: []string{"benchmark"}})
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	newTitle := "Fran (RX)"
	newNotes := "PR today"
	updated, err := p.UpdateEntry(t.Context(), "entry-4", HistoryEntryPatch{
		Title: &newTitle,
		Notes: &newNotes,
		Tags:  []string{"benchmark", "pr"},
		Results: &HistoryResults{
			CompletedAt: time.Now(),
			Duration:    300000,
		},
	})
	if err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}

	if updated.Title != newTitle {
		t.Errorf("Title = %q, want %q", updated.Title, newTitle)
	}
	if updated.Notes != newNotes {
		t.Errorf("Notes = %q, want %q", updated.Notes, newNotes)
	}
	if len(updated.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", updated.Tags)
	}
	if updated.Results == nil || updated.Results.Duration != 300000 {
		t.Errorf("Results = %+v, want Duration 300000", updated.Results)
	}
	if !updated.UpdatedAt.After(original.UpdatedAt) {
		t.Error("UpdateEntry should bump UpdatedAt")
	}

	refetched, err := p.GetEntry(t.Context(), "entry-4")
	if err != nil {
		t.Fatalf("GetEntry after update failed: %v", err)
	}
	if refetched.Title != newTitle {
		t.Errorf("refetched Title = %q, want %q (latest-wins)", refetched.Title, newTitle)
	}
}

func TestLodeContentProvider_UpdateEntry_NotFound(t *testing.T) {
	p := newTestContentProvider(t)

	_, err := p.UpdateEntry(t.Context(), "missing", HistoryEntryPatch{})
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("UpdateEntry(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestLodeContentProvider_GetEntries_FiltersByTags(t *testing.T) {
	p := newTestContentProvider(t)

	mustSave := func(id string, tags []string) {
		if _, err := p.SaveEntry(t.Context(), HistoryEntry{ID: id, Tags: tags}); err != nil {
			t.Fatalf("SaveEntry(%s) failed: %v", id, err)
		}
	}
	mustSave("a", []string{"benchmark", "rx"})
	mustSave("b", []string{"benchmark"})
	mustSave("c", []string{"accessory"})

	got, err := p.GetEntries(t.Context(), Query{Tags: []string{"benchmark", "rx"}})
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("GetEntries tags filter = %+v, want only entry a", got)
	}
}

func TestLodeContentProvider_GetEntries_DaysBackAndPagination(t *testing.T) {
	p := newTestContentProvider(t)

	now := time.Now()
	entries := []HistoryEntry{
		{ID: "old", CreatedAt: now.AddDate(0, 0, -30)},
		{ID: "recent-1", CreatedAt: now.AddDate(0, 0, -1)},
		{ID: "recent-2", CreatedAt: now},
	}
	for _, e := range entries {
		if _, err := p.SaveEntry(t.Context(), e); err != nil {
			t.Fatalf("SaveEntry(%s) failed: %v", e.ID, err)
		}
	}

	days := 7
	got, err := p.GetEntries(t.Context(), Query{DaysBack: &days})
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetEntries daysBack = %d results, want 2", len(got))
	}
	if got[0].ID != "recent-2" || got[1].ID != "recent-1" {
		t.Errorf("GetEntries should sort newest-first, got %v, %v", got[0].ID, got[1].ID)
	}

	paged, err := p.GetEntries(t.Context(), Query{DaysBack: &days, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("GetEntries paged failed: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "recent-1" {
		t.Errorf("GetEntries paged = %+v, want [recent-1]", paged)
	}
}

func TestLodeContentProvider_GetEntries_Empty(t *testing.T) {
	p := newTestContentProvider(t)

	got, err := p.GetEntries(t.Context(), Query{})
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("GetEntries on empty dataset = %+v, want empty", got)
	}
}
