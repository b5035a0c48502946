package reader

import "context"

// Reader abstracts read-only data access for CLI commands. Implementations
// may read from a single history.ContentProvider, a providerpool.Pool
// fanning out across replicas, or an in-memory stub.
type Reader interface {
	// InspectEntry operations
	InspectEntry(ctx context.Context, id string) (*InspectEntryResponse, error)

	// StatsHistory aggregates counts across entries matching opts.
	StatsHistory(ctx context.Context, opts ListEntriesOptions) (*HistoryStats, error)
	// StatsMetrics returns the latest persisted metrics snapshot for a run
	// (or the most recent snapshot overall when runID is empty).
	StatsMetrics(ctx context.Context, runID string) (*MetricsSnapshot, error)

	// ListEntries enumerates history entries.
	ListEntries(ctx context.Context, opts ListEntriesOptions) ([]ListEntryItem, error)
}

// defaultReader is the package-level reader instance.
// Initialized to StubReader by default.
var defaultReader Reader = NewStubReader()

// SetReader sets the package-level reader instance.
// Call this during initialization to wire up the real implementation.
func SetReader(r Reader) {
	defaultReader = r
}

// GetReader returns the current package-level reader instance.
func GetReader() Reader {
	return defaultReader
}
