package history

import (
	"context"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// LodeClient is a real Lode-backed implementation of Client.
// Uses Lode's HiveLayout with partition keys: source/category/day/run_id/span_category.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	mu sync.Mutex // guards nothing mutable yet; reserved for future offset bookkeeping
}

// NewLodeClient creates a new Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a new Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(cfg.Dataset),
		factory,
		lode.WithHiveLayout("source", "category", "day", "run_id", "span_category"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}

	return &LodeClient{dataset: ds, config: cfg}, nil
}

// WriteSpans writes a batch of execution spans to Lode.
// Spans are partitioned by span_category (timestamp/group/record), included
// in each record so the Hive layout can route them.
func (c *LodeClient) WriteSpans(ctx context.Context, spans []*types.ExecutionSpan) error {
	if len(spans) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]any, 0, len(spans))
	for _, s := range spans {
		records = append(records, toSpanRecordMap(s, c.config))
	}

	_, err := c.dataset.Write(ctx, records, lode.Metadata{})
	return WrapWriteError(err, c.config.Dataset)
}

// WriteMetrics writes a batch of metrics snapshots to Lode.
// Snapshots are written to the span_category=metrics partition.
func (c *LodeClient) WriteMetrics(ctx context.Context, snaps []*metrics.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]any, 0, len(snaps))
	for _, s := range snaps {
		records = append(records, toMetricsRecordMap(s, c.config))
	}

	_, err := c.dataset.Write(ctx, records, lode.Metadata{})
	return WrapWriteError(err, c.config.Dataset)
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API.
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
