package history

import (
	"context"
	"time"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/policy"
	"github.com/wod-wiki/wodwiki/types"
)

// DeriveDay computes the partition day from run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// DefaultDataset is the default Lode dataset name.
const DefaultDataset = "wodwiki"

// Config holds the Lode sink configuration. All partition keys are required.
type Config struct {
	// Dataset is the Lode dataset ID (default: "wodwiki").
	Dataset string
	// Source is the partition key for origin system (e.g. "cli", "editor").
	Source string
	// Category is the partition key for logical data type (e.g. "workout").
	Category string
	// Day is the partition key derived from run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the partition key for run identifier.
	RunID string
	// Policy is the ingestion policy name (e.g. "strict", "buffered").
	Policy string
}

// Sink is a Lode-backed implementation of policy.Sink.
type Sink struct {
	config Config
	client Client
}

// Client abstracts the Lode storage client.
// Real implementations connect to Lode; stubs are used for testing.
type Client interface {
	// WriteSpans writes a batch of execution spans to Lode.
	// Must preserve ordering within the batch.
	WriteSpans(ctx context.Context, spans []*types.ExecutionSpan) error

	// WriteMetrics writes a batch of metrics snapshots to Lode.
	// Written to the span_category=metrics partition.
	WriteMetrics(ctx context.Context, snaps []*metrics.Snapshot) error

	// Close releases client resources.
	Close() error
}

// NewSink creates a new Lode sink.
func NewSink(config Config, client Client) *Sink {
	return &Sink{config: config, client: client}
}

// WriteSpans implements policy.Sink.
func (s *Sink) WriteSpans(ctx context.Context, spans []*types.ExecutionSpan) error {
	return s.client.WriteSpans(ctx, spans)
}

// WriteMetrics implements policy.Sink.
func (s *Sink) WriteMetrics(ctx context.Context, snaps []*metrics.Snapshot) error {
	return s.client.WriteMetrics(ctx, snaps)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

// Verify Sink implements policy.Sink.
var _ policy.Sink = (*Sink)(nil)

// StubClient is a test client that accepts writes without persisting.
// Use for integration testing before a real backend is wired up.
type StubClient struct {
	Spans   []StubSpanRecord
	Metrics []StubMetricsRecord
	Closed  bool
}

// StubSpanRecord is a recorded span write for testing.
type StubSpanRecord struct {
	Spans []*types.ExecutionSpan
}

// StubMetricsRecord is a recorded metrics write for testing.
type StubMetricsRecord struct {
	Snapshots []*metrics.Snapshot
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteSpans implements Client.
func (c *StubClient) WriteSpans(_ context.Context, spans []*types.ExecutionSpan) error {
	c.Spans = append(c.Spans, StubSpanRecord{Spans: spans})
	return nil
}

// WriteMetrics implements Client.
func (c *StubClient) WriteMetrics(_ context.Context, snaps []*metrics.Snapshot) error {
	c.Metrics = append(c.Metrics, StubMetricsRecord{Snapshots: snaps})
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.Closed = true
	return nil
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
