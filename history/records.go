package history

import (
	"encoding/json"
	"time"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// RecordKind discriminator values for the storage-format JSON records.
const (
	RecordKindSpanTimestamp = "span_timestamp"
	RecordKindSpanGroup     = "span_group"
	RecordKindSpanRecord    = "span_record"
	RecordKindMetrics       = "metrics"
)

// spanCategoryPartition maps a span category to the Hive partition value
// used for the span_category partition key.
func spanCategoryPartition(cat types.SpanCategory) string {
	return string(cat)
}

// spanRecordKind maps a span category to its storage record_kind.
func spanRecordKind(cat types.SpanCategory) string {
	switch cat {
	case types.SpanGroup:
		return RecordKindSpanGroup
	case types.SpanRecord:
		return RecordKindSpanRecord
	default:
		return RecordKindSpanTimestamp
	}
}

// toSpanRecordMap converts an ExecutionSpan to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toSpanRecordMap(span *types.ExecutionSpan, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind":     spanRecordKind(span.Category),
		"id":              span.ID,
		"record_category": string(span.Category),
		"block_id":        string(span.BlockID),
		"parent_span_id":  span.ParentSpanID,
		"start_time":      span.StartTime,
		"label":           span.Label,
		"status":          span.Status,
		"source_ids":      span.SourceIDs,
		"span_category":   spanCategoryPartition(span.Category), // partition key
		"source":          cfg.Source,
		"category":        cfg.Category,
		"day":             cfg.Day,
		"run_id":          cfg.RunID,
	}
	if span.EndTime != nil {
		m["end_time"] = *span.EndTime
	}
	if span.Category == types.SpanTimestamp {
		m["event_type"] = span.EventType
	}
	if span.Category == types.SpanGroup {
		m["child_ids"] = span.ChildIDs
		if span.LoopState != nil {
			m["loop_state"] = map[string]any{
				"index": span.LoopState.Index,
				"round": span.LoopState.Round,
				"total": span.LoopState.Total,
			}
		}
		if span.Aggregated != nil {
			m["aggregated"] = spanMetricsMap(span.Aggregated)
		}
	}
	if span.Category == types.SpanRecord && span.Metrics != nil {
		m["metrics"] = spanMetricsMap(span.Metrics)
	}
	return m
}

// spanMetricsMap converts a SpanMetrics bundle into a plain map for storage.
func spanMetricsMap(sm *types.SpanMetrics) map[string]any {
	m := map[string]any{}
	if sm.Reps != nil {
		m["reps"] = *sm.Reps
	}
	if sm.Weight != nil {
		m["weight"] = map[string]any{"amount": sm.Weight.Amount, "unit": sm.Weight.Unit}
	}
	if sm.Distance != nil {
		m["distance"] = map[string]any{"amount": sm.Distance.Amount, "unit": sm.Distance.Unit}
	}
	if sm.Duration != nil {
		m["duration"] = *sm.Duration
	}
	if sm.Calories != nil {
		m["calories"] = *sm.Calories
	}
	if sm.Custom != nil {
		m["custom"] = sm.Custom
	}
	return m
}

// toMetricsRecordMap converts a metrics Snapshot to a map for Lode storage.
// Written to span_category=metrics so it never collides with span partitions.
func toMetricsRecordMap(snap *metrics.Snapshot, cfg Config) map[string]any {
	return map[string]any{
		"record_kind":          RecordKindMetrics,
		"workouts_started":     snap.WorkoutsStarted,
		"workouts_completed":   snap.WorkoutsCompleted,
		"workouts_aborted":     snap.WorkoutsAborted,
		"blocks_pushed":        snap.BlocksPushed,
		"blocks_disposed":      snap.BlocksDisposed,
		"rounds_completed":     snap.RoundsCompleted,
		"reps_logged":          snap.RepsLogged,
		"timer_ticks_observed": snap.TimerTicksObserved,
		"history_write_success": snap.HistoryWriteSuccess,
		"history_write_failure": snap.HistoryWriteFailure,
		"script_id":            snap.ScriptID,
		"span_category":        "metrics", // partition key
		"source":               cfg.Source,
		"category":             cfg.Category,
		"day":                  cfg.Day,
		"run_id":               cfg.RunID,
	}
}

// toHistoryEntryMap converts a HistoryEntry to a map for Lode storage.
// Statements and results are JSON-encoded wholesale rather than flattened
// field-by-field, since Fragment.Value is an `any` and round-tripping it
// through a hand-written map conversion would be lossy.
func toHistoryEntryMap(entry *HistoryEntry, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind":    RecordKindHistoryEntry,
		"id":             entry.ID,
		"title":          entry.Title,
		"created_at":     entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":     entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"raw_content":    entry.RawContent,
		"tags":           entry.Tags,
		"notes":          entry.Notes,
		"schema_version": entry.SchemaVersion,
		"span_category":  "history_entry", // partition key
		"source":         cfg.Source,
		"category":       cfg.Category,
		"day":            cfg.Day,
	}
	if stmts, err := json.Marshal(entry.Statements); err == nil {
		m["statements"] = string(stmts)
	}
	if entry.Results != nil {
		if results, err := json.Marshal(entry.Results); err == nil {
			m["results"] = string(results)
		}
	}
	return m
}

// fromHistoryEntryMap reconstructs a HistoryEntry from a stored record map.
// Malformed or missing JSON payloads decode to zero values rather than
// erroring, since latestByID must keep scanning past any one bad record.
func fromHistoryEntryMap(m map[string]any) HistoryEntry {
	entry := HistoryEntry{
		ID:         toString(m["id"]),
		Title:      toString(m["title"]),
		RawContent: toString(m["raw_content"]),
		Notes:      toString(m["notes"]),
	}
	entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, toString(m["created_at"]))
	entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, toString(m["updated_at"]))

	if v, ok := m["schema_version"].(int); ok {
		entry.SchemaVersion = v
	} else if v, ok := m["schema_version"].(float64); ok {
		entry.SchemaVersion = int(v)
	}

	if tags, ok := m["tags"].([]string); ok {
		entry.Tags = tags
	} else if tags, ok := m["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				entry.Tags = append(entry.Tags, s)
			}
		}
	}

	if raw := toString(m["statements"]); raw != "" {
		_ = json.Unmarshal([]byte(raw), &entry.Statements)
	}
	if raw := toString(m["results"]); raw != "" {
		var results HistoryResults
		if json.Unmarshal([]byte(raw), &results) == nil {
			entry.Results = &results
		}
	}

	return entry
}
