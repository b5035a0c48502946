package reader

import "errors"

// ParseMetricsRecord converts a Lode record (map[string]any) to a MetricsSnapshot.
// Handles both int64 (direct writes) and float64 (JSON round-trips) for numeric fields.
func ParseMetricsRecord(record map[string]any) (*MetricsSnapshot, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	snap := &MetricsSnapshot{
		Ts: toString(record["ts"]),

		WorkoutsStarted:   toInt64(record["workouts_started_total"]),
		WorkoutsCompleted: toInt64(record["workouts_completed_total"]),
		WorkoutsAborted:   toInt64(record["workouts_aborted_total"]),

		BlocksPushed:   toInt64(record["blocks_pushed_total"]),
		BlocksDisposed: toInt64(record["blocks_disposed_total"]),

		RoundsCompleted:    toInt64(record["rounds_completed_total"]),
		RepsLogged:         toInt64(record["reps_logged_total"]),
		TimerTicksObserved: toInt64(record["timer_ticks_observed_total"]),

		HistoryWriteSuccess: toInt64(record["history_write_success_total"]),
		HistoryWriteFailure: toInt64(record["history_write_failure_total"]),

		ScriptID: toString(record["script_id"]),
		RunID:    toString(record["run_id"]),
	}

	// Validate contract-required fields; the write path always populates
	// these, so a missing value indicates data corruption or a malformed
	// record rather than an absent optional field.
	if snap.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if snap.RunID == "" {
		return nil, errors.New("metrics record missing required field: run_id")
	}
	if snap.ScriptID == "" {
		return nil, errors.New("metrics record missing required field: script_id")
	}

	return snap, nil
}

// toInt64 converts a value to int64, handling float64 from JSON and int64 from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
