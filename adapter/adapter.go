// Package adapter defines the event-bus boundary for publishing workout
// completion notifications to downstream systems.
//
// The runtime owns adapter lifecycle; callers provide configuration only.
package adapter

import "context"

// WorkoutCompletedEvent is the payload published when a workout run
// finishes: the root block unmounts (the stack empties), whether by
// natural completion or by a user reset/abort.
type WorkoutCompletedEvent struct {
	ScriptID        string `json:"script_id"`
	RunID           string `json:"run_id"`
	Outcome         string `json:"outcome"` // completed, aborted
	Timestamp       string `json:"timestamp"` // ISO 8601
	DurationMs      int64  `json:"duration_ms"`
	RoundsCompleted int64  `json:"rounds_completed"`
	RepsLogged      int64  `json:"reps_logged"`
}

// Adapter publishes workout completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends a workout completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *WorkoutCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
