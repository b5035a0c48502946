// Package display implements the DisplayStateHub: the single serializable
// read surface a UI may observe. It never exposes Memory, Stack, or Clock
// directly — only Snapshot, produced on demand and on every memory change.
package display

import (
	"github.com/wod-wiki/wodwiki/types"
)

// WorkoutState is the coarse phase shown to a UI.
type WorkoutState string

const (
	WorkoutIdle     WorkoutState = "idle"
	WorkoutRunning  WorkoutState = "running"
	WorkoutPaused   WorkoutState = "paused"
	WorkoutComplete WorkoutState = "complete"
)

// TimerEntry is one entry in Snapshot.TimerStack: a timer-bearing block,
// root (workout-level) first.
type TimerEntry struct {
	ID      string `json:"id" msgpack:"id"`
	OwnerID string `json:"ownerId" msgpack:"ownerId"`
	SpanRef string `json:"spanRef" msgpack:"spanRef"`
	Role    string `json:"role" msgpack:"role"` // "workout" | "round" | "record"
	Format  string `json:"format" msgpack:"format"`
	Buttons []string `json:"buttons,omitempty" msgpack:"buttons,omitempty"`
}

// CardEntry is one entry in Snapshot.CardStack: one card per live block,
// root first.
type CardEntry struct {
	ID       string             `json:"id" msgpack:"id"`
	OwnerID  string             `json:"ownerId" msgpack:"ownerId"`
	Type     string             `json:"type" msgpack:"type"`
	Title    string             `json:"title,omitempty" msgpack:"title,omitempty"`
	Subtitle string             `json:"subtitle,omitempty" msgpack:"subtitle,omitempty"`
	Metrics  *types.SpanMetrics `json:"metrics,omitempty" msgpack:"metrics,omitempty"`
	Buttons  []string           `json:"buttons,omitempty" msgpack:"buttons,omitempty"`
}

// Snapshot is the serializable view of VM state. It is the ONLY surface a
// UI may read; intents flow back as a RuntimeCommand.
type Snapshot struct {
	TimerStack        []TimerEntry `json:"timerStack" msgpack:"timerStack"`
	CardStack         []CardEntry  `json:"cardStack" msgpack:"cardStack"`
	WorkoutState      WorkoutState `json:"workoutState" msgpack:"workoutState"`
	GlobalSpanRef     string       `json:"globalSpanRef,omitempty" msgpack:"globalSpanRef,omitempty"`
	CurrentLapSpanRef string       `json:"currentLapSpanRef,omitempty" msgpack:"currentLapSpanRef,omitempty"`
	CurrentRound      *int         `json:"currentRound,omitempty" msgpack:"currentRound,omitempty"`
	TotalRounds       *int         `json:"totalRounds,omitempty" msgpack:"totalRounds,omitempty"`
}
