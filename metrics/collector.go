// Package metrics provides per-workout metrics collection per the
// execution-log contract.
//
// The Collector accumulates counters during a single workout run. It is a
// leaf package with no internal dependencies (not even on types, to keep
// it safe to import from both the runtime and the CLI reporting path
// without a cycle). Per-record reps are absorbed via a primitive-typed
// call (AddRepsLogged) rather than a types.SpanMetrics parameter, for the
// same reason; other per-record metrics (weight, distance, duration, ...)
// are not collected.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all tracked counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Workout lifecycle
	WorkoutsStarted   int64
	WorkoutsCompleted int64
	WorkoutsAborted   int64

	// Block lifecycle
	BlocksPushed   int64
	BlocksDisposed int64

	// Workout progress
	RoundsCompleted    int64
	RepsLogged         int64
	TimerTicksObserved int64

	// Storage
	HistoryWriteSuccess int64
	HistoryWriteFailure int64

	// Dimensions (informational, set at construction)
	ScriptID string
	RunID    string
}

// Collector accumulates metrics during a single run. Thread-safe via
// sync.Mutex. All increment methods are nil-receiver safe, so a Runtime
// built without a Collector configured can pass a nil *Collector through
// unconditionally.
type Collector struct {
	mu sync.Mutex

	workoutsStarted   int64
	workoutsCompleted int64
	workoutsAborted   int64

	blocksPushed   int64
	blocksDisposed int64

	roundsCompleted    int64
	repsLogged         int64
	timerTicksObserved int64

	historyWriteSuccess int64
	historyWriteFailure int64

	scriptID string
	runID    string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(scriptID, runID string) *Collector {
	return &Collector{scriptID: scriptID, runID: runID}
}

// --- Workout lifecycle ---

func (c *Collector) IncWorkoutStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workoutsStarted++
	c.mu.Unlock()
}

func (c *Collector) IncWorkoutCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workoutsCompleted++
	c.mu.Unlock()
}

func (c *Collector) IncWorkoutAborted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workoutsAborted++
	c.mu.Unlock()
}

// --- Block lifecycle ---

func (c *Collector) IncBlockPushed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.blocksPushed++
	c.mu.Unlock()
}

func (c *Collector) IncBlockDisposed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.blocksDisposed++
	c.mu.Unlock()
}

// --- Workout progress ---

func (c *Collector) IncRoundCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.roundsCompleted++
	c.mu.Unlock()
}

// AddRepsLogged accumulates reps recorded against a record-category span.
func (c *Collector) AddRepsLogged(reps int) {
	if c == nil || reps == 0 {
		return
	}
	c.mu.Lock()
	c.repsLogged += int64(reps)
	c.mu.Unlock()
}

func (c *Collector) IncTimerTickObserved() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.timerTicksObserved++
	c.mu.Unlock()
}

// --- Storage ---

func (c *Collector) IncHistoryWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.historyWriteSuccess++
	c.mu.Unlock()
}

func (c *Collector) IncHistoryWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.historyWriteFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics. Safe to
// read concurrently; the Collector can continue to be mutated
// independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		WorkoutsStarted:   c.workoutsStarted,
		WorkoutsCompleted: c.workoutsCompleted,
		WorkoutsAborted:   c.workoutsAborted,

		BlocksPushed:   c.blocksPushed,
		BlocksDisposed: c.blocksDisposed,

		RoundsCompleted:    c.roundsCompleted,
		RepsLogged:         c.repsLogged,
		TimerTicksObserved: c.timerTicksObserved,

		HistoryWriteSuccess: c.historyWriteSuccess,
		HistoryWriteFailure: c.historyWriteFailure,

		ScriptID: c.scriptID,
		RunID:    c.runID,
	}
}
