package types

// MemoryType discriminates the shape of value a memory entry carries. This
// is the minimum recognized set; Memory does not restrict values to these
// but the runtime and behaviors only ever allocate these types.
type MemoryType string

const (
	MemoryTimerSpans       MemoryType = "timer-spans"
	MemoryTimerRunning     MemoryType = "timer-running"
	MemoryRoundState       MemoryType = "round-state"
	MemoryChildIndex       MemoryType = "child-index"
	MemoryCompletionStatus MemoryType = "completion-status"
	MemoryExecutionSpan    MemoryType = "execution-span"
	MemoryHandler          MemoryType = "handler"
	MemoryFragment         MemoryType = "fragment"
	MemoryDisplay          MemoryType = "display"
	MemoryControls         MemoryType = "controls"
)

// Visibility controls whether descendant blocks may search and read a
// memory entry. Private entries are accessible only to their owner.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// RoundState is the value shape of a "round-state" memory entry.
type RoundState struct {
	Current int
	Total   int
}

// CompletionStatus is the value shape of a "completion-status" memory
// entry.
type CompletionStatus struct {
	Complete bool
	Reason   string
}
