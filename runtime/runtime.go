package runtime

import (
	"sort"
	"time"

	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/types"
)

// Handler is one registered event callback. Handlers live in Memory as
// type-"handler" entries owned by the block that registered them, so
// dispose(block) (via Memory.ReleaseOwnedBy) unregisters them for free —
// no separate bookkeeping structure is needed.
type Handler struct {
	EventName string
	OwnerID   types.BlockKey
	Priority  int
	Seq       int
	Callback  func(event types.Event, rt *Runtime) []Action
}

// Runtime is the single owned context threaded through every call: it
// holds the stack, memory, clock, and accumulated errors that the source
// implementation kept as process-wide globals.
type Runtime struct {
	Stack     *Stack
	Memory    *Memory
	Clock     *Clock
	Tracker   *Tracker
	Collector *metrics.Collector
	Errors    []types.RuntimeError

	handlerSeq int
	nowFunc    func() int64
}

// New returns a Runtime with an empty stack, a fresh memory arena, a
// stopped clock, and an empty tracker, with the clock and completion
// watcher already wired into the event bus.
func New() *Runtime {
	rt := &Runtime{
		Stack:   NewStack(),
		Memory:  NewMemory(),
		Clock:   NewClock(),
		Tracker: NewTracker(),
		nowFunc: func() int64 { return time.Now().UnixMilli() },
	}
	rt.wireClock()
	rt.wireCompletionWatcher()
	return rt
}

// wireClock bridges Clock ticks into the unified event bus: every tick
// dispatches EventTimerTick with elapsedMs in the payload. Behaviors
// subscribe to ticks as ordinary handlers (TimerTick, TimerCompletion,
// SoundCue) and never call Clock.Register themselves.
func (rt *Runtime) wireClock() {
	rt.Clock.Register(func(elapsedMs int64) {
		rt.Collector.IncTimerTickObserved()
		rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": elapsedMs}})
	})
}

// wireCompletionWatcher subscribes to completion-status changes and, the
// moment the current top block's completion-status entry reports
// Complete=true, pops it (via PopAndDispose) and advances the new top.
// This is what lets TimerCompletion, RoundCompletion, LoopCoordinator, and
// PopOnEvent all just set completion-status and never call Pop themselves.
func (rt *Runtime) wireCompletionWatcher() {
	rt.Memory.Subscribe(func(ownerID types.BlockKey, memType types.MemoryType) {
		if memType != types.MemoryCompletionStatus {
			return
		}
		top, ok := rt.Stack.Current()
		if !ok || top.Key() != ownerID {
			return
		}
		mt := types.MemoryCompletionStatus
		oid := ownerID
		complete := false
		for _, idx := range rt.Memory.Search(SearchCriteria{MemType: &mt, OwnerID: &oid}) {
			ref := RefAt[types.CompletionStatus](rt.Memory, idx)
			if v, ok := Get(rt.Memory, ref); ok && v.Complete {
				complete = true
			}
		}
		if !complete {
			return
		}
		if _, ok := rt.PopAndDispose(); !ok {
			return
		}
		if newTop, ok := rt.Stack.Current(); ok {
			rt.RunActions(newTop.Next(rt))
			return
		}
		rt.Collector.IncWorkoutCompleted()
	})
}

// NowMs returns the current epoch-millisecond timestamp used to stamp
// ExecutionSpans and timer spans. Tests override it via SetNowFunc for
// deterministic timestamps.
func (rt *Runtime) NowMs() int64 {
	return rt.nowFunc()
}

// SetNowFunc overrides the clock source used by NowMs.
func (rt *Runtime) SetNowFunc(f func() int64) {
	rt.nowFunc = f
}

// RegisterHandler allocates a handler memory entry owned by ownerID.
func (rt *Runtime) RegisterHandler(ownerID types.BlockKey, eventName string, priority int, callback func(types.Event, *Runtime) []Action) Ref[Handler] {
	rt.handlerSeq++
	h := Handler{EventName: eventName, OwnerID: ownerID, Priority: priority, Seq: rt.handlerSeq, Callback: callback}
	return Allocate(rt.Memory, types.MemoryHandler, ownerID, h, types.VisibilityPrivate)
}

// UnregisterHandler releases a single handler ref directly, ahead of its
// owning block's dispose.
func (rt *Runtime) UnregisterHandler(ref Ref[Handler]) {
	Release(rt.Memory, ref)
}

// matchHandlers returns every live handler registered for eventName,
// ordered by descending priority then ascending registration order.
func (rt *Runtime) matchHandlers(eventName string) []Handler {
	mt := types.MemoryHandler
	indices := rt.Memory.Search(SearchCriteria{MemType: &mt})
	out := make([]Handler, 0, len(indices))
	for _, idx := range indices {
		ref := RefAt[Handler](rt.Memory, idx)
		if h, ok := Get(rt.Memory, ref); ok && h.EventName == eventName {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Dispatch is handle(event): it matches handlers by event name, invokes
// each in priority/registration order, and drains the actions each one
// returns before moving to the next handler. An action that appends an
// Error to rt.Errors stops further handlers for this event — individual
// handlers have no separate veto flag; an empty action slice means "not
// handled".
func (rt *Runtime) Dispatch(event types.Event) {
	for _, h := range rt.matchHandlers(event.Name) {
		if len(rt.Errors) > 0 {
			return
		}
		rt.RunActions(h.Callback(event, rt))
	}
}

// RunActions drains the given actions to a fixed point, depth-first: each
// action's Do may return further actions, which run to completion before
// the next action in the original slice is attempted. If rt.Errors becomes
// non-empty, the remaining actions in the current batch are skipped.
func (rt *Runtime) RunActions(actions []Action) {
	for _, a := range actions {
		if len(rt.Errors) > 0 {
			return
		}
		induced := a.Do(rt)
		rt.RunActions(induced)
	}
}

// PopAndDispose is the sole sanctioned way to remove the top block: pop,
// call Unmount and drain its actions, then Dispose (which releases every
// memory ref and handler the block owns). A caller that invokes
// rt.Stack.Pop directly leaves "zombie handlers" registered — PopAndDispose
// exists precisely so nothing in action or behavior code needs to do that.
func (rt *Runtime) PopAndDispose() (Block, bool) {
	blk, ok := rt.Stack.Pop()
	if !ok {
		return nil, false
	}
	rt.RunActions(blk.Unmount(rt))
	blk.Dispose(rt)
	rt.Collector.IncBlockDisposed()
	return blk, true
}

// PushAndMount pushes b, calls its Mount, and drains the returned actions.
// A push onto a previously empty stack marks the workout as started.
func (rt *Runtime) PushAndMount(b Block) {
	if rt.Stack.Len() == 0 {
		rt.Collector.IncWorkoutStarted()
	}
	rt.Stack.Push(b)
	rt.Collector.IncBlockPushed()
	rt.RunActions(b.Mount(rt))
}
