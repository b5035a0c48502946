package display

import (
	"fmt"

	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Hub is the DisplayStateHub: it subscribes to every memory change and
// recomputes Snapshot, pushing it to whatever callback a UI registered via
// OnChange. It is the only object a UI layer should hold a reference to —
// never Runtime.Memory, Runtime.Stack, or Runtime.Clock directly.
type Hub struct {
	rt         *runtime.Runtime
	onChange   func(Snapshot)
	unregister func()
}

// NewHub wires a Hub to rt's memory arena. The caller must call Close when
// done to unsubscribe.
func NewHub(rt *runtime.Runtime) *Hub {
	h := &Hub{rt: rt}
	h.unregister = rt.Memory.Subscribe(func(types.BlockKey, types.MemoryType) {
		if h.onChange != nil {
			h.onChange(h.Snapshot())
		}
	})
	return h
}

// OnChange registers the callback invoked with a fresh Snapshot on every
// memory change. Only one callback is held; a later call replaces it.
func (h *Hub) OnChange(f func(Snapshot)) {
	h.onChange = f
}

// Close unsubscribes from memory changes. The Hub must not be used after.
func (h *Hub) Close() {
	if h.unregister != nil {
		h.unregister()
	}
}

// Snapshot computes the current view on demand: produced on demand and on
// every memory change — OnChange wires the latter, Snapshot itself is
// always safe to call directly too.
func (h *Hub) Snapshot() Snapshot {
	blocks := rootToTop(h.rt.Stack.All())

	snap := Snapshot{
		TimerStack: []TimerEntry{},
		CardStack:  []CardEntry{},
	}

	for _, b := range blocks {
		blk, ok := b.(*block.Block)
		if !ok {
			continue
		}
		snap.CardStack = append(snap.CardStack, cardFor(blk))

		if entry, ok := timerEntryFor(h.rt, blk, len(snap.TimerStack) == 0); ok {
			snap.TimerStack = append(snap.TimerStack, entry)
			if snap.GlobalSpanRef == "" {
				snap.GlobalSpanRef = entry.SpanRef
			}
			snap.CurrentLapSpanRef = entry.SpanRef
		}
		if round, total, ok := roundStateFor(h.rt, blk); ok {
			snap.CurrentRound = &round
			snap.TotalRounds = &total
		}
	}

	snap.WorkoutState = workoutState(h.rt, len(blocks))
	return snap
}

// rootToTop reverses Stack.All (top-first) into root-first display order.
func rootToTop(topFirst []runtime.Block) []runtime.Block {
	out := make([]runtime.Block, len(topFirst))
	for i, b := range topFirst {
		out[len(topFirst)-1-i] = b
	}
	return out
}

func cardFor(blk *block.Block) CardEntry {
	return CardEntry{
		ID:      string(blk.Key()),
		OwnerID: string(blk.Key()),
		Type:    blk.BlockType(),
		Title:   blk.Label(),
	}
}

// timerEntryFor looks up a public timer-running ref owned by blk. root is
// true for the bottommost block carrying one, which gets role "workout";
// every other timer-bearing block is a "round" (or "record" for a leaf
// timer with no children — callers do not currently distinguish these,
// since LoopCoordinator-composing strategies are the only multi-round
// timer owners and Timer's bare leaf never nests inside another timer).
func timerEntryFor(rt *runtime.Runtime, blk *block.Block, root bool) (TimerEntry, bool) {
	mt := types.MemoryTimerRunning
	owner := blk.Key()
	indices := rt.Memory.Search(runtime.SearchCriteria{MemType: &mt, OwnerID: &owner})
	if len(indices) == 0 {
		return TimerEntry{}, false
	}
	role := "round"
	if root {
		role = "workout"
	}
	return TimerEntry{
		ID:      fmt.Sprintf("%s:timer", blk.Key()),
		OwnerID: string(blk.Key()),
		SpanRef: fmt.Sprintf("%s:timer-spans", blk.Key()),
		Role:    role,
		Format:  "mm:ss",
	}, true
}

func roundStateFor(rt *runtime.Runtime, blk *block.Block) (current, total int, ok bool) {
	mt := types.MemoryRoundState
	owner := blk.Key()
	indices := rt.Memory.Search(runtime.SearchCriteria{MemType: &mt, OwnerID: &owner})
	if len(indices) == 0 {
		return 0, 0, false
	}
	ref := runtime.RefAt[types.RoundState](rt.Memory, indices[0])
	state, found := runtime.Get(rt.Memory, ref)
	if !found {
		return 0, 0, false
	}
	return state.Current, state.Total, true
}

func workoutState(rt *runtime.Runtime, blockCount int) WorkoutState {
	if blockCount == 0 {
		return WorkoutComplete
	}
	if rt.Clock.IsRunning() {
		return WorkoutRunning
	}
	if rt.Clock.Elapsed() > 0 {
		return WorkoutPaused
	}
	return WorkoutIdle
}
