package compiler

import (
	"github.com/wod-wiki/wodwiki/behavior"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

const defaultIntervalMs = 60_000 // classic EMOM cadence: one minute per round

// Interval matches Action="EMOM", with or without a Timer: a
// fixed-interval repeating timer, e.g. "EMOM 10" (ten one-minute rounds;
// with no Timer the interval is defaultIntervalMs) or ":90 EMOM 10".
type Interval struct{}

func (Interval) Match(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) bool {
	return actionIs(fragments, "EMOM")
}

func (Interval) Compile(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment, rt *runtime.Runtime, cctx types.CompilationContext, c *Compiler) (*block.Block, error) {
	intervalMs, hasTimer := firstTimerMs(fragments)
	if !hasTimer {
		intervalMs = defaultIntervalMs
	}
	totalRounds := totalRoundsOf(fragments)
	childGroups := childGroupsOf(group)

	ctx := block.NewContext(sourceIDsOf(group), rt.Memory)
	ctx.SetFragments(flatten(group))

	spansRef := block.Allocate(ctx, types.MemoryTimerSpans, []types.TimeSpan(nil), types.VisibilityPrivate)
	stateRef := block.Allocate(ctx, types.MemoryTimerRunning, types.TimerState{}, types.VisibilityPublic)
	indexRef := block.Allocate(ctx, types.MemoryChildIndex, 0, types.VisibilityPrivate)
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)

	coord := &behavior.LoopCoordinator{
		ChildGroups:        childGroups,
		LoopType:           types.LoopInterval,
		TotalRounds:        totalRounds,
		IntervalDurationMs: intervalMs,
		IndexRef:           indexRef,
		CompletionRef:      completionRef,
		Runner:             childRunner(rt, c),
	}

	behaviors := []block.Behavior{
		&behavior.SegmentOutput{Category: types.SpanGroup, Label: label(group, fragments)},
		&behavior.TimerInit{SpansRef: spansRef, StateRef: stateRef, Direction: "down", DurationMs: intervalMs},
		&behavior.TimerTick{SpansRef: spansRef, StateRef: stateRef},
		&behavior.TimerPause{SpansRef: spansRef},
		coord,
		&behavior.RoundOutput{},
		&behavior.HistoryRecord{},
	}
	return block.New("interval", label(group, fragments), ctx, behaviors), nil
}

// totalRoundsOf reads the round count for an EMOM from a Rounds fragment
// if present, else the first bare Rep number (e.g. "EMOM 10").
func totalRoundsOf(fragments map[types.FragmentType][]types.Fragment) int {
	if rv, ok := firstRounds(fragments); ok {
		return rv.Total
	}
	if fs := fragments[types.FragmentRep]; len(fs) > 0 {
		if n, ok := fs[0].Value.(int); ok {
			return n
		}
	}
	return 1
}
