package compiler

import (
	"github.com/wod-wiki/wodwiki/behavior"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// TimeBoundRounds matches a statement carrying both Timer and (Rounds or
// Action="AMRAP"): as many rounds of the child group as fit inside the
// timer's duration, e.g. "20:00 AMRAP" or "20:00 (5)".
type TimeBoundRounds struct{}

func (TimeBoundRounds) Match(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) bool {
	_, hasTimer := firstTimerMs(fragments)
	_, hasRounds := firstRounds(fragments)
	return hasTimer && (hasRounds || actionIs(fragments, "AMRAP"))
}

func (TimeBoundRounds) Compile(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment, rt *runtime.Runtime, cctx types.CompilationContext, c *Compiler) (*block.Block, error) {
	durationMs, _ := firstTimerMs(fragments)
	childGroups := childGroupsOf(group)

	ctx := block.NewContext(sourceIDsOf(group), rt.Memory)
	ctx.SetFragments(flatten(group))

	spansRef := block.Allocate(ctx, types.MemoryTimerSpans, []types.TimeSpan(nil), types.VisibilityPrivate)
	stateRef := block.Allocate(ctx, types.MemoryTimerRunning, types.TimerState{}, types.VisibilityPublic)
	indexRef := block.Allocate(ctx, types.MemoryChildIndex, 0, types.VisibilityPrivate)
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)

	coord := &behavior.LoopCoordinator{
		ChildGroups:   childGroups,
		LoopType:      types.LoopTimeBound,
		TimeBoundRef:  stateRef,
		IndexRef:      indexRef,
		CompletionRef: completionRef,
		Runner:        childRunner(rt, c),
	}

	behaviors := []block.Behavior{
		&behavior.SegmentOutput{Category: types.SpanGroup, Label: label(group, fragments)},
		&behavior.TimerInit{SpansRef: spansRef, StateRef: stateRef, Direction: "down", DurationMs: durationMs},
		&behavior.TimerTick{SpansRef: spansRef, StateRef: stateRef},
		&behavior.TimerPause{SpansRef: spansRef},
		coord,
		&behavior.RoundOutput{},
		&behavior.HistoryRecord{},
	}
	return block.New("amrap", label(group, fragments), ctx, behaviors), nil
}
