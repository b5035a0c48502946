package compiler

import (
	"github.com/wod-wiki/wodwiki/behavior"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Timer matches a bare Timer fragment (no rounds, no AMRAP/EMOM action):
// a plain countdown or count-up clock, e.g. "20:00" or ":30".
type Timer struct{}

func (Timer) Match(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) bool {
	_, hasTimer := firstTimerMs(fragments)
	return hasTimer
}

func (Timer) Compile(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment, rt *runtime.Runtime, cctx types.CompilationContext, c *Compiler) (*block.Block, error) {
	durationMs, _ := firstTimerMs(fragments)
	direction := cctx.TimerDirection
	if direction == "" {
		direction = "down"
	}

	ctx := block.NewContext(sourceIDsOf(group), rt.Memory)
	ctx.SetFragments(flatten(group))

	spansRef := block.Allocate(ctx, types.MemoryTimerSpans, []types.TimeSpan(nil), types.VisibilityPrivate)
	stateRef := block.Allocate(ctx, types.MemoryTimerRunning, types.TimerState{}, types.VisibilityPublic)
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)

	behaviors := []block.Behavior{
		&behavior.SegmentOutput{Category: types.SpanRecord, Label: label(group, fragments)},
		&behavior.TimerInit{SpansRef: spansRef, StateRef: stateRef, Direction: direction, DurationMs: durationMs},
		&behavior.TimerTick{SpansRef: spansRef, StateRef: stateRef},
		&behavior.TimerPause{SpansRef: spansRef},
		&behavior.TimerCompletion{StateRef: stateRef, CompletionRef: completionRef},
		&behavior.PopOnEvent{EventName: types.EventUserNext, CompletionRef: completionRef},
		&behavior.HistoryRecord{},
	}
	return block.New("timer", label(group, fragments), ctx, behaviors), nil
}
