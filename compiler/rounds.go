package compiler

import (
	"github.com/wod-wiki/wodwiki/behavior"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Rounds matches a Rounds fragment with no Timer: fixed-round or
// rep-scheme container blocks (e.g. "(5)" or "(21-15-9)").
type Rounds struct{}

func (Rounds) Match(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) bool {
	_, hasTimer := firstTimerMs(fragments)
	_, hasRounds := firstRounds(fragments)
	return hasRounds && !hasTimer
}

func (Rounds) Compile(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment, rt *runtime.Runtime, cctx types.CompilationContext, c *Compiler) (*block.Block, error) {
	rv, _ := firstRounds(fragments)
	childGroups := childGroupsOf(group)

	ctx := block.NewContext(sourceIDsOf(group), rt.Memory)
	ctx.SetFragments(flatten(group))

	roundRef := block.Allocate(ctx, types.MemoryRoundState, types.RoundState{Current: 1, Total: rv.Total}, types.VisibilityPublic)
	indexRef := block.Allocate(ctx, types.MemoryChildIndex, 0, types.VisibilityPrivate)
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)

	loopType := types.LoopFixed
	if len(rv.RepScheme) > 0 {
		loopType = types.LoopRepScheme
	}

	coord := &behavior.LoopCoordinator{
		ChildGroups:   childGroups,
		LoopType:      loopType,
		TotalRounds:   rv.Total,
		RepScheme:     rv.RepScheme,
		IndexRef:      indexRef,
		CompletionRef: completionRef,
		Runner:        childRunner(rt, c),
	}

	behaviors := []block.Behavior{
		&behavior.SegmentOutput{Category: types.SpanGroup, Label: label(group, fragments)},
		&behavior.RoundInit{Ref: roundRef},
		&behavior.RoundAdvance{Ref: roundRef},
		&behavior.RoundCompletion{Ref: roundRef, CompletionRef: completionRef},
		coord,
		&behavior.RoundOutput{},
		&behavior.HistoryRecord{},
	}
	return block.New("rounds", label(group, fragments), ctx, behaviors), nil
}
