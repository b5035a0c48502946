package compiler

import (
	"github.com/wod-wiki/wodwiki/behavior"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Group matches a container statement with non-empty children and no
// timer or rounds fragment of its own: a plain sequencing block that
// pushes each child group once, in order, with no looping.
type Group struct{}

func (Group) Match(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) bool {
	_, hasTimer := firstTimerMs(fragments)
	_, hasRounds := firstRounds(fragments)
	return len(childGroupsOf(group)) > 0 && !hasTimer && !hasRounds
}

func (Group) Compile(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment, rt *runtime.Runtime, cctx types.CompilationContext, c *Compiler) (*block.Block, error) {
	childGroups := childGroupsOf(group)

	ctx := block.NewContext(sourceIDsOf(group), rt.Memory)
	ctx.SetFragments(flatten(group))
	indexRef := block.Allocate(ctx, types.MemoryChildIndex, 0, types.VisibilityPrivate)
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)

	coord := &behavior.LoopCoordinator{
		ChildGroups:   childGroups,
		LoopType:      types.LoopFixed,
		TotalRounds:   1,
		IndexRef:      indexRef,
		CompletionRef: completionRef,
		Runner:        childRunner(rt, c),
	}

	behaviors := []block.Behavior{
		&behavior.SegmentOutput{Category: types.SpanGroup, Label: label(group, fragments)},
		coord,
		&behavior.HistoryRecord{},
	}
	return block.New("group", label(group, fragments), ctx, behaviors), nil
}

// childRunner builds a ChildRunner that recursively invokes the same
// Compiler, using whatever CompilationContext its caller (a
// LoopCoordinator) derives for each child push.
func childRunner(rt *runtime.Runtime, c *Compiler) behavior.ChildRunner {
	return behavior.ChildRunner{Compile: func(ids []types.StatementID, cctx types.CompilationContext) (*block.Block, error) {
		return c.Compile(ids, rt, cctx)
	}}
}
