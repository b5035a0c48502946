package compiler

import (
	"github.com/wod-wiki/wodwiki/behavior"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Effort is the fallback strategy: a leaf exercise statement with no
// timer, rounds, or children of its own. It pops when the user advances
// past it.
type Effort struct{}

func (Effort) Match(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) bool {
	return true
}

func (Effort) Compile(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment, rt *runtime.Runtime, cctx types.CompilationContext, c *Compiler) (*block.Block, error) {
	ctx := block.NewContext(sourceIDsOf(group), rt.Memory)
	ctx.SetFragments(flatten(group))
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)

	behaviors := []block.Behavior{
		&behavior.SegmentOutput{Category: types.SpanRecord, Label: label(group, fragments)},
		&behavior.EffortMetrics{},
		&behavior.PopOnEvent{EventName: types.EventUserNext, CompletionRef: completionRef},
		&behavior.HistoryRecord{},
	}
	return block.New("effort", label(group, fragments), ctx, behaviors), nil
}

func flatten(group []*types.CodeStatement) []types.Fragment {
	var out []types.Fragment
	for _, st := range group {
		out = append(out, types.ResolveFragments(st.Fragments)...)
	}
	return out
}
