package compiler

import (
	"fmt"

	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Compiler holds an ordered strategy list and the Script it compiles
// against (needed to resolve a child group's statement ids back into
// CodeStatements for recursive Compile calls from ChildRunner).
type Compiler struct {
	Strategies []Strategy
	Script     *types.Script
}

// New returns a Compiler over script with the strategies in their
// mandated ordering: TimeBoundRounds, Interval, Timer, Rounds, Group,
// Effort (fallback).
func New(script *types.Script) *Compiler {
	return &Compiler{
		Script: script,
		Strategies: []Strategy{
			TimeBoundRounds{},
			Interval{},
			Timer{},
			Rounds{},
			Group{},
			Effort{},
		},
	}
}

// Compile resolves ids into statements, merges their precedence-resolved
// fragments, and hands the group to the first matching strategy.
func (c *Compiler) Compile(ids []types.StatementID, rt *runtime.Runtime, cctx types.CompilationContext) (*block.Block, error) {
	group := c.Script.GetByIDs(ids)
	if len(group) == 0 {
		return nil, fmt.Errorf("compiler: no statements for ids %v", ids)
	}
	fragments := mergeFragments(group)
	for _, s := range c.Strategies {
		if s.Match(group, fragments) {
			return s.Compile(group, fragments, rt, cctx, c)
		}
	}
	return nil, fmt.Errorf("compiler: no strategy matched group %v", ids)
}

// mergeFragments resolves each statement's fragments to its single
// highest-precedence tier, then merges those across every statement in
// the group into one FragmentType-keyed view.
func mergeFragments(group []*types.CodeStatement) map[types.FragmentType][]types.Fragment {
	merged := make(map[types.FragmentType][]types.Fragment)
	for _, st := range group {
		for _, f := range types.ResolveFragments(st.Fragments) {
			merged[f.Type] = append(merged[f.Type], f)
		}
	}
	return merged
}
