// Package compiler implements the JIT block compiler: an ordered list of
// Strategy matchers, the first of which to match a sibling group produces
// the Block for it. See Compiler.Compile.
package compiler

import (
	"strings"

	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Strategy matches a sibling group — by its merged, precedence-resolved
// fragments, and by the group's own child statement groups — and compiles
// it into a Block.
type Strategy interface {
	Match(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) bool
	Compile(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment, rt *runtime.Runtime, cctx types.CompilationContext, c *Compiler) (*block.Block, error)
}

func actionIs(fragments map[types.FragmentType][]types.Fragment, name string) bool {
	for _, f := range fragments[types.FragmentAction] {
		if s, ok := f.Value.(string); ok && s == name {
			return true
		}
	}
	return false
}

func firstTimerMs(fragments map[types.FragmentType][]types.Fragment) (int64, bool) {
	fs := fragments[types.FragmentTimer]
	if len(fs) == 0 {
		return 0, false
	}
	ms, ok := fs[0].Value.(int64)
	return ms, ok
}

func firstRounds(fragments map[types.FragmentType][]types.Fragment) (types.RoundsValue, bool) {
	fs := fragments[types.FragmentRounds]
	if len(fs) == 0 {
		return types.RoundsValue{}, false
	}
	rv, ok := fs[0].Value.(types.RoundsValue)
	return rv, ok
}

// childGroupsOf returns the sibling-id groups hanging off the statement in
// group that owns them (the container statement carrying Timer/Rounds is
// never itself composed with another container on the same line).
func childGroupsOf(group []*types.CodeStatement) [][]types.StatementID {
	for _, st := range group {
		if len(st.Children) > 0 {
			return st.Children
		}
	}
	return nil
}

// sourceIDsOf flattens a group's statement ids, for BlockContext.
func sourceIDsOf(group []*types.CodeStatement) []types.StatementID {
	ids := make([]types.StatementID, len(group))
	for i, st := range group {
		ids[i] = st.ID
	}
	return ids
}

// label joins a group's Effort/Action fragment display text, falling back
// to "workout" if neither is present (e.g. a bare group header with no
// identifier of its own).
func label(group []*types.CodeStatement, fragments map[types.FragmentType][]types.Fragment) string {
	var parts []string
	for _, f := range fragments[types.FragmentEffort] {
		parts = append(parts, f.Display)
	}
	for _, f := range fragments[types.FragmentAction] {
		parts = append(parts, f.Display)
	}
	if len(parts) == 0 {
		return "workout"
	}
	return strings.Join(parts, " ")
}
