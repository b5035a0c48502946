package behavior

import (
	"github.com/wod-wiki/wodwiki/action"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// RoundInit documents and owns the round-state allocation its strategy
// performs at construction time (current=1, total=n); it has no lifecycle
// work of its own. Its Ref is shared with RoundAdvance and RoundCompletion.
type RoundInit struct {
	Base
	Ref runtime.Ref[types.RoundState]
}

// RoundAdvance increments current on next() and records a round:start
// timestamp, also broadcasting it as an event so sibling behaviors
// (RoundOutput) can react.
type RoundAdvance struct {
	Base
	Ref runtime.Ref[types.RoundState]
}

func (b *RoundAdvance) OnNext(ctx *block.Context) []runtime.Action {
	state, ok := runtime.Get(ctx.Memory, b.Ref)
	if !ok {
		return nil
	}
	state.Current++
	return []runtime.Action{
		action.SetMemory[types.RoundState]{Ref: b.Ref, Value: state},
		action.CreateTimestamp{BlockKey: ctx.Key, Kind: types.EventRoundStart, Label: "round start"},
		action.EmitEvent{Name: types.EventRoundStart, Data: map[string]any{"round": state.Current}},
		action.RecordRoundComplete{},
	}
}

// RoundCompletion marks completion-status complete once current exceeds
// total.
type RoundCompletion struct {
	Base
	Ref           runtime.Ref[types.RoundState]
	CompletionRef runtime.Ref[types.CompletionStatus]
}

func (b *RoundCompletion) OnNext(ctx *block.Context) []runtime.Action {
	state, ok := runtime.Get(ctx.Memory, b.Ref)
	if !ok || state.Current <= state.Total {
		return nil
	}
	return []runtime.Action{
		action.SetMemory[types.CompletionStatus]{Ref: b.CompletionRef, Value: types.CompletionStatus{
			Complete: true, Reason: "rounds-exhausted",
		}},
	}
}
