package behavior

import (
	"github.com/wod-wiki/wodwiki/action"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// TimerInit writes a block's timer configuration (direction, target
// duration) and opens its first time span. The timer-spans and
// timer-running refs themselves are allocated by the owning strategy at
// construction time, never here.
type TimerInit struct {
	Base
	SpansRef   runtime.Ref[[]types.TimeSpan]
	StateRef   runtime.Ref[types.TimerState]
	Direction  string
	DurationMs int64
}

func (b *TimerInit) OnMount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{
		action.SetMemory[types.TimerState]{Ref: b.StateRef, Value: types.TimerState{
			Direction: b.Direction, DurationMs: b.DurationMs, Running: true,
		}},
		action.StartTimer{Ref: b.SpansRef},
	}
}

// TimerTick subscribes to timer:tick and keeps timer-running's elapsed
// counter current.
type TimerTick struct {
	Base
	SpansRef runtime.Ref[[]types.TimeSpan]
	StateRef runtime.Ref[types.TimerState]
}

func (b *TimerTick) OnMount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{action.RegisterHandler{
		OwnerID: ctx.Key, EventName: types.EventTimerTick, Priority: 0,
		Callback: func(e types.Event, rt *runtime.Runtime) []runtime.Action {
			elapsed, _ := e.Data["elapsedMs"].(int64)
			state, ok := runtime.Get(rt.Memory, b.StateRef)
			if !ok {
				return nil
			}
			state.ElapsedMs = elapsed
			return []runtime.Action{action.SetMemory[types.TimerState]{Ref: b.StateRef, Value: state}}
		},
	}}
}

// OnUnmount closes the block's open time span: every opened resource gets
// a matching close on teardown.
func (b *TimerTick) OnUnmount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{action.StopTimer{Ref: b.SpansRef}}
}

// TimerPause closes the active time span on timer:pause and opens a new
// one on timer:resume.
type TimerPause struct {
	Base
	SpansRef runtime.Ref[[]types.TimeSpan]
}

func (b *TimerPause) OnMount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{
		action.RegisterHandler{OwnerID: ctx.Key, EventName: types.EventTimerPause, Priority: 0,
			Callback: func(e types.Event, rt *runtime.Runtime) []runtime.Action {
				return []runtime.Action{action.StopTimer{Ref: b.SpansRef}}
			}},
		action.RegisterHandler{OwnerID: ctx.Key, EventName: types.EventTimerResume, Priority: 0,
			Callback: func(e types.Event, rt *runtime.Runtime) []runtime.Action {
				return []runtime.Action{action.StartTimer{Ref: b.SpansRef}}
			}},
	}
}

// TimerCompletion marks completion-status complete once elapsed reaches
// the target duration of a countdown timer. Registered at a lower
// priority than TimerTick so elapsed is current before this check runs.
type TimerCompletion struct {
	Base
	StateRef      runtime.Ref[types.TimerState]
	CompletionRef runtime.Ref[types.CompletionStatus]
}

func (b *TimerCompletion) OnMount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{action.RegisterHandler{
		OwnerID: ctx.Key, EventName: types.EventTimerTick, Priority: -10,
		Callback: func(e types.Event, rt *runtime.Runtime) []runtime.Action {
			state, ok := runtime.Get(rt.Memory, b.StateRef)
			if !ok || state.Direction != "down" || state.ElapsedMs < state.DurationMs {
				return nil
			}
			return []runtime.Action{
				action.SetMemory[types.CompletionStatus]{Ref: b.CompletionRef, Value: types.CompletionStatus{
					Complete: true, Reason: "timer-expired",
				}},
				action.EmitEvent{Name: types.EventBlockComplete, Data: map[string]any{"blockKey": string(ctx.Key)}},
			}
		},
	}}
}
