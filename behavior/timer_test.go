package behavior

import (
	"testing"

	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

func newMountedBlock(rt *runtime.Runtime, behaviors []block.Behavior) *block.Block {
	ctx := block.NewContext(nil, rt.Memory)
	b := block.New("test", "test", ctx, behaviors)
	rt.PushAndMount(b)
	return b
}

func TestTimerCompletion_FiresOnlyWhenElapsedReachesDuration(t *testing.T) {
	rt := runtime.New()
	ctx := block.NewContext(nil, rt.Memory)
	stateRef := block.Allocate(ctx, types.MemoryTimerRunning, types.TimerState{Direction: "down", DurationMs: 1000}, types.VisibilityPublic)
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)

	b := block.New("timer", "timer", ctx, []block.Behavior{
		&TimerCompletion{StateRef: stateRef, CompletionRef: completionRef},
	})
	rt.PushAndMount(b)
	// A child on top keeps the completion watcher from popping (and
	// disposing) the timer block, so completionRef stays readable.
	newMountedBlock(rt, nil)

	// TimerCompletion reads elapsed from the state ref (TimerTick's job),
	// so each step writes the state a tick would have produced.
	runtime.Set(rt.Memory, stateRef, types.TimerState{Direction: "down", DurationMs: 1000, ElapsedMs: 500})
	rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": int64(500)}})
	status, _ := runtime.Get(rt.Memory, completionRef)
	if status.Complete {
		t.Fatalf("expected incomplete at 500ms of 1000ms")
	}

	runtime.Set(rt.Memory, stateRef, types.TimerState{Direction: "down", DurationMs: 1000, ElapsedMs: 1000})
	rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": int64(1000)}})
	status, _ = runtime.Get(rt.Memory, completionRef)
	if !status.Complete {
		t.Fatalf("expected complete once elapsed reaches duration")
	}
}

func TestTimerTick_UpdatesElapsedOnStateRef(t *testing.T) {
	rt := runtime.New()
	ctx := block.NewContext(nil, rt.Memory)
	spansRef := block.Allocate(ctx, types.MemoryTimerSpans, []types.TimeSpan(nil), types.VisibilityPrivate)
	stateRef := block.Allocate(ctx, types.MemoryTimerRunning, types.TimerState{Direction: "up"}, types.VisibilityPublic)

	b := block.New("timer", "timer", ctx, []block.Behavior{
		&TimerTick{SpansRef: spansRef, StateRef: stateRef},
	})
	rt.PushAndMount(b)

	rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": int64(2500)}})
	state, _ := runtime.Get(rt.Memory, stateRef)
	if state.ElapsedMs != 2500 {
		t.Fatalf("got elapsed=%d, want 2500", state.ElapsedMs)
	}
}

func TestTimerPause_ClosesThenReopensSpan(t *testing.T) {
	rt := runtime.New()
	ctx := block.NewContext(nil, rt.Memory)
	spansRef := block.Allocate(ctx, types.MemoryTimerSpans, []types.TimeSpan{{Started: 0}}, types.VisibilityPrivate)

	b := block.New("timer", "timer", ctx, []block.Behavior{&TimerPause{SpansRef: spansRef}})
	rt.PushAndMount(b)

	rt.Dispatch(types.Event{Name: types.EventTimerPause})
	spans, _ := runtime.Get(rt.Memory, spansRef)
	if spans[0].Ended == nil {
		t.Fatalf("expected span closed after pause")
	}

	rt.Dispatch(types.Event{Name: types.EventTimerResume})
	spans, _ = runtime.Get(rt.Memory, spansRef)
	if len(spans) != 2 || spans[1].Ended != nil {
		t.Fatalf("expected a second open span after resume, got %+v", spans)
	}
}
