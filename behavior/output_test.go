package behavior

import (
	"testing"

	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

func TestSegmentOutputAndHistoryRecord_OpenAndCloseSpan(t *testing.T) {
	rt := runtime.New()
	b := newMountedBlock(rt, []block.Behavior{
		&SegmentOutput{Category: types.SpanRecord, Label: "effort"},
		&HistoryRecord{},
	})

	if _, ok := rt.Tracker.Active(b.Key()); !ok {
		t.Fatalf("expected an active span after mount")
	}

	rt.RunActions(b.Unmount(rt))
	if _, ok := rt.Tracker.Active(b.Key()); ok {
		t.Fatalf("expected span closed after unmount")
	}
	log := rt.Tracker.Log()
	if len(log) != 1 || log[0].Status != "complete" {
		t.Fatalf("got log=%+v", log)
	}
}

func TestSoundCue_FiresOncePerThresholdCrossed(t *testing.T) {
	rt := runtime.New()
	newMountedBlock(rt, []block.Behavior{&SoundCue{ThresholdsMs: []int64{1000, 2000}}})

	// drive ticks through Dispatch and count sound-milestone events
	var milestones []int64
	rt.RegisterHandler("counter", types.EventSoundMilestone, 100, func(e types.Event, rt *runtime.Runtime) []runtime.Action {
		th, _ := e.Data["thresholdMs"].(int64)
		milestones = append(milestones, th)
		return nil
	})

	rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": int64(500)}})
	rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": int64(1200)}})
	rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": int64(1500)}})
	rt.Dispatch(types.Event{Name: types.EventTimerTick, Data: map[string]any{"elapsedMs": int64(2500)}})

	if len(milestones) != 2 || milestones[0] != 1000 || milestones[1] != 2000 {
		t.Fatalf("got milestones=%v, want [1000 2000] fired exactly once each", milestones)
	}
}

func TestPopOnEvent_MarksCompleteAndAutoPops(t *testing.T) {
	rt := runtime.New()
	ctx := block.NewContext(nil, rt.Memory)
	completionRef := block.Allocate(ctx, types.MemoryCompletionStatus, types.CompletionStatus{}, types.VisibilityPrivate)
	b := block.New("leaf", "leaf", ctx, []block.Behavior{&PopOnEvent{EventName: types.EventUserNext, CompletionRef: completionRef}})
	rt.PushAndMount(b)

	rt.Dispatch(types.Event{Name: types.EventUserNext})
	if rt.Stack.Len() != 0 {
		t.Fatalf("expected PopOnEvent completion to auto-pop, stack len=%d", rt.Stack.Len())
	}
}

func TestRoundOutput_EmitsMilestoneOnRoundStart(t *testing.T) {
	rt := runtime.New()
	b := newMountedBlock(rt, []block.Behavior{&RoundOutput{}})

	before := len(rt.Tracker.Log())
	rt.Dispatch(types.Event{Name: types.EventRoundStart, Data: map[string]any{"round": 2}})
	after := rt.Tracker.Log()

	if len(after) != before+1 || after[len(after)-1].EventType != "round:milestone" {
		t.Fatalf("got log tail=%+v", after)
	}
}

func TestEffortMetrics_AttachesRepsToActiveSpanAndCollector(t *testing.T) {
	rt := runtime.New()
	rt.Collector = metrics.NewCollector("script-1", "run-1")
	ctx := block.NewContext(nil, rt.Memory)
	ctx.SetFragments([]types.Fragment{{Type: types.FragmentRep, Value: 21}})
	b := block.New("effort", "effort", ctx, []block.Behavior{
		&SegmentOutput{Category: types.SpanRecord, Label: "effort"},
		&EffortMetrics{},
	})
	rt.PushAndMount(b)

	active, ok := rt.Tracker.Active(b.Key())
	if !ok || active.Metrics == nil || active.Metrics.Reps == nil || *active.Metrics.Reps != 21 {
		t.Fatalf("got active=%+v ok=%v", active, ok)
	}
	if s := rt.Collector.Snapshot(); s.RepsLogged != 21 {
		t.Fatalf("RepsLogged = %d, want 21", s.RepsLogged)
	}
}

func TestEffortMetrics_NoRepFragmentIsNoop(t *testing.T) {
	rt := runtime.New()
	ctx := block.NewContext(nil, rt.Memory)
	b := block.New("effort", "effort", ctx, []block.Behavior{
		&SegmentOutput{Category: types.SpanRecord, Label: "effort"},
		&EffortMetrics{},
	})
	rt.PushAndMount(b)

	active, ok := rt.Tracker.Active(b.Key())
	if !ok || active.Metrics != nil {
		t.Fatalf("got active=%+v ok=%v, want nil Metrics", active, ok)
	}
}
