package display

import (
	"testing"

	"github.com/wod-wiki/wodwiki/compiler"
	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/parser"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

func newMountedRounds(t *testing.T) *runtime.Runtime {
	t.Helper()
	rt := runtime.New()
	s := parser.Parse("(3)\n  21 Thrusters 95lb\n  15 Pullups")
	if len(s.Errors) != 0 {
		t.Fatalf("parse errors: %v", s.Errors)
	}
	c := compiler.New(s)
	root := s.Roots()[0]
	b, err := c.Compile([]types.StatementID{root.ID}, rt, types.CompilationContext{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	rt.PushAndMount(b)
	return rt
}

func TestHub_Snapshot_ReflectsRoundsAndCards(t *testing.T) {
	rt := newMountedRounds(t)
	hub := NewHub(rt)
	defer hub.Close()

	snap := hub.Snapshot()
	if len(snap.CardStack) == 0 {
		t.Fatalf("expected at least one card, got none")
	}
	if snap.CardStack[0].Type != "rounds" {
		t.Errorf("got root card type %q, want rounds", snap.CardStack[0].Type)
	}
	if snap.CurrentRound == nil || *snap.CurrentRound != 1 {
		t.Errorf("got currentRound %v, want 1", snap.CurrentRound)
	}
	if snap.TotalRounds == nil || *snap.TotalRounds != 3 {
		t.Errorf("got totalRounds %v, want 3", snap.TotalRounds)
	}
}

func TestHub_OnChange_FiresOnMemoryMutation(t *testing.T) {
	rt := newMountedRounds(t)
	hub := NewHub(rt)
	defer hub.Close()

	fired := 0
	hub.OnChange(func(Snapshot) { fired++ })

	root, ok := rt.Stack.Current()
	if !ok {
		t.Fatalf("expected a mounted root block")
	}
	rt.RunActions(root.Next(rt))

	if fired == 0 {
		t.Errorf("expected OnChange to fire after Next() mutated memory")
	}
}

func TestHub_Snapshot_WorkoutCompleteWhenStackEmpty(t *testing.T) {
	rt := runtime.New()
	hub := NewHub(rt)
	defer hub.Close()

	snap := hub.Snapshot()
	if snap.WorkoutState != WorkoutComplete {
		t.Errorf("got workoutState %q, want complete for an empty stack", snap.WorkoutState)
	}
}

func TestDispatch_StartResumePauseAndNext(t *testing.T) {
	rt := newMountedRounds(t)

	if err := Dispatch(rt, types.RuntimeCommand{Type: types.CommandStart}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !rt.Clock.IsRunning() {
		t.Errorf("expected clock running after start command")
	}

	if err := Dispatch(rt, types.RuntimeCommand{Type: types.CommandPause}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if rt.Clock.IsRunning() {
		t.Errorf("expected clock stopped after pause command")
	}

	if err := Dispatch(rt, types.RuntimeCommand{Type: types.CommandResume}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !rt.Clock.IsRunning() {
		t.Errorf("expected clock running after resume command")
	}
}

func TestDispatch_UnknownCommandReturnsError(t *testing.T) {
	rt := runtime.New()
	if err := Dispatch(rt, types.RuntimeCommand{Type: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown command type")
	}
}

func TestDispatch_ResetWithBlocksMountedReportsWorkoutAborted(t *testing.T) {
	rt := newMountedRounds(t)
	rt.Collector = metrics.NewCollector("script-1", "run-1")

	if err := Dispatch(rt, types.RuntimeCommand{Type: types.CommandReset}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := rt.Collector.Snapshot(); s.WorkoutsAborted != 1 {
		t.Fatalf("WorkoutsAborted = %d, want 1", s.WorkoutsAborted)
	}
}

func TestDispatch_ResetWithEmptyStackDoesNotReportAborted(t *testing.T) {
	rt := runtime.New()
	rt.Collector = metrics.NewCollector("script-1", "run-1")

	if err := Dispatch(rt, types.RuntimeCommand{Type: types.CommandReset}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := rt.Collector.Snapshot(); s.WorkoutsAborted != 0 {
		t.Fatalf("WorkoutsAborted = %d, want 0", s.WorkoutsAborted)
	}
}
