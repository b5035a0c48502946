package display

import (
	"fmt"

	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Dispatch maps a serializable RuntimeCommand from a UI into the
// corresponding Clock/event-bus calls. This is the only path a UI uses to
// mutate VM state — Snapshot is read-only.
func Dispatch(rt *runtime.Runtime, cmd types.RuntimeCommand) error {
	switch cmd.Type {
	case types.CommandStart:
		rt.Clock.Start()
		rt.Dispatch(types.Event{Name: types.EventWorkoutStart, Data: cmd.Payload})
	case types.CommandPause:
		rt.Clock.Stop()
		rt.Dispatch(types.Event{Name: types.EventTimerPause, Data: cmd.Payload})
		rt.Dispatch(types.Event{Name: types.EventWorkoutPause, Data: cmd.Payload})
	case types.CommandResume:
		rt.Clock.Start()
		rt.Dispatch(types.Event{Name: types.EventTimerResume, Data: cmd.Payload})
		rt.Dispatch(types.Event{Name: types.EventWorkoutResume, Data: cmd.Payload})
	case types.CommandNext:
		rt.Dispatch(types.Event{Name: types.EventUserNext, Data: cmd.Payload})
	case types.CommandReset:
		if rt.Stack.Len() > 0 {
			rt.Collector.IncWorkoutAborted()
		}
		rt.Dispatch(types.Event{Name: types.EventUserReset, Data: cmd.Payload})
	default:
		return fmt.Errorf("display: unknown command type %q", cmd.Type)
	}
	if len(rt.Errors) > 0 {
		return fmt.Errorf("display: command %q produced runtime errors: %v", cmd.Type, rt.Errors)
	}
	return nil
}
