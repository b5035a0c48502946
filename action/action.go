// Package action implements the declarative mutation types behaviors
// return from their lifecycle hooks. Each Action's Do performs the effect
// against a *runtime.Runtime and may return further actions, which the
// runtime drains depth-first before returning control to the caller of
// the triggering event.
package action

import (
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Push pushes a block onto the stack and mounts it.
type Push struct {
	Block *block.Block
}

func (p Push) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Stack.Push(p.Block)
	return p.Block.Mount(rt)
}

// Pop removes the current block (unmount then dispose, via
// Runtime.PopAndDispose) and, if the stack is non-empty afterward, calls
// Next on the new top and returns its actions.
type Pop struct{}

func (Pop) Do(rt *runtime.Runtime) []runtime.Action {
	if _, ok := rt.PopAndDispose(); !ok {
		return nil
	}
	if top, ok := rt.Stack.Current(); ok {
		return top.Next(rt)
	}
	return nil
}

// EmitEvent dispatches a named event with an optional payload through
// handle().
type EmitEvent struct {
	Name string
	Data map[string]any
}

func (e EmitEvent) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Dispatch(types.Event{Name: e.Name, Data: e.Data})
	return nil
}

// EmitMetric appends a metric to the current block's active execution
// span, or to a standalone log entry if it has none.
type EmitMetric struct {
	BlockKey types.BlockKey
	Metric   types.SpanMetrics
}

func (e EmitMetric) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Tracker.AppendMetric(e.BlockKey, e.Metric)
	return nil
}

// StartTimer opens a new time span in the given timer-spans ref, enforcing
// the at-most-one-open-span invariant by closing any already-open span
// first.
type StartTimer struct {
	Ref runtime.Ref[[]types.TimeSpan]
}

func (a StartTimer) Do(rt *runtime.Runtime) []runtime.Action {
	spans, _ := runtime.Get(rt.Memory, a.Ref)
	spans = closeOpenSpan(spans, rt.NowMs())
	spans = append(spans, types.TimeSpan{Started: rt.NowMs()})
	runtime.Set(rt.Memory, a.Ref, spans)
	return nil
}

// StopTimer closes the current open time span in the given ref. A no-op if
// none is open.
type StopTimer struct {
	Ref runtime.Ref[[]types.TimeSpan]
}

func (a StopTimer) Do(rt *runtime.Runtime) []runtime.Action {
	spans, _ := runtime.Get(rt.Memory, a.Ref)
	spans = closeOpenSpan(spans, rt.NowMs())
	runtime.Set(rt.Memory, a.Ref, spans)
	return nil
}

func closeOpenSpan(spans []types.TimeSpan, nowMs int64) []types.TimeSpan {
	if len(spans) == 0 {
		return spans
	}
	last := &spans[len(spans)-1]
	if last.Ended == nil {
		ended := nowMs
		last.Ended = &ended
	}
	return spans
}

// RegisterHandler registers an event handler owned by a block.
type RegisterHandler struct {
	OwnerID   types.BlockKey
	EventName string
	Priority  int
	Callback  func(event types.Event, rt *runtime.Runtime) []runtime.Action
}

func (r RegisterHandler) Do(rt *runtime.Runtime) []runtime.Action {
	rt.RegisterHandler(r.OwnerID, r.EventName, r.Priority, r.Callback)
	return nil
}

// UnregisterHandler releases a single handler ref ahead of its owning
// block's dispose.
type UnregisterHandler struct {
	Ref runtime.Ref[runtime.Handler]
}

func (u UnregisterHandler) Do(rt *runtime.Runtime) []runtime.Action {
	rt.UnregisterHandler(u.Ref)
	return nil
}

// CreateTimestamp appends a zero-duration timestamp-category
// ExecutionSpan (workout-start, round-start, pause, ...).
type CreateTimestamp struct {
	BlockKey types.BlockKey
	Kind     string
	Label    string
	Meta     map[string]any
}

func (c CreateTimestamp) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Tracker.AppendTimestamp(types.ExecutionSpan{
		BlockID:   c.BlockKey,
		StartTime: rt.NowMs(),
		EventType: c.Kind,
		Label:     c.Label,
	})
	return nil
}

// Error appends a RuntimeError to rt.Errors, halting the remaining actions
// in the current batch.
type Error struct {
	Err      error
	Context  string
	BlockKey types.BlockKey
}

func (e Error) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Errors = append(rt.Errors, types.RuntimeError{
		Message:  e.Err.Error(),
		Context:  e.Context,
		BlockKey: e.BlockKey,
	})
	return nil
}

// SetMemory stores a new value into ref: the general-purpose mutation for
// memory not covered by a more specific action (StartTimer/StopTimer own
// timer-spans; RegisterHandler/UnregisterHandler own handler entries).
type SetMemory[T any] struct {
	Ref   runtime.Ref[T]
	Value T
}

func (s SetMemory[T]) Do(rt *runtime.Runtime) []runtime.Action {
	runtime.Set(rt.Memory, s.Ref, s.Value)
	return nil
}

// OpenSpan opens a new active span for a block, stamping StartTime.
type OpenSpan struct {
	Span types.ExecutionSpan
}

func (o OpenSpan) Do(rt *runtime.Runtime) []runtime.Action {
	span := o.Span
	span.StartTime = rt.NowMs()
	rt.Tracker.Open(span)
	return nil
}

// CloseSpan closes a block's active span at the current time, moving it
// into the execution log.
type CloseSpan struct {
	BlockKey types.BlockKey
}

func (c CloseSpan) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Tracker.Close(c.BlockKey, rt.NowMs())
	return nil
}

// FinalizeSpan sets a block's active span's status and, for container
// blocks, its aggregated metrics, ahead of the CloseSpan that moves it to
// the log. A no-op if the block has no active span.
type FinalizeSpan struct {
	BlockKey   types.BlockKey
	Status     string
	Aggregated *types.SpanMetrics
}

func (f FinalizeSpan) Do(rt *runtime.Runtime) []runtime.Action {
	if span, ok := rt.Tracker.Active(f.BlockKey); ok {
		span.Status = f.Status
		if f.Aggregated != nil {
			span.Aggregated = f.Aggregated
		}
	}
	return nil
}

// RecordRoundComplete reports a completed round to the metrics collector.
type RecordRoundComplete struct{}

func (RecordRoundComplete) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Collector.IncRoundCompleted()
	return nil
}

// RecordReps reports logged reps to the metrics collector.
type RecordReps struct {
	Reps int
}

func (r RecordReps) Do(rt *runtime.Runtime) []runtime.Action {
	rt.Collector.AddRepsLogged(r.Reps)
	return nil
}

var (
	_ runtime.Action = Push{}
	_ runtime.Action = Pop{}
	_ runtime.Action = EmitEvent{}
	_ runtime.Action = EmitMetric{}
	_ runtime.Action = StartTimer{}
	_ runtime.Action = StopTimer{}
	_ runtime.Action = RegisterHandler{}
	_ runtime.Action = UnregisterHandler{}
	_ runtime.Action = CreateTimestamp{}
	_ runtime.Action = Error{}
	_ runtime.Action = SetMemory[int]{}
	_ runtime.Action = OpenSpan{}
	_ runtime.Action = CloseSpan{}
	_ runtime.Action = FinalizeSpan{}
	_ runtime.Action = RecordRoundComplete{}
	_ runtime.Action = RecordReps{}
)
