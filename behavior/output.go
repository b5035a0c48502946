package behavior

import (
	"github.com/wod-wiki/wodwiki/action"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// SegmentOutput opens the block's execution span on mount. Pairs with
// HistoryRecord, which finalizes and closes it on unmount.
type SegmentOutput struct {
	Base
	Category types.SpanCategory
	Label    string
}

func (b *SegmentOutput) OnMount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{action.OpenSpan{Span: types.ExecutionSpan{
		BlockID: ctx.Key, Category: b.Category, Label: b.Label, SourceIDs: ctx.SourceIDs,
	}}}
}

// RoundOutput emits a round:milestone timestamp whenever round:start
// fires on this block, giving the execution log a visible marker per
// completed round separate from the loop's own start marker.
type RoundOutput struct {
	Base
}

func (b *RoundOutput) OnMount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{action.RegisterHandler{
		OwnerID: ctx.Key, EventName: types.EventRoundStart, Priority: -20,
		Callback: func(e types.Event, rt *runtime.Runtime) []runtime.Action {
			return []runtime.Action{action.CreateTimestamp{BlockKey: ctx.Key, Kind: "round:milestone", Label: "round milestone"}}
		},
	}}
}

// SoundCue fires EventSoundMilestone the first time elapsed crosses each
// configured threshold. fired is per-instance, since one SoundCue is
// constructed fresh per mounted block.
type SoundCue struct {
	Base
	ThresholdsMs []int64
	fired        map[int64]bool
}

func (b *SoundCue) OnMount(ctx *block.Context) []runtime.Action {
	b.fired = make(map[int64]bool, len(b.ThresholdsMs))
	return []runtime.Action{action.RegisterHandler{
		OwnerID: ctx.Key, EventName: types.EventTimerTick, Priority: -5,
		Callback: func(e types.Event, rt *runtime.Runtime) []runtime.Action {
			elapsed, _ := e.Data["elapsedMs"].(int64)
			var actions []runtime.Action
			for _, th := range b.ThresholdsMs {
				if elapsed >= th && !b.fired[th] {
					b.fired[th] = true
					actions = append(actions, action.EmitEvent{Name: types.EventSoundMilestone, Data: map[string]any{"thresholdMs": th}})
				}
			}
			return actions
		},
	}}
}

// HistoryRecord finalizes a block's execution span with a complete status
// on unmount and moves it into the log. Group blocks supply aggregated
// child metrics through Aggregate, which OnUnmount calls ahead of
// CloseSpan so FinalizeSpan can attach them.
type HistoryRecord struct {
	Base
	Aggregate func(ctx *block.Context) *types.SpanMetrics
}

func (b *HistoryRecord) OnUnmount(ctx *block.Context) []runtime.Action {
	var aggregated *types.SpanMetrics
	if b.Aggregate != nil {
		aggregated = b.Aggregate(ctx)
	}
	return []runtime.Action{
		action.FinalizeSpan{BlockKey: ctx.Key, Status: "complete", Aggregated: aggregated},
		action.CloseSpan{BlockKey: ctx.Key},
	}
}

// EffortMetrics reads the Rep fragment (if any) off the block's own
// fragments at mount time and attaches it to the block's active span,
// also reporting it to the metrics collector. Other metric kinds
// (resistance, distance) are neither attached to the span nor counted.
type EffortMetrics struct {
	Base
}

func (b *EffortMetrics) OnMount(ctx *block.Context) []runtime.Action {
	reps, ok := repsOf(ctx.Fragments)
	if !ok {
		return nil
	}
	return []runtime.Action{
		action.EmitMetric{BlockKey: ctx.Key, Metric: types.SpanMetrics{Reps: &reps}},
		action.RecordReps{Reps: reps},
	}
}

func repsOf(fragments []types.Fragment) (int, bool) {
	for _, f := range fragments {
		if f.Type != types.FragmentRep {
			continue
		}
		if n, ok := f.Value.(int); ok {
			return n, true
		}
	}
	return 0, false
}

// PopOnEvent marks completion-status complete the first time EventName
// fires. The completion watcher wired into Runtime does the actual pop.
type PopOnEvent struct {
	Base
	EventName     string
	CompletionRef runtime.Ref[types.CompletionStatus]
}

func (b *PopOnEvent) OnMount(ctx *block.Context) []runtime.Action {
	return []runtime.Action{action.RegisterHandler{
		OwnerID: ctx.Key, EventName: b.EventName, Priority: 0,
		Callback: func(e types.Event, rt *runtime.Runtime) []runtime.Action {
			return []runtime.Action{action.SetMemory[types.CompletionStatus]{Ref: b.CompletionRef, Value: types.CompletionStatus{
				Complete: true, Reason: "event:" + b.EventName,
			}}}
		},
	}}
}
