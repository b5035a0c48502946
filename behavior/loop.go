package behavior

import (
	"github.com/wod-wiki/wodwiki/action"
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// ChildRunner bridges behavior code back into the compiler: it holds a
// Compile func injected by the strategy that built the owning
// LoopCoordinator, since the compiler package depends on behavior and not
// the reverse.
type ChildRunner struct {
	Compile func(ids []types.StatementID, cctx types.CompilationContext) (*block.Block, error)
}

// Run compiles ids under cctx and returns a Push action for the result.
func (r ChildRunner) Run(ids []types.StatementID, cctx types.CompilationContext) []runtime.Action {
	if r.Compile == nil || len(ids) == 0 {
		return nil
	}
	blk, err := r.Compile(ids, cctx)
	if err != nil {
		return []runtime.Action{action.Error{Err: err, Context: "child-runner"}}
	}
	if blk == nil {
		return nil
	}
	return []runtime.Action{action.Push{Block: blk}}
}

// LoopCoordinator owns the unified loop engine: it derives index,
// position, and round from a single persisted counter, decides completion
// by loop type, and compiles+pushes the next child group via ChildRunner.
// mount simulates the first next() automatically, so a loop pushes its
// first child without a separate user gesture.
type LoopCoordinator struct {
	Base
	ChildGroups        [][]types.StatementID
	LoopType           types.LoopType
	TotalRounds        int
	RepScheme          []int
	IntervalDurationMs int64
	IndexRef           runtime.Ref[int]
	CompletionRef      runtime.Ref[types.CompletionStatus]
	TimeBoundRef       runtime.Ref[types.TimerState]
	Runner             ChildRunner
}

func (l *LoopCoordinator) OnMount(ctx *block.Context) []runtime.Action {
	return l.advance(ctx)
}

func (l *LoopCoordinator) OnNext(ctx *block.Context) []runtime.Action {
	return l.advance(ctx)
}

func (l *LoopCoordinator) advance(ctx *block.Context) []runtime.Action {
	n := len(l.ChildGroups)
	if n == 0 {
		return nil
	}
	index, _ := runtime.Get(ctx.Memory, l.IndexRef)
	position := index % n
	round := index / n

	if l.complete(ctx, round) {
		return []runtime.Action{action.SetMemory[types.CompletionStatus]{Ref: l.CompletionRef, Value: types.CompletionStatus{
			Complete: true, Reason: "loop-exhausted",
		}}}
	}

	cctx := types.CompilationContext{Round: intPtr(round + 1)}
	if l.TotalRounds > 0 {
		cctx.TotalRounds = intPtr(l.TotalRounds)
	}
	if round < len(l.RepScheme) {
		cctx.Reps = intPtr(l.RepScheme[round])
	}
	if l.IntervalDurationMs > 0 {
		dur := l.IntervalDurationMs
		cctx.IntervalDurationMs = &dur
	}

	actions := []runtime.Action{action.SetMemory[int]{Ref: l.IndexRef, Value: index + 1}}
	if position == 0 {
		actions = append(actions, action.CreateTimestamp{BlockKey: ctx.Key, Kind: types.EventRoundStart, Label: "round start"})
		actions = append(actions, action.EmitEvent{Name: types.EventRoundStart, Data: map[string]any{"round": round + 1}})
	}
	actions = append(actions, l.Runner.Run(l.ChildGroups[position], cctx)...)
	return actions
}

// complete answers the completion rule for LoopType: fixed/interval stop
// after TotalRounds rounds, repScheme stops when the scheme is exhausted,
// and timeBound stops once the referenced timer's elapsed reaches its
// target duration.
func (l *LoopCoordinator) complete(ctx *block.Context, round int) bool {
	switch l.LoopType {
	case types.LoopFixed, types.LoopInterval:
		return round >= l.TotalRounds
	case types.LoopRepScheme:
		return round >= len(l.RepScheme)
	case types.LoopTimeBound:
		state, ok := runtime.Get(ctx.Memory, l.TimeBoundRef)
		return ok && state.ElapsedMs >= state.DurationMs
	default:
		return true
	}
}
