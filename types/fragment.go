package types

// FragmentType discriminates the semantic datum a Fragment carries.
type FragmentType string

const (
	FragmentTimer        FragmentType = "timer"
	FragmentRep          FragmentType = "rep"
	FragmentEffort       FragmentType = "effort"
	FragmentResistance   FragmentType = "resistance"
	FragmentDistance     FragmentType = "distance"
	FragmentRounds       FragmentType = "rounds"
	FragmentAction       FragmentType = "action"
	FragmentLap          FragmentType = "lap"
	FragmentCurrentRound FragmentType = "current_round"
	FragmentElapsed      FragmentType = "elapsed"
	FragmentTotal        FragmentType = "total"
	FragmentSpans        FragmentType = "spans"
	FragmentSound        FragmentType = "sound"
	FragmentSystemTime   FragmentType = "system_time"
	FragmentText         FragmentType = "text"
	FragmentGroup        FragmentType = "group"
	FragmentIncrement    FragmentType = "increment"
)

// Origin records which stage of the pipeline produced a Fragment. Origin is
// the sole input to precedence resolution (see PrecedenceTier).
type Origin string

const (
	OriginUser      Origin = "user"
	OriginCollected Origin = "collected"
	OriginRuntime   Origin = "runtime"
	OriginTracked   Origin = "tracked"
	OriginAnalyzed  Origin = "analyzed"
	OriginCompiler  Origin = "compiler"
	OriginHinted    Origin = "hinted"
	OriginParser    Origin = "parser"
)

// PrecedenceTier returns the precedence rank for an Origin: 0 is highest
// (shown first), 3 is lowest. Tier membership is fixed by the data model;
// it does not vary per FragmentType.
func (o Origin) PrecedenceTier() int {
	switch o {
	case OriginUser, OriginCollected:
		return 0
	case OriginRuntime, OriginTracked, OriginAnalyzed:
		return 1
	case OriginCompiler, OriginHinted:
		return 2
	case OriginParser:
		return 3
	default:
		return 3
	}
}

// SourcePosition locates a Fragment in the original script text.
type SourcePosition struct {
	Line   int
	Column int
}

// ResistanceValue is the value shape carried by a Resistance fragment.
type ResistanceValue struct {
	Amount float64
	Unit   string // "lb", "kg", "#"
}

// DistanceValue is the value shape carried by a Distance fragment.
type DistanceValue struct {
	Amount float64
	Unit   string // "m", "km", "mi", "ft", "yd"
}

// RoundsValue is the value shape carried by a Rounds fragment.
type RoundsValue struct {
	Total     int
	RepScheme []int // nil when the rounds are not a variable rep scheme
}

// LapKind discriminates the child-grouping operator a Lap fragment carries.
type LapKind string

const (
	LapRound  LapKind = "round"   // "-": begins a new sibling group
	LapCompose LapKind = "compose" // "+": packs into the previous sibling group
	LapRepeat LapKind = "repeat"  // explicit repeat marker
)

// LapValue is the value shape carried by a Lap fragment.
type LapValue struct {
	Kind LapKind
}

// CurrentRoundValue is the value shape carried by a runtime CurrentRound
// fragment.
type CurrentRoundValue struct {
	Current int
	Total   int
}

// Fragment is a typed token carrying one semantic datum, attached to a
// CodeStatement or synthesized by the runtime.
type Fragment struct {
	Type      FragmentType
	Display   string
	Value     any
	Origin    Origin
	Source    SourcePosition
	OwnerKey  BlockKey // empty when not yet owned by a block
	Timestamp *int64   // epoch milliseconds, nil when not timestamped
}

// ResolveFragments returns, from a set of Fragments sharing one FragmentType,
// every fragment belonging to the single highest-precedence tier present.
// Fragments from any other tier are discarded. An empty input yields nil.
func ResolveFragments(fragments []Fragment) []Fragment {
	if len(fragments) == 0 {
		return nil
	}
	best := 4
	for _, f := range fragments {
		if tier := f.Origin.PrecedenceTier(); tier < best {
			best = tier
		}
	}
	out := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f.Origin.PrecedenceTier() == best {
			out = append(out, f)
		}
	}
	return out
}

// ResolveFragmentsByType groups fragments by FragmentType and resolves each
// group independently via ResolveFragments.
func ResolveFragmentsByType(fragments []Fragment) map[FragmentType][]Fragment {
	byType := make(map[FragmentType][]Fragment)
	for _, f := range fragments {
		byType[f.Type] = append(byType[f.Type], f)
	}
	out := make(map[FragmentType][]Fragment, len(byType))
	for t, fs := range byType {
		out[t] = ResolveFragments(fs)
	}
	return out
}
