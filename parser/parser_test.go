package parser

import (
	"testing"

	"github.com/wod-wiki/wodwiki/types"
)

func TestParse_AmrapTwoChildrenNotComposed(t *testing.T) {
	script := Parse("10:00 AMRAP\n  5 Pullups\n  10 Pushups")
	if len(script.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", script.Errors)
	}
	roots := script.Roots()
	if len(roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(roots))
	}
	root := roots[0]
	if len(root.Children) != 2 {
		t.Fatalf("got %d child groups, want 2 (AMRAP cycles two children): %v", len(root.Children), root.Children)
	}
	for _, g := range root.Children {
		if len(g) != 1 {
			t.Errorf("expected singleton groups, got %v", g)
		}
	}

	timers := root.FragmentsOfType(types.FragmentTimer)
	if len(timers) != 1 || timers[0].Value.(int64) != 600000 {
		t.Errorf("got timer fragments %v, want 600000ms", timers)
	}
	actions := root.FragmentsOfType(types.FragmentAction)
	if len(actions) != 1 || actions[0].Value.(string) != "AMRAP" {
		t.Errorf("got action fragments %v, want AMRAP", actions)
	}
}

func TestParse_FixedRoundsRepsConstant(t *testing.T) {
	script := Parse("(3)\n  21 Thrusters\n  15 Pullups")
	root := script.Roots()[0]
	rounds := root.FragmentsOfType(types.FragmentRounds)
	if len(rounds) != 1 {
		t.Fatalf("expected one rounds fragment")
	}
	rv := rounds[0].Value.(types.RoundsValue)
	if rv.Total != 3 || rv.RepScheme != nil {
		t.Errorf("got %+v, want Total=3 RepScheme=nil", rv)
	}
	if len(root.Children) != 2 {
		t.Fatalf("got %d child groups, want 2", len(root.Children))
	}
}

func TestParse_RepSchemeDescending(t *testing.T) {
	script := Parse("(21-15-9)\n  Thrusters 95lb\n  Pullups")
	root := script.Roots()[0]
	rounds := root.FragmentsOfType(types.FragmentRounds)
	rv := rounds[0].Value.(types.RoundsValue)
	if rv.Total != 3 {
		t.Fatalf("got Total=%d, want 3", rv.Total)
	}
	want := []int{21, 15, 9}
	if len(rv.RepScheme) != 3 {
		t.Fatalf("got RepScheme=%v, want %v", rv.RepScheme, want)
	}
	for i, w := range want {
		if rv.RepScheme[i] != w {
			t.Errorf("RepScheme[%d] = %d, want %d", i, rv.RepScheme[i], w)
		}
	}

	kids := script.GetByIDs(flatten(root.Children))
	var thrusters *types.CodeStatement
	for _, k := range kids {
		if len(k.FragmentsOfType(types.FragmentEffort)) > 0 {
			efforts := k.FragmentsOfType(types.FragmentEffort)
			if efforts[0].Value.(string) == "Thrusters" {
				thrusters = k
			}
		}
	}
	if thrusters == nil {
		t.Fatalf("expected a Thrusters statement")
	}
	if len(thrusters.FragmentsOfType(types.FragmentResistance)) != 1 {
		t.Errorf("expected a resistance fragment on Thrusters")
	}
}

func TestParse_EmomInterval(t *testing.T) {
	script := Parse("EMOM 10\n  5 Burpees")
	root := script.Roots()[0]
	actions := root.FragmentsOfType(types.FragmentAction)
	if len(actions) != 1 || actions[0].Value.(string) != "EMOM" {
		t.Fatalf("got %v, want EMOM action", actions)
	}
	reps := root.FragmentsOfType(types.FragmentRep)
	if len(reps) != 1 || reps[0].Value.(int) != 10 {
		t.Errorf("got %v, want rep=10 (interval count)", reps)
	}
}

func TestParse_LapAdjacencyGrouping(t *testing.T) {
	script := Parse("(3)\n  + 10 Pullups\n  + 20 Pushups\n  - 400m Run")
	root := script.Roots()[0]
	if len(root.Children) != 2 {
		t.Fatalf("got %d groups, want 2: %v", len(root.Children), root.Children)
	}
	if len(root.Children[0]) != 2 {
		t.Errorf("group 0 = %v, want [pullups,pushups]", root.Children[0])
	}
	if len(root.Children[1]) != 1 {
		t.Errorf("group 1 = %v, want [run]", root.Children[1])
	}
}

func TestParse_ComposeAdjacencyPacking(t *testing.T) {
	// "- a\n+ b\n+ c\n- d" as children of a synthetic parent.
	script := Parse("(1)\n  - a\n  + b\n  + c\n  - d")
	root := script.Roots()[0]
	groups := root.Children
	want := [][]int{{1}, {2}, {1}} // lengths: [a]=1, [b,c]=2, [d]=1
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3: %v", len(groups), groups)
	}
	lens := []int{len(groups[0]), len(groups[1]), len(groups[2])}
	if lens[0] != 1 || lens[1] != 2 || lens[2] != 1 {
		t.Errorf("got group lengths %v, want [1,2,1]", lens)
	}
	_ = want
}

func flatten(groups [][]types.StatementID) []types.StatementID {
	var out []types.StatementID
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
