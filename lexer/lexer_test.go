package lexer

import "testing"

func TestLex_TimerPrecedesNumber(t *testing.T) {
	lines, errs := Lex("10:00 AMRAP")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(lines) != 1 || len(lines[0].Tokens) != 2 {
		t.Fatalf("got %+v", lines)
	}
	tok := lines[0].Tokens[0]
	if tok.Kind != KindTimer {
		t.Fatalf("got kind %q, want timer", tok.Kind)
	}
	ms, ok := tok.Value.(int64)
	if !ok || ms != 600000 {
		t.Errorf("got value %v, want 600000ms", tok.Value)
	}
}

func TestLex_ResistancePrecedesNumber(t *testing.T) {
	lines, _ := Lex("  21 Thrusters 95lb")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Indent != 2 {
		t.Errorf("got indent %d, want 2", lines[0].Indent)
	}
	var sawResistance bool
	for _, tok := range lines[0].Tokens {
		if tok.Kind == KindResistance {
			sawResistance = true
			rv, ok := tok.Value.(interface{})
			_ = rv
			if !ok {
				t.Errorf("resistance token has wrong value type")
			}
		}
	}
	if !sawResistance {
		t.Errorf("expected a resistance token, got %+v", lines[0].Tokens)
	}
}

func TestLex_RoundsAndLapOperators(t *testing.T) {
	lines, errs := Lex("(3)\n  + 10 Pullups\n  + 20 Pushups\n  - 400m Run")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[0].Tokens[0].Kind != KindGroupOpen {
		t.Errorf("line 0 first token kind = %q, want group_open", lines[0].Tokens[0].Kind)
	}
	if lines[1].Tokens[0].Kind != KindPlus {
		t.Errorf("line 1 first token kind = %q, want plus", lines[1].Tokens[0].Kind)
	}
	if lines[3].Tokens[0].Kind != KindMinus {
		t.Errorf("line 3 first token kind = %q, want minus", lines[3].Tokens[0].Kind)
	}
}

func TestLex_UnrecognizedTokenIsNonFatal(t *testing.T) {
	lines, errs := Lex("10 @@@ Pushups")
	if len(errs) == 0 {
		t.Fatalf("expected a parse error for the unrecognized token")
	}
	if len(lines) != 1 || len(lines[0].Tokens) == 0 {
		t.Fatalf("expected a partial token list, got %+v", lines)
	}
}
