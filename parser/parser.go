// Package parser builds a concrete syntax tree from lexed lines and lowers
// it, via a visitor pass, into the CodeStatement AST the JIT compiler
// consumes.
package parser

import (
	"strings"

	"github.com/wod-wiki/wodwiki/lexer"
	"github.com/wod-wiki/wodwiki/types"
)

// actionKeywords are identifiers recognized as Action fragments rather than
// Effort fragments when they appear bare (not inside "[:" "]").
var actionKeywords = map[string]bool{
	"AMRAP": true,
	"EMOM":  true,
}

// rawStatement is the CST node before lowering: an indent level, the lap
// operator token consumed from the front of the line (if any), and the
// remaining tokens to extract fragments from.
type rawStatement struct {
	id       types.StatementID
	indent   int
	lap      *types.LapKind
	tokens   []lexer.Token
	source   types.SourcePosition
	parentID *types.StatementID
}

// Parse tokenizes and parses workout script text into a Script. Lexer and
// parser failures are accumulated non-fatally; a partial AST is always
// returned alongside them.
func Parse(text string) *types.Script {
	lines, lexErrs := lexer.Lex(text)
	raws, parseErrs := buildTree(lines)
	errs := append(lexErrs, parseErrs...)

	statements := make([]*types.CodeStatement, 0, len(raws))
	byIndentParent := make(map[types.StatementID][]rawStatement)
	for _, r := range raws {
		if r.parentID != nil {
			byIndentParent[*r.parentID] = append(byIndentParent[*r.parentID], r)
		}
	}

	for _, r := range raws {
		stmt := lower(r)
		statements = append(statements, stmt)
	}

	// Second pass: compute children groups now that every statement exists.
	byID := make(map[types.StatementID]*types.CodeStatement, len(statements))
	for _, s := range statements {
		byID[s.ID] = s
	}
	for _, r := range raws {
		kids := byIndentParent[r.id]
		if len(kids) == 0 {
			continue
		}
		byID[r.id].Children = groupByLap(kids)
		byID[r.id].IsLeaf = false
	}

	return types.NewScript(statements, errs)
}

// buildTree turns lexed lines into rawStatements with parent linkage
// derived from indentation level: a line's parent is the nearest preceding
// line with strictly smaller indent.
func buildTree(lines []lexer.Line) ([]rawStatement, []types.ParseError) {
	var raws []rawStatement
	var errs []types.ParseError

	type stackEntry struct {
		indent int
		id     types.StatementID
	}
	var stack []stackEntry

	for _, line := range lines {
		if len(line.Tokens) == 0 {
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].indent >= line.Indent {
			stack = stack[:len(stack)-1]
		}

		var parentID *types.StatementID
		if len(stack) > 0 {
			id := stack[len(stack)-1].id
			parentID = &id
		}

		tokens := line.Tokens
		var lap *types.LapKind
		if len(tokens) > 0 {
			switch tokens[0].Kind {
			case lexer.KindPlus:
				k := types.LapCompose
				lap = &k
				tokens = tokens[1:]
			case lexer.KindMinus:
				k := types.LapRound
				lap = &k
				tokens = tokens[1:]
			}
		}
		if len(tokens) == 0 {
			errs = append(errs, types.ParseError{
				Message: "line has a lap operator but no content",
				Source:  types.SourcePosition{Line: line.Number, Column: line.Indent},
			})
			continue
		}

		id := types.StatementID(line.Number)
		raws = append(raws, rawStatement{
			id:       id,
			indent:   line.Indent,
			lap:      lap,
			tokens:   tokens,
			source:   types.SourcePosition{Line: line.Number, Column: line.Indent},
			parentID: parentID,
		})
		stack = append(stack, stackEntry{indent: line.Indent, id: id})
	}
	return raws, errs
}

// groupByLap implements the required sibling-grouping rule: consecutive
// statements whose Lap is compose ("+") pack into the previous inner
// array; every other statement begins its own inner array.
func groupByLap(kids []rawStatement) [][]types.StatementID {
	var groups [][]types.StatementID
	prevCompose := false
	for _, k := range kids {
		compose := k.lap != nil && *k.lap == types.LapCompose
		if compose && prevCompose {
			groups[len(groups)-1] = append(groups[len(groups)-1], k.id)
		} else {
			groups = append(groups, []types.StatementID{k.id})
		}
		prevCompose = compose
	}
	return groups
}

// lower extracts typed fragments from a rawStatement's remaining tokens.
func lower(r rawStatement) *types.CodeStatement {
	stmt := &types.CodeStatement{
		ID:     r.id,
		Parent: r.parentID,
		IsLeaf: true,
		Source: r.source,
	}
	if r.lap != nil {
		stmt.Fragments = append(stmt.Fragments, types.Fragment{
			Type: types.FragmentLap, Origin: types.OriginParser, Source: r.source,
			Value: types.LapValue{Kind: *r.lap}, Display: string(*r.lap),
		})
	}

	toks := r.tokens
	var effortParts []string
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Kind {
		case lexer.KindTimer:
			stmt.Fragments = append(stmt.Fragments, types.Fragment{
				Type: types.FragmentTimer, Origin: types.OriginParser, Source: r.source,
				Value: tok.Value, Display: tok.Text,
			})
		case lexer.KindResistance:
			stmt.Fragments = append(stmt.Fragments, types.Fragment{
				Type: types.FragmentResistance, Origin: types.OriginParser, Source: r.source,
				Value: tok.Value, Display: tok.Text,
			})
		case lexer.KindDistance:
			stmt.Fragments = append(stmt.Fragments, types.Fragment{
				Type: types.FragmentDistance, Origin: types.OriginParser, Source: r.source,
				Value: tok.Value, Display: tok.Text,
			})
		case lexer.KindGroupOpen:
			end := i + 1
			for end < len(toks) && toks[end].Kind != lexer.KindGroupClose {
				end++
			}
			stmt.Fragments = append(stmt.Fragments, roundsFragment(toks[i+1:end], r.source))
			i = end
		case lexer.KindActionOpen:
			end := i + 1
			for end < len(toks) && toks[end].Kind != lexer.KindActionClose {
				end++
			}
			name := joinText(toks[i+1 : end])
			stmt.Fragments = append(stmt.Fragments, types.Fragment{
				Type: types.FragmentAction, Origin: types.OriginParser, Source: r.source,
				Value: name, Display: name,
			})
			i = end
		case lexer.KindNumber:
			n, _ := tok.Value.(int)
			stmt.Fragments = append(stmt.Fragments, types.Fragment{
				Type: types.FragmentRep, Origin: types.OriginParser, Source: r.source,
				Value: n, Display: tok.Text,
			})
		case lexer.KindIdentifier:
			upper := strings.ToUpper(tok.Text)
			if actionKeywords[upper] {
				stmt.Fragments = append(stmt.Fragments, types.Fragment{
					Type: types.FragmentAction, Origin: types.OriginParser, Source: r.source,
					Value: upper, Display: tok.Text,
				})
				continue
			}
			effortParts = append(effortParts, tok.Text)
		}
	}
	if len(effortParts) > 0 {
		name := strings.Join(effortParts, " ")
		stmt.Fragments = append(stmt.Fragments, types.Fragment{
			Type: types.FragmentEffort, Origin: types.OriginParser, Source: r.source,
			Value: name, Display: name,
		})
	}
	return stmt
}

func roundsFragment(inner []lexer.Token, src types.SourcePosition) types.Fragment {
	var nums []int
	for _, tok := range inner {
		if tok.Kind == lexer.KindNumber {
			n, _ := tok.Value.(int)
			nums = append(nums, n)
		}
	}
	rv := types.RoundsValue{}
	switch {
	case len(nums) == 0:
		rv.Total = 0
	case len(nums) == 1:
		rv.Total = nums[0]
	default:
		rv.Total = len(nums)
		rv.RepScheme = nums
	}
	return types.Fragment{
		Type: types.FragmentRounds, Origin: types.OriginParser, Source: src,
		Value: rv, Display: joinText(inner),
	}
}

func joinText(toks []lexer.Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Text
	}
	return strings.Join(parts, "")
}
