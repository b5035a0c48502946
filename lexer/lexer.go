// Package lexer tokenizes workout script text into lines of typed tokens.
// Indentation is preserved per line (as a column count); the parser, not
// the lexer, treats it as significant.
package lexer

import (
	"regexp"
	"strings"

	"github.com/wod-wiki/wodwiki/types"
)

// Kind discriminates a token class, matched longest-first in the order
// given below.
type Kind string

const (
	KindTimer       Kind = "timer"
	KindResistance  Kind = "resistance"
	KindDistance    Kind = "distance"
	KindGroupOpen   Kind = "group_open"
	KindGroupClose  Kind = "group_close"
	KindActionOpen  Kind = "action_open"
	KindActionClose Kind = "action_close"
	KindMinus       Kind = "minus"
	KindPlus        Kind = "plus"
	KindNumber      Kind = "number"
	KindIdentifier  Kind = "identifier"
)

// Token is one lexed unit with its matched text and decoded value.
type Token struct {
	Kind   Kind
	Text   string
	Value  any
	Column int
}

// Line is one lexed source line: its leading-indent column count and the
// tokens found after it.
type Line struct {
	Number int
	Indent int
	Tokens []Token
}

// pattern pairs a token kind with the regexp that recognizes it at the
// start of the remaining input. Order is the match precedence: earlier
// patterns win ties against later, more general ones (Number would
// otherwise swallow the leading digits of a Timer or Resistance token).
type pattern struct {
	kind Kind
	re   *regexp.Regexp
}

var patterns = []pattern{
	{KindTimer, regexp.MustCompile(`^(?:(\d+:){1,3}\d+|:\d+)`)},
	{KindResistance, regexp.MustCompile(`^\d+\s*(?:lb|kg|#)`)},
	{KindDistance, regexp.MustCompile(`^\d+\s*(?:km|mi|ft|yd|m)`)},
	{KindGroupOpen, regexp.MustCompile(`^\(`)},
	{KindGroupClose, regexp.MustCompile(`^\)`)},
	{KindActionOpen, regexp.MustCompile(`^\[:`)},
	{KindActionClose, regexp.MustCompile(`^\]`)},
	{KindMinus, regexp.MustCompile(`^-`)},
	{KindPlus, regexp.MustCompile(`^\+`)},
	{KindNumber, regexp.MustCompile(`^\d+`)},
	{KindIdentifier, regexp.MustCompile(`^\S+`)},
}

// Lex tokenizes a full script's text, one Line per non-blank source line.
// Lexer failures are non-fatal: an unrecognizable run of input is recorded
// as a ParseError and the scanner resumes at the next whitespace boundary.
func Lex(text string) ([]Line, []types.ParseError) {
	var lines []Line
	var errs []types.ParseError

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		if strings.TrimSpace(raw) == "" {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
		rest := raw[indent:]

		line := Line{Number: lineNo, Indent: indent}
		col := indent
		for rest != "" {
			rest = strings.TrimLeft(rest, " \t")
			if rest == "" {
				break
			}
			tok, consumed, ok := lexOne(rest)
			if !ok {
				errs = append(errs, types.ParseError{
					Message: "unrecognized token",
					Source:  types.SourcePosition{Line: lineNo, Column: col},
					Snippet: rest,
				})
				// resume at next whitespace boundary
				if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
					col += idx
					rest = rest[idx:]
					continue
				}
				break
			}
			tok.Column = col
			line.Tokens = append(line.Tokens, tok)
			col += consumed
			rest = rest[consumed:]
		}
		lines = append(lines, line)
	}
	return lines, errs
}

// lexOne matches the single longest-precedence token at the start of rest.
func lexOne(rest string) (Token, int, bool) {
	for _, p := range patterns {
		match := p.re.FindString(rest)
		if match == "" {
			continue
		}
		return Token{Kind: p.kind, Text: match, Value: decodeValue(p.kind, match)}, len(match), true
	}
	return Token{}, 0, false
}

var (
	resistanceUnit = regexp.MustCompile(`(lb|kg|#)$`)
	distanceUnit   = regexp.MustCompile(`(km|mi|ft|yd|m)$`)
	digitsOnly     = regexp.MustCompile(`\d+`)
)

func decodeValue(kind Kind, text string) any {
	switch kind {
	case KindTimer:
		return decodeTimer(text)
	case KindResistance:
		amount := parseLeadingInt(text)
		unit := resistanceUnit.FindString(text)
		return types.ResistanceValue{Amount: float64(amount), Unit: unit}
	case KindDistance:
		amount := parseLeadingInt(text)
		unit := distanceUnit.FindString(text)
		return types.DistanceValue{Amount: float64(amount), Unit: unit}
	case KindNumber:
		return parseLeadingInt(text)
	default:
		return text
	}
}

// decodeTimer decodes ":SS" or "(D:)(H:)(M:)S" right-aligned duration text
// into milliseconds.
func decodeTimer(text string) int64 {
	text = strings.TrimPrefix(text, ":")
	parts := strings.Split(text, ":")
	var seconds int64
	multipliers := []int64{1, 60, 3600, 86400} // seconds, minutes, hours, days, right-aligned
	for i := 0; i < len(parts); i++ {
		part := parts[len(parts)-1-i]
		n := parseLeadingInt(part)
		if i < len(multipliers) {
			seconds += int64(n) * multipliers[i]
		}
	}
	return seconds * 1000
}

func parseLeadingInt(s string) int {
	match := digitsOnly.FindString(s)
	n := 0
	for _, r := range match {
		n = n*10 + int(r-'0')
	}
	return n
}
