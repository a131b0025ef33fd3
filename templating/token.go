package templating

import (
	"slices"
	"strings"
)

// Kind tells literal tokens from variable references.
type Kind uint8

const (
	// Literal tokens carry text copied verbatim to the output.
	Literal Kind = iota
	// VariableRef tokens carry an index into the template Symbols.
	VariableRef
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case VariableRef:
		return "variable"
	default:
		return "unknown"
	}
}

// Token is one element of a parsed template. Text is set for
// Literal tokens, Index for VariableRef tokens.
type Token struct {
	Kind  Kind
	Text  string
	Index int
}

// LiteralToken returns a Literal token holding text.
func LiteralToken(text string) Token {
	return Token{Kind: Literal, Text: text}
}

// RefToken returns a VariableRef token pointing at symbol idx.
func RefToken(idx int) Token {
	return Token{Kind: VariableRef, Index: idx}
}

// Symbols lists the variable names referenced by a template in
// reference order. A name referenced twice appears twice.
type Symbols []string

// Unique returns the names in first-reference order without
// duplicates.
func (s Symbols) Unique() []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))

	for _, name := range s {
		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		out = append(out, name)
	}

	return out
}

// Template is a parsed token sequence together with the symbols its
// references point into. It is never modified after construction.
type Template struct {
	tokens  []Token
	symbols Symbols
}

// NewTemplate builds a template from an explicit token list. The
// inputs are copied. Reference indices are not checked here; Apply
// reports out-of-range references as substitution errors.
func NewTemplate(tokens []Token, symbols Symbols) *Template {
	return &Template{
		tokens:  slices.Clone(tokens),
		symbols: slices.Clone(symbols),
	}
}

// Tokens returns a copy of the token sequence.
func (t *Template) Tokens() []Token {
	return slices.Clone(t.tokens)
}

// Symbols returns a copy of the symbol table.
func (t *Template) Symbols() Symbols {
	return slices.Clone(t.symbols)
}

// String renders the template back to source form using
// DefaultSymbol and DefaultEscape. Symbols in literal text are
// escaped. References with an out-of-range index render as an
// empty name.
func (t *Template) String() string {
	var sb strings.Builder

	for _, tok := range t.tokens {
		if tok.Kind == Literal {
			sb.WriteString(
				strings.ReplaceAll(
					tok.Text,
					string(DefaultSymbol),
					string([]byte{DefaultEscape, DefaultSymbol}),
				),
			)

			continue
		}

		name, _ := t.symbol(tok.Index)

		sb.WriteByte(DefaultSymbol)
		sb.WriteByte(openDelim)
		sb.WriteString(name)
		sb.WriteByte(closeDelim)
	}

	return sb.String()
}

// symbol resolves a reference index.
func (t *Template) symbol(idx int) (string, bool) {
	if idx < 0 || idx >= len(t.symbols) {
		return "", false
	}

	return t.symbols[idx], true
}
