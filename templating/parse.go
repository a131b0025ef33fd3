package templating

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSymbol introduces a variable reference.
	DefaultSymbol byte = '$'
	// DefaultEscape placed before the symbol makes it literal.
	DefaultEscape byte = '\\'

	openDelim  byte = '{'
	closeDelim byte = '}'
)

// Parser turns template text into a Template. The zero value uses
// DefaultSymbol and DefaultEscape. A Parser holds no state between
// calls and may be shared.
type Parser struct {
	Symbol byte
	Escape byte
}

// chars returns the configured symbol/escape bytes, falling back to
// the defaults.
func (p Parser) chars() (byte, byte) {
	sym := p.Symbol
	if sym == 0 {
		sym = DefaultSymbol
	}

	esc := p.Escape
	if esc == 0 {
		esc = DefaultEscape
	}

	return sym, esc
}

// Parse reads the whole of r and returns the parsed template. Errors
// describing malformed input match ErrParse; read failures are
// returned wrapped.
func (p Parser) Parse(r io.Reader) (*Template, error) {
	const errCtx = "parsing template"

	sym, esc := p.chars()

	sc := &scanner{
		rd:  bufio.NewReader(r),
		sym: sym,
		esc: esc,
	}

	if err := sc.run(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Template{
		tokens:  sc.tokens,
		symbols: sc.symbols,
	}, nil
}

// Parse parses r with the default symbol and escape characters.
func Parse(r io.Reader) (*Template, error) {
	return Parser{}.Parse(r)
}

// ParseString parses s with the default symbol and escape
// characters.
func ParseString(s string) (*Template, error) {
	return Parser{}.Parse(strings.NewReader(s))
}

// seek is the outcome of scanning up to the next symbol.
type seek uint8

const (
	endOfFile seek = iota
	escaped
	variableStart
)

// scanner holds the state of one Parse call.
type scanner struct {
	rd     *bufio.Reader
	sym    byte
	esc    byte
	offset int

	buf     []byte
	tokens  []Token
	symbols Symbols
}

func (sc *scanner) run() error {
	for {
		st, err := sc.next()
		if err != nil {
			return err
		}

		switch st {
		case escaped:
			continue

		case endOfFile:
			if len(sc.buf) == 0 {
				return nil
			}

			return sc.pushLiteral()

		case variableStart:
			// The literal before a reference is kept even when
			// empty so tokens alternate.
			if err := sc.pushLiteral(); err != nil {
				return err
			}

			sc.buf = sc.buf[:0]

			name, err := sc.variableName()
			if err != nil {
				return err
			}

			slog.Debug(
				"next token",
				"kind", VariableRef,
				"name", name,
			)

			sc.tokens = append(
				sc.tokens, RefToken(len(sc.symbols)),
			)
			sc.symbols = append(sc.symbols, name)
		}
	}
}

// next buffers input up to and including the next symbol byte and
// decides what that symbol means. The symbol itself is not kept in
// the buffer unless it was escaped.
func (sc *scanner) next() (seek, error) {
	chunk, err := sc.rd.ReadBytes(sc.sym)
	sc.offset += len(chunk)
	sc.buf = append(sc.buf, chunk...)

	if errors.Is(err, io.EOF) {
		return endOfFile, nil
	}

	if err != nil {
		return endOfFile, err
	}

	sc.buf = sc.buf[:len(sc.buf)-1]

	if n := len(sc.buf); n > 0 && sc.buf[n-1] == sc.esc {
		sc.buf[n-1] = sc.sym

		return escaped, nil
	}

	return variableStart, nil
}

// variableName consumes "{name}" following a symbol.
func (sc *scanner) variableName() (string, error) {
	open, err := sc.rd.ReadByte()
	if errors.Is(err, io.EOF) {
		return "", sc.fail(reasonUnterminated)
	}

	if err != nil {
		return "", err
	}

	sc.offset++

	if open != openDelim {
		return "", sc.fail(reasonUnencapsulated)
	}

	raw, err := sc.rd.ReadBytes(closeDelim)
	sc.offset += len(raw)

	if errors.Is(err, io.EOF) {
		return "", sc.fail(reasonUnterminated)
	}

	if err != nil {
		return "", err
	}

	raw = raw[:len(raw)-1]
	if !utf8.Valid(raw) {
		return "", sc.fail(reasonNameText)
	}

	return string(raw), nil
}

// pushLiteral appends the buffered bytes as a Literal token.
func (sc *scanner) pushLiteral() error {
	if !utf8.Valid(sc.buf) {
		return sc.fail(reasonLiteralText)
	}

	text := string(sc.buf)

	slog.Debug(
		"next token",
		"kind", Literal,
		"bytes", len(text),
	)

	sc.tokens = append(sc.tokens, LiteralToken(text))

	return nil
}

func (sc *scanner) fail(reason string) error {
	return &ParseError{Offset: sc.offset, Reason: reason}
}
