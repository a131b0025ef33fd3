package templating

import (
	"fmt"
	"io"
	"strings"
)

// Validate checks that every variable referenced by t is defined in
// vars. All missing names are reported together in a
// *MissingDefinitionError. Definitions t never references are
// ignored.
func Validate(t *Template, vars Variables) error {
	var missing []string

	seen := make(map[string]struct{})

	for _, tok := range t.tokens {
		if tok.Kind != VariableRef {
			continue
		}

		// Bad indices are left for Apply to report.
		name, ok := t.symbol(tok.Index)
		if !ok || vars.Has(name) {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		missing = append(missing, name)
	}

	if len(missing) > 0 {
		return &MissingDefinitionError{Names: missing}
	}

	return nil
}

// Apply folds the tokens of t into the output text. A reference that
// cannot be substituted is skipped and recorded; folding continues
// with the next token. When anything was recorded Apply returns the
// partial text together with a *PartialError carrying the same text.
func Apply(t *Template, vars Variables) (string, error) {
	var (
		sb   strings.Builder
		errs []error
	)

	for pos, tok := range t.tokens {
		if tok.Kind == Literal {
			sb.WriteString(tok.Text)

			continue
		}

		name, ok := t.symbol(tok.Index)
		if !ok {
			errs = append(errs, &SubstitutionError{
				Position: pos,
				Index:    tok.Index,
				Err:      ErrIndexOutOfRange,
			})

			continue
		}

		val, err := vars.Lookup(name)
		if err != nil {
			errs = append(errs, &SubstitutionError{
				Position: pos,
				Index:    tok.Index,
				Name:     name,
				Err:      err,
			})

			continue
		}

		sb.WriteString(val)
	}

	out := sb.String()

	if len(errs) > 0 {
		return out, &PartialError{Text: out, Errs: errs}
	}

	return out, nil
}

// Generate validates t against vars and applies it. A validation
// failure returns an empty string; a partial apply returns the
// partial text along with its *PartialError.
func Generate(t *Template, vars Variables) (string, error) {
	if err := Validate(t, vars); err != nil {
		return "", err
	}

	return Apply(t, vars)
}

// GenerateTemplate parses r with the default characters and
// generates it against vars. Partial results are treated as
// failures: on any error the returned string is empty. Use Generate
// to get at partial text.
func GenerateTemplate(r io.Reader, vars Variables) (string, error) {
	return Parser{}.GenerateTemplate(r, vars)
}

// GenerateTemplate is the Parser-configured form of the package
// level GenerateTemplate.
func (p Parser) GenerateTemplate(
	r io.Reader,
	vars Variables,
) (string, error) {
	const errCtx = "generating template"

	t, err := p.Parse(r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := Generate(t, vars)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return out, nil
}
