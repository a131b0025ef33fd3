package manager

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
)

// ErrInvalidSchema is returned when a manager schema is missing a
// required key or holds keys of the wrong shape.
var ErrInvalidSchema = errors.New("invalid manager schema")

const (
	defaultPattern = `\.t\.`
	defaultReplace = ".{target}."
)

// VarSet names a variable file and the metadata used to format the
// output path of every template generated with it.
type VarSet struct {
	Metadata map[string]string `json:"metadata"`
	Var      string            `json:"var"`
}

// ReplaceRegex turns a template path into an output path. Replace
// is formatted with the var set metadata ({key} placeholders) before
// every match of Pattern is replaced with it.
type ReplaceRegex struct {
	Pattern string `json:"pattern"`
	Replace string `json:"replace"`
}

// DefaultReplaceRegex maps "name.t.ext" to "name.<target>.ext".
func DefaultReplaceRegex() ReplaceRegex {
	return ReplaceRegex{
		Pattern: defaultPattern,
		Replace: defaultReplace,
	}
}

// Schema is the manager file: which variable files and templates to
// cross, and how outputs are named.
type Schema struct {
	Vars         []VarSet      `json:"vars"`
	Templates    []string      `json:"templates"`
	ReplaceRegex *ReplaceRegex `json:"replace_regex"`
	SkipIfError  *bool         `json:"skip_if_error"`
	Parallelism  int           `json:"parallelism"`
}

// SkipErrors reports whether unreadable inputs are skipped instead of
// failing the run. Defaults to true.
func (s Schema) SkipErrors() bool {
	if s.SkipIfError == nil {
		return true
	}

	return *s.SkipIfError
}

// Replace returns the configured replacement or the default one.
func (s Schema) Replace() ReplaceRegex {
	if s.ReplaceRegex == nil {
		return DefaultReplaceRegex()
	}

	return *s.ReplaceRegex
}

// LoadSchema decodes a manager schema written in YAML or JSON.
// Unknown keys are rejected; "vars" and "templates" are required.
func LoadSchema(r io.Reader) (Schema, error) {
	const errCtx = "loading manager schema"

	raw, err := io.ReadAll(r)
	if err != nil {
		return Schema{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var doc map[string]any

	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Schema{}, fmt.Errorf(
			"%s: decoding yaml: %w",
			errCtx, err,
		)
	}

	for _, key := range []string{"vars", "templates"} {
		if _, ok := doc[key]; !ok {
			return Schema{}, fmt.Errorf(
				"%s: missing key %q: %w",
				errCtx, key, ErrInvalidSchema,
			)
		}
	}

	var schema Schema

	if err := decodeSchema(doc, &schema); err != nil {
		return Schema{}, fmt.Errorf(
			"%s: %w: %w",
			errCtx, ErrInvalidSchema, err,
		)
	}

	return schema, nil
}

func decodeSchema(doc map[string]any, out *Schema) error {
	conf := &mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "json",
	}

	decoder, err := mapstructure.NewDecoder(conf)
	if err != nil {
		return err
	}

	return decoder.Decode(doc)
}
