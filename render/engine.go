package render

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/latemplate/fsys"
	"github.com/byte4ever/latemplate/templating"
	"github.com/byte4ever/latemplate/varfile"
)

const executableMode fs.FileMode = 0o755

// Engine expands templates using stamp info files, variable files
// and explicit variables.
type Engine struct {
	// Parser selects the reference symbol and escape character.
	Parser templating.Parser

	// StampInfoFiles are "KEY VALUE" status files forming the base
	// variable source.
	StampInfoFiles []string

	// VarFiles are JSON, YAML or KV files merged over the stamps in
	// order.
	VarFiles []string

	// Imports are NAME=path entries. Each file is expanded with the
	// variables known so far and exposed as "imports.NAME".
	Imports []string

	// FS reads inputs and writes the output file. Defaults to the
	// host filesystem.
	FS fsys.FS

	// Stdin is read when no template path is given. Defaults to
	// os.Stdin.
	Stdin io.Reader

	// Stdout receives the result when no output path is given.
	// Defaults to os.Stdout.
	Stdout io.Writer
}

// Expand reads a template, substitutes variables, and writes the
// result. If tplPath is empty the template is read from Stdin; if
// outPath is empty the result goes to Stdout. If executable is true
// the output file receives mode 0755.
//
// Variable sources, lowest precedence first:
//  1. Stamp files.
//  2. Variable files, in order.
//  3. Each variable NAME=VALUE, with VALUE expanded against stamps
//     using single-brace tags, stored as both "NAME" and
//     "variables.NAME".
//  4. Each import NAME=path, generated against the sources above,
//     then expanded against stamps, stored as "imports.NAME".
//
// Any missing or non-string variable fails the expansion and nothing
// is written.
func (en *Engine) Expand(
	tplPath string,
	outPath string,
	vars []string,
	executable bool,
) error {
	const errCtx = "expanding template"

	stamps, err := en.loadStamps()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	source, err := en.loadVarFiles(templating.StringMap(stamps))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	source, err = resolveVars(vars, stamps, source)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	source, err = en.resolveImports(stamps, source)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	tplContent, err := en.readTemplate(tplPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	text, err := en.Parser.GenerateTemplate(
		strings.NewReader(tplContent), source,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := en.writeOutput(outPath, text, executable); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (en *Engine) fs() fsys.FS {
	if en.FS == nil {
		return fsys.OS{}
	}

	return en.FS
}

// loadStamps reads all stamp info files and merges them into a
// single map. Later files override earlier ones.
func (en *Engine) loadStamps() (map[string]string, error) {
	const errCtx = "loading stamps"

	stamps := make(map[string]string)

	for _, sf := range en.StampInfoFiles {
		content, err := fsys.ReadFile(en.fs(), sf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		sets, err := varfile.Load(bytes.NewReader(content), varfile.KV)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", errCtx, sf, err)
		}

		for _, set := range sets {
			for _, name := range set.Names() {
				value, err := set.Lookup(name)
				if err != nil {
					return nil, fmt.Errorf("%s: %s: %w", errCtx, sf, err)
				}

				stamps[name] = value
			}
		}
	}

	return stamps, nil
}

// loadVarFiles merges every document of every variable file over
// base.
func (en *Engine) loadVarFiles(
	base templating.Variables,
) (templating.Variables, error) {
	const errCtx = "loading variable files"

	source := base

	for _, vf := range en.VarFiles {
		sets, err := varfile.LoadFile(en.fs(), vf)
		if err != nil {
			return templating.Variables{}, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		for _, set := range sets {
			source = templating.Merge(source, set)
		}
	}

	return source, nil
}

// resolveVars processes --variable flags. Each value is expanded
// against stamps using single-brace tags, then stored as both
// "NAME" and "variables.NAME".
func resolveVars(
	vars []string,
	stamps map[string]string,
	source templating.Variables,
) (templating.Variables, error) {
	const errCtx = "resolving variables"

	assigned, err := varfile.ParseAssignments(vars)
	if err != nil {
		return templating.Variables{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	stampCtx := stampContext(stamps)
	overrides := make(map[string]string, 2*len(assigned))

	for name, value := range assigned {
		val := fasttemplate.ExecuteStringStd(value, "{", "}", stampCtx)

		overrides[name] = val
		overrides["variables."+name] = val
	}

	return templating.Merge(
		source, templating.StringMap(overrides),
	), nil
}

// resolveImports processes --imports flags. Each import file is
// generated against source, then expanded against stamps with
// single-brace tags, and stored as "imports.NAME".
func (en *Engine) resolveImports(
	stamps map[string]string,
	source templating.Variables,
) (templating.Variables, error) {
	const errCtx = "resolving imports"

	if len(en.Imports) == 0 {
		return source, nil
	}

	entries, err := varfile.ParseAssignments(en.Imports)
	if err != nil {
		return templating.Variables{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	stampCtx := stampContext(stamps)
	imported := make(map[string]string, len(entries))

	for name, path := range entries {
		content, err := fsys.ReadFile(en.fs(), path)
		if err != nil {
			return templating.Variables{}, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		val, err := en.Parser.GenerateTemplate(
			bytes.NewReader(content), source,
		)
		if err != nil {
			return templating.Variables{}, fmt.Errorf(
				"%s: %s: %w", errCtx, path, err,
			)
		}

		imported["imports."+name] = fasttemplate.ExecuteStringStd(
			val, "{", "}", stampCtx,
		)
	}

	return templating.Merge(
		source, templating.StringMap(imported),
	), nil
}

// readTemplate reads the template from a file path. If tplPath is
// empty it reads from Stdin.
func (en *Engine) readTemplate(tplPath string) (string, error) {
	const errCtx = "reading template"

	if tplPath != "" {
		content, err := fsys.ReadFile(en.fs(), tplPath)
		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		return string(content), nil
	}

	in := en.Stdin
	if in == nil {
		in = os.Stdin
	}

	content, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("%s: reading stdin: %w", errCtx, err)
	}

	return string(content), nil
}

// writeOutput commits text to outPath, or to Stdout when outPath is
// empty.
func (en *Engine) writeOutput(
	outPath string,
	text string,
	executable bool,
) error {
	const errCtx = "writing output"

	if outPath == "" {
		out := en.Stdout
		if out == nil {
			out = os.Stdout
		}

		if _, err := io.WriteString(out, text); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil
	}

	if err := fsys.WriteFile(en.fs(), outPath, []byte(text)); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !executable {
		return nil
	}

	ch, ok := en.fs().(fsys.Chmoder)
	if !ok {
		return fmt.Errorf(
			"%s: %s: %w",
			errCtx, outPath, fsys.ErrModeUnsupported,
		)
	}

	if err := ch.Chmod(outPath, executableMode); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func stampContext(stamps map[string]string) map[string]interface{} {
	ctx := make(map[string]interface{}, len(stamps))
	for key, val := range stamps {
		ctx[key] = val
	}

	return ctx
}
