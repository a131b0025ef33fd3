package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"sync"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/latemplate/digester"
	"github.com/byte4ever/latemplate/fsys"
	"github.com/byte4ever/latemplate/pathinterp"
	"github.com/byte4ever/latemplate/templating"
	"github.com/byte4ever/latemplate/varfile"
)

// ErrMissingMetadata is returned when the replacement refers to a
// key that neither the var set metadata nor its string variables
// define.
var ErrMissingMetadata = errors.New("missing metadata key")

// ErrOutputIsTemplate is returned when the output path of a pair is
// a template path, including when the replace pattern does not match
// the template path at all.
var ErrOutputIsTemplate = errors.New("output path is a template")

// ErrOutputCollision is returned when a pair computes an output path
// already claimed by an earlier pair.
var ErrOutputCollision = errors.New("output path already claimed")

// Config holds all settings for a generation run. Use a Config
// struct instead of many arguments.
type Config struct {
	// Schema lists the var sets and templates to cross.
	Schema Schema

	// FS reads var files and templates and receives outputs.
	// Defaults to the host filesystem.
	FS fsys.FS

	// Paths rewrites output paths after the regex replacement.
	// Defaults to an interpreter that only collapses separators.
	Paths *pathinterp.Interpreter

	// Parser parses templates; the zero value uses "$" and "\".
	Parser templating.Parser

	// Parallelism is the number of concurrent generation workers.
	// Overrides Schema.Parallelism when positive.
	Parallelism int

	// DryRun computes every output without writing it.
	DryRun bool
}

func (c Config) fs() fsys.FS {
	if c.FS == nil {
		return fsys.OS{}
	}

	return c.FS
}

func (c Config) paths() *pathinterp.Interpreter {
	if c.Paths == nil {
		return pathinterp.New()
	}

	return c.Paths
}

func (c Config) parallelism() int {
	switch {
	case c.Parallelism > 0:
		return c.Parallelism
	case c.Schema.Parallelism > 0:
		return c.Schema.Parallelism
	default:
		return 1
	}
}

// Report sums up a run. Path lists are sorted. Failed is keyed by
// pair label ("<var file> x <template>").
type Report struct {
	// Written lists output paths written, or that would be written
	// in a dry run.
	Written []string

	// Unchanged lists output paths whose content already matched.
	Unchanged []string

	// Skipped lists var files and templates that could not be
	// loaded and were left out of the run.
	Skipped []string

	// Failed maps each failed pair to its error.
	Failed map[string]error
}

// loadedVars is one variable set read from a var file. YAML var files
// may contribute several.
type loadedVars struct {
	label    string
	metadata map[string]string
	vars     templating.Variables
}

type loadedTemplate struct {
	path     string
	template *templating.Template
}

type job struct {
	set *loadedVars
	tpl *loadedTemplate
	out string
}

func (j job) label() string {
	return j.set.label + " x " + j.tpl.path
}

type outcome int

const (
	outcomeWritten outcome = iota
	outcomeUnchanged
)

// inputError records an input that could not be loaded.
type inputError struct {
	path string
	err  error
}

// Run generates every (var set, template) pair of cfg.Schema. The
// returned report is filled even when an error is returned. Pair
// failures do not stop other pairs; they are joined in the error.
func Run(ctx context.Context, cfg Config) (Report, error) {
	const errCtx = "running manager"

	report := Report{Failed: make(map[string]error)}

	rr := cfg.Schema.Replace()

	re, err := regexp.Compile(rr.Pattern)
	if err != nil {
		return report, fmt.Errorf(
			"%s: compiling replace pattern: %w",
			errCtx, err,
		)
	}

	fileSys := cfg.fs()

	sets, setErrs := loadVarSets(fileSys, cfg.Schema.Vars)
	tpls, tplErrs := parseTemplates(
		fileSys, cfg.Parser, cfg.Schema.Templates,
	)

	if inputErrs := slices.Concat(setErrs, tplErrs); len(inputErrs) > 0 {
		if !cfg.Schema.SkipErrors() {
			errs := make([]error, 0, len(inputErrs))
			for _, ie := range inputErrs {
				errs = append(errs, ie.err)
			}

			return report, fmt.Errorf(
				"%s: %w", errCtx, errors.Join(errs...),
			)
		}

		for _, ie := range inputErrs {
			slog.Warn(
				"skipping input",
				"path", ie.path,
				"error", ie.err,
			)

			report.Skipped = append(report.Skipped, ie.path)
		}
	}

	jobs := make([]job, 0, len(sets)*len(tpls))

	for i := range sets {
		for j := range tpls {
			jobs = append(jobs, job{set: &sets[i], tpl: &tpls[j]})
		}
	}

	gen := generator{
		fs:      fileSys,
		paths:   cfg.paths(),
		re:      re,
		replace: rr.Replace,
		dryRun:  cfg.DryRun,
	}

	// Worker pool with bounded concurrency.
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	jobs, planErrs := gen.planOutputs(jobs, cfg.Schema.Templates)

	for _, pe := range planErrs {
		report.Failed[pe.label] = pe.err
		errs = append(errs, fmt.Errorf("%s: %w", pe.label, pe.err))
	}

	parallelism := cfg.parallelism()

	slog.Info(
		"generating",
		"var_sets", len(sets),
		"templates", len(tpls),
		"pairs", len(jobs),
		"parallelism", parallelism,
		"dry_run", cfg.DryRun,
	)

	sem := make(chan struct{}, parallelism)

	for _, jb := range jobs {
		// Check for context cancellation.
		if ctx.Err() != nil {
			mu.Lock()
			errs = append(errs, ctx.Err())
			mu.Unlock()

			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(jb job) {
			defer wg.Done()
			defer func() { <-sem }()

			out, res, genErr := gen.run(jb)

			mu.Lock()
			defer mu.Unlock()

			if genErr != nil {
				report.Failed[jb.label()] = genErr
				errs = append(errs, fmt.Errorf(
					"%s: %w", jb.label(), genErr,
				))

				return
			}

			switch res {
			case outcomeWritten:
				report.Written = append(report.Written, out)
			case outcomeUnchanged:
				report.Unchanged = append(report.Unchanged, out)
			}
		}(jb)
	}

	wg.Wait()

	slices.Sort(report.Written)
	slices.Sort(report.Unchanged)
	slices.Sort(report.Skipped)

	if len(errs) > 0 {
		return report, fmt.Errorf(
			"%s: %w", errCtx, errors.Join(errs...),
		)
	}

	return report, nil
}

func loadVarSets(
	fileSys fsys.FS,
	varSets []VarSet,
) ([]loadedVars, []inputError) {
	var (
		sets []loadedVars
		errs []inputError
	)

	for _, vs := range varSets {
		loaded, err := varfile.LoadFile(fileSys, vs.Var)
		if err != nil {
			errs = append(errs, inputError{path: vs.Var, err: err})

			continue
		}

		for idx, vars := range loaded {
			label := vs.Var
			if len(loaded) > 1 {
				label = fmt.Sprintf("%s#%d", vs.Var, idx)
			}

			sets = append(sets, loadedVars{
				label:    label,
				metadata: vs.Metadata,
				vars:     vars,
			})
		}
	}

	return sets, errs
}

func parseTemplates(
	fileSys fsys.FS,
	parser templating.Parser,
	paths []string,
) ([]loadedTemplate, []inputError) {
	var (
		tpls []loadedTemplate
		errs []inputError
	)

	for _, pa := range paths {
		tpl, err := parseTemplateFile(fileSys, parser, pa)
		if err != nil {
			errs = append(errs, inputError{path: pa, err: err})

			continue
		}

		tpls = append(tpls, loadedTemplate{path: pa, template: tpl})
	}

	return tpls, errs
}

func parseTemplateFile(
	fileSys fsys.FS,
	parser templating.Parser,
	path string,
) (result *templating.Template, retErr error) {
	errCtx := "loading template " + path

	fi, err := fileSys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	tpl, err := parser.Parse(fi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return tpl, nil
}

// generator renders one pair and commits it. It is shared by all
// workers and never modified.
type generator struct {
	fs      fsys.FS
	paths   *pathinterp.Interpreter
	re      *regexp.Regexp
	replace string
	dryRun  bool
}

func (g generator) run(jb job) (string, outcome, error) {
	out := jb.out

	text, err := templating.Generate(jb.tpl.template, jb.set.vars)
	if err != nil {
		return out, 0, fmt.Errorf("generating %s: %w", out, err)
	}

	content := []byte(text)

	unchanged, err := digester.Unchanged(g.fs, out, content)
	if err != nil {
		return out, 0, err
	}

	if unchanged {
		slog.Debug("output unchanged", "path", out)

		return out, outcomeUnchanged, nil
	}

	if g.dryRun {
		slog.Info("dry run, not writing", "path", out)

		return out, outcomeWritten, nil
	}

	if err := fsys.WriteFile(g.fs, out, content); err != nil {
		return out, 0, err
	}

	slog.Debug("output written", "path", out, "bytes", len(content))

	return out, outcomeWritten, nil
}

type planError struct {
	label string
	err   error
}

// planOutputs computes the output path of every job. Jobs writing
// over a template or over an output claimed by an earlier job are
// left out and reported.
func (g generator) planOutputs(
	jobs []job,
	templates []string,
) ([]job, []planError) {
	isTemplate := make(map[string]struct{}, len(templates))
	for _, pa := range templates {
		isTemplate[pa] = struct{}{}
	}

	claimed := make(map[string]string, len(jobs))
	planned := make([]job, 0, len(jobs))

	var errs []planError

	for _, jb := range jobs {
		out, err := g.outputPath(jb)
		if err != nil {
			errs = append(errs, planError{label: jb.label(), err: err})

			continue
		}

		if _, ok := isTemplate[out]; ok {
			errs = append(errs, planError{
				label: jb.label(),
				err:   fmt.Errorf("%s: %w", out, ErrOutputIsTemplate),
			})

			continue
		}

		if owner, ok := claimed[out]; ok {
			errs = append(errs, planError{
				label: jb.label(),
				err: fmt.Errorf(
					"%s: claimed by %s: %w",
					out, owner, ErrOutputCollision,
				),
			})

			continue
		}

		claimed[out] = jb.label()
		jb.out = out
		planned = append(planned, jb)
	}

	return planned, errs
}

// outputPath formats the replacement with the var set metadata and
// applies it to the template path.
func (g generator) outputPath(jb job) (string, error) {
	const errCtx = "computing output path"

	if !g.re.MatchString(jb.tpl.path) {
		return "", fmt.Errorf(
			"%s: pattern %q does not match %s: %w",
			errCtx, g.re.String(), jb.tpl.path, ErrOutputIsTemplate,
		)
	}

	replace, err := formatReplace(
		g.replace, jb.set.metadata, jb.set.vars,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := g.paths.Output(
		g.re.ReplaceAllString(jb.tpl.path, replace),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return out, nil
}

// formatReplace substitutes {key} placeholders with metadata
// values, falling back to the string variables of the set.
func formatReplace(
	replace string,
	metadata map[string]string,
	vars templating.Variables,
) (string, error) {
	return fasttemplate.ExecuteFuncStringWithErr(
		replace, "{", "}",
		func(w io.Writer, tag string) (int, error) {
			if value, ok := metadata[tag]; ok {
				return io.WriteString(w, value)
			}

			value, err := vars.Lookup(tag)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrMissingMetadata, tag)
			}

			return io.WriteString(w, value)
		},
	)
}
