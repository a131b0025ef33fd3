package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/byte4ever/latemplate/fsys"
	"github.com/byte4ever/latemplate/manager"
	"github.com/byte4ever/latemplate/pathinterp"
	"github.com/byte4ever/latemplate/varfile"
)

var errManagerArg = errors.New("expected exactly one MANAGER file argument")

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "generate every var set x template pair of a manager file",
		ArgsUsage: "MANAGER",
		Flags: slices.Concat([]cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Value:   ".",
				Usage:   "directory relative schema paths resolve against",
				Sources: cli.EnvVars(envPrefix + "ROOT"),
			},
			&cli.StringSliceFlag{
				Name:  "remap",
				Usage: "name=prefix rewriting output paths starting with @name (repeatable)",
			},
			&cli.StringFlag{
				Name:    "output-root",
				Usage:   "directory relative output paths are placed under, after remapping",
				Sources: cli.EnvVars(envPrefix + "OUTPUT_ROOT"),
			},
			&cli.IntFlag{
				Name:    "parallelism",
				Aliases: []string{"j"},
				Usage:   "concurrent generation workers (schema value if 0)",
				Sources: cli.EnvVars(envPrefix + "PARALLELISM"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "report what would be written without writing",
			},
		}, parserFlags()),
		Action: generateAction,
	}
}

func generateAction(ctx context.Context, cmd *cli.Command) error {
	const errCtx = "generate"

	if cmd.Args().Len() != 1 {
		return fmt.Errorf("%s: %w", errCtx, errManagerArg)
	}

	parser, err := parserFrom(cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	schema, err := loadSchemaFile(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	paths, err := pathsFrom(cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg := manager.Config{
		Schema:      schema,
		FS:          fsys.Rooted{Root: cmd.String("root")},
		Paths:       paths,
		Parser:      parser,
		Parallelism: cmd.Int("parallelism"),
		DryRun:      cmd.Bool("dry-run"),
	}

	report, runErr := manager.Run(ctx, cfg)

	if err := printReport(cmd.Root().Writer, report, cfg.DryRun); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if runErr != nil {
		return fmt.Errorf("%s: %w", errCtx, runErr)
	}

	return nil
}

// pathsFrom builds the output path interpreter: remaps first, then
// the output root.
func pathsFrom(cmd *cli.Command) (*pathinterp.Interpreter, error) {
	paths := pathinterp.New()

	if remaps := cmd.StringSlice("remap"); len(remaps) > 0 {
		table, err := varfile.ParseAssignments(remaps)
		if err != nil {
			return nil, err
		}

		paths = paths.Then(pathinterp.Remap{Map: table})
	}

	if root := cmd.String("output-root"); root != "" {
		paths = paths.Then(pathinterp.SuffixRelative{Root: root})
	}

	return paths, nil
}

func loadSchemaFile(path string) (result manager.Schema, retErr error) {
	errCtx := "reading manager file " + path

	fi, err := fsys.OS{}.Open(path)
	if err != nil {
		return manager.Schema{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	schema, err := manager.LoadSchema(fi)
	if err != nil {
		return manager.Schema{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return schema, nil
}

var (
	writtenColor   = color.New(color.FgGreen)
	unchangedColor = color.New(color.Faint)
	skippedColor   = color.New(color.FgYellow)
	failedColor    = color.New(color.FgRed, color.Bold)
)

// printReport writes one line per output, then a summary line.
func printReport(w io.Writer, report manager.Report, dryRun bool) error {
	writtenLabel := "written"
	if dryRun {
		writtenLabel = "would write"
	}

	var err error

	line := func(c *color.Color, label, text string) {
		if err != nil {
			return
		}

		_, err = fmt.Fprintf(w, "%s %s\n", c.Sprintf("%-11s", label), text)
	}

	for _, pa := range report.Written {
		line(writtenColor, writtenLabel, pa)
	}

	for _, pa := range report.Unchanged {
		line(unchangedColor, "unchanged", pa)
	}

	for _, pa := range report.Skipped {
		line(skippedColor, "skipped", pa)
	}

	failed := make([]string, 0, len(report.Failed))
	for label := range report.Failed {
		failed = append(failed, label)
	}

	slices.Sort(failed)

	for _, label := range failed {
		line(failedColor, "failed", label+": "+report.Failed[label].Error())
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(
		w,
		"%d %s, %d unchanged, %d skipped, %d failed\n",
		len(report.Written), writtenLabel,
		len(report.Unchanged),
		len(report.Skipped),
		len(report.Failed),
	)

	return err
}
