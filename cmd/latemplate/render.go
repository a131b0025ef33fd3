package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/byte4ever/latemplate/render"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "expand one template",
		Flags: slices.Concat([]cli.Flag{
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "template file (stdin if empty)",
			},
			&cli.StringSliceFlag{
				Name:  "vars",
				Usage: "JSON, YAML or KEY VALUE variable file (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "stamp-info-file",
				Usage:   "workspace status file (repeatable)",
				Sources: cli.EnvVars(envPrefix + "STAMP_INFO_FILE"),
			},
			&cli.StringSliceFlag{
				Name:    "variable",
				Aliases: []string{"v"},
				Usage:   "NAME=VALUE override, VALUE may use {STAMP} (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "imports",
				Usage: "NAME=file exposed as imports.NAME (repeatable)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file (stdout if empty)",
			},
			&cli.BoolFlag{
				Name:  "executable",
				Usage: "give the output file mode 0755",
			},
		}, parserFlags()),
		Action: renderAction,
	}
}

func renderAction(_ context.Context, cmd *cli.Command) error {
	const errCtx = "render"

	parser, err := parserFrom(cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	en := render.Engine{
		Parser:         parser,
		StampInfoFiles: cmd.StringSlice("stamp-info-file"),
		VarFiles:       cmd.StringSlice("vars"),
		Imports:        cmd.StringSlice("imports"),
		Stdin:          cmd.Root().Reader,
		Stdout:         cmd.Root().Writer,
	}

	if err := en.Expand(
		cmd.String("template"),
		cmd.String("output"),
		cmd.StringSlice("variable"),
		cmd.Bool("executable"),
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
