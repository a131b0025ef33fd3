package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/byte4ever/latemplate/fsys"
	"github.com/byte4ever/latemplate/templating"
)

func symbolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "symbols",
		Usage: "list the variables a template references, once each",
		Flags: slices.Concat([]cli.Flag{
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "template file (stdin if empty)",
			},
		}, parserFlags()),
		Action: symbolsAction,
	}
}

func symbolsAction(_ context.Context, cmd *cli.Command) error {
	const errCtx = "symbols"

	parser, err := parserFrom(cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var in io.Reader = cmd.Root().Reader

	if pa := cmd.String("template"); pa != "" {
		fi, err := fsys.OS{}.Open(pa)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		defer fi.Close() //nolint:errcheck // read-only

		in = fi
	}

	tpl, err := parser.Parse(in)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	out := cmd.Root().Writer

	for _, name := range tpl.Symbols().Unique() {
		if _, err := fmt.Fprintln(out, name); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return nil
}
