// Command latemplate renders ${name} templates. It expands a single
// template from stamp files, variable files and NAME=VALUE overrides
// (render), drives batch generation from a manager schema (generate)
// and lists the variables a template references (symbols).
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/byte4ever/latemplate/templating"
)

const envPrefix = "LATEMPLATE_"

func main() {
	if err := run(context.Background(), os.Args); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	return newApp(os.Stdin, os.Stdout, os.Stderr).Run(ctx, args)
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:                      "latemplate",
		Usage:                     "render ${name} templates",
		Reader:                    stdin,
		Writer:                    stdout,
		ErrWriter:                 stderr,
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level: debug, info, warn or error",
				Sources: cli.EnvVars(envPrefix + "LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "disable coloured output",
				Sources: cli.EnvVars(envPrefix + "NO_COLOR"),
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			renderCommand(),
			generateCommand(),
			symbolsCommand(),
		},
	}
}

// setupLogging installs a text slog handler on the error writer.
func setupLogging(
	ctx context.Context,
	cmd *cli.Command,
) (context.Context, error) {
	const errCtx = "configuring logging"

	var level slog.Level

	if err := level.UnmarshalText(
		[]byte(cmd.String("log-level")),
	); err != nil {
		return ctx, fmt.Errorf("%s: %w", errCtx, err)
	}

	if cmd.Bool("no-color") {
		color.NoColor = true
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		cmd.Root().ErrWriter,
		&slog.HandlerOptions{Level: level},
	)))

	return ctx, nil
}

// parserFlags configure the reference symbol and escape character.
func parserFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "symbol",
			Value:   string(templating.DefaultSymbol),
			Usage:   "single character introducing a variable reference",
			Sources: cli.EnvVars(envPrefix + "SYMBOL"),
		},
		&cli.StringFlag{
			Name:    "escape",
			Value:   string(templating.DefaultEscape),
			Usage:   "single character making the next symbol literal",
			Sources: cli.EnvVars(envPrefix + "ESCAPE"),
		},
	}
}

func parserFrom(cmd *cli.Command) (templating.Parser, error) {
	const errCtx = "configuring parser"

	sym, esc := cmd.String("symbol"), cmd.String("escape")

	if len(sym) != 1 || len(esc) != 1 {
		return templating.Parser{}, fmt.Errorf(
			"%s: symbol %q and escape %q must be single bytes",
			errCtx, sym, esc,
		)
	}

	if sym == esc {
		return templating.Parser{}, fmt.Errorf(
			"%s: symbol and escape must differ",
			errCtx,
		)
	}

	return templating.Parser{Symbol: sym[0], Escape: esc[0]}, nil
}
