// Package pathinterp rewrites output paths through a chain of
// plugins: identity, "@name" prefix remapping and re-rooting of
// relative paths.
package pathinterp

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	// ErrNotRemappable is returned when a path does not have the
	// shape "[@name][/]rest" accepted by Remap.
	ErrNotRemappable = errors.New("path does not match remappable pattern")

	// ErrUnknownRemap is returned when "@name" has no entry in the
	// remap table.
	ErrUnknownRemap = errors.New("undefined path remap")
)

// Pattern: Chain of Responsibility -- each plugin receives the
// previous plugin's output.

// Plugin turns one path into another.
type Plugin interface {
	Output(p string) (string, error)
}

// Forward returns paths unchanged.
type Forward struct{}

// Output returns p.
func (Forward) Output(p string) (string, error) {
	return p, nil
}

var remapPattern = regexp.MustCompile(`^(@(\w+))?(/?[\w/._ -]*)$`)

// Remap replaces a leading "@name" with Map[name]. Paths without the
// prefix pass through when they contain only word characters,
// slashes, dots, spaces, underscores and dashes.
type Remap struct {
	Map map[string]string
}

// Output rewrites the "@name" prefix of p.
func (r Remap) Output(p string) (string, error) {
	const errCtx = "remapping path"

	m := remapPattern.FindStringSubmatch(p)
	if m == nil {
		return "", fmt.Errorf("%s: %q: %w", errCtx, p, ErrNotRemappable)
	}

	name, suffix := m[2], m[3]
	if m[1] == "" {
		return suffix, nil
	}

	prefix, ok := r.Map[name]
	if !ok {
		return "", fmt.Errorf("%s: %q: %w", errCtx, name, ErrUnknownRemap)
	}

	return prefix + suffix, nil
}

// SuffixRelative places relative paths under Root. Absolute paths
// are returned as is.
type SuffixRelative struct {
	Root string
}

// Output prefixes p with Root unless p is absolute.
func (s SuffixRelative) Output(p string) (string, error) {
	if path.IsAbs(p) || s.Root == "" {
		return p, nil
	}

	return s.Root + "/" + p, nil
}

// Interpreter folds its plugins over a path, in order, and collapses
// repeated separators in the result. The zero value forwards paths.
type Interpreter struct {
	plugins []Plugin
}

// New returns an interpreter running plugins in order.
func New(plugins ...Plugin) *Interpreter {
	return &Interpreter{plugins: plugins}
}

// Then returns a copy of the interpreter with p appended.
func (in *Interpreter) Then(p Plugin) *Interpreter {
	plugins := make([]Plugin, 0, len(in.plugins)+1)
	plugins = append(plugins, in.plugins...)

	return &Interpreter{plugins: append(plugins, p)}
}

// Output runs p through every plugin. The first failing plugin
// stops the chain.
func (in *Interpreter) Output(p string) (string, error) {
	const errCtx = "interpreting path"

	out := p

	for _, plugin := range in.plugins {
		next, err := plugin.Output(out)
		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		out = next
	}

	return collapseSlashes(out), nil
}

func collapseSlashes(p string) string {
	if !strings.Contains(p, "//") {
		return p
	}

	var sb strings.Builder

	sb.Grow(len(p))

	prev := byte(0)

	for i := range len(p) {
		if p[i] == '/' && prev == '/' {
			continue
		}

		prev = p[i]
		sb.WriteByte(p[i])
	}

	return sb.String()
}
