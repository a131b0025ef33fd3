// Package templating parses "${name}" placeholder templates and
// substitutes them from a variable source.
//
// Parsing is a single left-to-right pass that produces an immutable
// Template: literal text interleaved with references into the
// template's Symbols table. A symbol character preceded by the escape
// character ("\$") is kept as a literal. Braces are mandatory: a "$"
// that is not followed by "{" is a parse error.
//
// Generation is a two-phase pipeline. Validate reports every
// referenced variable the source does not define, in one
// MissingDefinitionError. Apply then folds the token stream into the
// output; a reference that still cannot be substituted (for example a
// document value that is not a string) is skipped and recorded, and
// the caller receives the best-effort text together with a
// PartialError. GenerateTemplate parses and generates in one call and
// treats any partial result as a failure.
//
// Templates, Symbols and Variables are read-only once constructed, so
// one parsed template can be generated concurrently against many
// variable sources.
package templating
