// Package render expands a single template from stamp files,
// variable files and NAME=VALUE overrides, and writes the result to
// a file or to standard output.
package render
