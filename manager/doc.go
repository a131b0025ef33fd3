// Package manager drives batch generation from a manager schema:
// every variable set is combined with every template, the output path
// is derived from the template path with a metadata-formatted regex
// replacement, and the rendered text is written only when it differs
// from what is already on disk. Pairs are processed by a bounded
// worker pool.
package manager
