// Package fsys is the file access layer used by the template drivers.
// FS opens template and variable files for reading and creates output
// files. OS writes through the real filesystem, committing outputs
// atomically on Close; Rooted resolves relative paths against a root
// directory; Mem keeps everything in memory for tests and dry runs.
package fsys
