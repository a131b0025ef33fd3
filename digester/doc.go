// Package digester computes BLAKE3 content digests and compares
// rendered output against what is already on disk, so unchanged
// files are not rewritten.
package digester
