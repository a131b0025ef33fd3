package fsys

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

type memFile struct {
	data []byte
	mode fs.FileMode
}

// Mem is an in-memory filesystem keyed by path. Every access is
// traced with slog at debug level. Mem is safe for concurrent use;
// the zero value is ready to use.
type Mem struct {
	mu    sync.RWMutex
	files map[string]*memFile
}

// NewMem returns a Mem pre-populated with files.
func NewMem(files map[string]string) *Mem {
	m := &Mem{files: make(map[string]*memFile, len(files))}

	for p, content := range files {
		m.files[p] = &memFile{data: []byte(content), mode: newFileMode}
	}

	return m
}

// Open returns a reader over a snapshot of the file content.
func (m *Mem) Open(path string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slog.Debug("memfs open", "path", path)

	f, ok := m.files[path]
	if !ok {
		slog.Debug("memfs open missing file", "path", path)

		return nil, fmt.Errorf("opening %s: %w", path, fs.ErrNotExist)
	}

	return io.NopCloser(bytes.NewReader(bytes.Clone(f.data))), nil
}

// Create truncates (or creates) path and returns a writer whose
// content is stored when closed.
func (m *Mem) Create(path string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files == nil {
		m.files = make(map[string]*memFile)
	}

	slog.Debug("memfs create", "path", path)

	mode := newFileMode

	if old, ok := m.files[path]; ok {
		slog.Debug(
			"memfs create overwrites file",
			"path", path,
			"previous_bytes", len(old.data),
		)

		mode = old.mode
	}

	m.files[path] = &memFile{mode: mode}

	return &memWriter{fs: m, path: path}, nil
}

// Chmod sets the recorded mode of path.
func (m *Mem) Chmod(path string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[path]
	if !ok {
		return fmt.Errorf(
			"changing mode of %s: %w", path, fs.ErrNotExist,
		)
	}

	f.mode = mode

	return nil
}

// Mode returns the recorded mode of path.
func (m *Mem) Mode(path string) (fs.FileMode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[path]
	if !ok {
		return 0, false
	}

	return f.mode, true
}

// Paths returns every stored path in sorted order.
func (m *Mem) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.files))
}

// Content returns the content of path as a string.
func (m *Mem) Content(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[path]
	if !ok {
		return "", false
	}

	return string(f.data), true
}

func (m *Mem) store(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[path]
	if !ok {
		f = &memFile{mode: newFileMode}
		m.files[path] = f
	}

	if len(f.data) > 0 {
		slog.Debug(
			"memfs write overwrites file",
			"path", path,
			"previous_bytes", len(f.data),
		)
	}

	f.data = data
}

type memWriter struct {
	fs     *Mem
	path   string
	buf    bytes.Buffer
	closed bool
}

func (mw *memWriter) Write(p []byte) (int, error) {
	if mw.closed {
		return 0, fmt.Errorf("writing %s: %w", mw.path, fs.ErrClosed)
	}

	return mw.buf.Write(p)
}

func (mw *memWriter) Close() error {
	if mw.closed {
		return nil
	}

	mw.closed = true
	mw.fs.store(mw.path, bytes.Clone(mw.buf.Bytes()))

	return nil
}
