package fsys

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// Pattern: Strategy -- swap where templates are read from and
// outputs written to without changing the drivers.

// FS opens files for reading and creates files for writing. Writers
// must be closed for the content to be committed.
type FS interface {
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
}

// ErrModeUnsupported is returned when a file mode is set on a
// filesystem that is not a Chmoder.
var ErrModeUnsupported = errors.New("filesystem cannot set file modes")

// Chmoder is implemented by filesystems that can change the mode of
// a committed file.
type Chmoder interface {
	Chmod(path string, mode fs.FileMode) error
}

// ReadFile reads the whole file at path from fsys.
func ReadFile(fsys FS, path string) (result []byte, retErr error) {
	const errCtx = "reading file"

	fi, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	data, err := io.ReadAll(fi)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return data, nil
}

// WriteFile creates path on fsys and writes data to it.
func WriteFile(fsys FS, path string, data []byte) error {
	const errCtx = "writing file"

	fo, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := fo.Write(data); err != nil {
		_ = fo.Close() //nolint:errcheck // write error takes precedence

		return fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	if err := fo.Close(); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return nil
}

const newFileMode fs.FileMode = 0o644

// OS is the host filesystem. Paths are used as given.
type OS struct{}

// Open opens path for reading.
func (OS) Open(path string) (io.ReadCloser, error) {
	fi, err := os.Open(path) //nolint:gosec // paths come from the manager schema or CLI
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return fi, nil
}

// Create returns a writer that buffers the content and atomically
// replaces path when closed. Missing parent directories are
// created. New files get mode 0644; replaced files keep theirs.
func (OS) Create(path string) (io.WriteCloser, error) {
	return &atomicWriter{path: path}, nil
}

// Chmod changes the mode of path.
func (OS) Chmod(path string, mode fs.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("changing mode of %s: %w", path, err)
	}

	return nil
}

type atomicWriter struct {
	path   string
	buf    bytes.Buffer
	closed bool
}

func (aw *atomicWriter) Write(p []byte) (int, error) {
	if aw.closed {
		return 0, fmt.Errorf("writing %s: %w", aw.path, fs.ErrClosed)
	}

	return aw.buf.Write(p)
}

func (aw *atomicWriter) Close() error {
	const errCtx = "committing file"

	if aw.closed {
		return nil
	}

	aw.closed = true

	if dir := filepath.Dir(aw.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // output dirs are meant to be shared
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	_, statErr := os.Stat(aw.path)
	created := errors.Is(statErr, fs.ErrNotExist)

	if err := atomic.WriteFile(aw.path, &aw.buf); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, aw.path, err)
	}

	// Replaced files keep their mode; new ones get the usual one.
	if created {
		if err := os.Chmod(aw.path, newFileMode); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return nil
}

// Rooted resolves relative paths against Root before delegating to
// Base (OS when nil). Absolute paths bypass Root.
type Rooted struct {
	Root string
	Base FS
}

func (r Rooted) base() FS {
	if r.Base == nil {
		return OS{}
	}

	return r.Base
}

// Path returns the path Rooted uses for p.
func (r Rooted) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(r.Root, p)
}

// Open opens p relative to Root.
func (r Rooted) Open(p string) (io.ReadCloser, error) {
	return r.base().Open(r.Path(p))
}

// Create creates p relative to Root.
func (r Rooted) Create(p string) (io.WriteCloser, error) {
	return r.base().Create(r.Path(p))
}

// Chmod changes the mode of p relative to Root. It fails with
// ErrModeUnsupported when Base is not a Chmoder.
func (r Rooted) Chmod(p string, mode fs.FileMode) error {
	ch, ok := r.base().(Chmoder)
	if !ok {
		return fmt.Errorf(
			"changing mode of %s: %w", r.Path(p), ErrModeUnsupported,
		)
	}

	return ch.Chmod(r.Path(p), mode)
}
