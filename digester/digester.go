package digester

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/zeebo/blake3"

	"github.com/byte4ever/latemplate/fsys"
)

// Sum returns the hex BLAKE3-256 digest of content.
func Sum(content []byte) string {
	sum := blake3.Sum256(content)

	return hex.EncodeToString(sum[:])
}

// FileDigest computes the hex BLAKE3-256 digest of the file at path.
// Returns empty string with no error if the file does not exist.
func FileDigest(
	fileSys fsys.FS,
	path string,
) (result string, retErr error) {
	const errCtx = "calculating digest"

	fi, err := fileSys.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := blake3.New()

	if _, err := io.Copy(ha, fi); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// Unchanged reports whether the file at path exists and holds
// exactly content.
func Unchanged(
	fileSys fsys.FS,
	path string,
	content []byte,
) (bool, error) {
	const errCtx = "verifying digest"

	stored, err := FileDigest(fileSys, path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if stored == "" {
		return false, nil
	}

	return stored == Sum(content), nil
}
