package digester_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/latemplate/digester"
	"github.com/byte4ever/latemplate/fsys"
)

func TestSum_empty_input(t *testing.T) {
	t.Parallel()

	// blake3("")
	assert.Equal(
		t,
		"af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		digester.Sum(nil),
	)
}

func TestSum_distinguishes_content(t *testing.T) {
	t.Parallel()

	a := digester.Sum([]byte("hello"))
	b := digester.Sum([]byte("hello!"))

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, digester.Sum([]byte("hello")))
}

func TestFileDigest_matches_Sum(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pa := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(pa, []byte("content"), 0o600))

	got, err := digester.FileDigest(fsys.OS{}, pa)

	require.NoError(t, err)
	assert.Equal(t, digester.Sum([]byte("content")), got)
}

func TestFileDigest_nonexistent_file(t *testing.T) {
	t.Parallel()

	got, err := digester.FileDigest(fsys.OS{}, "/nonexistent")

	assert.Empty(t, got)
	assert.NoError(t, err)
}

func TestUnchanged(t *testing.T) {
	t.Parallel()

	mem := fsys.NewMem(map[string]string{"out.txt": "rendered"})

	tests := []struct {
		name    string
		path    string
		content string
		want    bool
	}{
		{
			name:    "same content",
			path:    "out.txt",
			content: "rendered",
			want:    true,
		},
		{
			name:    "different content",
			path:    "out.txt",
			content: "rendered again",
			want:    false,
		},
		{
			name:    "missing file",
			path:    "absent.txt",
			content: "rendered",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := digester.Unchanged(
				mem, tt.path, []byte(tt.content),
			)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnchanged_empty_file_on_disk(t *testing.T) {
	t.Parallel()

	pa := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(pa, nil, 0o600))

	got, err := digester.Unchanged(fsys.OS{}, pa, nil)

	require.NoError(t, err)
	assert.True(t, got)
}
