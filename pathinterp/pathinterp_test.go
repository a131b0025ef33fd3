package pathinterp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/latemplate/pathinterp"
)

func someRemap() pathinterp.Remap {
	return pathinterp.Remap{Map: map[string]string{
		"hello":        "world",
		"new_phone":    "who_dis",
		"my_number_is": "123456-789",
	}}
}

func TestForward(t *testing.T) {
	t.Parallel()

	for _, p := range []string{
		"proper/relative/path",
		"/this/is/absolute",
		"./a.out",
	} {
		got, err := pathinterp.Forward{}.Output(p)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestAbsolute_paths_bypass_every_plugin(t *testing.T) {
	t.Parallel()

	const abs = "/home/ubuntu/hello.txt"

	plugins := []pathinterp.Plugin{
		pathinterp.Forward{},
		pathinterp.Remap{},
		someRemap(),
		pathinterp.SuffixRelative{},
		pathinterp.SuffixRelative{Root: "my/root/folder"},
		pathinterp.SuffixRelative{Root: "my/root/folder/"},
	}

	for _, p := range plugins {
		got, err := p.Output(abs)
		require.NoError(t, err)
		assert.Equal(t, abs, got)
	}

	// Every ordering of the chain keeps the path too.
	got, err := pathinterp.New(plugins...).Output(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	reversed := make([]pathinterp.Plugin, 0, len(plugins))
	for i := len(plugins) - 1; i >= 0; i-- {
		reversed = append(reversed, plugins[i])
	}

	got, err = pathinterp.New(reversed...).Output(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)
}

func TestRemap(t *testing.T) {
	t.Parallel()

	interp := pathinterp.New(someRemap())

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no remap collapses separators",
			in:   "relative//no/remap",
			want: "relative/no/remap",
		},
		{
			name: "prefix with suffix",
			in:   "@hello/src/pages/index.tsx",
			want: "world/src/pages/index.tsx",
		},
		{
			name: "prefix only",
			in:   "@new_phone",
			want: "who_dis",
		},
		{
			name: "spaces and dashes",
			in:   "some dir/file-name.t.txt",
			want: "some dir/file-name.t.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := interp.Output(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemap_errors(t *testing.T) {
	t.Parallel()

	interp := pathinterp.New(someRemap())

	tests := []struct {
		in   string
		want error
	}{
		{
			in:   "/should/use/suffix/plugin/after/remap/@my_number_is",
			want: pathinterp.ErrNotRemappable,
		},
		{
			in:   "@err/on/undefined/ref",
			want: pathinterp.ErrUnknownRemap,
		},
		{
			in:   "@err_on_singleton_path",
			want: pathinterp.ErrUnknownRemap,
		},
	}

	for _, tt := range tests {
		_, err := interp.Output(tt.in)
		require.Error(t, err, tt.in)
		assert.ErrorIs(t, err, tt.want, tt.in)
		assert.Contains(t, err.Error(), "interpreting path")
	}
}

func TestRemap_then_reroot(t *testing.T) {
	t.Parallel()

	base := pathinterp.New(someRemap())
	abs := base.Then(pathinterp.SuffixRelative{Root: "/absolute/path/"})
	rel := base.Then(pathinterp.SuffixRelative{Root: "relative/path"})

	cases := []struct {
		interp *pathinterp.Interpreter
		in     string
		want   string
	}{
		{abs, "no_remap", "/absolute/path/no_remap"},
		{rel, "no_remap", "relative/path/no_remap"},
		{abs, "@new_phone", "/absolute/path/who_dis"},
		{rel, "@my_number_is", "relative/path/123456-789"},
	}

	for _, tc := range cases {
		got, err := tc.interp.Output(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := abs.Output("remap/error/@hello")
	require.ErrorIs(t, err, pathinterp.ErrNotRemappable)

	_, err = rel.Output("@unprovided/remap")
	require.ErrorIs(t, err, pathinterp.ErrUnknownRemap)

	// Then does not alter the receiver.
	got, err := base.Output("no_remap")
	require.NoError(t, err)
	assert.Equal(t, "no_remap", got)
}

func TestInterpreter_zero_value_forwards(t *testing.T) {
	t.Parallel()

	var interp pathinterp.Interpreter

	got, err := interp.Output("a//b/./c")
	require.NoError(t, err)
	assert.Equal(t, "a/b/./c", got)
}
