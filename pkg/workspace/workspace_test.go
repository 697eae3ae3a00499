package workspace_test

import (
	"context"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltls/pkg/workspace"
)

// testTree builds a small state file tree on a memory filesystem. Paths are
// kept relative so they read back identically through every afero wrapper.
func testTree(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"srv/salt/top.sls": "base:\n  '*':\n    - common\n",
		"srv/salt/common.sls": "common_pkgs:\n" +
			"  pkg.installed:\n" +
			"    - name: vim\n",
		"srv/salt/base/init.sls": "include:\n" +
			"  - base.packages\n",
		"srv/salt/base/packages.sls": "base_pkgs:\n" +
			"  pkg.installed:\n" +
			"    - name: curl\n",
	}
	for path, text := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(text), 0o644))
	}
	return fs
}

func TestWorkspace_OpenUpdateClose(t *testing.T) {
	ws := workspace.New(testTree(t))
	ctx := context.Background()

	doc, err := ws.Open(ctx, "file:///srv/salt/common.sls", "a:\n  b.c:\n")
	require.NoError(t, err)
	require.Len(t, doc.Tree.States, 1)

	// The committed document is keyed by path, scheme stripped.
	got, ok := ws.Document("/srv/salt/common.sls")
	require.True(t, ok)
	assert.Same(t, doc, got)

	updated, err := ws.Update(ctx, "file:///srv/salt/common.sls", "x:\n  y.z:\n")
	require.NoError(t, err)
	got, ok = ws.Document("file:///srv/salt/common.sls")
	require.True(t, ok)
	assert.Same(t, updated, got)
	assert.Equal(t, "x", got.Tree.States[0].Identifier)

	ws.Close("file:///srv/salt/common.sls")
	_, ok = ws.Document("/srv/salt/common.sls")
	assert.False(t, ok)
}

func TestWorkspace_CancelledParseCommitsNothing(t *testing.T) {
	ws := workspace.New(testTree(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ws.Open(ctx, "file:///srv/salt/common.sls", "a:\n  b.c:\n")
	require.Error(t, err)
	_, ok := ws.Document("/srv/salt/common.sls")
	assert.False(t, ok)
}

func TestWorkspace_Refresh(t *testing.T) {
	ws := workspace.New(testTree(t))

	require.NoError(t, ws.Refresh(context.Background(), "srv/salt"))

	for _, path := range []string{
		"srv/salt/top.sls",
		"srv/salt/common.sls",
		"srv/salt/base/init.sls",
		"srv/salt/base/packages.sls",
	} {
		_, ok := ws.Document(path)
		assert.True(t, ok, path)
	}
}

func TestFindTop(t *testing.T) {
	fs := testTree(t)

	tests := []struct {
		name string
		path string
		want string
		ok   bool
	}{
		{
			name: "from nested file",
			path: "srv/salt/base/packages.sls",
			want: "srv/salt",
			ok:   true,
		},
		{
			name: "from root directory",
			path: "srv/salt",
			want: "srv/salt",
			ok:   true,
		},
		{
			name: "outside the tree",
			path: "srv",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := workspace.FindTop(fs, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindRoot_FallsBackToDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "tmp/lone.sls", []byte("a:\n"), 0o644))

	assert.Equal(t, "tmp", workspace.FindRoot(fs, "tmp/lone.sls"))
}

func TestSlsIncludes(t *testing.T) {
	ws := workspace.New(testTree(t))

	names := ws.SlsIncludes("srv/salt/common.sls")
	sort.Strings(names)

	assert.Equal(t, []string{"base", "base.packages", "common", "top"}, names)
}

func TestIncludeFile(t *testing.T) {
	fs := testTree(t)

	tests := []struct {
		name  string
		value string
		want  string
		ok    bool
	}{
		{
			name:  "dotted name",
			value: "base.packages",
			want:  "srv/salt/base/packages.sls",
			ok:    true,
		},
		{
			name:  "directory collapses to init",
			value: "base",
			want:  "srv/salt/base/init.sls",
			ok:    true,
		},
		{
			name:  "plain file",
			value: "common",
			want:  "srv/salt/common.sls",
			ok:    true,
		},
		{
			name:  "missing",
			value: "nope.nothing",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := workspace.IncludeFile(fs, "srv/salt", tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindID(t *testing.T) {
	ws := workspace.New(testTree(t))
	require.NoError(t, ws.Refresh(context.Background(), "srv/salt"))

	t.Run("in the document itself", func(t *testing.T) {
		state, uri, ok := ws.FindID("common_pkgs", "srv/salt/common.sls")
		require.True(t, ok)
		assert.Equal(t, "common_pkgs", state.Identifier)
		assert.Equal(t, "srv/salt/common.sls", uri)
	})

	t.Run("through an include", func(t *testing.T) {
		state, uri, ok := ws.FindID("base_pkgs", "srv/salt/base/init.sls")
		require.True(t, ok)
		assert.Equal(t, "base_pkgs", state.Identifier)
		assert.Equal(t, "srv/salt/base/packages.sls", uri)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, _, ok := ws.FindID("nonexistent", "srv/salt/common.sls")
		assert.False(t, ok)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, _, ok := ws.FindID("common_pkgs", "srv/salt/missing.sls")
		assert.False(t, ok)
	})
}
