package collect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{
		Roots:      []string{"packages/core", "packages/memory", "packages/rag"},
		SourceDir:  "src",
		Extensions: []string{".ts", ".js", ".tsx"},
		Exclude:    []string{".test.", ".spec.", ".d.ts"},
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{
		"packages/core/src/index.ts",
		"packages/core/src/foo.test.ts",
		"packages/core/src/foo.spec.ts",
		"packages/core/src/types.d.ts",
		"packages/core/src/agent/agent.tsx",
		"packages/core/src/agent/README.md",
		"packages/core/lib/outside-src.ts",
		"packages/memory/src/memory.js",
		"packages/experimental/src/x.ts",
		"src/top-level.ts",
	} {
		writeFile(t, root, rel, "export const x = 1;\n")
	}
	return root
}

func relPaths(files []SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestCollect(t *testing.T) {
	root := newWorkspace(t)
	c := New(defaultOptions(), nil)

	files, err := c.Collect(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"packages/core/src/agent/agent.tsx",
		"packages/core/src/index.ts",
		"packages/memory/src/memory.js",
	}, relPaths(files))

	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.Path), "path %q should be absolute", f.Path)
		assert.FileExists(t, f.Path)
	}
}

func TestCollect_ExcludesTestSpecAndDeclarations(t *testing.T) {
	root := newWorkspace(t)
	files, err := New(defaultOptions(), nil).Collect(root)
	require.NoError(t, err)

	for _, f := range files {
		assert.NotContains(t, f.RelPath, ".test.")
		assert.NotContains(t, f.RelPath, ".spec.")
		assert.NotContains(t, f.RelPath, ".d.ts")
	}
}

func TestCollect_OnlyAllowedRootsUnderSrc(t *testing.T) {
	root := newWorkspace(t)
	files, err := New(defaultOptions(), nil).Collect(root)
	require.NoError(t, err)

	paths := relPaths(files)
	assert.NotContains(t, paths, "packages/experimental/src/x.ts")
	assert.NotContains(t, paths, "packages/core/lib/outside-src.ts")
	assert.NotContains(t, paths, "src/top-level.ts")
}

func TestCollect_Deterministic(t *testing.T) {
	root := newWorkspace(t)
	c := New(defaultOptions(), nil)

	first, err := c.Collect(root)
	require.NoError(t, err)
	second, err := c.Collect(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCollect_RootOrderPreserved(t *testing.T) {
	root := newWorkspace(t)
	opts := defaultOptions()
	opts.Roots = []string{"packages/memory", "packages/core"}

	files, err := New(opts, nil).Collect(root)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "packages/memory/src/memory.js", files[0].RelPath)
}

func TestCollect_OverlappingRootsNoDuplicates(t *testing.T) {
	root := newWorkspace(t)
	writeFile(t, root, "packages/core/src/src/inner.ts", "export {}\n")
	opts := defaultOptions()
	opts.Roots = []string{"packages/core", "packages/core/src"}

	files, err := New(opts, nil).Collect(root)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, f := range files {
		seen[f.RelPath]++
	}
	for path, n := range seen {
		assert.Equal(t, 1, n, "path %s listed %d times", path, n)
	}
}

func TestCollect_Limit(t *testing.T) {
	root := newWorkspace(t)
	opts := defaultOptions()
	opts.Limit = 2

	files, err := New(opts, nil).Collect(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"packages/core/src/agent/agent.tsx",
		"packages/core/src/index.ts",
	}, relPaths(files))
}

func TestCollect_MissingRootsSkipped(t *testing.T) {
	root := t.TempDir()
	files, err := New(defaultOptions(), nil).Collect(root)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollect_InaccessibleWorkspace(t *testing.T) {
	_, err := New(defaultOptions(), nil).Collect(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace not accessible")
}

func TestCollect_WorkspaceIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.ts", "x")
	_, err := New(defaultOptions(), nil).Collect(filepath.Join(root, "file.ts"))
	require.Error(t, err)
}

func TestEligible(t *testing.T) {
	c := New(defaultOptions(), nil)
	tests := []struct {
		path string
		want bool
	}{
		{"packages/core/src/foo.ts", true},
		{"packages/core/src/foo.test.ts", false},
		{"packages/core/src/foo.spec.tsx", false},
		{"packages/core/src/globals.d.ts", false},
		{"packages/core/src/foo.js", true},
		{"packages/core/src/foo.jsx", false},
		{"packages/core/src/foo.go", false},
		{"packages/core/src/__fixtures__.test.data/foo.ts", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Eligible(tt.path))
		})
	}
}

func TestReadText_InvalidUTF8Dropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ts")
	require.NoError(t, os.WriteFile(path, []byte("const a = \"\xff\xfeok\";"), 0o644))

	text, err := ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, `const a = "ok";`, text)
}

func TestReadText_Missing(t *testing.T) {
	_, err := ReadText(filepath.Join(t.TempDir(), "nope.ts"))
	require.Error(t, err)
}
