package service

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/finscn/domain"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("methods: []\n"), 0o644))
	}
}

func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func TestFileReader_CollectMethodFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"a.yaml",
		"b.json",
		"notes.txt",
		".hidden.yaml",
		"sub/c.yml",
		"sub/deep/d.yaml",
		".git/e.yaml",
		"generated/f.yaml",
	)

	tests := []struct {
		name      string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{
			name:      "recursive",
			recursive: true,
			want:      []string{"a.yaml", "b.json", "generated/f.yaml", "sub/c.yml", "sub/deep/d.yaml"},
		},
		{
			name: "top level only",
			want: []string{"a.yaml", "b.json"},
		},
		{
			name:      "exclude directory",
			recursive: true,
			exclude:   []string{"generated/**"},
			want:      []string{"a.yaml", "b.json", "sub/c.yml", "sub/deep/d.yaml"},
		},
		{
			name:      "include by base name",
			recursive: true,
			include:   []string{"*.yaml"},
			want:      []string{"a.yaml", "generated/f.yaml", "sub/deep/d.yaml"},
		},
		{
			name:      "include by path",
			recursive: true,
			include:   []string{"sub/**"},
			want:      []string{"sub/c.yml", "sub/deep/d.yaml"},
		},
	}

	reader := NewFileReader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := reader.CollectMethodFiles([]string{root}, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, relPaths(t, root, files))
		})
	}
}

func TestFileReader_CollectExplicitFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, ".hidden.yaml", "notes.txt")

	files, err := NewFileReader().CollectMethodFiles(
		[]string{filepath.Join(root, ".hidden.yaml"), filepath.Join(root, "notes.txt")}, true, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden.yaml"}, relPaths(t, root, files))
}

func TestFileReader_MissingPath(t *testing.T) {
	_, err := NewFileReader().CollectMethodFiles([]string{filepath.Join(t.TempDir(), "missing")}, true, nil, nil)
	require.Error(t, err)

	var de domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeFileNotFound, de.Code)
}

func TestFileReader_IsMethodFile(t *testing.T) {
	reader := NewFileReader()
	assert.True(t, reader.IsMethodFile("a.yaml"))
	assert.True(t, reader.IsMethodFile("a.YML"))
	assert.True(t, reader.IsMethodFile("dir/a.json"))
	assert.False(t, reader.IsMethodFile("a.class"))
	assert.False(t, reader.IsMethodFile("yaml"))
}

func TestFileReader_FileExists(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.yaml")
	reader := NewFileReader()

	ok, err := reader.FileExists(filepath.Join(root, "a.yaml"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reader.FileExists(filepath.Join(root, "b.yaml"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reader.FileExists(root)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileReader_ReadFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.yaml")

	data, err := NewFileReader().ReadFile(filepath.Join(root, "a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "methods: []\n", string(data))

	_, err = NewFileReader().ReadFile(filepath.Join(root, "b.yaml"))
	assert.Error(t, err)
}
