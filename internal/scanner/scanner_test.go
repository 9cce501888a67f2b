package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanFindsStatementFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "march.csv"))
	writeFile(t, filepath.Join(dir, "nested", "april.xlsx"))
	writeFile(t, filepath.Join(dir, "nested", "deep", "may.ofx"))
	writeFile(t, filepath.Join(dir, "card.qfx"))
	writeFile(t, filepath.Join(dir, "macros.xlsm"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, "report.pdf"))

	results, err := New(dir).Scan()
	require.NoError(t, err)

	assert.Len(t, results, 5)
	found := make(map[string]bool)
	for _, r := range results {
		found[filepath.Base(r.Path)] = true
		assert.Equal(t, r.Path, r.Metadata.FilePath())
		assert.False(t, r.Metadata.ModTime().IsZero())
	}
	assert.True(t, found["march.csv"])
	assert.True(t, found["april.xlsx"])
	assert.True(t, found["may.ofx"])
	assert.True(t, found["card.qfx"])
	assert.True(t, found["macros.xlsm"])
	assert.False(t, found["notes.txt"])
	assert.False(t, found["report.pdf"])
}

func TestScanEmptyDirectory(t *testing.T) {
	results, err := New(t.TempDir()).Scan()
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope")).Scan()
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	s := New("~")
	assert.Equal(t, home, s.expandHome("~"))
	assert.Equal(t, filepath.Join(home, "statements"), s.expandHome("~/statements"))
	assert.Equal(t, "/absolute/path", s.expandHome("/absolute/path"))
	assert.Equal(t, "~x/path", s.expandHome("~x/path"))
}
