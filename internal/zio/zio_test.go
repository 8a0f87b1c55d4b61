package zio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAll(t *testing.T, open func(string) (*Writer, error), path, text string) {
	t.Helper()
	w, err := open(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, text)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())
}

func readAll(t *testing.T, path string) string {
	t.Helper()
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestAppendPlainAndGzip(t *testing.T) {
	for _, name := range []string{"rows.tsv", "rows.tsv.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writeAll(t, Create, path, "a\n")
			writeAll(t, Append, path, "b\n")
			writeAll(t, Append, path, "c\n")
			assert.Equal(t, "a\nb\nc\n", readAll(t, path))
		})
	}
}

func TestCreateTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.tsv.gz")
	writeAll(t, Create, path, "old\n")
	writeAll(t, Create, path, "new\n")
	assert.Equal(t, "new\n", readAll(t, path))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.tsv.gz"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenEmptyGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv.gz")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.Equal(t, "", readAll(t, path))
}

func TestIsCompressed(t *testing.T) {
	assert.True(t, IsCompressed("grid-0.40.tsv.gz"))
	assert.False(t, IsCompressed("grid-0.40.tsv"))
}
