package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "ids.txt", `
# classics
tt0111161   # Shawshank
tt0903747
not-an-id
tt0111161
`)
	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"tt0111161", "tt0903747"}, m.IDs())
	assert.Equal(t, "Shawshank", m.Entries[0].Note)
	require.Len(t, m.Skipped, 1)
	assert.Contains(t, m.Skipped[0].Error(), "not-an-id")
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "ids.yaml", `
- id: tt0111161
  note: prison drama
- tt0959621
- [nested, list]
- id: tt0903747
`)
	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"tt0111161", "tt0959621", "tt0903747"}, m.IDs())
	assert.Equal(t, "prison drama", m.Entries[0].Note)
	assert.Len(t, m.Skipped, 1)
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "ids.csv", "id,note,year\ntt0111161,Shawshank,1994\ntt0903747,,2008\n")
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tt0111161", "tt0903747"}, m.IDs())
	assert.Empty(t, m.Skipped)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "ids.json", `["tt0111161"]`))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(writeFile(t, "ids.yaml", "id: tt0111161\n"))
	assert.Error(t, err, "a mapping is not a sequence")
}
