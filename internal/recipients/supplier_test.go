package recipients

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "list.csv", `Email Address,Name
alice@example.com,Alice
bob@example.com,Bob
carol@example.com
`)

	roster, err := NewSupplier().Load(path)
	require.NoError(t, err)

	require.Len(t, roster.Recipients, 3)
	assert.Equal(t, "alice@example.com", roster.Recipients[0].Address)
	assert.Equal(t, "Alice", roster.Recipients[0].AuxiliaryData)
	assert.Equal(t, "bob@example.com", roster.Recipients[1].Address)
	assert.Equal(t, "carol@example.com", roster.Recipients[2].Address)
	assert.Equal(t, "", roster.Recipients[2].AuxiliaryData)
	assert.Equal(t, 0, roster.InvalidSkipped)
	assert.Equal(t, 0, roster.DuplicatesRemoved)
	assert.Equal(t, []string{path}, roster.Sources)
}

func TestLoadSkipsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "list.csv", `email
alice@example.com
not-an-email
@missing-local.com
trailing@dot.
bob@example.com
`)

	roster, err := NewSupplier().Load(path)
	require.NoError(t, err)

	require.Len(t, roster.Recipients, 2)
	assert.Equal(t, "alice@example.com", roster.Recipients[0].Address)
	assert.Equal(t, "bob@example.com", roster.Recipients[1].Address)
	assert.Equal(t, 3, roster.InvalidSkipped)
}

func TestLoadDeduplicatesFirstWins(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "list.csv", `email,name
alice@example.com,First Alice
bob@example.com,Bob
alice@example.com,Second Alice
`)

	roster, err := NewSupplier().Load(path)
	require.NoError(t, err)

	require.Len(t, roster.Recipients, 2)
	assert.Equal(t, "alice@example.com", roster.Recipients[0].Address)
	assert.Equal(t, "First Alice", roster.Recipients[0].AuxiliaryData)
	assert.Equal(t, 1, roster.DuplicatesRemoved)
}

func TestLoadDedupIsCaseSensitive(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "list.csv", `email
Alice@example.com
alice@example.com
`)

	roster, err := NewSupplier().Load(path)
	require.NoError(t, err)

	// Exact-string dedup: differently-cased addresses are distinct.
	require.Len(t, roster.Recipients, 2)
	assert.Equal(t, "Alice@example.com", roster.Recipients[0].Address)
	assert.Equal(t, 0, roster.DuplicatesRemoved)
}

func TestLoadHeaderVariants(t *testing.T) {
	headers := []string{"email", "EMAIL", "Email Address", "e-mail", "EmailAddress", "subscriber_email"}
	for _, header := range headers {
		t.Run(header, func(t *testing.T) {
			dir := t.TempDir()
			path := writeCSV(t, dir, "list.csv", header+"\nalice@example.com\n")

			roster, err := NewSupplier().Load(path)
			require.NoError(t, err)
			require.Len(t, roster.Recipients, 1)
			assert.Equal(t, "alice@example.com", roster.Recipients[0].Address)
		})
	}
}

func TestLoadHeaderlessFileKeepsFirstRow(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "list.csv", "first@example.com,First\nsecond@example.com,Second\n")

	roster, err := NewSupplier().Load(path)
	require.NoError(t, err)

	require.Len(t, roster.Recipients, 2)
	assert.Equal(t, "first@example.com", roster.Recipients[0].Address)
	assert.Equal(t, 0, roster.InvalidSkipped)
}

func TestLoadMergesFilesInArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeCSV(t, dir, "b.csv", "email\nb1@example.com\nshared@example.com\n")
	second := writeCSV(t, dir, "a.csv", "email\nshared@example.com\na1@example.com\n")

	roster, err := NewSupplier().Load(first, second)
	require.NoError(t, err)

	require.Len(t, roster.Recipients, 3)
	assert.Equal(t, "b1@example.com", roster.Recipients[0].Address)
	assert.Equal(t, "shared@example.com", roster.Recipients[1].Address)
	assert.Equal(t, "a1@example.com", roster.Recipients[2].Address)
	assert.Equal(t, 1, roster.DuplicatesRemoved)
	assert.Equal(t, []string{first, second}, roster.Sources)
}

func TestLoadGlobSortsMatches(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "list_b.csv", "email\nb@example.com\n")
	writeCSV(t, dir, "list_a.csv", "email\na@example.com\n")

	roster, err := NewSupplier().LoadGlob(filepath.Join(dir, "list_*.csv"))
	require.NoError(t, err)

	require.Len(t, roster.Recipients, 2)
	assert.Equal(t, "a@example.com", roster.Recipients[0].Address)
	assert.Equal(t, "b@example.com", roster.Recipients[1].Address)
}

func TestLoadGlobNoMatches(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSupplier().LoadGlob(filepath.Join(dir, "missing_*.csv"))
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewSupplier().Load("/nonexistent/list.csv")
	assert.Error(t, err)
}

func TestLoadNoSources(t *testing.T) {
	_, err := NewSupplier().Load()
	assert.ErrorIs(t, err, ErrNoSources)
}
