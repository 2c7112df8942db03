package csvio

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

func TestReadFileParsesColumnsByName(t *testing.T) {
	path := writeFile(t, "municipalities.csv",
		"commune_id;name;x;y\n"+
			"35238;Rennes;351763.2;6789123,5\n"+
			"35047;Bruz;348210.0;6778100.1\n")

	table, err := ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, table.RequireColumns("commune_id", "name", "x", "y"))
	require.Equal(t, 2, table.Len())

	row := table.Row(0)
	id, err := row.String("commune_id")
	require.NoError(t, err)
	assert.Equal(t, "35238", id)

	x, err := row.Float("x")
	require.NoError(t, err)
	assert.InDelta(t, 351763.2, x, 1e-9)

	// Decimal commas from French exports parse too.
	y, err := row.Float("y")
	require.NoError(t, err)
	assert.InDelta(t, 6789123.5, y, 1e-9)
}

func TestReadFileRejectsMissingColumns(t *testing.T) {
	path := writeFile(t, "persons.csv", "person_id;age\n1;42\n")

	table, err := ReadFile(path)
	require.NoError(t, err)

	err = table.RequireColumns("person_id", "sex", "employed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persons.csv")
	assert.Contains(t, err.Error(), "sex, employed")
}

func TestRowErrorsCarryLineContext(t *testing.T) {
	path := writeFile(t, "individuals.csv", "AGED\n42\nnot-a-number\n")

	table, err := ReadFile(path)
	require.NoError(t, err)

	_, err = table.Row(1).Int("AGED")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "individuals.csv line 3")
}

func TestRowBoolAndEmpty(t *testing.T) {
	path := writeFile(t, "flags.csv", "a;b\n1;\nfalse;x\n")

	table, err := ReadFile(path)
	require.NoError(t, err)

	v, err := table.Row(0).Bool("a")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = table.Row(1).Bool("a")
	require.NoError(t, err)
	assert.False(t, v)

	assert.True(t, table.Row(0).Empty("b"))
	assert.False(t, table.Row(1).Empty("b"))
}

func TestReadFileRejectsDuplicateHeader(t *testing.T) {
	path := writeFile(t, "dup.csv", "a;a\n1;2\n")

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate header column "a"`)
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "households.csv")

	w, err := NewWriter(path, []string{"household_id", "income"})
	require.NoError(t, err)
	require.NoError(t, w.Write("1", "2300.50"))
	require.NoError(t, w.Write("2", "1780.00"))
	assert.Equal(t, 2, w.Rows())
	require.NoError(t, w.Close())

	table, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	income, err := table.Row(0).Float("income")
	require.NoError(t, err)
	assert.InDelta(t, 2300.50, income, 1e-9)
}
