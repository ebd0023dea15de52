package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instaetl/internal/config"
	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, nil)

	fact := sampleTables()[6]
	path, err := writer.WriteTable(fact, config.FactCSV)
	require.NoError(t, err)

	table, err := ReadTable(path, domain.TableFact)
	require.NoError(t, err)
	assert.Equal(t, domain.TableFact, table.Name())
	assert.Equal(t, domain.FactColumns, table.Columns())
	require.Equal(t, 1, table.Len())

	row := table.Row(0)
	assert.Equal(t, "p1", row[0])
	assert.Equal(t, "2023-01-05", row[1])
	assert.Nil(t, row[16], "empty growth rate reads back as null")
	assert.Equal(t, "0", row[17])
}

func TestReadTables(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, nil)
	_, err := writer.WriteAll(context.Background(), sampleTables())
	require.NoError(t, err)

	tables, err := ReadTables(dir, []string{domain.TableMedia, domain.TableFact})
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, domain.TableMedia, tables[0].Name())
	assert.Equal(t, []any{"Reel", "1"}, tables[0].Row(0))

	_, err = ReadTables(dir, []string{"nope"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestReadTable_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadTable(filepath.Join(dir, "missing.csv"), domain.TableTime)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = ReadTable(empty, domain.TableTime)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}
