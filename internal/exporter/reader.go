package exporter

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "instaetl/internal/errors"
)

// CSVTable is an output table read back from disk. Cells keep their text
// form and empty cells are nulls.
type CSVTable struct {
	name    string
	columns []string
	rows    [][]string
}

func (t *CSVTable) Name() string      { return t.name }
func (t *CSVTable) Columns() []string { return append([]string(nil), t.columns...) }
func (t *CSVTable) Len() int          { return len(t.rows) }

func (t *CSVTable) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j := range t.columns {
		if j < len(t.rows[i]) && t.rows[i][j] != "" {
			row[j] = t.rows[i][j]
		}
	}
	return row
}

// ReadTable loads a CSV written by WriteTable as the table called name
func ReadTable(path, name string) (*CSVTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("output file").WithContext("path", path)
		}
		return nil, apperrors.NewStorageError("failed to open output file", err).WithContext("path", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewParsingError("output file is empty", nil).WithContext("path", path)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read header", err).WithContext("path", path)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read rows", err).WithContext("path", path)
	}

	return &CSVTable{name: name, columns: header, rows: rows}, nil
}

// ReadTables loads the named output tables from dir in the given order
func ReadTables(dir string, tableNames []string) ([]*CSVTable, error) {
	tables := make([]*CSVTable, 0, len(tableNames))
	for _, name := range tableNames {
		fileName, ok := FileNameFor(name)
		if !ok {
			return nil, apperrors.NewAppValidationError("no output file for table " + name)
		}
		table, err := ReadTable(filepath.Join(dir, fileName), name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}
