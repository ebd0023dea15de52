package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

// ExcelWriter writes a set of tables into one workbook, one sheet per table
type ExcelWriter struct {
	logger *slog.Logger
}

// NewExcelWriter creates a new workbook writer
func NewExcelWriter(logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{logger: logger.With("component", "excel_writer")}
}

// WriteWorkbook writes tables to path. Sheets are named after the tables and
// keep their order. The workbook replaces any existing file at path.
func (w *ExcelWriter) WriteWorkbook(path string, tables []domain.Table) error {
	if len(tables) == 0 {
		return apperrors.NewAppValidationError("workbook needs at least one table")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		sheet := table.Name()
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return apperrors.NewStorageError("failed to name sheet", err).WithContext("sheet", sheet)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return apperrors.NewStorageError("failed to add sheet", err).WithContext("sheet", sheet)
		}

		if err := writeSheet(f, sheet, table); err != nil {
			return apperrors.NewStorageError("failed to write sheet", err).WithContext("sheet", sheet)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err).WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("failed to create temp file", err).WithContext("path", path)
	}
	tmpPath := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.NewStorageError("failed to write workbook", err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.NewStorageError("failed to close workbook", err).WithContext("path", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperrors.NewStorageError("failed to replace workbook", err).WithContext("path", path)
	}

	w.logger.Info("Workbook written",
		slog.String("path", path),
		slog.Int("sheets", len(tables)))

	return nil
}

func writeSheet(f *excelize.File, sheet string, table domain.Table) error {
	header := make([]interface{}, 0, len(table.Columns()))
	for _, col := range table.Columns() {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("header: %w", err)
	}

	for i := 0; i < table.Len(); i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := sheetRow(table.Row(i))
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// sheetRow keeps numbers numeric and renders dates the same way the CSV
// files do. Nulls become empty cells.
func sheetRow(row []any) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case float64:
			if math.IsNaN(x) {
				out[i] = nil
				continue
			}
			out[i] = x
		case bool:
			out[i] = 0
			if x {
				out[i] = 1
			}
		case time.Time:
			if x.IsZero() {
				out[i] = nil
				continue
			}
			out[i] = x.Format(domain.DateLayout)
		default:
			out[i] = v
		}
	}
	return out
}
