package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"instaetl/internal/config"
	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

// fileNames maps each output table to its file in the output directory
var fileNames = map[string]string{
	domain.TableCleaned: config.CleanedCSV,
	domain.TableKPI:     config.KPICSV,
	domain.TableTime:    config.TimeDimCSV,
	domain.TableContent: config.ContentDimCSV,
	domain.TableMedia:   config.MediaDimCSV,
	domain.TableTraffic: config.TrafficDimCSV,
	domain.TableFact:    config.FactCSV,
}

// FileNameFor returns the output file name of a table
func FileNameFor(table string) (string, bool) {
	name, ok := fileNames[table]
	return name, ok
}

// CSVWriter writes tables as CSV files into one directory
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		dir:    dir,
		logger: logger.With("component", "csv_writer"),
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers []string
	Records [][]string
}

// WriteCSV writes headers and records to fileName inside the writer's
// directory. The data goes to a temporary file first and is renamed over the
// destination, so a failed write never leaves a partial file behind.
func (w *CSVWriter) WriteCSV(fileName string, options WriteOptions) (string, error) {
	fullPath := filepath.Join(w.dir, fileName)

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create output directory", err).
			WithContext("dir", w.dir)
	}

	tmp, err := os.CreateTemp(w.dir, "."+fileName+".*.tmp")
	if err != nil {
		return "", apperrors.NewStorageError("failed to create temp file", err).
			WithContext("file", fileName)
	}
	tmpPath := tmp.Name()

	if err := writeRecords(tmp, options); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", apperrors.NewStorageError("failed to write CSV", err).
			WithContext("file", fileName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", apperrors.NewStorageError("failed to close CSV", err).
			WithContext("file", fileName)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", apperrors.NewStorageError("failed to set CSV permissions", err).
			WithContext("file", fileName)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", apperrors.NewStorageError("failed to replace CSV", err).
			WithContext("file", fileName)
	}

	w.logger.Debug("CSV file written",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	return fullPath, nil
}

func writeRecords(f *os.File, options WriteOptions) error {
	writer := csv.NewWriter(f)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTable writes a table with its header row, overwriting fileName
func (w *CSVWriter) WriteTable(table domain.Table, fileName string) (string, error) {
	records := make([][]string, table.Len())
	for i := range records {
		records[i] = FormatRow(table.Row(i))
	}
	return w.WriteCSV(fileName, WriteOptions{
		Headers: table.Columns(),
		Records: records,
	})
}

// WriteAll writes every table to its standard file name concurrently. Either
// all files are written or, on the first failure, the files written by this
// call are removed and the error is returned.
func (w *CSVWriter) WriteAll(ctx context.Context, tables []domain.Table) ([]string, error) {
	var (
		mu      sync.Mutex
		written []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range tables {
		table := table
		fileName, ok := FileNameFor(table.Name())
		if !ok {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("no output file for table %q", table.Name()))
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := w.WriteTable(table, fileName)
			if err != nil {
				return err
			}
			mu.Lock()
			written = append(written, path)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, path := range written {
			if rmErr := os.Remove(path); rmErr != nil {
				w.logger.WarnContext(ctx, "Failed to remove partial output",
					slog.String("path", path),
					slog.String("error", rmErr.Error()))
			}
		}
		w.logger.ErrorContext(ctx, "Writing outputs failed",
			slog.Int("removed", len(written)),
			slog.String("error", err.Error()))
		return nil, err
	}

	w.logger.InfoContext(ctx, "Outputs written",
		slog.String("dir", w.dir),
		slog.Int("files", len(written)))

	return written, nil
}
