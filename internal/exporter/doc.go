// Package exporter writes pipeline tables to disk.
//
// CSVWriter writes each table to its well-known file name in the output
// directory. Files are staged as temporary files and renamed into place, and
// WriteAll removes what it already wrote when any table fails, so a run never
// leaves a mix of fresh and stale outputs.
//
// ExcelWriter bundles the star schema into a single workbook with one sheet
// per table.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(cfg.Paths.OutputDir, logger)
//	paths, err := writer.WriteAll(ctx, result.Tables())
//
//	book := exporter.NewExcelWriter(logger)
//	err = book.WriteWorkbook(cfg.Paths.OutputPath("star_schema.xlsx"), result.StarTables())
package exporter
