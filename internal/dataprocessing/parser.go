package dataprocessing

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

// ParseFile reads a raw post export, dispatching on the file extension.
// sheet is only used for .xlsx input; empty selects the first sheet.
func ParseFile(path, sheet string) (*domain.RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(path, sheet)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.NewParsingError("failed to open input", err).
				WithContext("path", path)
		}
		defer f.Close()

		table, err := ParseCSV(f)
		if err != nil {
			return nil, err
		}
		table.Source = path
		return table, nil
	default:
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("unsupported input format %q", filepath.Ext(path)), nil).
			WithContext("path", path)
	}
}

// ParseCSV reads a raw post export in CSV form. The first record is the header.
func ParseCSV(r io.Reader) (*domain.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read CSV", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewSchemaError("input has no header row", domain.RequiredColumns)
	}

	return parseRecords(records[0], records[1:])
}

// ParseXLSX reads a raw post export from an Excel workbook.
func ParseXLSX(path, sheet string) (*domain.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).
			WithContext("path", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil).
				WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).
			WithContext("path", path).
			WithContext("sheet", sheet)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError("input has no header row", domain.RequiredColumns)
	}

	table, err := parseRecords(rows[0], rows[1:])
	if err != nil {
		return nil, err
	}
	table.Source = path
	return table, nil
}

func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return columns
}

func parseRecords(header []string, records [][]string) (*domain.RawTable, error) {
	columns := normalizeHeader(header)

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, seen := index[c]; !seen {
			index[c] = i
		}
	}

	var missing []string
	for _, c := range domain.RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError("input is missing required columns", missing)
	}

	_, hasRate := index[domain.ColEngagementRate]
	table := &domain.RawTable{
		Columns:           columns,
		Rows:              make([]domain.RawPost, 0, len(records)),
		HasEngagementRate: hasRate,
	}

	for _, rec := range records {
		if isBlankRecord(rec) {
			continue
		}
		row := rowReader{record: rec, index: index}
		post := domain.RawPost{
			PostID:          strings.TrimSpace(row.cell(domain.ColPostID)),
			UploadDate:      strings.TrimSpace(row.cell(domain.ColUploadDate)),
			MediaType:       row.text(domain.ColMediaType),
			ContentCategory: row.text(domain.ColContentCategory),
			TrafficSource:   row.text(domain.ColTrafficSource),
			CaptionLength:   row.number(domain.ColCaptionLength),
			HashtagsCount:   row.number(domain.ColHashtagsCount),
			Likes:           row.number(domain.ColLikes),
			Comments:        row.number(domain.ColComments),
			Shares:          row.number(domain.ColShares),
			Saves:           row.number(domain.ColSaves),
			Reach:           row.number(domain.ColReach),
			Impressions:     row.number(domain.ColImpressions),
			FollowersGained: row.number(domain.ColFollowersGained),
		}
		if hasRate {
			post.EngagementRate = row.number(domain.ColEngagementRate)
		}
		table.Rows = append(table.Rows, post)
	}

	return table, nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type rowReader struct {
	record []string
	index  map[string]int
}

func (r rowReader) cell(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

// text returns the raw value; blank cells are null.
func (r rowReader) text(column string) sql.NullString {
	v := r.cell(column)
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

// number coerces the cell to a float; blank or unparseable cells are null.
func (r rowReader) number(column string) sql.NullFloat64 {
	v := strings.TrimSpace(r.cell(column))
	if v == "" {
		return sql.NullFloat64{}
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
