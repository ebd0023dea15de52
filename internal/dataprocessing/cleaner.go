package dataprocessing

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

// CleanReport summarizes what the Cleaner did to the raw input.
type CleanReport struct {
	InputRows      int            `json:"input_rows"`
	InvalidDates   int            `json:"invalid_dates"`
	MissingPostIDs int            `json:"missing_post_ids"`
	Duplicates     int            `json:"duplicates"`
	OutputRows     int            `json:"output_rows"`
	Imputed        map[string]int `json:"imputed"`

	Modes   map[string]string  `json:"modes"`
	Medians map[string]float64 `json:"medians"`
}

// Dropped returns the number of input rows that did not survive cleaning.
func (r CleanReport) Dropped() int {
	return r.InvalidDates + r.MissingPostIDs + r.Duplicates
}

// CleanResult is the cleaned table plus its report.
type CleanResult struct {
	Table  domain.CleanTable
	Report CleanReport
}

type categoricalColumn struct {
	name  string
	field func(*domain.RawPost) *sql.NullString
}

type numericColumn struct {
	name  string
	field func(*domain.RawPost) *sql.NullFloat64
}

var categoricalColumns = []categoricalColumn{
	{domain.ColMediaType, func(p *domain.RawPost) *sql.NullString { return &p.MediaType }},
	{domain.ColTrafficSource, func(p *domain.RawPost) *sql.NullString { return &p.TrafficSource }},
	{domain.ColContentCategory, func(p *domain.RawPost) *sql.NullString { return &p.ContentCategory }},
}

var countColumns = []numericColumn{
	{domain.ColLikes, func(p *domain.RawPost) *sql.NullFloat64 { return &p.Likes }},
	{domain.ColComments, func(p *domain.RawPost) *sql.NullFloat64 { return &p.Comments }},
	{domain.ColShares, func(p *domain.RawPost) *sql.NullFloat64 { return &p.Shares }},
	{domain.ColSaves, func(p *domain.RawPost) *sql.NullFloat64 { return &p.Saves }},
	{domain.ColReach, func(p *domain.RawPost) *sql.NullFloat64 { return &p.Reach }},
	{domain.ColImpressions, func(p *domain.RawPost) *sql.NullFloat64 { return &p.Impressions }},
	{domain.ColFollowersGained, func(p *domain.RawPost) *sql.NullFloat64 { return &p.FollowersGained }},
	{domain.ColCaptionLength, func(p *domain.RawPost) *sql.NullFloat64 { return &p.CaptionLength }},
	{domain.ColHashtagsCount, func(p *domain.RawPost) *sql.NullFloat64 { return &p.HashtagsCount }},
}

var engagementRateColumn = numericColumn{
	domain.ColEngagementRate, func(p *domain.RawPost) *sql.NullFloat64 { return &p.EngagementRate },
}

// Cleaner imputes, coerces, standardizes and deduplicates raw posts.
type Cleaner struct {
	dateLayouts []string
	logger      *slog.Logger
}

// NewCleaner creates a Cleaner. dateLayouts are tried in order when parsing
// upload_date; an empty list falls back to domain.DateLayout.
func NewCleaner(dateLayouts []string, logger *slog.Logger) *Cleaner {
	if len(dateLayouts) == 0 {
		dateLayouts = []string{domain.DateLayout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		dateLayouts: dateLayouts,
		logger:      logger.With("component", "cleaner"),
	}
}

// Clean turns the raw table into cleaned posts:
//
//   - nulls in categorical columns take the column mode, nulls in numeric
//     columns take the column median, both computed over the whole input
//   - rows whose upload_date does not parse are dropped and counted
//   - categoricals are trimmed and title-cased
//   - repeated post_ids keep the first row in input order
func (c *Cleaner) Clean(ctx context.Context, raw *domain.RawTable) (*CleanResult, error) {
	if raw == nil {
		return nil, apperrors.NewAppValidationError("raw table is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := CleanReport{
		InputRows: len(raw.Rows),
		Imputed:   make(map[string]int),
		Modes:     make(map[string]string),
		Medians:   make(map[string]float64),
	}

	numeric := countColumns
	if raw.HasEngagementRate {
		numeric = append(append([]numericColumn{}, countColumns...), engagementRateColumn)
	}

	if len(raw.Rows) > 0 {
		for _, col := range categoricalColumns {
			mode, ok := columnMode(raw.Rows, col)
			if !ok {
				return nil, apperrors.NewAppValidationError(
					fmt.Sprintf("cannot impute %s: column has no values", col.name)).
					WithContext("column", col.name)
			}
			report.Modes[col.name] = mode
		}
		for _, col := range numeric {
			median, ok := columnMedian(raw.Rows, col)
			if !ok {
				return nil, apperrors.NewAppValidationError(
					fmt.Sprintf("cannot impute %s: column has no values", col.name)).
					WithContext("column", col.name)
			}
			report.Medians[col.name] = median
		}
	}

	caser := cases.Title(language.Und)
	seen := make(map[string]struct{}, len(raw.Rows))
	posts := make([]domain.Post, 0, len(raw.Rows))

	for i := range raw.Rows {
		row := raw.Rows[i]

		for _, col := range categoricalColumns {
			if v := col.field(&row); !v.Valid {
				*v = sql.NullString{String: report.Modes[col.name], Valid: true}
				report.Imputed[col.name]++
			}
		}
		for _, col := range numeric {
			if v := col.field(&row); !v.Valid {
				*v = sql.NullFloat64{Float64: report.Medians[col.name], Valid: true}
				report.Imputed[col.name]++
			}
		}

		date, ok := c.parseDate(row.UploadDate)
		if !ok {
			report.InvalidDates++
			continue
		}
		if row.PostID == "" {
			report.MissingPostIDs++
			continue
		}
		if _, dup := seen[row.PostID]; dup {
			report.Duplicates++
			continue
		}
		seen[row.PostID] = struct{}{}

		posts = append(posts, domain.Post{
			PostID:          row.PostID,
			UploadDate:      date,
			MediaType:       normalizeCategory(caser, row.MediaType.String),
			ContentCategory: normalizeCategory(caser, row.ContentCategory.String),
			TrafficSource:   normalizeCategory(caser, row.TrafficSource.String),
			CaptionLength:   toCount(row.CaptionLength.Float64),
			HashtagsCount:   toCount(row.HashtagsCount.Float64),
			Likes:           toCount(row.Likes.Float64),
			Comments:        toCount(row.Comments.Float64),
			Shares:          toCount(row.Shares.Float64),
			Saves:           toCount(row.Saves.Float64),
			Reach:           toCount(row.Reach.Float64),
			Impressions:     toCount(row.Impressions.Float64),
			FollowersGained: toCount(row.FollowersGained.Float64),
			EngagementRate:  row.EngagementRate.Float64,
		})
	}

	report.OutputRows = len(posts)

	c.logger.DebugContext(ctx, "Imputation values",
		slog.Any("modes", report.Modes),
		slog.Any("medians", report.Medians))
	if report.InvalidDates > 0 {
		c.logger.WarnContext(ctx, "Dropped rows with invalid upload_date",
			slog.Int("count", report.InvalidDates))
	}
	c.logger.InfoContext(ctx, "Cleaning completed",
		slog.Int("input_rows", report.InputRows),
		slog.Int("output_rows", report.OutputRows),
		slog.Int("invalid_dates", report.InvalidDates),
		slog.Int("missing_post_ids", report.MissingPostIDs),
		slog.Int("duplicates", report.Duplicates),
		slog.Any("imputed", report.Imputed))

	return &CleanResult{
		Table: domain.CleanTable{
			Posts:             posts,
			HasEngagementRate: raw.HasEngagementRate,
		},
		Report: report,
	}, nil
}

// parseDate tries each layout and truncates the result to a calendar date.
func (c *Cleaner) parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range c.dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// normalizeCategory trims v and title-cases it. Underscores and hyphens start
// a new word, so carousel_album becomes Carousel_Album.
func normalizeCategory(caser cases.Caser, v string) string {
	v = strings.TrimSpace(v)

	var b strings.Builder
	b.Grow(len(v))
	start := 0
	for i, r := range v {
		if r == '_' || r == '-' {
			b.WriteString(caser.String(v[start:i]))
			b.WriteRune(r)
			start = i + 1
		}
	}
	b.WriteString(caser.String(v[start:]))
	return b.String()
}

func toCount(v float64) int64 {
	return int64(math.Round(v))
}

// columnMode returns the most frequent non-null value. Ties go to the value
// seen first.
func columnMode(rows []domain.RawPost, col categoricalColumn) (string, bool) {
	counts := make(map[string]int)
	var order []string

	for i := range rows {
		v := col.field(&rows[i])
		if !v.Valid {
			continue
		}
		if _, ok := counts[v.String]; !ok {
			order = append(order, v.String)
		}
		counts[v.String]++
	}
	if len(order) == 0 {
		return "", false
	}

	mode := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}
	return mode, true
}

// columnMedian returns the median of the non-null values.
func columnMedian(rows []domain.RawPost, col numericColumn) (float64, bool) {
	values := make([]float64, 0, len(rows))
	for i := range rows {
		if v := col.field(&rows[i]); v.Valid {
			values = append(values, v.Float64)
		}
	}
	if len(values) == 0 {
		return 0, false
	}

	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid], true
	}
	return (values[mid-1] + values[mid]) / 2, true
}
