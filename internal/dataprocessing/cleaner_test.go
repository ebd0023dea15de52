package dataprocessing

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"instaetl/internal/config"
	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

func newTestCleaner() *Cleaner {
	return NewCleaner(config.DefaultDateLayouts(), testLogger())
}

func TestCleaner_ImputesCategoricalMode(t *testing.T) {
	ctx := context.Background()

	missing := rawPost("p3", "2023-01-07", "", 10)
	missing.MediaType = sql.NullString{}

	raw := rawTable(
		rawPost("p1", "2023-01-05", "Reel", 10),
		rawPost("p2", "2023-01-06", "Reel", 10),
		missing,
		rawPost("p4", "2023-01-08", "Photo", 10),
	)

	result, err := newTestCleaner().Clean(ctx, raw)
	require.NoError(t, err)
	require.Len(t, result.Table.Posts, 4)

	assert.Equal(t, "Reel", result.Table.Posts[2].MediaType)
	assert.Equal(t, "Reel", result.Report.Modes[domain.ColMediaType])
	assert.Equal(t, 1, result.Report.Imputed[domain.ColMediaType])
}

func TestColumnMode_TieGoesToFirstSeen(t *testing.T) {
	rows := []domain.RawPost{
		rawPost("p1", "2023-01-01", "Photo", 1),
		rawPost("p2", "2023-01-01", "Reel", 1),
		rawPost("p3", "2023-01-01", "Reel", 1),
		rawPost("p4", "2023-01-01", "Photo", 1),
	}

	mode, ok := columnMode(rows, categoricalColumns[0])
	require.True(t, ok)
	assert.Equal(t, "Photo", mode)
}

func TestCleaner_ImputesNumericMedian(t *testing.T) {
	ctx := context.Background()

	a := rawPost("p1", "2023-01-05", "Reel", 10)
	b := rawPost("p2", "2023-01-06", "Reel", 20)
	c := rawPost("p3", "2023-01-07", "Reel", 0)
	c.Likes = sql.NullFloat64{}
	c.EngagementRate = sql.NullFloat64{}
	a.EngagementRate = num(0.1)
	b.EngagementRate = num(0.2)

	result, err := newTestCleaner().Clean(ctx, rawTable(a, b, c))
	require.NoError(t, err)

	imputed := result.Table.Posts[2]
	assert.Equal(t, int64(15), imputed.Likes, "median of 10 and 20")
	assert.InDelta(t, 0.15, imputed.EngagementRate, 1e-9, "engagement_rate is not rounded")
	assert.Equal(t, 1, result.Report.Imputed[domain.ColLikes])
	assert.Equal(t, 1, result.Report.Imputed[domain.ColEngagementRate])
}

func TestCleaner_MedianUsesRowsLaterDropped(t *testing.T) {
	ctx := context.Background()

	bad := rawPost("p1", "not-a-date", "Reel", 100)
	kept := rawPost("p2", "2023-01-06", "Reel", 0)
	kept.Likes = sql.NullFloat64{}
	other := rawPost("p3", "2023-01-07", "Reel", 0)

	result, err := newTestCleaner().Clean(ctx, rawTable(bad, kept, other))
	require.NoError(t, err)
	require.Len(t, result.Table.Posts, 2)
	assert.Equal(t, int64(50), result.Table.Posts[0].Likes, "median of 100 and 0 over the full input")
}

func TestCleaner_DropsInvalidDates(t *testing.T) {
	ctx := context.Background()

	raw := rawTable(
		rawPost("p1", "2023-01-05", "Reel", 10),
		rawPost("p2", "garbage", "Reel", 10),
		rawPost("p3", "", "Reel", 10),
		rawPost("p4", "01/15/2023", "Reel", 10),
		rawPost("p5", "2023-02-01 13:45:00", "Reel", 10),
	)

	result, err := newTestCleaner().Clean(ctx, raw)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Report.InvalidDates)
	require.Len(t, result.Table.Posts, 3)
	assert.Equal(t, date("2023-01-15"), result.Table.Posts[1].UploadDate)
	assert.Equal(t, date("2023-02-01"), result.Table.Posts[2].UploadDate, "time of day is truncated")
}

func TestCleaner_StandardizesCategoricals(t *testing.T) {
	ctx := context.Background()

	row := rawPost("p1", "2023-01-05", "  reel ", 10)
	row.ContentCategory = str("TRAVEL tips")
	row.TrafficSource = str("external  ")

	result, err := newTestCleaner().Clean(ctx, rawTable(row))
	require.NoError(t, err)

	p := result.Table.Posts[0]
	assert.Equal(t, "Reel", p.MediaType)
	assert.Equal(t, "Travel Tips", p.ContentCategory)
	assert.Equal(t, "External", p.TrafficSource)
}

func TestNormalizeCategory(t *testing.T) {
	caser := cases.Title(language.Und)

	tests := []struct {
		in   string
		want string
	}{
		{"  reel ", "Reel"},
		{"carousel_album", "Carousel_Album"},
		{"CAROUSEL_ALBUM", "Carousel_Album"},
		{"short-form video", "Short-Form Video"},
		{"_story", "_Story"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeCategory(caser, tt.in))
		})
	}
}

func TestCleaner_KeepsFirstDuplicate(t *testing.T) {
	ctx := context.Background()

	raw := rawTable(
		rawPost("p1", "2023-01-05", "Reel", 10),
		rawPost("p1", "2023-01-06", "Photo", 99),
		rawPost("p2", "2023-01-07", "Reel", 10),
	)

	result, err := newTestCleaner().Clean(ctx, raw)
	require.NoError(t, err)

	require.Len(t, result.Table.Posts, 2)
	assert.Equal(t, "Reel", result.Table.Posts[0].MediaType)
	assert.Equal(t, int64(10), result.Table.Posts[0].Likes)
	assert.Equal(t, 1, result.Report.Duplicates)
}

func TestCleaner_DropsMissingPostID(t *testing.T) {
	ctx := context.Background()

	result, err := newTestCleaner().Clean(ctx, rawTable(
		rawPost("", "2023-01-05", "Reel", 10),
		rawPost("p2", "2023-01-05", "Reel", 10),
	))
	require.NoError(t, err)
	assert.Len(t, result.Table.Posts, 1)
	assert.Equal(t, 1, result.Report.MissingPostIDs)
	assert.Equal(t, 1, result.Report.Dropped())
}

func TestCleaner_NoNullsAfterCleaning(t *testing.T) {
	ctx := context.Background()

	sparse := domain.RawPost{PostID: "p2", UploadDate: "2023-01-06"}
	result, err := newTestCleaner().Clean(ctx, rawTable(rawPost("p1", "2023-01-05", "Reel", 10), sparse))
	require.NoError(t, err)

	view := domain.CleanedView{Table: result.Table}
	for i := 0; i < view.Len(); i++ {
		for j, v := range view.Row(i) {
			assert.False(t, domain.IsNull(v), "row %d column %s", i, view.Columns()[j])
		}
	}
	assert.Equal(t, "Reel", result.Table.Posts[1].MediaType)
	assert.Equal(t, int64(10), result.Table.Posts[1].Likes)
}

func TestCleaner_AllNullColumnFails(t *testing.T) {
	ctx := context.Background()

	row := rawPost("p1", "2023-01-05", "Reel", 10)
	row.Saves = sql.NullFloat64{}

	_, err := newTestCleaner().Clean(ctx, rawTable(row))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Contains(t, err.Error(), domain.ColSaves)
}

func TestCleaner_EmptyInput(t *testing.T) {
	ctx := context.Background()

	result, err := newTestCleaner().Clean(ctx, rawTable())
	require.NoError(t, err)
	assert.Empty(t, result.Table.Posts)
	assert.Equal(t, 0, result.Report.OutputRows)
}

func TestCleaner_EngagementRateColumnAbsent(t *testing.T) {
	ctx := context.Background()

	row := rawPost("p1", "2023-01-05", "Reel", 10)
	row.EngagementRate = sql.NullFloat64{}
	raw := rawTable(row)
	raw.HasEngagementRate = false

	result, err := newTestCleaner().Clean(ctx, raw)
	require.NoError(t, err, "an absent optional column is not imputed")
	assert.False(t, result.Table.HasEngagementRate)
	assert.NotContains(t, result.Report.Medians, domain.ColEngagementRate)
}

func TestCleaner_DoesNotMutateInput(t *testing.T) {
	ctx := context.Background()

	row := rawPost("p1", "2023-01-05", "reel", 10)
	row.Likes = sql.NullFloat64{}
	raw := rawTable(row, rawPost("p2", "2023-01-06", "reel", 20))

	_, err := newTestCleaner().Clean(ctx, raw)
	require.NoError(t, err)
	assert.False(t, raw.Rows[0].Likes.Valid)
	assert.Equal(t, "reel", raw.Rows[0].MediaType.String)
}

func TestCleaner_NilAndCancelled(t *testing.T) {
	_, err := newTestCleaner().Clean(context.Background(), nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestCleaner().Clean(ctx, rawTable(rawPost("p1", "2023-01-05", "Reel", 1)))
	assert.ErrorIs(t, err, context.Canceled)
}
