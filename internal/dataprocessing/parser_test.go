package dataprocessing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

func TestParseCSV(t *testing.T) {
	input := " Post_ID , Upload_Date,media_type,content_category,traffic_source," +
		"caption_length,hashtags_count,likes,comments,shares,saves,reach,impressions,followers_gained,engagement_rate\n" +
		"p1,2023-01-05,reel,travel,Explore,120,5,100,10,5,2,1000,2000,12,0.05\n" +
		"p2,2023-01-06,,food, home ,abc,,80,1,1,1,900,1500,3,\n" +
		",,,,,,,,,,,,,,\n"

	table, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.True(t, table.HasEngagementRate)
	assert.Equal(t, "post_id", table.Columns[0])
	assert.Equal(t, "upload_date", table.Columns[1])
	require.Len(t, table.Rows, 2, "blank lines are skipped")

	first := table.Rows[0]
	assert.Equal(t, "p1", first.PostID)
	assert.Equal(t, "2023-01-05", first.UploadDate)
	assert.Equal(t, num(100), first.Likes)
	assert.Equal(t, num(0.05), first.EngagementRate)
	assert.Equal(t, str("reel"), first.MediaType)

	second := table.Rows[1]
	assert.False(t, second.MediaType.Valid, "empty categorical is null")
	assert.False(t, second.CaptionLength.Valid, "unparseable numeric is null")
	assert.False(t, second.HashtagsCount.Valid)
	assert.False(t, second.EngagementRate.Valid)
	assert.Equal(t, "home ", second.TrafficSource.String, "raw categorical is kept as read")
}

func TestParseCSV_WithoutEngagementRate(t *testing.T) {
	header := strings.TrimSuffix(csvHeader, ",engagement_rate")
	input := header + "\np1,2023-01-05,Reel,Travel,Explore,120,5,100,10,5,2,1000,2000,12\n"

	table, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.False(t, table.HasEngagementRate)
	require.Len(t, table.Rows, 1)
	assert.False(t, table.Rows[0].EngagementRate.Valid)
}

func TestParseCSV_MissingColumns(t *testing.T) {
	header := strings.Replace(csvHeader, "likes,", "", 1)
	header = strings.Replace(header, "traffic_source,", "", 1)

	_, err := ParseCSV(strings.NewReader(header + "\n"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "traffic_source,likes", appErr.Context["missing_columns"])
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	table, err := ParseCSV(strings.NewReader(csvHeader + "\n"))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestParseXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := strings.Split(csvHeader, ",")
	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &headerCells))
	row := []interface{}{"p1", "2023-02-01", "Carousel", "Food", "Hashtags", 80, 4, 50, 5, 2, 1, 700, 900, 6, 0.07}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ParseFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, table.Source)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "p1", table.Rows[0].PostID)
	assert.Equal(t, str("Carousel"), table.Rows[0].MediaType)
	assert.Equal(t, num(50), table.Rows[0].Likes)
	assert.Equal(t, num(0.07), table.Rows[0].EngagementRate)

	_, err = ParseXLSX(path, "NoSuchSheet")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csvHeader+"\np1,2023-01-05,Reel,Travel,Explore,1,1,1,1,1,1,1,1,1,0.1\n"), 0644))

	table, err := ParseFile(csvPath, "")
	require.NoError(t, err)
	assert.Equal(t, csvPath, table.Source)
	assert.Len(t, table.Rows, 1)

	tests := []struct {
		name    string
		path    string
		errType apperrors.ErrorType
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.csv"), errType: apperrors.ErrTypeParsing},
		{name: "unsupported extension", path: filepath.Join(dir, "raw.json"), errType: apperrors.ErrTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile(tt.path, "")
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType))
		})
	}
}

func TestRequiredColumnsExcludeEngagementRate(t *testing.T) {
	assert.NotContains(t, domain.RequiredColumns, domain.ColEngagementRate)
	assert.Len(t, domain.RequiredColumns, 14)
}
