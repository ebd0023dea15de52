package dataprocessing

import (
	"bytes"
	"database/sql"
	"log/slog"
	"time"

	"instaetl/pkg/contracts/domain"
)

const csvHeader = "post_id,upload_date,media_type,content_category,traffic_source," +
	"caption_length,hashtags_count,likes,comments,shares,saves,reach,impressions,followers_gained,engagement_rate"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func num(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func str(v string) sql.NullString   { return sql.NullString{String: v, Valid: true} }

// rawPost builds a fully populated raw row; likes carries the whole
// engagement so total_engagement equals likes.
func rawPost(id, date, media string, likes float64) domain.RawPost {
	return domain.RawPost{
		PostID:          id,
		UploadDate:      date,
		MediaType:       str(media),
		ContentCategory: str("travel"),
		TrafficSource:   str("explore"),
		CaptionLength:   num(120),
		HashtagsCount:   num(5),
		Likes:           num(likes),
		Comments:        num(0),
		Shares:          num(0),
		Saves:           num(0),
		Reach:           num(1000),
		Impressions:     num(2000),
		FollowersGained: num(10),
		EngagementRate:  num(0.05),
	}
}

func rawTable(rows ...domain.RawPost) *domain.RawTable {
	return &domain.RawTable{
		Columns:           append(append([]string(nil), domain.RequiredColumns...), domain.ColEngagementRate),
		Rows:              rows,
		HasEngagementRate: true,
	}
}

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// kpiRecord builds a KPI row with the given categorical attributes.
func kpiRecord(id, day, media, category, traffic string, total int64) domain.KPIRecord {
	d := date(day)
	return domain.KPIRecord{
		Post: domain.Post{
			PostID:          id,
			UploadDate:      d,
			MediaType:       media,
			ContentCategory: category,
			TrafficSource:   traffic,
			CaptionLength:   100,
			HashtagsCount:   3,
			Likes:           total,
			Reach:           500,
			Impressions:     800,
			FollowersGained: 4,
			EngagementRate:  0.1,
		},
		TotalEngagement:      total,
		YearMonth:            time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC),
		EngagementGrowthRate: sql.NullFloat64{Float64: 0.25, Valid: true},
		AvgEngagementByMedia: float64(total),
	}
}
