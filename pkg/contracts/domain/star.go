package domain

import (
	"database/sql"
	"time"
)

// Star schema column names that are not shared with the post tables.
const (
	ColYear      = "year"
	ColMonth     = "month"
	ColDay       = "day"
	ColContentID = "content_id"
	ColMediaID   = "media_id"
	ColTrafficID = "traffic_id"
)

// UnmatchedKey is the sentinel surrogate key for a fact row whose media type or
// traffic source has no dimension row. It is distinct from null.
const UnmatchedKey int64 = 0

// TimeDim is keyed by the calendar date itself.
type TimeDim struct {
	Date  time.Time `json:"upload_date" csv:"upload_date"`
	Year  int       `json:"year" csv:"year"`
	Month int       `json:"month" csv:"month"`
	Day   int       `json:"day" csv:"day"`
}

// ContentDim is a distinct (media_type, content_category, caption_length,
// hashtags_count) combination with its surrogate key.
type ContentDim struct {
	ContentKey
	ContentID int64 `json:"content_id" csv:"content_id"`
}

// MediaDim is a distinct media type with its surrogate key.
type MediaDim struct {
	MediaType string `json:"media_type" csv:"media_type"`
	MediaID   int64  `json:"media_id" csv:"media_id"`
}

// TrafficDim is a distinct traffic source with its surrogate key.
type TrafficDim struct {
	TrafficSource string `json:"traffic_source" csv:"traffic_source"`
	TrafficID     int64  `json:"traffic_id" csv:"traffic_id"`
}

// FactRow is one post in the fact table. ContentID stays nullable so a broken
// content join is visible to validation; MediaID and TrafficID fall back to
// UnmatchedKey instead.
type FactRow struct {
	PostID    string        `json:"post_id" csv:"post_id"`
	Date      time.Time     `json:"upload_date" csv:"upload_date"`
	ContentID sql.NullInt64 `json:"content_id" csv:"content_id"`
	MediaID   int64         `json:"media_id" csv:"media_id"`
	TrafficID int64         `json:"traffic_id" csv:"traffic_id"`

	Likes           int64 `json:"likes" csv:"likes"`
	Comments        int64 `json:"comments" csv:"comments"`
	Shares          int64 `json:"shares" csv:"shares"`
	Saves           int64 `json:"saves" csv:"saves"`
	Reach           int64 `json:"reach" csv:"reach"`
	Impressions     int64 `json:"impressions" csv:"impressions"`
	FollowersGained int64 `json:"followers_gained" csv:"followers_gained"`
	CaptionLength   int64 `json:"caption_length" csv:"caption_length"`
	HashtagsCount   int64 `json:"hashtags_count" csv:"hashtags_count"`

	EngagementRate       float64         `json:"engagement_rate" csv:"engagement_rate"`
	TotalEngagement      int64           `json:"total_engagement" csv:"total_engagement"`
	EngagementGrowthRate sql.NullFloat64 `json:"engagement_growth_rate" csv:"engagement_growth_rate"`
	HighEngagementFlag   bool            `json:"high_engagement_flag" csv:"high_engagement_flag"`
	AvgEngagementByMedia float64         `json:"avg_engagement_by_media" csv:"avg_engagement_by_media"`
	TrafficSource        string          `json:"traffic_source" csv:"traffic_source"`
}

// Dimensions groups the four dimension tables produced from one KPI table.
type Dimensions struct {
	Time    []TimeDim
	Content []ContentDim
	Media   []MediaDim
	Traffic []TrafficDim
}
