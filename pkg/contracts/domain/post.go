package domain

import (
	"database/sql"
	"time"
)

// Column names of the raw post export. The same names are used for the
// cleaned and KPI tables.
const (
	ColPostID          = "post_id"
	ColUploadDate      = "upload_date"
	ColMediaType       = "media_type"
	ColContentCategory = "content_category"
	ColTrafficSource   = "traffic_source"
	ColCaptionLength   = "caption_length"
	ColHashtagsCount   = "hashtags_count"
	ColLikes           = "likes"
	ColComments        = "comments"
	ColShares          = "shares"
	ColSaves           = "saves"
	ColReach           = "reach"
	ColImpressions     = "impressions"
	ColFollowersGained = "followers_gained"
	ColEngagementRate  = "engagement_rate"

	ColTotalEngagement      = "total_engagement"
	ColYearMonth            = "year_month"
	ColEngagementGrowthRate = "engagement_growth_rate"
	ColHighEngagementFlag   = "high_engagement_flag"
	ColAvgEngagementByMedia = "avg_engagement_by_media"
)

// RequiredColumns lists the columns every raw input must carry.
// engagement_rate is optional.
var RequiredColumns = []string{
	ColPostID,
	ColUploadDate,
	ColMediaType,
	ColContentCategory,
	ColTrafficSource,
	ColCaptionLength,
	ColHashtagsCount,
	ColLikes,
	ColComments,
	ColShares,
	ColSaves,
	ColReach,
	ColImpressions,
	ColFollowersGained,
}

// DateLayout is the canonical calendar date format used on output.
const DateLayout = "2006-01-02"

// RawPost is one row of the raw export. Empty cells are null.
type RawPost struct {
	PostID     string
	UploadDate string

	MediaType       sql.NullString
	ContentCategory sql.NullString
	TrafficSource   sql.NullString

	CaptionLength   sql.NullFloat64
	HashtagsCount   sql.NullFloat64
	Likes           sql.NullFloat64
	Comments        sql.NullFloat64
	Shares          sql.NullFloat64
	Saves           sql.NullFloat64
	Reach           sql.NullFloat64
	Impressions     sql.NullFloat64
	FollowersGained sql.NullFloat64
	EngagementRate  sql.NullFloat64
}

// RawTable is the parsed raw input in file order.
type RawTable struct {
	Source            string
	Columns           []string
	Rows              []RawPost
	HasEngagementRate bool
}

// Post is a cleaned post record. Every field is populated.
type Post struct {
	PostID     string    `json:"post_id" csv:"post_id"`
	UploadDate time.Time `json:"upload_date" csv:"upload_date"`

	MediaType       string `json:"media_type" csv:"media_type"`
	ContentCategory string `json:"content_category" csv:"content_category"`
	TrafficSource   string `json:"traffic_source" csv:"traffic_source"`

	CaptionLength   int64 `json:"caption_length" csv:"caption_length"`
	HashtagsCount   int64 `json:"hashtags_count" csv:"hashtags_count"`
	Likes           int64 `json:"likes" csv:"likes"`
	Comments        int64 `json:"comments" csv:"comments"`
	Shares          int64 `json:"shares" csv:"shares"`
	Saves           int64 `json:"saves" csv:"saves"`
	Reach           int64 `json:"reach" csv:"reach"`
	Impressions     int64 `json:"impressions" csv:"impressions"`
	FollowersGained int64 `json:"followers_gained" csv:"followers_gained"`

	EngagementRate float64 `json:"engagement_rate" csv:"engagement_rate"`
}

// CleanTable is the Cleaner's output. HasEngagementRate mirrors the raw input:
// when false, EngagementRate is zero until the KPI stage derives it.
type CleanTable struct {
	Posts             []Post
	HasEngagementRate bool
}

// KPIRecord is a cleaned post with the derived KPI columns appended.
type KPIRecord struct {
	Post

	TotalEngagement      int64           `json:"total_engagement" csv:"total_engagement"`
	YearMonth            time.Time       `json:"year_month" csv:"year_month"`
	EngagementGrowthRate sql.NullFloat64 `json:"engagement_growth_rate" csv:"engagement_growth_rate"`
	HighEngagementFlag   bool            `json:"high_engagement_flag" csv:"high_engagement_flag"`
	AvgEngagementByMedia float64         `json:"avg_engagement_by_media" csv:"avg_engagement_by_media"`
}

// ContentKey is the natural key of the content dimension.
type ContentKey struct {
	MediaType       string `json:"media_type" csv:"media_type"`
	ContentCategory string `json:"content_category" csv:"content_category"`
	CaptionLength   int64  `json:"caption_length" csv:"caption_length"`
	HashtagsCount   int64  `json:"hashtags_count" csv:"hashtags_count"`
}

// ContentKey returns the content attribute tuple of the post.
func (p Post) ContentKey() ContentKey {
	return ContentKey{
		MediaType:       p.MediaType,
		ContentCategory: p.ContentCategory,
		CaptionLength:   p.CaptionLength,
		HashtagsCount:   p.HashtagsCount,
	}
}

// EngagementSum is likes + comments + shares + saves.
func (p Post) EngagementSum() int64 {
	return p.Likes + p.Comments + p.Shares + p.Saves
}
