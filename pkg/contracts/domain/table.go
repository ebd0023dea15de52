package domain

import (
	"database/sql"
	"math"
	"time"
)

// Table names used for sinks and warehouse destinations.
const (
	TableCleaned = "cleaned"
	TableKPI     = "kpi"
	TableTime    = "time_dim"
	TableContent = "content_dim"
	TableMedia   = "media_dim"
	TableTraffic = "traffic_dim"
	TableFact    = "instagram_fact"
)

// YearMonthLayout formats the internal month period.
const YearMonthLayout = "2006-01"

// Table is a read-only, column-typed view over one output table.
// A nil cell, a NaN float64 or a zero time.Time is a null.
type Table interface {
	Name() string
	Columns() []string
	Len() int
	Row(i int) []any
}

// IsNull reports whether a cell value counts as null.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case time.Time:
		return x.IsZero()
	}
	return false
}

var postColumns = []string{
	ColPostID, ColUploadDate,
	ColMediaType, ColContentCategory, ColTrafficSource,
	ColCaptionLength, ColHashtagsCount,
	ColLikes, ColComments, ColShares, ColSaves,
	ColReach, ColImpressions, ColFollowersGained,
}

func postRow(p Post) []any {
	return []any{
		p.PostID, p.UploadDate,
		p.MediaType, p.ContentCategory, p.TrafficSource,
		p.CaptionLength, p.HashtagsCount,
		p.Likes, p.Comments, p.Shares, p.Saves,
		p.Reach, p.Impressions, p.FollowersGained,
	}
}

func nullFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullInt(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

// CleanedView exposes the Cleaner output. engagement_rate is only present
// when the raw input carried it.
type CleanedView struct {
	Table CleanTable
}

func (v CleanedView) Name() string { return TableCleaned }
func (v CleanedView) Len() int     { return len(v.Table.Posts) }

func (v CleanedView) Columns() []string {
	cols := append([]string(nil), postColumns...)
	if v.Table.HasEngagementRate {
		cols = append(cols, ColEngagementRate)
	}
	return cols
}

func (v CleanedView) Row(i int) []any {
	p := v.Table.Posts[i]
	row := postRow(p)
	if v.Table.HasEngagementRate {
		row = append(row, p.EngagementRate)
	}
	return row
}

// KPIView exposes the cleaned table with KPI columns appended.
type KPIView []KPIRecord

func (v KPIView) Name() string { return TableKPI }
func (v KPIView) Len() int     { return len(v) }

func (v KPIView) Columns() []string {
	cols := append([]string(nil), postColumns...)
	return append(cols,
		ColEngagementRate,
		ColTotalEngagement,
		ColYearMonth,
		ColEngagementGrowthRate,
		ColHighEngagementFlag,
		ColAvgEngagementByMedia,
	)
}

func (v KPIView) Row(i int) []any {
	r := v[i]
	return append(postRow(r.Post),
		r.EngagementRate,
		r.TotalEngagement,
		r.YearMonth.Format(YearMonthLayout),
		nullFloat(r.EngagementGrowthRate),
		r.HighEngagementFlag,
		r.AvgEngagementByMedia,
	)
}

// TimeDimView exposes the time dimension.
type TimeDimView []TimeDim

func (v TimeDimView) Name() string      { return TableTime }
func (v TimeDimView) Len() int          { return len(v) }
func (v TimeDimView) Columns() []string { return []string{ColUploadDate, ColYear, ColMonth, ColDay} }

func (v TimeDimView) Row(i int) []any {
	d := v[i]
	return []any{d.Date, d.Year, d.Month, d.Day}
}

// ContentDimView exposes the content dimension.
type ContentDimView []ContentDim

func (v ContentDimView) Name() string { return TableContent }
func (v ContentDimView) Len() int     { return len(v) }

func (v ContentDimView) Columns() []string {
	return []string{ColMediaType, ColContentCategory, ColCaptionLength, ColHashtagsCount, ColContentID}
}

func (v ContentDimView) Row(i int) []any {
	d := v[i]
	return []any{d.MediaType, d.ContentCategory, d.CaptionLength, d.HashtagsCount, d.ContentID}
}

// MediaDimView exposes the media dimension.
type MediaDimView []MediaDim

func (v MediaDimView) Name() string      { return TableMedia }
func (v MediaDimView) Len() int          { return len(v) }
func (v MediaDimView) Columns() []string { return []string{ColMediaType, ColMediaID} }
func (v MediaDimView) Row(i int) []any   { return []any{v[i].MediaType, v[i].MediaID} }

// TrafficDimView exposes the traffic dimension.
type TrafficDimView []TrafficDim

func (v TrafficDimView) Name() string      { return TableTraffic }
func (v TrafficDimView) Len() int          { return len(v) }
func (v TrafficDimView) Columns() []string { return []string{ColTrafficSource, ColTrafficID} }
func (v TrafficDimView) Row(i int) []any   { return []any{v[i].TrafficSource, v[i].TrafficID} }

// FactColumns is the fixed column order of the fact table.
var FactColumns = []string{
	ColPostID, ColUploadDate, ColContentID, ColMediaID, ColTrafficID,
	ColLikes, ColComments, ColShares, ColSaves,
	ColReach, ColImpressions, ColFollowersGained,
	ColCaptionLength, ColHashtagsCount,
	ColEngagementRate, ColTotalEngagement, ColEngagementGrowthRate,
	ColHighEngagementFlag, ColAvgEngagementByMedia, ColTrafficSource,
}

// FactView exposes the fact table.
type FactView []FactRow

func (v FactView) Name() string      { return TableFact }
func (v FactView) Len() int          { return len(v) }
func (v FactView) Columns() []string { return append([]string(nil), FactColumns...) }

func (v FactView) Row(i int) []any {
	f := v[i]
	var postID any = f.PostID
	if f.PostID == "" {
		postID = nil
	}
	return []any{
		postID, f.Date, nullInt(f.ContentID), f.MediaID, f.TrafficID,
		f.Likes, f.Comments, f.Shares, f.Saves,
		f.Reach, f.Impressions, f.FollowersGained,
		f.CaptionLength, f.HashtagsCount,
		f.EngagementRate, f.TotalEngagement, nullFloat(f.EngagementGrowthRate),
		f.HighEngagementFlag, f.AvgEngagementByMedia, f.TrafficSource,
	}
}
