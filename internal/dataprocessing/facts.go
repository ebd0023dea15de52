package dataprocessing

import (
	"database/sql"

	"instaetl/pkg/contracts/domain"
)

// Assemble left-joins every KPI row against the content, media and traffic
// dimensions. Rows are never dropped: a media type or traffic source with no
// dimension row gets domain.UnmatchedKey, an unmatched content tuple leaves
// content_id null for ValidateFact to catch.
func Assemble(kpis []domain.KPIRecord, content []domain.ContentDim, media []domain.MediaDim, traffic []domain.TrafficDim) []domain.FactRow {
	contentIDs := make(map[domain.ContentKey]int64, len(content))
	for _, d := range content {
		if _, ok := contentIDs[d.ContentKey]; !ok {
			contentIDs[d.ContentKey] = d.ContentID
		}
	}
	mediaIDs := make(map[string]int64, len(media))
	for _, d := range media {
		if _, ok := mediaIDs[d.MediaType]; !ok {
			mediaIDs[d.MediaType] = d.MediaID
		}
	}
	trafficIDs := make(map[string]int64, len(traffic))
	for _, d := range traffic {
		if _, ok := trafficIDs[d.TrafficSource]; !ok {
			trafficIDs[d.TrafficSource] = d.TrafficID
		}
	}

	facts := make([]domain.FactRow, len(kpis))
	for i, r := range kpis {
		var contentID sql.NullInt64
		if id, ok := contentIDs[r.ContentKey()]; ok {
			contentID = sql.NullInt64{Int64: id, Valid: true}
		}

		mediaID, ok := mediaIDs[r.MediaType]
		if !ok {
			mediaID = domain.UnmatchedKey
		}
		trafficID, ok := trafficIDs[r.TrafficSource]
		if !ok {
			trafficID = domain.UnmatchedKey
		}

		facts[i] = domain.FactRow{
			PostID:    r.PostID,
			Date:      r.UploadDate,
			ContentID: contentID,
			MediaID:   mediaID,
			TrafficID: trafficID,

			Likes:           r.Likes,
			Comments:        r.Comments,
			Shares:          r.Shares,
			Saves:           r.Saves,
			Reach:           r.Reach,
			Impressions:     r.Impressions,
			FollowersGained: r.FollowersGained,
			CaptionLength:   r.CaptionLength,
			HashtagsCount:   r.HashtagsCount,

			EngagementRate:       r.EngagementRate,
			TotalEngagement:      r.TotalEngagement,
			EngagementGrowthRate: r.EngagementGrowthRate,
			HighEngagementFlag:   r.HighEngagementFlag,
			AvgEngagementByMedia: r.AvgEngagementByMedia,
			TrafficSource:        r.TrafficSource,
		}
	}

	return facts
}
