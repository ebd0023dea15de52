package warehouse

import "instaetl/pkg/contracts/domain"

// columnMapping renames an output column to its warehouse column
type columnMapping struct {
	Source string
	Target string
}

// tableSpec describes where one output table lands in the warehouse
type tableSpec struct {
	Target  string
	Columns []columnMapping
}

var tableSpecs = map[string]tableSpec{
	domain.TableTime: {
		Target: "Time_Dim",
		Columns: []columnMapping{
			{domain.ColUploadDate, "UploadDate"},
			{domain.ColYear, "Year"},
			{domain.ColMonth, "Month"},
			{domain.ColDay, "Day"},
		},
	},
	domain.TableContent: {
		Target: "Content_Dim",
		Columns: []columnMapping{
			{domain.ColContentID, "ContentID"},
			{domain.ColMediaType, "MediaType"},
			{domain.ColContentCategory, "ContentCategory"},
			{domain.ColCaptionLength, "CaptionLength"},
			{domain.ColHashtagsCount, "HashtagsCount"},
		},
	},
	domain.TableMedia: {
		Target: "Media_Dim",
		Columns: []columnMapping{
			{domain.ColMediaID, "MediaID"},
			{domain.ColMediaType, "MediaType"},
		},
	},
	domain.TableTraffic: {
		Target: "Traffic_Dim",
		Columns: []columnMapping{
			{domain.ColTrafficID, "TrafficID"},
			{domain.ColTrafficSource, "TrafficSource"},
		},
	},
	domain.TableFact: {
		Target: "Instagram_Fact",
		Columns: []columnMapping{
			{domain.ColPostID, "PostID"},
			{domain.ColUploadDate, "UploadDate"},
			{domain.ColContentID, "ContentID"},
			{domain.ColMediaID, "MediaID"},
			{domain.ColTrafficID, "TrafficID"},
			{domain.ColLikes, "Likes"},
			{domain.ColComments, "Comments"},
			{domain.ColShares, "Shares"},
			{domain.ColSaves, "Saves"},
			{domain.ColReach, "Reach"},
			{domain.ColImpressions, "Impressions"},
			{domain.ColFollowersGained, "FollowersGained"},
			{domain.ColCaptionLength, "CaptionLength"},
			{domain.ColHashtagsCount, "HashtagsCount"},
			{domain.ColEngagementRate, "EngagementRate"},
			{domain.ColTotalEngagement, "TotalEngagement"},
			{domain.ColEngagementGrowthRate, "EngagementGrowthRate"},
			{domain.ColHighEngagementFlag, "HighEngagementFlag"},
			{domain.ColAvgEngagementByMedia, "AvgEngagementByMedia"},
			{domain.ColTrafficSource, "TrafficSource"},
		},
	},
}

// LoadOrder lists the warehouse tables with every dimension ahead of the
// fact table that references them.
var LoadOrder = []string{
	domain.TableTime,
	domain.TableContent,
	domain.TableMedia,
	domain.TableTraffic,
	domain.TableFact,
}

// TargetTable returns the warehouse table an output table is loaded into
func TargetTable(name string) (string, bool) {
	spec, ok := tableSpecs[name]
	return spec.Target, ok
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS Time_Dim (
		UploadDate DATE PRIMARY KEY,
		Year INTEGER,
		Month INTEGER,
		Day INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS Content_Dim (
		ContentID INTEGER PRIMARY KEY,
		MediaType VARCHAR(50),
		ContentCategory VARCHAR(50),
		CaptionLength INTEGER,
		HashtagsCount INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS Media_Dim (
		MediaID INTEGER PRIMARY KEY,
		MediaType VARCHAR(50)
	)`,
	`CREATE TABLE IF NOT EXISTS Traffic_Dim (
		TrafficID INTEGER PRIMARY KEY,
		TrafficSource VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS Instagram_Fact (
		PostID VARCHAR(50) PRIMARY KEY,
		UploadDate DATE,
		ContentID INTEGER,
		MediaID INTEGER,
		TrafficID INTEGER,
		Likes INTEGER,
		Comments INTEGER,
		Shares INTEGER,
		Saves INTEGER,
		Reach INTEGER,
		Impressions INTEGER,
		FollowersGained INTEGER,
		CaptionLength INTEGER,
		HashtagsCount INTEGER,
		EngagementRate REAL,
		TotalEngagement INTEGER,
		EngagementGrowthRate REAL,
		HighEngagementFlag TINYINT,
		AvgEngagementByMedia REAL,
		TrafficSource VARCHAR(100),
		FOREIGN KEY (ContentID) REFERENCES Content_Dim(ContentID),
		FOREIGN KEY (UploadDate) REFERENCES Time_Dim(UploadDate),
		FOREIGN KEY (MediaID) REFERENCES Media_Dim(MediaID),
		FOREIGN KEY (TrafficID) REFERENCES Traffic_Dim(TrafficID)
	)`,
}
