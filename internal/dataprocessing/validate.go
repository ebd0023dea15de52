package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

// AllowedFactNulls are the fact columns that may legitimately be null.
// The first observed month has no growth rate.
var AllowedFactNulls = []string{domain.ColEngagementGrowthRate}

// ValidateFact fails with an INTEGRITY error if any fact column outside
// AllowedFactNulls holds a null.
func ValidateFact(facts []domain.FactRow) error {
	return ValidateNulls(domain.FactView(facts), AllowedFactNulls...)
}

// ValidateNulls scans every cell of table and reports the columns, other than
// allowed, that contain nulls together with how many rows are affected.
func ValidateNulls(table domain.Table, allowed ...string) error {
	allow := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		allow[c] = true
	}

	columns := table.Columns()
	nulls := make([]int, len(columns))
	for i := 0; i < table.Len(); i++ {
		for j, v := range table.Row(i) {
			if domain.IsNull(v) {
				nulls[j]++
			}
		}
	}

	var offending []string
	for j, c := range columns {
		if nulls[j] > 0 && !allow[c] {
			offending = append(offending, fmt.Sprintf("%s (%d rows)", c, nulls[j]))
		}
	}
	if len(offending) == 0 {
		return nil
	}

	return apperrors.NewIntegrityError(
		fmt.Sprintf("unexpected nulls in %s: %s", table.Name(), strings.Join(offending, ", "))).
		WithContext("table", table.Name())
}

// ValidateStarSchema checks key uniqueness in every table and that each fact
// row references existing dimension rows. media_id and traffic_id may also
// be domain.UnmatchedKey.
func ValidateStarSchema(dims domain.Dimensions, facts []domain.FactRow) error {
	var problems []string

	dates := make(map[time.Time]bool, len(dims.Time))
	for _, d := range dims.Time {
		if dates[d.Date] {
			problems = append(problems, fmt.Sprintf("%s: duplicate date %s", domain.TableTime, d.Date.Format(domain.DateLayout)))
		}
		dates[d.Date] = true
	}

	contentIDs := make(map[int64]bool, len(dims.Content))
	contentKeys := make(map[domain.ContentKey]bool, len(dims.Content))
	for _, d := range dims.Content {
		if contentIDs[d.ContentID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate content_id %d", domain.TableContent, d.ContentID))
		}
		if contentKeys[d.ContentKey] {
			problems = append(problems, fmt.Sprintf("%s: duplicate content attributes %+v", domain.TableContent, d.ContentKey))
		}
		contentIDs[d.ContentID] = true
		contentKeys[d.ContentKey] = true
	}

	mediaIDs := make(map[int64]bool, len(dims.Media))
	mediaTypes := make(map[string]bool, len(dims.Media))
	for _, d := range dims.Media {
		if mediaIDs[d.MediaID] || mediaTypes[d.MediaType] {
			problems = append(problems, fmt.Sprintf("%s: duplicate row %d/%q", domain.TableMedia, d.MediaID, d.MediaType))
		}
		mediaIDs[d.MediaID] = true
		mediaTypes[d.MediaType] = true
	}

	trafficIDs := make(map[int64]bool, len(dims.Traffic))
	trafficSources := make(map[string]bool, len(dims.Traffic))
	for _, d := range dims.Traffic {
		if trafficIDs[d.TrafficID] || trafficSources[d.TrafficSource] {
			problems = append(problems, fmt.Sprintf("%s: duplicate row %d/%q", domain.TableTraffic, d.TrafficID, d.TrafficSource))
		}
		trafficIDs[d.TrafficID] = true
		trafficSources[d.TrafficSource] = true
	}

	postIDs := make(map[string]bool, len(facts))
	dangling := make(map[string]int)
	for _, f := range facts {
		if postIDs[f.PostID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate post_id %q", domain.TableFact, f.PostID))
		}
		postIDs[f.PostID] = true

		if !dates[f.Date] {
			dangling[domain.ColUploadDate]++
		}
		if f.ContentID.Valid && !contentIDs[f.ContentID.Int64] {
			dangling[domain.ColContentID]++
		}
		if f.MediaID != domain.UnmatchedKey && !mediaIDs[f.MediaID] {
			dangling[domain.ColMediaID]++
		}
		if f.TrafficID != domain.UnmatchedKey && !trafficIDs[f.TrafficID] {
			dangling[domain.ColTrafficID]++
		}
	}

	cols := make([]string, 0, len(dangling))
	for c := range dangling {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		problems = append(problems, fmt.Sprintf("%s: %d rows reference a missing %s", domain.TableFact, dangling[c], c))
	}

	if len(problems) == 0 {
		return nil
	}
	return apperrors.NewIntegrityError("star schema check failed: " + strings.Join(problems, "; ")).
		WithContext("problems", len(problems))
}
