package dataprocessing

import (
	"time"

	"instaetl/pkg/contracts/domain"
)

// BuildDimensions projects the KPI table into the time, content, media and
// traffic dimensions. Each dimension keeps its distinct values in order of
// first appearance in kpis; surrogate keys are the 1-based position in that
// order, so the same input always yields the same keys.
func BuildDimensions(kpis []domain.KPIRecord) domain.Dimensions {
	dims := domain.Dimensions{
		Time:    []domain.TimeDim{},
		Content: []domain.ContentDim{},
		Media:   []domain.MediaDim{},
		Traffic: []domain.TrafficDim{},
	}

	seenDates := make(map[time.Time]struct{})
	seenContent := make(map[domain.ContentKey]struct{})
	seenMedia := make(map[string]struct{})
	seenTraffic := make(map[string]struct{})

	for _, r := range kpis {
		if _, ok := seenDates[r.UploadDate]; !ok {
			seenDates[r.UploadDate] = struct{}{}
			dims.Time = append(dims.Time, domain.TimeDim{
				Date:  r.UploadDate,
				Year:  r.UploadDate.Year(),
				Month: int(r.UploadDate.Month()),
				Day:   r.UploadDate.Day(),
			})
		}

		key := r.ContentKey()
		if _, ok := seenContent[key]; !ok {
			seenContent[key] = struct{}{}
			dims.Content = append(dims.Content, domain.ContentDim{
				ContentKey: key,
				ContentID:  int64(len(dims.Content) + 1),
			})
		}

		if _, ok := seenMedia[r.MediaType]; !ok {
			seenMedia[r.MediaType] = struct{}{}
			dims.Media = append(dims.Media, domain.MediaDim{
				MediaType: r.MediaType,
				MediaID:   int64(len(dims.Media) + 1),
			})
		}

		if _, ok := seenTraffic[r.TrafficSource]; !ok {
			seenTraffic[r.TrafficSource] = struct{}{}
			dims.Traffic = append(dims.Traffic, domain.TrafficDim{
				TrafficSource: r.TrafficSource,
				TrafficID:     int64(len(dims.Traffic) + 1),
			})
		}
	}

	return dims
}
