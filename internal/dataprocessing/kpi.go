package dataprocessing

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

// Denominators accepted by the engagement rate policy.
const (
	DenominatorFollowersGained = "followers_gained"
	DenominatorImpressions     = "impressions"
	DenominatorTotal           = "total"
)

// DefaultEngagementRatePolicy is the fallback order used when the input has
// no engagement_rate column.
var DefaultEngagementRatePolicy = []string{
	DenominatorFollowersGained,
	DenominatorImpressions,
	DenominatorTotal,
}

// KPIDeriver appends the KPI columns to cleaned posts.
type KPIDeriver struct {
	policy []string
	logger *slog.Logger
}

// NewKPIDeriver creates a deriver. policy orders the denominators tried when
// engagement_rate has to be derived; empty means DefaultEngagementRatePolicy.
func NewKPIDeriver(policy []string, logger *slog.Logger) (*KPIDeriver, error) {
	if len(policy) == 0 {
		policy = DefaultEngagementRatePolicy
	}
	for _, p := range policy {
		switch p {
		case DenominatorFollowersGained, DenominatorImpressions, DenominatorTotal:
		default:
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("unknown engagement rate denominator %q", p))
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KPIDeriver{
		policy: append([]string(nil), policy...),
		logger: logger.With("component", "kpi_deriver"),
	}, nil
}

// Derive computes total_engagement, the month-over-month engagement growth
// rate, the high engagement flag and the per-media-type average. Every input
// row yields exactly one output row in the same order.
func (d *KPIDeriver) Derive(ctx context.Context, cleaned *domain.CleanTable) ([]domain.KPIRecord, error) {
	if cleaned == nil {
		return nil, apperrors.NewAppValidationError("cleaned table is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]domain.KPIRecord, len(cleaned.Posts))
	if len(records) == 0 {
		return records, nil
	}

	var grandTotal int64
	monthly := make(map[time.Time]int64)
	type mediaAgg struct {
		sum   int64
		count int
	}
	byMedia := make(map[string]*mediaAgg)

	for i, p := range cleaned.Posts {
		total := p.EngagementSum()
		month := time.Date(p.UploadDate.Year(), p.UploadDate.Month(), 1, 0, 0, 0, 0, time.UTC)

		rec := domain.KPIRecord{
			Post:            p,
			TotalEngagement: total,
			YearMonth:       month,
		}
		if !cleaned.HasEngagementRate {
			rec.EngagementRate = d.engagementRate(p, total)
		}
		records[i] = rec

		grandTotal += total
		monthly[month] += total
		agg, ok := byMedia[p.MediaType]
		if !ok {
			agg = &mediaAgg{}
			byMedia[p.MediaType] = agg
		}
		agg.sum += total
		agg.count++
	}

	growth := monthlyGrowth(monthly)
	mean := float64(grandTotal) / float64(len(records))

	for i := range records {
		rec := &records[i]
		rec.EngagementGrowthRate = growth[rec.YearMonth]
		rec.HighEngagementFlag = float64(rec.TotalEngagement) > mean
		agg := byMedia[rec.MediaType]
		rec.AvgEngagementByMedia = float64(agg.sum) / float64(agg.count)
	}

	d.logger.InfoContext(ctx, "KPIs derived",
		slog.Int("rows", len(records)),
		slog.Int("months", len(monthly)),
		slog.Int("media_types", len(byMedia)),
		slog.Float64("mean_total_engagement", mean),
		slog.Bool("engagement_rate_derived", !cleaned.HasEngagementRate))

	return records, nil
}

// engagementRate divides total engagement by the first non-zero denominator
// of the policy. "total" yields the raw total.
func (d *KPIDeriver) engagementRate(p domain.Post, total int64) float64 {
	for _, denom := range d.policy {
		switch denom {
		case DenominatorFollowersGained:
			if p.FollowersGained != 0 {
				return float64(total) / float64(p.FollowersGained)
			}
		case DenominatorImpressions:
			if p.Impressions != 0 {
				return float64(total) / float64(p.Impressions)
			}
		case DenominatorTotal:
			return float64(total)
		}
	}
	return 0
}

// monthlyGrowth computes the percent change of each month's engagement sum
// against the previous observed month. The first month, and any month whose
// predecessor summed to zero, has no growth rate.
func monthlyGrowth(monthly map[time.Time]int64) map[time.Time]sql.NullFloat64 {
	months := make([]time.Time, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	growth := make(map[time.Time]sql.NullFloat64, len(months))
	for i, m := range months {
		if i == 0 {
			growth[m] = sql.NullFloat64{}
			continue
		}
		prev := monthly[months[i-1]]
		if prev == 0 {
			growth[m] = sql.NullFloat64{}
			continue
		}
		growth[m] = sql.NullFloat64{
			Float64: float64(monthly[m]-prev) / float64(prev),
			Valid:   true,
		}
	}
	return growth
}
