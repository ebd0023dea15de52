package dataprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

func post(id, day, media string, likes, comments, shares, saves int64) domain.Post {
	return domain.Post{
		PostID:          id,
		UploadDate:      date(day),
		MediaType:       media,
		ContentCategory: "Travel",
		TrafficSource:   "Explore",
		Likes:           likes,
		Comments:        comments,
		Shares:          shares,
		Saves:           saves,
		Impressions:     1000,
		FollowersGained: 10,
		EngagementRate:  0.3,
	}
}

func newTestDeriver(t *testing.T, policy ...string) *KPIDeriver {
	t.Helper()
	d, err := NewKPIDeriver(policy, testLogger())
	require.NoError(t, err)
	return d
}

func TestDerive_MonthOverMonthGrowth(t *testing.T) {
	ctx := context.Background()

	cleaned := &domain.CleanTable{
		HasEngagementRate: true,
		Posts: []domain.Post{
			post("p1", "2023-01-03", "Reel", 100, 0, 0, 0),
			post("p2", "2023-01-20", "Reel", 200, 0, 0, 0),
			post("p3", "2023-02-11", "Photo", 150, 0, 0, 0),
		},
	}

	kpis, err := newTestDeriver(t).Derive(ctx, cleaned)
	require.NoError(t, err)
	require.Len(t, kpis, 3)

	assert.False(t, kpis[0].EngagementGrowthRate.Valid, "first month has no growth rate")
	assert.False(t, kpis[1].EngagementGrowthRate.Valid)
	require.True(t, kpis[2].EngagementGrowthRate.Valid)
	assert.InDelta(t, -0.5, kpis[2].EngagementGrowthRate.Float64, 1e-9)

	assert.Equal(t, "2023-02", kpis[2].YearMonth.Format(domain.YearMonthLayout))
}

func TestDerive_GrowthFollowsChronologicalOrder(t *testing.T) {
	ctx := context.Background()

	cleaned := &domain.CleanTable{
		HasEngagementRate: true,
		Posts: []domain.Post{
			post("p1", "2023-03-01", "Reel", 300, 0, 0, 0),
			post("p2", "2023-01-01", "Reel", 100, 0, 0, 0),
			post("p3", "2023-05-01", "Reel", 150, 0, 0, 0),
		},
	}

	kpis, err := newTestDeriver(t).Derive(ctx, cleaned)
	require.NoError(t, err)

	assert.False(t, kpis[1].EngagementGrowthRate.Valid, "January is the earliest month")
	assert.InDelta(t, 2.0, kpis[0].EngagementGrowthRate.Float64, 1e-9, "March against January")
	assert.InDelta(t, -0.5, kpis[2].EngagementGrowthRate.Float64, 1e-9, "May against March")
}

func TestDerive_ZeroPreviousMonthIsNull(t *testing.T) {
	ctx := context.Background()

	cleaned := &domain.CleanTable{
		HasEngagementRate: true,
		Posts: []domain.Post{
			post("p1", "2023-01-01", "Reel", 0, 0, 0, 0),
			post("p2", "2023-02-01", "Reel", 10, 0, 0, 0),
		},
	}

	kpis, err := newTestDeriver(t).Derive(ctx, cleaned)
	require.NoError(t, err)
	assert.False(t, kpis[1].EngagementGrowthRate.Valid)
}

func TestDerive_TotalFlagAndMediaAverage(t *testing.T) {
	ctx := context.Background()

	cleaned := &domain.CleanTable{
		HasEngagementRate: true,
		Posts: []domain.Post{
			post("p1", "2023-01-01", "Reel", 10, 5, 3, 2),
			post("p2", "2023-01-02", "Reel", 40, 0, 0, 0),
			post("p3", "2023-01-03", "Photo", 30, 0, 0, 0),
		},
	}

	kpis, err := newTestDeriver(t).Derive(ctx, cleaned)
	require.NoError(t, err)

	for _, k := range kpis {
		assert.Equal(t, k.Likes+k.Comments+k.Shares+k.Saves, k.TotalEngagement, k.PostID)
	}

	// mean total is 30: only p2 is strictly above it
	assert.False(t, kpis[0].HighEngagementFlag)
	assert.True(t, kpis[1].HighEngagementFlag)
	assert.False(t, kpis[2].HighEngagementFlag)

	assert.InDelta(t, 30.0, kpis[0].AvgEngagementByMedia, 1e-9)
	assert.InDelta(t, 30.0, kpis[1].AvgEngagementByMedia, 1e-9)
	assert.InDelta(t, 30.0, kpis[2].AvgEngagementByMedia, 1e-9)

	assert.Equal(t, 0.3, kpis[0].EngagementRate, "present engagement_rate is kept")
	assert.Equal(t, cleaned.Posts[0], kpis[0].Post)
}

func TestDerive_EngagementRatePolicy(t *testing.T) {
	ctx := context.Background()

	base := post("p1", "2023-01-01", "Reel", 40, 10, 0, 0)
	noFollowers := base
	noFollowers.FollowersGained = 0
	neither := noFollowers
	neither.Impressions = 0

	tests := []struct {
		name   string
		policy []string
		post   domain.Post
		want   float64
	}{
		{name: "followers first", policy: nil, post: base, want: 5.0},
		{name: "falls back to impressions", policy: nil, post: noFollowers, want: 0.05},
		{name: "falls back to total", policy: nil, post: neither, want: 50},
		{name: "impressions first", policy: []string{"impressions", "followers_gained"}, post: base, want: 0.05},
		{name: "no usable denominator", policy: []string{"followers_gained"}, post: noFollowers, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned := &domain.CleanTable{Posts: []domain.Post{tt.post}}
			kpis, err := newTestDeriver(t, tt.policy...).Derive(ctx, cleaned)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, kpis[0].EngagementRate, 1e-9)
		})
	}
}

func TestNewKPIDeriver_RejectsUnknownDenominator(t *testing.T) {
	_, err := NewKPIDeriver([]string{"reach"}, testLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestDerive_Empty(t *testing.T) {
	kpis, err := newTestDeriver(t).Derive(context.Background(), &domain.CleanTable{})
	require.NoError(t, err)
	assert.Empty(t, kpis)
}
