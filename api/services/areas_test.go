package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/revocity/revocity/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAreaKey(t *testing.T) {
	assert.Equal(t, "Sector 5", AreaKey("  Sector 5 ", 1, 2))
	assert.Equal(t, "28.614,77.209", AreaKey("", 28.61392, 77.20901))
	assert.Equal(t, "-33.868,151.209", AreaKey("   ", -33.8679, 151.20932))
}

func TestRiskForOverflowCount(t *testing.T) {
	tests := []struct {
		count int
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{2, models.RiskLow},
		{3, models.RiskMedium},
		{4, models.RiskMedium},
		{5, models.RiskHigh},
		{9, models.RiskHigh},
		{10, models.RiskCritical},
		{40, models.RiskCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskForOverflowCount(tt.count), "count=%d", tt.count)
	}
	assert.False(t, IsHighRisk(models.RiskMedium))
	assert.True(t, IsHighRisk(models.RiskHigh))
	assert.True(t, IsHighRisk(models.RiskCritical))
}

func TestApplyAreaComplaint_FirstComplaint(t *testing.T) {
	now := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

	a := ApplyAreaComplaint(nil, "Sector 5", 12.9, 77.6, 80, now)

	assert.Equal(t, "Sector 5", a.AreaName)
	assert.Equal(t, 1, a.TotalComplaints)
	assert.Equal(t, 1, a.OverflowCount)
	assert.Equal(t, 80.0, a.AvgFillLevel)
	assert.Equal(t, models.RiskLow, a.RiskLevel)
	assert.Nil(t, a.PredictedNextOverflow)
	assert.Equal(t, now, a.LastComplaintAt)
}

func TestApplyAreaComplaint_RunningAverage(t *testing.T) {
	now := time.Now()
	var a *models.AreaStatistic
	for _, fill := range []int{60, 80, 100} {
		a = ApplyAreaComplaint(a, "Market Road", 0, 0, fill, now)
	}

	assert.Equal(t, 3, a.TotalComplaints)
	assert.Equal(t, 2, a.OverflowCount)
	assert.InDelta(t, 80.0, a.AvgFillLevel, 1e-9)
}

func TestApplyAreaComplaint_PredictsAfterThirdOverflow(t *testing.T) {
	now := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	a := &models.AreaStatistic{AreaName: "Sector 5", TotalComplaints: 4, OverflowCount: 2, AvgFillLevel: 70, RiskLevel: models.RiskLow}

	next := ApplyAreaComplaint(a, "Sector 5", 0, 0, 90, now)

	assert.Equal(t, 3, next.OverflowCount)
	assert.Equal(t, models.RiskMedium, next.RiskLevel)
	require.NotNil(t, next.PredictedNextOverflow)
	assert.Equal(t, now.Add(48*time.Hour), *next.PredictedNextOverflow)

	// the input is left untouched
	assert.Equal(t, 2, a.OverflowCount)
	assert.Nil(t, a.PredictedNextOverflow)
}

func TestApplyAreaComplaint_BelowOverflowKeepsCount(t *testing.T) {
	a := ApplyAreaComplaint(nil, "k", 0, 0, 74, time.Now())
	assert.Equal(t, 0, a.OverflowCount)

	a = ApplyAreaComplaint(a, "k", 0, 0, 75, time.Now())
	assert.Equal(t, 1, a.OverflowCount)
}

func TestAreaService_RecordComplaint(t *testing.T) {
	store := newMemStore()
	svc := NewAreaService(store, zap.NewNop())
	ctx := context.Background()

	first, err := svc.RecordComplaint(ctx, "Sector 5", 1, 2, 80)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalComplaints)

	second, err := svc.RecordComplaint(ctx, "Sector 5", 1, 2, 40)
	require.NoError(t, err)
	assert.Equal(t, 2, second.TotalComplaints)
	assert.Equal(t, 60.0, second.AvgFillLevel)

	stored, err := svc.Get(ctx, "Sector 5")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalComplaints)
	assert.Equal(t, 60.0, stored.AvgFillLevel)
}

func TestAreaService_ConcurrentComplaintsAreNotLost(t *testing.T) {
	store := newMemStore()
	store.upsertDelay = 200 * time.Microsecond
	svc := NewAreaService(store, zap.NewNop())
	ctx := context.Background()

	const n = 300
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordComplaint(ctx, "Busy Junction", 0, 0, 90)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	a, err := svc.Get(ctx, "Busy Junction")
	require.NoError(t, err)
	assert.Equal(t, n, a.TotalComplaints)
	assert.Equal(t, n, a.OverflowCount)
	assert.Equal(t, models.RiskCritical, a.RiskLevel)
}

func TestAreaService_TopAreas(t *testing.T) {
	store := newMemStore()
	svc := NewAreaService(store, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordComplaint(ctx, "A", 0, 0, 90)
		require.NoError(t, err)
	}
	_, err := svc.RecordComplaint(ctx, "B", 0, 0, 90)
	require.NoError(t, err)

	top, err := svc.TopAreas(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "A", top[0].AreaName)
}
