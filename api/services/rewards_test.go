package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPointsFor(t *testing.T) {
	assert.Equal(t, 50, PointsFor(models.PriorityCritical))
	assert.Equal(t, 30, PointsFor(models.PriorityHigh))
	assert.Equal(t, 10, PointsFor(models.PriorityMedium))
	assert.Equal(t, 10, PointsFor(models.PriorityLow))
	assert.Equal(t, 10, PointsFor(models.Priority("unknown")))
}

func TestApplyAward_FirstReport(t *testing.T) {
	now := time.Now()
	r := ApplyAward(nil, "user-1", models.PriorityMedium, now)

	assert.Equal(t, "user-1", r.UserID)
	assert.Equal(t, 10, r.Points)
	assert.Equal(t, 1, r.TotalReports)
	assert.Equal(t, 0, r.ValidCriticalReports)
	assert.Equal(t, []string{models.BadgeFirstReporter}, []string(r.Badges))
	assert.Equal(t, 100, r.TrustScore)
}

func TestApplyAward_BadgeThresholds(t *testing.T) {
	now := time.Now()
	var r *models.UserReward
	for i := 0; i < 25; i++ {
		r = ApplyAward(r, "user-1", models.PriorityCritical, now)
	}

	assert.Equal(t, 1250, r.Points)
	assert.Equal(t, 25, r.ValidCriticalReports)
	assert.Equal(t, []string{
		models.BadgeFirstReporter,
		models.BadgeCleanHero,
		models.BadgeActiveCitizen,
		models.BadgeEcoChampion,
		models.BadgeCityGuardian,
	}, []string(r.Badges))
}

func TestApplyAward_BadgesAreNeverRevoked(t *testing.T) {
	prev := &models.UserReward{
		UserID:       "user-1",
		TotalReports: 0,
		Badges:       []string{models.BadgeCityGuardian, models.BadgeCityGuardian},
	}

	next := ApplyAward(prev, "user-1", models.PriorityLow, time.Now())

	assert.Equal(t, []string{models.BadgeCityGuardian, models.BadgeFirstReporter}, []string(next.Badges))
	assert.Len(t, prev.Badges, 2)
}

func TestRewardService_Award(t *testing.T) {
	store := newMemStore()
	svc := NewRewardService(store, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Award(ctx, "user-1", models.PriorityHigh)
	require.NoError(t, err)
	r, err := svc.Award(ctx, "user-1", models.PriorityCritical)
	require.NoError(t, err)

	assert.Equal(t, 80, r.Points)
	assert.Equal(t, 2, r.TotalReports)
	assert.Equal(t, 2, r.ValidCriticalReports)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 80, got.Points)
}

func TestRewardService_RequiresUser(t *testing.T) {
	svc := NewRewardService(newMemStore(), zap.NewNop())
	_, err := svc.Award(context.Background(), "", models.PriorityHigh)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRewardService_GetUnknownUser(t *testing.T) {
	svc := NewRewardService(newMemStore(), zap.NewNop())

	r, err := svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Points)
	assert.Equal(t, 100, r.TrustScore)
	assert.NotNil(t, r.Badges)
}

func TestRewardService_ConcurrentAwards(t *testing.T) {
	store := newMemStore()
	store.upsertDelay = 200 * time.Microsecond
	svc := NewRewardService(store, zap.NewNop())
	ctx := context.Background()

	const n = 300
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Award(ctx, "user-1", models.PriorityHigh)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	r, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, n, r.TotalReports)
	assert.Equal(t, n*30, r.Points)
	assert.Equal(t, n, r.ValidCriticalReports)
	assert.Contains(t, r.Badges, models.BadgeCityGuardian)
	assert.Contains(t, r.Badges, models.BadgeEcoChampion)
}

func TestRewardService_Leaderboard(t *testing.T) {
	svc := NewRewardService(newMemStore(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Award(ctx, "low", models.PriorityLow)
	require.NoError(t, err)
	_, err = svc.Award(ctx, "high", models.PriorityCritical)
	require.NoError(t, err)

	top, err := svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "high", top[0].UserID)
}
