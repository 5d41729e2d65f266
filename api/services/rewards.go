package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/models"
	"go.uber.org/zap"
)

// PointsFor returns the reward for one accepted report of the given priority
func PointsFor(priority models.Priority) int {
	switch priority {
	case models.PriorityCritical:
		return 50
	case models.PriorityHigh:
		return 30
	default:
		return 10
	}
}

// IsValidCritical reports whether a report counts toward the Clean Hero badge
func IsValidCritical(priority models.Priority) bool {
	return priority == models.PriorityHigh || priority == models.PriorityCritical
}

type badgeRule struct {
	name   string
	earned func(r *models.UserReward) bool
}

// badgeRules are evaluated in order so badges are appended in unlock order
var badgeRules = []badgeRule{
	{models.BadgeFirstReporter, func(r *models.UserReward) bool { return r.TotalReports >= 1 }},
	{models.BadgeActiveCitizen, func(r *models.UserReward) bool { return r.TotalReports >= 10 }},
	{models.BadgeCityGuardian, func(r *models.UserReward) bool { return r.TotalReports >= 25 }},
	{models.BadgeCleanHero, func(r *models.UserReward) bool { return r.ValidCriticalReports >= 5 }},
	{models.BadgeEcoChampion, func(r *models.UserReward) bool { return r.Points >= 500 }},
}

// ApplyAward adds one report to a reward record and returns the new state.
// Existing badges are always kept; newly crossed thresholds are appended
// once. prev is not modified.
func ApplyAward(prev *models.UserReward, userID string, priority models.Priority, now time.Time) *models.UserReward {
	var next models.UserReward
	if prev == nil {
		next = models.UserReward{
			UserID:     userID,
			TrustScore: 100,
			CreatedAt:  now,
		}
	} else {
		next = *prev
	}

	next.Points += PointsFor(priority)
	next.TotalReports++
	if IsValidCritical(priority) {
		next.ValidCriticalReports++
	}

	badges := make([]string, 0, len(badgeRules))
	held := make(map[string]bool, len(badgeRules))
	if prev != nil {
		for _, badge := range prev.Badges {
			if !held[badge] {
				held[badge] = true
				badges = append(badges, badge)
			}
		}
	}
	for _, rule := range badgeRules {
		if !held[rule.name] && rule.earned(&next) {
			held[rule.name] = true
			badges = append(badges, rule.name)
		}
	}
	next.Badges = badges
	next.UpdatedAt = now

	return &next
}

// RewardService is the points and badge ledger
type RewardService struct {
	store  RewardStore
	logger *zap.Logger
	now    func() time.Time
}

func NewRewardService(store RewardStore, logger *zap.Logger) *RewardService {
	return &RewardService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Award credits one report to userID
func (s *RewardService) Award(ctx context.Context, userID string, priority models.Priority) (*models.UserReward, error) {
	if userID == "" {
		return nil, apperr.Validation("userId", "User id is required")
	}

	now := s.now()
	reward, err := s.store.UpsertReward(ctx, userID, func(prev *models.UserReward) *models.UserReward {
		return ApplyAward(prev, userID, priority, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save rewards for %s: %w", userID, err)
	}
	s.logger.Debug("Points awarded", zap.String("user_id", userID), zap.Int("points", reward.Points))
	return reward, nil
}

// Get returns the caller's reward record, or an empty record when they have none yet
func (s *RewardService) Get(ctx context.Context, userID string) (*models.UserReward, error) {
	reward, err := s.store.GetReward(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &models.UserReward{UserID: userID, TrustScore: 100, Badges: []string{}}, nil
	}
	return reward, err
}

// Leaderboard returns the top reward records by points
func (s *RewardService) Leaderboard(ctx context.Context, limit int) ([]models.UserReward, error) {
	return s.store.TopRewards(ctx, clampLimit(limit, 10, 100))
}
