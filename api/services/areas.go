package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/revocity/revocity/api/models"
	"go.uber.org/zap"
)

const (
	// PredictionOverflowCount is the overflow count from which a next overflow is predicted
	PredictionOverflowCount = 3
	// PredictionHorizon is the fixed offset of the predicted next overflow
	PredictionHorizon = 48 * time.Hour
)

// AreaKey is the aggregation identity: the trimmed area name, or the
// coordinates rounded to three decimals when no name is known.
func AreaKey(areaName string, lat, lng float64) string {
	if name := strings.TrimSpace(areaName); name != "" {
		return name
	}
	return fmt.Sprintf("%.3f,%.3f", lat, lng)
}

// RiskForOverflowCount maps an area's overflow count to its risk tier
func RiskForOverflowCount(overflowCount int) models.RiskLevel {
	switch {
	case overflowCount >= 10:
		return models.RiskCritical
	case overflowCount >= 5:
		return models.RiskHigh
	case overflowCount >= 3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// IsHighRisk reports whether complaints in an area of this tier are flagged
func IsHighRisk(risk models.RiskLevel) bool {
	return risk == models.RiskHigh || risk == models.RiskCritical
}

// ApplyAreaComplaint folds one complaint into an area statistic and returns
// the new state. prev nil means the area has not been seen before. prev is
// not modified.
func ApplyAreaComplaint(prev *models.AreaStatistic, key string, lat, lng float64, fill int, now time.Time) *models.AreaStatistic {
	overflow := 0
	if fill >= models.OverflowFillLevel {
		overflow = 1
	}

	var next models.AreaStatistic
	if prev == nil {
		next = models.AreaStatistic{
			AreaName:        key,
			Latitude:        lat,
			Longitude:       lng,
			TotalComplaints: 1,
			OverflowCount:   overflow,
			AvgFillLevel:    float64(fill),
			CreatedAt:       now,
		}
	} else {
		next = *prev
		oldCount := float64(prev.TotalComplaints)
		next.TotalComplaints = prev.TotalComplaints + 1
		next.OverflowCount = prev.OverflowCount + overflow
		next.AvgFillLevel = (prev.AvgFillLevel*oldCount + float64(fill)) / float64(next.TotalComplaints)
	}

	next.RiskLevel = RiskForOverflowCount(next.OverflowCount)
	next.LastComplaintAt = now
	next.UpdatedAt = now
	if next.OverflowCount >= PredictionOverflowCount {
		predicted := now.Add(PredictionHorizon)
		next.PredictedNextOverflow = &predicted
	}

	return &next
}

// AreaService maintains the rolling per-area risk statistics
type AreaService struct {
	store  AreaStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAreaService(store AreaStore, logger *zap.Logger) *AreaService {
	return &AreaService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RecordComplaint folds a complaint into its area. The store applies the
// fold while holding the area row, so concurrent complaints for one key are
// counted exactly once each.
func (s *AreaService) RecordComplaint(ctx context.Context, key string, lat, lng float64, fill int) (*models.AreaStatistic, error) {
	now := s.now()
	area, err := s.store.UpsertArea(ctx, key, func(prev *models.AreaStatistic) *models.AreaStatistic {
		return ApplyAreaComplaint(prev, key, lat, lng, fill, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save area %q: %w", key, err)
	}
	return area, nil
}

// Get returns the statistic for one area key
func (s *AreaService) Get(ctx context.Context, key string) (*models.AreaStatistic, error) {
	return s.store.GetArea(ctx, key)
}

// TopAreas returns the areas with the most overflow reports
func (s *AreaService) TopAreas(ctx context.Context, limit int) ([]models.AreaStatistic, error) {
	return s.store.TopAreasByOverflow(ctx, clampLimit(limit, 10, 100))
}
