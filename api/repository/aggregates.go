package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/revocity/revocity/api/metrics"
	"github.com/revocity/revocity/api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Area statistics and reward records are read-modify-written inside one
// transaction that holds the row with SELECT ... FOR UPDATE. A key seen for
// the first time is inserted with ON CONFLICT DO NOTHING; when a concurrent
// transaction inserted it first, the committed row is locked and updated
// instead, so every apply lands exactly once.

// lockRow loads the row whose column equals key under a row lock, or nil
func lockRow[T any](tx *gorm.DB, column, key string) (*T, error) {
	var row T
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(column+" = ?", key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func upsertLocked[T any](ctx context.Context, db *gorm.DB, aggregate, column, key string, apply func(prev *T) *T, columns func(next *T) map[string]interface{}) (*T, error) {
	var out *T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := lockRow[T](tx, column, key)
		if err != nil {
			return err
		}

		if prev == nil {
			next := apply(nil)
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(next)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 1 {
				out = next
				return nil
			}

			metrics.RecordInsertRace(aggregate)
			if prev, err = lockRow[T](tx, column, key); err != nil {
				return err
			}
			if prev == nil {
				return fmt.Errorf("%s %q missing after insert conflict", aggregate, key)
			}
		}

		next := apply(prev)
		if err := tx.Model(new(T)).Where(column+" = ?", key).Updates(columns(next)).Error; err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetArea(ctx context.Context, key string) (*models.AreaStatistic, error) {
	var area models.AreaStatistic
	if err := r.db.WithContext(ctx).First(&area, "area_name = ?", key).Error; err != nil {
		return nil, notFound(err, "area", key)
	}
	return &area, nil
}

func (r *Repository) UpsertArea(ctx context.Context, key string, apply func(prev *models.AreaStatistic) *models.AreaStatistic) (*models.AreaStatistic, error) {
	return upsertLocked(ctx, r.db, "area", "area_name", key, apply, func(a *models.AreaStatistic) map[string]interface{} {
		return map[string]interface{}{
			"total_complaints":        a.TotalComplaints,
			"overflow_count":          a.OverflowCount,
			"avg_fill_level":          a.AvgFillLevel,
			"risk_level":              a.RiskLevel,
			"last_complaint_at":       a.LastComplaintAt,
			"predicted_next_overflow": a.PredictedNextOverflow,
			"updated_at":              a.UpdatedAt,
		}
	})
}

func (r *Repository) TopAreasByOverflow(ctx context.Context, limit int) ([]models.AreaStatistic, error) {
	var areas []models.AreaStatistic
	err := r.db.WithContext(ctx).
		Order("overflow_count DESC").
		Order("total_complaints DESC").
		Limit(limit).
		Find(&areas).Error
	return areas, err
}

func (r *Repository) GetReward(ctx context.Context, userID string) (*models.UserReward, error) {
	var reward models.UserReward
	if err := r.db.WithContext(ctx).First(&reward, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "reward", userID)
	}
	return &reward, nil
}

func (r *Repository) UpsertReward(ctx context.Context, userID string, apply func(prev *models.UserReward) *models.UserReward) (*models.UserReward, error) {
	return upsertLocked(ctx, r.db, "reward", "user_id", userID, apply, func(rw *models.UserReward) map[string]interface{} {
		return map[string]interface{}{
			"points":                 rw.Points,
			"total_reports":          rw.TotalReports,
			"valid_critical_reports": rw.ValidCriticalReports,
			"badges":                 rw.Badges,
			"updated_at":             rw.UpdatedAt,
		}
	})
}

func (r *Repository) TopRewards(ctx context.Context, limit int) ([]models.UserReward, error) {
	var rewards []models.UserReward
	err := r.db.WithContext(ctx).
		Order("points DESC").
		Order("total_reports DESC").
		Limit(limit).
		Find(&rewards).Error
	return rewards, err
}
