package repository

import (
	"context"
	"time"

	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/models"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateScan(ctx context.Context, scan *models.ScanRecord) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

func (r *Repository) ListScans(ctx context.Context, userID string, limit int) ([]models.ScanRecord, error) {
	var scans []models.ScanRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&scans).Error
	return scans, err
}

// UpsertUser inserts the profile or refreshes email, display name and last login
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "last_login"}),
	}).Create(user).Error
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *Repository) GetRole(ctx context.Context, userID string) (*models.UserRole, error) {
	var role models.UserRole
	if err := r.db.WithContext(ctx).First(&role, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "role", userID)
	}
	return &role, nil
}

func (r *Repository) CreateRoleIfAbsent(ctx context.Context, role *models.UserRole) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(role)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) SetRole(ctx context.Context, userID string, role models.Role) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(&models.UserRole{
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	}).Error
}

func (r *Repository) DeleteRole(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserRole{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("role", userID)
	}
	return nil
}

func (r *Repository) ListRoles(ctx context.Context) ([]models.UserRole, error) {
	var roles []models.UserRole
	err := r.db.WithContext(ctx).Find(&roles).Error
	return roles, err
}
