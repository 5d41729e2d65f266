// Package repository implements the service store contracts on gorm/postgres.
package repository

import (
	"errors"

	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/models"
	"gorm.io/gorm"
)

// Repository is the gorm backed implementation of every services store
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Complaint{},
		&models.AreaStatistic{},
		&models.UserReward{},
		&models.User{},
		&models.UserRole{},
		&models.ScanRecord{},
	)
}

// notFound turns gorm.ErrRecordNotFound into an apperr not-found error
func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, id)
	}
	return err
}
