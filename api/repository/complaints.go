package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/revocity/revocity/api/models"
	"github.com/revocity/revocity/api/services"
)

var (
	_ services.ComplaintStore = (*Repository)(nil)
	_ services.AreaStore      = (*Repository)(nil)
	_ services.RewardStore    = (*Repository)(nil)
	_ services.ScanStore      = (*Repository)(nil)
	_ services.UserStore      = (*Repository)(nil)
)

func (r *Repository) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) GetComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var c models.Complaint
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "complaint", id.String())
	}
	return &c, nil
}

func (r *Repository) GetComplaintByCode(ctx context.Context, code string) (*models.Complaint, error) {
	var c models.Complaint
	if err := r.db.WithContext(ctx).First(&c, "complaint_code = ?", code).Error; err != nil {
		return nil, notFound(err, "complaint", code)
	}
	return &c, nil
}

// ListComplaints returns newest first; a zero Limit returns every match
func (r *Repository) ListComplaints(ctx context.Context, filter services.ComplaintFilter) ([]models.Complaint, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{})

	if filter.ReporterID != "" {
		query = query.Where("reporter_id = ?", filter.ReporterID)
	}
	if filter.ComplaintStatus != "" {
		query = query.Where("complaint_status = ?", filter.ComplaintStatus)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.AreaName != "" {
		query = query.Where("area_name = ?", filter.AreaName)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var complaints []models.Complaint
	if err := query.Order("created_at DESC").Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}

func (r *Repository) ListEscalationCandidates(ctx context.Context) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := r.db.WithContext(ctx).
		Where("complaint_status <> ? AND escalation_level < ?", models.ComplaintResolved, models.MaxEscalationLevel).
		Order("created_at ASC").
		Find(&complaints).Error
	return complaints, err
}

// Escalate re-checks status and level in the UPDATE itself so a complaint
// resolved or promoted after it was listed is left alone.
func (r *Repository) Escalate(ctx context.Context, id uuid.UUID, level int, department models.Department, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND complaint_status <> ? AND escalation_level < ?", id, models.ComplaintResolved, level).
		Updates(map[string]interface{}{
			"escalation_level":    level,
			"escalated_at":        at,
			"complaint_status":    models.ComplaintEscalated,
			"assigned_department": department,
			"updated_at":          at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected models.ComplaintStatus, fields map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND complaint_status = ?", id, expected).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) MarkHighRiskArea(ctx context.Context, id uuid.UUID, overflowFrequency int) error {
	return r.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_high_risk_area":  true,
			"overflow_frequency": overflowFrequency,
		}).Error
}
