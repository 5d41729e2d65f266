package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/revocity/revocity/api/models"
)

// Store contracts implemented by the repository package.
//
// Get methods return an error wrapping apperr.ErrNotFound when the row is
// absent. Create methods that return a bool insert only when the key is free
// and report false when another writer got there first. UpdateIfVersion writes
// only when the stored version equals expected, bumps it, and reports whether
// a row was written.

// ComplaintFilter narrows complaint listings; zero fields are ignored
type ComplaintFilter struct {
	ReporterID      string
	ComplaintStatus models.ComplaintStatus
	Priority        models.Priority
	AreaName        string
	Limit           int
	Offset          int
}

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	GetComplaintByCode(ctx context.Context, code string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	// ListEscalationCandidates returns complaints that are not resolved and
	// below the maximum escalation level.
	ListEscalationCandidates(ctx context.Context) ([]models.Complaint, error)
	// Escalate writes the promotion only while the complaint is unresolved
	// and its level is still below level.
	Escalate(ctx context.Context, id uuid.UUID, level int, department models.Department, at time.Time) (bool, error)
	// UpdateIfStatus applies fields only while complaint_status still equals expected.
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected models.ComplaintStatus, fields map[string]interface{}) (bool, error)
	MarkHighRiskArea(ctx context.Context, id uuid.UUID, overflowFrequency int) error
}

// AreaStore and RewardStore serialize writers per key: the upsert holds the
// row for the whole read-apply-write, and apply receives nil for a new key.
type AreaStore interface {
	GetArea(ctx context.Context, key string) (*models.AreaStatistic, error)
	UpsertArea(ctx context.Context, key string, apply func(prev *models.AreaStatistic) *models.AreaStatistic) (*models.AreaStatistic, error)
	TopAreasByOverflow(ctx context.Context, limit int) ([]models.AreaStatistic, error)
}

type RewardStore interface {
	GetReward(ctx context.Context, userID string) (*models.UserReward, error)
	UpsertReward(ctx context.Context, userID string, apply func(prev *models.UserReward) *models.UserReward) (*models.UserReward, error)
	TopRewards(ctx context.Context, limit int) ([]models.UserReward, error)
}

type ScanStore interface {
	CreateScan(ctx context.Context, scan *models.ScanRecord) error
	ListScans(ctx context.Context, userID string, limit int) ([]models.ScanRecord, error)
}

type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetRole(ctx context.Context, userID string) (*models.UserRole, error)
	// CreateRoleIfAbsent never overwrites an existing role.
	CreateRoleIfAbsent(ctx context.Context, role *models.UserRole) (bool, error)
	SetRole(ctx context.Context, userID string, role models.Role) error
	DeleteRole(ctx context.Context, userID string) error
	ListRoles(ctx context.Context) ([]models.UserRole, error)
}
