package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Complaint represents one citizen report of a bin condition at a location
type Complaint struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ComplaintCode string    `json:"complaint_id" gorm:"size:40;not null;uniqueIndex"`

	ReporterID    string  `json:"reporter_uid" gorm:"size:128;not null;index"`
	ReporterEmail *string `json:"reporter_email" gorm:"size:255"`
	ReporterNotes *string `json:"reporter_notes"`

	Latitude  float64 `json:"latitude" gorm:"not null"`
	Longitude float64 `json:"longitude" gorm:"not null"`
	Address   *string `json:"address" gorm:"size:500"`
	AreaName  *string `json:"area_name" gorm:"size:200;index"`
	ImageURL  *string `json:"image_url" gorm:"size:500"`

	// Visual assessment
	FillLevel           int                         `json:"fill_level" gorm:"not null"`
	Status              BinStatus                   `json:"status" gorm:"size:20;not null"`
	Priority            Priority                    `json:"priority" gorm:"size:20;not null;index"`
	OdorRisk            RiskLevel                   `json:"odor_risk" gorm:"size:20;not null;default:'low'"`
	PestRisk            RiskLevel                   `json:"mosquito_risk" gorm:"size:20;not null;default:'low'"`
	DiseaseRisk         RiskLevel                   `json:"disease_risk" gorm:"size:20;not null;default:'low'"`
	PublicHygieneImpact RiskLevel                   `json:"public_hygiene_impact" gorm:"size:20;not null;default:'low'"`
	AIConfidence        int                         `json:"ai_confidence" gorm:"not null;default:0"`
	AIRecommendations   datatypes.JSONSlice[string] `json:"ai_recommendations" gorm:"type:jsonb"`

	// Workflow
	ComplaintStatus    ComplaintStatus `json:"complaint_status" gorm:"size:20;not null;default:'pending';index"`
	EscalationLevel    int             `json:"escalation_level" gorm:"not null;default:0"`
	EscalatedAt        *time.Time      `json:"escalated_at"`
	AssignedDepartment Department      `json:"assigned_department" gorm:"size:50;not null;default:'sanitation'"`
	AssignedTo         *string         `json:"assigned_to" gorm:"size:200"`
	AdminNotes         *string         `json:"admin_notes"`

	// Area context
	IsHighRiskArea    bool `json:"is_high_risk_area" gorm:"not null;default:false"`
	OverflowFrequency int  `json:"overflow_frequency" gorm:"not null;default:0"`

	// Cleanup evidence
	CleanupImageURL *string `json:"cleanup_image_url" gorm:"size:500"`
	CleanupVerified bool    `json:"cleanup_verified" gorm:"not null;default:false"`

	CreatedAt  time.Time  `json:"created_at" gorm:"not null;index"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

// AreaStatistic is the rolling aggregate kept per area key
type AreaStatistic struct {
	AreaName              string     `json:"area_name" gorm:"primary_key;size:200"`
	Latitude              float64    `json:"latitude" gorm:"not null"`
	Longitude             float64    `json:"longitude" gorm:"not null"`
	TotalComplaints       int        `json:"total_complaints" gorm:"not null;default:0"`
	OverflowCount         int        `json:"overflow_count" gorm:"not null;default:0;index"`
	AvgFillLevel          float64    `json:"avg_fill_level" gorm:"not null;default:0"`
	RiskLevel             RiskLevel  `json:"risk_level" gorm:"size:20;not null;default:'low'"`
	LastComplaintAt       time.Time  `json:"last_complaint_at" gorm:"not null"`
	PredictedNextOverflow *time.Time `json:"predicted_next_overflow"`
	CreatedAt             time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time  `json:"updated_at" gorm:"not null"`
}

// UserReward is the points and badge ledger of one reporting user
type UserReward struct {
	UserID               string                      `json:"firebase_uid" gorm:"primary_key;size:128"`
	Points               int                         `json:"points" gorm:"not null;default:0;index"`
	TotalReports         int                         `json:"total_reports" gorm:"not null;default:0"`
	ValidCriticalReports int                         `json:"valid_critical_reports" gorm:"not null;default:0"`
	Badges               datatypes.JSONSlice[string] `json:"badges" gorm:"type:jsonb"`
	// Carried in the schema; no rule writes them yet.
	TrustScore          int       `json:"trust_score" gorm:"not null;default:100"`
	FlaggedReports      int       `json:"flagged_reports" gorm:"not null;default:0"`
	VerifiedContributor bool      `json:"verified_contributor" gorm:"not null;default:false"`
	CreatedAt           time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"not null"`
}

// User is a profile registered from the identity provider
type User struct {
	UID         string     `json:"firebase_uid" gorm:"primary_key;size:128"`
	Email       *string    `json:"email" gorm:"size:255"`
	DisplayName *string    `json:"display_name" gorm:"size:200"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
}

// UserRole maps a user to their single application role
type UserRole struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    string    `json:"user_id" gorm:"size:128;not null;uniqueIndex"`
	Role      Role      `json:"role" gorm:"size:20;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// ScanRecord is one bin analysis made by a user
type ScanRecord struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID         string    `json:"user_firebase_uid" gorm:"size:128;not null;index"`
	FillLevel      int       `json:"fill_level" gorm:"not null"`
	Status         BinStatus `json:"status" gorm:"size:20;not null"`
	Priority       Priority  `json:"priority" gorm:"size:20;not null"`
	Recommendation string    `json:"recommendation"`
	AIConfidence   int       `json:"ai_confidence" gorm:"not null"`
	OdorRisk       RiskLevel `json:"odor_risk" gorm:"size:20"`
	PestRisk       RiskLevel `json:"mosquito_risk" gorm:"size:20"`
	DiseaseRisk    RiskLevel `json:"disease_risk" gorm:"size:20"`
	HygieneImpact  RiskLevel `json:"hygiene_risk" gorm:"size:20"`
	Degraded       bool      `json:"degraded" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;index"`
}

// BeforeCreate hooks
func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (s *ScanRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
