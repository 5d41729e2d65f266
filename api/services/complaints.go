package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/metrics"
	"github.com/revocity/revocity/api/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// maxStatusAttempts bounds retries when a complaint changes between read and guarded write
const maxStatusAttempts = 8

// SubmitInput is a citizen complaint. Either Analysis or Image must be set;
// when only Image is given it is analyzed here.
type SubmitInput struct {
	ReporterID    string
	ReporterEmail string
	Latitude      *float64
	Longitude     *float64
	Address       string
	AreaName      string
	Notes         string
	Image         *Image
	Analysis      *BinAnalysis
}

// SubmitResult carries the stored complaint and the outcome of its side effects.
// Side-effect failures are logged and listed in Warnings; they never undo the complaint.
type SubmitResult struct {
	Complaint *models.Complaint     `json:"complaint"`
	Reward    *models.UserReward    `json:"reward,omitempty"`
	Area      *models.AreaStatistic `json:"area,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// AdminPatch is a partial administrative update; nil fields are left unchanged
type AdminPatch struct {
	ComplaintStatus *models.ComplaintStatus `json:"complaintStatus"`
	AssignedTo      *string                 `json:"assignedTo"`
	AdminNotes      *string                 `json:"adminNotes"`
	CleanupImageURL *string                 `json:"cleanupImageUrl"`
	CleanupVerified *bool                   `json:"cleanupVerified"`
}

func (p AdminPatch) empty() bool {
	return p.ComplaintStatus == nil && p.AssignedTo == nil && p.AdminNotes == nil &&
		p.CleanupImageURL == nil && p.CleanupVerified == nil
}

// CleanupResult pairs the complaint with the advisory verdict on its cleanup photo
type CleanupResult struct {
	Complaint *models.Complaint `json:"complaint"`
	Verdict   *CleanupVerdict   `json:"verdict"`
}

// ComplaintService is the system of record for the complaint workflow
type ComplaintService struct {
	store    ComplaintStore
	areas    *AreaService
	rewards  *RewardService
	analyzer *AnalyzerService
	verifier *CleanupVerifier
	images   ImageStore
	geocoder ReverseGeocoder
	authz    Authorizer
	logger   *zap.Logger
	now      func() time.Time
}

type ComplaintDeps struct {
	Store    ComplaintStore
	Areas    *AreaService
	Rewards  *RewardService
	Analyzer *AnalyzerService
	Verifier *CleanupVerifier
	Images   ImageStore
	Geocoder ReverseGeocoder
	Authz    Authorizer
	Logger   *zap.Logger
}

func NewComplaintService(deps ComplaintDeps) *ComplaintService {
	return &ComplaintService{
		store:    deps.Store,
		areas:    deps.Areas,
		rewards:  deps.Rewards,
		analyzer: deps.Analyzer,
		verifier: deps.Verifier,
		images:   deps.Images,
		geocoder: deps.Geocoder,
		authz:    deps.Authz,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// NewComplaintCode returns a sortable human-readable code, e.g. RC-20250301093000-4F1A2B
func NewComplaintCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("RC-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

func validateSubmit(in *SubmitInput) error {
	if strings.TrimSpace(in.ReporterID) == "" {
		return apperr.Validation("reporterId", "Reporter identity is required")
	}
	if in.Latitude == nil || in.Longitude == nil {
		return apperr.Validation("location", "Latitude and longitude are required")
	}
	if !ValidateCoordinates(*in.Latitude, *in.Longitude) {
		return apperr.Validation("location", "Latitude or longitude out of range")
	}
	if in.Analysis == nil && in.Image == nil {
		return apperr.Validation("analysis", "An image or a bin analysis is required")
	}
	if in.Analysis != nil && (in.Analysis.FillLevel < 0 || in.Analysis.FillLevel > 100) {
		return apperr.Validation("fillLevel", "Fill level must be between 0 and 100")
	}
	return nil
}

// Submit validates and stores a new complaint, then credits the reporter and
// updates the area statistics. Nothing is written when validation fails.
func (s *ComplaintService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if err := validateSubmit(&in); err != nil {
		return nil, err
	}

	analysis := in.Analysis
	if analysis == nil {
		analysis = s.analyzer.Analyze(ctx, in.ReporterID, in.Image)
	}

	now := s.now()
	complaint := s.buildComplaint(&in, analysis, now)

	if in.Image != nil {
		url, err := s.images.Save(ctx, FolderComplaints, in.Image)
		if err != nil {
			return nil, apperr.Internal("failed to store complaint image", err)
		}
		complaint.ImageURL = &url
	}

	if complaint.Address == nil && s.geocoder != nil {
		s.fillAddress(ctx, complaint)
	}

	if err := s.store.CreateComplaint(ctx, complaint); err != nil {
		if complaint.ImageURL != nil {
			s.discardImage(*complaint.ImageURL)
		}
		return nil, apperr.Internal("failed to save complaint", err)
	}
	metrics.RecordComplaintSubmitted(string(complaint.Priority))
	s.logger.Info("Complaint submitted",
		zap.String("complaint_id", complaint.ComplaintCode),
		zap.String("reporter", complaint.ReporterID),
		zap.String("priority", string(complaint.Priority)),
		zap.Int("fill_level", complaint.FillLevel))

	result := &SubmitResult{Complaint: complaint}

	reward, err := s.rewards.Award(ctx, complaint.ReporterID, complaint.Priority)
	if err != nil {
		s.logger.Error("Failed to award points", zap.String("complaint_id", complaint.ComplaintCode), zap.Error(err))
		result.Warnings = append(result.Warnings, "Reward points could not be credited")
	} else {
		result.Reward = reward
	}

	areaName := ""
	if complaint.AreaName != nil {
		areaName = *complaint.AreaName
	}
	key := AreaKey(areaName, complaint.Latitude, complaint.Longitude)
	area, err := s.areas.RecordComplaint(ctx, key, complaint.Latitude, complaint.Longitude, complaint.FillLevel)
	if err != nil {
		s.logger.Error("Failed to update area statistics", zap.String("area", key), zap.Error(err))
		result.Warnings = append(result.Warnings, "Area statistics could not be updated")
		return result, nil
	}
	result.Area = area

	if IsHighRisk(area.RiskLevel) {
		if err := s.store.MarkHighRiskArea(ctx, complaint.ID, area.OverflowCount); err != nil {
			s.logger.Error("Failed to flag high risk area", zap.String("complaint_id", complaint.ComplaintCode), zap.Error(err))
			result.Warnings = append(result.Warnings, "High risk area flag could not be saved")
		} else {
			complaint.IsHighRiskArea = true
			complaint.OverflowFrequency = area.OverflowCount
		}
	}

	return result, nil
}

func (s *ComplaintService) buildComplaint(in *SubmitInput, a *BinAnalysis, now time.Time) *models.Complaint {
	fill := clampPercent(a.FillLevel)
	status := models.StatusForFill(fill)
	priority := a.Priority
	if !priority.Valid() {
		priority = models.DerivePriority(status, fill)
	}

	actions := append([]string{}, a.SuggestedActions...)
	if len(actions) == 0 && a.Recommendation != "" {
		actions = append(actions, a.Recommendation)
	}

	return &models.Complaint{
		ID:                  uuid.New(),
		ComplaintCode:       NewComplaintCode(now),
		ReporterID:          strings.TrimSpace(in.ReporterID),
		ReporterEmail:       optional(in.ReporterEmail),
		ReporterNotes:       optional(in.Notes),
		Latitude:            *in.Latitude,
		Longitude:           *in.Longitude,
		Address:             optional(in.Address),
		AreaName:            optional(in.AreaName),
		FillLevel:           fill,
		Status:              status,
		Priority:            priority,
		OdorRisk:            riskOrLow(a.OdorRisk),
		PestRisk:            riskOrLow(a.PestRisk),
		DiseaseRisk:         riskOrLow(a.DiseaseRisk),
		PublicHygieneImpact: riskOrLow(a.PublicHygieneImpact),
		AIConfidence:        clampPercent(a.Confidence),
		AIRecommendations:   datatypes.JSONSlice[string](actions),
		ComplaintStatus:     models.ComplaintPending,
		EscalationLevel:     0,
		AssignedDepartment:  models.DepartmentForLevel(0),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (s *ComplaintService) fillAddress(ctx context.Context, c *models.Complaint) {
	result, err := s.geocoder.ReverseGeocode(ctx, c.Latitude, c.Longitude)
	if err != nil {
		if !errors.Is(err, ErrGeocoderDisabled) {
			s.logger.Warn("Reverse geocoding failed", zap.Float64("lat", c.Latitude), zap.Float64("lng", c.Longitude), zap.Error(err))
		}
		return
	}
	c.Address = &result.FormattedAddress
}

// Update applies an administrative patch. The caller must hold the admin
// role; a forbidden caller leaves the complaint unchanged.
func (s *ComplaintService) Update(ctx context.Context, callerID, ref string, patch AdminPatch) (*models.Complaint, error) {
	if err := s.authz.Authorize(ctx, callerID, ActionUpdateComplaint); err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, apperr.BadRequest("No fields to update")
	}
	if patch.ComplaintStatus != nil && !patch.ComplaintStatus.Valid() {
		return nil, apperr.Validation("complaintStatus", "Status must be pending, in_progress, escalated or resolved")
	}

	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		current, err := s.Get(ctx, ref)
		if err != nil {
			return nil, err
		}

		fields, err := s.patchFields(current, patch)
		if err != nil {
			return nil, err
		}

		written, err := s.store.UpdateIfStatus(ctx, current.ID, current.ComplaintStatus, fields)
		if err != nil {
			return nil, apperr.Internal("failed to update complaint", err)
		}
		if !written {
			// Escalated or updated by someone else since it was read
			continue
		}

		if patch.ComplaintStatus != nil && *patch.ComplaintStatus != current.ComplaintStatus {
			metrics.RecordStatusChange(string(current.ComplaintStatus), string(*patch.ComplaintStatus))
		}
		s.logger.Info("Complaint updated", zap.String("complaint_id", current.ComplaintCode), zap.String("by", callerID))

		return s.store.GetComplaint(ctx, current.ID)
	}

	return nil, apperr.Conflict("Complaint changed while updating, please retry")
}

func (s *ComplaintService) patchFields(current *models.Complaint, patch AdminPatch) (map[string]interface{}, error) {
	now := s.now()
	fields := map[string]interface{}{"updated_at": now}

	if patch.ComplaintStatus != nil {
		next := *patch.ComplaintStatus
		if !current.ComplaintStatus.CanAdminMoveTo(next) {
			return nil, apperr.Conflict(fmt.Sprintf("Cannot move complaint from %s to %s", current.ComplaintStatus, next))
		}
		fields["complaint_status"] = next
		if next == models.ComplaintResolved && current.ComplaintStatus != models.ComplaintResolved {
			fields["resolved_at"] = now
		}
	}
	if patch.AssignedTo != nil {
		fields["assigned_to"] = optional(*patch.AssignedTo)
	}
	if patch.AdminNotes != nil {
		fields["admin_notes"] = optional(*patch.AdminNotes)
	}
	if patch.CleanupImageURL != nil {
		fields["cleanup_image_url"] = optional(*patch.CleanupImageURL)
	}
	if patch.CleanupVerified != nil {
		fields["cleanup_verified"] = *patch.CleanupVerified
	}

	return fields, nil
}

// VerifyCleanup stores an after-cleanup photo on the complaint and returns the
// advisory verdict. It never resolves or verifies the complaint.
func (s *ComplaintService) VerifyCleanup(ctx context.Context, callerID, ref string, img *Image) (*CleanupResult, error) {
	if err := s.authz.Authorize(ctx, callerID, ActionVerifyCleanup); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, apperr.Validation("imageBase64", "No image provided")
	}

	complaint, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Save(ctx, FolderCleanup, img)
	if err != nil {
		return nil, apperr.Internal("failed to store cleanup image", err)
	}

	updated, err := s.Update(ctx, callerID, complaint.ID.String(), AdminPatch{CleanupImageURL: &url})
	if err != nil {
		s.discardImage(url)
		return nil, err
	}

	verdict := s.verifier.Verify(ctx, img)
	s.logger.Info("Cleanup verified",
		zap.String("complaint_id", complaint.ComplaintCode),
		zap.String("recommendation", string(verdict.Recommendation)),
		zap.Int("score", verdict.CleanlinessScore))

	return &CleanupResult{Complaint: updated, Verdict: verdict}, nil
}

// discardImage removes an image whose complaint write failed. It runs on a
// fresh context so a cancelled request still cleans up.
func (s *ComplaintService) discardImage(url string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.Warn("Failed to delete orphaned image", zap.String("url", url), zap.Error(err))
	}
}

// Get looks a complaint up by UUID or by complaint code
func (s *ComplaintService) Get(ctx context.Context, ref string) (*models.Complaint, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.store.GetComplaint(ctx, id)
	}
	return s.store.GetComplaintByCode(ctx, ref)
}

// List returns complaints newest first
func (s *ComplaintService) List(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	if filter.ComplaintStatus != "" && !filter.ComplaintStatus.Valid() {
		return nil, apperr.Validation("status", "Unknown complaint status")
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, apperr.Validation("priority", "Unknown priority")
	}
	filter.Limit = clampLimit(filter.Limit, 50, 500)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListComplaints(ctx, filter)
}

// ListMine returns the caller's own complaints newest first
func (s *ComplaintService) ListMine(ctx context.Context, reporterID string, limit int) ([]models.Complaint, error) {
	return s.List(ctx, ComplaintFilter{ReporterID: reporterID, Limit: limit})
}

// Stats summarizes every complaint in one pass
func (s *ComplaintService) Stats(ctx context.Context) (*ComplaintStats, error) {
	complaints, err := s.store.ListComplaints(ctx, ComplaintFilter{})
	if err != nil {
		return nil, apperr.Internal("failed to load complaints", err)
	}
	return SummarizeComplaints(complaints), nil
}

// Transparency builds the public report over every complaint
func (s *ComplaintService) Transparency(ctx context.Context) (*TransparencyReport, error) {
	complaints, err := s.store.ListComplaints(ctx, ComplaintFilter{})
	if err != nil {
		return nil, apperr.Internal("failed to load complaints", err)
	}
	return BuildTransparencyReport(complaints, s.now()), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func riskOrLow(r models.RiskLevel) models.RiskLevel {
	if r == "" {
		return models.RiskLow
	}
	return r
}
