package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/revocity/revocity/api/metrics"
	"github.com/revocity/revocity/api/models"
	"go.uber.org/zap"
)

// AssessmentSchema names the reply shape an analysis was normalized from
type AssessmentSchema string

const (
	SchemaComprehensive AssessmentSchema = "comprehensive"
	SchemaLegacy        AssessmentSchema = "legacy"
	SchemaFallback      AssessmentSchema = "fallback"
)

const (
	defaultConfidence   = 80
	defaultFillLevel    = 50
	fallbackConfidence  = 30
	fallbackRecommended = "Unable to fully analyze the image. Please try again with a clearer image."
)

// BinAnalysis is the canonical bin assessment used by complaint intake
type BinAnalysis struct {
	Status              models.BinStatus `json:"status"`
	FillLevel           int              `json:"fill_level"`
	Priority            models.Priority  `json:"priority"`
	Recommendation      string           `json:"recommendation"`
	Confidence          int              `json:"confidence"`
	OdorRisk            models.RiskLevel `json:"odor_risk"`
	PestRisk            models.RiskLevel `json:"mosquito_risk"`
	DiseaseRisk         models.RiskLevel `json:"disease_risk"`
	PublicHygieneImpact models.RiskLevel `json:"public_hygiene_impact"`
	SuggestedActions    []string         `json:"suggested_actions"`
	Insights            []string         `json:"smart_insights"`
	UrgencyMessage      string           `json:"urgency_message,omitempty"`
	Details             string           `json:"details,omitempty"`
	Schema              AssessmentSchema `json:"schema"`
	Degraded            bool             `json:"degraded"`
}

// assessmentPayload is one of the reply shapes the model is known to produce
type assessmentPayload interface {
	normalize() *BinAnalysis
}

type comprehensiveAssessment struct {
	BinStatus struct {
		Status         looseString `json:"status"`
		FillPercentage looseNumber `json:"fill_percentage"`
	}
	Hygiene struct {
		OdorRisk           looseString `json:"odor_risk"`
		PestRisk           looseString `json:"pest_risk"`
		PublicHealthThreat looseString `json:"public_health_threat"`
	}
	Environment struct {
		ImpactLevel looseString `json:"impact_level"`
	}
	Urgency struct {
		PriorityLevel  looseString `json:"priority_level"`
		UrgencyMessage looseString `json:"urgency_message"`
	}
	Confidence struct {
		Score looseNumber `json:"score"`
	}
	SuggestedActions looseStrings
	Insights         looseStrings
	Recommendation   looseString
	Details          looseString
}

type legacyAssessment struct {
	Status         looseString  `json:"status"`
	Percentage     looseNumber  `json:"percentage"`
	Priority       looseString  `json:"priority"`
	Recommendation looseString  `json:"recommendation"`
	Confidence     looseNumber  `json:"ai_confidence"`
	AltConfidence  looseNumber  `json:"confidence"`
	Details        looseString  `json:"details"`
	Actions        looseStrings `json:"recommendations"`
	HealthRisks    struct {
		MosquitoRisk        looseString `json:"mosquito_risk"`
		OdorRisk            looseString `json:"odor_risk"`
		DiseaseRisk         looseString `json:"disease_risk"`
		PublicHygieneImpact looseString `json:"public_hygiene_impact"`
	} `json:"health_risks"`
}

// externalStatus collapses the model vocabulary onto the internal one.
// full, overflowing and hazardous all become overflowing.
var externalStatus = map[string]models.BinStatus{
	"empty":       models.BinStatusEmpty,
	"partial":     models.BinStatusHalfFilled,
	"half-filled": models.BinStatusHalfFilled,
	"full":        models.BinStatusOverflowing,
	"overflowing": models.BinStatusOverflowing,
	"hazardous":   models.BinStatusOverflowing,
}

// NormalizeAssessment parses a model reply into a BinAnalysis. It fails only
// when no JSON object can be extracted from the reply.
func NormalizeAssessment(content string) (*BinAnalysis, error) {
	raw, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	payload, err := decodeAssessment(raw)
	if err != nil {
		return nil, err
	}

	return payload.normalize(), nil
}

// FallbackAnalysis is the canned low-confidence result used when the model
// is unreachable or its reply cannot be parsed.
func FallbackAnalysis(details string) *BinAnalysis {
	return &BinAnalysis{
		Status:              models.BinStatusHalfFilled,
		FillLevel:           defaultFillLevel,
		Priority:            models.PriorityMedium,
		Recommendation:      fallbackRecommended,
		Confidence:          fallbackConfidence,
		OdorRisk:            models.RiskLow,
		PestRisk:            models.RiskLow,
		DiseaseRisk:         models.RiskLow,
		PublicHygieneImpact: models.RiskLow,
		SuggestedActions:    []string{},
		Insights:            []string{},
		Details:             truncate(details, 500),
		Schema:              SchemaFallback,
		Degraded:            true,
	}
}

func decodeAssessment(raw []byte) (assessmentPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, ErrNoJSON
	}

	if _, ok := fields["bin_status"]; ok {
		var c comprehensiveAssessment
		decodeSection(fields, "bin_status", &c.BinStatus)
		decodeSection(fields, "hygiene_assessment", &c.Hygiene)
		decodeSection(fields, "environmental_impact", &c.Environment)
		decodeSection(fields, "priority_urgency", &c.Urgency)
		decodeSection(fields, "confidence", &c.Confidence)
		decodeSection(fields, "suggested_actions", &c.SuggestedActions)
		decodeSection(fields, "smart_insights", &c.Insights)
		decodeSection(fields, "recommendation", &c.Recommendation)
		decodeSection(fields, "details", &c.Details)
		return &c, nil
	}

	var l legacyAssessment
	// Field-level wrappers never fail; a malformed health_risks block is skipped.
	if err := json.Unmarshal(raw, &l); err != nil {
		l.HealthRisks = legacyAssessment{}.HealthRisks
	}
	return &l, nil
}

func decodeSection(fields map[string]json.RawMessage, key string, target interface{}) {
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, target)
	}
}

func (c *comprehensiveAssessment) normalize() *BinAnalysis {
	fill := c.BinStatus.FillPercentage.Percent(defaultFillLevel)
	status := mapExternalStatus(c.BinStatus.Status, c.BinStatus.FillPercentage.Set, fill)

	priority := models.Priority(c.Urgency.PriorityLevel.Lower())
	if !priority.Valid() {
		priority = models.DerivePriority(status, fill)
	}

	recommendation := string(c.Recommendation)
	if recommendation == "" && len(c.SuggestedActions) > 0 {
		recommendation = c.SuggestedActions[0]
	}

	return &BinAnalysis{
		Status:              status,
		FillLevel:           fill,
		Priority:            priority,
		Recommendation:      recommendation,
		Confidence:          c.Confidence.Score.Percent(defaultConfidence),
		OdorRisk:            normalizeRisk(c.Hygiene.OdorRisk),
		PestRisk:            normalizeRisk(c.Hygiene.PestRisk),
		DiseaseRisk:         normalizeRisk(c.Hygiene.PublicHealthThreat),
		PublicHygieneImpact: normalizeRisk(c.Environment.ImpactLevel),
		SuggestedActions:    nonNil(c.SuggestedActions),
		Insights:            nonNil(c.Insights),
		UrgencyMessage:      string(c.Urgency.UrgencyMessage),
		Details:             string(c.Details),
		Schema:              SchemaComprehensive,
	}
}

func (l *legacyAssessment) normalize() *BinAnalysis {
	fill := l.Percentage.Percent(defaultFillLevel)
	status := mapExternalStatus(l.Status, l.Percentage.Set, fill)

	// Legacy replies rarely carry a priority; derive it from the visual state.
	priority := models.Priority(l.Priority.Lower())
	if !priority.Valid() {
		priority = models.DerivePriority(status, fill)
	}

	confidence := l.Confidence.Percent(-1)
	if confidence < 0 {
		confidence = l.AltConfidence.Percent(defaultConfidence)
	}

	return &BinAnalysis{
		Status:              status,
		FillLevel:           fill,
		Priority:            priority,
		Recommendation:      string(l.Recommendation),
		Confidence:          confidence,
		OdorRisk:            normalizeRisk(l.HealthRisks.OdorRisk),
		PestRisk:            normalizeRisk(l.HealthRisks.MosquitoRisk),
		DiseaseRisk:         normalizeRisk(l.HealthRisks.DiseaseRisk),
		PublicHygieneImpact: normalizeRisk(l.HealthRisks.PublicHygieneImpact),
		SuggestedActions:    nonNil(l.Actions),
		Insights:            []string{},
		Details:             string(l.Details),
		Schema:              SchemaLegacy,
	}
}

// mapExternalStatus maps the model's status word. An unknown word falls back
// to the fill-derived status when a fill was reported, else half-filled.
func mapExternalStatus(status looseString, fillSet bool, fill int) models.BinStatus {
	if mapped, ok := externalStatus[status.Lower()]; ok {
		return mapped
	}
	if fillSet {
		return models.StatusForFill(fill)
	}
	return models.BinStatusHalfFilled
}

func normalizeRisk(value looseString) models.RiskLevel {
	switch value.Lower() {
	case "medium", "moderate", "concerning":
		return models.RiskMedium
	case "high", "severe", "dangerous", "critical":
		return models.RiskHigh
	default:
		return models.RiskLow
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// AnalyzerService runs bin analysis through the AI gateway and records scan history
type AnalyzerService struct {
	ai     Assessor
	scans  ScanStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalyzerService(ai Assessor, scans ScanStore, logger *zap.Logger) *AnalyzerService {
	return &AnalyzerService{
		ai:     ai,
		scans:  scans,
		logger: logger,
		now:    time.Now,
	}
}

// Analyze never fails on AI problems: an unreachable model or an unparseable
// reply yields FallbackAnalysis with Degraded set.
func (s *AnalyzerService) Analyze(ctx context.Context, userID string, img *Image) *BinAnalysis {
	analysis := s.assess(ctx, img)

	if userID != "" {
		s.recordScan(ctx, userID, analysis)
	}

	return analysis
}

func (s *AnalyzerService) assess(ctx context.Context, img *Image) *BinAnalysis {
	content, err := s.ai.Assess(ctx, TaskBinAnalysis, img)
	if err != nil {
		s.logger.Warn("Bin analysis unavailable, using fallback", zap.Error(err))
		metrics.RecordAIFallback(string(TaskBinAnalysis))
		return FallbackAnalysis("AI analysis unavailable: " + err.Error())
	}

	analysis, err := NormalizeAssessment(content)
	if err != nil {
		s.logger.Warn("Failed to parse bin analysis", zap.Error(err), zap.String("raw", truncate(content, 500)))
		metrics.RecordAIFallback(string(TaskBinAnalysis))
		return FallbackAnalysis(content)
	}

	return analysis
}

func (s *AnalyzerService) recordScan(ctx context.Context, userID string, a *BinAnalysis) {
	scan := &models.ScanRecord{
		UserID:         userID,
		FillLevel:      a.FillLevel,
		Status:         a.Status,
		Priority:       a.Priority,
		Recommendation: a.Recommendation,
		AIConfidence:   a.Confidence,
		OdorRisk:       a.OdorRisk,
		PestRisk:       a.PestRisk,
		DiseaseRisk:    a.DiseaseRisk,
		HygieneImpact:  a.PublicHygieneImpact,
		Degraded:       a.Degraded,
		CreatedAt:      s.now(),
	}
	if err := s.scans.CreateScan(ctx, scan); err != nil {
		s.logger.Error("Failed to save scan history", zap.String("user_id", userID), zap.Error(err))
	}
}

// History lists the caller's most recent scans
func (s *AnalyzerService) History(ctx context.Context, userID string, limit int) ([]models.ScanRecord, error) {
	return s.scans.ListScans(ctx, userID, clampLimit(limit, 20, 100))
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
