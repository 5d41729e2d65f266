package services

import (
	"context"
	"encoding/json"

	"github.com/revocity/revocity/api/metrics"
	"go.uber.org/zap"
)

// AuthenticityWarningThreshold is the score below which a verdict carries a soft warning
const AuthenticityWarningThreshold = 70

// ImageVerdict is the intake screening result for a complaint photo
type ImageVerdict struct {
	IsValid              bool     `json:"is_valid"`
	IsGarbageBinRelated  bool     `json:"is_garbage_bin_related"`
	AuthenticityScore    int      `json:"authenticity_score"`
	ManipulationDetected bool     `json:"manipulation_detected"`
	IsStockImage         bool     `json:"is_stock_image"`
	IsAIGenerated        bool     `json:"is_ai_generated"`
	ContentType          string   `json:"content_type"`
	Flags                []string `json:"flags"`
	Confidence           int      `json:"confidence"`
	Reason               string   `json:"reason"`
	// Validated is false when the screening could not run and the verdict is synthetic
	Validated bool `json:"validated"`
}

// Blocking reports whether submission must be refused
func (v *ImageVerdict) Blocking() bool {
	return !v.IsValid || !v.IsGarbageBinRelated
}

// Warning reports whether the image passes with a low-authenticity caution
func (v *ImageVerdict) Warning() bool {
	return !v.Blocking() && v.AuthenticityScore < AuthenticityWarningThreshold
}

type verdictPayload struct {
	IsValid              looseBool    `json:"is_valid"`
	IsGarbageBinRelated  looseBool    `json:"is_garbage_bin_related"`
	AuthenticityScore    looseNumber  `json:"authenticity_score"`
	ManipulationDetected looseBool    `json:"manipulation_detected"`
	IsStockImage         looseBool    `json:"is_stock_image"`
	IsAIGenerated        looseBool    `json:"is_ai_generated"`
	ContentType          looseString  `json:"content_type"`
	Flags                looseStrings `json:"flags"`
	Confidence           looseNumber  `json:"confidence"`
	Reason               looseString  `json:"reason"`
}

// UnvalidatedVerdict is the fail-open verdict used when screening is unavailable
func UnvalidatedVerdict() *ImageVerdict {
	return &ImageVerdict{
		IsValid:             true,
		IsGarbageBinRelated: true,
		AuthenticityScore:   AuthenticityWarningThreshold,
		ContentType:         "unclear",
		Flags:               []string{"Could not fully validate"},
		Confidence:          0,
		Reason:              "Validation unavailable, proceed with caution",
		Validated:           false,
	}
}

// ParseVerdict reads a screening reply. Missing fields take permissive
// defaults; only a reply with no JSON object is an error.
func ParseVerdict(content string) (*ImageVerdict, error) {
	raw, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var p verdictPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrNoJSON
	}

	return &ImageVerdict{
		IsValid:              p.IsValid.Or(true),
		IsGarbageBinRelated:  p.IsGarbageBinRelated.Or(true),
		AuthenticityScore:    p.AuthenticityScore.Percent(AuthenticityWarningThreshold),
		ManipulationDetected: p.ManipulationDetected.Or(false),
		IsStockImage:         p.IsStockImage.Or(false),
		IsAIGenerated:        p.IsAIGenerated.Or(false),
		ContentType:          string(p.ContentType),
		Flags:                nonNil(p.Flags),
		Confidence:           p.Confidence.Percent(0),
		Reason:               string(p.Reason),
		Validated:            true,
	}, nil
}

// ValidatorService screens complaint photos before analysis
type ValidatorService struct {
	ai     Assessor
	logger *zap.Logger
}

func NewValidatorService(ai Assessor, logger *zap.Logger) *ValidatorService {
	return &ValidatorService{ai: ai, logger: logger}
}

// Validate never fails: any gateway or parse error yields UnvalidatedVerdict.
func (s *ValidatorService) Validate(ctx context.Context, img *Image) *ImageVerdict {
	content, err := s.ai.Assess(ctx, TaskImageValidation, img)
	if err != nil {
		s.logger.Warn("Image validation unavailable, failing open", zap.Error(err))
		metrics.RecordAIFallback(string(TaskImageValidation))
		return UnvalidatedVerdict()
	}

	verdict, err := ParseVerdict(content)
	if err != nil {
		s.logger.Warn("Failed to parse validation response", zap.Error(err), zap.String("raw", truncate(content, 500)))
		metrics.RecordAIFallback(string(TaskImageValidation))
		return UnvalidatedVerdict()
	}

	return verdict
}
