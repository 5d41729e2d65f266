package services

import (
	"context"
	"encoding/json"

	"github.com/revocity/revocity/api/metrics"
	"go.uber.org/zap"
)

// CleanupRecommendation is the verifier's advice to the administrator
type CleanupRecommendation string

const (
	CleanupApprove           CleanupRecommendation = "approve"
	CleanupReject            CleanupRecommendation = "reject"
	CleanupNeedsReinspection CleanupRecommendation = "needs_reinspection"
)

// CleanupVerdict is advisory; it never resolves or verifies a complaint by itself.
type CleanupVerdict struct {
	Verified               bool                  `json:"verified"`
	CleanlinessScore       int                   `json:"cleanliness_score"`
	BinStatus              string                `json:"bin_status"`
	SurroundingCleanliness string                `json:"surrounding_cleanliness"`
	IssuesFound            []string              `json:"issues_found"`
	Confidence             int                   `json:"confidence"`
	Recommendation         CleanupRecommendation `json:"recommendation"`
	RejectionReason        string                `json:"rejection_reason"`
	Summary                string                `json:"summary"`
	Degraded               bool                  `json:"degraded"`
}

type cleanupPayload struct {
	Verified               looseBool    `json:"verified"`
	CleanlinessScore       looseNumber  `json:"cleanliness_score"`
	BinStatus              looseString  `json:"bin_status"`
	SurroundingCleanliness looseString  `json:"surrounding_cleanliness"`
	IssuesFound            looseStrings `json:"issues_found"`
	Confidence             looseNumber  `json:"confidence"`
	Recommendation         looseString  `json:"recommendation"`
	RejectionReason        looseString  `json:"rejection_reason"`
	Summary                looseString  `json:"summary"`
}

// InconclusiveCleanup is the conservative verdict used when the photo could not be judged
func InconclusiveCleanup() *CleanupVerdict {
	return &CleanupVerdict{
		Verified:               false,
		CleanlinessScore:       50,
		BinStatus:              "partially_clean",
		SurroundingCleanliness: "needs_attention",
		IssuesFound:            []string{"Could not fully analyze image"},
		Confidence:             0,
		Recommendation:         CleanupNeedsReinspection,
		RejectionReason:        "Unable to fully verify cleanup",
		Summary:                "Manual inspection recommended",
		Degraded:               true,
	}
}

// ParseCleanupVerdict reads a verification reply. An unknown recommendation
// becomes needs_reinspection, and approve is downgraded unless verified is true.
func ParseCleanupVerdict(content string) (*CleanupVerdict, error) {
	raw, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var p cleanupPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrNoJSON
	}

	verified := p.Verified.Or(false)
	recommendation := CleanupRecommendation(p.Recommendation.Lower())
	switch recommendation {
	case CleanupApprove:
		if !verified {
			recommendation = CleanupNeedsReinspection
		}
	case CleanupReject, CleanupNeedsReinspection:
	default:
		recommendation = CleanupNeedsReinspection
	}

	binStatus := p.BinStatus.Lower()
	if binStatus == "" {
		binStatus = "partially_clean"
	}
	surrounding := p.SurroundingCleanliness.Lower()
	if surrounding == "" {
		surrounding = "needs_attention"
	}

	return &CleanupVerdict{
		Verified:               verified && recommendation == CleanupApprove,
		CleanlinessScore:       p.CleanlinessScore.Percent(50),
		BinStatus:              binStatus,
		SurroundingCleanliness: surrounding,
		IssuesFound:            nonNil(p.IssuesFound),
		Confidence:             p.Confidence.Percent(0),
		Recommendation:         recommendation,
		RejectionReason:        string(p.RejectionReason),
		Summary:                string(p.Summary),
	}, nil
}

// CleanupVerifier judges after-cleanup photos through the AI gateway
type CleanupVerifier struct {
	ai     Assessor
	logger *zap.Logger
}

func NewCleanupVerifier(ai Assessor, logger *zap.Logger) *CleanupVerifier {
	return &CleanupVerifier{ai: ai, logger: logger}
}

// Verify never approves on failure: errors yield InconclusiveCleanup.
func (v *CleanupVerifier) Verify(ctx context.Context, img *Image) *CleanupVerdict {
	content, err := v.ai.Assess(ctx, TaskCleanupVerification, img)
	if err != nil {
		v.logger.Warn("Cleanup verification unavailable", zap.Error(err))
		metrics.RecordAIFallback(string(TaskCleanupVerification))
		return InconclusiveCleanup()
	}

	verdict, err := ParseCleanupVerdict(content)
	if err != nil {
		v.logger.Warn("Failed to parse cleanup verification", zap.Error(err), zap.String("raw", truncate(content, 500)))
		metrics.RecordAIFallback(string(TaskCleanupVerification))
		return InconclusiveCleanup()
	}

	return verdict
}
