package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/revocity/revocity/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const comprehensiveReply = "```json\n" + `{
  "bin_status": {"status": "overflowing", "fill_percentage": 92},
  "hygiene_assessment": {"odor_risk": "severe", "pest_risk": "moderate", "public_health_threat": "high"},
  "environmental_impact": {"impact_level": "low"},
  "priority_urgency": {"priority_level": "Critical", "urgency_message": "Collect within 2 hours"},
  "confidence": {"score": "88%"},
  "suggested_actions": ["Dispatch collection truck", "Sanitize area"],
  "smart_insights": ["Bin near market overflows on weekends"]
}` + "\n```"

func TestNormalizeAssessment_Comprehensive(t *testing.T) {
	a, err := NormalizeAssessment(comprehensiveReply)
	require.NoError(t, err)

	assert.Equal(t, SchemaComprehensive, a.Schema)
	assert.Equal(t, models.BinStatusOverflowing, a.Status)
	assert.Equal(t, 92, a.FillLevel)
	assert.Equal(t, models.PriorityCritical, a.Priority)
	assert.Equal(t, 88, a.Confidence)
	assert.Equal(t, models.RiskHigh, a.OdorRisk)
	assert.Equal(t, models.RiskMedium, a.PestRisk)
	assert.Equal(t, models.RiskHigh, a.DiseaseRisk)
	assert.Equal(t, models.RiskLow, a.PublicHygieneImpact)
	assert.Equal(t, "Dispatch collection truck", a.Recommendation)
	assert.Equal(t, "Collect within 2 hours", a.UrgencyMessage)
	assert.Len(t, a.Insights, 1)
	assert.False(t, a.Degraded)
}

func TestNormalizeAssessment_LegacyFullBin(t *testing.T) {
	a, err := NormalizeAssessment(`{"status": "full", "percentage": 95, "recommendation": "Empty today"}`)
	require.NoError(t, err)

	assert.Equal(t, SchemaLegacy, a.Schema)
	assert.Equal(t, models.BinStatusOverflowing, a.Status)
	assert.Equal(t, 95, a.FillLevel)
	assert.Equal(t, models.PriorityCritical, a.Priority)
	assert.Equal(t, defaultConfidence, a.Confidence)
	assert.Equal(t, "Empty today", a.Recommendation)
	assert.NotNil(t, a.SuggestedActions)
	assert.NotNil(t, a.Insights)
}

func TestNormalizeAssessment_StatusVocabulary(t *testing.T) {
	tests := []struct {
		reply string
		want  models.BinStatus
	}{
		{`{"status": "empty", "percentage": 5}`, models.BinStatusEmpty},
		{`{"status": "partial", "percentage": 40}`, models.BinStatusHalfFilled},
		{`{"status": "FULL", "percentage": 80}`, models.BinStatusOverflowing},
		{`{"status": "hazardous", "percentage": 60}`, models.BinStatusOverflowing},
		{`{"status": "weird", "percentage": 10}`, models.BinStatusEmpty},
		{`{"status": "weird"}`, models.BinStatusHalfFilled},
		{`{"bin_status": {"status": "full", "fill_percentage": 85}}`, models.BinStatusOverflowing},
	}

	for _, tt := range tests {
		a, err := NormalizeAssessment(tt.reply)
		require.NoError(t, err, tt.reply)
		assert.Equal(t, tt.want, a.Status, tt.reply)
	}
}

func TestNormalizeAssessment_MissingFieldsTakeDefaults(t *testing.T) {
	a, err := NormalizeAssessment(`{"bin_status": {}, "confidence": null, "suggested_actions": "not a list"}`)
	require.NoError(t, err)

	assert.Equal(t, defaultFillLevel, a.FillLevel)
	assert.Equal(t, models.BinStatusHalfFilled, a.Status)
	assert.Equal(t, models.PriorityMedium, a.Priority)
	assert.Equal(t, defaultConfidence, a.Confidence)
	assert.Equal(t, models.RiskLow, a.OdorRisk)
	assert.Empty(t, a.SuggestedActions)
	assert.NotNil(t, a.SuggestedActions)
}

func TestNormalizeAssessment_ClampsFill(t *testing.T) {
	a, err := NormalizeAssessment(`{"status": "full", "percentage": 140}`)
	require.NoError(t, err)
	assert.Equal(t, 100, a.FillLevel)
}

func TestNormalizeAssessment_NoJSON(t *testing.T) {
	_, err := NormalizeAssessment("The bin looks pretty full to me.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestAnalyzerService_FallsBackOnUnparseableReply(t *testing.T) {
	store := newMemStore()
	ai := &fakeAssessor{reply: "sorry, no idea"}
	svc := NewAnalyzerService(ai, store, zap.NewNop())

	a := svc.Analyze(context.Background(), "user-1", testImage())

	assert.True(t, a.Degraded)
	assert.Equal(t, SchemaFallback, a.Schema)
	assert.Equal(t, fallbackConfidence, a.Confidence)
	assert.Equal(t, models.BinStatusHalfFilled, a.Status)
	assert.Equal(t, []Task{TaskBinAnalysis}, ai.tasks)

	scans, err := svc.History(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.True(t, scans[0].Degraded)
}

func TestAnalyzerService_FallsBackOnGatewayError(t *testing.T) {
	svc := NewAnalyzerService(&fakeAssessor{err: ErrAIUnavailable}, newMemStore(), zap.NewNop())

	a := svc.Analyze(context.Background(), "", testImage())

	assert.True(t, a.Degraded)
	assert.Contains(t, a.Details, "not configured")
}

func TestAnalyzerService_RecordsScan(t *testing.T) {
	store := newMemStore()
	svc := NewAnalyzerService(&fakeAssessor{reply: comprehensiveReply}, store, zap.NewNop())
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	a := svc.Analyze(context.Background(), "user-1", testImage())
	require.False(t, a.Degraded)

	scans, err := svc.History(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, 92, scans[0].FillLevel)
	assert.Equal(t, models.PriorityCritical, scans[0].Priority)
	assert.Equal(t, now, scans[0].CreatedAt)
}

func TestAnalyzerService_ScanFailureDoesNotFailAnalysis(t *testing.T) {
	store := newMemStore()
	store.scanErr = errors.New("db down")
	svc := NewAnalyzerService(&fakeAssessor{reply: comprehensiveReply}, store, zap.NewNop())

	a := svc.Analyze(context.Background(), "user-1", testImage())
	assert.Equal(t, 92, a.FillLevel)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0, 20, 100))
	assert.Equal(t, 20, clampLimit(-3, 20, 100))
	assert.Equal(t, 100, clampLimit(1000, 20, 100))
	assert.Equal(t, 7, clampLimit(7, 20, 100))
}
