package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseCleanupVerdict_Approve(t *testing.T) {
	v, err := ParseCleanupVerdict(`{"verified": true, "cleanliness_score": 94, "bin_status": "Clean", "recommendation": "approve"}`)
	require.NoError(t, err)

	assert.True(t, v.Verified)
	assert.Equal(t, CleanupApprove, v.Recommendation)
	assert.Equal(t, 94, v.CleanlinessScore)
	assert.Equal(t, "clean", v.BinStatus)
	assert.Equal(t, "needs_attention", v.SurroundingCleanliness)
}

func TestParseCleanupVerdict_ApproveWithoutVerificationIsDowngraded(t *testing.T) {
	for _, reply := range []string{
		`{"recommendation": "approve"}`,
		`{"verified": false, "recommendation": "approve"}`,
		`{"verified": "maybe", "recommendation": "approve"}`,
	} {
		v, err := ParseCleanupVerdict(reply)
		require.NoError(t, err, reply)
		assert.False(t, v.Verified, reply)
		assert.Equal(t, CleanupNeedsReinspection, v.Recommendation, reply)
	}
}

func TestParseCleanupVerdict_UnknownRecommendation(t *testing.T) {
	v, err := ParseCleanupVerdict(`{"verified": true, "recommendation": "looks fine"}`)
	require.NoError(t, err)

	assert.Equal(t, CleanupNeedsReinspection, v.Recommendation)
	assert.False(t, v.Verified)
	assert.Equal(t, 50, v.CleanlinessScore)
}

func TestParseCleanupVerdict_Reject(t *testing.T) {
	v, err := ParseCleanupVerdict(`{"verified": false, "recommendation": "reject", "rejection_reason": "Bin still full", "issues_found": ["garbage around bin"]}`)
	require.NoError(t, err)

	assert.Equal(t, CleanupReject, v.Recommendation)
	assert.Equal(t, "Bin still full", v.RejectionReason)
	assert.Equal(t, []string{"garbage around bin"}, v.IssuesFound)
}

func TestCleanupVerifier_NeverApprovesOnFailure(t *testing.T) {
	for _, ai := range []*fakeAssessor{
		{err: errors.New("connection reset")},
		{reply: "Looks clean!"},
	} {
		v := NewCleanupVerifier(ai, zap.NewNop()).Verify(context.Background(), testImage())

		assert.False(t, v.Verified)
		assert.Equal(t, CleanupNeedsReinspection, v.Recommendation)
		assert.True(t, v.Degraded)
		assert.Equal(t, []Task{TaskCleanupVerification}, ai.tasks)
	}
}
