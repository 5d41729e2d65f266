package services

import "fmt"

func promptsFor(task Task) (system string, user string, err error) {
	switch task {
	case TaskBinAnalysis:
		return binAnalysisPrompt, "Assess this garbage bin image. Cover fill level, hygiene, environmental impact and urgency.", nil
	case TaskImageValidation:
		return imageValidationPrompt, "Check whether this is a genuine, relevant garbage bin complaint photo.", nil
	case TaskCleanupVerification:
		return cleanupVerificationPrompt, "Check whether this after-cleanup photo shows a properly cleaned bin area.", nil
	}
	return "", "", fmt.Errorf("unknown ai task: %s", task)
}

const binAnalysisPrompt = `You assess photos of municipal garbage bins for a waste management service.

Reply with a single JSON object and nothing else:
{
  "bin_status": {
    "status": "empty" | "partial" | "full" | "overflowing" | "hazardous",
    "fill_percentage": 0-100,
    "condition_clarity": "clear" | "partially_visible" | "low_confidence"
  },
  "hygiene_assessment": {
    "odor_risk": "low" | "medium" | "high",
    "pest_risk": "none" | "low" | "medium" | "high",
    "public_health_threat": "low" | "medium" | "severe",
    "surrounding_cleanliness": "clean" | "litter_present" | "dirty"
  },
  "environmental_impact": {
    "pollution_chance": "low" | "medium" | "high",
    "litter_spread_risk": "low" | "medium" | "high",
    "impact_level": "minor" | "concerning" | "dangerous"
  },
  "priority_urgency": {
    "priority_level": "low" | "medium" | "high" | "critical",
    "urgency_hours": <number>,
    "urgency_message": "<short message>"
  },
  "suggested_actions": ["<action>"],
  "confidence": {"score": 0-100, "quality_note": "<note>"},
  "smart_insights": ["<insight>"],
  "recommendation": "<primary recommendation>",
  "details": "<short visual description>"
}

Status guide: empty is 0-25% full, partial 26-50%, full 51-90%, overflowing above 90% or spilling,
hazardous when medical, chemical or otherwise dangerous waste is visible.
Priority guide: critical needs action within 2 hours, high the same day, medium within 48 hours,
low can wait for the scheduled pickup.`

const imageValidationPrompt = `You screen photos submitted as garbage bin complaints for a municipal service.
Detect fake, irrelevant, stock, AI-generated or manipulated images.

Reply with a single JSON object and nothing else:
{
  "is_valid": true | false,
  "is_garbage_bin_related": true | false,
  "authenticity_score": 0-100,
  "manipulation_detected": true | false,
  "is_stock_image": true | false,
  "is_ai_generated": true | false,
  "content_type": "garbage_bin" | "waste_area" | "irrelevant" | "spam" | "unclear",
  "flags": ["<concern>"],
  "confidence": 0-100,
  "reason": "<short explanation>"
}`

const cleanupVerificationPrompt = `You verify that a garbage bin area has been cleaned, from an "after cleanup" photo.
Check the bin, the surrounding ground, leftover waste or spillage, and signs of a staged photo.

Reply with a single JSON object and nothing else:
{
  "verified": true | false,
  "cleanliness_score": 0-100,
  "bin_status": "clean" | "partially_clean" | "still_dirty",
  "surrounding_cleanliness": "clean" | "needs_attention" | "dirty",
  "issues_found": ["<issue>"],
  "confidence": 0-100,
  "recommendation": "approve" | "reject" | "needs_reinspection",
  "rejection_reason": "<reason, empty when approved>",
  "summary": "<short summary>"
}`
