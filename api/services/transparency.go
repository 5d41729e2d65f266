package services

import (
	"math"
	"sort"
	"time"

	"github.com/revocity/revocity/api/models"
)

const unknownArea = "Unknown Area"

// ComplaintStats is the admin dashboard summary
type ComplaintStats struct {
	Total       int                            `json:"total"`
	ByStatus    map[models.ComplaintStatus]int `json:"byStatus"`
	ByPriority  map[models.Priority]int        `json:"byPriority"`
	ByArea      map[string]int                 `json:"byArea"`
	HighRisk    int                            `json:"highRisk"`
	Overflowing int                            `json:"overflowing"`
}

// SummarizeComplaints counts complaints by workflow state, priority and area in one pass
func SummarizeComplaints(complaints []models.Complaint) *ComplaintStats {
	stats := &ComplaintStats{
		ByStatus: map[models.ComplaintStatus]int{
			models.ComplaintPending:    0,
			models.ComplaintInProgress: 0,
			models.ComplaintEscalated:  0,
			models.ComplaintResolved:   0,
		},
		ByPriority: map[models.Priority]int{
			models.PriorityLow:      0,
			models.PriorityMedium:   0,
			models.PriorityHigh:     0,
			models.PriorityCritical: 0,
		},
		ByArea: map[string]int{},
	}

	for i := range complaints {
		c := &complaints[i]
		stats.Total++
		stats.ByStatus[c.ComplaintStatus]++
		stats.ByPriority[c.Priority]++
		// the transparency report groups unnamed areas; these counts do not
		if c.AreaName != nil && *c.AreaName != "" {
			stats.ByArea[*c.AreaName]++
		}
		if c.IsHighRiskArea {
			stats.HighRisk++
		}
		if c.Status == models.BinStatusOverflowing {
			stats.Overflowing++
		}
	}

	return stats
}

// AreaSummary is one area's line in the transparency report
type AreaSummary struct {
	AreaName string `json:"area_name"`
	Total    int    `json:"total"`
	Resolved int    `json:"resolved"`
	Pending  int    `json:"pending"`
}

func (a AreaSummary) resolvedRatio() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Resolved) / float64(a.Total)
}

// TransparencyReport is the public city cleanliness report
type TransparencyReport struct {
	TotalComplaints      int           `json:"totalComplaints"`
	ResolvedComplaints   int           `json:"resolvedComplaints"`
	PendingComplaints    int           `json:"pendingComplaints"`
	InProgressComplaints int           `json:"inProgressComplaints"`
	EscalatedComplaints  int           `json:"escalatedComplaints"`
	AvgResolutionHours   float64       `json:"avgResolutionHours"`
	CityCleanlinessScore float64       `json:"cityCleanlinessScore"`
	TopCleanAreas        []AreaSummary `json:"topCleanAreas"`
	ProblemHotspots      []AreaSummary `json:"problemHotspots"`
	WeeklyTrend          string        `json:"weeklyTrend"`
	WeeklyChange         float64       `json:"weeklyChange"`
	GeneratedAt          time.Time     `json:"generatedAt"`
}

// BuildTransparencyReport computes the public report as of now.
//
// The cleanliness score is the resolution rate minus up to 20 points for the
// escalated share, clamped to 0..100; an empty city scores 100.
func BuildTransparencyReport(complaints []models.Complaint, now time.Time) *TransparencyReport {
	report := &TransparencyReport{
		TopCleanAreas:   []AreaSummary{},
		ProblemHotspots: []AreaSummary{},
		WeeklyTrend:     "stable",
		GeneratedAt:     now,
	}

	oneWeekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var resolutionHours float64
	var resolvedWithTime, thisWeek, lastWeek int
	areas := map[string]*AreaSummary{}
	var order []string

	for i := range complaints {
		c := &complaints[i]
		report.TotalComplaints++

		switch c.ComplaintStatus {
		case models.ComplaintResolved:
			report.ResolvedComplaints++
		case models.ComplaintPending:
			report.PendingComplaints++
		case models.ComplaintInProgress:
			report.InProgressComplaints++
		case models.ComplaintEscalated:
			report.EscalatedComplaints++
		}

		if c.ResolvedAt != nil {
			resolutionHours += c.ResolvedAt.Sub(c.CreatedAt).Hours()
			resolvedWithTime++
		}

		if !c.CreatedAt.Before(oneWeekAgo) {
			thisWeek++
		} else if !c.CreatedAt.Before(twoWeeksAgo) {
			lastWeek++
		}

		label := areaLabel(c)
		area, ok := areas[label]
		if !ok {
			area = &AreaSummary{AreaName: label}
			areas[label] = area
			order = append(order, label)
		}
		area.Total++
		if c.ComplaintStatus == models.ComplaintResolved {
			area.Resolved++
		} else {
			area.Pending++
		}
	}

	if resolvedWithTime > 0 {
		report.AvgResolutionHours = resolutionHours / float64(resolvedWithTime)
	}

	report.CityCleanlinessScore = 100
	if total := float64(report.TotalComplaints); total > 0 {
		resolutionRate := float64(report.ResolvedComplaints) / total * 100
		penalty := float64(report.EscalatedComplaints) / total * 20
		report.CityCleanlinessScore = math.Max(0, math.Min(100, resolutionRate-penalty))
	}

	summaries := make([]AreaSummary, 0, len(order))
	for _, label := range order {
		summaries = append(summaries, *areas[label])
	}

	clean := append([]AreaSummary{}, summaries...)
	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].resolvedRatio() > clean[j].resolvedRatio()
	})
	report.TopCleanAreas = firstN(clean, 5)

	hotspots := make([]AreaSummary, 0, len(summaries))
	for _, a := range summaries {
		if a.Pending > 0 {
			hotspots = append(hotspots, a)
		}
	}
	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].Pending > hotspots[j].Pending
	})
	report.ProblemHotspots = firstN(hotspots, 5)

	if lastWeek > 0 {
		change := float64(thisWeek-lastWeek) / float64(lastWeek) * 100
		switch {
		case change > 5:
			report.WeeklyTrend = "up"
		case change < -5:
			report.WeeklyTrend = "down"
		}
		report.WeeklyChange = math.Abs(change)
	}

	return report
}

func areaLabel(c *models.Complaint) string {
	if c.AreaName != nil && *c.AreaName != "" {
		return *c.AreaName
	}
	return unknownArea
}

func firstN(areas []AreaSummary, n int) []AreaSummary {
	if len(areas) > n {
		return areas[:n]
	}
	return areas
}
