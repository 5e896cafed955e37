package compliance

import (
	"context"
	"fmt"
	"time"

	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/storage"
	"compliance-monitor/pkg/requestcontext"
)

// DashboardSummary is the monitoring snapshot served to compliance dashboards.
type DashboardSummary struct {
	TotalViolations  int       `json:"total_violations"`
	CriticalCount    int       `json:"critical_count"`
	HighCount        int       `json:"high_count"`
	MediumCount      int       `json:"medium_count"`
	LowCount         int       `json:"low_count"`
	OpenCount        int       `json:"open_count"`
	ResolvedCount    int       `json:"resolved_count"`
	OverdueCount     int       `json:"overdue_count"`
	AvgResolutionHrs float64   `json:"avg_resolution_hours"`
	ComplianceScore  float64   `json:"compliance_score"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// dashboardFetchLimit bounds the violation scan backing the summary.
const dashboardFetchLimit = 10000

// Dashboard folds the violation set into aggregate counts and the
// compliance score.
type Dashboard struct {
	violations storage.ViolationStore
	cache      *DashboardCache
}

func NewDashboard(violations storage.ViolationStore, cache *DashboardCache) *Dashboard {
	return &Dashboard{violations: violations, cache: cache}
}

// Summary computes the dashboard snapshot, consulting the cache first. The
// cache is best-effort; a cache failure falls through to a fresh computation.
func (d *Dashboard) Summary(ctx context.Context) (*DashboardSummary, error) {
	if cached, ok := d.cache.Get(ctx); ok {
		return cached, nil
	}

	vs, err := d.violations.FindByFilter(ctx, storage.ViolationFilter{Limit: dashboardFetchLimit})
	if err != nil {
		return nil, fmt.Errorf("load violations for dashboard: %w", err)
	}

	summary := Summarize(vs, requestcontext.Now(ctx))
	d.cache.Set(ctx, summary)
	return summary, nil
}

// Summarize is the pure fold over a violation set at a given instant. An
// empty set yields a perfect score of 100 with all counts zero.
func Summarize(vs []*domain.Violation, now time.Time) *DashboardSummary {
	summary := &DashboardSummary{GeneratedAt: now}
	if len(vs) == 0 {
		summary.ComplianceScore = 100.0
		return summary
	}

	var (
		riskSum          float64
		resolutionHrsSum float64
		resolvedWithTime int
	)

	for _, v := range vs {
		summary.TotalViolations++
		riskSum += v.RiskScore

		switch v.Severity {
		case domain.SeverityCritical:
			summary.CriticalCount++
		case domain.SeverityHigh:
			summary.HighCount++
		case domain.SeverityMedium:
			summary.MediumCount++
		case domain.SeverityLow:
			summary.LowCount++
		}

		if v.IsOpen() {
			summary.OpenCount++
		} else {
			summary.ResolvedCount++
		}

		if v.IsOverdue(now) {
			summary.OverdueCount++
		}

		if v.ResolvedAt != nil {
			resolutionHrsSum += v.ResolvedAt.Sub(v.DetectedAt).Hours()
			resolvedWithTime++
		}
	}

	if resolvedWithTime > 0 {
		summary.AvgResolutionHrs = resolutionHrsSum / float64(resolvedWithTime)
	}

	summary.ComplianceScore = complianceScore(riskSum, summary.TotalViolations, summary.OverdueCount)
	return summary
}

// complianceScore maps aggregate risk onto a 0..100 health score. The risk
// sum is normalized against a worst case of 10 points per violation, then
// each overdue case costs a flat 5 points on top of its risk contribution.
func complianceScore(riskSum float64, total, overdue int) float64 {
	score := 100.0 - (riskSum/(float64(total)*10.0))*100.0
	if score < 0 {
		score = 0
	}
	score -= 5.0 * float64(overdue)
	if score < 0 {
		score = 0
	}
	return score
}
