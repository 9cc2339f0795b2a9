package mcp

import (
	"strings"
	"testing"

	"apflow-mcp/internal/approval"
)

func TestFormatRiskStatus(t *testing.T) {
	tests := []struct {
		level  string
		status string
	}{
		{"low", "success"},
		{"medium", "warning"},
		{"high", "error"},
	}

	for _, tt := range tests {
		out := formatRisk(&approval.RiskReport{ItemDescription: "CO 1", RiskLevel: tt.level})
		if out.Status != tt.status {
			t.Errorf("Risk level %s status = %s, want %s", tt.level, out.Status, tt.status)
		}
	}
}

func TestFormatRouteNoApprover(t *testing.T) {
	report := &approval.RouteReport{
		ItemDescription:     "Invoice 1",
		RecommendedApprover: approval.Candidate{Name: "No approver found"},
	}

	out := formatRoute(report)
	if out.Status != "warning" {
		t.Errorf("Unmatched routing status = %s, want warning", out.Status)
	}
	if !strings.Contains(out.Summary, "No approver found") {
		t.Errorf("Summary should name the placeholder, got %q", out.Summary)
	}
}

func TestFormatEscalationStatus(t *testing.T) {
	tests := []struct {
		name     string
		summary  approval.EscalationSummary
		expected string
	}{
		{"Clean", approval.EscalationSummary{}, "success"},
		{"Stalled", approval.EscalationSummary{TotalStalled: 2}, "warning"},
		{"Critical", approval.EscalationSummary{TotalStalled: 2, CriticalItems: 1}, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatEscalation(&approval.EscalationReport{Summary: tt.summary})
			if out.Status != tt.expected {
				t.Errorf("Status = %s, want %s", out.Status, tt.expected)
			}
		})
	}
}

func TestFormatTimelineLowConfidenceWarns(t *testing.T) {
	out := formatTimeline(&approval.TimelineReport{PredictedHours: 24, ConfidenceLevel: "low"})
	if out.Status != "warning" {
		t.Errorf("Low confidence status = %s, want warning", out.Status)
	}
}
