package mcp

import (
	"fmt"
	"strings"

	"apflow-mcp/internal/approval"
)

// FormattedOutput is the presentation projection consumed by the UI layer.
type FormattedOutput struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Status          string   `json:"status"` // success | warning | error
	Icon            string   `json:"icon"`
	Details         []Detail `json:"details"`
	ExpandedContent string   `json:"expandedContent,omitempty"`
}

// Detail is one label/value row.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Type  string `json:"type"` // text | percentage | currency | date | count
}

func formatRisk(r *approval.RiskReport) FormattedOutput {
	status := "success"
	icon := "check-circle"
	switch r.RiskLevel {
	case "high":
		status = "error"
		icon = "alert-octagon"
	case "medium":
		status = "warning"
		icon = "alert-triangle"
	}

	var expanded strings.Builder
	for _, reason := range r.Reasons {
		fmt.Fprintf(&expanded, "- [%s] %s\n", reason.Severity, reason.Reason)
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&expanded, "* (%s) %s\n", rec.Priority, rec.Action)
	}

	return FormattedOutput{
		Title:   fmt.Sprintf("Rejection Risk: %s", r.ItemDescription),
		Summary: fmt.Sprintf("%.0f%% rejection probability (%s risk)", r.Probability*100, r.RiskLevel),
		Status:  status,
		Icon:    icon,
		Details: []Detail{
			{Label: "Probability", Value: fmt.Sprintf("%.0f%%", r.Probability*100), Type: "percentage"},
			{Label: "Risk level", Value: r.RiskLevel, Type: "text"},
			{Label: "Missing requirements", Value: fmt.Sprintf("%d", len(r.MissingRequirements)), Type: "count"},
			{Label: "Similar items analyzed", Value: fmt.Sprintf("%d", r.Historical.TotalSimilarItems), Type: "count"},
		},
		ExpandedContent: expanded.String(),
	}
}

func formatRoute(r *approval.RouteReport) FormattedOutput {
	status := "success"
	icon := "route"
	if r.RecommendedApprover.Confidence == 0 {
		status = "warning"
		icon = "user-x"
	}

	var expanded strings.Builder
	for _, step := range r.ApprovalPath {
		name := "unassigned"
		if step.Approver != nil {
			name = step.Approver.Name
		}
		fmt.Fprintf(&expanded, "%d. %s: %s\n", step.Step, step.Role, name)
	}
	for _, rule := range r.RoutingRulesApplied {
		fmt.Fprintf(&expanded, "* %s\n", rule)
	}

	return FormattedOutput{
		Title:   fmt.Sprintf("Approval Routing: %s", r.ItemDescription),
		Summary: fmt.Sprintf("Route to %s (%.0f%% confidence), %d step(s)", r.RecommendedApprover.Name, r.RecommendedApprover.Confidence*100, len(r.ApprovalPath)),
		Status:  status,
		Icon:    icon,
		Details: []Detail{
			{Label: "Recommended approver", Value: r.RecommendedApprover.Name, Type: "text"},
			{Label: "Approval steps", Value: fmt.Sprintf("%d", len(r.ApprovalPath)), Type: "count"},
			{Label: "Multiple approvals", Value: fmt.Sprintf("%t", r.RequiresMultiple), Type: "text"},
			{Label: "Estimated completion", Value: r.EstimatedCompletionDate.Format("2006-01-02 15:04"), Type: "date"},
		},
		ExpandedContent: expanded.String(),
	}
}

func formatTimeline(r *approval.TimelineReport) FormattedOutput {
	status := "success"
	icon := "clock"
	if r.ConfidenceLevel == "low" || len(r.RiskFactors) > 1 {
		status = "warning"
	}

	var expanded strings.Builder
	for _, stage := range r.Breakdown {
		fmt.Fprintf(&expanded, "%s: %.1fh\n", stage.Stage, stage.Hours)
	}
	for _, f := range r.RiskFactors {
		fmt.Fprintf(&expanded, "* [%s] %s\n", f.Impact, f.Factor)
	}

	return FormattedOutput{
		Title:   "Approval Timeline Prediction",
		Summary: fmt.Sprintf("~%.0f hours to approval (%s confidence)", r.PredictedHours, r.ConfidenceLevel),
		Status:  status,
		Icon:    icon,
		Details: []Detail{
			{Label: "Predicted hours", Value: fmt.Sprintf("%.1f", r.PredictedHours), Type: "count"},
			{Label: "Predicted completion", Value: r.PredictedCompletion.Format("2006-01-02 15:04"), Type: "date"},
			{Label: "Confidence", Value: fmt.Sprintf("%d%%", r.ConfidencePercentage), Type: "percentage"},
			{Label: "Similar items analyzed", Value: fmt.Sprintf("%d", r.Historical.TotalSimilarItems), Type: "count"},
		},
		ExpandedContent: expanded.String(),
	}
}

func formatEscalation(r *approval.EscalationReport) FormattedOutput {
	status := "success"
	icon := "arrow-up-circle"
	if r.Summary.CriticalItems > 0 {
		status = "error"
		icon = "siren"
	} else if r.Summary.TotalStalled > 0 {
		status = "warning"
	}

	var expanded strings.Builder
	for _, item := range r.StalledItems {
		fmt.Fprintf(&expanded, "- [%s] %s (%d days)\n", item.Priority, item.Title, item.DaysOverdue)
	}
	for _, a := range r.Actions {
		fmt.Fprintf(&expanded, "* %s: %s -> %s (%s)\n", a.ItemID, a.FromRole, a.ToRole, a.ToName)
	}

	return FormattedOutput{
		Title:   "Stalled Item Escalation",
		Summary: fmt.Sprintf("%d stalled, %d escalated, %d notification(s) sent", r.Summary.TotalStalled, r.Summary.EscalatedCount, r.Summary.NotifiedCount),
		Status:  status,
		Icon:    icon,
		Details: []Detail{
			{Label: "Stalled items", Value: fmt.Sprintf("%d", r.Summary.TotalStalled), Type: "count"},
			{Label: "Escalated", Value: fmt.Sprintf("%d", r.Summary.EscalatedCount), Type: "count"},
			{Label: "Critical", Value: fmt.Sprintf("%d", r.Summary.CriticalItems), Type: "count"},
			{Label: "Avg days overdue", Value: fmt.Sprintf("%.1f", r.Summary.AvgDaysOverdue), Type: "count"},
		},
		ExpandedContent: expanded.String(),
	}
}

func formatError(tool string, err error) FormattedOutput {
	return FormattedOutput{
		Title:   fmt.Sprintf("Tool %s failed", tool),
		Summary: err.Error(),
		Status:  "error",
		Icon:    "x-circle",
	}
}
