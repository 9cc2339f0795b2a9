package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"apflow-mcp/internal/store"
)

// TimelineRiskFactor is one adjustment applied to the prediction.
type TimelineRiskFactor struct {
	Factor     string  `json:"factor"`
	Impact     string  `json:"impact"` // delay | speed_up
	HoursDelta float64 `json:"hours_delta"`
}

// TimelineStage is one of the three fixed stages of the breakdown.
type TimelineStage struct {
	Stage      string   `json:"stage"`
	Hours      float64  `json:"estimated_hours"`
	Confidence int      `json:"confidence_percentage"`
	Factors    []string `json:"factors,omitempty"`
}

// TimelineReport is the full duration prediction.
type TimelineReport struct {
	PredictedHours       float64              `json:"predicted_hours"`
	PredictedCompletion  time.Time            `json:"predicted_completion"`
	ConfidenceLevel      string               `json:"confidence_level"` // low | medium | high
	ConfidencePercentage int                  `json:"confidence_percentage"`
	Historical           HistoricalStats      `json:"historical_comparison"`
	RiskFactors          []TimelineRiskFactor `json:"risk_factors"`
	Breakdown            []TimelineStage      `json:"timeline_breakdown"`
	Recommendations      []string             `json:"recommendations"`
}

// TimelinePredictor estimates how long an approval will take.
type TimelinePredictor struct {
	tables  *Tables
	ledger  store.WorkflowLedger
	team    store.TeamDirectory
	timeout time.Duration
	now     func() time.Time
}

// NewTimelinePredictor wires the predictor against its collaborators.
func NewTimelinePredictor(tables *Tables, ledger store.WorkflowLedger, team store.TeamDirectory, timeout time.Duration) *TimelinePredictor {
	return &TimelinePredictor{tables: tables, ledger: ledger, team: team, timeout: timeout, now: time.Now}
}

// highWorkloadPending is the pending count beyond which an assignee adds a
// delay factor.
const highWorkloadPending = 5

// Predict estimates the approval duration for a project/type, optionally
// refined by an assignee and a monetary value. The project history read is
// required; assignee lookups degrade gracefully.
func (p *TimelinePredictor) Predict(ctx context.Context, projectID string, itemType ItemType, assignedTo string, value *float64) (*TimelineReport, error) {
	readCtx, cancel := context.WithTimeout(ctx, p.timeout)
	records, err := p.ledger.ListRecent(readCtx, projectID, string(itemType), "", HistoryWindow)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow history: %w", err)
	}

	baseHours := p.tables.BaseDurations[itemType]
	stats := ComputeStats(records, baseHours)

	report := &TimelineReport{Historical: stats}

	predicted := baseHours
	if stats.TotalSimilarItems > 0 {
		predicted = stats.AvgCompletionHours
	}

	confidence := 30
	similarBoost := stats.TotalSimilarItems * 5
	if similarBoost > 40 {
		similarBoost = 40
	}
	confidence += similarBoost

	highWorkload := false
	if assignedTo != "" {
		assigneeStats, pending := p.assigneeProfile(ctx, projectID, itemType, assignedTo)
		if assigneeStats.TotalSimilarItems > 0 {
			// Blend personal history into the type-level baseline.
			blended := (predicted + assigneeStats.AvgCompletionHours) / 2
			delta := blended - predicted
			predicted = blended
			confidence += 15

			if stats.TotalSimilarItems > 0 && assigneeStats.AvgCompletionHours < stats.AvgCompletionHours*0.75 {
				report.RiskFactors = append(report.RiskFactors, TimelineRiskFactor{
					Factor:     "Assignee historically approves faster than the project average",
					Impact:     "speed_up",
					HoursDelta: delta,
				})
			}
		}
		if pending > highWorkloadPending {
			highWorkload = true
			predicted += 12
			report.RiskFactors = append(report.RiskFactors, TimelineRiskFactor{
				Factor:     fmt.Sprintf("Assignee has %d pending items", pending),
				Impact:     "delay",
				HoursDelta: 12,
			})
		}
	}

	highValue := value != nil && *value > HighValueThreshold
	if highValue {
		predicted += 24
		report.RiskFactors = append(report.RiskFactors, TimelineRiskFactor{
			Factor:     fmt.Sprintf("High value item ($%.0f) requires additional scrutiny", *value),
			Impact:     "delay",
			HoursDelta: 24,
		})
	}

	if stats.TotalSimilarItems > 0 {
		// Stage-level history is available for the breakdown.
		confidence += 15
	}
	if confidence > 95 {
		confidence = 95
	}

	report.PredictedHours = predicted
	report.PredictedCompletion = p.now().Add(time.Duration(predicted * float64(time.Hour)))
	report.ConfidencePercentage = confidence
	report.ConfidenceLevel = confidenceLevel(confidence)
	report.Breakdown = buildBreakdown(predicted, confidence, itemType)

	if stats.TotalSimilarItems > 0 && stats.OnTimePercentage < 70 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Only %.0f%% of similar items completed on time; monitor this item for delay", stats.OnTimePercentage))
	}
	if highWorkload {
		report.Recommendations = append(report.Recommendations,
			"Assignee workload is high; consider escalation or an alternate approver")
	}
	if highValue {
		report.Recommendations = append(report.Recommendations,
			"Hold a pre-approval discussion to shorten the evaluation stage")
	}

	return report, nil
}

// assigneeProfile fetches the assignee's personal history and pending count.
// Both lookups are optional signals and degrade to zero values.
func (p *TimelinePredictor) assigneeProfile(ctx context.Context, projectID string, itemType ItemType, assignedTo string) (HistoricalStats, int) {
	readCtx, cancel := context.WithTimeout(ctx, p.timeout)
	records, err := p.ledger.ListRecent(readCtx, projectID, string(itemType), assignedTo, HistoryWindow)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("userId", assignedTo).Msg("Assignee history lookup failed")
		records = nil
	}

	pending := 0
	countCtx, cancel := context.WithTimeout(ctx, p.timeout)
	if n, err := p.team.CountPendingAssigned(countCtx, projectID, assignedTo); err != nil {
		log.Warn().Err(err).Str("userId", assignedTo).Msg("Pending-count lookup failed")
	} else {
		pending = n
	}
	cancel()

	return ComputeStats(records, p.tables.BaseDurations[itemType]), pending
}

// buildBreakdown splits the prediction into exactly three ordered stages.
// The last stage takes the remainder so the three always sum to the total.
func buildBreakdown(totalHours float64, confidence int, itemType ItemType) []TimelineStage {
	initial := totalHours * 0.25
	detailed := totalHours * 0.5
	final := totalHours - initial - detailed

	return []TimelineStage{
		{
			Stage:      "Initial Review",
			Hours:      initial,
			Confidence: confidence,
			Factors:    []string{"Completeness check", "Assignment and acknowledgement"},
		},
		{
			Stage:      "Detailed Evaluation",
			Hours:      detailed,
			Confidence: confidence,
			Factors:    []string{fmt.Sprintf("%s content review", itemType.DisplayName()), "Cross-checks against budget and contract"},
		},
		{
			Stage:      "Final Sign-off",
			Hours:      final,
			Confidence: confidence,
			Factors:    []string{"Approver decision and signature"},
		},
	}
}

func confidenceLevel(pct int) string {
	switch {
	case pct >= 75:
		return "high"
	case pct >= 50:
		return "medium"
	default:
		return "low"
	}
}
