package approval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"apflow-mcp/internal/store"
)

const (
	maxReasons         = 10
	maxRecommendations = 8

	// frequentReasonShare is the share of rejected history a reason must
	// reach before it is merged into a report.
	frequentReasonShare = 0.10
)

// RiskReason is one contributing factor with its severity.
type RiskReason struct {
	Reason   string `json:"reason"`
	Severity string `json:"severity"` // high | medium | low
}

// MissingRequirement is a required document the item does not carry.
type MissingRequirement struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Impact   string `json:"impact"` // blocking | significant | minor
}

// Recommendation is one actionable suggestion, ranked by priority.
type Recommendation struct {
	Action   string `json:"action"`
	Priority string `json:"priority"` // high | medium | low
}

// RiskReport is the full rejection-risk analysis result.
type RiskReport struct {
	ItemDescription     string               `json:"item_description"`
	Probability         float64              `json:"rejection_probability"`
	RiskLevel           string               `json:"risk_level"` // high | medium | low
	Reasons             []RiskReason         `json:"rejection_reasons"`
	MissingRequirements []MissingRequirement `json:"missing_requirements"`
	Recommendations     []Recommendation     `json:"recommendations"`
	Historical          HistoricalStats      `json:"historical_context"`
}

// RiskAnalyzer predicts the probability an item will be rejected and why.
// It is stateless; every call performs its own reads.
type RiskAnalyzer struct {
	tables   *Tables
	resolver *Resolver
	ledger   store.WorkflowLedger
	budget   store.BudgetStore
	timeout  time.Duration
}

// NewRiskAnalyzer wires the analyzer against its collaborators.
func NewRiskAnalyzer(tables *Tables, resolver *Resolver, ledger store.WorkflowLedger, budget store.BudgetStore, timeout time.Duration) *RiskAnalyzer {
	return &RiskAnalyzer{tables: tables, resolver: resolver, ledger: ledger, budget: budget, timeout: timeout}
}

// Analyze computes the rejection probability for one item. The ledger read
// is required; item and budget lookups degrade per their documented
// fallbacks.
func (a *RiskAnalyzer) Analyze(ctx context.Context, projectID string, itemType ItemType, itemID string) (*RiskReport, error) {
	var (
		item    Item
		records []store.WorkflowRecord
		budget  *store.Budget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		item = a.resolver.Resolve(gctx, itemType, itemID)
		return nil
	})
	g.Go(func() error {
		readCtx, cancel := context.WithTimeout(gctx, a.timeout)
		defer cancel()
		var err error
		records, err = a.ledger.ListRecent(readCtx, projectID, string(itemType), "", HistoryWindow)
		if err != nil {
			return fmt.Errorf("failed to fetch workflow history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		readCtx, cancel := context.WithTimeout(gctx, a.timeout)
		defer cancel()
		b, err := a.budget.GetBudget(readCtx, projectID)
		if err != nil {
			// Optional lookup: value checks are skipped without figures.
			log.Warn().Err(err).Str("projectId", projectID).Msg("Budget lookup failed, skipping value checks")
			return nil
		}
		budget = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := ComputeStats(records, a.tables.BaseDurations[itemType])
	report := scoreRejectionRisk(a.tables, item, stats, budget)
	return report, nil
}

// scoreRejectionRisk runs the additive, capped scoring pipeline. It is pure:
// the same item, history and budget always yield the same report, including
// ordering.
func scoreRejectionRisk(tables *Tables, item Item, stats HistoricalStats, budget *store.Budget) *RiskReport {
	report := &RiskReport{
		ItemDescription: item.Description,
		Historical:      stats,
	}

	p := stats.RejectionRate * 0.3

	// Pattern-based field checks.
	for _, pattern := range tables.RejectionPatterns[item.Type] {
		if pattern.CheckField == "" {
			continue
		}
		if item.Fields.Present(pattern.CheckField) {
			continue
		}
		p = Clamp(p+pattern.Weight*0.4, 0, MaxProbability)
		report.Reasons = append(report.Reasons, RiskReason{
			Reason:   pattern.Reason,
			Severity: severityForWeight(pattern.Weight),
		})
	}

	// Value checks against budget figures.
	if budget != nil && item.Value != nil {
		switch {
		case item.Type == ChangeOrder && *item.Value > budget.ContingencyRemaining:
			p = Clamp(p+0.15, 0, MaxProbability)
			report.Reasons = append(report.Reasons, RiskReason{
				Reason: fmt.Sprintf("Value $%.0f exceeds remaining contingency of $%.0f",
					*item.Value, budget.ContingencyRemaining),
				Severity: "high",
			})
		case item.Type == PurchaseOrder && budget.TotalBudget > 0 && *item.Value > budget.TotalBudget*0.10:
			p = Clamp(p+0.10, 0, MaxProbability)
			report.Reasons = append(report.Reasons, RiskReason{
				Reason:   "Order value is large relative to the project budget",
				Severity: "medium",
			})
		}
	}

	// Historically frequent rejection reasons not already captured.
	for _, reason := range stats.FrequentRejectionReasons(frequentReasonShare) {
		if hasReason(report.Reasons, reason) {
			continue
		}
		report.Reasons = append(report.Reasons, RiskReason{
			Reason:   fmt.Sprintf("Historically frequent: %s", reason),
			Severity: "medium",
		})
	}

	// Required-document presence.
	for _, doc := range tables.RequiredDocuments[item.Type] {
		if documentPresent(item.Fields, doc) {
			continue
		}
		impact := doc.Category.Impact()
		report.MissingRequirements = append(report.MissingRequirements, MissingRequirement{
			Name:     doc.Name,
			Category: string(doc.Category),
			Impact:   impact,
		})
		switch impact {
		case "blocking":
			p = Clamp(p+0.15, 0, MaxProbability)
		case "significant":
			p = Clamp(p+0.05, 0, MaxProbability)
		}
	}

	report.Probability = Clamp(p, 0, MaxProbability)
	report.RiskLevel = riskLevel(report.Probability)
	report.Recommendations = buildRecommendations(item, report)

	sort.SliceStable(report.Reasons, func(i, j int) bool {
		return severityRank(report.Reasons[i].Severity) < severityRank(report.Reasons[j].Severity)
	})
	if len(report.Reasons) > maxReasons {
		report.Reasons = report.Reasons[:maxReasons]
	}

	return report
}

func buildRecommendations(item Item, report *RiskReport) []Recommendation {
	var recs []Recommendation

	for _, req := range report.MissingRequirements {
		if req.Impact != "blocking" {
			continue
		}
		recs = append(recs, Recommendation{
			Action:   fmt.Sprintf("Provide %s before submission; approval is blocked without it", req.Name),
			Priority: "high",
		})
	}

	for _, reason := range report.Reasons {
		if reason.Severity != "high" {
			continue
		}
		action := fmt.Sprintf("Address before routing: %s", reason.Reason)
		if hasAction(recs, action) {
			continue
		}
		recs = append(recs, Recommendation{Action: action, Priority: "high"})
	}

	// Well-known per-type gaps.
	switch item.Type {
	case ChangeOrder:
		if !item.Fields.Present("cost_breakdown") {
			recs = append(recs, Recommendation{
				Action:   "Attach a line-item cost breakdown; change orders without one are routinely returned",
				Priority: "high",
			})
		}
	case PaymentApplication:
		if !item.Fields.Present("lien_waiver") {
			recs = append(recs, Recommendation{
				Action:   "Collect conditional lien waivers for all billed subcontractors",
				Priority: "high",
			})
		}
	}

	if report.Probability > 0.5 {
		recs = append(recs, Recommendation{
			Action:   "Schedule a pre-submission review with the approver to resolve open issues",
			Priority: "medium",
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return severityRank(recs[i].Priority) < severityRank(recs[j].Priority)
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// documentPresent tries each enumerated alias plus the two derived forms of
// the document name: fully underscored and lowercase first word.
func documentPresent(fields FieldBag, doc RequiredDocument) bool {
	candidates := make([]string, 0, len(doc.Aliases)+2)
	candidates = append(candidates, doc.Aliases...)

	lower := strings.ToLower(doc.Name)
	candidates = append(candidates, strings.ReplaceAll(lower, " ", "_"))
	if first, _, found := strings.Cut(lower, " "); found {
		candidates = append(candidates, first)
	}

	for _, c := range candidates {
		if fields.Present(c) {
			return true
		}
	}
	return false
}

func severityForWeight(w float64) string {
	switch {
	case w >= 0.4:
		return "high"
	case w >= 0.2:
		return "medium"
	default:
		return "low"
	}
}

func riskLevel(p float64) string {
	switch {
	case p >= 0.6:
		return "high"
	case p >= 0.3:
		return "medium"
	default:
		return "low"
	}
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}

func hasReason(reasons []RiskReason, reason string) bool {
	for _, r := range reasons {
		if strings.EqualFold(r.Reason, reason) {
			return true
		}
	}
	return false
}

func hasAction(recs []Recommendation, action string) bool {
	for _, r := range recs {
		if r.Action == action {
			return true
		}
	}
	return false
}
