package approval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"apflow-mcp/internal/store"
)

// Candidate is one scored potential approver. Built fresh per call, never
// cached.
type Candidate struct {
	UserID           string  `json:"user_id"`
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Confidence       float64 `json:"confidence"`
	AvgResponseHours float64 `json:"avg_response_time_hours"`
	Workload         int     `json:"current_workload"`
	IsAvailable      bool    `json:"is_available"`
}

// PathStep is one step of the approval chain, in tier order.
type PathStep struct {
	Step             int        `json:"step"`
	Role             string     `json:"role"`
	Approver         *Candidate `json:"approver,omitempty"`
	ThresholdApplies bool       `json:"threshold_applies"`
	ThresholdNote    string     `json:"threshold_note,omitempty"`
}

// RouteReport is the full routing result.
type RouteReport struct {
	ItemDescription         string      `json:"item_description"`
	RecommendedApprover     Candidate   `json:"recommended_approver"`
	AlternateApprovers      []Candidate `json:"alternate_approvers"`
	ApprovalPath            []PathStep  `json:"approval_path"`
	RoutingRulesApplied     []string    `json:"routing_rules_applied"`
	RequiresMultiple        bool        `json:"requires_multiple_approvals"`
	EstimatedCompletionDate time.Time   `json:"estimated_completion_date"`
}

// Router determines the required approver chain for an item and recommends
// the best individual to route to.
type Router struct {
	tables   *Tables
	resolver *Resolver
	team     store.TeamDirectory
	ledger   store.WorkflowLedger
	timeout  time.Duration
	now      func() time.Time
}

// NewRouter wires the router against its collaborators.
func NewRouter(tables *Tables, resolver *Resolver, team store.TeamDirectory, ledger store.WorkflowLedger, timeout time.Duration) *Router {
	return &Router{
		tables:   tables,
		resolver: resolver,
		team:     team,
		ledger:   ledger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Route resolves the approval chain for one item. Team-directory and
// response-history failures degrade to unmatched steps rather than failing
// the call.
func (r *Router) Route(ctx context.Context, projectID string, itemType ItemType, itemID, urgency string) (*RouteReport, error) {
	item := r.resolver.Resolve(ctx, itemType, itemID)

	value := 0.0
	if item.Value != nil {
		value = *item.Value
	}
	tier := r.selectTier(itemType, value)

	members := r.listMembers(ctx, projectID)

	// Score every member matching a required role.
	candidatesByRole := make(map[string][]Candidate, len(tier.Roles))
	var all []Candidate
	for _, role := range tier.Roles {
		for _, m := range members {
			if NormalizeRole(m.Role) != NormalizeRole(role) {
				continue
			}
			c := r.scoreCandidate(ctx, projectID, itemType, role, m)
			candidatesByRole[role] = append(candidatesByRole[role], c)
			all = append(all, c)
		}
	}

	rankCandidates(all)
	for _, cs := range candidatesByRole {
		rankCandidates(cs)
	}

	report := &RouteReport{
		ItemDescription:  item.Description,
		RequiresMultiple: len(tier.Roles) > 1,
	}

	if len(all) > 0 {
		report.RecommendedApprover = all[0]
		limit := len(all)
		if limit > 4 {
			limit = 4
		}
		report.AlternateApprovers = all[1:limit]
	} else {
		report.RecommendedApprover = Candidate{Name: "No approver found", Confidence: 0}
	}

	// Build the stepped path, one step per required role in tier order.
	eta := r.now()
	for i, role := range tier.Roles {
		step := PathStep{Step: i + 1, Role: role}
		if threshold := r.roleThreshold(itemType, role); threshold > 0 {
			step.ThresholdApplies = true
			step.ThresholdNote = fmt.Sprintf("Required for amounts of $%.0f and above", threshold)
		}
		stepHours := DefaultResponseHours
		if cs := candidatesByRole[role]; len(cs) > 0 {
			step.Approver = &cs[0]
			stepHours = cs[0].AvgResponseHours
		}
		eta = eta.Add(time.Duration(stepHours * float64(time.Hour)))
		report.ApprovalPath = append(report.ApprovalPath, step)
	}
	report.EstimatedCompletionDate = eta

	if tier.Threshold > 0 {
		report.RoutingRulesApplied = append(report.RoutingRulesApplied,
			fmt.Sprintf("Value-based tier selected at the $%.0f threshold", tier.Threshold))
	}
	if report.RequiresMultiple {
		report.RoutingRulesApplied = append(report.RoutingRulesApplied,
			fmt.Sprintf("Multi-level approval required (%d approvers)", len(tier.Roles)))
	}
	if urgency == "high" || urgency == "critical" {
		report.RoutingRulesApplied = append(report.RoutingRulesApplied,
			fmt.Sprintf("Urgency-based priority routing applied (%s)", urgency))
	}

	return report, nil
}

// selectTier picks the highest tier whose threshold the value reaches; below
// every threshold the lowest tier still applies.
func (r *Router) selectTier(itemType ItemType, value float64) ThresholdTier {
	tiers := r.tables.ApprovalTiers[itemType]
	if len(tiers) == 0 {
		return ThresholdTier{Roles: []string{r.tables.DefaultEscalationRole}}
	}
	for _, tier := range tiers {
		if value >= tier.Threshold {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// roleThreshold finds the lowest tier boundary that introduces the role; 0
// means the role is required at any value.
func (r *Router) roleThreshold(itemType ItemType, role string) float64 {
	lowest := -1.0
	for _, tier := range r.tables.ApprovalTiers[itemType] {
		for _, tr := range tier.Roles {
			if NormalizeRole(tr) == NormalizeRole(role) {
				lowest = tier.Threshold
			}
		}
	}
	if lowest < 0 {
		return 0
	}
	return lowest
}

func (r *Router) listMembers(ctx context.Context, projectID string) []store.Member {
	readCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	members, err := r.team.ListMembers(readCtx, projectID)
	if err != nil {
		log.Warn().Err(err).Str("projectId", projectID).Msg("Team directory lookup failed, routing without candidates")
		return nil
	}
	return members
}

func (r *Router) scoreCandidate(ctx context.Context, projectID string, itemType ItemType, role string, m store.Member) Candidate {
	c := Candidate{
		UserID:           m.UserID,
		Name:             m.Name,
		Role:             role,
		AvgResponseHours: DefaultResponseHours,
	}

	pending := 0
	readCtx, cancel := context.WithTimeout(ctx, r.timeout)
	if n, err := r.team.CountPendingAssigned(readCtx, projectID, m.UserID); err != nil {
		log.Warn().Err(err).Str("userId", m.UserID).Msg("Pending-count lookup failed, assuming idle")
	} else {
		pending = n
	}
	cancel()

	c.Workload = pending * 10
	if c.Workload > MaxWorkload {
		c.Workload = MaxWorkload
	}

	c.IsAvailable = m.IsActive &&
		(m.LastLoginAt == nil || r.now().Sub(*m.LastLoginAt) <= 7*24*time.Hour)

	histCtx, cancel := context.WithTimeout(ctx, r.timeout)
	records, err := r.ledger.ListRecent(histCtx, projectID, string(itemType), m.UserID, HistoryWindow)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("userId", m.UserID).Msg("Response-history lookup failed, using default response time")
	} else if stats := ComputeStats(records, r.tables.BaseDurations[itemType]); stats.TotalSimilarItems > 0 {
		c.AvgResponseHours = stats.AvgCompletionHours
	}

	confidence := 0.5
	if c.IsAvailable {
		confidence += 0.2
	}
	if c.Workload < 50 {
		confidence += 0.15
	}
	if c.AvgResponseHours < DefaultResponseHours {
		confidence += 0.15
	}
	c.Confidence = Clamp(confidence, 0, 1)

	return c
}

// rankCandidates sorts by confidence descending, breaking ties by name so
// repeated calls produce identical rankings.
func rankCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Confidence != cs[j].Confidence {
			return cs[i].Confidence > cs[j].Confidence
		}
		return cs[i].Name < cs[j].Name
	})
}

// NormalizeRole folds case, whitespace, underscores and hyphens so that
// "Project Manager" and "project_manager" label the same role.
func NormalizeRole(role string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(role) {
		switch r {
		case ' ', '\t', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
