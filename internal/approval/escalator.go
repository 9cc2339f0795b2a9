package approval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"apflow-mcp/internal/notify"
	"apflow-mcp/internal/store"
)

// Stalled-item priorities.
const (
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"

	criticalOverdueDays = 14
	highOverdueDays     = 7
	criticalValue       = 100000.0

	// DefaultOverdueThresholdDays is how old a pending item must be before
	// it counts as stalled.
	DefaultOverdueThresholdDays = 3
)

// StalledItem is one overdue pending item.
type StalledItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ItemType    string   `json:"item_type"`
	DaysOverdue int      `json:"days_overdue"`
	Priority    string   `json:"priority"`
	Assignees   []string `json:"assignees"`
	Value       *float64 `json:"value,omitempty"`
}

// EscalationAction records one role-hierarchy hop taken for an item.
type EscalationAction struct {
	ItemID   string `json:"item_id"`
	FromRole string `json:"from_role"`
	ToRole   string `json:"to_role"`
	ToUserID string `json:"to_user_id,omitempty"`
	ToName   string `json:"to_name,omitempty"`
}

// EscalationSummary aggregates one escalation run. AvgDaysOverdue is a plain
// arithmetic mean; overdue ages are not outlier-filtered here.
type EscalationSummary struct {
	TotalStalled   int     `json:"total_stalled"`
	EscalatedCount int     `json:"escalated_count"`
	NotifiedCount  int     `json:"notified_count"`
	CriticalItems  int     `json:"critical_items"`
	AvgDaysOverdue float64 `json:"avg_days_overdue"`
}

// EscalationReport is the full result of one escalation run.
type EscalationReport struct {
	StalledItems      []StalledItem         `json:"stalled_items"`
	Actions           []EscalationAction    `json:"escalation_actions"`
	NotificationsSent []notify.Notification `json:"notifications_sent"`
	Summary           EscalationSummary     `json:"summary"`
}

// Escalator scans for stalled pending items, walks the role hierarchy to an
// escalation target, transitions item status and emits consolidated
// notifications. It is the only analyzer that mutates state.
type Escalator struct {
	tables   *Tables
	resolver *Resolver
	ledger   store.WorkflowLedger
	team     store.TeamDirectory
	sink     notify.Sink
	timeout  time.Duration
	now      func() time.Time
}

// NewEscalator wires the escalator against its collaborators.
func NewEscalator(tables *Tables, resolver *Resolver, ledger store.WorkflowLedger, team store.TeamDirectory, sink notify.Sink, timeout time.Duration) *Escalator {
	return &Escalator{
		tables:   tables,
		resolver: resolver,
		ledger:   ledger,
		team:     team,
		sink:     sink,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Escalate runs one pass over the project's stalled items. The stalled-item
// query is required; a team-directory failure degrades to escalating toward
// the default target role with no named recipient.
//
// Per item the order is strictly claim-then-notify: the conditional status
// transition runs first, and items this run did not win are skipped, so two
// concurrent runs never double-notify.
func (e *Escalator) Escalate(ctx context.Context, projectID, itemType string, overdueThresholdDays int) (*EscalationReport, error) {
	if overdueThresholdDays <= 0 {
		overdueThresholdDays = DefaultOverdueThresholdDays
	}

	now := e.now()
	cutoff := now.AddDate(0, 0, -overdueThresholdDays)

	readCtx, cancel := context.WithTimeout(ctx, e.timeout)
	records, err := e.ledger.ListStalled(readCtx, projectID, itemType, cutoff)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stalled items: %w", err)
	}

	members := e.listMembers(ctx, projectID)
	membersByID := make(map[string]store.Member, len(members))
	for _, m := range members {
		membersByID[m.UserID] = m
	}

	report := &EscalationReport{}
	var overdueDays []float64

	// Pending notifications grouped by recipient user id.
	type pending struct {
		itemIDs  []string
		critical bool
	}
	byRecipient := make(map[string]*pending)

	for _, rec := range records {
		item := e.describeItem(ctx, rec)

		days := int(now.Sub(rec.CreatedAt).Hours() / 24)
		stalled := StalledItem{
			ID:          rec.ItemID,
			Title:       item.Description,
			ItemType:    rec.ItemType,
			DaysOverdue: days,
			Priority:    stalledPriority(days, item.Value),
		}
		stalled.Value = item.Value
		if rec.AssignedTo != "" {
			stalled.Assignees = []string{rec.AssignedTo}
		}

		report.StalledItems = append(report.StalledItems, stalled)
		overdueDays = append(overdueDays, float64(days))
		if stalled.Priority == PriorityCritical {
			report.Summary.CriticalItems++
		}

		fromRole := e.tables.DefaultEscalationRole
		if m, ok := membersByID[rec.AssignedTo]; ok {
			fromRole = m.Role
		}
		toRole, recipient := e.resolveTarget(fromRole, members)

		// Claim the item before anything observable happens for it.
		claimed, err := e.markEscalated(ctx, rec.ItemID)
		if err != nil {
			log.Warn().Err(err).Str("itemId", rec.ItemID).Msg("Failed to update item status, skipping escalation")
			continue
		}
		if !claimed {
			log.Debug().Str("itemId", rec.ItemID).Msg("Item no longer pending, already escalated elsewhere")
			continue
		}

		action := EscalationAction{
			ItemID:   rec.ItemID,
			FromRole: NormalizeKeyRole(fromRole),
			ToRole:   toRole,
		}
		if recipient != nil {
			action.ToUserID = recipient.UserID
			action.ToName = recipient.Name
		}
		report.Actions = append(report.Actions, action)
		report.Summary.EscalatedCount++

		e.appendHistory(ctx, projectID, action)

		if recipient != nil {
			p, ok := byRecipient[recipient.UserID]
			if !ok {
				p = &pending{}
				byRecipient[recipient.UserID] = p
			}
			p.itemIDs = append(p.itemIDs, rec.ItemID)
			if stalled.Priority == PriorityCritical {
				p.critical = true
			}
		}
	}

	// One notification per recipient, deterministic order.
	recipients := make([]string, 0, len(byRecipient))
	for id := range byRecipient {
		recipients = append(recipients, id)
	}
	sort.Strings(recipients)

	for _, id := range recipients {
		p := byRecipient[id]
		n := notify.Notification{
			RecipientUserID: id,
			Type:            notify.TypeEscalation,
			ItemsCount:      len(p.itemIDs),
			ItemIDs:         p.itemIDs,
			Title:           fmt.Sprintf("%d approval item(s) require your attention", len(p.itemIDs)),
		}
		if p.critical {
			n.Type = notify.TypeUrgentAlert
			n.Title = fmt.Sprintf("URGENT: %d stalled approval item(s), at least one critical", len(p.itemIDs))
		}

		if err := e.sink.Publish(ctx, n); err != nil {
			log.Warn().Err(err).Str("recipient", id).Msg("Notification delivery failed")
			continue
		}
		report.NotificationsSent = append(report.NotificationsSent, n)
	}

	report.Summary.TotalStalled = len(report.StalledItems)
	report.Summary.NotifiedCount = len(report.NotificationsSent)
	report.Summary.AvgDaysOverdue = Mean(overdueDays)

	return report, nil
}

// resolveTarget walks the role hierarchy one hop: the first candidate role
// with a team member wins; otherwise the default target applies, possibly
// with no named recipient. The lookup is total, so even cyclic hierarchy
// data terminates here.
func (e *Escalator) resolveTarget(fromRole string, members []store.Member) (string, *store.Member) {
	for _, target := range e.tables.EscalationTargets(fromRole) {
		if m := findByRole(members, target); m != nil {
			return target, m
		}
	}

	fallback := e.tables.DefaultEscalationRole
	return fallback, findByRole(members, fallback)
}

func findByRole(members []store.Member, role string) *store.Member {
	key := NormalizeRole(role)
	for i := range members {
		if NormalizeRole(members[i].Role) == key && members[i].IsActive {
			return &members[i]
		}
	}
	return nil
}

func (e *Escalator) describeItem(ctx context.Context, rec store.WorkflowRecord) Item {
	t, ok := ParseItemType(rec.ItemType)
	if !ok {
		return Item{ID: rec.ItemID, Description: rec.Title, Fields: FieldBag{}}
	}
	item := e.resolver.Resolve(ctx, t, rec.ItemID)
	if item.Description == "Unknown item" && rec.Title != "" {
		item.Description = rec.Title
	}
	return item
}

func (e *Escalator) listMembers(ctx context.Context, projectID string) []store.Member {
	readCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	members, err := e.team.ListMembers(readCtx, projectID)
	if err != nil {
		log.Warn().Err(err).Str("projectId", projectID).Msg("Team directory lookup failed, escalating without named recipients")
		return nil
	}
	return members
}

func (e *Escalator) markEscalated(ctx context.Context, itemID string) (bool, error) {
	writeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.ledger.MarkEscalated(writeCtx, itemID)
}

// appendHistory writes the escalation record; failures are logged, never
// propagated.
func (e *Escalator) appendHistory(ctx context.Context, projectID string, action EscalationAction) {
	writeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := e.ledger.AppendEscalation(writeCtx, store.EscalationRecord{
		ProjectID:   projectID,
		ItemID:      action.ItemID,
		FromRole:    action.FromRole,
		ToRole:      action.ToRole,
		ToUser:      action.ToUserID,
		EscalatedAt: e.now(),
	})
	if err != nil {
		log.Warn().Err(err).Str("itemId", action.ItemID).Msg("Failed to append escalation history")
	}
}

// stalledPriority applies the priority invariants: critical on 14+ days
// overdue or value above $100k, high on 7+ days, otherwise normal.
func stalledPriority(daysOverdue int, value *float64) string {
	if daysOverdue >= criticalOverdueDays || (value != nil && *value > criticalValue) {
		return PriorityCritical
	}
	if daysOverdue >= highOverdueDays {
		return PriorityHigh
	}
	return PriorityNormal
}

// NormalizeKeyRole lowercases and underscores a role label for record
// keeping, preserving word boundaries unlike NormalizeRole.
func NormalizeKeyRole(role string) string {
	lower := strings.ToLower(strings.TrimSpace(role))
	lower = strings.ReplaceAll(lower, "-", " ")
	return strings.Join(strings.Fields(lower), "_")
}
