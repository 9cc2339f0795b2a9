package approval

import (
	"context"
	"time"

	"apflow-mcp/internal/notify"
	"apflow-mcp/internal/store"
)

type fakeItemStore struct {
	items map[string]map[string]interface{} // keyed by itemType + "/" + itemID
	err   error
}

func (f *fakeItemStore) GetItem(_ context.Context, itemType, itemID string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	if fields, ok := f.items[itemType+"/"+itemID]; ok {
		return fields, nil
	}
	return nil, store.ErrNotFound
}

type fakeDirectory struct {
	members  []store.Member
	pending  map[string]int
	listErr  error
	countErr error
}

func (f *fakeDirectory) ListMembers(_ context.Context, _ string) ([]store.Member, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.members, nil
}

func (f *fakeDirectory) CountPendingAssigned(_ context.Context, _, userID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.pending[userID], nil
}

type fakeLedger struct {
	recent     []store.WorkflowRecord
	byAssignee map[string][]store.WorkflowRecord
	stalled    []store.WorkflowRecord
	recentErr  error
	stalledErr error

	escalated  []string
	notPending map[string]bool
	markErr    error
	history    []store.EscalationRecord
	appendErr  error
}

func (f *fakeLedger) ListRecent(_ context.Context, _, itemType, assignedTo string, _ int) ([]store.WorkflowRecord, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	if assignedTo != "" {
		return f.byAssignee[assignedTo], nil
	}
	if itemType == "" {
		return f.recent, nil
	}
	var out []store.WorkflowRecord
	for _, r := range f.recent {
		if r.ItemType == itemType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListStalled(_ context.Context, _, _ string, _ time.Time) ([]store.WorkflowRecord, error) {
	if f.stalledErr != nil {
		return nil, f.stalledErr
	}
	return f.stalled, nil
}

func (f *fakeLedger) MarkEscalated(_ context.Context, itemID string) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.notPending[itemID] {
		return false, nil
	}
	f.escalated = append(f.escalated, itemID)
	return true, nil
}

func (f *fakeLedger) AppendEscalation(_ context.Context, rec store.EscalationRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.history = append(f.history, rec)
	return nil
}

type fakeBudget struct {
	budget *store.Budget
	err    error
}

func (f *fakeBudget) GetBudget(_ context.Context, _ string) (*store.Budget, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.budget == nil {
		return nil, store.ErrNotFound
	}
	return f.budget, nil
}

type fakeSink struct {
	sent []notify.Notification
	err  error
}

func (f *fakeSink) Publish(_ context.Context, n notify.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func completedRecord(itemType string, hoursToComplete float64, status string, revisions int) store.WorkflowRecord {
	created := time.Now().Add(-30 * 24 * time.Hour)
	completed := created.Add(time.Duration(hoursToComplete * float64(time.Hour)))
	return store.WorkflowRecord{
		ItemID:        "hist",
		ItemType:      itemType,
		Status:        status,
		RevisionCount: revisions,
		CreatedAt:     created,
		CompletedAt:   &completed,
	}
}
