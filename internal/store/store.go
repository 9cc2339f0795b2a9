package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that a record does not exist, as opposed to a query
// failure. Callers that have a documented fallback check for it with
// errors.Is.
var ErrNotFound = errors.New("record not found")

// ItemStore fetches the raw field data of a single approval item.
type ItemStore interface {
	// GetItem returns the semi-structured field data of an item, or
	// ErrNotFound when no record exists.
	GetItem(ctx context.Context, itemType, itemID string) (map[string]interface{}, error)
}

// Member is one person on a project team.
type Member struct {
	UserID      string
	Name        string
	Role        string
	IsActive    bool
	LastLoginAt *time.Time
}

// TeamDirectory lists project members and their current load.
type TeamDirectory interface {
	ListMembers(ctx context.Context, projectID string) ([]Member, error)
	// CountPendingAssigned returns the number of pending workflow items
	// currently assigned to a user on a project.
	CountPendingAssigned(ctx context.Context, projectID, userID string) (int, error)
}

// WorkflowRecord is one prior approval-workflow item from the ledger.
type WorkflowRecord struct {
	ItemID          string
	ItemType        string
	Title           string
	Status          string
	AssignedTo      string
	RejectionReason string
	RevisionCount   int
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// EscalationRecord is one append-only entry in the escalation history.
type EscalationRecord struct {
	ID          string
	ProjectID   string
	ItemID      string
	FromRole    string
	ToRole      string
	ToUser      string
	EscalatedAt time.Time
}

// WorkflowLedger queries and mutates the approval-workflow history.
type WorkflowLedger interface {
	// ListRecent returns up to limit workflow records for a project,
	// newest first, optionally filtered by item type and/or assignee.
	ListRecent(ctx context.Context, projectID, itemType, assignedTo string, limit int) ([]WorkflowRecord, error)
	// ListStalled returns pending items created before the cutoff,
	// optionally filtered by item type.
	ListStalled(ctx context.Context, projectID, itemType string, before time.Time) ([]WorkflowRecord, error)
	// MarkEscalated transitions a pending item to escalated. It reports
	// false when the item was no longer pending, so concurrent escalation
	// runs cannot double-notify on the same item.
	MarkEscalated(ctx context.Context, itemID string) (bool, error)
	// AppendEscalation writes one escalation-history record.
	AppendEscalation(ctx context.Context, rec EscalationRecord) error
}

// Budget holds the per-project budget figures used for risk checks.
type Budget struct {
	TotalBudget          float64
	ContingencyRemaining float64
}

// BudgetStore fetches per-project budget and contingency figures.
type BudgetStore interface {
	GetBudget(ctx context.Context, projectID string) (*Budget, error)
}
