package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements every collaborator interface against a single
// connection pool. Item data lives as JSONB so the schema does not need to
// know every type-specific field.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// ItemStore

func (p *Postgres) GetItem(ctx context.Context, itemType, itemID string) (map[string]interface{}, error) {
	query := `
		SELECT data
		FROM approval_items
		WHERE item_type = $1 AND id = $2
	`

	var raw []byte
	err := p.pool.QueryRow(ctx, query, itemType, itemID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s %s: %w", itemType, itemID, err)
	}

	fields := make(map[string]interface{})
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode item data for %s %s: %w", itemType, itemID, err)
	}
	return fields, nil
}

// TeamDirectory

func (p *Postgres) ListMembers(ctx context.Context, projectID string) ([]Member, error) {
	query := `
		SELECT user_id, name, role, is_active, last_login_at
		FROM project_members
		WHERE project_id = $1
		ORDER BY name
	`

	rows, err := p.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Name, &m.Role, &m.IsActive, &m.LastLoginAt); err != nil {
			return nil, fmt.Errorf("failed to scan project member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (p *Postgres) CountPendingAssigned(ctx context.Context, projectID, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM workflow_items
		WHERE project_id = $1 AND assigned_to = $2 AND status = 'pending'
	`

	var count int
	if err := p.pool.QueryRow(ctx, query, projectID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending items for %s: %w", userID, err)
	}
	return count, nil
}

// WorkflowLedger

const workflowColumns = `item_id, item_type, title, status,
	       COALESCE(assigned_to, ''), COALESCE(rejection_reason, ''),
	       revision_count, created_at, completed_at`

func (p *Postgres) ListRecent(ctx context.Context, projectID, itemType, assignedTo string, limit int) ([]WorkflowRecord, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflow_items
		WHERE project_id = $1
		  AND ($2 = '' OR item_type = $2)
		  AND ($3 = '' OR assigned_to = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := p.pool.Query(ctx, query, projectID, itemType, assignedTo, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow history: %w", err)
	}
	defer rows.Close()
	return scanWorkflowRecords(rows)
}

func (p *Postgres) ListStalled(ctx context.Context, projectID, itemType string, before time.Time) ([]WorkflowRecord, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflow_items
		WHERE project_id = $1
		  AND ($2 = '' OR item_type = $2)
		  AND status = 'pending'
		  AND created_at < $3
		ORDER BY created_at
	`

	rows, err := p.pool.Query(ctx, query, projectID, itemType, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query stalled items: %w", err)
	}
	defer rows.Close()
	return scanWorkflowRecords(rows)
}

// MarkEscalated is a single conditional write: only a still-pending item is
// transitioned, so two concurrent escalation runs cannot both claim it.
func (p *Postgres) MarkEscalated(ctx context.Context, itemID string) (bool, error) {
	query := `
		UPDATE workflow_items
		SET status = 'escalated', updated_at = NOW()
		WHERE item_id = $1 AND status = 'pending'
	`

	tag, err := p.pool.Exec(ctx, query, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s escalated: %w", itemID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) AppendEscalation(ctx context.Context, rec EscalationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := `
		INSERT INTO escalation_history
		    (id, project_id, item_id, from_role, to_role, to_user, escalated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.pool.Exec(ctx, query,
		rec.ID, rec.ProjectID, rec.ItemID, rec.FromRole, rec.ToRole, rec.ToUser, rec.EscalatedAt)
	if err != nil {
		return fmt.Errorf("failed to append escalation record for %s: %w", rec.ItemID, err)
	}
	return nil
}

// BudgetStore

func (p *Postgres) GetBudget(ctx context.Context, projectID string) (*Budget, error) {
	query := `
		SELECT total_budget, contingency_remaining
		FROM project_budgets
		WHERE project_id = $1
	`

	var b Budget
	err := p.pool.QueryRow(ctx, query, projectID).Scan(&b.TotalBudget, &b.ContingencyRemaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch budget for project %s: %w", projectID, err)
	}
	return &b, nil
}

func scanWorkflowRecords(rows pgx.Rows) ([]WorkflowRecord, error) {
	var records []WorkflowRecord
	for rows.Next() {
		var r WorkflowRecord
		err := rows.Scan(&r.ItemID, &r.ItemType, &r.Title, &r.Status,
			&r.AssignedTo, &r.RejectionReason, &r.RevisionCount, &r.CreatedAt, &r.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
