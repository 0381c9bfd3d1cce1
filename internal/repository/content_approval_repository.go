package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/homepage-content-api/internal/models"
)

const approvalColumns = `id, content_id, tenant_id, requested_by, reviewed_by, status, request_notes, review_notes,
       requested_at, reviewed_at`

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err carries a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ContentApprovalRepository persists approval requests.
type ContentApprovalRepository struct {
	db *sqlx.DB
}

// NewContentApprovalRepository constructs the repository.
func NewContentApprovalRepository(db *sqlx.DB) *ContentApprovalRepository {
	return &ContentApprovalRepository{db: db}
}

// Create opens a pending approval and moves the entry to pending in one
// transaction. The partial unique index on pending approvals surfaces a
// concurrent duplicate as a unique violation.
func (r *ContentApprovalRepository) Create(ctx context.Context, approval *models.ContentApproval) (err error) {
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	if approval.RequestedAt.IsZero() {
		approval.RequestedAt = time.Now().UTC()
	}
	approval.Status = models.ApprovalStatusPending

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO content_approvals
	(id, content_id, tenant_id, requested_by, status, request_notes, requested_at)
	VALUES (:id, :content_id, :tenant_id, :requested_by, :status, :request_notes, :requested_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, approval); err != nil {
		return fmt.Errorf("insert content approval: %w", err)
	}

	const entryQuery = `UPDATE content_entries SET status = $1, updated_at = $2
	WHERE tenant_id = $3 AND id = $4 AND status <> $5`
	result, err := tx.ExecContext(ctx, entryQuery, models.ContentStatusPending, approval.RequestedAt,
		approval.TenantID, approval.ContentID, models.ContentStatusArchived)
	if err != nil {
		return fmt.Errorf("mark content pending: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check pending rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit approval request: %w", err)
	}
	return nil
}

// LatestPending returns the most recent pending approval of an entry.
func (r *ContentApprovalRepository) LatestPending(ctx context.Context, contentID string) (*models.ContentApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM content_approvals
	WHERE content_id = $1 AND status = $2 ORDER BY requested_at DESC LIMIT 1`
	var approval models.ContentApproval
	if err := r.db.GetContext(ctx, &approval, query, contentID, models.ApprovalStatusPending); err != nil {
		return nil, err
	}
	return &approval, nil
}

// ReviewParams groups the outcome of a review.
type ReviewParams struct {
	ApprovalID string
	TenantID   string
	ContentID  string
	Decision   models.ApprovalStatus
	ReviewerID string
	Notes      *string
	ReviewedAt time.Time
}

// Review closes a pending approval and moves the entry to approved, or back to
// draft on rejection. sql.ErrNoRows is returned when the approval is no longer
// pending.
func (r *ContentApprovalRepository) Review(ctx context.Context, params ReviewParams) (err error) {
	if params.Decision != models.ApprovalStatusApproved && params.Decision != models.ApprovalStatusRejected {
		return fmt.Errorf("invalid review decision %q", params.Decision)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const approvalQuery = `UPDATE content_approvals SET status = $1, reviewed_by = $2, reviewed_at = $3, review_notes = $4
	WHERE id = $5 AND status = $6`
	result, err := tx.ExecContext(ctx, approvalQuery, params.Decision, params.ReviewerID, params.ReviewedAt,
		params.Notes, params.ApprovalID, models.ApprovalStatusPending)
	if err != nil {
		return fmt.Errorf("update content approval: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approval rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if params.Decision == models.ApprovalStatusApproved {
		const approveQuery = `UPDATE content_entries SET status = $1, approved_by = $2, approved_at = $3, updated_at = $3
	WHERE tenant_id = $4 AND id = $5`
		_, err = tx.ExecContext(ctx, approveQuery, models.ContentStatusApproved, params.ReviewerID, params.ReviewedAt,
			params.TenantID, params.ContentID)
	} else {
		const rejectQuery = `UPDATE content_entries SET status = $1, approved_by = NULL, approved_at = NULL, updated_at = $2
	WHERE tenant_id = $3 AND id = $4`
		_, err = tx.ExecContext(ctx, rejectQuery, models.ContentStatusDraft, params.ReviewedAt, params.TenantID, params.ContentID)
	}
	if err != nil {
		return fmt.Errorf("apply review to content: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit approval review: %w", err)
	}
	return nil
}

// GetByID fetches an approval scoped to a tenant.
func (r *ContentApprovalRepository) GetByID(ctx context.Context, tenantID, id string) (*models.ContentApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM content_approvals WHERE tenant_id = $1 AND id = $2`
	var approval models.ContentApproval
	if err := r.db.GetContext(ctx, &approval, query, tenantID, id); err != nil {
		return nil, err
	}
	return &approval, nil
}

// List returns approvals matching the filter, latest first.
func (r *ContentApprovalRepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.ContentApproval, error) {
	args := []interface{}{filter.TenantID}
	conditions := []string{"tenant_id = $1"}
	if filter.ContentID != "" {
		args = append(args, filter.ContentID)
		conditions = append(conditions, fmt.Sprintf("content_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM content_approvals WHERE %s ORDER BY requested_at DESC LIMIT %d",
		approvalColumns, strings.Join(conditions, " AND "), limit)

	var approvals []models.ContentApproval
	if err := r.db.SelectContext(ctx, &approvals, query, args...); err != nil {
		return nil, fmt.Errorf("list content approvals: %w", err)
	}
	return approvals, nil
}

// CountPending returns the number of open approval requests of a tenant.
func (r *ContentApprovalRepository) CountPending(ctx context.Context, tenantID string) (int, error) {
	const query = `SELECT COUNT(*) FROM content_approvals WHERE tenant_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, models.ApprovalStatusPending); err != nil {
		return 0, fmt.Errorf("count pending approvals: %w", err)
	}
	return count, nil
}
