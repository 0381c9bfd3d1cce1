package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/homepage-content-api/internal/models"
)

const contentColumns = `id, tenant_id, section, audience, key, value, metadata, status, created_by, updated_by,
       approved_by, approved_at, published_at, archived_at, created_at, updated_at`

const versionColumns = `id, content_id, version_number, value, metadata, change_notes, created_by, created_at`

// ContentRepository persists content entries and their version ledger.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// SaveEditParams carries one edit of a content slot.
type SaveEditParams struct {
	TenantID    string
	Section     string
	Audience    models.ContentAudience
	Key         string
	Value       string
	Metadata    models.Metadata
	ChangeNotes *string
	UserID      string
}

// SaveEditResult reports the entry after the edit and the version it produced.
type SaveEditResult struct {
	Entry   *models.ContentEntry
	Version *models.ContentVersion
	Created bool
	// Previous is the entry as it was before the edit; nil when Created.
	Previous *models.ContentEntry
}

// SaveEdit writes value and metadata to the slot and appends the next version
// in one transaction. The slot row is locked for the duration so concurrent
// edits of the same slot get distinct, gapless version numbers.
func (r *ContentRepository) SaveEdit(ctx context.Context, params SaveEditParams) (result *SaveEditResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin content edit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	metadata := params.Metadata
	if metadata == nil {
		metadata = models.Metadata{}
	}

	const insertQuery = `INSERT INTO content_entries
	(id, tenant_id, section, audience, key, value, metadata, status, created_by, updated_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10, $10)
	ON CONFLICT (tenant_id, section, audience, key) DO NOTHING`
	res, err := tx.ExecContext(ctx, insertQuery, uuid.NewString(), params.TenantID, params.Section, params.Audience,
		params.Key, params.Value, metadata, models.ContentStatusDraft, params.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("insert content entry: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check content insert rows: %w", err)
	}

	selectQuery := `SELECT ` + contentColumns + ` FROM content_entries
	WHERE tenant_id = $1 AND section = $2 AND audience = $3 AND key = $4 FOR UPDATE`
	var entry models.ContentEntry
	if err = tx.GetContext(ctx, &entry, selectQuery, params.TenantID, params.Section, params.Audience, params.Key); err != nil {
		return nil, fmt.Errorf("lock content entry: %w", err)
	}

	result = &SaveEditResult{Created: inserted == 1}
	if !result.Created {
		previous := entry
		result.Previous = &previous

		next := models.StatusAfterEdit(entry.Status)
		const updateQuery = `UPDATE content_entries
	SET value = $1, metadata = $2, status = $3, updated_by = $4, updated_at = $5,
	    approved_by = NULL, approved_at = NULL, archived_at = NULL
	WHERE id = $6`
		if _, err = tx.ExecContext(ctx, updateQuery, params.Value, metadata, next, params.UserID, now, entry.ID); err != nil {
			return nil, fmt.Errorf("update content entry: %w", err)
		}
		entry.Value = params.Value
		entry.Metadata = metadata
		entry.Status = next
		entry.UpdatedBy = params.UserID
		entry.UpdatedAt = now
		entry.ApprovedBy = nil
		entry.ApprovedAt = nil
		entry.ArchivedAt = nil
	}

	const nextVersionQuery = `SELECT COALESCE(MAX(version_number), 0) + 1 FROM content_versions WHERE content_id = $1`
	var number int
	if err = tx.GetContext(ctx, &number, nextVersionQuery, entry.ID); err != nil {
		return nil, fmt.Errorf("next content version: %w", err)
	}

	version := &models.ContentVersion{
		ID:            uuid.NewString(),
		ContentID:     entry.ID,
		VersionNumber: number,
		Value:         params.Value,
		Metadata:      metadata.Clone(),
		ChangeNotes:   params.ChangeNotes,
		CreatedBy:     params.UserID,
		CreatedAt:     now,
	}
	const versionQuery = `INSERT INTO content_versions
	(id, content_id, version_number, value, metadata, change_notes, created_by, created_at)
	VALUES (:id, :content_id, :version_number, :value, :metadata, :change_notes, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, versionQuery, version); err != nil {
		return nil, fmt.Errorf("insert content version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit content edit: %w", err)
	}
	result.Entry = &entry
	result.Version = version
	return result, nil
}

// GetByID fetches an entry scoped to a tenant.
func (r *ContentRepository) GetByID(ctx context.Context, tenantID, id string) (*models.ContentEntry, error) {
	query := `SELECT ` + contentColumns + ` FROM content_entries WHERE tenant_id = $1 AND id = $2`
	var entry models.ContentEntry
	if err := r.db.GetContext(ctx, &entry, query, tenantID, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

func buildContentConditions(filter models.ContentFilter) (string, []interface{}) {
	args := []interface{}{filter.TenantID}
	conditions := []string{"tenant_id = $1"}
	if filter.Section != "" {
		args = append(args, filter.Section)
		conditions = append(conditions, fmt.Sprintf("section = $%d", len(args)))
	}
	if filter.Audience != "" {
		args = append(args, filter.Audience)
		conditions = append(conditions, fmt.Sprintf("audience = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(key ILIKE $%d OR value ILIKE $%d)", len(args), len(args)))
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of entries and the total number matching the filter.
func (r *ContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.ContentEntry, int, error) {
	where, args := buildContentConditions(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM content_entries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count content entries: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	query := fmt.Sprintf("SELECT %s FROM content_entries%s ORDER BY section, key, audience LIMIT %d OFFSET %d",
		contentColumns, where, size, (page-1)*size)

	var entries []models.ContentEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list content entries: %w", err)
	}
	return entries, total, nil
}

// ListAll returns every entry matching the filter without paging.
func (r *ContentRepository) ListAll(ctx context.Context, filter models.ContentFilter) ([]models.ContentEntry, error) {
	where, args := buildContentConditions(filter)
	query := "SELECT " + contentColumns + " FROM content_entries" + where + " ORDER BY section, key, audience"
	var entries []models.ContentEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list all content entries: %w", err)
	}
	return entries, nil
}

// ListVisible returns entries in the given statuses whose audience is the
// requested one or "both". Rows for "both" sort first so a caller folding the
// result into a map lets audience-specific values win.
func (r *ContentRepository) ListVisible(ctx context.Context, tenantID string, audience models.ContentAudience, section string, statuses []models.ContentStatus) ([]models.ContentEntry, error) {
	args := []interface{}{tenantID, audience, models.AudienceBoth}
	conditions := []string{"tenant_id = $1", "audience IN ($2, $3)"}
	if section != "" {
		args = append(args, section)
		conditions = append(conditions, fmt.Sprintf("section = $%d", len(args)))
	}
	placeholders := make([]string, len(statuses))
	for i, status := range statuses {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	if len(placeholders) > 0 {
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	query := fmt.Sprintf(`SELECT %s FROM content_entries WHERE %s
	ORDER BY section, key, CASE WHEN audience = 'both' THEN 0 ELSE 1 END`, contentColumns, strings.Join(conditions, " AND "))

	var entries []models.ContentEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list visible content: %w", err)
	}
	return entries, nil
}

// Sections returns the distinct sections in use by a tenant.
func (r *ContentRepository) Sections(ctx context.Context, tenantID string) ([]string, error) {
	const query = `SELECT DISTINCT section FROM content_entries WHERE tenant_id = $1 ORDER BY section`
	var sections []string
	if err := r.db.SelectContext(ctx, &sections, query, tenantID); err != nil {
		return nil, fmt.Errorf("list content sections: %w", err)
	}
	return sections, nil
}

// ListVersions returns the version ledger of an entry, newest first.
func (r *ContentRepository) ListVersions(ctx context.Context, contentID string) ([]models.ContentVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions WHERE content_id = $1 ORDER BY version_number DESC`
	var versions []models.ContentVersion
	if err := r.db.SelectContext(ctx, &versions, query, contentID); err != nil {
		return nil, fmt.Errorf("list content versions: %w", err)
	}
	return versions, nil
}

// GetVersion fetches one version of an entry.
func (r *ContentRepository) GetVersion(ctx context.Context, contentID string, number int) (*models.ContentVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions WHERE content_id = $1 AND version_number = $2`
	var version models.ContentVersion
	if err := r.db.GetContext(ctx, &version, query, contentID, number); err != nil {
		return nil, err
	}
	return &version, nil
}

// Publish moves an approved entry to published. sql.ErrNoRows is returned
// when the entry is not currently approved.
func (r *ContentRepository) Publish(ctx context.Context, tenantID, id, userID string, at time.Time) error {
	const query = `UPDATE content_entries SET status = $1, published_at = $2, updated_by = $3, updated_at = $2
	WHERE tenant_id = $4 AND id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, models.ContentStatusPublished, at, userID, tenantID, id, models.ContentStatusApproved)
	if err != nil {
		return fmt.Errorf("publish content: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check publish rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Archive soft-removes an entry and closes any pending approval request for
// it. sql.ErrNoRows is returned when the entry is already archived.
func (r *ContentRepository) Archive(ctx context.Context, tenantID, id, userID string, at time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin content archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const archiveQuery = `UPDATE content_entries SET status = $1, archived_at = $2, updated_by = $3, updated_at = $2
	WHERE tenant_id = $4 AND id = $5 AND status <> $1`
	result, err := tx.ExecContext(ctx, archiveQuery, models.ContentStatusArchived, at, userID, tenantID, id)
	if err != nil {
		return fmt.Errorf("archive content: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archive rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	const closeQuery = `UPDATE content_approvals SET status = $1, reviewed_by = $2, reviewed_at = $3, review_notes = $4
	WHERE content_id = $5 AND status = $6`
	if _, err = tx.ExecContext(ctx, closeQuery, models.ApprovalStatusRejected, userID, at, "content archived", id, models.ApprovalStatusPending); err != nil {
		return fmt.Errorf("close pending approvals: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit content archive: %w", err)
	}
	return nil
}
