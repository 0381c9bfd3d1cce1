package dto

import (
	"time"

	"github.com/noah-isme/homepage-content-api/internal/models"
)

// UpdateContentRequest writes one content slot.
type UpdateContentRequest struct {
	Section     string                 `json:"section" yaml:"section" validate:"required,max=50"`
	Key         string                 `json:"key" yaml:"key" validate:"required,max=100"`
	Value       string                 `json:"value" yaml:"value" validate:"required"`
	Audience    models.ContentAudience `json:"audience" yaml:"audience" validate:"required,oneof=individual institutional both"`
	Metadata    models.Metadata        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ChangeNotes *string                `json:"change_notes,omitempty" yaml:"change_notes,omitempty"`
}

// BulkUpdateContentRequest carries several independent slot edits. Items are
// validated one by one so a bad item never blocks the others.
type BulkUpdateContentRequest struct {
	Updates []UpdateContentRequest `json:"updates"`
}

// BulkFailure describes one item of a bulk request that was not applied.
type BulkFailure struct {
	Index   int    `json:"index"`
	Section string `json:"section"`
	Key     string `json:"key"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// BulkUpdateResult lists applied entries and rejected items.
type BulkUpdateResult struct {
	Updated []models.ContentEntry `json:"content"`
	Failed  []BulkFailure         `json:"failed"`
}

// NotesRequest carries optional free-text notes for workflow transitions.
type NotesRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// RevertContentRequest selects the version to restore.
type RevertContentRequest struct {
	Version int     `json:"version" validate:"required,min=1"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// PreviewItem overrides one slot value in a preview.
type PreviewItem struct {
	Section string `json:"section" validate:"required,max=50"`
	Key     string `json:"key" validate:"required,max=100"`
	Value   string `json:"value"`
}

// PreviewRequest renders unsaved values over the current content.
type PreviewRequest struct {
	Audience models.ContentAudience `json:"audience" validate:"required,oneof=individual institutional both"`
	Section  string                 `json:"section,omitempty" validate:"omitempty,max=50"`
	Items    []PreviewItem          `json:"items" validate:"omitempty,dive"`
}

// PreviewResponse is the rendered preview plus a shareable link token.
type PreviewResponse struct {
	Preview   models.FormattedContent `json:"preview"`
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// ContentListQuery mirrors the filters of the management page.
type ContentListQuery struct {
	Section  string                 `form:"section"`
	Audience models.ContentAudience `form:"audience"`
	Status   []models.ContentStatus `form:"status"`
	Search   string                 `form:"search"`
	Page     int                    `form:"page"`
	PageSize int                    `form:"page_size"`
}

// ContentListResult is the management page data.
type ContentListResult struct {
	Content          []models.ContentEntry    `json:"content"`
	Sections         []string                 `json:"sections"`
	Audiences        []models.ContentAudience `json:"audiences"`
	Statuses         []models.ContentStatus   `json:"statuses"`
	PendingApprovals int                      `json:"pending_approvals"`
	MetadataKeys     map[string][]string      `json:"metadata_keys"`
	Pagination       models.Pagination        `json:"pagination"`
}

// ContentDetail is one entry with its approval trail.
type ContentDetail struct {
	Content   *models.ContentEntry     `json:"content"`
	Approvals []models.ContentApproval `json:"approvals"`
}

// ContentDocument is the portable export/import shape.
type ContentDocument struct {
	Tenant     string                 `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	ExportedAt *time.Time             `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Items      []UpdateContentRequest `json:"items" yaml:"items"`
}

// ImportResult summarises an import.
type ImportResult struct {
	ImportedCount int           `json:"imported_count"`
	Failed        []BulkFailure `json:"failed"`
}
