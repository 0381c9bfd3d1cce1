package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ContentAudience targets a piece of homepage copy.
type ContentAudience string

const (
	AudienceIndividual    ContentAudience = "individual"
	AudienceInstitutional ContentAudience = "institutional"
	AudienceBoth          ContentAudience = "both"
)

// ContentAudiences lists every audience in display order.
var ContentAudiences = []ContentAudience{AudienceIndividual, AudienceInstitutional, AudienceBoth}

// Valid reports whether a is a known audience.
func (a ContentAudience) Valid() bool {
	switch a {
	case AudienceIndividual, AudienceInstitutional, AudienceBoth:
		return true
	}
	return false
}

// ContentStatus captures the workflow state of an entry.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPending   ContentStatus = "pending"
	ContentStatusApproved  ContentStatus = "approved"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusArchived  ContentStatus = "archived"
)

// ContentStatuses lists every status in workflow order.
var ContentStatuses = []ContentStatus{
	ContentStatusDraft,
	ContentStatusPending,
	ContentStatusApproved,
	ContentStatusPublished,
	ContentStatusArchived,
}

// StatusAfterEdit returns the status an entry moves to when its value is
// edited. A pending entry keeps its open approval request, which then reviews
// the latest value; any other state restarts the cycle at draft.
func StatusAfterEdit(current ContentStatus) ContentStatus {
	if current == ContentStatusPending {
		return ContentStatusPending
	}
	return ContentStatusDraft
}

// ApprovalStatus captures reviewer decisions.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Metadata is an open key/value bag stored as JSONB. Keys are documented per
// section in DocumentedMetadataKeys but not enforced.
type Metadata map[string]interface{}

// DocumentedMetadataKeys describes the metadata keys the front end reads for
// each well-known section.
var DocumentedMetadataKeys = map[string][]string{
	"hero":         {"cta_label", "cta_url", "image_url", "image_alt"},
	"features":     {"icon", "order", "link_url"},
	"testimonials": {"author", "role", "avatar_url"},
	"stats":        {"suffix", "order"},
	"footer":       {"link_url"},
}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(raw) == 0 {
		*m = Metadata{}
		return nil
	}
	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	*m = out
	return nil
}

// Clone returns a shallow copy so snapshots never alias the live map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ContentEntry is the live value of one content slot (section, audience, key).
type ContentEntry struct {
	ID          string          `db:"id" json:"id"`
	TenantID    string          `db:"tenant_id" json:"tenant_id"`
	Section     string          `db:"section" json:"section"`
	Audience    ContentAudience `db:"audience" json:"audience"`
	Key         string          `db:"key" json:"key"`
	Value       string          `db:"value" json:"value"`
	Metadata    Metadata        `db:"metadata" json:"metadata"`
	Status      ContentStatus   `db:"status" json:"status"`
	CreatedBy   string          `db:"created_by" json:"created_by"`
	UpdatedBy   string          `db:"updated_by" json:"updated_by"`
	ApprovedBy  *string         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	PublishedAt *time.Time      `db:"published_at" json:"published_at,omitempty"`
	ArchivedAt  *time.Time      `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ContentVersion is an immutable snapshot of an entry at one edit.
type ContentVersion struct {
	ID            string    `db:"id" json:"id"`
	ContentID     string    `db:"content_id" json:"content_id"`
	VersionNumber int       `db:"version_number" json:"version_number"`
	Value         string    `db:"value" json:"value"`
	Metadata      Metadata  `db:"metadata" json:"metadata"`
	ChangeNotes   *string   `db:"change_notes" json:"change_notes,omitempty"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ContentApproval records one review request and its outcome.
type ContentApproval struct {
	ID           string         `db:"id" json:"id"`
	ContentID    string         `db:"content_id" json:"content_id"`
	TenantID     string         `db:"tenant_id" json:"tenant_id"`
	RequestedBy  string         `db:"requested_by" json:"requested_by"`
	ReviewedBy   *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	Status       ApprovalStatus `db:"status" json:"status"`
	RequestNotes *string        `db:"request_notes" json:"request_notes,omitempty"`
	ReviewNotes  *string        `db:"review_notes" json:"review_notes,omitempty"`
	RequestedAt  time.Time      `db:"requested_at" json:"requested_at"`
	ReviewedAt   *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// ContentFilter constrains entry listing queries.
type ContentFilter struct {
	TenantID string
	Section  string
	Audience ContentAudience
	Statuses []ContentStatus
	Search   string
	Page     int
	PageSize int
}

// ApprovalFilter constrains approval listing queries.
type ApprovalFilter struct {
	TenantID  string
	ContentID string
	Status    ApprovalStatus
	Limit     int
}

// FormattedContent maps section -> key -> value for the public read path.
type FormattedContent map[string]map[string]string

// Set stores value under section/key, creating the section map on demand.
func (f FormattedContent) Set(section, key, value string) {
	if f[section] == nil {
		f[section] = make(map[string]string)
	}
	f[section][key] = value
}
