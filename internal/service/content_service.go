package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/homepage-content-api/internal/dto"
	"github.com/noah-isme/homepage-content-api/internal/models"
	"github.com/noah-isme/homepage-content-api/internal/repository"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
	"github.com/noah-isme/homepage-content-api/pkg/signing"
)

const contentResource = "content"

type contentStore interface {
	SaveEdit(ctx context.Context, params repository.SaveEditParams) (*repository.SaveEditResult, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.ContentEntry, error)
	List(ctx context.Context, filter models.ContentFilter) ([]models.ContentEntry, int, error)
	ListAll(ctx context.Context, filter models.ContentFilter) ([]models.ContentEntry, error)
	ListVisible(ctx context.Context, tenantID string, audience models.ContentAudience, section string, statuses []models.ContentStatus) ([]models.ContentEntry, error)
	Sections(ctx context.Context, tenantID string) ([]string, error)
	ListVersions(ctx context.Context, contentID string) ([]models.ContentVersion, error)
	GetVersion(ctx context.Context, contentID string, number int) (*models.ContentVersion, error)
	Publish(ctx context.Context, tenantID, id, userID string, at time.Time) error
	Archive(ctx context.Context, tenantID, id, userID string, at time.Time) error
}

type approvalStore interface {
	Create(ctx context.Context, approval *models.ContentApproval) error
	LatestPending(ctx context.Context, contentID string) (*models.ContentApproval, error)
	Review(ctx context.Context, params repository.ReviewParams) error
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.ContentApproval, error)
	CountPending(ctx context.Context, tenantID string) (int, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.ContentApproval, error)
}

type contentAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, tenantID, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// ContentServiceConfig tunes runtime behaviour.
type ContentServiceConfig struct {
	BulkMaxItems int
	CacheTTL     time.Duration
}

// ContentServiceOption configures optional collaborators.
type ContentServiceOption func(*ContentService)

// WithContentCache enables the formatted-content cache.
func WithContentCache(cache *CacheService) ContentServiceOption {
	return func(s *ContentService) { s.cache = cache }
}

// WithContentMetrics records workflow operations.
func WithContentMetrics(metrics *MetricsService) ContentServiceOption {
	return func(s *ContentService) { s.metrics = metrics }
}

// WithPreviewSigner enables shareable preview links.
func WithPreviewSigner(signer *signing.TokenSigner) ContentServiceOption {
	return func(s *ContentService) { s.signer = signer }
}

// WithContentClock overrides the time source.
func WithContentClock(now func() time.Time) ContentServiceOption {
	return func(s *ContentService) {
		if now != nil {
			s.now = now
		}
	}
}

// ContentService runs the homepage content workflow: edits, approvals,
// publishing, reverts and the formatted read path. Every operation receives
// the acting tenant and user explicitly.
type ContentService struct {
	entries   contentStore
	approvals approvalStore
	audit     contentAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cache     *CacheService
	metrics   *MetricsService
	signer    *signing.TokenSigner
	cfg       ContentServiceConfig
	now       func() time.Time
}

// NewContentService constructs a ContentService.
func NewContentService(entries contentStore, approvals approvalStore, audit contentAuditLogger, validate *validator.Validate, logger *zap.Logger, cfg ContentServiceConfig, opts ...ContentServiceOption) *ContentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BulkMaxItems <= 0 {
		cfg.BulkMaxItems = 200
	}
	svc := &ContentService{
		entries:   entries,
		approvals: approvals,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// UpdateContent writes a value to a slot, creating the entry on first write,
// and appends a version.
func (s *ContentService) UpdateContent(ctx context.Context, actor models.Actor, req dto.UpdateContentRequest) (entry *models.ContentEntry, err error) {
	defer func() { s.metrics.RecordTransition("update", err) }()
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.applyEdit(ctx, actor, req, models.AuditActionContentUpdate)
}

func (s *ContentService) applyEdit(ctx context.Context, actor models.Actor, req dto.UpdateContentRequest, action string) (*models.ContentEntry, error) {
	req.Section = strings.TrimSpace(req.Section)
	req.Key = strings.TrimSpace(req.Key)
	req.Audience = models.ContentAudience(strings.ToLower(strings.TrimSpace(string(req.Audience))))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	result, err := s.entries.SaveEdit(ctx, repository.SaveEditParams{
		TenantID:    actor.TenantID,
		Section:     req.Section,
		Audience:    req.Audience,
		Key:         req.Key,
		Value:       req.Value,
		Metadata:    req.Metadata,
		ChangeNotes: optionalNotes(req.ChangeNotes),
		UserID:      actor.UserID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to save content")
	}

	// A published entry leaves the public read path once edited.
	if result.Previous != nil && result.Previous.Status == models.ContentStatusPublished {
		s.invalidate(ctx, actor.TenantID)
	}

	s.logger.Info("content updated",
		zap.String("tenant_id", actor.TenantID),
		zap.String("content_id", result.Entry.ID),
		zap.String("section", result.Entry.Section),
		zap.String("key", result.Entry.Key),
		zap.Int("version", result.Version.VersionNumber),
		zap.String("status", string(result.Entry.Status)),
	)
	s.emitAudit(ctx, actor, action, result.Entry.ID, result.Previous, result.Entry)
	return result.Entry, nil
}

// RequestApproval opens a review request for an entry and marks it pending.
func (s *ContentService) RequestApproval(ctx context.Context, actor models.Actor, contentID string, notes *string) (approval *models.ContentApproval, err error) {
	defer func() { s.metrics.RecordTransition("request_approval", err) }()
	if err := s.validator.Struct(dto.NotesRequest{Notes: notes}); err != nil {
		return nil, validationError(err)
	}
	entry, err := s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.ContentStatusArchived {
		return nil, appErrors.ErrContentArchived
	}

	if _, err := s.approvals.LatestPending(ctx, entry.ID); err == nil {
		return nil, appErrors.ErrApprovalPending
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to check pending approvals")
	}

	approval = &models.ContentApproval{
		ContentID:    entry.ID,
		TenantID:     actor.TenantID,
		RequestedBy:  actor.UserID,
		RequestNotes: optionalNotes(notes),
		RequestedAt:  s.now(),
	}
	if err := s.approvals.Create(ctx, approval); err != nil {
		switch {
		case repository.IsUniqueViolation(err):
			return nil, appErrors.ErrApprovalPending
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrContentArchived
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to request approval")
		}
	}

	if entry.Status == models.ContentStatusPublished {
		s.invalidate(ctx, actor.TenantID)
	}

	after := *entry
	after.Status = models.ContentStatusPending
	s.emitAudit(ctx, actor, models.AuditActionApprovalRequest, entry.ID, entry, &after)

	// The row is committed; a failed reload still reports success.
	stored, loadErr := s.approvals.GetByID(ctx, actor.TenantID, approval.ID)
	if loadErr != nil {
		s.logger.Warn("failed to reload approval request", zap.String("approval_id", approval.ID), zap.Error(loadErr))
		return approval, nil
	}
	return stored, nil
}

// ApproveContent accepts the most recent pending approval of an entry.
func (s *ContentService) ApproveContent(ctx context.Context, actor models.Actor, contentID string, notes *string) (entry *models.ContentEntry, err error) {
	defer func() { s.metrics.RecordTransition("approve", err) }()
	return s.review(ctx, actor, contentID, notes, models.ApprovalStatusApproved)
}

// RejectContent declines the most recent pending approval of an entry and
// sends it back to draft.
func (s *ContentService) RejectContent(ctx context.Context, actor models.Actor, contentID string, notes *string) (entry *models.ContentEntry, err error) {
	defer func() { s.metrics.RecordTransition("reject", err) }()
	return s.review(ctx, actor, contentID, notes, models.ApprovalStatusRejected)
}

func (s *ContentService) review(ctx context.Context, actor models.Actor, contentID string, notes *string, decision models.ApprovalStatus) (*models.ContentEntry, error) {
	if err := s.validator.Struct(dto.NotesRequest{Notes: notes}); err != nil {
		return nil, validationError(err)
	}
	entry, err := s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	pending, err := s.approvals.LatestPending(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoPendingApproval
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load pending approval")
	}

	err = s.approvals.Review(ctx, repository.ReviewParams{
		ApprovalID: pending.ID,
		TenantID:   actor.TenantID,
		ContentID:  entry.ID,
		Decision:   decision,
		ReviewerID: actor.UserID,
		Notes:      optionalNotes(notes),
		ReviewedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoPendingApproval
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to review content")
	}

	updated, err := s.loadEntry(ctx, actor, entry.ID)
	if err != nil {
		return nil, err
	}
	action := models.AuditActionContentApprove
	if decision == models.ApprovalStatusRejected {
		action = models.AuditActionContentReject
	}
	s.emitAudit(ctx, actor, action, entry.ID, entry, updated)
	return updated, nil
}

// PublishContent makes an approved entry visible on the public read path.
func (s *ContentService) PublishContent(ctx context.Context, actor models.Actor, contentID string) (entry *models.ContentEntry, err error) {
	defer func() { s.metrics.RecordTransition("publish", err) }()
	entry, err = s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.ContentStatusApproved {
		return nil, appErrors.ErrContentNotApproved
	}
	if err := s.entries.Publish(ctx, actor.TenantID, entry.ID, actor.UserID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrContentNotApproved
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to publish content")
	}
	s.invalidate(ctx, actor.TenantID)

	updated, err := s.loadEntry(ctx, actor, entry.ID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionContentPublish, entry.ID, entry, updated)
	return updated, nil
}

// ArchiveContent soft-removes an entry. The next edit of its slot revives it
// as a draft.
func (s *ContentService) ArchiveContent(ctx context.Context, actor models.Actor, contentID string) (entry *models.ContentEntry, err error) {
	defer func() { s.metrics.RecordTransition("archive", err) }()
	entry, err = s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.ContentStatusArchived {
		return nil, appErrors.ErrContentArchived
	}
	if err := s.entries.Archive(ctx, actor.TenantID, entry.ID, actor.UserID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrContentArchived
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to archive content")
	}
	if entry.Status == models.ContentStatusPublished {
		s.invalidate(ctx, actor.TenantID)
	}

	updated, err := s.loadEntry(ctx, actor, entry.ID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionContentArchive, entry.ID, entry, updated)
	return updated, nil
}

// RevertToVersion re-applies a historical snapshot as a new edit.
func (s *ContentService) RevertToVersion(ctx context.Context, actor models.Actor, contentID string, versionNumber int, notes *string) (entry *models.ContentEntry, err error) {
	defer func() { s.metrics.RecordTransition("revert", err) }()
	if versionNumber < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "version must be a positive number")
	}
	if err := s.validator.Struct(dto.RevertContentRequest{Version: versionNumber, Notes: notes}); err != nil {
		return nil, validationError(err)
	}
	current, err := s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	version, err := s.entries.GetVersion(ctx, current.ID, versionNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVersionNotFound, fmt.Sprintf("version %d not found", versionNumber))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load content version")
	}

	changeNotes := fmt.Sprintf("Reverted to version %d", versionNumber)
	if n := optionalNotes(notes); n != nil {
		changeNotes = *n
	}
	return s.applyEdit(ctx, actor, dto.UpdateContentRequest{
		Section:     current.Section,
		Key:         current.Key,
		Audience:    current.Audience,
		Value:       version.Value,
		Metadata:    version.Metadata.Clone(),
		ChangeNotes: &changeNotes,
	}, models.AuditActionContentRevert)
}

// BulkUpdateContent applies each update independently. A failing item is
// reported in the result and never blocks the others.
func (s *ContentService) BulkUpdateContent(ctx context.Context, actor models.Actor, updates []dto.UpdateContentRequest) (*dto.BulkUpdateResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "updates must not be empty")
	}
	if len(updates) > s.cfg.BulkMaxItems {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d updates per request", s.cfg.BulkMaxItems))
	}
	return s.applyAll(ctx, actor, updates, models.AuditActionContentUpdate), nil
}

func (s *ContentService) applyAll(ctx context.Context, actor models.Actor, updates []dto.UpdateContentRequest, action string) *dto.BulkUpdateResult {
	result := &dto.BulkUpdateResult{
		Updated: make([]models.ContentEntry, 0, len(updates)),
		Failed:  make([]dto.BulkFailure, 0),
	}
	for i, update := range updates {
		entry, err := s.applyEdit(ctx, actor, update, action)
		s.metrics.RecordTransition("update", err)
		if err != nil {
			appErr := appErrors.FromError(err)
			result.Failed = append(result.Failed, dto.BulkFailure{
				Index:   i,
				Section: update.Section,
				Key:     update.Key,
				Message: appErr.Message,
				Code:    appErr.Code,
			})
			s.logger.Warn("bulk content item failed",
				zap.String("tenant_id", actor.TenantID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		result.Updated = append(result.Updated, *entry)
	}
	s.metrics.RecordBulkItems(len(result.Updated), len(result.Failed))
	return result
}

// GetContent returns an entry with its approval trail.
func (s *ContentService) GetContent(ctx context.Context, actor models.Actor, contentID string) (*dto.ContentDetail, error) {
	entry, err := s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.approvals.List(ctx, models.ApprovalFilter{TenantID: actor.TenantID, ContentID: entry.ID, Limit: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list approvals")
	}
	if approvals == nil {
		approvals = []models.ContentApproval{}
	}
	return &dto.ContentDetail{Content: entry, Approvals: approvals}, nil
}

// ListContent returns the management page data.
func (s *ContentService) ListContent(ctx context.Context, actor models.Actor, query dto.ContentListQuery) (*dto.ContentListResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if query.Audience != "" && !query.Audience.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid audience")
	}
	for _, status := range query.Status {
		if !validStatus(status) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", status))
		}
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}

	entries, total, err := s.entries.List(ctx, models.ContentFilter{
		TenantID: actor.TenantID,
		Section:  strings.TrimSpace(query.Section),
		Audience: query.Audience,
		Statuses: query.Status,
		Search:   query.Search,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list content")
	}
	sections, err := s.entries.Sections(ctx, actor.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list sections")
	}
	pending, err := s.approvals.CountPending(ctx, actor.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to count pending approvals")
	}
	if entries == nil {
		entries = []models.ContentEntry{}
	}
	if sections == nil {
		sections = []string{}
	}
	return &dto.ContentListResult{
		Content:          entries,
		Sections:         sections,
		Audiences:        models.ContentAudiences,
		Statuses:         models.ContentStatuses,
		PendingApprovals: pending,
		MetadataKeys:     models.DocumentedMetadataKeys,
		Pagination:       models.Pagination{Page: page, PageSize: size, TotalCount: total},
	}, nil
}

// ListApprovals returns the approval queue, pending requests by default.
func (s *ContentService) ListApprovals(ctx context.Context, actor models.Actor, status models.ApprovalStatus) ([]models.ContentApproval, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	switch status {
	case "":
		status = models.ApprovalStatusPending
	case models.ApprovalStatusPending, models.ApprovalStatusApproved, models.ApprovalStatusRejected:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid approval status %q", status))
	}
	approvals, err := s.approvals.List(ctx, models.ApprovalFilter{TenantID: actor.TenantID, Status: status, Limit: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list approvals")
	}
	if approvals == nil {
		approvals = []models.ContentApproval{}
	}
	return approvals, nil
}

// GetContentHistory returns the version ledger of an entry, newest first.
func (s *ContentService) GetContentHistory(ctx context.Context, actor models.Actor, contentID string) ([]models.ContentVersion, error) {
	entry, err := s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	versions, err := s.entries.ListVersions(ctx, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load content history")
	}
	if versions == nil {
		versions = []models.ContentVersion{}
	}
	return versions, nil
}

// GetAuditTrail returns the recorded audit events of one entry, latest first.
func (s *ContentService) GetAuditTrail(ctx context.Context, actor models.Actor, contentID string, limit int) ([]models.AuditLog, error) {
	entry, err := s.loadEntry(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.audit.ListByResource(ctx, actor.TenantID, contentResource, entry.ID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load audit trail")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}

func (s *ContentService) loadEntry(ctx context.Context, actor models.Actor, contentID string) (*models.ContentEntry, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content id is required")
	}
	entry, err := s.entries.GetByID(ctx, actor.TenantID, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrContentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load content")
	}
	return entry, nil
}

func (s *ContentService) invalidate(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	// Failures are logged by the cache service; entries expire with their TTL.
	_ = s.cache.InvalidateTenant(ctx, tenantID)
}

func (s *ContentService) emitAudit(ctx context.Context, actor models.Actor, action, contentID string, before, after *models.ContentEntry) {
	if s.audit == nil {
		return
	}
	tenantID, userID, resourceID := actor.TenantID, actor.UserID, contentID
	log := &models.AuditLog{
		TenantID:   &tenantID,
		UserID:     &userID,
		Action:     action,
		Resource:   contentResource,
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "content-service",
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(auditSnapshot(before))
	}
	if after != nil {
		log.NewValues, _ = json.Marshal(auditSnapshot(after))
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *ContentService) emitAuditEvent(ctx context.Context, actor models.Actor, action string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	tenantID, userID := actor.TenantID, actor.UserID
	log := &models.AuditLog{
		TenantID:  &tenantID,
		UserID:    &userID,
		Action:    action,
		Resource:  contentResource,
		IPAddress: "system",
		UserAgent: "content-service",
	}
	log.NewValues, _ = json.Marshal(payload)
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func auditSnapshot(entry *models.ContentEntry) map[string]interface{} {
	return map[string]interface{}{
		"section":  entry.Section,
		"audience": entry.Audience,
		"key":      entry.Key,
		"value":    entry.Value,
		"metadata": entry.Metadata,
		"status":   entry.Status,
	}
}

func requireActor(actor models.Actor) error {
	if !actor.Valid() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "tenant and user are required")
	}
	return nil
}

func validStatus(status models.ContentStatus) bool {
	for _, known := range models.ContentStatuses {
		if status == known {
			return true
		}
	}
	return false
}

func optionalNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	v := strings.TrimSpace(*notes)
	if v == "" {
		return nil
	}
	return &v
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation, "invalid payload")
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, strings.Join(messages, "; "))
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
