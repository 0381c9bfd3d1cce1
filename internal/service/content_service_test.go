package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homepage-content-api/internal/dto"
	"github.com/noah-isme/homepage-content-api/internal/models"
	"github.com/noah-isme/homepage-content-api/internal/repository"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
	"github.com/noah-isme/homepage-content-api/pkg/signing"
)

type memoryContentStore struct {
	entries  map[string]*models.ContentEntry
	versions map[string][]models.ContentVersion
	seq      int
	saveErr  error
	listErr  error
}

func newMemoryContentStore() *memoryContentStore {
	return &memoryContentStore{
		entries:  make(map[string]*models.ContentEntry),
		versions: make(map[string][]models.ContentVersion),
	}
}

func (m *memoryContentStore) SaveEdit(ctx context.Context, p repository.SaveEditParams) (*repository.SaveEditResult, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	now := time.Now().UTC()
	result := &repository.SaveEditResult{}
	var entry *models.ContentEntry
	for _, e := range m.entries {
		if e.TenantID == p.TenantID && e.Section == p.Section && e.Audience == p.Audience && e.Key == p.Key {
			entry = e
		}
	}
	if entry == nil {
		m.seq++
		entry = &models.ContentEntry{
			ID:        fmt.Sprintf("content-%d", m.seq),
			TenantID:  p.TenantID,
			Section:   p.Section,
			Audience:  p.Audience,
			Key:       p.Key,
			Status:    models.ContentStatusDraft,
			CreatedBy: p.UserID,
			CreatedAt: now,
		}
		m.entries[entry.ID] = entry
		result.Created = true
	} else {
		previous := *entry
		result.Previous = &previous
		entry.Status = models.StatusAfterEdit(entry.Status)
		entry.ApprovedBy = nil
		entry.ApprovedAt = nil
		entry.ArchivedAt = nil
	}
	entry.Value = p.Value
	entry.Metadata = p.Metadata
	entry.UpdatedBy = p.UserID
	entry.UpdatedAt = now

	version := models.ContentVersion{
		ID:            fmt.Sprintf("%s-v%d", entry.ID, len(m.versions[entry.ID])+1),
		ContentID:     entry.ID,
		VersionNumber: len(m.versions[entry.ID]) + 1,
		Value:         p.Value,
		Metadata:      p.Metadata.Clone(),
		ChangeNotes:   p.ChangeNotes,
		CreatedBy:     p.UserID,
		CreatedAt:     now,
	}
	m.versions[entry.ID] = append(m.versions[entry.ID], version)
	copyEntry := *entry
	result.Entry = &copyEntry
	result.Version = &version
	return result, nil
}

func (m *memoryContentStore) GetByID(ctx context.Context, tenantID, id string) (*models.ContentEntry, error) {
	entry, ok := m.entries[id]
	if !ok || entry.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	copyEntry := *entry
	return &copyEntry, nil
}

func (m *memoryContentStore) List(ctx context.Context, filter models.ContentFilter) ([]models.ContentEntry, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	all, _ := m.ListAll(ctx, filter)
	return all, len(all), nil
}

func (m *memoryContentStore) ListAll(ctx context.Context, filter models.ContentFilter) ([]models.ContentEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.ContentEntry, 0)
	for _, e := range m.sorted() {
		if e.TenantID != filter.TenantID {
			continue
		}
		if filter.Section != "" && e.Section != filter.Section {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, e.Status) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryContentStore) ListVisible(ctx context.Context, tenantID string, audience models.ContentAudience, section string, statuses []models.ContentStatus) ([]models.ContentEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.ContentEntry, 0)
	for _, e := range m.sorted() {
		if e.TenantID != tenantID || (e.Audience != audience && e.Audience != models.AudienceBoth) {
			continue
		}
		if section != "" && e.Section != section {
			continue
		}
		if !containsStatus(statuses, e.Status) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryContentStore) Sections(ctx context.Context, tenantID string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range m.sorted() {
		if e.TenantID == tenantID && !seen[e.Section] {
			seen[e.Section] = true
			out = append(out, e.Section)
		}
	}
	return out, nil
}

func (m *memoryContentStore) ListVersions(ctx context.Context, contentID string) ([]models.ContentVersion, error) {
	versions := m.versions[contentID]
	out := make([]models.ContentVersion, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, versions[i])
	}
	return out, nil
}

func (m *memoryContentStore) GetVersion(ctx context.Context, contentID string, number int) (*models.ContentVersion, error) {
	for _, v := range m.versions[contentID] {
		if v.VersionNumber == number {
			copyVersion := v
			return &copyVersion, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryContentStore) Publish(ctx context.Context, tenantID, id, userID string, at time.Time) error {
	entry, ok := m.entries[id]
	if !ok || entry.TenantID != tenantID || entry.Status != models.ContentStatusApproved {
		return sql.ErrNoRows
	}
	entry.Status = models.ContentStatusPublished
	entry.PublishedAt = &at
	return nil
}

func (m *memoryContentStore) Archive(ctx context.Context, tenantID, id, userID string, at time.Time) error {
	entry, ok := m.entries[id]
	if !ok || entry.TenantID != tenantID || entry.Status == models.ContentStatusArchived {
		return sql.ErrNoRows
	}
	entry.Status = models.ContentStatusArchived
	entry.ArchivedAt = &at
	return nil
}

func (m *memoryContentStore) sorted() []models.ContentEntry {
	out := make([]models.ContentEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Audience == models.AudienceBoth && out[j].Audience != models.AudienceBoth
	})
	return out
}

func containsStatus(statuses []models.ContentStatus, status models.ContentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memoryApprovalStore struct {
	content   *memoryContentStore
	approvals []*models.ContentApproval
	seq       int
}

func (m *memoryApprovalStore) Create(ctx context.Context, approval *models.ContentApproval) error {
	for _, a := range m.approvals {
		if a.ContentID == approval.ContentID && a.Status == models.ApprovalStatusPending {
			return fmt.Errorf("insert content approval: %w", &pq.Error{Code: "23505"})
		}
	}
	entry, ok := m.content.entries[approval.ContentID]
	if !ok || entry.Status == models.ContentStatusArchived {
		return sql.ErrNoRows
	}
	m.seq++
	approval.ID = fmt.Sprintf("approval-%d", m.seq)
	approval.Status = models.ApprovalStatusPending
	stored := *approval
	m.approvals = append(m.approvals, &stored)
	entry.Status = models.ContentStatusPending
	return nil
}

func (m *memoryApprovalStore) LatestPending(ctx context.Context, contentID string) (*models.ContentApproval, error) {
	for i := len(m.approvals) - 1; i >= 0; i-- {
		a := m.approvals[i]
		if a.ContentID == contentID && a.Status == models.ApprovalStatusPending {
			copyApproval := *a
			return &copyApproval, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryApprovalStore) Review(ctx context.Context, p repository.ReviewParams) error {
	for _, a := range m.approvals {
		if a.ID != p.ApprovalID || a.Status != models.ApprovalStatusPending {
			continue
		}
		a.Status = p.Decision
		a.ReviewedBy = &p.ReviewerID
		a.ReviewNotes = p.Notes
		a.ReviewedAt = &p.ReviewedAt
		entry := m.content.entries[p.ContentID]
		if p.Decision == models.ApprovalStatusApproved {
			entry.Status = models.ContentStatusApproved
			entry.ApprovedBy = &p.ReviewerID
			entry.ApprovedAt = &p.ReviewedAt
		} else {
			entry.Status = models.ContentStatusDraft
		}
		return nil
	}
	return sql.ErrNoRows
}

func (m *memoryApprovalStore) List(ctx context.Context, filter models.ApprovalFilter) ([]models.ContentApproval, error) {
	out := make([]models.ContentApproval, 0)
	for _, a := range m.approvals {
		if a.TenantID != filter.TenantID {
			continue
		}
		if filter.ContentID != "" && a.ContentID != filter.ContentID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memoryApprovalStore) GetByID(ctx context.Context, tenantID, id string) (*models.ContentApproval, error) {
	for _, a := range m.approvals {
		if a.ID == id && a.TenantID == tenantID {
			copyApproval := *a
			return &copyApproval, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryApprovalStore) CountPending(ctx context.Context, tenantID string) (int, error) {
	pending, _ := m.List(ctx, models.ApprovalFilter{TenantID: tenantID, Status: models.ApprovalStatusPending})
	return len(pending), nil
}

type auditRecorder struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func (a *auditRecorder) ListByResource(ctx context.Context, tenantID, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for i := len(a.logs) - 1; i >= 0; i-- {
		log := a.logs[i]
		if log.TenantID == nil || *log.TenantID != tenantID || log.Resource != resource {
			continue
		}
		if log.ResourceID == nil || *log.ResourceID != resourceID {
			continue
		}
		out = append(out, *log)
	}
	return out, nil
}

type memoryCache struct {
	values      map[string]models.FormattedContent
	invalidated []string
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*models.FormattedContent)) = value
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.values[key] = value.(models.FormattedContent)
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

type contentFixture struct {
	svc       *ContentService
	entries   *memoryContentStore
	approvals *memoryApprovalStore
	audit     *auditRecorder
	cache     *memoryCache
}

func newContentFixture(t *testing.T, opts ...ContentServiceOption) *contentFixture {
	t.Helper()
	entries := newMemoryContentStore()
	approvals := &memoryApprovalStore{content: entries}
	audit := &auditRecorder{}
	cache := &memoryCache{values: map[string]models.FormattedContent{}}
	base := []ContentServiceOption{
		WithContentCache(NewCacheService(cache, nil, time.Minute, nil, true)),
		WithContentMetrics(NewMetricsService()),
		WithPreviewSigner(signing.NewTokenSigner("preview-secret", time.Hour)),
	}
	svc := NewContentService(entries, approvals, audit, nil, nil, ContentServiceConfig{BulkMaxItems: 3}, append(base, opts...)...)
	return &contentFixture{svc: svc, entries: entries, approvals: approvals, audit: audit, cache: cache}
}

var (
	editor   = models.Actor{TenantID: "tenant-1", UserID: "editor-1", Role: models.RoleEditor}
	reviewer = models.Actor{TenantID: "tenant-1", UserID: "admin-1", Role: models.RoleAdmin}
	outsider = models.Actor{TenantID: "tenant-2", UserID: "editor-9", Role: models.RoleEditor}
)

func heroHeadline(value string) dto.UpdateContentRequest {
	return dto.UpdateContentRequest{Section: "hero", Key: "headline", Value: value, Audience: models.AudienceBoth}
}

func (f *contentFixture) publish(t *testing.T, req dto.UpdateContentRequest) *models.ContentEntry {
	t.Helper()
	ctx := context.Background()
	entry, err := f.svc.UpdateContent(ctx, editor, req)
	require.NoError(t, err)
	_, err = f.svc.RequestApproval(ctx, editor, entry.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.ApproveContent(ctx, reviewer, entry.ID, nil)
	require.NoError(t, err)
	published, err := f.svc.PublishContent(ctx, reviewer, entry.ID)
	require.NoError(t, err)
	return published
}

func TestUpdateContentCreatesDraftAndVersions(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	entry, err := f.svc.UpdateContent(ctx, editor, dto.UpdateContentRequest{
		Section: "  hero ", Key: "headline", Value: "Welcome", Audience: "BOTH",
		Metadata: models.Metadata{"cta_label": "Join"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusDraft, entry.Status)
	assert.Equal(t, "hero", entry.Section)
	assert.Equal(t, models.AudienceBoth, entry.Audience)

	again, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome back"))
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID, "same slot must reuse the entry")
	assert.Equal(t, "Welcome back", again.Value)

	history, err := f.svc.GetContentHistory(ctx, editor, entry.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].VersionNumber)
	assert.Equal(t, 1, history[1].VersionNumber)
	assert.Equal(t, "Welcome", history[1].Value)
	assert.Len(t, f.audit.logs, 2)
}

func TestUpdateContentValidation(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	cases := map[string]dto.UpdateContentRequest{
		"long section": {Section: strings.Repeat("s", 51), Key: "k", Value: "v", Audience: models.AudienceBoth},
		"long key":     {Section: "hero", Key: strings.Repeat("k", 101), Value: "v", Audience: models.AudienceBoth},
		"bad audience": {Section: "hero", Key: "k", Value: "v", Audience: "everyone"},
		"no audience":  {Section: "hero", Key: "k", Value: "v"},
		"no value":     {Section: "hero", Key: "k", Audience: models.AudienceBoth},
		"blank key":    {Section: "hero", Key: "   ", Value: "v", Audience: models.AudienceBoth},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdateContent(ctx, editor, req)
			require.Error(t, err)
			assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
		})
	}
	assert.Empty(t, f.entries.entries)

	_, err := f.svc.UpdateContent(ctx, models.Actor{UserID: "u"}, heroHeadline("x"))
	assert.Equal(t, appErrors.KindUnauthorized, appErrors.KindOf(err))
}

func TestUpdateContentPersistenceFailure(t *testing.T) {
	f := newContentFixture(t)
	f.entries.saveErr = errors.New("connection reset")

	_, err := f.svc.UpdateContent(context.Background(), editor, heroHeadline("Welcome"))
	require.Error(t, err)
	assert.Equal(t, appErrors.KindPersistence, appErrors.KindOf(err))
}

func TestPublishedScenarioAppearsInFormattedContent(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	published := f.publish(t, heroHeadline("Welcome"))
	assert.Equal(t, models.ContentStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	content, hit, err := f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceBoth, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Welcome", content["hero"]["headline"])

	_, hit, err = f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceBoth, "")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestApproveWithoutRequestFails(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)

	_, err = f.svc.ApproveContent(ctx, reviewer, entry.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNoPendingApproval))
	assert.Equal(t, "no pending approval", err.Error())
	assert.Equal(t, appErrors.KindConflict, appErrors.KindOf(err))

	_, err = f.svc.RejectContent(ctx, reviewer, entry.ID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrNoPendingApproval))

	detail, err := f.svc.GetContent(ctx, editor, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusDraft, detail.Content.Status)
}

func TestRequestApprovalRules(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestApproval(ctx, editor, "missing", nil)
	assert.True(t, errors.Is(err, appErrors.ErrContentNotFound))

	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)

	notes := "  please review  "
	approval, err := f.svc.RequestApproval(ctx, editor, entry.ID, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, approval.Status)
	require.NotNil(t, approval.RequestNotes)
	assert.Equal(t, "please review", *approval.RequestNotes)

	_, err = f.svc.RequestApproval(ctx, editor, entry.ID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrApprovalPending))

	_, err = f.svc.RequestApproval(ctx, outsider, entry.ID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrContentNotFound), "entries are tenant scoped")

	queue, err := f.svc.ListApprovals(ctx, reviewer, "")
	require.NoError(t, err)
	require.Len(t, queue, 1)

	_, err = f.svc.ListApprovals(ctx, reviewer, "maybe")
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}

func TestRequestApprovalConcurrentDuplicateMapsToConflict(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)
	// Simulate a pending row the service did not see when it checked.
	f.approvals.approvals = append(f.approvals.approvals, &models.ContentApproval{
		ID: "approval-race", ContentID: entry.ID, TenantID: "tenant-1", Status: models.ApprovalStatusPending,
	})
	svc := NewContentService(f.entries, &racingApprovalStore{memoryApprovalStore: f.approvals}, nil, nil, nil, ContentServiceConfig{})

	_, err = svc.RequestApproval(ctx, editor, entry.ID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrApprovalPending))
}

type racingApprovalStore struct {
	*memoryApprovalStore
}

func (r *racingApprovalStore) LatestPending(ctx context.Context, contentID string) (*models.ContentApproval, error) {
	return nil, sql.ErrNoRows
}

type unreadableApprovalStore struct {
	*memoryApprovalStore
}

func (u *unreadableApprovalStore) GetByID(ctx context.Context, tenantID, id string) (*models.ContentApproval, error) {
	return nil, errors.New("replica lag")
}

func TestRequestApprovalReloadsStoredRow(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)

	approval, err := f.svc.RequestApproval(ctx, editor, entry.ID, nil)
	require.NoError(t, err)
	require.Len(t, f.approvals.approvals, 1)
	assert.Equal(t, *f.approvals.approvals[0], *approval)
	assert.NotSame(t, f.approvals.approvals[0], approval)

	other, err := f.svc.UpdateContent(ctx, editor, dto.UpdateContentRequest{Section: "footer", Key: "copyright", Value: "2026", Audience: models.AudienceBoth})
	require.NoError(t, err)
	svc := NewContentService(f.entries, &unreadableApprovalStore{memoryApprovalStore: f.approvals}, nil, nil, nil, ContentServiceConfig{})
	approval, err = svc.RequestApproval(ctx, editor, other.ID, nil)
	require.NoError(t, err, "a committed request is not reported as failed")
	assert.Equal(t, other.ID, approval.ContentID)
	assert.NotEmpty(t, approval.ID)
}

func TestRejectReturnsToDraftAndEditWhilePendingStaysPending(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)
	_, err = f.svc.RequestApproval(ctx, editor, entry.ID, nil)
	require.NoError(t, err)

	edited, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome!"))
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPending, edited.Status)

	notes := "tone it down"
	rejected, err := f.svc.RejectContent(ctx, reviewer, entry.ID, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusDraft, rejected.Status)

	detail, err := f.svc.GetContent(ctx, editor, entry.ID)
	require.NoError(t, err)
	require.Len(t, detail.Approvals, 1)
	assert.Equal(t, models.ApprovalStatusRejected, detail.Approvals[0].Status)
	require.NotNil(t, detail.Approvals[0].ReviewNotes)
	assert.Equal(t, "tone it down", *detail.Approvals[0].ReviewNotes)
}

func TestPublishRequiresApproved(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)
	_, err = f.svc.PublishContent(ctx, reviewer, entry.ID)
	assert.True(t, errors.Is(err, appErrors.ErrContentNotApproved))

	_, err = f.svc.RequestApproval(ctx, editor, entry.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.PublishContent(ctx, reviewer, entry.ID)
	assert.True(t, errors.Is(err, appErrors.ErrContentNotApproved))

	detail, err := f.svc.GetContent(ctx, editor, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPending, detail.Content.Status)
}

func TestEditAfterPublishLeavesPublicPathAndInvalidatesCache(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	f.publish(t, heroHeadline("Welcome"))
	_, _, err := f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceIndividual, "hero")
	require.NoError(t, err)
	require.NotEmpty(t, f.cache.values)

	edited, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Hello"))
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusDraft, edited.Status)
	assert.Empty(t, f.cache.values)
	assert.Contains(t, f.cache.invalidated, TenantPattern("tenant-1"))

	content, _, err := f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceIndividual, "hero")
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestRequestApprovalOnPublishedInvalidatesCache(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	published := f.publish(t, heroHeadline("Welcome"))
	_, hit, err := f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceBoth, "")
	require.NoError(t, err)
	require.False(t, hit)
	_, hit, err = f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceBoth, "")
	require.NoError(t, err)
	require.True(t, hit)

	approval, err := f.svc.RequestApproval(ctx, editor, published.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, published.ID, approval.ContentID)
	assert.Empty(t, f.cache.values)
	assert.Contains(t, f.cache.invalidated, TenantPattern("tenant-1"))

	content, hit, err := f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceBoth, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, content)
}

func TestNotesLengthIsValidated(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)
	long := strings.Repeat("n", 2001)

	_, err = f.svc.RequestApproval(ctx, editor, entry.ID, &long)
	require.Error(t, err)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	assert.Empty(t, f.approvals.approvals)

	_, err = f.svc.RequestApproval(ctx, editor, entry.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.ApproveContent(ctx, reviewer, entry.ID, &long)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	_, err = f.svc.RejectContent(ctx, reviewer, entry.ID, &long)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	_, err = f.svc.RevertToVersion(ctx, editor, entry.ID, 1, &long)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))

	detail, err := f.svc.GetContent(ctx, editor, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPending, detail.Content.Status)

	fits := strings.Repeat("n", 2000)
	_, err = f.svc.ApproveContent(ctx, reviewer, entry.ID, &fits)
	require.NoError(t, err)
}

func TestFormattedContentAudienceRules(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	f.publish(t, heroHeadline("For everyone"))
	f.publish(t, dto.UpdateContentRequest{Section: "hero", Key: "headline", Value: "For schools", Audience: models.AudienceInstitutional})
	f.publish(t, dto.UpdateContentRequest{Section: "hero", Key: "cta", Value: "Join", Audience: models.AudienceIndividual})
	_, err := f.svc.UpdateContent(ctx, editor, dto.UpdateContentRequest{Section: "stats", Key: "alumni", Value: "10k", Audience: models.AudienceBoth})
	require.NoError(t, err)

	institutional, _, err := f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceInstitutional, "")
	require.NoError(t, err)
	assert.Equal(t, "For schools", institutional["hero"]["headline"])
	assert.NotContains(t, institutional["hero"], "cta")
	assert.NotContains(t, institutional, "stats", "drafts are never public")

	individual, _, err := f.svc.GetFormattedContent(ctx, "tenant-1", models.AudienceIndividual, "")
	require.NoError(t, err)
	assert.Equal(t, "For everyone", individual["hero"]["headline"])
	assert.Equal(t, "Join", individual["hero"]["cta"])

	other, _, err := f.svc.GetFormattedContent(ctx, "tenant-2", models.AudienceIndividual, "")
	require.NoError(t, err)
	assert.Empty(t, other)

	_, _, err = f.svc.GetFormattedContent(ctx, "tenant-1", "aliens", "")
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	_, _, err = f.svc.GetFormattedContent(ctx, "", models.AudienceBoth, "")
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}

func TestRevertToVersionAppendsSnapshot(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	first := heroHeadline("Welcome")
	first.Metadata = models.Metadata{"cta_label": "Join"}
	entry, err := f.svc.UpdateContent(ctx, editor, first)
	require.NoError(t, err)
	_, err = f.svc.UpdateContent(ctx, editor, heroHeadline("Hello"))
	require.NoError(t, err)

	reverted, err := f.svc.RevertToVersion(ctx, editor, entry.ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", reverted.Value)
	assert.Equal(t, "Join", reverted.Metadata["cta_label"])

	history, err := f.svc.GetContentHistory(ctx, editor, entry.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 3, history[0].VersionNumber)
	assert.Equal(t, "Welcome", history[0].Value)
	require.NotNil(t, history[0].ChangeNotes)
	assert.Equal(t, "Reverted to version 1", *history[0].ChangeNotes)
	assert.Equal(t, "Hello", history[1].Value, "historical versions are untouched")

	_, err = f.svc.RevertToVersion(ctx, editor, entry.ID, 9, nil)
	assert.True(t, errors.Is(err, appErrors.ErrVersionNotFound))
	_, err = f.svc.RevertToVersion(ctx, editor, entry.ID, 0, nil)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}

func TestBulkUpdateIsPerItem(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	result, err := f.svc.BulkUpdateContent(ctx, editor, []dto.UpdateContentRequest{
		heroHeadline("Welcome"),
		{Section: "hero", Key: "subheadline", Value: "Missing audience"},
	})
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	assert.Equal(t, "Welcome", result.Updated[0].Value)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Equal(t, "subheadline", result.Failed[0].Key)
	assert.Equal(t, appErrors.ErrValidation.Code, result.Failed[0].Code)
	assert.Contains(t, result.Failed[0].Message, "audience")
	assert.Len(t, f.entries.entries, 1)

	_, err = f.svc.BulkUpdateContent(ctx, editor, nil)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))

	tooMany := []dto.UpdateContentRequest{heroHeadline("a"), heroHeadline("b"), heroHeadline("c"), heroHeadline("d")}
	_, err = f.svc.BulkUpdateContent(ctx, editor, tooMany)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}

func TestArchiveContent(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	published := f.publish(t, heroHeadline("Welcome"))
	archived, err := f.svc.ArchiveContent(ctx, reviewer, published.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusArchived, archived.Status)
	assert.Contains(t, f.cache.invalidated, TenantPattern("tenant-1"))

	_, err = f.svc.ArchiveContent(ctx, reviewer, published.ID)
	assert.True(t, errors.Is(err, appErrors.ErrContentArchived))
	_, err = f.svc.RequestApproval(ctx, editor, published.ID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrContentArchived))

	revived, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Back"))
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusDraft, revived.Status)
	assert.Nil(t, revived.ArchivedAt)
}

func TestListContent(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	entry, err := f.svc.UpdateContent(ctx, editor, heroHeadline("Welcome"))
	require.NoError(t, err)
	_, err = f.svc.UpdateContent(ctx, editor, dto.UpdateContentRequest{Section: "footer", Key: "copyright", Value: "2026", Audience: models.AudienceBoth})
	require.NoError(t, err)
	_, err = f.svc.RequestApproval(ctx, editor, entry.ID, nil)
	require.NoError(t, err)

	page, err := f.svc.ListContent(ctx, editor, dto.ContentListQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.Equal(t, []string{"footer", "hero"}, page.Sections)
	assert.Equal(t, 1, page.PendingApprovals)
	assert.Equal(t, models.ContentAudiences, page.Audiences)
	assert.Equal(t, models.DocumentedMetadataKeys, page.MetadataKeys)
	assert.Contains(t, page.MetadataKeys, "hero")
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 50, page.Pagination.PageSize)
	assert.Equal(t, 2, page.Pagination.TotalCount)

	_, err = f.svc.ListContent(ctx, editor, dto.ContentListQuery{Status: []models.ContentStatus{"lost"}})
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))

	f.entries.listErr = errors.New("timeout")
	_, err = f.svc.ListContent(ctx, editor, dto.ContentListQuery{})
	assert.Equal(t, appErrors.KindPersistence, appErrors.KindOf(err))
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	f := newContentFixture(t)
	f.audit.err = errors.New("audit table locked")

	_, err := f.svc.UpdateContent(context.Background(), editor, heroHeadline("Welcome"))
	require.NoError(t, err)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionContentUpdate, f.audit.logs[0].Action)
	assert.Equal(t, "tenant-1", *f.audit.logs[0].TenantID)
}

func TestPreviewMergesOverridesAndSignsLink(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	f.publish(t, heroHeadline("Welcome"))
	_, err := f.svc.UpdateContent(ctx, editor, dto.UpdateContentRequest{Section: "hero", Key: "subheadline", Value: "Draft copy", Audience: models.AudienceIndividual})
	require.NoError(t, err)

	resp, err := f.svc.Preview(ctx, editor, dto.PreviewRequest{
		Audience: models.AudienceIndividual,
		Items:    []dto.PreviewItem{{Section: "hero", Key: "headline", Value: "Unsaved"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Unsaved", resp.Preview["hero"]["headline"])
	assert.Equal(t, "Draft copy", resp.Preview["hero"]["subheadline"])
	require.NotEmpty(t, resp.Token)

	shared, err := f.svc.PreviewByToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", shared["hero"]["headline"], "shared previews never include unsaved values")
	assert.Equal(t, "Draft copy", shared["hero"]["subheadline"])

	_, err = f.svc.PreviewByToken(ctx, resp.Token+"x")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidPreviewToken))

	_, err = f.svc.Preview(ctx, editor, dto.PreviewRequest{Audience: "martians"})
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))

	entry, err := f.svc.GetContent(ctx, editor, "content-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", entry.Content.Value, "preview never persists")
}

func TestGetAuditTrail(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	entry := f.publish(t, heroHeadline("Welcome"))

	trail, err := f.svc.GetAuditTrail(ctx, reviewer, entry.ID, 10)
	require.NoError(t, err)
	require.Len(t, trail, 4)
	assert.Equal(t, models.AuditActionContentPublish, trail[0].Action)
	assert.Equal(t, models.AuditActionContentUpdate, trail[3].Action)

	_, err = f.svc.GetAuditTrail(ctx, outsider, entry.ID, 10)
	assert.True(t, errors.Is(err, appErrors.ErrContentNotFound))
}
