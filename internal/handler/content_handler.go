package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/homepage-content-api/internal/dto"
	"github.com/noah-isme/homepage-content-api/internal/middleware"
	"github.com/noah-isme/homepage-content-api/internal/models"
	"github.com/noah-isme/homepage-content-api/internal/service"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
	"github.com/noah-isme/homepage-content-api/pkg/export"
	"github.com/noah-isme/homepage-content-api/pkg/response"
)

const maxImportBytes = 4 << 20

type contentService interface {
	UpdateContent(ctx context.Context, actor models.Actor, req dto.UpdateContentRequest) (*models.ContentEntry, error)
	BulkUpdateContent(ctx context.Context, actor models.Actor, updates []dto.UpdateContentRequest) (*dto.BulkUpdateResult, error)
	RequestApproval(ctx context.Context, actor models.Actor, contentID string, notes *string) (*models.ContentApproval, error)
	ApproveContent(ctx context.Context, actor models.Actor, contentID string, notes *string) (*models.ContentEntry, error)
	RejectContent(ctx context.Context, actor models.Actor, contentID string, notes *string) (*models.ContentEntry, error)
	PublishContent(ctx context.Context, actor models.Actor, contentID string) (*models.ContentEntry, error)
	ArchiveContent(ctx context.Context, actor models.Actor, contentID string) (*models.ContentEntry, error)
	RevertToVersion(ctx context.Context, actor models.Actor, contentID string, versionNumber int, notes *string) (*models.ContentEntry, error)
	GetContent(ctx context.Context, actor models.Actor, contentID string) (*dto.ContentDetail, error)
	ListContent(ctx context.Context, actor models.Actor, query dto.ContentListQuery) (*dto.ContentListResult, error)
	ListApprovals(ctx context.Context, actor models.Actor, status models.ApprovalStatus) ([]models.ContentApproval, error)
	GetContentHistory(ctx context.Context, actor models.Actor, contentID string) ([]models.ContentVersion, error)
	GetAuditTrail(ctx context.Context, actor models.Actor, contentID string, limit int) ([]models.AuditLog, error)
	GetFormattedContent(ctx context.Context, tenantID string, audience models.ContentAudience, section string) (models.FormattedContent, bool, error)
	Preview(ctx context.Context, actor models.Actor, req dto.PreviewRequest) (*dto.PreviewResponse, error)
	PreviewByToken(ctx context.Context, token string) (models.FormattedContent, error)
}

type contentTransferService interface {
	Export(ctx context.Context, actor models.Actor, format export.Format) (*service.ExportFile, error)
	Import(ctx context.Context, actor models.Actor, format export.Format, payload []byte) (*dto.ImportResult, error)
}

// ContentHandler exposes the homepage content workflow endpoints.
type ContentHandler struct {
	service  contentService
	transfer contentTransferService
}

// NewContentHandler builds a new handler.
func NewContentHandler(service contentService, transfer contentTransferService) *ContentHandler {
	return &ContentHandler{service: service, transfer: transfer}
}

// List godoc
// @Summary Content management page
// @Tags Content
// @Produce json
// @Param section query string false "Section"
// @Param audience query string false "Audience"
// @Param status query []string false "Statuses"
// @Param search query string false "Search in key and value"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.ContentListResult
// @Failure 400 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content [get]
func (h *ContentHandler) List(c *gin.Context) {
	var query dto.ContentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	result, err := h.service.ListContent(c.Request.Context(), actorFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"content":           result.Content,
		"sections":          result.Sections,
		"audiences":         result.Audiences,
		"statuses":          result.Statuses,
		"pending_approvals": result.PendingApprovals,
		"metadata_keys":     result.MetadataKeys,
		"pagination":        result.Pagination,
	})
}

// Data godoc
// @Summary Formatted published content for the caller's tenant
// @Tags Content
// @Produce json
// @Param audience query string false "individual, institutional or both"
// @Param section query string false "Section"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/content/data [get]
func (h *ContentHandler) Data(c *gin.Context) {
	actor := actorFromContext(c)
	content, hit, err := h.service.GetFormattedContent(c.Request.Context(), actor.TenantID,
		models.ContentAudience(c.Query("audience")), c.Query("section"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, gin.H{"content": content})
}

// Get godoc
// @Summary Get one content entry with its approvals
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} dto.ContentDetail
// @Failure 404 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	detail, err := h.service.GetContent(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"content": detail.Content, "approvals": detail.Approvals})
}

// Approvals godoc
// @Summary Approval queue
// @Tags Content
// @Produce json
// @Param status query string false "pending (default), approved or rejected"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/content/approvals [get]
func (h *ContentHandler) Approvals(c *gin.Context) {
	approvals, err := h.service.ListApprovals(c.Request.Context(), actorFromContext(c), models.ApprovalStatus(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"approvals": approvals})
}

// Update godoc
// @Summary Update one content slot
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.UpdateContentRequest true "Content payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/update [post]
func (h *ContentHandler) Update(c *gin.Context) {
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, "invalid content payload"))
		return
	}
	entry, err := h.service.UpdateContent(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"content": entry})
}

// BulkUpdate godoc
// @Summary Update several content slots independently
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.BulkUpdateContentRequest true "Bulk payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/bulk-update [post]
func (h *ContentHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, "invalid bulk payload"))
		return
	}
	result, err := h.service.BulkUpdateContent(c.Request.Context(), actorFromContext(c), req.Updates)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"updated_count": len(result.Updated),
		"content":       result.Updated,
		"failed":        result.Failed,
	})
}

// RequestApproval godoc
// @Summary Request approval for a content entry
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.NotesRequest false "Notes"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id}/request-approval [post]
func (h *ContentHandler) RequestApproval(c *gin.Context) {
	notes, ok := bindNotes(c)
	if !ok {
		return
	}
	approval, err := h.service.RequestApproval(c.Request.Context(), actorFromContext(c), c.Param("id"), notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"approval": approval})
}

// Approve godoc
// @Summary Approve the pending request of a content entry
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.NotesRequest false "Review notes"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id}/approve [post]
func (h *ContentHandler) Approve(c *gin.Context) {
	notes, ok := bindNotes(c)
	if !ok {
		return
	}
	entry, err := h.service.ApproveContent(c.Request.Context(), actorFromContext(c), c.Param("id"), notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"content": entry})
}

// Reject godoc
// @Summary Reject the pending request of a content entry
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.NotesRequest false "Review notes"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id}/reject [post]
func (h *ContentHandler) Reject(c *gin.Context) {
	notes, ok := bindNotes(c)
	if !ok {
		return
	}
	entry, err := h.service.RejectContent(c.Request.Context(), actorFromContext(c), c.Param("id"), notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"content": entry})
}

// Publish godoc
// @Summary Publish an approved content entry
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id}/publish [post]
func (h *ContentHandler) Publish(c *gin.Context) {
	entry, err := h.service.PublishContent(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"content": entry})
}

// Archive godoc
// @Summary Archive a content entry
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id} [delete]
func (h *ContentHandler) Archive(c *gin.Context) {
	entry, err := h.service.ArchiveContent(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"content": entry})
}

// History godoc
// @Summary Version history of a content entry
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id}/history [get]
func (h *ContentHandler) History(c *gin.Context) {
	history, err := h.service.GetContentHistory(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"history": history})
}

// AuditTrail godoc
// @Summary Audit events recorded for a content entry
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Param limit query int false "Maximum events, default 50"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id}/audit [get]
func (h *ContentHandler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.service.GetAuditTrail(c.Request.Context(), actorFromContext(c), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"audit": logs})
}

// Revert godoc
// @Summary Revert a content entry to a previous version
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.RevertContentRequest true "Version to restore"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/{id}/revert [post]
func (h *ContentHandler) Revert(c *gin.Context) {
	var req dto.RevertContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, "invalid revert payload"))
		return
	}
	entry, err := h.service.RevertToVersion(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Version, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"content": entry})
}

// Preview godoc
// @Summary Preview unsaved content
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.PreviewRequest true "Preview payload"
// @Success 200 {object} dto.PreviewResponse
// @Failure 400 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/preview [post]
func (h *ContentHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, "invalid preview payload"))
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := gin.H{"preview": preview.Preview}
	if preview.Token != "" {
		payload["token"] = preview.Token
		payload["expires_at"] = preview.ExpiresAt
	}
	response.OK(c, payload)
}

// Export godoc
// @Summary Export the tenant's content
// @Tags Content
// @Produce json,application/yaml,text/csv,application/pdf
// @Param format query string false "json (default), yaml, csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/export [get]
func (h *ContentHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnsupportedFormat, err.Error()))
		return
	}
	file, err := h.transfer.Export(c.Request.Context(), actorFromContext(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if format == export.FormatJSON && !strings.EqualFold(c.Query("download"), "true") {
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, file.ContentType, file.Data)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Import godoc
// @Summary Import content from a JSON or YAML document
// @Tags Content
// @Accept json,application/yaml
// @Produce json
// @Param format query string false "json or yaml; defaults to the Content-Type"
// @Param payload body dto.ContentDocument true "Document"
// @Success 200 {object} dto.ImportResult
// @Failure 400 {object} response.ErrorBody
// @Security BearerAuth
// @Router /admin/content/import [post]
func (h *ContentHandler) Import(c *gin.Context) {
	format, err := service.ImportFormat(c.Query("format"), c.ContentType())
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, "failed to read import document"))
		return
	}
	if len(payload) > maxImportBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "import document is too large"))
		return
	}
	result, err := h.transfer.Import(c.Request.Context(), actorFromContext(c), format, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"imported_count": result.ImportedCount, "failed": result.Failed})
}

// PublicContent godoc
// @Summary Published homepage content
// @Tags Public
// @Produce json
// @Param tenant query string true "Tenant ID"
// @Param audience query string false "individual, institutional or both"
// @Param section query string false "Section"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /content [get]
func (h *ContentHandler) PublicContent(c *gin.Context) {
	content, hit, err := h.service.GetFormattedContent(c.Request.Context(), c.Query("tenant"),
		models.ContentAudience(c.Query("audience")), c.Query("section"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, gin.H{"content": content})
}

// SharedPreview godoc
// @Summary Render a shared preview link
// @Tags Public
// @Produce json
// @Param token path string true "Preview token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} response.ErrorBody
// @Router /content/preview/{token} [get]
func (h *ContentHandler) SharedPreview(c *gin.Context) {
	preview, err := h.service.PreviewByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"preview": preview})
}

// bindNotes reads an optional notes body. An empty body is allowed.
func bindNotes(c *gin.Context) (*string, bool) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, true
	}
	var req dto.NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err == io.EOF {
			return nil, true
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, "invalid notes payload"))
		return nil, false
	}
	return req.Notes, true
}
