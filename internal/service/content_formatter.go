package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/homepage-content-api/internal/dto"
	"github.com/noah-isme/homepage-content-api/internal/models"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
)

// previewStatuses are the states rendered by previews: everything but archived.
var previewStatuses = []models.ContentStatus{
	models.ContentStatusDraft,
	models.ContentStatusPending,
	models.ContentStatusApproved,
	models.ContentStatusPublished,
}

// GetFormattedContent returns section -> key -> value for the public read
// path. Only published entries targeting the audience or "both" are included;
// an audience-specific value wins over a "both" value for the same key.
func (s *ContentService) GetFormattedContent(ctx context.Context, tenantID string, audience models.ContentAudience, section string) (models.FormattedContent, bool, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "tenant is required")
	}
	audience, err := parseAudience(audience)
	if err != nil {
		return nil, false, err
	}
	section = strings.TrimSpace(section)

	key := FormattedContentKey(tenantID, audience, section)
	if s.cache != nil {
		var cached models.FormattedContent
		// Cache read errors fall through to the database.
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, true, nil
		}
	}

	entries, err := s.entries.ListVisible(ctx, tenantID, audience, section, []models.ContentStatus{models.ContentStatusPublished})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load published content")
	}
	formatted := formatEntries(entries)

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, formatted, s.cfg.CacheTTL)
	}
	return formatted, false, nil
}

// Preview renders unsaved overrides on top of the tenant's latest values and
// returns a shareable token for the unmodified preview. Nothing is persisted.
func (s *ContentService) Preview(ctx context.Context, actor models.Actor, req dto.PreviewRequest) (*dto.PreviewResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	audience, err := parseAudience(req.Audience)
	if err != nil {
		return nil, err
	}
	req.Audience = audience
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	preview, err := s.latest(ctx, actor.TenantID, audience, strings.TrimSpace(req.Section))
	if err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		preview.Set(strings.TrimSpace(item.Section), strings.TrimSpace(item.Key), item.Value)
	}

	resp := &dto.PreviewResponse{Preview: preview}
	if s.signer != nil {
		token, expiresAt, err := s.signer.Generate(actor.TenantID, string(audience))
		if err != nil {
			s.logger.Warn("failed to sign preview link", zap.String("tenant_id", actor.TenantID), zap.Error(err))
		} else {
			resp.Token = token
			resp.ExpiresAt = expiresAt
		}
	}
	return resp, nil
}

// PreviewByToken renders the latest values of the tenant and audience encoded
// in a signed preview token.
func (s *ContentService) PreviewByToken(ctx context.Context, token string) (models.FormattedContent, error) {
	if s.signer == nil {
		return nil, appErrors.ErrInvalidPreviewToken
	}
	claims, err := s.signer.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPreviewToken, appErrors.ErrInvalidPreviewToken.Message)
	}
	audience, err := parseAudience(models.ContentAudience(claims.Scope))
	if err != nil {
		return nil, appErrors.ErrInvalidPreviewToken
	}
	return s.latest(ctx, claims.Subject, audience, "")
}

func (s *ContentService) latest(ctx context.Context, tenantID string, audience models.ContentAudience, section string) (models.FormattedContent, error) {
	entries, err := s.entries.ListVisible(ctx, tenantID, audience, section, previewStatuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load content")
	}
	return formatEntries(entries), nil
}

// formatEntries folds entries into a formatted map. Entries must arrive with
// "both" rows before audience-specific rows of the same key.
func formatEntries(entries []models.ContentEntry) models.FormattedContent {
	formatted := models.FormattedContent{}
	for _, entry := range entries {
		formatted.Set(entry.Section, entry.Key, entry.Value)
	}
	return formatted
}

func parseAudience(audience models.ContentAudience) (models.ContentAudience, error) {
	normalised := models.ContentAudience(strings.ToLower(strings.TrimSpace(string(audience))))
	if normalised == "" {
		return models.AudienceBoth, nil
	}
	if !normalised.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "audience must be one of: individual, institutional, both")
	}
	return normalised, nil
}
