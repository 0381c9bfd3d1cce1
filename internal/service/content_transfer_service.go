package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/homepage-content-api/internal/dto"
	"github.com/noah-isme/homepage-content-api/internal/models"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
	"github.com/noah-isme/homepage-content-api/pkg/export"
)

var exportHeaders = []string{"section", "audience", "key", "value", "status", "metadata", "updated_at"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TransferConfig tunes export and import behaviour.
type TransferConfig struct {
	MaxImportItems int
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ContentTransferService exports a tenant's content and imports documents
// through the regular edit path.
type ContentTransferService struct {
	content *ContentService
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     TransferConfig
}

// NewContentTransferService constructs a ContentTransferService.
func NewContentTransferService(content *ContentService, cfg TransferConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ContentTransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxImportItems <= 0 {
		cfg.MaxImportItems = 1000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ContentTransferService{content: content, csv: csv, pdf: pdf, logger: logger, cfg: cfg}
}

// Export renders every non-archived entry of the tenant in the given format.
func (s *ContentTransferService) Export(ctx context.Context, actor models.Actor, format export.Format) (*ExportFile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	entries, err := s.content.entries.ListAll(ctx, models.ContentFilter{TenantID: actor.TenantID, Statuses: previewStatuses})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load content for export")
	}

	now := s.content.now()
	filename := fmt.Sprintf("homepage-content-%s.%s", now.Format("20060102-150405"), format)
	var data []byte
	switch format {
	case export.FormatJSON:
		data, err = json.MarshalIndent(toDocument(actor.TenantID, entries, now), "", "  ")
	case export.FormatYAML:
		data, err = yaml.Marshal(toDocument(actor.TenantID, entries, now))
	case export.FormatCSV:
		data, err = s.csv.Render(toDataset(entries))
	case export.FormatPDF:
		data, err = s.pdf.Render(toDataset(entries), "Homepage Content")
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to render export")
	}

	s.content.emitAuditEvent(ctx, actor, models.AuditActionContentExport, map[string]interface{}{
		"format": format,
		"items":  len(entries),
	})
	s.logger.Info("content exported",
		zap.String("tenant_id", actor.TenantID),
		zap.String("format", string(format)),
		zap.Int("items", len(entries)),
	)
	return &ExportFile{Filename: filename, ContentType: format.ContentType(), Data: data}, nil
}

// Import decodes a JSON or YAML document and applies its items with bulk
// update semantics.
func (s *ContentTransferService) Import(ctx context.Context, actor models.Actor, format export.Format, payload []byte) (*dto.ImportResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import document is empty")
	}

	var doc dto.ContentDocument
	switch format {
	case export.FormatJSON:
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid JSON document")
		}
	case export.FormatYAML:
		if err := yaml.Unmarshal(payload, &doc); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation, "invalid YAML document")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported import format %q", format))
	}
	if len(doc.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import document has no items")
	}
	if len(doc.Items) > s.cfg.MaxImportItems {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d items per import", s.cfg.MaxImportItems))
	}

	for i := range doc.Items {
		if doc.Items[i].ChangeNotes == nil {
			notes := "Imported"
			doc.Items[i].ChangeNotes = &notes
		}
	}
	applied := s.content.applyAll(ctx, actor, doc.Items, models.AuditActionContentImport)
	if len(applied.Updated) > 0 {
		s.content.invalidate(ctx, actor.TenantID)
	}
	s.logger.Info("content imported",
		zap.String("tenant_id", actor.TenantID),
		zap.Int("imported", len(applied.Updated)),
		zap.Int("failed", len(applied.Failed)),
	)
	return &dto.ImportResult{ImportedCount: len(applied.Updated), Failed: applied.Failed}, nil
}

// ImportFormat picks the document format from an explicit query value or the
// request content type.
func ImportFormat(explicit, contentType string) (export.Format, error) {
	if strings.TrimSpace(explicit) != "" {
		format, err := export.ParseFormat(explicit)
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrUnsupportedFormat, err.Error())
		}
		return format, nil
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") || strings.Contains(ct, "yml") {
		return export.FormatYAML, nil
	}
	return export.FormatJSON, nil
}

func toDocument(tenantID string, entries []models.ContentEntry, at time.Time) dto.ContentDocument {
	items := make([]dto.UpdateContentRequest, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.UpdateContentRequest{
			Section:  entry.Section,
			Key:      entry.Key,
			Value:    entry.Value,
			Audience: entry.Audience,
			Metadata: entry.Metadata,
		})
	}
	return dto.ContentDocument{Tenant: tenantID, ExportedAt: &at, Items: items}
}

func toDataset(entries []models.ContentEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		metadata := ""
		if len(entry.Metadata) > 0 {
			raw, _ := json.Marshal(entry.Metadata)
			metadata = string(raw)
		}
		rows = append(rows, map[string]string{
			"section":    entry.Section,
			"audience":   string(entry.Audience),
			"key":        entry.Key,
			"value":      entry.Value,
			"status":     string(entry.Status),
			"metadata":   metadata,
			"updated_at": entry.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
