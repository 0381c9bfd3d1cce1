package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/homepage-content-api/internal/dto"
	"github.com/noah-isme/homepage-content-api/internal/models"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
	"github.com/noah-isme/homepage-content-api/pkg/export"
)

type pdfStub struct {
	title string
	rows  int
}

func (p *pdfStub) Render(data export.Dataset, title string) ([]byte, error) {
	p.title = title
	p.rows = len(data.Rows)
	return []byte("%PDF-stub"), nil
}

func seedTransferFixture(t *testing.T) (*contentFixture, *ContentTransferService, *pdfStub) {
	t.Helper()
	f := newContentFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpdateContent(ctx, editor, dto.UpdateContentRequest{
		Section: "hero", Key: "headline", Value: "Welcome, friends", Audience: models.AudienceBoth,
		Metadata: models.Metadata{"cta_label": "Join"},
	})
	require.NoError(t, err)
	archived, err := f.svc.UpdateContent(ctx, editor, dto.UpdateContentRequest{Section: "footer", Key: "old", Value: "gone", Audience: models.AudienceBoth})
	require.NoError(t, err)
	_, err = f.svc.ArchiveContent(ctx, reviewer, archived.ID)
	require.NoError(t, err)

	pdf := &pdfStub{}
	return f, NewContentTransferService(f.svc, TransferConfig{MaxImportItems: 2}, nil, nil, pdf), pdf
}

func TestExportFormats(t *testing.T) {
	_, svc, pdf := seedTransferFixture(t)
	ctx := context.Background()

	file, err := svc.Export(ctx, editor, export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".json"))
	var doc dto.ContentDocument
	require.NoError(t, json.Unmarshal(file.Data, &doc))
	require.Len(t, doc.Items, 1, "archived entries are not exported")
	assert.Equal(t, "Welcome, friends", doc.Items[0].Value)
	assert.Equal(t, "tenant-1", doc.Tenant)

	file, err = svc.Export(ctx, editor, export.FormatYAML)
	require.NoError(t, err)
	var yamlDoc dto.ContentDocument
	require.NoError(t, yaml.Unmarshal(file.Data, &yamlDoc))
	require.Len(t, yamlDoc.Items, 1)
	assert.Equal(t, "Join", yamlDoc.Items[0].Metadata["cta_label"])

	file, err = svc.Export(ctx, editor, export.FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "section,audience,key,value,status,metadata,updated_at")
	assert.Contains(t, string(file.Data), `"Welcome, friends"`)

	file, err = svc.Export(ctx, editor, export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "Homepage Content", pdf.title)
	assert.Equal(t, 1, pdf.rows)

	_, err = svc.Export(ctx, editor, export.Format("xlsx"))
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedFormat))
}

func TestImportAppliesItemsIndependently(t *testing.T) {
	f, svc, _ := seedTransferFixture(t)
	ctx := context.Background()

	payload := []byte(`{"items":[
		{"section":"hero","key":"headline","value":"Imported","audience":"both"},
		{"section":"hero","key":"cta","value":"Go"}
	]}`)
	result, err := svc.Import(ctx, editor, export.FormatJSON, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedCount)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)

	history, err := f.svc.GetContentHistory(ctx, editor, "content-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].ChangeNotes)
	assert.Equal(t, "Imported", *history[0].ChangeNotes)
	assert.Contains(t, f.cache.invalidated, TenantPattern("tenant-1"))
}

func TestImportYAMLAndRejections(t *testing.T) {
	_, svc, _ := seedTransferFixture(t)
	ctx := context.Background()

	yamlDoc := []byte("items:\n  - section: stats\n    key: alumni\n    value: \"10k\"\n    audience: institutional\n")
	result, err := svc.Import(ctx, editor, export.FormatYAML, yamlDoc)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedCount)
	assert.Empty(t, result.Failed)

	_, err = svc.Import(ctx, editor, export.FormatJSON, []byte("   "))
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	_, err = svc.Import(ctx, editor, export.FormatJSON, []byte("{not json"))
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	_, err = svc.Import(ctx, editor, export.FormatJSON, []byte(`{"items":[]}`))
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	_, err = svc.Import(ctx, editor, export.FormatJSON, []byte(`{"items":[{},{},{}]}`))
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	_, err = svc.Import(ctx, editor, export.FormatCSV, []byte("a,b"))
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedFormat))
}

func TestImportFormat(t *testing.T) {
	format, err := ImportFormat("", "application/x-yaml; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, export.FormatYAML, format)

	format, err = ImportFormat("", "application/json")
	require.NoError(t, err)
	assert.Equal(t, export.FormatJSON, format)

	format, err = ImportFormat("yml", "application/json")
	require.NoError(t, err)
	assert.Equal(t, export.FormatYAML, format)

	_, err = ImportFormat("docx", "")
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedFormat))
}
