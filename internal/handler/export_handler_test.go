package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/internal/service"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type stubExportService struct {
	format string
	filter models.ApplicationFilter
}

func (s *stubExportService) ExportApplications(ctx context.Context, format string, filter models.ApplicationFilter, actor models.Actor) (*service.ExportFile, error) {
	s.format = format
	s.filter = filter
	return &service.ExportFile{Filename: "applications_20260301_083000.csv", ContentType: "text/csv", Data: []byte("id\n1\n"), Rows: 1}, nil
}

func (s *stubExportService) ExportBeneficiaries(ctx context.Context, format string, filter models.BeneficiaryFilter, actor models.Actor) (*service.ExportFile, error) {
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+format)
}

func TestExportApplicationsStreamsAttachment(t *testing.T) {
	svc := &stubExportService{}
	r := newTestRouter(Handlers{Exports: NewExportHandler(svc)})

	w := doRequest(r, http.MethodGet, "/api/v1/exports/applications?format=csv&status=approved", "reviewer-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="applications_20260301_083000.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", w.Header().Get("X-Export-Rows"))
	assert.Equal(t, "id\n1\n", w.Body.String())
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, models.ApplicationApproved, svc.filter.Status)
}

func TestExportBeneficiariesSurfacesErrors(t *testing.T) {
	r := newTestRouter(Handlers{Exports: NewExportHandler(&stubExportService{})})
	w := doRequest(r, http.MethodGet, "/api/v1/exports/beneficiaries?format=xlsx", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)
}
