package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
	"github.com/noah-isme/foundation-api/pkg/export"
)

const (
	exportPageSize = 100
	exportMaxRows  = 10000
)

type applicationLister interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
}

type beneficiaryLister interface {
	List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders application and beneficiary datasets as CSV or PDF.
type ExportService struct {
	applications  applicationLister
	beneficiaries beneficiaryLister
	logger        *zap.Logger
	now           func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(applications applicationLister, beneficiaries beneficiaryLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{applications: applications, beneficiaries: beneficiaries, logger: logger, now: time.Now}
}

// ExportApplications renders every application matching filter.
func (s *ExportService) ExportApplications(ctx context.Context, format string, filter models.ApplicationFilter, actor models.Actor) (*ExportFile, error) {
	if !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can export applications")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown application status "+string(filter.Status))
	}

	dataset := export.Dataset{
		Title:   "Applications",
		Headers: []string{"id", "applicant", "email", "support_type", "academic_level", "school_type", "status", "priority_score", "submitted_at"},
	}
	for page := 1; len(dataset.Rows) < exportMaxRows; page++ {
		filter.Page, filter.PageSize = page, exportPageSize
		apps, total, err := s.applications.List(ctx, filter)
		if err != nil {
			return nil, internalError(err, "failed to load applications")
		}
		for _, app := range apps {
			score := ""
			if app.PriorityScore != nil {
				score = strconv.FormatFloat(*app.PriorityScore, 'f', 2, 64)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"id":             app.ID,
				"applicant":      app.Personal.FullName,
				"email":          app.Personal.Email,
				"support_type":   app.SupportType,
				"academic_level": string(app.Education.AcademicLevel),
				"school_type":    string(app.Education.SchoolType),
				"status":         string(app.Status),
				"priority_score": score,
				"submitted_at":   app.SubmittedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(apps) < exportPageSize || page*exportPageSize >= total {
			break
		}
	}
	return s.render(format, "applications", dataset)
}

// ExportBeneficiaries renders every beneficiary matching filter.
func (s *ExportService) ExportBeneficiaries(ctx context.Context, format string, filter models.BeneficiaryFilter, actor models.Actor) (*ExportFile, error) {
	if !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can export beneficiaries")
	}

	dataset := export.Dataset{
		Title:   "Beneficiaries",
		Headers: []string{"id", "application_id", "support_type", "academic_level", "school_type", "approved_amount", "currency", "frequency", "status", "start_date"},
	}
	for page := 1; len(dataset.Rows) < exportMaxRows; page++ {
		filter.Page, filter.PageSize = page, exportPageSize
		items, total, err := s.beneficiaries.List(ctx, filter)
		if err != nil {
			return nil, internalError(err, "failed to load beneficiaries")
		}
		for _, b := range items {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"id":              b.ID,
				"application_id":  b.ApplicationID,
				"support_type":    b.SupportType,
				"academic_level":  string(b.AcademicLevel),
				"school_type":     string(b.SchoolType),
				"approved_amount": strconv.FormatInt(b.ApprovedAmount, 10),
				"currency":        b.Currency,
				"frequency":       b.Frequency,
				"status":          string(b.Status),
				"start_date":      b.StartDate.Format("2006-01-02"),
			})
		}
		if len(items) < exportPageSize || page*exportPageSize >= total {
			break
		}
	}
	return s.render(format, "beneficiaries", dataset)
}

func (s *ExportService) render(rawFormat, name string, dataset export.Dataset) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, validationError(err, err.Error())
	}
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, validationError(err, err.Error())
	}
	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	s.logger.Info("export rendered", zap.String("dataset", name), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", name, s.now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
		Rows:        len(dataset.Rows),
	}, nil
}
