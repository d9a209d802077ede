package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/internal/service"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type exportService interface {
	ExportApplications(ctx context.Context, format string, filter models.ApplicationFilter, actor models.Actor) (*service.ExportFile, error)
	ExportBeneficiaries(ctx context.Context, format string, filter models.BeneficiaryFilter, actor models.Actor) (*service.ExportFile, error)
}

// ExportHandler streams CSV and PDF exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Applications godoc
// @Summary Export applications
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Status filter"
// @Param support_type query string false "Support type filter"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/applications [get]
func (h *ExportHandler) Applications(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ApplicationFilter{
		Status:      models.ApplicationStatus(c.Query("status")),
		SupportType: c.Query("support_type"),
	}
	file, err := h.service.ExportApplications(c.Request.Context(), c.Query("format"), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, file)
}

// Beneficiaries godoc
// @Summary Export beneficiaries
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Status filter"
// @Param support_type query string false "Support type filter"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/beneficiaries [get]
func (h *ExportHandler) Beneficiaries(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.BeneficiaryFilter{
		Status:      models.BeneficiaryStatus(c.Query("status")),
		SupportType: c.Query("support_type"),
	}
	file, err := h.service.ExportBeneficiaries(c.Request.Context(), c.Query("format"), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, file)
}

func writeExport(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("X-Export-Rows", strconv.Itoa(file.Rows))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
