package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type applicationService interface {
	Submit(ctx context.Context, req dto.SubmitApplicationRequest, actor models.Actor) (*models.Application, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter, actor models.Actor) ([]models.Application, *models.Pagination, error)
	AssignReviewer(ctx context.Context, id string, req dto.AssignReviewerRequest, actor models.Actor) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateApplicationStatusRequest, actor models.Actor) (*models.Application, error)
	BulkUpdateStatus(ctx context.Context, req dto.BulkApplicationStatusRequest, actor models.Actor) ([]dto.BulkItemResult, error)
	CreateBeneficiaryFromApplication(ctx context.Context, id string, actor models.Actor) (*models.Beneficiary, bool, error)
	DocumentChecklist(ctx context.Context, id string, actor models.Actor) ([]models.ChecklistItem, error)
}

// ApplicationHandler exposes the application review workflow.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(svc applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// Submit godoc
// @Summary Submit application
// @Description Submit a support application for the authenticated applicant
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitApplicationRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// List godoc
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param status query string false "Status filter"
// @Param support_type query string false "Support type filter"
// @Param reviewer_id query string false "Reviewer filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ApplicationFilter{
		Status:      models.ApplicationStatus(c.Query("status")),
		SupportType: c.Query("support_type"),
		ReviewerID:  c.Query("reviewer_id"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	apps, pagination, err := h.service.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// Get godoc
// @Summary Get application
// @Description Application detail including review history
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// AssignReviewer godoc
// @Summary Assign reviewer
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.AssignReviewerRequest true "Reviewer"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/assign [post]
func (h *ApplicationHandler) AssignReviewer(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssignReviewerRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.AssignReviewer(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// UpdateStatus godoc
// @Summary Review application
// @Description Record a review decision. Reopening a decided application requires override by an administrator.
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/status [post]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateApplicationStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// BulkUpdateStatus godoc
// @Summary Bulk review applications
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.BulkApplicationStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Router /applications/bulk-status [post]
func (h *ApplicationHandler) BulkUpdateStatus(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BulkApplicationStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	results, err := h.service.BulkUpdateStatus(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	succeeded, failed := dto.CountResults(results)
	response.Bulk(c, results, succeeded, failed)
}

// CreateBeneficiary godoc
// @Summary Create beneficiary from application
// @Description Idempotent; returns 200 with created=false when the beneficiary already exists
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/beneficiary [post]
func (h *ApplicationHandler) CreateBeneficiary(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	beneficiary, created, err := h.service.CreateBeneficiaryFromApplication(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, dto.CreateBeneficiaryResponse{Beneficiary: beneficiary, Created: created}, nil)
}

// Checklist godoc
// @Summary Document checklist
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/checklist [get]
func (h *ApplicationHandler) Checklist(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.DocumentChecklist(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
