package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type beneficiaryService interface {
	List(ctx context.Context, filter models.BeneficiaryFilter, actor models.Actor) ([]models.Beneficiary, *models.Pagination, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.Beneficiary, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateBeneficiaryStatusRequest, actor models.Actor) (*models.Beneficiary, error)
	RecordSession(ctx context.Context, beneficiaryID string, req dto.RecordSessionRequest, actor models.Actor) (*models.AcademicSession, error)
	ListSessions(ctx context.Context, beneficiaryID string, actor models.Actor) ([]models.AcademicSession, error)
	EvaluateRenewal(ctx context.Context, sessionID string, actor models.Actor) (*models.RenewalResult, error)
}

// BeneficiaryHandler exposes beneficiaries and their academic sessions.
type BeneficiaryHandler struct {
	service beneficiaryService
}

// NewBeneficiaryHandler constructs the handler.
func NewBeneficiaryHandler(svc beneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{service: svc}
}

// List godoc
// @Summary List beneficiaries
// @Tags Beneficiaries
// @Produce json
// @Param status query string false "Status filter"
// @Param support_type query string false "Support type filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /beneficiaries [get]
func (h *BeneficiaryHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.BeneficiaryFilter{
		Status:      models.BeneficiaryStatus(c.Query("status")),
		SupportType: c.Query("support_type"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get beneficiary
// @Tags Beneficiaries
// @Produce json
// @Param id path string true "Beneficiary ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /beneficiaries/{id} [get]
func (h *BeneficiaryHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	b, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b, nil)
}

// UpdateStatus godoc
// @Summary Change beneficiary status
// @Tags Beneficiaries
// @Accept json
// @Produce json
// @Param id path string true "Beneficiary ID"
// @Param payload body dto.UpdateBeneficiaryStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /beneficiaries/{id}/status [post]
func (h *BeneficiaryHandler) UpdateStatus(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateBeneficiaryStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	b, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b, nil)
}

// RecordSession godoc
// @Summary Record academic session
// @Tags Beneficiaries
// @Accept json
// @Produce json
// @Param id path string true "Beneficiary ID"
// @Param payload body dto.RecordSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Router /beneficiaries/{id}/sessions [post]
func (h *BeneficiaryHandler) RecordSession(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RecordSessionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.service.RecordSession(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// ListSessions godoc
// @Summary List academic sessions
// @Tags Beneficiaries
// @Produce json
// @Param id path string true "Beneficiary ID"
// @Success 200 {object} response.Envelope
// @Router /beneficiaries/{id}/sessions [get]
func (h *BeneficiaryHandler) ListSessions(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := h.service.ListSessions(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// EvaluateRenewal godoc
// @Summary Evaluate renewal
// @Description Check a session against the support type's performance requirements
// @Tags Beneficiaries
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{sessionId}/renewal [get]
func (h *BeneficiaryHandler) EvaluateRenewal(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.EvaluateRenewal(c.Request.Context(), c.Param("sessionId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
