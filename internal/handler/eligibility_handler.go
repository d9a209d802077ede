package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type eligibilityService interface {
	Resolve(ctx context.Context, req dto.ResolveEligibilityRequest) (*models.EligibilityResult, error)
}

// EligibilityHandler answers eligibility and amount questions.
type EligibilityHandler struct {
	service eligibilityService
}

// NewEligibilityHandler constructs the handler.
func NewEligibilityHandler(svc eligibilityService) *EligibilityHandler {
	return &EligibilityHandler{service: svc}
}

// Resolve godoc
// @Summary Resolve eligibility
// @Description Evaluate eligibility and the support amount for a prospective beneficiary
// @Tags Eligibility
// @Accept json
// @Produce json
// @Param payload body dto.ResolveEligibilityRequest true "Subject"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /eligibility/resolve [post]
func (h *EligibilityHandler) Resolve(c *gin.Context) {
	var req dto.ResolveEligibilityRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Resolve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
