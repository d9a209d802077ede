package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/middleware"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type supportConfigService interface {
	Get(ctx context.Context, supportType string) (*models.SupportConfig, bool, error)
	List(ctx context.Context, includeInactive bool) ([]models.SupportConfig, error)
	Create(ctx context.Context, req dto.SupportConfigRequest, actor models.Actor) (*models.SupportConfig, error)
	Update(ctx context.Context, supportType string, req dto.SupportConfigRequest, actor models.Actor) (*models.SupportConfig, error)
	Disable(ctx context.Context, supportType string, actor models.Actor) error
	Enable(ctx context.Context, supportType string, actor models.Actor) error
}

// SupportConfigHandler manages per-support-type configuration.
type SupportConfigHandler struct {
	service supportConfigService
}

// NewSupportConfigHandler constructs the handler.
func NewSupportConfigHandler(svc supportConfigService) *SupportConfigHandler {
	return &SupportConfigHandler{service: svc}
}

// List godoc
// @Summary List support configurations
// @Tags SupportConfig
// @Produce json
// @Param include_inactive query bool false "Include disabled configurations (administrators only)"
// @Success 200 {object} response.Envelope
// @Router /support-configs [get]
func (h *SupportConfigHandler) List(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	if claims := claimsFromContext(c); claims == nil || !claims.Role.Privileged() {
		includeInactive = false
	}
	cfgs, err := h.service.List(c.Request.Context(), includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfgs, nil)
}

// Get godoc
// @Summary Get support configuration
// @Description Response meta reports whether the configuration came from cache
// @Tags SupportConfig
// @Produce json
// @Param supportType path string true "Support type"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /support-configs/{supportType} [get]
func (h *SupportConfigHandler) Get(c *gin.Context) {
	cfg, hit, err := h.service.Get(c.Request.Context(), c.Param("supportType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, cfg, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create support configuration
// @Tags SupportConfig
// @Accept json
// @Produce json
// @Param payload body dto.SupportConfigRequest true "Configuration"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /support-configs [post]
func (h *SupportConfigHandler) Create(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SupportConfigRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	cfg, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

// Update godoc
// @Summary Update support configuration
// @Description support_type in the body must be empty or match the path
// @Tags SupportConfig
// @Accept json
// @Produce json
// @Param supportType path string true "Support type"
// @Param payload body dto.SupportConfigRequest true "Configuration"
// @Success 200 {object} response.Envelope
// @Router /support-configs/{supportType} [put]
func (h *SupportConfigHandler) Update(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SupportConfigRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	cfg, err := h.service.Update(c.Request.Context(), c.Param("supportType"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Disable godoc
// @Summary Disable support configuration
// @Tags SupportConfig
// @Param supportType path string true "Support type"
// @Success 204
// @Router /support-configs/{supportType}/disable [post]
func (h *SupportConfigHandler) Disable(c *gin.Context) {
	h.toggle(c, h.service.Disable)
}

// Enable godoc
// @Summary Enable support configuration
// @Tags SupportConfig
// @Param supportType path string true "Support type"
// @Success 204
// @Router /support-configs/{supportType}/enable [post]
func (h *SupportConfigHandler) Enable(c *gin.Context) {
	h.toggle(c, h.service.Enable)
}

func (h *SupportConfigHandler) toggle(c *gin.Context, fn func(context.Context, string, models.Actor) error) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := fn(c.Request.Context(), c.Param("supportType"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
