package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type invitationService interface {
	ListPending(ctx context.Context, actor models.Actor) ([]models.Invitation, error)
	Invite(ctx context.Context, req dto.InviteUserRequest, actor models.Actor) (*models.Invitation, error)
	Resend(ctx context.Context, id string, actor models.Actor) (*models.Invitation, error)
	Revoke(ctx context.Context, id string, actor models.Actor) (*models.Invitation, error)
}

// InvitationHandler manages user invitations.
type InvitationHandler struct {
	service invitationService
}

// NewInvitationHandler constructs the handler.
func NewInvitationHandler(svc invitationService) *InvitationHandler {
	return &InvitationHandler{service: svc}
}

// ListPending godoc
// @Summary List pending invitations
// @Tags Invitations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /invitations [get]
func (h *InvitationHandler) ListPending(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	invitations, err := h.service.ListPending(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitations, nil)
}

// Invite godoc
// @Summary Invite user
// @Description Create a placeholder account and email an invitation
// @Tags Invitations
// @Accept json
// @Produce json
// @Param payload body dto.InviteUserRequest true "Invitation"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /invitations [post]
func (h *InvitationHandler) Invite(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.InviteUserRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	invitation, err := h.service.Invite(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invitation)
}

// Resend godoc
// @Summary Resend invitation
// @Tags Invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 200 {object} response.Envelope
// @Router /invitations/{id}/resend [post]
func (h *InvitationHandler) Resend(c *gin.Context) {
	h.act(c, h.service.Resend)
}

// Revoke godoc
// @Summary Revoke invitation
// @Tags Invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 200 {object} response.Envelope
// @Router /invitations/{id}/revoke [post]
func (h *InvitationHandler) Revoke(c *gin.Context) {
	h.act(c, h.service.Revoke)
}

func (h *InvitationHandler) act(c *gin.Context, fn func(context.Context, string, models.Actor) (*models.Invitation, error)) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	invitation, err := fn(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitation, nil)
}
