package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type meetingService interface {
	IssueToken(ctx context.Context, req dto.MeetingTokenRequest, actor models.Actor) (*dto.MeetingTokenResponse, error)
}

// MeetingHandler issues video room tokens.
type MeetingHandler struct {
	service meetingService
}

// NewMeetingHandler constructs the handler.
func NewMeetingHandler(svc meetingService) *MeetingHandler {
	return &MeetingHandler{service: svc}
}

// Token godoc
// @Summary Video room token
// @Description Issue a LiveKit access token for the authenticated user
// @Tags Meetings
// @Accept json
// @Produce json
// @Param payload body dto.MeetingTokenRequest true "Room"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /api/livekit/token [post]
func (h *MeetingHandler) Token(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MeetingTokenRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.IssueToken(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
