package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
	"github.com/noah-isme/foundation-api/pkg/response"
)

const maxWebhookBody = 512 << 10

type webhookService interface {
	Handle(ctx context.Context, payload []byte, headers http.Header) (string, error)
}

// WebhookHandler receives identity-provider deliveries.
type WebhookHandler struct {
	service webhookService
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(svc webhookService) *WebhookHandler {
	return &WebhookHandler{service: svc}
}

// Clerk godoc
// @Summary Identity-provider webhook
// @Description Svix-signed user.created, user.updated and user.deleted events. Other event types are acknowledged and ignored.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param svix-id header string true "Delivery ID"
// @Param svix-timestamp header string true "Delivery timestamp"
// @Param svix-signature header string true "Delivery signature"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /clerk-webhook [post]
func (h *WebhookHandler) Clerk(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "webhook body could not be read"))
		return
	}
	outcome, err := h.service.Handle(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome}, nil)
}
