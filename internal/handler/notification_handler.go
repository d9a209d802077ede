package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
)

type notificationService interface {
	BulkSend(ctx context.Context, req dto.BulkSendRequest, actor models.Actor) ([]dto.BulkItemResult, error)
	MarkDelivered(ctx context.Context, id string) error
	List(ctx context.Context, filter models.NotificationFilter, actor models.Actor) ([]models.Notification, *models.Pagination, error)
}

// NotificationHandler exposes the notification outbox to operators.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param status query string false "pending, sent, delivered or failed"
// @Param channel query string false "email or sms"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.NotificationFilter{
		Status:  models.NotificationStatus(c.Query("status")),
		Channel: models.NotificationChannel(c.Query("channel")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	rows, pagination, err := h.service.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// BulkSend godoc
// @Summary Bulk send
// @Description Queue the same message for many recipients
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.BulkSendRequest true "Message"
// @Success 200 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Router /notifications/bulk-send [post]
func (h *NotificationHandler) BulkSend(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BulkSendRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	results, err := h.service.BulkSend(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	succeeded, failed := dto.CountResults(results)
	response.Bulk(c, results, succeeded, failed)
}

// MarkDelivered godoc
// @Summary Confirm delivery
// @Description Provider or operator confirmation that a sent notification arrived
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /notifications/{id}/delivered [post]
func (h *NotificationHandler) MarkDelivered(c *gin.Context) {
	if err := h.service.MarkDelivered(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
