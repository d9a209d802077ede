package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/response"
	"github.com/noah-isme/foundation-api/pkg/storage"
)

type documentService interface {
	RequestUploadURL(ctx context.Context, req dto.UploadURLRequest, actor models.Actor) (*dto.UploadURLResponse, error)
	Upload(ctx context.Context, storageID, token string, body io.Reader) (*dto.UploadResult, error)
	Register(ctx context.Context, req dto.RegisterDocumentRequest, actor models.Actor) (*models.Document, error)
	DownloadURL(ctx context.Context, id string, actor models.Actor) (*dto.DownloadURLResponse, error)
	OpenDownload(ctx context.Context, storageID, token string) (*storage.Object, io.ReadSeekCloser, error)
	Review(ctx context.Context, id string, req dto.ReviewDocumentRequest, actor models.Actor) (*models.Document, error)
	BulkReview(ctx context.Context, req dto.BulkReviewDocumentsRequest, actor models.Actor) ([]dto.BulkItemResult, error)
}

// DocumentHandler exposes document metadata and the signed file endpoints.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// RequestUploadURL godoc
// @Summary Request upload URL
// @Description Allocate a storage ID and a single-use signed upload URL
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.UploadURLRequest true "File description"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/upload-url [post]
func (h *DocumentHandler) RequestUploadURL(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UploadURLRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.RequestUploadURL(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Upload godoc
// @Summary Upload file
// @Description Stream the raw file body to a signed upload URL
// @Tags Files
// @Accept octet-stream
// @Produce json
// @Param storageId path string true "Storage ID"
// @Param token query string true "Upload token"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /files/{storageId} [put]
func (h *DocumentHandler) Upload(c *gin.Context) {
	result, err := h.service.Upload(c.Request.Context(), c.Param("storageId"), c.Query("token"), c.Request.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Register godoc
// @Summary Register document
// @Description Attach an uploaded file to an application or beneficiary
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.RegisterDocumentRequest true "Document"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Register(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RegisterDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Register(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// DownloadURL godoc
// @Summary Document download URL
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/download-url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Download godoc
// @Summary Download file
// @Tags Files
// @Produce octet-stream
// @Param storageId path string true "Storage ID"
// @Param token query string true "Download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /files/{storageId}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	obj, file, err := h.service.OpenDownload(c.Request.Context(), c.Param("storageId"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", obj.MIMEType)
	c.Header("Cache-Control", "private, no-store")
	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, obj.StorageID, obj.ModTime, file)
}

// Review godoc
// @Summary Review document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.ReviewDocumentRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/review [post]
func (h *DocumentHandler) Review(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReviewDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Review(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// BulkReview godoc
// @Summary Bulk review documents
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.BulkReviewDocumentsRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Router /documents/bulk-review [post]
func (h *DocumentHandler) BulkReview(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BulkReviewDocumentsRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	results, err := h.service.BulkReview(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	succeeded, failed := dto.CountResults(results)
	response.Bulk(c, results, succeeded, failed)
}
