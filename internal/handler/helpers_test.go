package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/middleware"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
	"github.com/noah-isme/foundation-api/pkg/middleware/requestid"
)

const (
	adminID     = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	reviewerID  = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	applicantID = "cccccccc-cccc-cccc-cccc-cccccccccccc"
)

type stubValidator map[string]*models.JWTClaims

func (v stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var testTokens = stubValidator{
	"admin-token":     {UserID: adminID, Role: models.RoleAdmin, Email: "admin@example.org"},
	"reviewer-token":  {UserID: reviewerID, Role: models.RoleReviewer},
	"applicant-token": {UserID: applicantID, Role: models.RoleBeneficiary},
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

// newTestRouter mounts the full route table; handlers left nil get an empty
// instance so unrelated routes still register.
func newTestRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if h.Auth == nil {
		h.Auth = NewAuthHandler(nil)
	}
	if h.Applications == nil {
		h.Applications = NewApplicationHandler(nil)
	}
	if h.Beneficiaries == nil {
		h.Beneficiaries = NewBeneficiaryHandler(nil)
	}
	if h.Documents == nil {
		h.Documents = NewDocumentHandler(nil)
	}
	if h.Eligibility == nil {
		h.Eligibility = NewEligibilityHandler(nil)
	}
	if h.Exports == nil {
		h.Exports = NewExportHandler(nil)
	}
	if h.Invitations == nil {
		h.Invitations = NewInvitationHandler(nil)
	}
	if h.Meetings == nil {
		h.Meetings = NewMeetingHandler(nil)
	}
	if h.Metrics == nil {
		h.Metrics = NewMetricsHandler(nil, nil)
	}
	if h.Notifications == nil {
		h.Notifications = NewNotificationHandler(nil)
	}
	if h.SupportConfigs == nil {
		h.SupportConfigs = NewSupportConfigHandler(nil)
	}
	if h.Users == nil {
		h.Users = NewUserHandler(nil)
	}
	if h.Webhooks == nil {
		h.Webhooks = NewWebhookHandler(nil)
	}

	r := gin.New()
	r.Use(requestid.Middleware())
	RegisterRoutes(r, "/api/v1", h, middleware.JWT(testTokens))
	return r
}

func doRequest(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
