package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/internal/service"
)

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	r := newTestRouter(Handlers{})

	w := doRequest(r, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := doRequest(r, http.MethodGet, "/api/v1/auth/me", "unknown", nil)
	assert.Equal(t, http.StatusUnauthorized, req.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, req).Error.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/auth/me", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var claims models.JWTClaims
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &claims))
	assert.Equal(t, adminID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestRoleGatedRoutesRejectInsufficientRoles(t *testing.T) {
	r := newTestRouter(Handlers{})

	cases := []struct {
		method, path, token string
	}{
		{http.MethodGet, "/api/v1/users", "applicant-token"},
		{http.MethodGet, "/api/v1/users", "reviewer-token"},
		{http.MethodPost, "/api/v1/notifications/bulk-send", "reviewer-token"},
		{http.MethodPost, "/api/v1/invitations", "applicant-token"},
		{http.MethodGet, "/api/v1/exports/applications", "applicant-token"},
		{http.MethodPost, "/api/v1/applications/x/status", "applicant-token"},
		{http.MethodPost, "/api/v1/support-configs", "reviewer-token"},
		{http.MethodGet, "/api/v1/ops/stats", "reviewer-token"},
	}
	for _, tc := range cases {
		w := doRequest(r, tc.method, tc.path, tc.token, `{}`)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s as %s", tc.method, tc.path, tc.token)
	}
}

func TestOpsProbes(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	r := newTestRouter(Handlers{Metrics: NewMetricsHandler(nil, map[string]Pinger{"database": healthy})})
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(r, http.MethodGet, "/metrics", "", nil).Code)

	r = newTestRouter(Handlers{Metrics: NewMetricsHandler(nil, map[string]Pinger{"database": healthy, "cache": down})})
	w := doRequest(r, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "connection refused", body.Checks["cache"])
}

func TestOpsStatsReportsSnapshot(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 0)
	r := newTestRouter(Handlers{Metrics: NewMetricsHandler(metrics, nil)})

	w := doRequest(r, http.MethodGet, "/api/v1/ops/stats", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap service.MetricsSnapshot
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &snap))
	assert.EqualValues(t, 1, snap.RequestsTotal)
	assert.Positive(t, snap.Goroutines)
}
