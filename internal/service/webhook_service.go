package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

// Svix delivery headers required on every identity-provider webhook.
const (
	HeaderSvixID        = "svix-id"
	HeaderSvixTimestamp = "svix-timestamp"
	HeaderSvixSignature = "svix-signature"
)

// Webhook outcomes reported to metrics and callers.
const (
	WebhookProcessed = "processed"
	WebhookIgnored   = "ignored"
	WebhookConflict  = "conflict"
	WebhookRejected  = "rejected"
	WebhookFailed    = "failed"
)

type payloadVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

type identityAcceptor interface {
	AcceptFromIdentityEvent(ctx context.Context, cu dto.ClerkUser) (*models.User, bool, error)
}

type identitySyncer interface {
	SyncFromIdentityEvent(ctx context.Context, cu dto.ClerkUser) error
	DeactivateFromIdentityEvent(ctx context.Context, clerkID string) error
}

// WebhookService verifies and dispatches identity-provider user events.
type WebhookService struct {
	verifier    payloadVerifier
	invitations identityAcceptor
	users       identitySyncer
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewWebhookService builds the service. An empty signing secret leaves
// verification unconfigured and every delivery fails with 500.
func NewWebhookService(signingSecret string, invitations identityAcceptor, users identitySyncer, metrics *MetricsService, logger *zap.Logger) (*WebhookService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WebhookService{invitations: invitations, users: users, metrics: metrics, logger: logger}
	if signingSecret != "" {
		wh, err := svix.NewWebhook(signingSecret)
		if err != nil {
			return nil, err
		}
		svc.verifier = wh
	}
	return svc, nil
}

// Handle verifies the delivery and applies the event. It returns the outcome
// on success; internal failures return an error so the sender retries.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, headers http.Header) (string, error) {
	event, err := s.verify(payload, headers)
	if err != nil {
		s.metrics.RecordWebhookEvent("unknown", WebhookRejected)
		return WebhookRejected, err
	}

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		if appErrors.IsConflict(err) {
			s.logger.Warn("identity event conflicts with stored state", zap.String("type", event.Type), zap.Error(err))
			outcome, err = WebhookConflict, nil
		} else if appErrors.IsValidation(err) {
			outcome = WebhookRejected
		} else {
			s.logger.Error("identity event failed", zap.String("type", event.Type), zap.Error(err))
			outcome = WebhookFailed
		}
	}
	s.metrics.RecordWebhookEvent(event.Type, outcome)
	return outcome, err
}

func (s *WebhookService) verify(payload []byte, headers http.Header) (*dto.ClerkEvent, error) {
	for _, h := range []string{HeaderSvixID, HeaderSvixTimestamp, HeaderSvixSignature} {
		if headers.Get(h) == "" {
			return nil, appErrors.Clone(appErrors.ErrInvalidSignature, "missing "+h+" header")
		}
	}
	if s.verifier == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "webhook verification is not configured")
	}
	if err := s.verifier.Verify(payload, headers); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidSignature.Code, appErrors.ErrInvalidSignature.Status, "webhook signature verification failed")
	}

	var event dto.ClerkEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, validationError(err, "webhook payload is not a valid event")
	}
	if event.Type == "" || !isJSONObject(event.Data) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "webhook event requires a type and an object payload")
	}
	return &event, nil
}

func (s *WebhookService) dispatch(ctx context.Context, event *dto.ClerkEvent) (string, error) {
	switch event.Type {
	case dto.ClerkUserCreated, dto.ClerkUserUpdated, dto.ClerkUserDeleted:
	default:
		s.logger.Info("identity event ignored", zap.String("type", event.Type))
		return WebhookIgnored, nil
	}

	var user dto.ClerkUser
	if err := json.Unmarshal(event.Data, &user); err != nil {
		return "", validationError(err, "webhook user payload is malformed")
	}
	if user.ID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "webhook user payload has no id")
	}

	switch event.Type {
	case dto.ClerkUserCreated:
		if _, _, err := s.invitations.AcceptFromIdentityEvent(ctx, user); err != nil {
			return "", err
		}
	case dto.ClerkUserUpdated:
		if err := s.users.SyncFromIdentityEvent(ctx, user); err != nil {
			return "", err
		}
	case dto.ClerkUserDeleted:
		if err := s.users.DeactivateFromIdentityEvent(ctx, user.ID); err != nil {
			return "", err
		}
	}
	return WebhookProcessed, nil
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
