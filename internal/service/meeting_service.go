package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

// Meeting roles.
const (
	MeetingRoleHost        = "host"
	MeetingRoleParticipant = "participant"
	MeetingRoleViewer      = "viewer"
)

// VideoGrant is the LiveKit room permission set carried in an access token.
type VideoGrant struct {
	RoomJoin     bool   `json:"roomJoin"`
	Room         string `json:"room"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
	RoomAdmin    bool   `json:"roomAdmin,omitempty"`
}

// MeetingClaims is the LiveKit access token payload.
type MeetingClaims struct {
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

// MeetingConfig holds LiveKit credentials.
type MeetingConfig struct {
	APIKey    string
	APISecret string
	URL       string
	TokenTTL  time.Duration
}

// MeetingService mints video room access tokens. Media never passes through this API.
type MeetingService struct {
	cfg       MeetingConfig
	validator *validator.Validate
	now       func() time.Time
}

// NewMeetingService constructs the service.
func NewMeetingService(cfg MeetingConfig, validate *validator.Validate) *MeetingService {
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 2 * time.Hour
	}
	return &MeetingService{cfg: cfg, validator: validate, now: time.Now}
}

// IssueToken signs a room token for the acting user. Hosting a room is
// reserved for staff.
func (s *MeetingService) IssueToken(ctx context.Context, req dto.MeetingTokenRequest, actor models.Actor) (*dto.MeetingTokenResponse, error) {
	if actor.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid meeting token request")
	}
	if s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		return nil, appErrors.Clone(appErrors.ErrInternal, "video meetings are not configured")
	}
	role := req.Role
	if role == "" {
		role = MeetingRoleParticipant
	}
	if role == MeetingRoleHost && !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can host meetings")
	}

	issuedAt := s.now().UTC()
	claims := &MeetingClaims{
		Name: req.UserName,
		Video: &VideoGrant{
			RoomJoin:     true,
			Room:         req.RoomName,
			CanPublish:   role != MeetingRoleViewer,
			CanSubscribe: true,
			RoomAdmin:    role == MeetingRoleHost,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.APIKey,
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.cfg.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.APISecret))
	if err != nil {
		return nil, internalError(err, "failed to sign meeting token")
	}
	return &dto.MeetingTokenResponse{Token: signed, URL: s.cfg.URL}, nil
}
