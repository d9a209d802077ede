package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/dto"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

func parseMeetingToken(t *testing.T, token string) *MeetingClaims {
	t.Helper()
	parsed, err := jwt.ParseWithClaims(token, &MeetingClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("lk-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	return parsed.Claims.(*MeetingClaims)
}

func TestMeetingTokenGrantsByRole(t *testing.T) {
	svc := NewMeetingService(MeetingConfig{APIKey: "lk-key", APISecret: "lk-secret", URL: "wss://meet.example.org", TokenTTL: time.Hour}, nil)
	ctx := context.Background()

	host, err := svc.IssueToken(ctx, dto.MeetingTokenRequest{RoomName: "review-42", UserName: "Rita Reviewer", Role: MeetingRoleHost}, reviewerActor)
	require.NoError(t, err)
	assert.Equal(t, "wss://meet.example.org", host.URL)
	claims := parseMeetingToken(t, host.Token)
	assert.Equal(t, "lk-key", claims.Issuer)
	assert.Equal(t, reviewerActor.UserID, claims.Subject)
	assert.Equal(t, "Rita Reviewer", claims.Name)
	assert.Equal(t, &VideoGrant{RoomJoin: true, Room: "review-42", CanPublish: true, CanSubscribe: true, RoomAdmin: true}, claims.Video)

	viewer, err := svc.IssueToken(ctx, dto.MeetingTokenRequest{RoomName: "review-42", UserName: "Ada", Role: MeetingRoleViewer}, applicantActor)
	require.NoError(t, err)
	vc := parseMeetingToken(t, viewer.Token)
	assert.False(t, vc.Video.CanPublish)
	assert.False(t, vc.Video.RoomAdmin)

	participant, err := svc.IssueToken(ctx, dto.MeetingTokenRequest{RoomName: "review-42", UserName: "Ada"}, applicantActor)
	require.NoError(t, err)
	pc := parseMeetingToken(t, participant.Token)
	assert.True(t, pc.Video.CanPublish)
	assert.Equal(t, time.Hour, pc.ExpiresAt.Sub(pc.IssuedAt.Time))
}

func TestMeetingTokenRules(t *testing.T) {
	svc := NewMeetingService(MeetingConfig{APIKey: "lk-key", APISecret: "lk-secret"}, nil)
	ctx := context.Background()

	_, err := svc.IssueToken(ctx, dto.MeetingTokenRequest{RoomName: "r", UserName: "Ada", Role: MeetingRoleHost}, applicantActor)
	assert.True(t, appErrors.IsPermission(err))

	_, err = svc.IssueToken(ctx, dto.MeetingTokenRequest{UserName: "Ada"}, applicantActor)
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.IssueToken(ctx, dto.MeetingTokenRequest{RoomName: "r", UserName: "Ada", Role: "owner"}, applicantActor)
	assert.True(t, appErrors.IsValidation(err))

	unconfigured := NewMeetingService(MeetingConfig{}, nil)
	_, err = unconfigured.IssueToken(ctx, dto.MeetingTokenRequest{RoomName: "r", UserName: "Ada"}, applicantActor)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
