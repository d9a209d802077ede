package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
)

type stubMeetingService struct {
	req   dto.MeetingTokenRequest
	actor models.Actor
}

func (s *stubMeetingService) IssueToken(ctx context.Context, req dto.MeetingTokenRequest, actor models.Actor) (*dto.MeetingTokenResponse, error) {
	s.req = req
	s.actor = actor
	return &dto.MeetingTokenResponse{Token: "jwt", URL: "wss://meet.example.org"}, nil
}

func TestMeetingTokenRoute(t *testing.T) {
	svc := &stubMeetingService{}
	r := newTestRouter(Handlers{Meetings: NewMeetingHandler(svc)})

	body := `{"roomName":"interview-42","userName":"Ada","role":"participant"}`
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodPost, "/api/livekit/token", "", body).Code)

	w := doRequest(r, http.MethodPost, "/api/livekit/token", "applicant-token", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.MeetingTokenRequest{RoomName: "interview-42", UserName: "Ada", Role: "participant"}, svc.req)
	assert.Equal(t, applicantID, svc.actor.UserID)
	assert.Contains(t, w.Body.String(), `"url":"wss://meet.example.org"`)
}
