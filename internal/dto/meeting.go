package dto

// MeetingTokenRequest asks for a video room access token.
type MeetingTokenRequest struct {
	RoomName string `json:"roomName" validate:"required,max=128"`
	UserName string `json:"userName" validate:"required,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=host participant viewer"`
}

// MeetingTokenResponse returns the signed token and the server URL to join.
type MeetingTokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}
