package domain

import "time"

// ErrorKind sub-classifies provider failures for diagnostics. A
// ConnectionError points at network or deployment problems, a ServerError
// at the platform itself. Callers see the same behavior either way.
type ErrorKind string

const (
	ErrorKindConnection ErrorKind = "connection_error"
	ErrorKindServer     ErrorKind = "server_error"
)

// ProviderHealth is the ephemeral result of one health check. It is never
// persisted; callers may cache it briefly to avoid probing storms.
type ProviderHealth struct {
	Provider      string
	IsUp          bool
	LastCheckedAt time.Time
	LastError     ErrorKind
}

// MeetingCredential grants one participant short-lived access to a remote
// room.
type MeetingCredential struct {
	Token      string    `json:"token"`
	RoomID     string    `json:"room_id"`
	RoomName   string    `json:"room_name"`
	MeetingURL string    `json:"meeting_url,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RemoteRoom is the provider-side conferencing resource.
type RemoteRoom struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// RecordingStatus mirrors the provider's recording lifecycle.
type RecordingStatus string

const (
	RecordingStarted  RecordingStatus = "started"
	RecordingStopped  RecordingStatus = "stopped"
	RecordingReady    RecordingStatus = "ready"
	RecordingFailed   RecordingStatus = "failed"
)

// Recording describes one provider-side recording artifact.
type Recording struct {
	ID              string          `json:"id"`
	RoomID          string          `json:"room_id"`
	Status          RecordingStatus `json:"status"`
	URL             string          `json:"url,omitempty"`
	SizeBytes       int64           `json:"size_bytes,omitempty"`
	DurationSeconds float64         `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RemoteParticipant is one connection in a remote room as reported by the
// provider.
type RemoteParticipant struct {
	ConnectionID string     `json:"connection_id"`
	UserID       UserID     `json:"user_id,omitempty"`
	Role         string     `json:"role,omitempty"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"`
}
