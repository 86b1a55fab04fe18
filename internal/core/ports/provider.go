package ports

import (
	"context"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
)

// RoomOptions fixes the media and recording policy applied when a remote
// session is created. Every room this core creates uses the same policy,
// so options are set once from config.
type RoomOptions struct {
	MediaMode     string
	RecordingMode string
	OutputMode    string
	Resolution    string
	FrameRate     int
}

// TokenRequest asks a provider for a connection credential into a room.
type TokenRequest struct {
	RoomID      string
	UserID      domain.UserID
	Role        domain.ParticipantRole
	DisplayName string
	Metadata    map[string]string
	TTL         time.Duration
}

// ProviderAdapter is the capability contract every video platform adapter
// implements. Exactly one adapter is active per deployment; the choice is
// made at startup and never changes at runtime.
type ProviderAdapter interface {
	Name() string

	// IsHealthy is a cheap reachability probe against the platform.
	IsHealthy(ctx context.Context) bool

	// StartSession creates the remote session (room) if it does not exist
	// and returns it either way. Must be safe to call repeatedly for the
	// same id.
	StartSession(ctx context.Context, roomID string, opts RoomOptions) (*domain.RemoteRoom, error)

	// GetSession fetches an existing remote session; domain.ErrRoomNotFound
	// when absent.
	GetSession(ctx context.Context, roomID string) (*domain.RemoteRoom, error)

	// EndSession closes the remote session and disconnects everyone in it.
	EndSession(ctx context.Context, roomID string) error

	// GenerateToken issues a connection credential for one participant.
	// Clinicians connect as publishers, patients as subscribers.
	GenerateToken(ctx context.Context, req TokenRequest) (*domain.MeetingCredential, error)

	StartRecording(ctx context.Context, roomID string) (*domain.Recording, error)
	StopRecording(ctx context.Context, recordingID string) (*domain.Recording, error)
	ListRecordings(ctx context.Context, roomID string) ([]*domain.Recording, error)

	GetParticipants(ctx context.Context, roomID string) ([]*domain.RemoteParticipant, error)
	KickParticipant(ctx context.Context, roomID, connectionID string) error
}

// AdvancedRecording is an optional adapter capability. Callers probe for
// it with an interface assertion instead of assuming every platform can
// fetch or delete individual recordings.
type AdvancedRecording interface {
	GetRecording(ctx context.Context, recordingID string) (*domain.Recording, error)
	DeleteRecording(ctx context.Context, recordingID string) error
}
