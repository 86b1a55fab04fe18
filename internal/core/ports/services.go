package ports

import (
	"context"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
)

// HealthChecker probes a provider and classifies the outcome. A single
// call performs its own bounded retries; it never caches.
type HealthChecker interface {
	CheckHealth(ctx context.Context, provider string) domain.ProviderHealth
}

// EventBus is the enterprise bus used for cross-cutting audit/analytics
// and for transport-level connect/disconnect signals.
type EventBus interface {
	Emit(ctx context.Context, event *domain.ConsultationEvent) error
	// Subscribe blocks delivering events to handler until ctx is done.
	Subscribe(ctx context.Context, handler func(*domain.ConsultationEvent)) error
}

// RoomBroadcaster pushes low-latency updates to everyone watching a
// consultation room. Best effort; delivery is not acknowledged.
type RoomBroadcaster interface {
	SendToRoom(roomKey string, eventName string, payload interface{})
}

// JobQueue hands work to background workers. Used only for fire-and-forget
// post-call recording processing.
type JobQueue interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) error
}

// CredentialRequest is the orchestrator-level token request, keyed by
// appointment rather than room.
type CredentialRequest struct {
	AppointmentID domain.AppointmentID
	UserID        domain.UserID
	Role          domain.ParticipantRole
	DisplayName   string
}

// SessionOrchestrator owns the VideoSession lifecycle and all provider
// interaction on behalf of callers.
type SessionOrchestrator interface {
	GetProvider(ctx context.Context) (ProviderAdapter, error)
	GenerateToken(ctx context.Context, req CredentialRequest) (*domain.MeetingCredential, error)
	StartConsultation(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error)
	EndConsultation(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error)
	CancelConsultation(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error)
	// GetConsultationSession is advisory: it returns nil instead of an
	// error when the session cannot be resolved.
	GetConsultationSession(ctx context.Context, id domain.AppointmentID) *domain.VideoSession
	ReportTechnicalIssue(ctx context.Context, id domain.AppointmentID, userID domain.UserID, kind, detail string) error

	StartRecording(ctx context.Context, id domain.AppointmentID) (*domain.Recording, error)
	ListRecordings(ctx context.Context, id domain.AppointmentID) ([]*domain.Recording, error)
	GetParticipants(ctx context.Context, id domain.AppointmentID) ([]*domain.RemoteParticipant, error)
	KickParticipant(ctx context.Context, id domain.AppointmentID, connectionID string) error
}

// StateTracker maintains the live ConsultationMetrics view.
type StateTracker interface {
	InitializeTracking(ctx context.Context, id domain.AppointmentID, patient, doctor domain.UserID) error
	TrackParticipantJoined(ctx context.Context, id domain.AppointmentID, userID domain.UserID, role domain.ParticipantRole) error
	TrackParticipantLeft(ctx context.Context, id domain.AppointmentID, userID domain.UserID) error
	TrackTechnicalIssue(ctx context.Context, id domain.AppointmentID, userID domain.UserID, kind domain.IssueKind, detail string) error
	UpdateConnectionQuality(ctx context.Context, id domain.AppointmentID, userID domain.UserID, quality domain.ConnectionQuality) error
	TrackRecordingStatus(ctx context.Context, id domain.AppointmentID, active bool) error
	GetMetrics(ctx context.Context, id domain.AppointmentID) (*domain.ConsultationMetrics, error)
	EndTracking(ctx context.Context, id domain.AppointmentID) error
}
