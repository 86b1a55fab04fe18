package domain

import "time"

// SessionStatus is the lifecycle state of a local VideoSession record.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionEnded     SessionStatus = "ended"
	SessionCancelled SessionStatus = "cancelled"
)

// CanTransitionTo enforces the monotonic session lifecycle:
// scheduled -> active -> ended, with cancelled reachable from any
// non-terminal state. Terminal states accept nothing.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionScheduled:
		return next == SessionActive || next == SessionCancelled
	case SessionActive:
		return next == SessionEnded || next == SessionCancelled
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionEnded || s == SessionCancelled
}

// VideoSession binds one appointment to a remote provider room. There is
// at most one non-cancelled session per appointment; records are never
// deleted, only status-transitioned.
type VideoSession struct {
	AppointmentID   AppointmentID `json:"appointment_id"`
	RoomID          string        `json:"room_id"`
	RoomName        string        `json:"room_name"`
	CredentialRef   string        `json:"credential_ref,omitempty"`
	Provider        string        `json:"provider"`
	Status          SessionStatus `json:"status"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	DurationSeconds int           `json:"duration_seconds,omitempty"`
	RecordingRef    string        `json:"recording_ref,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
