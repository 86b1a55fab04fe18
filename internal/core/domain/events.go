package domain

import "time"

// ConsultationEventType names the normalized events this core emits.
type ConsultationEventType string

const (
	EventConsultationStarted ConsultationEventType = "consultation.started"
	EventConsultationEnded   ConsultationEventType = "consultation.ended"
	EventParticipantJoined   ConsultationEventType = "consultation.participant_joined"
	EventParticipantLeft     ConsultationEventType = "consultation.participant_left"
	EventTechnicalIssue      ConsultationEventType = "consultation.technical_issue"
	EventQualityChanged      ConsultationEventType = "consultation.quality_changed"
	EventRecordingStatus     ConsultationEventType = "consultation.recording_status"
)

// ConsultationEvent is the normalized event broadcast on every state
// mutation. The same shape goes to the low-latency room channel and to
// the enterprise event bus; either transport may also be the source of
// the underlying fact (socket action vs. platform webhook).
type ConsultationEvent struct {
	Type          ConsultationEventType  `json:"type"`
	AppointmentID AppointmentID          `json:"appointment_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}
