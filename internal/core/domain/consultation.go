package domain

import "time"

// ConsultationStatus is the live status of a tracked consultation.
type ConsultationStatus string

const (
	ConsultationWaiting  ConsultationStatus = "waiting"
	ConsultationStarting ConsultationStatus = "starting"
	ConsultationActive   ConsultationStatus = "active"
	ConsultationEnding   ConsultationStatus = "ending"
	ConsultationEnded    ConsultationStatus = "ended"
)

var consultationOrder = map[ConsultationStatus]int{
	ConsultationWaiting:  0,
	ConsultationStarting: 1,
	ConsultationActive:   2,
	ConsultationEnding:   3,
	ConsultationEnded:    4,
}

// CanAdvanceTo allows only forward movement through the consultation
// lifecycle. Equal states are rejected so callers never emit no-op
// transition events.
func (s ConsultationStatus) CanAdvanceTo(next ConsultationStatus) bool {
	cur, ok := consultationOrder[s]
	if !ok {
		return false
	}
	n, ok := consultationOrder[next]
	if !ok {
		return false
	}
	return n > cur
}

// ParticipantRole identifies which side of the consultation a user is on.
type ParticipantRole string

const (
	RolePatient ParticipantRole = "patient"
	RoleDoctor  ParticipantRole = "doctor"
)

// ConnectionQuality is the self-reported link quality of a participant.
type ConnectionQuality string

const (
	QualityExcellent ConnectionQuality = "excellent"
	QualityGood      ConnectionQuality = "good"
	QualityFair      ConnectionQuality = "fair"
	QualityPoor      ConnectionQuality = "poor"
	QualityUnknown   ConnectionQuality = "unknown"
)

// IssueKind buckets reported technical issues.
type IssueKind string

const (
	IssueAudio      IssueKind = "audio"
	IssueVideo      IssueKind = "video"
	IssueConnection IssueKind = "connection"
	IssueOther      IssueKind = "other"
)

// NormalizeIssueKind maps free-form issue labels into the fixed buckets.
func NormalizeIssueKind(s string) IssueKind {
	switch IssueKind(s) {
	case IssueAudio, IssueVideo, IssueConnection:
		return IssueKind(s)
	}
	return IssueOther
}

// TechnicalIssueCounts aggregates reported issues per kind.
type TechnicalIssueCounts struct {
	Audio      int `json:"audio"`
	Video      int `json:"video"`
	Connection int `json:"connection"`
	Other      int `json:"other"`
}

// Add increments the bucket for the given kind.
func (c *TechnicalIssueCounts) Add(kind IssueKind) {
	switch kind {
	case IssueAudio:
		c.Audio++
	case IssueVideo:
		c.Video++
	case IssueConnection:
		c.Connection++
	default:
		c.Other++
	}
}

// Total returns the sum over all buckets.
func (c TechnicalIssueCounts) Total() int {
	return c.Audio + c.Video + c.Connection + c.Other
}

// ParticipantStatus is the live view of one participant in a consultation.
type ParticipantStatus struct {
	UserID            UserID            `json:"user_id"`
	Role              ParticipantRole   `json:"role"`
	IsOnline          bool              `json:"is_online"`
	JoinedAt          *time.Time        `json:"joined_at,omitempty"`
	LastSeenAt        *time.Time        `json:"last_seen_at,omitempty"`
	ConnectionQuality ConnectionQuality `json:"connection_quality"`
	Issues            []string          `json:"issues,omitempty"`
}

// ConsultationMetrics is the frequently-mutated live view of one
// consultation. It lives in the cache store with a TTL; CurrentParticipants
// is always derived from the participant list, never trusted from input.
type ConsultationMetrics struct {
	AppointmentID        AppointmentID        `json:"appointment_id"`
	Status               ConsultationStatus   `json:"status"`
	Participants         []ParticipantStatus  `json:"participants"`
	CurrentParticipants  int                  `json:"current_participants"`
	ConnectionIssueCount int                  `json:"connection_issue_count"`
	RecordingActive      bool                 `json:"recording_active"`
	TechnicalIssues      TechnicalIssueCounts `json:"technical_issues"`
	StartedAt            *time.Time           `json:"started_at,omitempty"`
	EndedAt              *time.Time           `json:"ended_at,omitempty"`
	DurationSeconds      int                  `json:"duration_seconds,omitempty"`
	LastActivityAt       time.Time            `json:"last_activity_at"`
}

// Participant returns a pointer into the participant slice for userID,
// or nil when the user is not tracked yet.
func (m *ConsultationMetrics) Participant(userID UserID) *ParticipantStatus {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return &m.Participants[i]
		}
	}
	return nil
}

// OnlineCount counts participants currently online.
func (m *ConsultationMetrics) OnlineCount() int {
	n := 0
	for i := range m.Participants {
		if m.Participants[i].IsOnline {
			n++
		}
	}
	return n
}

// RecomputeDerived refreshes every field that is derived from the
// participant list.
func (m *ConsultationMetrics) RecomputeDerived() {
	m.CurrentParticipants = m.OnlineCount()
}
