package domain

import (
	"strings"
	"time"
)

type AppointmentID string
type UserID string
type ClinicID string

// Appointment is the slice of the clinic's appointment record this core
// depends on. Records come from an external store, so Type arrives as an
// untyped value and must be narrowed at the boundary.
type Appointment struct {
	ID          AppointmentID
	ClinicID    ClinicID
	PatientID   UserID
	DoctorID    UserID
	Type        interface{}
	ScheduledAt time.Time
}

// IsRemoteVideo reports whether the appointment's modality is a remote
// video consultation. Unknown or non-string type values are rejected.
func (a *Appointment) IsRemoteVideo() bool {
	if a == nil {
		return false
	}
	s, ok := a.Type.(string)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video", "remote_video", "online", "teleconsultation":
		return true
	}
	return false
}
