package services

import (
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
)

// Metrics is the slice of the monitoring collector the services depend
// on, kept as an interface so the core never imports the Prometheus
// wiring directly.
type Metrics interface {
	RecordTokenIssued()
	ConsultationStarted()
	ConsultationEnded(duration time.Duration)
	RecordProviderHealth(health domain.ProviderHealth, elapsed time.Duration)
	RecordTechnicalIssue(kind domain.IssueKind)
	SetParticipantsOnline(id domain.AppointmentID, n int)
	ClearParticipantsOnline(id domain.AppointmentID)
	RecordSweepReclaimed()
}

// NopMetrics discards every observation. Used in tests and when
// monitoring is disabled.
type NopMetrics struct{}

func (NopMetrics) RecordTokenIssued()                                        {}
func (NopMetrics) ConsultationStarted()                                      {}
func (NopMetrics) ConsultationEnded(time.Duration)                           {}
func (NopMetrics) RecordProviderHealth(domain.ProviderHealth, time.Duration) {}
func (NopMetrics) RecordTechnicalIssue(domain.IssueKind)                     {}
func (NopMetrics) SetParticipantsOnline(domain.AppointmentID, int)           {}
func (NopMetrics) ClearParticipantsOnline(domain.AppointmentID)              {}
func (NopMetrics) RecordSweepReclaimed()                                     {}
