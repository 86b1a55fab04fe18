package ports

import (
	"context"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
)

// SessionRepository stores VideoSession records. The orchestrator is the
// only writer; everything else reads.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.VideoSession) error
	Update(ctx context.Context, session *domain.VideoSession) error
	FindByAppointment(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error)
	ListActive(ctx context.Context) ([]*domain.VideoSession, error)
}

// AppointmentLookup resolves appointment records from the external store.
type AppointmentLookup interface {
	FindByID(ctx context.Context, id domain.AppointmentID) (*domain.Appointment, error)
}

// MetricsStore holds live ConsultationMetrics with a TTL. Reads and writes
// are independent round trips; concurrent writers for the same appointment
// race last-writer-wins (accepted for this best-effort live view).
type MetricsStore interface {
	Get(ctx context.Context, id domain.AppointmentID) (*domain.ConsultationMetrics, error)
	Put(ctx context.Context, metrics *domain.ConsultationMetrics, ttl time.Duration) error
	Delete(ctx context.Context, id domain.AppointmentID) error
	// ListTracked returns the appointment ids currently under tracking,
	// for the heartbeat sweep.
	ListTracked(ctx context.Context) ([]domain.AppointmentID, error)
}
