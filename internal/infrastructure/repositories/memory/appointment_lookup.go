package memory

import (
	"context"
	"sync"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
)

// AppointmentLookup is an in-memory stand-in for the clinic's appointment
// store, used in development and tests. Production deployments inject an
// adapter over the real store instead.
type AppointmentLookup struct {
	appointments map[domain.AppointmentID]*domain.Appointment
	mu           sync.RWMutex
}

func NewAppointmentLookup() *AppointmentLookup {
	return &AppointmentLookup{
		appointments: make(map[domain.AppointmentID]*domain.Appointment),
	}
}

var _ ports.AppointmentLookup = (*AppointmentLookup)(nil)

// Seed registers an appointment record.
func (l *AppointmentLookup) Seed(appointment *domain.Appointment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appointments[appointment.ID] = appointment
}

func (l *AppointmentLookup) FindByID(ctx context.Context, id domain.AppointmentID) (*domain.Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	appointment, exists := l.appointments[id]
	if !exists {
		return nil, domain.ErrAppointmentNotFound
	}

	copied := *appointment
	return &copied, nil
}
