package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
)

type SessionRepository struct {
	sessions map[domain.AppointmentID]*domain.VideoSession
	mu       sync.RWMutex
}

func NewSessionRepository() ports.SessionRepository {
	return &SessionRepository{
		sessions: make(map[domain.AppointmentID]*domain.VideoSession),
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.VideoSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.AppointmentID]; exists {
		return fmt.Errorf("session already exists for appointment %s", session.AppointmentID)
	}

	copied := *session
	r.sessions[session.AppointmentID] = &copied
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.VideoSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.AppointmentID]; !exists {
		return domain.ErrSessionNotFound
	}

	copied := *session
	r.sessions[session.AppointmentID] = &copied
	return nil
}

func (r *SessionRepository) FindByAppointment(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]*domain.VideoSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*domain.VideoSession
	for _, session := range r.sessions {
		if !session.Status.IsTerminal() {
			copied := *session
			active = append(active, &copied)
		}
	}
	return active, nil
}
