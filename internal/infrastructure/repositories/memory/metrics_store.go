package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
)

type metricsEntry struct {
	metrics   domain.ConsultationMetrics
	expiresAt time.Time
}

// MetricsStore is the in-memory twin of the Redis metrics store, used in
// development and tests. TTL expiry is evaluated lazily on access.
type MetricsStore struct {
	entries map[domain.AppointmentID]*metricsEntry
	mu      sync.RWMutex
}

func NewMetricsStore() ports.MetricsStore {
	return &MetricsStore{
		entries: make(map[domain.AppointmentID]*metricsEntry),
	}
}

func (s *MetricsStore) Get(ctx context.Context, id domain.AppointmentID) (*domain.ConsultationMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, domain.ErrMetricsNotFound
	}

	copied := entry.metrics
	copied.Participants = append([]domain.ParticipantStatus(nil), entry.metrics.Participants...)
	return &copied, nil
}

func (s *MetricsStore) Put(ctx context.Context, metrics *domain.ConsultationMetrics, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *metrics
	copied.Participants = append([]domain.ParticipantStatus(nil), metrics.Participants...)
	s.entries[metrics.AppointmentID] = &metricsEntry{
		metrics:   copied,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MetricsStore) Delete(ctx context.Context, id domain.AppointmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MetricsStore) ListTracked(ctx context.Context) ([]domain.AppointmentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ids := make([]domain.AppointmentID, 0, len(s.entries))
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
