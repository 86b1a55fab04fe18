package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// MetricsStore keeps live ConsultationMetrics under TTL keys plus a
// tracked-id set for the heartbeat sweep. The set can momentarily hold
// ids whose value key already expired; readers treat that as not tracked.
type MetricsStore struct {
	client *redis.Client
	prefix string
}

func NewMetricsStore(client *redis.Client) ports.MetricsStore {
	return &MetricsStore{
		client: client,
		prefix: "consult:metrics:",
	}
}

func (s *MetricsStore) metricsKey(id domain.AppointmentID) string {
	return s.prefix + string(id)
}

func (s *MetricsStore) trackedKey() string {
	return s.prefix + "tracked"
}

func (s *MetricsStore) Get(ctx context.Context, id domain.AppointmentID) (*domain.ConsultationMetrics, error) {
	data, err := s.client.Get(ctx, s.metricsKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrMetricsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics from Redis: %w", err)
	}

	var metrics domain.ConsultationMetrics
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	return &metrics, nil
}

func (s *MetricsStore) Put(ctx context.Context, metrics *domain.ConsultationMetrics, ttl time.Duration) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := s.client.Set(ctx, s.metricsKey(metrics.AppointmentID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set metrics in Redis: %w", err)
	}
	if err := s.client.SAdd(ctx, s.trackedKey(), string(metrics.AppointmentID)).Err(); err != nil {
		return fmt.Errorf("failed to add metrics to tracked set: %w", err)
	}
	return nil
}

func (s *MetricsStore) Delete(ctx context.Context, id domain.AppointmentID) error {
	if err := s.client.SRem(ctx, s.trackedKey(), string(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove metrics from tracked set: %w", err)
	}
	if err := s.client.Del(ctx, s.metricsKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete metrics from Redis: %w", err)
	}
	return nil
}

func (s *MetricsStore) ListTracked(ctx context.Context) ([]domain.AppointmentID, error) {
	members, err := s.client.SMembers(ctx, s.trackedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked set from Redis: %w", err)
	}

	ids := make([]domain.AppointmentID, 0, len(members))
	for _, m := range members {
		id := domain.AppointmentID(m)
		// Drop ids whose metrics key lapsed via TTL.
		exists, err := s.client.Exists(ctx, s.metricsKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check metrics key: %w", err)
		}
		if exists == 0 {
			s.client.SRem(ctx, s.trackedKey(), m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
