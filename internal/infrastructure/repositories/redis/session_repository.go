package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type SessionRepository struct {
	client *redis.Client
	prefix string
}

func NewSessionRepository(client *redis.Client) ports.SessionRepository {
	return &SessionRepository{
		client: client,
		prefix: "consult:session:",
	}
}

func (r *SessionRepository) sessionKey(id domain.AppointmentID) string {
	return r.prefix + string(id)
}

func (r *SessionRepository) activeKey() string {
	return r.prefix + "active"
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.VideoSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// NX guards the at-most-one-session-per-appointment invariant against
	// two concurrent token requests.
	ok, err := r.client.SetNX(ctx, r.sessionKey(session.AppointmentID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set session in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("session already exists for appointment %s", session.AppointmentID)
	}

	if !session.Status.IsTerminal() {
		if err := r.client.SAdd(ctx, r.activeKey(), string(session.AppointmentID)).Err(); err != nil {
			return fmt.Errorf("failed to add session to active set: %w", err)
		}
	}
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.VideoSession) error {
	if _, err := r.FindByAppointment(ctx, session.AppointmentID); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.sessionKey(session.AppointmentID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update session in Redis: %w", err)
	}

	if session.Status.IsTerminal() {
		if err := r.client.SRem(ctx, r.activeKey(), string(session.AppointmentID)).Err(); err != nil {
			return fmt.Errorf("failed to remove session from active set: %w", err)
		}
	}
	return nil
}

func (r *SessionRepository) FindByAppointment(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session domain.VideoSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]*domain.VideoSession, error) {
	ids, err := r.client.SMembers(ctx, r.activeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active sessions from Redis: %w", err)
	}

	var sessions []*domain.VideoSession
	for _, id := range ids {
		session, err := r.FindByAppointment(ctx, domain.AppointmentID(id))
		if err != nil {
			// Skip sessions that no longer exist
			continue
		}
		if !session.Status.IsTerminal() {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}
