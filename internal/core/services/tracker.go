package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
	apperrors "github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/errors"

	"go.uber.org/zap"
)

// TrackerConfig carries the retention and liveness policy for live
// consultation tracking.
type TrackerConfig struct {
	MetricsTTL        time.Duration
	SweepInterval     time.Duration
	ConnectionTimeout time.Duration
}

type stateTracker struct {
	store   ports.MetricsStore
	bus     ports.EventBus
	rooms   ports.RoomBroadcaster
	metrics Metrics
	cfg     TrackerConfig
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewStateTracker wires the live consultation tracker. bus and rooms are
// both optional; events go to whichever transports are present.
func NewStateTracker(
	store ports.MetricsStore,
	bus ports.EventBus,
	rooms ports.RoomBroadcaster,
	metrics Metrics,
	cfg TrackerConfig,
	logger *zap.SugaredLogger,
) *stateTracker {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if cfg.MetricsTTL <= 0 {
		cfg.MetricsTTL = time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 60 * time.Second
	}
	return &stateTracker{
		store:   store,
		bus:     bus,
		rooms:   rooms,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

var _ ports.StateTracker = (*stateTracker)(nil)

// RoomKey is the broadcast room everyone watching a consultation joins.
func RoomKey(id domain.AppointmentID) string {
	return "consultation:" + string(id)
}

func (t *stateTracker) InitializeTracking(ctx context.Context, id domain.AppointmentID, patient, doctor domain.UserID) error {
	now := t.now()
	metrics := &domain.ConsultationMetrics{
		AppointmentID: id,
		Status:        domain.ConsultationWaiting,
		Participants: []domain.ParticipantStatus{
			{UserID: patient, Role: domain.RolePatient, ConnectionQuality: domain.QualityUnknown},
			{UserID: doctor, Role: domain.RoleDoctor, ConnectionQuality: domain.QualityUnknown},
		},
		LastActivityAt: now,
	}
	metrics.RecomputeDerived()

	if err := t.store.Put(ctx, metrics, t.cfg.MetricsTTL); err != nil {
		return fmt.Errorf("initializing tracking for %s: %w", id, err)
	}
	t.logger.Infow("consultation tracking initialized",
		"appointment_id", id,
		"patient_id", patient,
		"doctor_id", doctor,
	)
	return nil
}

func (t *stateTracker) TrackParticipantJoined(ctx context.Context, id domain.AppointmentID, userID domain.UserID, role domain.ParticipantRole) error {
	metrics, err := t.mutate(ctx, id, func(m *domain.ConsultationMetrics) error {
		now := t.now()
		p := m.Participant(userID)
		if p == nil {
			m.Participants = append(m.Participants, domain.ParticipantStatus{
				UserID:            userID,
				Role:              role,
				ConnectionQuality: domain.QualityUnknown,
			})
			p = m.Participant(userID)
		}
		p.IsOnline = true
		p.LastSeenAt = &now
		if p.JoinedAt == nil {
			p.JoinedAt = &now
		}

		// First arrival moves the consultation out of the waiting room;
		// both sides online means the call proper is underway.
		m.RecomputeDerived()
		target := domain.ConsultationStarting
		if m.CurrentParticipants >= 2 {
			target = domain.ConsultationActive
		}
		if m.Status.CanAdvanceTo(target) {
			m.Status = target
			if target == domain.ConsultationActive && m.StartedAt == nil {
				m.StartedAt = &now
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.metrics.SetParticipantsOnline(id, metrics.CurrentParticipants)
	t.broadcast(ctx, domain.EventParticipantJoined, id, map[string]interface{}{
		"user_id":              userID,
		"role":                 role,
		"status":               metrics.Status,
		"current_participants": metrics.CurrentParticipants,
	})
	return nil
}

func (t *stateTracker) TrackParticipantLeft(ctx context.Context, id domain.AppointmentID, userID domain.UserID) error {
	metrics, err := t.mutate(ctx, id, func(m *domain.ConsultationMetrics) error {
		now := t.now()
		if p := m.Participant(userID); p != nil {
			p.IsOnline = false
			p.LastSeenAt = &now
		}
		m.RecomputeDerived()
		if m.CurrentParticipants == 0 && m.Status.CanAdvanceTo(domain.ConsultationEnding) {
			// The last departure defines when the call ended; the later
			// seal keeps these stamps.
			m.Status = domain.ConsultationEnding
			m.EndedAt = &now
			if m.StartedAt != nil {
				m.DurationSeconds = int(now.Sub(*m.StartedAt).Seconds())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.metrics.SetParticipantsOnline(id, metrics.CurrentParticipants)
	t.broadcast(ctx, domain.EventParticipantLeft, id, map[string]interface{}{
		"user_id":              userID,
		"status":               metrics.Status,
		"current_participants": metrics.CurrentParticipants,
	})
	return nil
}

func (t *stateTracker) TrackTechnicalIssue(ctx context.Context, id domain.AppointmentID, userID domain.UserID, kind domain.IssueKind, detail string) error {
	metrics, err := t.mutate(ctx, id, func(m *domain.ConsultationMetrics) error {
		m.TechnicalIssues.Add(kind)
		if kind == domain.IssueConnection {
			m.ConnectionIssueCount++
		}
		if p := m.Participant(userID); p != nil {
			label := string(kind)
			if detail != "" {
				label = fmt.Sprintf("%s: %s", kind, detail)
			}
			p.Issues = append(p.Issues, label)
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.broadcast(ctx, domain.EventTechnicalIssue, id, map[string]interface{}{
		"user_id": userID,
		"kind":    kind,
		"detail":  detail,
		"total":   metrics.TechnicalIssues.Total(),
	})
	return nil
}

func (t *stateTracker) UpdateConnectionQuality(ctx context.Context, id domain.AppointmentID, userID domain.UserID, quality domain.ConnectionQuality) error {
	changed := false
	_, err := t.mutate(ctx, id, func(m *domain.ConsultationMetrics) error {
		p := m.Participant(userID)
		if p == nil || p.ConnectionQuality == quality {
			return nil
		}
		p.ConnectionQuality = quality
		changed = true
		return nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	t.broadcast(ctx, domain.EventQualityChanged, id, map[string]interface{}{
		"user_id": userID,
		"quality": quality,
	})
	return nil
}

func (t *stateTracker) TrackRecordingStatus(ctx context.Context, id domain.AppointmentID, active bool) error {
	if _, err := t.mutate(ctx, id, func(m *domain.ConsultationMetrics) error {
		// Recording can only run while the call is underway or winding
		// down; clearing the flag is always allowed.
		if active && m.Status != domain.ConsultationActive && m.Status != domain.ConsultationEnding {
			return apperrors.NewInvalidStateError(
				fmt.Sprintf("recording cannot start while consultation %s is %s", id, m.Status))
		}
		m.RecordingActive = active
		return nil
	}); err != nil {
		return err
	}

	t.broadcast(ctx, domain.EventRecordingStatus, id, map[string]interface{}{
		"active": active,
	})
	return nil
}

func (t *stateTracker) GetMetrics(ctx context.Context, id domain.AppointmentID) (*domain.ConsultationMetrics, error) {
	metrics, err := t.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMetricsNotFound) {
			return nil, apperrors.NewNotFoundError("consultation metrics")
		}
		return nil, fmt.Errorf("loading metrics for %s: %w", id, err)
	}
	return metrics, nil
}

// EndTracking seals the live view: the final snapshot stays readable for
// the remainder of its TTL but accepts no further mutation.
func (t *stateTracker) EndTracking(ctx context.Context, id domain.AppointmentID) error {
	metrics, err := t.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMetricsNotFound) {
			return nil
		}
		return fmt.Errorf("loading metrics for %s: %w", id, err)
	}
	if metrics.Status == domain.ConsultationEnded {
		return nil
	}

	now := t.now()
	metrics.Status = domain.ConsultationEnded
	// The Ending transition already stamped the end of the call; sealing
	// later (sweep, explicit end) must not inflate the duration.
	if metrics.EndedAt == nil {
		metrics.EndedAt = &now
		if metrics.StartedAt != nil {
			metrics.DurationSeconds = int(now.Sub(*metrics.StartedAt).Seconds())
		}
	}
	for i := range metrics.Participants {
		metrics.Participants[i].IsOnline = false
	}
	metrics.RecomputeDerived()
	metrics.LastActivityAt = now

	if err := t.store.Put(ctx, metrics, t.cfg.MetricsTTL); err != nil {
		return fmt.Errorf("sealing metrics for %s: %w", id, err)
	}

	t.metrics.ClearParticipantsOnline(id)
	t.broadcast(ctx, domain.EventConsultationEnded, id, map[string]interface{}{
		"duration_seconds": metrics.DurationSeconds,
	})
	t.logger.Infow("consultation tracking ended",
		"appointment_id", id,
		"duration_seconds", metrics.DurationSeconds,
	)
	return nil
}

// Run sweeps tracked consultations and seals the ones that went silent
// for longer than the connection timeout with nobody online. Blocks until
// ctx is done.
func (t *stateTracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

func (t *stateTracker) sweep(ctx context.Context) {
	ids, err := t.store.ListTracked(ctx)
	if err != nil {
		t.logger.Warnw("heartbeat sweep failed to list tracked consultations", "error", err)
		return
	}

	cutoff := t.now().Add(-t.cfg.ConnectionTimeout)
	for _, id := range ids {
		metrics, err := t.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if metrics.Status == domain.ConsultationEnded {
			continue
		}
		if metrics.OnlineCount() > 0 || metrics.LastActivityAt.After(cutoff) {
			continue
		}

		if err := t.EndTracking(ctx, id); err != nil {
			t.logger.Warnw("heartbeat sweep failed to seal consultation",
				"appointment_id", id,
				"error", err,
			)
			continue
		}
		t.metrics.RecordSweepReclaimed()
		t.logger.Infow("reclaimed stale consultation", "appointment_id", id)
	}
}

// mutate is the shared read-modify-write cycle: load, apply, refresh
// derived fields and the activity stamp, store. An error from apply
// aborts the cycle before anything is written. Concurrent writers for
// the same appointment race last-writer-wins.
func (t *stateTracker) mutate(ctx context.Context, id domain.AppointmentID, apply func(*domain.ConsultationMetrics) error) (*domain.ConsultationMetrics, error) {
	metrics, err := t.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMetricsNotFound) {
			return nil, apperrors.NewNotFoundError("consultation metrics")
		}
		return nil, fmt.Errorf("loading metrics for %s: %w", id, err)
	}
	if metrics.Status == domain.ConsultationEnded {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("consultation %s already ended", id))
	}

	if err := apply(metrics); err != nil {
		return nil, err
	}
	metrics.RecomputeDerived()
	metrics.LastActivityAt = t.now()

	if err := t.store.Put(ctx, metrics, t.cfg.MetricsTTL); err != nil {
		return nil, fmt.Errorf("storing metrics for %s: %w", id, err)
	}
	return metrics, nil
}

// broadcast fans an event out to the low-latency room channel and the
// enterprise bus. Both are best effort.
func (t *stateTracker) broadcast(ctx context.Context, eventType domain.ConsultationEventType, id domain.AppointmentID, payload map[string]interface{}) {
	event := &domain.ConsultationEvent{
		Type:          eventType,
		AppointmentID: id,
		Timestamp:     t.now(),
		Payload:       payload,
	}

	if t.rooms != nil {
		t.rooms.SendToRoom(RoomKey(id), string(eventType), event)
	}
	if t.bus != nil {
		if err := t.bus.Emit(ctx, event); err != nil {
			t.logger.Warnw("failed to emit event",
				"type", eventType,
				"appointment_id", id,
				"error", err,
			)
		}
	}
}
