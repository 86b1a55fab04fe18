package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/cache"
	apperrors "github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/errors"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/tracing"

	"go.uber.org/zap"
)

// RecordingJobType is the queue job type for post-call recording
// processing.
const RecordingJobType = "recording.process"

// RecordingJobPayload is handed to the job queue when a recorded
// consultation ends.
type RecordingJobPayload struct {
	AppointmentID domain.AppointmentID `json:"appointment_id"`
	RecordingID   string               `json:"recording_id"`
	RoomID        string               `json:"room_id"`
	Provider      string               `json:"provider"`
}

// OrchestratorConfig carries the fixed policy the orchestrator applies.
type OrchestratorConfig struct {
	RoomOptions    ports.RoomOptions
	TokenTTL       time.Duration
	HealthCacheTTL time.Duration
}

type sessionOrchestrator struct {
	provider     ports.ProviderAdapter
	health       ports.HealthChecker
	sessions     ports.SessionRepository
	appointments ports.AppointmentLookup
	bus          ports.EventBus
	jobs         ports.JobQueue
	tracker      ports.StateTracker
	metrics      Metrics
	cfg          OrchestratorConfig
	healthCache  *cache.Cache
	logger       *zap.SugaredLogger
	now          func() time.Time
}

// NewSessionOrchestrator wires the orchestrator. provider may be nil when
// the deployment has video disabled; every operation then fails with
// SERVICE_UNAVAILABLE instead of crashing the owning process. tracker is
// optional.
func NewSessionOrchestrator(
	provider ports.ProviderAdapter,
	health ports.HealthChecker,
	sessions ports.SessionRepository,
	appointments ports.AppointmentLookup,
	bus ports.EventBus,
	jobs ports.JobQueue,
	tracker ports.StateTracker,
	metrics Metrics,
	cfg OrchestratorConfig,
	logger *zap.SugaredLogger,
) ports.SessionOrchestrator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	cacheTTL := cfg.HealthCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &sessionOrchestrator{
		provider:     provider,
		health:       health,
		sessions:     sessions,
		appointments: appointments,
		bus:          bus,
		jobs:         jobs,
		tracker:      tracker,
		metrics:      metrics,
		cfg:          cfg,
		healthCache:  cache.New(cacheTTL),
		logger:       logger,
		now:          time.Now,
	}
}

// GetProvider returns the active adapter after one health check. An
// unhealthy provider is still returned: video is an auxiliary capability
// and its unavailability must not take the owning process down. The
// warning below is what operational tooling alerts on.
func (o *sessionOrchestrator) GetProvider(ctx context.Context) (ports.ProviderAdapter, error) {
	if o.provider == nil {
		return nil, apperrors.NewServiceUnavailableError("video provider is disabled or not initialized")
	}

	name := o.provider.Name()
	cacheKey := "provider:health:" + name
	if cached, ok := o.healthCache.Get(cacheKey); ok {
		if health, ok := cached.(domain.ProviderHealth); ok && !health.IsUp {
			o.logger.Warnw("video provider still unhealthy",
				"provider", name,
				"kind", health.LastError,
			)
		}
		return o.provider, nil
	}

	started := o.now()
	health := o.health.CheckHealth(ctx, name)
	o.metrics.RecordProviderHealth(health, o.now().Sub(started))
	o.healthCache.Set(cacheKey, health)

	if !health.IsUp {
		o.logger.Warnw("video provider unhealthy, proceeding anyway",
			"provider", name,
			"kind", health.LastError,
		)
	}
	return o.provider, nil
}

// GenerateToken resolves the appointment, guards its modality, creates or
// reuses the remote room, issues a credential and upserts the local
// session record. The upsert never touches an existing session, so an
// in-progress consultation keeps its timestamps.
func (o *sessionOrchestrator) GenerateToken(ctx context.Context, req ports.CredentialRequest) (*domain.MeetingCredential, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.GenerateToken")
	defer span.End()

	appointment, err := o.appointments.FindByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, domain.ErrAppointmentNotFound) {
			return nil, apperrors.NewNotFoundError("appointment")
		}
		return nil, fmt.Errorf("resolving appointment %s: %w", req.AppointmentID, err)
	}
	if !appointment.IsRemoteVideo() {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("appointment %s is not a remote video appointment", req.AppointmentID))
	}

	provider, err := o.GetProvider(ctx)
	if err != nil {
		return nil, err
	}

	// Reuse the room bound to an existing live session; derive a fresh id
	// otherwise. The derived id stays traceable to the appointment while
	// the hashed suffix prevents room-name enumeration.
	var existing *domain.VideoSession
	roomID := ""
	if session, err := o.sessions.FindByAppointment(ctx, req.AppointmentID); err == nil {
		if session.Status != domain.SessionCancelled {
			existing = session
			roomID = session.RoomID
		}
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("looking up session for %s: %w", req.AppointmentID, err)
	}
	if roomID == "" {
		roomID = deriveRoomID(req.AppointmentID, appointment.ClinicID, o.now())
	}

	if _, err := provider.StartSession(ctx, roomID, o.cfg.RoomOptions); err != nil {
		return nil, err
	}

	credential, err := provider.GenerateToken(ctx, ports.TokenRequest{
		RoomID:      roomID,
		UserID:      req.UserID,
		Role:        req.Role,
		DisplayName: req.DisplayName,
		TTL:         o.cfg.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	// Persist only after every remote call settled; a failed remote call
	// must never leave a half-written session behind.
	if existing == nil {
		now := o.now()
		session := &domain.VideoSession{
			AppointmentID: req.AppointmentID,
			RoomID:        roomID,
			RoomName:      credential.RoomName,
			Provider:      provider.Name(),
			Status:        domain.SessionScheduled,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := o.sessions.Create(ctx, session); err != nil {
			// A concurrent caller may have created it between our lookup
			// and now; the remote side is idempotent so the credential
			// stays valid either way.
			if _, findErr := o.sessions.FindByAppointment(ctx, req.AppointmentID); findErr != nil {
				return nil, fmt.Errorf("persisting session for %s: %w", req.AppointmentID, err)
			}
		}
	}

	o.metrics.RecordTokenIssued()
	o.logger.Infow("issued meeting token",
		"appointment_id", req.AppointmentID,
		"user_id", req.UserID,
		"role", req.Role,
		"room_id", roomID,
	)
	return credential, nil
}

// StartConsultation transitions the session to active, creating it first
// when no token was issued yet.
func (o *sessionOrchestrator) StartConsultation(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.StartConsultation")
	defer span.End()

	session, err := o.sessions.FindByAppointment(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		appointment, lookupErr := o.appointments.FindByID(ctx, id)
		if lookupErr != nil {
			return nil, apperrors.NewNotFoundError("appointment")
		}
		if _, tokenErr := o.GenerateToken(ctx, ports.CredentialRequest{
			AppointmentID: id,
			UserID:        appointment.DoctorID,
			Role:          domain.RoleDoctor,
		}); tokenErr != nil {
			return nil, tokenErr
		}
		session, err = o.sessions.FindByAppointment(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving session for %s: %w", id, err)
	}

	if !session.Status.CanTransitionTo(domain.SessionActive) {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("cannot start consultation in status %s", session.Status))
	}

	now := o.now()
	session.Status = domain.SessionActive
	session.StartedAt = &now
	session.UpdatedAt = now
	if err := o.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("activating session for %s: %w", id, err)
	}

	o.metrics.ConsultationStarted()
	o.emit(ctx, domain.EventConsultationStarted, id, map[string]interface{}{
		"room_id":  session.RoomID,
		"provider": session.Provider,
	})
	o.logger.Infow("consultation started",
		"appointment_id", id,
		"room_id", session.RoomID,
	)
	return session, nil
}

// EndConsultation transitions the session to ended, stops any active
// recording and hands post-processing to the job queue. The hand-off is
// fire-and-forget: the consultation already ended successfully, so queue
// failures are logged, not propagated.
func (o *sessionOrchestrator) EndConsultation(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.EndConsultation")
	defer span.End()

	session, err := o.sessions.FindByAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, apperrors.NewNotFoundError("video session")
		}
		return nil, fmt.Errorf("resolving session for %s: %w", id, err)
	}
	if !session.Status.CanTransitionTo(domain.SessionEnded) {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("cannot end consultation in status %s", session.Status))
	}

	if session.RecordingRef != "" && o.provider != nil {
		if recording, stopErr := o.provider.StopRecording(ctx, session.RecordingRef); stopErr != nil {
			o.logger.Warnw("failed to stop recording",
				"appointment_id", id,
				"recording_id", session.RecordingRef,
				"error", stopErr,
			)
		} else if o.jobs != nil {
			payload := RecordingJobPayload{
				AppointmentID: id,
				RecordingID:   recording.ID,
				RoomID:        session.RoomID,
				Provider:      session.Provider,
			}
			if enqueueErr := o.jobs.Enqueue(ctx, RecordingJobType, payload); enqueueErr != nil {
				o.logger.Warnw("failed to enqueue recording processing",
					"appointment_id", id,
					"recording_id", recording.ID,
					"error", enqueueErr,
				)
			}
		}
	}

	now := o.now()
	session.Status = domain.SessionEnded
	session.EndedAt = &now
	session.UpdatedAt = now
	var duration time.Duration
	if session.StartedAt != nil {
		duration = now.Sub(*session.StartedAt)
		session.DurationSeconds = int(duration.Seconds())
	}
	if err := o.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("ending session for %s: %w", id, err)
	}

	o.metrics.ConsultationEnded(duration)
	o.emit(ctx, domain.EventConsultationEnded, id, map[string]interface{}{
		"room_id":          session.RoomID,
		"provider":         session.Provider,
		"duration_seconds": session.DurationSeconds,
	})
	o.logger.Infow("consultation ended",
		"appointment_id", id,
		"duration_seconds", session.DurationSeconds,
	)
	return session, nil
}

// CancelConsultation applies the terminal override reachable from any
// non-ended state.
func (o *sessionOrchestrator) CancelConsultation(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, error) {
	session, err := o.sessions.FindByAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, apperrors.NewNotFoundError("video session")
		}
		return nil, fmt.Errorf("resolving session for %s: %w", id, err)
	}
	if !session.Status.CanTransitionTo(domain.SessionCancelled) {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("cannot cancel consultation in status %s", session.Status))
	}

	now := o.now()
	session.Status = domain.SessionCancelled
	session.UpdatedAt = now
	if err := o.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("cancelling session for %s: %w", id, err)
	}

	o.emit(ctx, domain.EventConsultationEnded, id, map[string]interface{}{
		"room_id": session.RoomID,
		"reason":  "cancelled",
	})
	o.logger.Infow("consultation cancelled", "appointment_id", id)
	return session, nil
}

// GetConsultationSession is an advisory read: failures resolve to nil so
// callers on display paths never have to handle storage errors.
func (o *sessionOrchestrator) GetConsultationSession(ctx context.Context, id domain.AppointmentID) *domain.VideoSession {
	session, err := o.sessions.FindByAppointment(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			o.logger.Warnw("failed to load consultation session",
				"appointment_id", id,
				"error", err,
			)
		}
		return nil
	}
	return session
}

// ReportTechnicalIssue records a participant-reported problem. Tracking
// failures are swallowed with a log line; issue reporting must never
// break the call it describes.
func (o *sessionOrchestrator) ReportTechnicalIssue(ctx context.Context, id domain.AppointmentID, userID domain.UserID, kind, detail string) error {
	issueKind := domain.NormalizeIssueKind(kind)
	o.metrics.RecordTechnicalIssue(issueKind)

	if o.tracker != nil {
		if err := o.tracker.TrackTechnicalIssue(ctx, id, userID, issueKind, detail); err != nil {
			o.logger.Warnw("failed to track technical issue",
				"appointment_id", id,
				"user_id", userID,
				"error", err,
			)
		}
		return nil
	}

	o.emit(ctx, domain.EventTechnicalIssue, id, map[string]interface{}{
		"user_id": userID,
		"kind":    issueKind,
		"detail":  detail,
	})
	return nil
}

// StartRecording starts a provider-side recording for an active
// consultation and binds its id to the session record.
func (o *sessionOrchestrator) StartRecording(ctx context.Context, id domain.AppointmentID) (*domain.Recording, error) {
	session, err := o.sessions.FindByAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, apperrors.NewNotFoundError("video session")
		}
		return nil, fmt.Errorf("resolving session for %s: %w", id, err)
	}
	if session.Status != domain.SessionActive {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("cannot record consultation in status %s", session.Status))
	}

	provider, err := o.GetProvider(ctx)
	if err != nil {
		return nil, err
	}
	recording, err := provider.StartRecording(ctx, session.RoomID)
	if err != nil {
		return nil, err
	}

	session.RecordingRef = recording.ID
	session.UpdatedAt = o.now()
	if err := o.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("binding recording to session %s: %w", id, err)
	}

	o.emit(ctx, domain.EventRecordingStatus, id, map[string]interface{}{
		"recording_id": recording.ID,
		"active":       true,
	})
	return recording, nil
}

func (o *sessionOrchestrator) ListRecordings(ctx context.Context, id domain.AppointmentID) ([]*domain.Recording, error) {
	session, provider, err := o.sessionAndProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	return provider.ListRecordings(ctx, session.RoomID)
}

func (o *sessionOrchestrator) GetParticipants(ctx context.Context, id domain.AppointmentID) ([]*domain.RemoteParticipant, error) {
	session, provider, err := o.sessionAndProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	return provider.GetParticipants(ctx, session.RoomID)
}

func (o *sessionOrchestrator) KickParticipant(ctx context.Context, id domain.AppointmentID, connectionID string) error {
	session, provider, err := o.sessionAndProvider(ctx, id)
	if err != nil {
		return err
	}
	return provider.KickParticipant(ctx, session.RoomID, connectionID)
}

func (o *sessionOrchestrator) sessionAndProvider(ctx context.Context, id domain.AppointmentID) (*domain.VideoSession, ports.ProviderAdapter, error) {
	session, err := o.sessions.FindByAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil, apperrors.NewNotFoundError("video session")
		}
		return nil, nil, fmt.Errorf("resolving session for %s: %w", id, err)
	}
	provider, err := o.GetProvider(ctx)
	if err != nil {
		return nil, nil, err
	}
	return session, provider, nil
}

func (o *sessionOrchestrator) emit(ctx context.Context, eventType domain.ConsultationEventType, id domain.AppointmentID, payload map[string]interface{}) {
	if o.bus == nil {
		return
	}
	event := &domain.ConsultationEvent{
		Type:          eventType,
		AppointmentID: id,
		Timestamp:     o.now(),
		Payload:       payload,
	}
	if err := o.bus.Emit(ctx, event); err != nil {
		o.logger.Warnw("failed to emit event",
			"type", eventType,
			"appointment_id", id,
			"error", err,
		)
	}
}

// deriveRoomID keeps the room traceable to its appointment while the
// hashed suffix keeps names unguessable.
func deriveRoomID(id domain.AppointmentID, clinic domain.ClinicID, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", id, clinic, at.UnixNano())))
	return fmt.Sprintf("apt-%s-%s", id, hex.EncodeToString(sum[:])[:8])
}
