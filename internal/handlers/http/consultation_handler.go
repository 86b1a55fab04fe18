package http

import (
	"net/http"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConsultationHandler struct {
	orchestrator ports.SessionOrchestrator
	tracker      ports.StateTracker
	logger       *zap.SugaredLogger
}

func NewConsultationHandler(
	orchestrator ports.SessionOrchestrator,
	tracker ports.StateTracker,
	logger *zap.SugaredLogger,
) *ConsultationHandler {
	return &ConsultationHandler{
		orchestrator: orchestrator,
		tracker:      tracker,
		logger:       logger,
	}
}

func (h *ConsultationHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/consultations")
	{
		api.POST("/:id/token", h.GenerateToken)
		api.POST("/:id/start", h.StartConsultation)
		api.POST("/:id/end", h.EndConsultation)
		api.POST("/:id/cancel", h.CancelConsultation)
		api.GET("/:id/session", h.GetSession)

		api.GET("/:id/metrics", h.GetMetrics)
		api.POST("/:id/join", h.Join)
		api.POST("/:id/leave", h.Leave)
		api.POST("/:id/issues", h.ReportIssue)
		api.POST("/:id/quality", h.UpdateQuality)

		api.POST("/:id/recording/start", h.StartRecording)
		api.GET("/:id/recordings", h.ListRecordings)
		api.GET("/:id/participants", h.GetParticipants)
		api.DELETE("/:id/participants/:connectionId", h.KickParticipant)
	}
}

// identity resolves the acting user, preferring the authenticated
// identity over the request body.
func identity(c *gin.Context, bodyUserID domain.UserID) domain.UserID {
	if v, ok := c.Get("user_id"); ok {
		if userID, ok := v.(domain.UserID); ok && userID != "" {
			return userID
		}
	}
	return bodyUserID
}

func (h *ConsultationHandler) GenerateToken(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	var req struct {
		UserID      domain.UserID          `json:"user_id"`
		Role        domain.ParticipantRole `json:"role" binding:"required,oneof=patient doctor"`
		DisplayName string                 `json:"display_name" binding:"max=200"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := identity(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	credential, err := h.orchestrator.GenerateToken(c.Request.Context(), ports.CredentialRequest{
		AppointmentID: appointmentID,
		UserID:        userID,
		Role:          req.Role,
		DisplayName:   req.DisplayName,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credential": credential})
}

func (h *ConsultationHandler) StartConsultation(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	session, err := h.orchestrator.StartConsultation(c.Request.Context(), appointmentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *ConsultationHandler) EndConsultation(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	session, err := h.orchestrator.EndConsultation(c.Request.Context(), appointmentID)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.tracker.EndTracking(c.Request.Context(), appointmentID); err != nil {
		h.logger.Warnw("failed to end tracking",
			"appointment_id", appointmentID,
			"error", err,
		)
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *ConsultationHandler) CancelConsultation(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	session, err := h.orchestrator.CancelConsultation(c.Request.Context(), appointmentID)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.tracker.EndTracking(c.Request.Context(), appointmentID); err != nil {
		h.logger.Warnw("failed to end tracking",
			"appointment_id", appointmentID,
			"error", err,
		)
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *ConsultationHandler) GetSession(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	session := h.orchestrator.GetConsultationSession(c.Request.Context(), appointmentID)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "video session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *ConsultationHandler) GetMetrics(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	metrics, err := h.tracker.GetMetrics(c.Request.Context(), appointmentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metrics": metrics})
}

func (h *ConsultationHandler) Join(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	var req struct {
		UserID domain.UserID          `json:"user_id"`
		Role   domain.ParticipantRole `json:"role" binding:"required,oneof=patient doctor"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := identity(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	if err := h.tracker.TrackParticipantJoined(c.Request.Context(), appointmentID, userID, req.Role); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (h *ConsultationHandler) Leave(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	var req struct {
		UserID domain.UserID `json:"user_id"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := identity(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	if err := h.tracker.TrackParticipantLeft(c.Request.Context(), appointmentID, userID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (h *ConsultationHandler) ReportIssue(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	var req struct {
		UserID domain.UserID `json:"user_id"`
		Kind   string        `json:"kind" binding:"required,max=50"`
		Detail string        `json:"detail" binding:"max=500"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := identity(c, req.UserID)
	if err := h.orchestrator.ReportTechnicalIssue(c.Request.Context(), appointmentID, userID, req.Kind, req.Detail); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "reported"})
}

func (h *ConsultationHandler) UpdateQuality(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	var req struct {
		UserID  domain.UserID `json:"user_id"`
		Quality string        `json:"quality" binding:"required,oneof=excellent good fair poor unknown"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := identity(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	if err := h.tracker.UpdateConnectionQuality(c.Request.Context(), appointmentID, userID, domain.ConnectionQuality(req.Quality)); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *ConsultationHandler) StartRecording(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	recording, err := h.orchestrator.StartRecording(c.Request.Context(), appointmentID)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.tracker.TrackRecordingStatus(c.Request.Context(), appointmentID, true); err != nil {
		h.logger.Warnw("failed to track recording status",
			"appointment_id", appointmentID,
			"error", err,
		)
	}

	c.JSON(http.StatusOK, gin.H{"recording": recording})
}

func (h *ConsultationHandler) ListRecordings(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	recordings, err := h.orchestrator.ListRecordings(c.Request.Context(), appointmentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recordings": recordings})
}

func (h *ConsultationHandler) GetParticipants(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))

	participants, err := h.orchestrator.GetParticipants(c.Request.Context(), appointmentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *ConsultationHandler) KickParticipant(c *gin.Context) {
	appointmentID := domain.AppointmentID(c.Param("id"))
	connectionID := c.Param("connectionId")

	if err := h.orchestrator.KickParticipant(c.Request.Context(), appointmentID, connectionID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "kicked"})
}
