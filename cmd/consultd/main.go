package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/services"
	httphandlers "github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/handlers/http"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/broadcast"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/distributed"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/health"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/middleware"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/monitoring"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/provider"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/queue"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/repositories"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/repositories/memory"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/config"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/logger"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/consultd/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "video-consultation",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Repositories with memory fallback
	repoFactory := repositories.NewFactory(cfg, log)
	defer repoFactory.Close()

	sessionRepo := repoFactory.CreateSessionRepository()
	metricsStore := repoFactory.CreateMetricsStore()

	// Appointment records live in the main backend; until that integration
	// lands this process answers from the seeded in-memory lookup.
	appointments := memory.NewAppointmentLookup()

	// Distributed collaborators share the repository factory's Redis
	// client; without Redis everything degrades to single-process twins.
	var bus ports.EventBus
	var jobs ports.JobQueue
	var runQueue func(context.Context) error
	var registerJob func(string, queue.Handler)

	if client := repoFactory.RedisClient(); client != nil {
		bus = distributed.NewEventBus(client, log)
		redisQueue := queue.NewRedisQueue(client, log)
		jobs = redisQueue
		runQueue = redisQueue.Run
		registerJob = redisQueue.Register
	} else {
		bus = distributed.NewMemoryBus()
		memQueue := queue.NewMemoryQueue(log)
		jobs = memQueue
		runQueue = memQueue.Run
		registerJob = memQueue.Register
	}

	hub := broadcast.NewHub(log)

	var metrics services.Metrics = services.NopMetrics{}
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
	}

	// Provider adapter. A disabled provider is a supported deployment; an
	// unknown name is an operator mistake and fails startup.
	videoProvider, err := provider.New(cfg, log)
	if err != nil {
		if errors.Is(err, domain.ErrProviderDisabled) {
			log.Warn("video provider disabled, consultation operations will be unavailable")
		} else {
			log.Fatalw("failed to initialize video provider", "error", err)
		}
	}

	providerURL := cfg.Provider.OpenVidu.URL
	if cfg.Provider.Name == "livekit" {
		providerURL = cfg.Provider.LiveKit.Host
	}
	checker := health.NewChecker(providerURL, health.Options{
		PrimaryPath:     cfg.Health.PrimaryPath,
		FallbackPath:    cfg.Health.FallbackPath,
		HealthyStatuses: cfg.Health.HealthyStatuses,
		Attempts:        cfg.Health.Attempts,
		AttemptTimeout:  cfg.Health.AttemptTimeout,
		RetryDelay:      cfg.Health.RetryDelay,
		ProbesPerMinute: cfg.Health.ProbesPerMinute,
	}, log)

	tracker := services.NewStateTracker(metricsStore, bus, hub, metrics, services.TrackerConfig{
		MetricsTTL:        cfg.Tracker.MetricsTTL,
		SweepInterval:     cfg.Tracker.SweepInterval,
		ConnectionTimeout: cfg.Tracker.ConnectionTimeout,
	}, log)

	orchestrator := services.NewSessionOrchestrator(
		videoProvider,
		checker,
		sessionRepo,
		appointments,
		bus,
		jobs,
		tracker,
		metrics,
		services.OrchestratorConfig{
			RoomOptions:    provider.RoomOptionsFromConfig(cfg),
			TokenTTL:       cfg.Provider.TokenTTL,
			HealthCacheTTL: cfg.Health.CacheTTL,
		},
		log,
	)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	registerJob(services.RecordingJobType, func(ctx context.Context, job *queue.Job) error {
		var payload services.RecordingJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}
		log.Infow("recording ready for post-processing",
			"appointment_id", payload.AppointmentID,
			"recording_id", payload.RecordingID,
			"provider", payload.Provider,
		)
		return nil
	})
	go func() {
		if err := runQueue(workerCtx); err != nil && err != context.Canceled {
			log.Errorw("job queue stopped", "error", err)
		}
	}()

	go func() {
		if err := tracker.Run(workerCtx); err != nil && err != context.Canceled {
			log.Errorw("heartbeat sweep stopped", "error", err)
		}
	}()

	// Events published by other instances reach local websocket clients
	// through the bus; locally produced events were already broadcast.
	go func() {
		err := bus.Subscribe(workerCtx, func(event *domain.ConsultationEvent) {
			hub.SendToRoom(services.RoomKey(event.AppointmentID), string(event.Type), event)
		})
		if err != nil && err != context.Canceled {
			log.Errorw("event bus subscription stopped", "error", err)
		}
	}()

	// HTTP surface
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	consultationHandler := httphandlers.NewConsultationHandler(orchestrator, tracker, log)
	api := router.Group("/")
	api.Use(middleware.AuthMiddleware(cfg.Auth.Enabled, cfg.Auth.Secret))
	consultationHandler.SetupRoutes(api)

	router.GET("/ws", middleware.OptionalAuthMiddleware(cfg.Auth.Enabled, cfg.Auth.Secret), func(c *gin.Context) {
		hub.HandleWebSocket(c.Writer, c.Request)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if client := repoFactory.RedisClient(); client != nil {
			if err := client.Ping(ctx).Err(); err != nil {
				c.JSON(503, gin.H{
					"status":       "not_ready",
					"timestamp":    time.Now(),
					"dependencies": "unhealthy",
					"error":        err.Error(),
				})
				return
			}
		}

		c.JSON(200, gin.H{
			"status":       "ready",
			"timestamp":    time.Now(),
			"dependencies": "ok",
		})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting consultation server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down consultation server...")

	stopWorkers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracing", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("Consultation server stopped")
}
