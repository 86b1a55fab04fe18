package provider

import (
	"fmt"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/provider/livekit"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/provider/openvidu"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/config"

	"go.uber.org/zap"
)

// New selects the active provider adapter from config. Provider selection
// is a deployment-time decision: an unknown or disabled provider fails
// startup here, and the orchestrator never switches adapters at runtime.
func New(cfg *config.Config, logger *zap.SugaredLogger) (ports.ProviderAdapter, error) {
	if !cfg.Provider.Enabled {
		return nil, domain.ErrProviderDisabled
	}

	switch cfg.Provider.Name {
	case "openvidu":
		return openvidu.New(
			cfg.Provider.OpenVidu.URL,
			cfg.Provider.OpenVidu.Secret,
			cfg.Provider.TokenTTL,
			logger,
		), nil
	case "livekit":
		return livekit.New(
			cfg.Provider.LiveKit.Host,
			cfg.Provider.LiveKit.APIKey,
			cfg.Provider.LiveKit.APISecret,
			cfg.Provider.TokenTTL,
			logger,
		), nil
	}
	return nil, fmt.Errorf("unknown video provider %q", cfg.Provider.Name)
}

// RoomOptionsFromConfig maps the configured fixed room policy into
// adapter options.
func RoomOptionsFromConfig(cfg *config.Config) ports.RoomOptions {
	return ports.RoomOptions{
		MediaMode:     cfg.Provider.Room.MediaMode,
		RecordingMode: cfg.Provider.Room.RecordingMode,
		OutputMode:    cfg.Provider.Room.OutputMode,
		Resolution:    cfg.Provider.Room.Resolution,
		FrameRate:     cfg.Provider.Room.FrameRate,
	}
}
