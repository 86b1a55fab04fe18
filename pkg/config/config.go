package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Provider struct {
		Name    string `yaml:"name"`
		Enabled bool   `yaml:"enabled"`

		OpenVidu struct {
			URL    string `yaml:"url"`
			Secret string `yaml:"secret"`
		} `yaml:"openvidu"`

		LiveKit struct {
			Host      string `yaml:"host"`
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
		} `yaml:"livekit"`

		Room struct {
			MediaMode     string `yaml:"media_mode"`
			RecordingMode string `yaml:"recording_mode"`
			OutputMode    string `yaml:"output_mode"`
			Resolution    string `yaml:"resolution"`
			FrameRate     int    `yaml:"frame_rate"`
		} `yaml:"room"`

		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"provider"`

	Health struct {
		PrimaryPath  string        `yaml:"primary_path"`
		FallbackPath string        `yaml:"fallback_path"`
		// Statuses treated as healthy on top of 2xx/3xx. 401/403 mean the
		// platform is up but gating unauthenticated probes.
		HealthyStatuses  []int         `yaml:"healthy_statuses"`
		Attempts         int           `yaml:"attempts"`
		AttemptTimeout   time.Duration `yaml:"attempt_timeout"`
		RetryDelay       time.Duration `yaml:"retry_delay"`
		CacheTTL         time.Duration `yaml:"cache_ttl"`
		ProbesPerMinute  float64       `yaml:"probes_per_minute"`
	} `yaml:"health"`

	Tracker struct {
		MetricsTTL        time.Duration `yaml:"metrics_ttl"`
		SweepInterval     time.Duration `yaml:"sweep_interval"`
		ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	} `yaml:"tracker"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		Enabled bool   `yaml:"enabled"`
		Secret  string `yaml:"secret"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"rate_limiting"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	switch c.Provider.Name {
	case "openvidu":
		if c.Provider.Enabled && c.Provider.OpenVidu.URL == "" {
			return fmt.Errorf("provider.openvidu.url must not be empty when provider is enabled")
		}
	case "livekit":
		if c.Provider.Enabled && c.Provider.LiveKit.Host == "" {
			return fmt.Errorf("provider.livekit.host must not be empty when provider is enabled")
		}
	default:
		return fmt.Errorf("provider.name must be one of: openvidu, livekit (got %q)", c.Provider.Name)
	}
	if c.Provider.TokenTTL <= 0 {
		return fmt.Errorf("provider.token_ttl must be > 0")
	}
	if c.Provider.Room.FrameRate <= 0 {
		return fmt.Errorf("provider.room.frame_rate must be > 0")
	}

	if c.Health.Attempts <= 0 {
		return fmt.Errorf("health.attempts must be > 0")
	}
	if c.Health.AttemptTimeout <= 0 {
		return fmt.Errorf("health.attempt_timeout must be > 0")
	}
	if c.Health.RetryDelay < 0 {
		return fmt.Errorf("health.retry_delay must be >= 0")
	}
	for _, s := range c.Health.HealthyStatuses {
		if s < 100 || s > 599 {
			return fmt.Errorf("health.healthy_statuses contains invalid status %d", s)
		}
	}

	if c.Tracker.MetricsTTL <= 0 {
		return fmt.Errorf("tracker.metrics_ttl must be > 0")
	}
	if c.Tracker.SweepInterval <= 0 {
		return fmt.Errorf("tracker.sweep_interval must be > 0")
	}
	if c.Tracker.ConnectionTimeout <= 0 {
		return fmt.Errorf("tracker.connection_timeout must be > 0")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret must not be empty when auth.enabled=true")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when enabled")
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8085"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Provider.Name = "openvidu"
	cfg.Provider.Enabled = true
	cfg.Provider.OpenVidu.URL = "http://localhost:4443"
	cfg.Provider.OpenVidu.Secret = "MY_SECRET"
	cfg.Provider.LiveKit.Host = "http://localhost:7880"
	cfg.Provider.Room.MediaMode = "ROUTED"
	cfg.Provider.Room.RecordingMode = "MANUAL"
	cfg.Provider.Room.OutputMode = "COMPOSED"
	cfg.Provider.Room.Resolution = "1280x720"
	cfg.Provider.Room.FrameRate = 25
	cfg.Provider.TokenTTL = 2 * time.Hour

	cfg.Health.PrimaryPath = "/"
	cfg.Health.FallbackPath = "/openvidu/api/config"
	cfg.Health.HealthyStatuses = []int{401, 403}
	cfg.Health.Attempts = 3
	cfg.Health.AttemptTimeout = 10 * time.Second
	cfg.Health.RetryDelay = 2 * time.Second
	cfg.Health.CacheTTL = 30 * time.Second
	cfg.Health.ProbesPerMinute = 30

	cfg.Tracker.MetricsTTL = time.Hour
	cfg.Tracker.SweepInterval = 30 * time.Second
	cfg.Tracker.ConnectionTimeout = 60 * time.Second

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Auth.Enabled = false

	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 256

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if addr := os.Getenv("CONSULT_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if name := os.Getenv("CONSULT_PROVIDER_NAME"); name != "" {
		c.Provider.Name = name
	}
	if v := os.Getenv("CONSULT_PROVIDER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Provider.Enabled = enabled
		}
	}
	if url := os.Getenv("CONSULT_OPENVIDU_URL"); url != "" {
		c.Provider.OpenVidu.URL = url
	}
	if secret := os.Getenv("CONSULT_OPENVIDU_SECRET"); secret != "" {
		c.Provider.OpenVidu.Secret = secret
	}
	if host := os.Getenv("CONSULT_LIVEKIT_HOST"); host != "" {
		c.Provider.LiveKit.Host = host
	}
	if key := os.Getenv("CONSULT_LIVEKIT_API_KEY"); key != "" {
		c.Provider.LiveKit.APIKey = key
	}
	if secret := os.Getenv("CONSULT_LIVEKIT_API_SECRET"); secret != "" {
		c.Provider.LiveKit.APISecret = secret
	}
	if secret := os.Getenv("CONSULT_AUTH_SECRET"); secret != "" {
		c.Auth.Secret = secret
		c.Auth.Enabled = true
	}
	if addr := os.Getenv("CONSULT_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	if level := os.Getenv("CONSULT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
