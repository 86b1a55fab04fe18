package repositories

import (
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/repositories/memory"
	redisrepo "github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/infrastructure/repositories/redis"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory creates repositories with memory fallback when Redis is
// disabled or unreachable. An unreachable Redis must not abort startup;
// video is auxiliary and the owning process has to come up regardless.
type Factory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewFactory connects to Redis when enabled and remembers the outcome.
func NewFactory(cfg *config.Config, logger *zap.SugaredLogger) *Factory {
	factory := &Factory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory stores",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis stores")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory stores")
	}
	return factory
}

// RedisClient exposes the shared client for collaborators that need raw
// pub/sub or list access (event bus, job queue). Nil when on memory.
func (f *Factory) RedisClient() *redis.Client {
	if f.useRedis {
		return f.redisClient
	}
	return nil
}

func (f *Factory) CreateSessionRepository() ports.SessionRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewSessionRepository(f.redisClient)
	}
	return memory.NewSessionRepository()
}

func (f *Factory) CreateMetricsStore() ports.MetricsStore {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewMetricsStore(f.redisClient)
	}
	return memory.NewMetricsStore()
}

// Close releases the Redis connection if one was established.
func (f *Factory) Close() error {
	if f.redisClient != nil {
		return f.redisClient.Close()
	}
	return nil
}
