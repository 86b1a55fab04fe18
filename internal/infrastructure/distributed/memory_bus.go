package distributed

import (
	"context"
	"sync"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
)

// MemoryBus is the single-process event bus used when Redis is disabled.
// Handlers run synchronously on the emitter's goroutine.
type MemoryBus struct {
	handlers []func(*domain.ConsultationEvent)
	mu       sync.RWMutex
}

var _ ports.EventBus = (*MemoryBus)(nil)

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Emit(ctx context.Context, event *domain.ConsultationEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := append(([]func(*domain.ConsultationEvent))(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, handler func(*domain.ConsultationEvent)) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}
