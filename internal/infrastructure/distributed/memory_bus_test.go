package distributed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
)

func TestMemoryBus_DeliversToSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []*domain.ConsultationEvent
	ready := make(chan struct{})

	go func() {
		close(ready)
		bus.Subscribe(ctx, func(event *domain.ConsultationEvent) {
			mu.Lock()
			received = append(received, event)
			mu.Unlock()
		})
	}()
	<-ready
	time.Sleep(10 * time.Millisecond)

	event := &domain.ConsultationEvent{
		Type:          domain.EventConsultationStarted,
		AppointmentID: "apt-1",
		Timestamp:     time.Now(),
	}
	if err := bus.Emit(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 1 {
			if received[0].AppointmentID != "apt-1" {
				t.Fatalf("wrong event delivered: %+v", received[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("event never delivered")
}

func TestMemoryBus_EmitWithoutSubscribersIsFine(t *testing.T) {
	bus := NewMemoryBus()
	err := bus.Emit(context.Background(), &domain.ConsultationEvent{
		Type:          domain.EventConsultationEnded,
		AppointmentID: "apt-2",
	})
	if err != nil {
		t.Fatalf("emit without subscribers must not fail: %v", err)
	}
}
