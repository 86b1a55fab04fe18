package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestMemoryQueue_EnqueueAndProcess(t *testing.T) {
	q := NewMemoryQueue(zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processed := make(chan string, 1)
	q.Register("test.job", func(ctx context.Context, job *Job) error {
		var payload struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}
		processed <- payload.Value
		return nil
	})

	go q.Run(ctx)

	err := q.Enqueue(ctx, "test.job", map[string]string{"value": "hello"})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-processed:
		if got != "hello" {
			t.Fatalf("payload = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("job never processed")
	}
}

func TestMemoryQueue_UnknownJobTypeDropped(t *testing.T) {
	q := NewMemoryQueue(zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Run(ctx)

	// Must not panic or block the loop.
	if err := q.Enqueue(ctx, "nobody.handles.this", map[string]string{}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
}

func TestMemoryQueue_FullQueueRejects(t *testing.T) {
	q := NewMemoryQueue(zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	// No consumer running; fill the buffer.
	var err error
	for i := 0; i < 200; i++ {
		if err = q.Enqueue(ctx, "test.job", i); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("expected enqueue to fail once the buffer is full")
	}
}
