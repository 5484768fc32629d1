package jobqueue

import (
	"context"
	"errors"
	"testing"
)

func TestDrainSyncFIFOAndReentrant(t *testing.T) {
	q := New()
	var order []int
	q.Enqueue(func() error { order = append(order, 1); return nil })
	q.Enqueue(func() error {
		order = append(order, 2)
		q.Enqueue(func() error { order = append(order, 3); return nil })
		return nil
	})

	if err := q.DrainSync(); err != nil {
		t.Fatalf("DrainSync: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", order)
	}
	if q.Pending() {
		t.Fatal("expected queue empty after drain")
	}
}

func TestDrainSyncStopsOnError(t *testing.T) {
	q := New()
	boom := errors.New("boom")
	ran := false
	q.Enqueue(func() error { return boom })
	q.Enqueue(func() error { ran = true; return nil })

	if err := q.DrainSync(); err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if ran {
		t.Fatal("job after the failing one should not have run")
	}
}

func TestDrainAsyncOrdersFollowUpBeforeNextPoll(t *testing.T) {
	q := New()
	var order []string

	q.EnqueueAsync(func(ctx context.Context) (Job, error) {
		order = append(order, "async-1")
		return func() error { order = append(order, "sync-1"); return nil }, nil
	})
	q.EnqueueAsync(func(ctx context.Context) (Job, error) {
		order = append(order, "async-2")
		return func() error { order = append(order, "sync-2"); return nil }, nil
	})

	if err := q.DrainAsync(context.Background()); err != nil {
		t.Fatalf("DrainAsync: %v", err)
	}
	want := []string{"async-1", "sync-1", "async-2", "sync-2"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestEnqueueRespectsCapacity(t *testing.T) {
	q := New()
	q.SetCapacity(1)
	if err := q.Enqueue(func() error { return nil }); err != nil {
		t.Fatalf("first enqueue should succeed, got %v", err)
	}
	if err := q.Enqueue(func() error { return nil }); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDrainAsyncFollowUpBypassesCapacity(t *testing.T) {
	q := New()
	q.SetCapacity(1)
	ran := false
	if err := q.EnqueueAsync(func(ctx context.Context) (Job, error) {
		return func() error { ran = true; return nil }, nil
	}); err != nil {
		t.Fatalf("enqueue async: %v", err)
	}
	if err := q.DrainAsync(context.Background()); err != nil {
		t.Fatalf("DrainAsync: %v", err)
	}
	if !ran {
		t.Fatal("follow-up sync job should have run despite capacity 1")
	}
}

func TestDrainAsyncRespectsCancellation(t *testing.T) {
	q := New()
	q.EnqueueAsync(func(ctx context.Context) (Job, error) { return nil, nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.DrainAsync(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}
