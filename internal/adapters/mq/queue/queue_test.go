package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/groove/internal/domain/model"
)

func tierEvent(beat int) model.Event {
	return model.Event{Kind: model.KindTier, SessionID: "s1", SongMD5: "song", Beat: beat, Tier: "GOOD"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, tierEvent(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	e := <-q.Dequeue(ctx)
	if e.Beat != 1 || e.Kind != model.KindTier {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, tierEvent(1)) || !q.Enqueue(ctx, tierEvent(2)) {
		t.Fatal("expected first two enqueues to succeed")
	}

	done := make(chan bool, 1)
	go func() { done <- q.Enqueue(ctx, tierEvent(3)) }()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected enqueue to fail when full")
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	if got := q.Dropped(model.KindTier); got != 1 {
		t.Errorf("expected 1 dropped tier event, got %d", got)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_GameEndWaitsForRoom(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if !q.Enqueue(ctx, tierEvent(1)) {
		t.Fatal("expected first enqueue to succeed")
	}

	done := make(chan bool, 1)
	go func() { done <- q.Enqueue(ctx, model.Event{Kind: model.KindGameEnd, SessionID: "s1"}) }()

	select {
	case <-done:
		t.Fatal("game_end returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	events := q.Dequeue(ctx)
	if e := <-events; e.Kind != model.KindTier {
		t.Fatalf("expected the tier event first, got %s", e.Kind)
	}
	select {
	case ok := <-done:
		if !ok {
			t.Error("expected game_end to be queued once there was room")
		}
	case <-time.After(time.Second):
		t.Fatal("game_end still blocked after a slot freed")
	}
	if got := q.Dropped(model.KindGameEnd); got != 0 {
		t.Errorf("expected no dropped game_end, got %d", got)
	}
}

func TestInMemoryQueue_GameEndGivesUpOnCancel(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())

	if !q.Enqueue(ctx, tierEvent(1)) {
		t.Fatal("expected first enqueue to succeed")
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if q.Enqueue(ctx, model.Event{Kind: model.KindGameEnd}) {
		t.Error("expected game_end to be dropped after cancel")
	}
	if got := q.Dropped(model.KindGameEnd); got != 1 {
		t.Errorf("expected 1 dropped game_end, got %d", got)
	}
}

func TestInMemoryQueue_BufferCappedAtCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1), WithBufferSize(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, tierEvent(1)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, tierEvent(2)) {
		t.Error("expected second enqueue to be refused")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, tierEvent(1)) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}

func TestInMemoryQueue_ConcurrentProducersConsumers(t *testing.T) {
	const producers, perProducer = 8, 50
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range perProducer {
				if !q.Enqueue(ctx, tierEvent(p*perProducer+i)) {
					t.Errorf("enqueue %d/%d failed", p, i)
				}
			}
		}(p)
	}
	wg.Wait()
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	seen := make(map[int]bool)
	var mu sync.Mutex
	var consumers sync.WaitGroup
	for range 3 {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for e := range q.Dequeue(ctx) {
				mu.Lock()
				if seen[e.Beat] {
					t.Errorf("beat %d delivered twice", e.Beat)
				}
				seen[e.Beat] = true
				mu.Unlock()
			}
		}()
	}
	consumers.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d events, got %d", producers*perProducer, len(seen))
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	q.Enqueue(ctx, tierEvent(1))
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, tierEvent(2)) {
		t.Error("expected enqueue after close to fail")
	}

	var got []int
	for e := range q.Dequeue(ctx) {
		got = append(got, e.Beat)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected queued event to drain after close, got %v", got)
	}
}
