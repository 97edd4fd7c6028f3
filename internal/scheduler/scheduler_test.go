package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestScheduler(t *testing.T, limit, jump int, opts ...Option) (*Scheduler, *stubClock) {
	t.Helper()
	clock := &stubClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	opts = append(opts, WithNow(clock.Now))
	return New(limit, jump, opts...), clock
}

func statusOf(t *testing.T, s *Scheduler, id uint64) Status {
	t.Helper()
	for _, item := range s.Items() {
		if item.ID == id {
			return item.Status
		}
	}
	t.Fatalf("item %d not in queue", id)
	return StatusWaiting
}

func TestSchedulerAdmitsUpToLimit(t *testing.T) {
	s, _ := newTestScheduler(t, 2, 10)

	first := s.Enqueue("a.bin", 100, 5)
	second := s.Enqueue("b.bin", 100, 5)
	third := s.Enqueue("c.bin", 100, 5)

	if got := statusOf(t, s, first); got != StatusRunning {
		t.Fatalf("first item %v, want running", got)
	}
	if got := statusOf(t, s, second); got != StatusRunning {
		t.Fatalf("second item %v, want running", got)
	}
	if got := statusOf(t, s, third); got != StatusWaiting {
		t.Fatalf("third item %v, want waiting", got)
	}

	if err := s.Complete(first); err != nil {
		t.Fatal(err)
	}
	if got := statusOf(t, s, third); got != StatusRunning {
		t.Fatalf("third item %v after a completion, want running", got)
	}
}

func TestSchedulerJumpSkipsWaitingItems(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 10)

	running := s.Enqueue("busy.bin", 100, 1)
	s.Enqueue("first.bin", 100, 1)
	s.Enqueue("second.bin", 100, 1)
	urgent := s.Enqueue("urgent.bin", 100, 10)

	if err := s.Complete(running); err != nil {
		t.Fatal(err)
	}
	if got := statusOf(t, s, urgent); got != StatusRunning {
		t.Fatalf("urgent item %v, want running ahead of the queue", got)
	}
}

func TestSchedulerCompleteGuards(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 10)

	running := s.Enqueue("a.bin", 100, 1)
	waiting := s.Enqueue("b.bin", 100, 1)

	if err := s.Complete(waiting); err != ErrNotRunning {
		t.Fatalf("completing a waiting item: %v, want ErrNotRunning", err)
	}
	if err := s.Complete(running); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(running); err != ErrItemNotFound {
		t.Fatalf("double complete: %v, want ErrItemNotFound", err)
	}
	if got := s.Metrics().Running; got != 1 {
		t.Fatalf("running %d after double complete, want 1", got)
	}
}

func TestSchedulerCancelRunningReleasesOneSlot(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 10)

	running := s.Enqueue("a.bin", 100, 1)
	waiting := s.Enqueue("b.bin", 100, 1)

	if err := s.Cancel(running); err != nil {
		t.Fatal(err)
	}
	if got := statusOf(t, s, waiting); got != StatusRunning {
		t.Fatalf("waiting item %v after cancel, want running", got)
	}
	if err := s.Cancel(running); err != ErrItemNotFound {
		t.Fatalf("double cancel: %v, want ErrItemNotFound", err)
	}
}

func TestSchedulerCancelWaitingIsPureRemoval(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 10)

	s.Enqueue("a.bin", 100, 1)
	waiting := s.Enqueue("b.bin", 100, 1)

	if err := s.Cancel(waiting); err != nil {
		t.Fatal(err)
	}
	if got := s.Metrics().Running; got != 1 {
		t.Fatalf("running %d, want 1", got)
	}
	if len(s.Items()) != 1 {
		t.Fatalf("queue length %d, want 1", len(s.Items()))
	}
}

func TestSchedulerSJFPolicy(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 100, WithPolicy(PolicySJF))

	running := s.Enqueue("big.bin", 1000, 1)
	s.Enqueue("medium.bin", 500, 1)
	small := s.Enqueue("small.bin", 10, 1)

	if err := s.Complete(running); err != nil {
		t.Fatal(err)
	}
	if got := statusOf(t, s, small); got != StatusRunning {
		t.Fatalf("smallest item %v, want running", got)
	}
}

func TestSchedulerRaisedLimitAdmitsImmediately(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 10)

	s.Enqueue("a.bin", 100, 1)
	waiting := s.Enqueue("b.bin", 100, 1)

	s.SetLimit(2)
	if got := statusOf(t, s, waiting); got != StatusRunning {
		t.Fatalf("item %v after raising the limit, want running", got)
	}
}

func TestSchedulerZeroLimitStarvesQueue(t *testing.T) {
	s, _ := newTestScheduler(t, 0, 10)

	id := s.Enqueue("a.bin", 100, 1)
	if got := statusOf(t, s, id); got != StatusWaiting {
		t.Fatalf("item %v under a zero limit, want waiting", got)
	}
}

func TestSchedulerMetrics(t *testing.T) {
	s, clock := newTestScheduler(t, 1, 10)

	first := s.Enqueue("a.bin", 100, 1)
	clock.Advance(2 * time.Second)
	second := s.Enqueue("b.bin", 100, 1)

	clock.Advance(3 * time.Second)
	if err := s.Complete(first); err != nil {
		t.Fatal(err)
	}
	clock.Advance(4 * time.Second)
	if err := s.Complete(second); err != nil {
		t.Fatal(err)
	}

	m := s.Metrics()
	if m.Completed != 2 {
		t.Fatalf("completed %d, want 2", m.Completed)
	}
	// first waited 0s, second waited 3s
	if m.AverageWait != 1500*time.Millisecond {
		t.Fatalf("average wait %v, want 1.5s", m.AverageWait)
	}
	// first took 5s arrival to end, second 7s
	if m.AverageTurnaround != 6*time.Second {
		t.Fatalf("average turnaround %v, want 6s", m.AverageTurnaround)
	}
	if m.Utilization != 0 {
		t.Fatalf("utilization %v with nothing running, want 0", m.Utilization)
	}
}

func TestSchedulerEvents(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 10)
	events := s.Subscribe()

	id := s.Enqueue("a.bin", 100, 1)

	enqueued := <-events
	if enqueued.Type != EventEnqueued || enqueued.Item.ID != id {
		t.Fatalf("first event %v item %d", enqueued.Type, enqueued.Item.ID)
	}
	started := <-events
	if started.Type != EventStarted {
		t.Fatalf("second event %v, want started", started.Type)
	}

	if err := s.Complete(id); err != nil {
		t.Fatal(err)
	}
	completed := <-events
	if completed.Type != EventCompleted {
		t.Fatalf("third event %v, want completed", completed.Type)
	}
}

func TestSchedulerWatchdogReapsStaleTransfer(t *testing.T) {
	s, clock := newTestScheduler(t, 1, 10, WithTransferTimeout(50*time.Millisecond))
	events := s.Subscribe()

	stuck := s.Enqueue("stuck.bin", 100, 1)
	waiting := s.Enqueue("next.bin", 100, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)

	clock.Advance(time.Minute)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type == EventTimedOut && event.Item.ID == stuck {
				if got := statusOf(t, s, waiting); got != StatusRunning {
					t.Fatalf("waiting item %v after the reap, want running", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("watchdog never reaped the stale transfer")
		}
	}
}
