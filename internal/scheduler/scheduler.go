package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrItemNotFound = errors.New("scheduler: item not found")
	ErrNotRunning   = errors.New("scheduler: item is not running")
)

type EventType int

const (
	EventEnqueued EventType = iota
	EventStarted
	EventCompleted
	EventCancelled
	EventTimedOut
)

func (e EventType) String() string {
	switch e {
	case EventEnqueued:
		return "enqueued"
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Event is a state change pushed to subscribers. The scheduler never
// waits on a subscriber; a full channel loses the event.
type Event struct {
	Type EventType
	Item Item
}

const eventBuffer = 32

// Metrics are derived from completed transfers plus the live gate.
type Metrics struct {
	AverageWait       time.Duration
	AverageTurnaround time.Duration
	Utilization       float64
	Waiting           int
	Running           int
	Completed         int
}

// Scheduler gates and orders transfer requests for one downloading
// peer. All methods share one mutex; admission is always a
// non-blocking check, a full gate just leaves items waiting.
type Scheduler struct {
	mu     sync.Mutex
	gate   *Gate
	queue  *queue
	policy Policy
	done   []*Item

	nextID  uint64
	now     func() time.Time
	timeout time.Duration

	subscribers []chan Event
}

type Option func(*Scheduler)

func WithPolicy(p Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// WithTransferTimeout arms the watchdog. Zero disables it.
func WithTransferTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(limit, jumpThreshold int, opts ...Option) *Scheduler {
	s := &Scheduler{
		gate:   NewGate(limit),
		queue:  newQueue(jumpThreshold),
		policy: PolicyFCFS,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe returns a channel of state-change events. Subscribers
// cannot influence scheduling decisions.
func (s *Scheduler) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, eventBuffer)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Enqueue adds a transfer request and immediately tries to admit
// whatever the gate allows.
func (s *Scheduler) Enqueue(fileRef string, size int64, priority int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	item := &Item{
		ID:          s.nextID,
		FileRef:     fileRef,
		Priority:    priority,
		Size:        size,
		ArrivalTime: s.now(),
		Status:      StatusWaiting,
	}
	s.queue.push(item)
	s.emitLocked(Event{Type: EventEnqueued, Item: *item})

	s.fillLocked()
	return item.ID
}

// Complete marks a running transfer finished, frees its slot, and
// admits the next waiting item. Completing anything not running is an
// error, so the slot can never be released twice on the same item.
func (s *Scheduler) Complete(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.queue.find(id)
	if item == nil {
		return ErrItemNotFound
	}
	if item.Status != StatusRunning {
		return ErrNotRunning
	}

	item.Status = StatusCompleted
	item.EndTime = s.now()
	s.queue.remove(id)
	s.done = append(s.done, item)
	s.gate.Release()
	s.emitLocked(Event{Type: EventCompleted, Item: *item})

	s.fillLocked()
	return nil
}

// Cancel removes an item from any state. Cancelling a running item
// releases exactly one slot.
func (s *Scheduler) Cancel(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(id, EventCancelled)
}

func (s *Scheduler) cancelLocked(id uint64, event EventType) error {
	item := s.queue.remove(id)
	if item == nil {
		return ErrItemNotFound
	}

	if item.Status == StatusRunning {
		s.gate.Release()
	}
	s.emitLocked(Event{Type: event, Item: *item})

	s.fillLocked()
	return nil
}

// SetPolicy swaps the ordering applied before each dequeue.
func (s *Scheduler) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

// SetLimit resizes the gate live. A raised limit admits waiting items
// right away; a lowered one only constrains future admissions.
func (s *Scheduler) SetLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate.SetLimit(limit)
	s.fillLocked()
}

// Reorder applies a manual ordering, rewriting priorities to match the
// new positions.
func (s *Scheduler) Reorder(ids []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.reorder(ids)
}

// Items returns a snapshot of the live queue.
func (s *Scheduler) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.snapshot()
}

func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Metrics{
		Completed: len(s.done),
		Running:   s.gate.InUse(),
	}
	for _, item := range s.queue.items {
		if item.Status == StatusWaiting {
			m.Waiting++
		}
	}
	if s.gate.Limit() > 0 {
		m.Utilization = float64(s.gate.InUse()) / float64(s.gate.Limit())
	}

	if len(s.done) == 0 {
		return m
	}
	var wait, turnaround time.Duration
	for _, item := range s.done {
		wait += item.StartTime.Sub(item.ArrivalTime)
		turnaround += item.EndTime.Sub(item.ArrivalTime)
	}
	m.AverageWait = wait / time.Duration(len(s.done))
	m.AverageTurnaround = turnaround / time.Duration(len(s.done))
	return m
}

// Watch runs the transfer watchdog until ctx is cancelled. A running
// item older than the timeout is cancelled and its slot reclaimed, so
// a wedged transfer cannot leak capacity forever.
func (s *Scheduler) Watch(ctx context.Context) {
	if s.timeout <= 0 {
		return
	}

	ticker := time.NewTicker(s.timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reapStale()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) reapStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var stale []uint64
	for _, item := range s.queue.items {
		if item.Status == StatusRunning && now.Sub(item.StartTime) > s.timeout {
			stale = append(stale, item.ID)
		}
	}
	for _, id := range stale {
		s.cancelLocked(id, EventTimedOut)
	}
}

// fillLocked admits waiting items while the gate has room.
func (s *Scheduler) fillLocked() {
	for {
		item := s.queue.next(s.policy)
		if item == nil {
			return
		}
		if !s.gate.TryAcquire() {
			return
		}
		item.Status = StatusRunning
		item.StartTime = s.now()
		s.emitLocked(Event{Type: EventStarted, Item: *item})
	}
}

func (s *Scheduler) emitLocked(event Event) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
