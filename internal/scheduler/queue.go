package scheduler

import (
	"sort"
	"time"
)

type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Policy decides the order waiting items are admitted in.
type Policy int

const (
	// PolicyFCFS admits in arrival order.
	PolicyFCFS Policy = iota
	// PolicySJF admits the smallest waiting item first.
	PolicySJF
	// PolicyPriority admits the highest priority first.
	PolicyPriority
)

func (p Policy) String() string {
	switch p {
	case PolicyFCFS:
		return "fcfs"
	case PolicySJF:
		return "sjf"
	case PolicyPriority:
		return "priority"
	default:
		return "unknown"
	}
}

// Item is one pending or in-flight transfer request. Status only moves
// forward; cancellation removes the item instead of rewinding it.
type Item struct {
	ID          uint64
	FileRef     string
	Priority    int
	Size        int64
	ArrivalTime time.Time
	StartTime   time.Time
	EndTime     time.Time
	Status      Status
}

// queue keeps items in their manual order. Policies are applied as a
// sort before each dequeue, so switching policy never loses the
// underlying ordering.
type queue struct {
	items         []*Item
	jumpThreshold int
}

func newQueue(jumpThreshold int) *queue {
	return &queue{jumpThreshold: jumpThreshold}
}

// push inserts an item. Priorities at or above the jump threshold go to
// the head, ahead of everything already waiting.
func (q *queue) push(item *Item) {
	if item.Priority >= q.jumpThreshold {
		q.items = append([]*Item{item}, q.items...)
		return
	}
	q.items = append(q.items, item)
}

// next returns the first waiting item under the given policy.
func (q *queue) next(policy Policy) *Item {
	q.sortBy(policy)
	for _, item := range q.items {
		if item.Status == StatusWaiting {
			return item
		}
	}
	return nil
}

func (q *queue) sortBy(policy Policy) {
	switch policy {
	case PolicySJF:
		sort.SliceStable(q.items, func(i, j int) bool {
			if q.items[i].Size != q.items[j].Size {
				return q.items[i].Size < q.items[j].Size
			}
			return q.items[i].ArrivalTime.Before(q.items[j].ArrivalTime)
		})
	case PolicyPriority:
		sort.SliceStable(q.items, func(i, j int) bool {
			if q.items[i].Priority != q.items[j].Priority {
				return q.items[i].Priority > q.items[j].Priority
			}
			return q.items[i].ArrivalTime.Before(q.items[j].ArrivalTime)
		})
	default:
		// FCFS keeps the queue order. Appends already arrive in order;
		// jump insertions and manual reordering stay where they were put.
	}
}

func (q *queue) find(id uint64) *Item {
	for _, item := range q.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (q *queue) remove(id uint64) *Item {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item
		}
	}
	return nil
}

// reorder rewrites the queue to match ids, dropping nothing: listed
// items take the new order, unlisted ones keep their relative order at
// the tail. Priorities are overwritten so the head holds the highest.
func (q *queue) reorder(ids []uint64) {
	seen := make(map[uint64]bool, len(ids))
	var ordered []*Item
	for _, id := range ids {
		if item := q.find(id); item != nil && !seen[id] {
			ordered = append(ordered, item)
			seen[id] = true
		}
	}
	for _, item := range q.items {
		if !seen[item.ID] {
			ordered = append(ordered, item)
		}
	}
	q.items = ordered

	for i, item := range q.items {
		item.Priority = len(q.items) - i
	}
}

func (q *queue) snapshot() []Item {
	out := make([]Item, len(q.items))
	for i, item := range q.items {
		out[i] = *item
	}
	return out
}
