package scheduler

import (
	"testing"
	"time"
)

func testItem(id uint64, priority int, size int64, arrival time.Time) *Item {
	return &Item{
		ID:          id,
		FileRef:     "file",
		Priority:    priority,
		Size:        size,
		ArrivalTime: arrival,
		Status:      StatusWaiting,
	}
}

func TestQueuePolicies(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	build := func() *queue {
		q := newQueue(10)
		q.push(testItem(1, 1, 300, base))
		q.push(testItem(2, 5, 100, base.Add(time.Second)))
		q.push(testItem(3, 3, 200, base.Add(2*time.Second)))
		return q
	}

	if got := build().next(PolicyFCFS).ID; got != 1 {
		t.Fatalf("fcfs picked %d, want 1", got)
	}
	if got := build().next(PolicySJF).ID; got != 2 {
		t.Fatalf("sjf picked %d, want 2", got)
	}
	if got := build().next(PolicyPriority).ID; got != 2 {
		t.Fatalf("priority picked %d, want 2", got)
	}
}

func TestQueuePolicyTieBreaksOnArrival(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	q := newQueue(10)
	q.push(testItem(2, 5, 100, base.Add(time.Second)))
	q.push(testItem(1, 5, 100, base))

	if got := q.next(PolicyPriority).ID; got != 1 {
		t.Fatalf("tie should go to the earlier arrival, picked %d", got)
	}
	if got := q.next(PolicySJF).ID; got != 1 {
		t.Fatalf("sjf tie should go to the earlier arrival, picked %d", got)
	}
}

func TestQueueJumpThreshold(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	q := newQueue(10)
	q.push(testItem(1, 1, 100, base))
	q.push(testItem(2, 1, 100, base.Add(time.Second)))
	q.push(testItem(3, 10, 100, base.Add(2*time.Second)))

	if q.items[0].ID != 3 {
		t.Fatalf("jump item should sit at the head, got %d", q.items[0].ID)
	}
	if got := q.next(PolicyFCFS).ID; got != 3 {
		t.Fatalf("jump item should dequeue first, picked %d", got)
	}
}

func TestQueueReorderRewritesPriorities(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	q := newQueue(100)
	q.push(testItem(1, 1, 100, base))
	q.push(testItem(2, 2, 100, base.Add(time.Second)))
	q.push(testItem(3, 3, 100, base.Add(2*time.Second)))

	q.reorder([]uint64{3, 1, 2})

	if q.items[0].ID != 3 || q.items[1].ID != 1 || q.items[2].ID != 2 {
		t.Fatalf("order after reorder: %d %d %d", q.items[0].ID, q.items[1].ID, q.items[2].ID)
	}
	if q.items[0].Priority <= q.items[1].Priority || q.items[1].Priority <= q.items[2].Priority {
		t.Fatal("priorities should descend from the head")
	}

	if got := q.next(PolicyPriority).ID; got != 3 {
		t.Fatalf("reordered head should dequeue first, picked %d", got)
	}
}

func TestQueueReorderKeepsUnlistedItems(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	q := newQueue(100)
	q.push(testItem(1, 1, 100, base))
	q.push(testItem(2, 1, 100, base.Add(time.Second)))
	q.push(testItem(3, 1, 100, base.Add(2*time.Second)))

	q.reorder([]uint64{2})

	if len(q.items) != 3 {
		t.Fatalf("reorder dropped items, left %d", len(q.items))
	}
	if q.items[0].ID != 2 {
		t.Fatalf("listed item should lead, got %d", q.items[0].ID)
	}
}
