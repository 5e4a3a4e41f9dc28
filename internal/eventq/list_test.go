package eventq

import (
	"sync"
	"testing"
)

func collect(l *List[int]) []int {
	var out []int
	evs := l.Events()
	for i := range evs {
		if !evs[i].Consumed() {
			out = append(out, evs[i].Event)
		}
	}
	return out
}

func TestPushIsInvisibleUntilSlotIndication(t *testing.T) {
	l := New[int](4)
	l.Push(1)
	l.Push(2)

	if got := len(l.Events()); got != 0 {
		t.Fatalf("expected empty working set before SlotIndication, got %d entries", got)
	}
	if got := l.PendingLen(); got != 2 {
		t.Fatalf("PendingLen = %d, want 2", got)
	}

	l.SlotIndication()
	got := collect(l)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("working set = %v, want [1 2]", got)
	}
	if l.PendingLen() != 0 {
		t.Fatalf("PendingLen after SlotIndication = %d, want 0", l.PendingLen())
	}
}

func TestConsumedEntriesStayVisibleUntilNextWindow(t *testing.T) {
	l := New[int](0)
	l.Push(10)
	l.Push(20)
	l.SlotIndication()

	evs := l.Events()
	evs[0].Consume()

	if len(l.Events()) != 2 {
		t.Fatalf("tombstoned entry must remain in the working set")
	}
	if !l.Events()[0].Consumed() {
		t.Fatalf("entry 0 should be tombstoned")
	}
	if l.Backlog() != 1 {
		t.Fatalf("Backlog = %d, want 1", l.Backlog())
	}

	l.SlotIndication()
	got := collect(l)
	if len(l.Events()) != 1 || len(got) != 1 || got[0] != 20 {
		t.Fatalf("after advance working set = %v (len %d), want [20]", got, len(l.Events()))
	}
}

func TestUnconsumedEntriesCarryOverAheadOfNewOnes(t *testing.T) {
	l := New[int](2)
	l.Push(1)
	l.SlotIndication()
	l.Push(2)
	l.SlotIndication()

	got := collect(l)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("working set = %v, want [1 2]", got)
	}
}

func TestEmptyListNeverFails(t *testing.T) {
	l := New[string](0)
	for range 3 {
		l.SlotIndication()
		if len(l.Events()) != 0 || l.Backlog() != 0 {
			t.Fatalf("expected empty working set")
		}
	}
}

func TestConcurrentProducersDeliverEveryEventOnce(t *testing.T) {
	const producers = 8
	const perProducer = 500

	l := New[int](16)
	seen := make(map[int]int, producers*perProducer)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range perProducer {
				l.Push(p*perProducer + i)
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		l.SlotIndication()
		evs := l.Events()
		for i := range evs {
			if evs[i].Consumed() {
				continue
			}
			seen[evs[i].Event]++
			evs[i].Consume()
		}
	}

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			drain()
		}
	}
	drain()

	if len(seen) != producers*perProducer {
		t.Fatalf("saw %d distinct events, want %d", len(seen), producers*perProducer)
	}
	for ev, n := range seen {
		if n != 1 {
			t.Fatalf("event %d delivered %d times", ev, n)
		}
	}
}

func TestPerProducerOrderIsPreserved(t *testing.T) {
	l := New[int](0)
	for i := range 100 {
		l.Push(i)
		if i%7 == 0 {
			l.SlotIndication()
		}
	}
	l.SlotIndication()

	got := collect(l)
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d holds %d, want FIFO order", i, v)
		}
	}
}
