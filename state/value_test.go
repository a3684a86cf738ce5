package state

import "testing"

func TestValue_SetAndSubscribe(t *testing.T) {
	val := NewValue[int]()
	calls := 0

	unsub := val.Subscribe(func() {
		calls++
	})

	if calls != 0 {
		t.Fatalf("expected no calls before set, got %d", calls)
	}
	if !val.Set(2) {
		t.Fatalf("expected set to report change")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call after set, got %d", calls)
	}

	unsub()
	unsub()
	val.Set(3)
	if calls != 1 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
}

func TestValue_NotifyOrder(t *testing.T) {
	val := NewValue[int]()
	var order []int

	val.Subscribe(func() { order = append(order, 1) })
	second := val.Subscribe(func() { order = append(order, 2) })
	val.Subscribe(func() { order = append(order, 3) })

	val.Set(1)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected registration-order delivery, got %v", order)
	}

	second()
	order = nil
	val.Set(2)
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("expected remaining subscribers in order, got %v", order)
	}
}

func TestValue_SetEqualFunc(t *testing.T) {
	val := NewValueOf(5)
	val.SetEqualFunc(EqualComparable[int])

	if val.Set(5) {
		t.Fatalf("expected set of equal value to report no change")
	}
	if !val.Set(6) {
		t.Fatalf("expected set of new value to report change")
	}
}

func TestValue_StoreIsSilent(t *testing.T) {
	val := NewValue[int]()
	calls := 0
	val.Subscribe(func() { calls++ })

	val.Store(7)
	if calls != 0 {
		t.Fatalf("expected no notification from store, got %d", calls)
	}
	if val.Get() != 7 {
		t.Fatalf("expected stored value 7, got %d", val.Get())
	}
	if val.Published() {
		t.Fatalf("expected store to leave the value unpublished")
	}

	val.Set(8)
	if !val.Published() {
		t.Fatalf("expected set to publish")
	}
}

func TestValue_SubscribeReplay(t *testing.T) {
	fresh := NewValue[int]()
	calls := 0
	fresh.SubscribeReplay(nil, func() { calls++ })
	if calls != 0 {
		t.Fatalf("expected no replay before any publish, got %d", calls)
	}

	seeded := NewValueOf(3)
	got := -1
	seeded.SubscribeReplay(nil, func() { got = seeded.Get() })
	if got != 3 {
		t.Fatalf("expected replay of seeded value 3, got %d", got)
	}

	queue := NewQueue()
	queued := 0
	seeded.SubscribeReplay(queue, func() { queued++ })
	if queued != 0 {
		t.Fatalf("expected replay to be queued, got %d", queued)
	}
	if flushed := queue.Flush(); flushed != 1 {
		t.Fatalf("expected 1 replay flushed, got %d", flushed)
	}
	if queued != 1 {
		t.Fatalf("expected replay after flush, got %d", queued)
	}
}

func TestValue_Update(t *testing.T) {
	val := NewValueOf(1)
	val.SetEqualFunc(EqualComparable[int])

	if !val.Update(func(v int) int { return v + 1 }) {
		t.Fatalf("expected update to report change")
	}
	if val.Get() != 2 {
		t.Fatalf("expected updated value 2, got %d", val.Get())
	}
	if val.Update(nil) {
		t.Fatalf("expected nil update to report no change")
	}
}
