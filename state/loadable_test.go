package state

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type recorder struct {
	events []string
}

func (r *recorder) observer() StateFuncs {
	return StateFuncs{
		Loading: func(m string, p int) { r.events = append(r.events, fmt.Sprintf("loading:%s:%d", m, p)) },
		Failure: func(m string, c error) { r.events = append(r.events, fmt.Sprintf("failure:%s:%v", m, c)) },
		Message: func(m string) { r.events = append(r.events, "message:"+m) },
		Empty:   func(m string) { r.events = append(r.events, "empty:"+m) },
	}
}

func TestLoadable_PostSuccessPublishes(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{})
	var got []int
	l.Watch(func(snap Snapshot[int]) {
		v, ok := snap.Value()
		if !ok {
			t.Fatalf("expected published snapshot to carry a value")
		}
		got = append(got, v)
	})

	l.PostSuccess(42)
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("expected exactly one value notification with 42, got %v", got)
	}
	if v, ok := l.Value(); !ok || v != 42 {
		t.Fatalf("expected current value 42, got %d (present=%v)", v, ok)
	}
}

func TestLoadable_StatePostsLeaveValueUntouched(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{})
	rec := &recorder{}
	l.WatchState(rec.observer())

	l.PostLoading()
	l.PostFailure(errors.New("boom"))
	l.PostMessage("hello")
	l.PostEmpty()
	if _, ok := l.Value(); ok {
		t.Fatalf("expected no value after state-only posts")
	}

	l.PostSuccess(7)
	l.PostEmptyWith("gone")
	if v, ok := l.Value(); !ok || v != 7 {
		t.Fatalf("expected empty post to keep value 7, got %d (present=%v)", v, ok)
	}
	if l.EmptyMessage() != "gone" {
		t.Fatalf("expected empty message %q, got %q", "gone", l.EmptyMessage())
	}
}

func TestLoadable_DefaultMessages(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{})
	rec := &recorder{}
	l.WatchState(rec.observer())

	l.PostLoading()
	l.PostFailure(nil)
	l.PostEmpty()

	want := []string{
		fmt.Sprintf("loading:%s:%d", DefaultLoadingMessage, IndeterminateProgress),
		fmt.Sprintf("failure:%s:%v", DefaultFailureMessage, error(nil)),
		"empty:" + DefaultEmptyMessage,
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("expected default-message events %v, got %v", want, rec.events)
	}
}

func TestLoadable_EmptyDefaultTracksSnapshot(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{Empty: "nothing here"})
	rec := &recorder{}
	l.WatchState(rec.observer())

	l.PostEmpty()
	l.PostEmptyWith("drained")
	l.PostEmpty()

	want := []string{"empty:nothing here", "empty:drained", "empty:drained"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("expected empty default to track the snapshot, got %v", rec.events)
	}
}

func TestLoadable_MustValue(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected MustValue to panic with no value")
			}
		}()
		l.MustValue()
	}()

	l.PostSuccess(9)
	if got := l.MustValue(); got != 9 {
		t.Fatalf("expected MustValue 9, got %d", got)
	}
}

func TestLoadable_WatchStateCancel(t *testing.T) {
	queue := NewQueue()
	l := NewLoadable[int](NewQueueDispatcher(queue), Messages{})
	rec := &recorder{}
	cancel := l.WatchState(rec.observer())

	l.PostMessage("first")
	queue.Flush()
	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event before cancel, got %v", rec.events)
	}

	cancel()
	cancel()
	l.PostMessage("second")
	l.PostLoading()
	queue.Flush()
	if len(rec.events) != 1 {
		t.Fatalf("expected no events after cancel, got %v", rec.events)
	}
}

func TestLoadable_StateObserverOrderAndDuplicates(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{})
	var order []string
	first := StateFuncs{Message: func(string) { order = append(order, "a") }}
	second := StateFuncs{Message: func(string) { order = append(order, "b") }}

	l.WatchState(first)
	l.WatchState(second)
	cancelDup := l.WatchState(first)

	l.PostMessage("x")
	if !reflect.DeepEqual(order, []string{"a", "b", "a"}) {
		t.Fatalf("expected duplicate registrations in order, got %v", order)
	}

	cancelDup()
	order = nil
	l.PostMessage("y")
	if !reflect.DeepEqual(order, []string{"a", "b"}) {
		t.Fatalf("expected cancel to remove one registration, got %v", order)
	}
}

func TestLoadable_DeferredPostMatchesDirect(t *testing.T) {
	run := func(d Dispatcher, flush func()) (*Loadable[int], *recorder) {
		l := NewLoadable[int](d, Messages{})
		rec := &recorder{}
		l.WatchState(rec.observer())
		l.PostLoadingWith("busy", 40)
		l.PostSuccess(5)
		l.PostEmptyWith("none")
		l.PostFailureWith(errors.New("nope"), "bad")
		if flush != nil {
			flush()
		}
		return l, rec
	}

	direct, directRec := run(Direct, nil)

	queue := NewQueue()
	deferred, deferredRec := run(NewQueueDispatcher(queue), func() {
		for queue.Len() > 0 {
			queue.Flush()
		}
	})

	dv, dok := direct.Value()
	qv, qok := deferred.Value()
	if dv != qv || dok != qok {
		t.Fatalf("expected identical values, direct=%d,%v deferred=%d,%v", dv, dok, qv, qok)
	}
	if direct.EmptyMessage() != deferred.EmptyMessage() {
		t.Fatalf("expected identical empty messages, got %q and %q",
			direct.EmptyMessage(), deferred.EmptyMessage())
	}
	if !reflect.DeepEqual(directRec.events, deferredRec.events) {
		t.Fatalf("expected identical events, direct=%v deferred=%v",
			directRec.events, deferredRec.events)
	}
}

func TestLoadable_WatchReplaysLatestSnapshot(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{})

	calls := 0
	l.Watch(func(Snapshot[int]) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no replay before any publish, got %d", calls)
	}

	l.PostSuccess(3)
	var got []int
	l.Watch(func(snap Snapshot[int]) {
		if v, ok := snap.Value(); ok {
			got = append(got, v)
		}
	})
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected replay of latest value 3, got %v", got)
	}
}

func TestLoadable_WatchInScopedToOwner(t *testing.T) {
	l := NewLoadable[int](Direct, Messages{})
	subs := NewSubscriptions(nil)
	rec := &recorder{}
	calls := 0

	l.WatchIn(subs, func(Snapshot[int]) { calls++ })
	l.WatchStateIn(subs, rec.observer())

	l.PostSuccess(1)
	l.PostMessage("hi")
	if calls != 1 || len(rec.events) != 1 {
		t.Fatalf("expected one call per channel, got %d value calls, events %v", calls, rec.events)
	}

	subs.Clear()
	l.PostSuccess(2)
	l.PostMessage("bye")
	if calls != 1 || len(rec.events) != 1 {
		t.Fatalf("expected no calls after owner cleared, got %d value calls, events %v", calls, rec.events)
	}
}

func TestNewLoaded(t *testing.T) {
	l := NewLoaded(Direct, "seed", Messages{})
	if v, ok := l.Value(); !ok || v != "seed" {
		t.Fatalf("expected seeded value, got %q (present=%v)", v, ok)
	}

	var got []string
	l.Watch(func(snap Snapshot[string]) {
		if v, ok := snap.Value(); ok {
			got = append(got, v)
		}
	})
	if len(got) != 1 || got[0] != "seed" {
		t.Fatalf("expected replay of seeded value, got %v", got)
	}
}

func TestAdapt(t *testing.T) {
	source := NewValue[*int]()
	l := Adapt(Direct, source, Messages{})
	rec := &recorder{}
	l.WatchState(rec.observer())

	if len(rec.events) != 0 {
		t.Fatalf("expected no events from an unpublished source, got %v", rec.events)
	}

	source.Set(nil)
	if !reflect.DeepEqual(rec.events, []string{"empty:" + DefaultEmptyMessage}) {
		t.Fatalf("expected empty event from nil publish, got %v", rec.events)
	}

	five := 5
	source.Set(&five)
	if v, ok := l.Value(); !ok || v != 5 {
		t.Fatalf("expected adapted success 5, got %d (present=%v)", v, ok)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected success to skip stateful callbacks, got %v", rec.events)
	}
}

func TestAdapt_AppliesPublishedSource(t *testing.T) {
	seven := 7
	source := NewValueOf(&seven)
	l := Adapt(Direct, source, Messages{})
	if v, ok := l.Value(); !ok || v != 7 {
		t.Fatalf("expected initial source value applied, got %d (present=%v)", v, ok)
	}
}
