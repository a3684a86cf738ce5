package state

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// IndeterminateProgress marks a loading notification with unknown progress.
const IndeterminateProgress = -1

// Default texts used when Messages fields are left empty.
const (
	DefaultLoadingMessage = "Loading..."
	DefaultFailureMessage = "Something went wrong."
	DefaultEmptyMessage   = "No data available."
)

// Messages carries the default texts a Loadable falls back to when a post
// operation is called without an explicit message.
type Messages struct {
	Loading string
	Failure string
	Empty   string
}

func (m Messages) withDefaults() Messages {
	if m.Loading == "" {
		m.Loading = DefaultLoadingMessage
	}
	if m.Failure == "" {
		m.Failure = DefaultFailureMessage
	}
	if m.Empty == "" {
		m.Empty = DefaultEmptyMessage
	}
	return m
}

// Snapshot is what a Loadable publishes through its value channel: an
// optional payload plus the message associated with the empty state. The
// two fields are independent; an empty notification never clears the payload.
type Snapshot[T any] struct {
	value        T
	present      bool
	emptyMessage string
}

// Value returns the payload and whether one is present.
func (s Snapshot[T]) Value() (T, bool) {
	return s.value, s.present
}

// EmptyMessage returns the message associated with the empty state.
func (s Snapshot[T]) EmptyMessage() string {
	return s.emptyMessage
}

type stateWatcher struct {
	id  ulid.ULID
	obs StateObserver
}

// Loadable wraps an observable value with a discrete load state. Payloads
// travel through the value channel; loading, failure, message and empty
// notifications go to registered StateObservers, in registration order.
//
// Every post operation is marshalled onto the UI goroutine of the
// configured Dispatcher: it runs synchronously when the caller is already
// there and is enqueued whole (including default-message resolution)
// otherwise. All mutation therefore happens on the UI goroutine.
type Loadable[T any] struct {
	dispatcher Dispatcher
	messages   Messages
	value      *Value[Snapshot[T]]

	mu       sync.Mutex
	stateful []stateWatcher
}

// NewLoadable creates a holder with no published value. A nil dispatcher
// runs every post synchronously, like Direct.
func NewLoadable[T any](d Dispatcher, msgs Messages) *Loadable[T] {
	msgs = msgs.withDefaults()
	l := &Loadable[T]{
		dispatcher: d,
		messages:   msgs,
		value:      NewValue[Snapshot[T]](),
	}
	l.value.Store(Snapshot[T]{emptyMessage: msgs.Empty})
	return l
}

// NewLoaded creates a holder seeded with an initial success value.
func NewLoaded[T any](d Dispatcher, value T, msgs Messages) *Loadable[T] {
	l := NewLoadable[T](d, msgs)
	snap := l.value.Get()
	snap.value = value
	snap.present = true
	l.value.Set(snap)
	return l
}

// Adapt builds a holder that tracks source: a published nil becomes an
// empty notification, a published non-nil a success. The current source
// value is applied once up front, and the holder keeps following source for
// its whole lifetime.
func Adapt[T any](d Dispatcher, source Readable[*T], msgs Messages) *Loadable[T] {
	l := NewLoadable[T](d, msgs)
	if source == nil {
		return l
	}
	apply := func() {
		if p := source.Get(); p == nil {
			l.PostEmpty()
		} else {
			l.PostSuccess(*p)
		}
	}
	if p, ok := source.(interface{ Published() bool }); !ok || p.Published() {
		apply()
	}
	source.Subscribe(apply)
	return l
}

// Value returns the current payload and whether one is present.
func (l *Loadable[T]) Value() (T, bool) {
	if l == nil {
		var zero T
		return zero, false
	}
	return l.value.Get().Value()
}

// MustValue returns the current payload. It panics when no value has been
// posted; callers use it only where a value is known to be present.
func (l *Loadable[T]) MustValue() T {
	v, ok := l.Value()
	if !ok {
		panic("loadable: no value present")
	}
	return v
}

// Snapshot returns the current snapshot.
func (l *Loadable[T]) Snapshot() Snapshot[T] {
	if l == nil {
		return Snapshot[T]{}
	}
	return l.value.Get()
}

// EmptyMessage returns the current empty-state message.
func (l *Loadable[T]) EmptyMessage() string {
	return l.Snapshot().EmptyMessage()
}

// Watch registers a plain observer on the value channel. If a snapshot has
// been published, the latest one is replayed on the UI goroutine. The
// returned cancel is idempotent.
func (l *Loadable[T]) Watch(fn func(Snapshot[T])) func() {
	if l == nil || fn == nil {
		return func() {}
	}
	notify := func() { fn(l.value.Get()) }
	unsub := l.value.Subscribe(notify)
	if l.value.Published() {
		l.post(func() {
			if l.value.Published() {
				notify()
			}
		})
	}
	return unsub
}

// WatchState registers a stateful observer. Duplicate registrations are
// allowed; each gets its own token, and cancel removes that registration
// only. The returned cancel is idempotent.
func (l *Loadable[T]) WatchState(obs StateObserver) func() {
	if l == nil || obs == nil {
		return func() {}
	}
	id := ulid.Make()
	l.mu.Lock()
	l.stateful = append(l.stateful, stateWatcher{id: id, obs: obs})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			for i, w := range l.stateful {
				if w.id == id {
					l.stateful = append(l.stateful[:i:i], l.stateful[i+1:]...)
					break
				}
			}
			l.mu.Unlock()
		})
	}
}

// WatchIn registers a plain observer scoped to subs: clearing subs revokes it.
func (l *Loadable[T]) WatchIn(subs *Subscriptions, fn func(Snapshot[T])) {
	if subs == nil {
		return
	}
	subs.Add(l.Watch(fn))
}

// WatchStateIn registers a stateful observer scoped to subs.
func (l *Loadable[T]) WatchStateIn(subs *Subscriptions, obs StateObserver) {
	if subs == nil {
		return
	}
	subs.Add(l.WatchState(obs))
}

// PostLoading notifies stateful observers with the default loading message
// and indeterminate progress. The snapshot is untouched.
func (l *Loadable[T]) PostLoading() {
	if l == nil {
		return
	}
	l.post(func() {
		l.eachState(func(o StateObserver) { o.OnLoading(l.messages.Loading, IndeterminateProgress) })
	})
}

// PostLoadingWith notifies stateful observers of a load in progress.
func (l *Loadable[T]) PostLoadingWith(message string, progress int) {
	if l == nil {
		return
	}
	l.post(func() {
		l.eachState(func(o StateObserver) { o.OnLoading(message, progress) })
	})
}

// PostSuccess publishes value through the value channel. No stateful
// callback fires: success travels as a value change only.
func (l *Loadable[T]) PostSuccess(value T) {
	if l == nil {
		return
	}
	l.post(func() {
		snap := l.value.Get()
		snap.value = value
		snap.present = true
		l.value.Set(snap)
	})
}

// PostFailure notifies stateful observers with the default failure message.
// The snapshot is untouched; cause is passed through uninterpreted.
func (l *Loadable[T]) PostFailure(cause error) {
	if l == nil {
		return
	}
	l.post(func() {
		l.eachState(func(o StateObserver) { o.OnFailure(l.messages.Failure, cause) })
	})
}

// PostFailureWith notifies stateful observers of a failure.
func (l *Loadable[T]) PostFailureWith(cause error, message string) {
	if l == nil {
		return
	}
	l.post(func() {
		l.eachState(func(o StateObserver) { o.OnFailure(message, cause) })
	})
}

// PostMessage notifies stateful observers of a transient message.
func (l *Loadable[T]) PostMessage(message string) {
	if l == nil {
		return
	}
	l.post(func() {
		l.eachState(func(o StateObserver) { o.OnMessage(message) })
	})
}

// PostEmpty notifies stateful observers with the current snapshot's empty
// message. The message is resolved on the UI goroutine, so a deferred post
// sees the latest snapshot.
func (l *Loadable[T]) PostEmpty() {
	if l == nil {
		return
	}
	l.post(func() {
		l.empty(l.value.Get().EmptyMessage())
	})
}

// PostEmptyWith stores message as the snapshot's empty message, leaving the
// payload in place, then notifies stateful observers.
func (l *Loadable[T]) PostEmptyWith(message string) {
	if l == nil {
		return
	}
	l.post(func() {
		l.empty(message)
	})
}

func (l *Loadable[T]) empty(message string) {
	snap := l.value.Get()
	snap.emptyMessage = message
	l.value.Store(snap)
	l.eachState(func(o StateObserver) { o.OnEmpty(message) })
}

// post runs fn now when the caller is on the UI goroutine, and hands the
// whole operation to the dispatcher otherwise.
func (l *Loadable[T]) post(fn func()) {
	if l.dispatcher == nil || l.dispatcher.Current() {
		fn()
		return
	}
	l.dispatcher.Dispatch(fn)
}

func (l *Loadable[T]) eachState(fn func(StateObserver)) {
	l.mu.Lock()
	watchers := make([]stateWatcher, len(l.stateful))
	copy(watchers, l.stateful)
	l.mu.Unlock()
	for _, w := range watchers {
		fn(w.obs)
	}
}
