package state

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

type watcher struct {
	id        ulid.ULID
	fn        func()
	scheduler Scheduler
}

// Value holds a current value and notifies subscribers when it changes.
// Subscribers are kept in registration order and notified sequentially in
// that order. Each registration is keyed by a ULID so removal matches a
// single registration, never every subscription sharing a callback.
type Value[T any] struct {
	mu       sync.Mutex
	current  T
	set      bool
	watchers []watcher
	equal    EqualFunc[T]
}

// NewValue creates a holder with the zero value and no published value.
func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

// NewValueOf creates a holder seeded with an already published value.
func NewValueOf[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, set: true}
}

// SetEqualFunc configures the equality check used to suppress redundant updates.
func (v *Value[T]) SetEqualFunc(fn EqualFunc[T]) {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.equal = fn
	v.mu.Unlock()
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	if v == nil {
		var zero T
		return zero
	}
	v.mu.Lock()
	current := v.current
	v.mu.Unlock()
	return current
}

// Published reports whether a value has ever been published through Set.
func (v *Value[T]) Published() bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	set := v.set
	v.mu.Unlock()
	return set
}

// Set publishes a new value and notifies subscribers if it changed.
func (v *Value[T]) Set(value T) bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	if v.set && v.equal != nil && v.equal(v.current, value) {
		v.mu.Unlock()
		return false
	}
	v.current = value
	v.set = true
	watchers := v.copyWatchersLocked()
	v.mu.Unlock()

	v.notify(watchers)
	return true
}

// Store replaces the current value without notifying subscribers and
// without marking the value as published. It exists for coordinated
// updates where the caller notifies through another channel.
func (v *Value[T]) Store(value T) {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.current = value
	v.mu.Unlock()
}

// Update replaces the value using fn.
// fn runs outside the lock; Update is not atomic across goroutines.
func (v *Value[T]) Update(fn func(T) T) bool {
	if v == nil || fn == nil {
		return false
	}
	return v.Set(fn(v.Get()))
}

// Subscribe registers a listener for change notifications.
func (v *Value[T]) Subscribe(fn func()) func() {
	return v.SubscribeWithScheduler(nil, fn)
}

// SubscribeWithScheduler registers a listener using a scheduler.
// If scheduler is nil, callbacks run synchronously.
func (v *Value[T]) SubscribeWithScheduler(scheduler Scheduler, fn func()) func() {
	if v == nil || fn == nil {
		return func() {}
	}
	id := ulid.Make()
	v.mu.Lock()
	v.watchers = append(v.watchers, watcher{id: id, fn: fn, scheduler: scheduler})
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.remove(id)
		})
	}
}

// SubscribeReplay registers a listener and, if a value has been published,
// delivers one immediate notification through scheduler.
func (v *Value[T]) SubscribeReplay(scheduler Scheduler, fn func()) func() {
	unsub := v.SubscribeWithScheduler(scheduler, fn)
	if v == nil || fn == nil {
		return unsub
	}
	if v.Published() {
		if scheduler == nil {
			fn()
		} else {
			scheduler.Schedule(fn)
		}
	}
	return unsub
}

func (v *Value[T]) remove(id ulid.ULID) {
	v.mu.Lock()
	for i, w := range v.watchers {
		if w.id == id {
			v.watchers = append(v.watchers[:i:i], v.watchers[i+1:]...)
			break
		}
	}
	v.mu.Unlock()
}

func (v *Value[T]) copyWatchersLocked() []watcher {
	if len(v.watchers) == 0 {
		return nil
	}
	watchers := make([]watcher, len(v.watchers))
	copy(watchers, v.watchers)
	return watchers
}

func (v *Value[T]) notify(watchers []watcher) {
	for _, w := range watchers {
		if w.fn == nil {
			continue
		}
		if w.scheduler == nil {
			w.fn()
			continue
		}
		w.scheduler.Schedule(w.fn)
	}
}
