package state

import "sync"

// Derived is an observable produced by Map or SwitchMap. It holds the last
// value it forwarded and stays attached to its source only while it has at
// least one subscriber of its own: the first subscription activates it, the
// last cancellation detaches it again.
type Derived[R any] struct {
	out *Value[R]

	mu         sync.Mutex
	activate   func() func()
	deactivate func()
	active     int
}

func newDerived[R any](activate func(out *Value[R]) func()) *Derived[R] {
	d := &Derived[R]{out: NewValue[R]()}
	if activate != nil {
		d.activate = func() func() { return activate(d.out) }
	}
	return d
}

// Get returns the last forwarded value, or the zero value before any emission.
func (d *Derived[R]) Get() R {
	if d == nil {
		var zero R
		return zero
	}
	return d.out.Get()
}

// Subscribe registers a listener for forwarded values.
func (d *Derived[R]) Subscribe(fn func()) func() {
	return d.SubscribeWithScheduler(nil, fn)
}

// SubscribeWithScheduler registers a listener using a scheduler. The first
// subscriber attaches the derived observable to its source; replayed source
// values may therefore be forwarded during this call.
func (d *Derived[R]) SubscribeWithScheduler(scheduler Scheduler, fn func()) func() {
	if d == nil || fn == nil {
		return func() {}
	}
	unsub := d.out.SubscribeWithScheduler(scheduler, fn)
	d.mu.Lock()
	d.active++
	first := d.active == 1
	d.mu.Unlock()
	if first && d.activate != nil {
		stop := d.activate()
		d.mu.Lock()
		if d.active == 0 {
			// Last subscriber left while we were attaching.
			d.mu.Unlock()
			if stop != nil {
				stop()
			}
		} else {
			d.deactivate = stop
			d.mu.Unlock()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			d.mu.Lock()
			d.active--
			var stop func()
			if d.active == 0 {
				stop = d.deactivate
				d.deactivate = nil
			}
			d.mu.Unlock()
			if stop != nil {
				stop()
			}
		})
	}
}

// Map derives an observable that forwards transform(value) for every
// publish whose payload is present. Publishes with no payload are dropped.
// On activation the source's current payload, if present, is forwarded once.
func Map[T, R any](source *Loadable[T], transform func(T) R) *Derived[R] {
	if source == nil || transform == nil {
		return newDerived[R](nil)
	}
	return newDerived[R](func(out *Value[R]) func() {
		forward := func() {
			if v, ok := source.Value(); ok {
				out.Set(transform(v))
			}
		}
		forward()
		return source.value.Subscribe(forward)
	})
}

// SwitchMap derives an observable that follows transform(value): each
// publish with a present payload detaches the previous inner observable and
// attaches the one transform returns, forwarding its emissions. Publishes
// with no payload skip the switch, leaving the previous inner observable
// attached.
func SwitchMap[T, R any](source *Loadable[T], transform func(T) Readable[R]) *Derived[R] {
	if source == nil || transform == nil {
		return newDerived[R](nil)
	}
	return newDerived[R](func(out *Value[R]) func() {
		var mu sync.Mutex
		var detach func()

		swap := func() {
			v, ok := source.Value()
			if !ok {
				return
			}
			inner := transform(v)
			mu.Lock()
			if detach != nil {
				detach()
				detach = nil
			}
			if inner == nil {
				mu.Unlock()
				return
			}
			detach = inner.Subscribe(func() { out.Set(inner.Get()) })
			mu.Unlock()

			published := true
			if p, ok := inner.(interface{ Published() bool }); ok {
				published = p.Published()
			}
			if published {
				out.Set(inner.Get())
			}
		}

		swap()
		stop := source.value.Subscribe(swap)
		return func() {
			stop()
			mu.Lock()
			if detach != nil {
				detach()
				detach = nil
			}
			mu.Unlock()
		}
	})
}
