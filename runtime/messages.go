// Package runtime owns the UI goroutine: a message loop that serializes
// state mutation and observer callbacks for the state package.
package runtime

import "time"

// Message is an event flowing into the loop. Messages come from dispatched
// closures, timers, or background goroutines.
type Message interface {
	isMessage()
}

// FuncMsg carries a closure to run on the loop goroutine.
type FuncMsg struct {
	Fn func()
}

func (FuncMsg) isMessage() {}

// TickMsg is sent on each tick when the loop has a tick rate.
type TickMsg struct {
	Time time.Time
}

func (TickMsg) isMessage() {}

// QueueFlushMsg triggers a state queue flush in the loop.
type QueueFlushMsg struct{}

func (QueueFlushMsg) isMessage() {}

// QuitMsg stops the loop after the messages already accepted.
type QuitMsg struct{}

func (QuitMsg) isMessage() {}
