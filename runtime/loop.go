package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/odvcencio/loadable/state"
)

// Handler processes messages the loop does not consume itself.
type Handler func(loop *Loop, msg Message)

// FlushPolicy configures when the loop flushes its state queue.
type FlushPolicy int

const (
	// FlushOnMessageAndTick flushes on any message or tick.
	FlushOnMessageAndTick FlushPolicy = iota
	// FlushOnMessage flushes on messages except TickMsg.
	FlushOnMessage
	// FlushOnTick flushes only on TickMsg.
	FlushOnTick
	// FlushManual flushes only on QueueFlushMsg.
	FlushManual
)

// Config configures a Loop.
type Config struct {
	MessageBuffer int
	TickRate      time.Duration
	Queue         *state.Queue
	FlushPolicy   FlushPolicy
	Handler       Handler
}

// Loop owns the UI goroutine. Run claims the calling goroutine; every post
// marshalled through the loop executes there, in arrival order. Loop
// implements state.Dispatcher.
type Loop struct {
	messages  chan Message
	queue     *state.Queue
	scheduler *QueueScheduler
	policy    FlushPolicy
	tickRate  time.Duration
	handler   Handler

	gid     atomic.Uint64
	started atomic.Bool
	done    chan struct{}

	taskMu    sync.Mutex
	taskCtx   context.Context
	pendingFx []Effect
}

// NewLoop creates a loop from config.
func NewLoop(cfg Config) *Loop {
	buffer := cfg.MessageBuffer
	if buffer <= 0 {
		buffer = 128
	}
	queue := cfg.Queue
	if queue == nil {
		queue = state.NewQueue()
	}
	l := &Loop{
		messages: make(chan Message, buffer),
		queue:    queue,
		policy:   cfg.FlushPolicy,
		tickRate: cfg.TickRate,
		handler:  cfg.Handler,
		done:     make(chan struct{}),
	}
	l.scheduler = NewQueueScheduler(queue, l.TryPost)
	return l
}

// Queue returns the loop's state queue.
func (l *Loop) Queue() *state.Queue {
	if l == nil {
		return nil
	}
	return l.queue
}

// Scheduler returns a scheduler that enqueues callbacks on the state queue
// and wakes the loop to flush them.
func (l *Loop) Scheduler() state.Scheduler {
	if l == nil || l.scheduler == nil {
		return nil
	}
	return l.scheduler
}

// Current reports whether the caller runs on the loop goroutine.
func (l *Loop) Current() bool {
	if l == nil {
		return false
	}
	gid := l.gid.Load()
	return gid != 0 && gid == goroutineID()
}

// Dispatch enqueues fn to run on the loop goroutine.
func (l *Loop) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	l.Post(FuncMsg{Fn: fn})
}

// Post sends a message, blocking until the loop accepts it. It reports
// false once the loop has finished.
func (l *Loop) Post(msg Message) bool {
	if l == nil || msg == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.messages <- msg:
		return true
	case <-l.done:
		return false
	}
}

// TryPost sends a message without blocking.
func (l *Loop) TryPost(msg Message) bool {
	if l == nil || msg == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.messages <- msg:
		return true
	default:
		return false
	}
}

// Stop asks the loop to exit after the messages it already accepted.
func (l *Loop) Stop() {
	l.Post(QuitMsg{})
}

// Spawn starts an effect under the loop's task context. Effects spawned
// before Run are held until the loop starts.
func (l *Loop) Spawn(effect Effect) {
	if l == nil || effect.Run == nil {
		return
	}
	l.taskMu.Lock()
	ctx := l.taskCtx
	if ctx == nil {
		l.pendingFx = append(l.pendingFx, effect)
		l.taskMu.Unlock()
		return
	}
	l.taskMu.Unlock()
	go effect.Run(ctx, l.TryPost)
}

// After schedules a delayed message using the loop task context.
func (l *Loop) After(delay time.Duration, msg Message) {
	l.Spawn(After(delay, msg))
}

// Every schedules a recurring message using the loop task context.
func (l *Loop) Every(interval time.Duration, fn func(time.Time) Message) {
	l.Spawn(Every(interval, fn))
}

// Run services the loop until ctx is cancelled or a QuitMsg arrives. The
// calling goroutine becomes the UI goroutine for the loop's lifetime. A
// loop runs at most once; after Run returns, posts fail fast.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return errors.New("nil loop")
	}
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("loop already started")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	taskCtx, taskCancel := context.WithCancel(ctx)
	l.gid.Store(goroutineID())
	defer func() {
		l.gid.Store(0)
		taskCancel()
		close(l.done)
	}()
	l.startPendingEffects(taskCtx)

	var ticks <-chan time.Time
	if l.tickRate > 0 {
		ticker := time.NewTicker(l.tickRate)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		var msg Message
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg = <-l.messages:
		case now := <-ticks:
			msg = TickMsg{Time: now}
		}

		switch m := msg.(type) {
		case QuitMsg:
			return nil
		case FuncMsg:
			if m.Fn != nil {
				m.Fn()
			}
		default:
			if l.handler != nil {
				l.handler(l, msg)
			}
		}

		if shouldFlush(l.policy, msg) {
			if l.scheduler != nil {
				l.scheduler.resetPending()
			}
			l.queue.Flush()
		}
	}
}

func (l *Loop) startPendingEffects(ctx context.Context) {
	l.taskMu.Lock()
	l.taskCtx = ctx
	pending := l.pendingFx
	l.pendingFx = nil
	l.taskMu.Unlock()
	for _, effect := range pending {
		go effect.Run(ctx, l.TryPost)
	}
}

func shouldFlush(policy FlushPolicy, msg Message) bool {
	if _, ok := msg.(QueueFlushMsg); ok {
		return true
	}
	if policy == FlushManual {
		return false
	}
	_, isTick := msg.(TickMsg)
	switch policy {
	case FlushOnMessage:
		return !isTick
	case FlushOnTick:
		return isTick
	default:
		return true
	}
}
