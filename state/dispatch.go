package state

// Dispatcher marshals work onto the UI goroutine. Post operations on a
// Loadable run immediately when the caller is already there and are handed
// to Dispatch otherwise; the calling goroutine never waits for completion.
type Dispatcher interface {
	// Current reports whether the caller is running on the UI goroutine.
	Current() bool
	// Dispatch enqueues fn to run later on the UI goroutine. Submission
	// order is preserved per submitting goroutine.
	Dispatch(fn func())
}

type directDispatcher struct{}

func (directDispatcher) Current() bool { return true }

func (directDispatcher) Dispatch(fn func()) {
	if fn != nil {
		fn()
	}
}

// Direct treats every goroutine as the UI goroutine and runs work
// synchronously. Suited to single-goroutine programs and tests.
var Direct Dispatcher = directDispatcher{}

// QueueDispatcher defers every dispatch to a Queue. Nothing runs until the
// queue is flushed, which makes cross-goroutine posts deterministic in tests.
type QueueDispatcher struct {
	queue *Queue
}

// NewQueueDispatcher creates a dispatcher feeding queue.
// A nil queue is replaced with a fresh one.
func NewQueueDispatcher(queue *Queue) *QueueDispatcher {
	if queue == nil {
		queue = NewQueue()
	}
	return &QueueDispatcher{queue: queue}
}

// Current always reports false: callers are never on the flush goroutine.
func (d *QueueDispatcher) Current() bool { return false }

// Dispatch enqueues fn for the next flush.
func (d *QueueDispatcher) Dispatch(fn func()) {
	if d == nil || d.queue == nil || fn == nil {
		return
	}
	d.queue.Schedule(fn)
}

// Queue returns the underlying queue.
func (d *QueueDispatcher) Queue() *Queue {
	if d == nil {
		return nil
	}
	return d.queue
}
