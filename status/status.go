// Package status renders the load state of a Loadable as terminal content.
package status

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/loadable/state"
)

// Phase identifies what the status line currently reflects.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseFailure
	PhaseEmpty
	PhaseMessage
)

var spinnerFrames = []rune{'|', '/', '-', '\\'}

// Styles configures the per-phase line styles.
type Styles struct {
	Loading tcell.Style
	Success tcell.Style
	Failure tcell.Style
	Empty   tcell.Style
	Message tcell.Style
}

// DefaultStyles returns the stock phase styles.
func DefaultStyles() Styles {
	base := tcell.StyleDefault
	return Styles{
		Loading: base.Foreground(tcell.ColorYellow),
		Success: base.Foreground(tcell.ColorGreen),
		Failure: base.Foreground(tcell.ColorRed).Bold(true),
		Empty:   base.Foreground(tcell.ColorGray),
		Message: base.Foreground(tcell.ColorTeal),
	}
}

// Model mirrors a Loadable into drawable status. It observes both channels:
// it is a state.StateObserver for loading/failure/message/empty, and a plain
// watcher for the value channel (success has no stateful callback).
type Model[T any] struct {
	mu       sync.Mutex
	phase    Phase
	message  string
	progress int
	cause    error
	styles   Styles
	frame    int
	onChange func()
	describe func(T) string

	subs *state.Subscriptions
}

// NewModel creates a model. describe renders a success payload into the
// status line; a nil describe falls back to fmt.Sprint.
func NewModel[T any](describe func(T) string) *Model[T] {
	return &Model[T]{
		progress: state.IndeterminateProgress,
		styles:   DefaultStyles(),
		describe: describe,
		subs:     state.NewSubscriptions(nil),
	}
}

// SetStyles replaces the phase styles.
func (m *Model[T]) SetStyles(styles Styles) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.styles = styles
	m.mu.Unlock()
}

// SetOnChange installs a callback invoked after every state change, e.g. to
// wake a render loop. It runs on the goroutine delivering the notification.
func (m *Model[T]) SetOnChange(fn func()) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Bind watches l through the model's subscription scope. A previous binding
// is cleared first.
func (m *Model[T]) Bind(l *state.Loadable[T]) {
	if m == nil || l == nil {
		return
	}
	m.Unbind()
	l.WatchStateIn(m.subs, m)
	l.WatchIn(m.subs, m.onSnapshot)
}

// Unbind revokes the registrations made by Bind.
func (m *Model[T]) Unbind() {
	if m == nil {
		return
	}
	m.subs.Clear()
}

// OnLoading implements state.StateObserver.
func (m *Model[T]) OnLoading(message string, progress int) {
	m.mu.Lock()
	m.phase = PhaseLoading
	m.message = message
	m.progress = progress
	m.mu.Unlock()
	m.changed()
}

// OnFailure implements state.StateObserver.
func (m *Model[T]) OnFailure(message string, cause error) {
	m.mu.Lock()
	m.phase = PhaseFailure
	m.message = message
	m.cause = cause
	m.mu.Unlock()
	m.changed()
}

// OnMessage implements state.StateObserver.
func (m *Model[T]) OnMessage(message string) {
	m.mu.Lock()
	m.phase = PhaseMessage
	m.message = message
	m.mu.Unlock()
	m.changed()
}

// OnEmpty implements state.StateObserver.
func (m *Model[T]) OnEmpty(message string) {
	m.mu.Lock()
	m.phase = PhaseEmpty
	m.message = message
	m.mu.Unlock()
	m.changed()
}

func (m *Model[T]) onSnapshot(snap state.Snapshot[T]) {
	v, ok := snap.Value()
	if !ok {
		return
	}
	m.mu.Lock()
	m.phase = PhaseSuccess
	if m.describe != nil {
		m.message = m.describe(v)
	} else {
		m.message = fmt.Sprint(v)
	}
	m.cause = nil
	m.mu.Unlock()
	m.changed()
}

// Tick advances the loading spinner.
func (m *Model[T]) Tick() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.frame++
	m.mu.Unlock()
}

// Phase returns the current phase.
func (m *Model[T]) Phase() Phase {
	if m == nil {
		return PhaseIdle
	}
	m.mu.Lock()
	phase := m.phase
	m.mu.Unlock()
	return phase
}

// Cause returns the failure cause of the last failure notification.
func (m *Model[T]) Cause() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	cause := m.cause
	m.mu.Unlock()
	return cause
}

// Line renders the one-line summary, truncated or padded to exactly width
// cells.
func (m *Model[T]) Line(width int) (string, tcell.Style) {
	if m == nil {
		return fitLine("", width), tcell.StyleDefault
	}
	m.mu.Lock()
	phase := m.phase
	message := m.message
	progress := m.progress
	frame := m.frame
	styles := m.styles
	m.mu.Unlock()

	var text string
	style := tcell.StyleDefault
	switch phase {
	case PhaseLoading:
		style = styles.Loading
		if progress >= 0 {
			text = fmt.Sprintf("%s %d%%", message, progress)
		} else {
			text = fmt.Sprintf("%c %s", spinnerFrames[frame%len(spinnerFrames)], message)
		}
	case PhaseSuccess:
		style = styles.Success
		text = message
	case PhaseFailure:
		style = styles.Failure
		text = message
	case PhaseEmpty:
		style = styles.Empty
		text = message
	case PhaseMessage:
		style = styles.Message
		text = message
	}
	return fitLine(text, width), style
}

// Body renders the current message as markdown when the phase carries
// prose: failure bodies append the cause as a code span, message bodies are
// rendered as-is. Other phases have no body.
func (m *Model[T]) Body(width int) []Line {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	phase := m.phase
	message := m.message
	cause := m.cause
	m.mu.Unlock()

	switch phase {
	case PhaseFailure:
		src := message
		if cause != nil {
			src = fmt.Sprintf("%s\n\n`%v`", message, cause)
		}
		return RenderMarkdown(src, width)
	case PhaseMessage:
		return RenderMarkdown(message, width)
	default:
		return nil
	}
}

// Draw paints the status line at (x, y).
func (m *Model[T]) Draw(screen tcell.Screen, x, y, width int) {
	if m == nil || screen == nil {
		return
	}
	text, style := m.Line(width)
	drawText(screen, x, y, text, style)
}

func (m *Model[T]) changed() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		screen.SetContent(col, y, r, nil, style)
		col += runewidth.RuneWidth(r)
	}
}

// fitLine truncates with an ellipsis or pads to exactly width cells.
func fitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}
