package state

// StateObserver receives load-state notifications from a Loadable. Success
// is deliberately not among the callbacks: successful values travel through
// the value channel only.
type StateObserver interface {
	// OnLoading reports a load in progress. progress is a percentage, or
	// IndeterminateProgress when unknown.
	OnLoading(message string, progress int)
	// OnFailure reports a failed load. cause is passed through untouched.
	OnFailure(message string, cause error)
	// OnMessage delivers a transient informational message.
	OnMessage(message string)
	// OnEmpty reports that a load produced no data.
	OnEmpty(message string)
}

// StateFuncs adapts optional callbacks into a StateObserver.
// Nil fields are ignored.
type StateFuncs struct {
	Loading func(message string, progress int)
	Failure func(message string, cause error)
	Message func(message string)
	Empty   func(message string)
}

// OnLoading calls the Loading callback if set.
func (f StateFuncs) OnLoading(message string, progress int) {
	if f.Loading != nil {
		f.Loading(message, progress)
	}
}

// OnFailure calls the Failure callback if set.
func (f StateFuncs) OnFailure(message string, cause error) {
	if f.Failure != nil {
		f.Failure(message, cause)
	}
}

// OnMessage calls the Message callback if set.
func (f StateFuncs) OnMessage(message string) {
	if f.Message != nil {
		f.Message(message)
	}
}

// OnEmpty calls the Empty callback if set.
func (f StateFuncs) OnEmpty(message string) {
	if f.Empty != nil {
		f.Empty(message)
	}
}
