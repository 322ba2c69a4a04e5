package action

// Dispatcher delivers one action per call to the consuming state container.
// Implementations must tolerate calls from listener goroutines.
type Dispatcher interface {
	Dispatch(Action)
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(Action)

// Dispatch calls f(a).
func (f DispatchFunc) Dispatch(a Action) { f(a) }

// Tee fans one dispatch out to several dispatchers in order. Used to journal
// actions while still delivering them to the state container.
func Tee(ds ...Dispatcher) Dispatcher {
	return DispatchFunc(func(a Action) {
		for _, d := range ds {
			d.Dispatch(a)
		}
	})
}

// Discard drops every action. Useful as a replay sink when only the side
// effects of reading the journal matter.
var Discard Dispatcher = DispatchFunc(func(Action) {})
