package stream

// State is the lifecycle state of a Stream.
type State int32

const (
	Active State = iota
	Completed
	Aborted
	Faulted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s != Active
}
