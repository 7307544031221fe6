package acorn

// State describes a type key in the registry.
type State int

const (
	// Absent means nothing is registered under the type.
	Absent State = iota

	// Registered means the type is registered but its value has not been
	// constructed yet.
	Registered

	// Initialized means the type is registered and holds a value. A key
	// never moves back from Initialized to Registered; only removal takes
	// it back to Absent.
	Initialized
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Registered:
		return "registered"
	case Initialized:
		return "initialized"
	default:
		return "unknown"
	}
}
