package lifecycle

// State is one shell's position in the lifecycle state machine.
type State int

const (
	// Absent means the shell does not exist.
	Absent State = iota

	// Building means the shell's container is being constructed and the
	// shell is not yet visible to readers.
	Building

	// Active means the shell is built and readable.
	Active

	// Updating means the shell is being rebuilt from new settings.
	Updating

	// Removing means the shell is being torn down.
	Removing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Absent:
		return "Absent"
	case Building:
		return "Building"
	case Active:
		return "Active"
	case Updating:
		return "Updating"
	case Removing:
		return "Removing"
	default:
		return "Unknown"
	}
}
