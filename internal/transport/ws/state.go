package ws

// State is the lifecycle of the room connection. Closed re-enters
// Connecting unless the close was explicit.
type State int

const (
	Uninstantiated State = iota
	Connecting
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Uninstantiated:
		return "UNINSTANTIATED"
	case Connecting:
		return "CONNECTING"
	case Open:
		return "OPEN"
	case Closing:
		return "CLOSING"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Label is the human readable status shown next to the room code.
func (s State) Label() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Open:
		return "Connected"
	case Closing:
		return "Closing"
	case Closed:
		return "Disconnected"
	default:
		return "Uninstantiated"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type EventType int

const (
	EventState EventType = iota
	EventFrame
)

// Event is either a state transition or a raw inbound frame.
type Event struct {
	Type  EventType
	State State
	Frame []byte
}
