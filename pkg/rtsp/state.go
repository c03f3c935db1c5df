package rtsp

// State is the state of a Session.
// Except for Connect and Disconnected, it is the method of the
// request that has been sent last.
type State int

// states.
const (
	StateConnect State = iota
	StateOptions
	StateAnnounce
	StateSetup
	StateRecord
	StateFlush
	StateTeardown
	StateSetParameter
	StateDisconnected
)

var stateLabels = map[State]string{
	StateConnect:      "connect",
	StateOptions:      "options",
	StateAnnounce:     "announce",
	StateSetup:        "setup",
	StateRecord:       "record",
	StateFlush:        "flush",
	StateTeardown:     "teardown",
	StateSetParameter: "set_parameter",
	StateDisconnected: "disconnected",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if l, ok := stateLabels[s]; ok {
		return l
	}
	return "unknown"
}
