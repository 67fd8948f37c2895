package criteria

// ClientState tracks whether the text-understanding client has been built.
type ClientState int

const (
	StateUninitialized ClientState = iota
	StateReady
)

func (s ClientState) String() string {
	switch s {
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}
