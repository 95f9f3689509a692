package poller

// State is the lifecycle state of the polling loop
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StatusNotifier is told about every state transition. The host adapter uses
// it to report status to the service manager.
type StatusNotifier interface {
	Notify(State)
}

// NotifierFunc adapts a function to StatusNotifier
type NotifierFunc func(State)

// Notify implements StatusNotifier
func (f NotifierFunc) Notify(s State) {
	f(s)
}
