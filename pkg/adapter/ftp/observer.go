package ftp

// Data channel lifecycle events reported to the Observer.
const (
	DataEventOpen       = "pasv-open"
	DataEventConnection = "pasv-connection"
	DataEventClosed     = "pasv-closed"
)

// Session events reported to the Observer.
const (
	SessionEventLogin = "login"
)

// Observer receives protocol events for the host process: the raw control
// trace, data channel lifecycle and logins. Implementations must not block;
// they are called from session goroutines.
type Observer interface {
	// ControlLine reports one control line. Client lines are prefixed with
	// ">> ", server replies with "<< ". PASS arguments are redacted.
	ControlLine(remote, line string)

	// DataEvent reports a passive data channel transition.
	DataEvent(remote, event string, port int)

	// SessionEvent reports a session transition such as a successful login.
	SessionEvent(event, username, remote string)

	// Log reports a human readable session message (connection open/close).
	Log(level, message string, meta map[string]any)
}

type nopObserver struct{}

func (nopObserver) ControlLine(string, string)          {}
func (nopObserver) DataEvent(string, string, int)       {}
func (nopObserver) SessionEvent(string, string, string) {}
func (nopObserver) Log(string, string, map[string]any)  {}
