package server

import "time"

// EventType identifies the kind of an Event.
type EventType string

const (
	// EventStarted is emitted once the control listener is bound. Port is set.
	EventStarted EventType = "started"

	// EventStopped is emitted after Stop closed the listener and every session.
	EventStopped EventType = "stopped"

	// EventError reports a start or serve failure. Message is set.
	EventError EventType = "error"

	// EventLog carries a server log line. Level, Message and Meta are set.
	EventLog EventType = "log"

	// EventCtl carries one control connection line. Line is prefixed with
	// ">> " for client input and "<< " for server replies.
	EventCtl EventType = "ctl"

	// EventData reports a passive data channel transition. Name and Port are set.
	EventData EventType = "data"

	// EventSession reports a session transition such as "login". Name and User are set.
	EventSession EventType = "session"
)

// Event is one notification published by the Supervisor.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	Level   string         `json:"level,omitempty"`
	Message string         `json:"msg,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`

	Remote string `json:"remote,omitempty"`
	Line   string `json:"cmd,omitempty"`

	// Name is the data or session event name ("pasv-connection", "login").
	Name string `json:"event,omitempty"`
	Port int    `json:"port,omitempty"`
	User string `json:"user,omitempty"`
}
