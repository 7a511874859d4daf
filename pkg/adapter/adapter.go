// Package adapter holds the lifecycle contract shared by protocol servers
// and the connection bookkeeping they build on.
package adapter

import "context"

// Adapter is a protocol server the supervisor can start and stop.
//
// Listen binds synchronously so a busy port fails start; Serve then runs
// until ctx ends or Stop is called. Stop may race with Serve and may be
// called more than once.
type Adapter interface {
	Listen() error
	Serve(ctx context.Context) error

	// Stop closes the listener, lets sessions finish and force-closes the
	// rest when ctx expires.
	Stop(ctx context.Context) error

	// Protocol names the protocol in logs and metrics, e.g. "FTP".
	Protocol() string

	// Port is the bound port once listening, the configured one before.
	Port() int

	// MapError returns the wire form of a domain error, or nil if there is none.
	MapError(err error) ProtocolError
}

// ProtocolError carries a domain error together with its wire status: for
// FTP a reply code such as 550 and the reply text. errors.Is still sees
// the domain error through Unwrap.
type ProtocolError interface {
	error
	Code() uint32
	Message() string
	Unwrap() error
}
