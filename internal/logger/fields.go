package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently so logs from the control and data channels can be correlated.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Control channel
	KeyCommand   = "command"    // FTP verb: USER, RETR, STOR, ...
	KeyArgument  = "argument"   // Raw command argument (PASS is redacted)
	KeyReply     = "reply"      // Reply code sent to the client
	KeyReplyText = "reply_text" // Reply text sent to the client

	// Filesystem
	KeyPath     = "path"      // Virtual (client visible) path
	KeyRealPath = "real_path" // Sandboxed path on the storage root
	KeyOldPath  = "old_path"  // Rename source
	KeyNewPath  = "new_path"  // Rename destination
	KeySize     = "size"      // File size in bytes
	KeyEntries  = "entries"   // Number of listing entries

	// Data channel
	KeyPort      = "port"      // Passive data port
	KeyBytes     = "bytes"     // Bytes moved by a transfer
	KeyDirection = "direction" // upload, download, listing

	// Client and session
	KeyClientIP   = "client_ip"
	KeyClientAddr = "client_addr" // ip:port of the control connection
	KeyUsername   = "username"
	KeySessionID  = "session_id"
	KeyActive     = "active" // Number of active sessions

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyComponent  = "component"
)

// Command returns a slog.Attr for the FTP verb
func Command(verb string) slog.Attr {
	return slog.String(KeyCommand, verb)
}

// Reply returns a slog.Attr for a reply code
func Reply(code int) slog.Attr {
	return slog.Int(KeyReply, code)
}

// Path returns a slog.Attr for a virtual path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// RealPath returns a slog.Attr for a sandboxed filesystem path
func RealPath(p string) slog.Attr {
	return slog.String(KeyRealPath, p)
}

// Port returns a slog.Attr for a passive data port
func Port(p int) slog.Attr {
	return slog.Int(KeyPort, p)
}

// Bytes returns a slog.Attr for a transferred byte count
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// Username returns a slog.Attr for the session user
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// SessionID returns a slog.Attr for the control connection identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ClientAddr returns a slog.Attr for the remote control address
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// DurationMs returns a slog.Attr with the elapsed time since start
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr that handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
