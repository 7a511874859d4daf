package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for FTP spans. Protocol-agnostic keys use the "fs." prefix,
// control channel keys the "ftp." prefix.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Filesystem attributes
	// ========================================================================
	AttrPath     = "fs.path"
	AttrSize     = "fs.size"
	AttrBytes    = "fs.bytes_transferred"
	AttrNewPath  = "fs.new_path"
	AttrEntries  = "fs.entries"
	AttrUsername = "user.name"

	// ========================================================================
	// FTP control channel attributes
	// ========================================================================
	AttrFTPCommand   = "ftp.command"
	AttrFTPReplyCode = "ftp.reply_code"
	AttrFTPSessionID = "ftp.session_id"
	AttrFTPState     = "ftp.state"

	// ========================================================================
	// FTP data channel attributes
	// ========================================================================
	AttrFTPPassivePort = "ftp.passive_port"
	AttrFTPDirection   = "ftp.direction"
)

// Span names. Commands use "ftp.<VERB>".
const (
	SpanFTPPrefix   = "ftp."
	SpanFTPSession  = "ftp.session"
	SpanFTPTransfer = "ftp.transfer"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for client address (ip:port)
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Path returns an attribute for a virtual path
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// NewPath returns an attribute for the target of a rename
func NewPath(p string) attribute.KeyValue {
	return attribute.String(AttrNewPath, p)
}

// Size returns an attribute for a file size
func Size(size int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, size)
}

// Bytes returns an attribute for bytes moved over a data connection
func Bytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytes, n)
}

// Entries returns an attribute for the number of listed entries
func Entries(n int) attribute.KeyValue {
	return attribute.Int(AttrEntries, n)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// FTPCommand returns an attribute for the control command verb
func FTPCommand(verb string) attribute.KeyValue {
	return attribute.String(AttrFTPCommand, verb)
}

// FTPReplyCode returns an attribute for the final reply code
func FTPReplyCode(code int) attribute.KeyValue {
	return attribute.Int(AttrFTPReplyCode, code)
}

// FTPSessionID returns an attribute for the control session ID
func FTPSessionID(id string) attribute.KeyValue {
	return attribute.String(AttrFTPSessionID, id)
}

// FTPState returns an attribute for the session login state
func FTPState(state string) attribute.KeyValue {
	return attribute.String(AttrFTPState, state)
}

// FTPPassivePort returns an attribute for the leased passive port
func FTPPassivePort(port int) attribute.KeyValue {
	return attribute.Int(AttrFTPPassivePort, port)
}

// FTPDirection returns an attribute for a transfer direction (download, upload, listing)
func FTPDirection(dir string) attribute.KeyValue {
	return attribute.String(AttrFTPDirection, dir)
}

// StartFTPSpan starts a span for one FTP command.
func StartFTPSpan(ctx context.Context, verb string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{FTPCommand(verb)}, attrs...)
	return StartSpan(ctx, SpanFTPPrefix+verb, trace.WithAttributes(allAttrs...), trace.WithSpanKind(trace.SpanKindServer))
}

// StartTransferSpan starts a child span covering a data connection transfer.
func StartTransferSpan(ctx context.Context, direction string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{FTPDirection(direction)}, attrs...)
	return StartSpan(ctx, SpanFTPTransfer, trace.WithAttributes(allAttrs...))
}
