package reply

import (
	"errors"
	"io/fs"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/pasv"
	"github.com/marmos91/dittoftp/pkg/identity"
)

// Session level error conditions. Handlers return these (possibly wrapped) and
// the dispatcher turns them into a reply through Error.
var (
	ErrBadSequence      = errors.New("bad sequence of commands")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("file not found")
	ErrNotDirectory     = errors.New("not a directory")
	ErrNotFile          = errors.New("not a file")
	ErrNoDataConn       = errors.New("no data connection")
	ErrTransferAborted  = errors.New("transfer aborted")
	ErrInternal         = errors.New("internal server error")
)

// Error is an FTP protocol error: a reply code plus the text sent to the
// client, wrapping the condition that caused it.
type Error struct {
	code Code
	text string
	err  error
}

// NewError creates an Error. err may be nil.
func NewError(code Code, text string, err error) *Error {
	return &Error{code: code, text: text, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Reply().String() + ": " + e.err.Error()
	}
	return e.Reply().String()
}

// Code returns the numeric FTP reply code.
func (e *Error) Code() uint32 { return uint32(e.code) }

// Message returns the text sent to the client.
func (e *Error) Message() string { return e.text }

// Unwrap returns the underlying condition.
func (e *Error) Unwrap() error { return e.err }

// Reply returns the reply line for this error.
func (e *Error) Reply() Reply {
	return Reply{Code: e.code, Text: e.text}
}

// FromError maps err to the protocol error sent to the client. A *Error
// anywhere in the chain wins; otherwise the first matching sentinel decides.
// Unknown errors become 451.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	switch {
	case errors.Is(err, ErrBadSequence):
		return NewError(BadSequence, "Bad sequence of commands", err)
	case errors.Is(err, ErrNotLoggedIn):
		return NewError(NotLoggedIn, "Not logged in", err)
	case errors.Is(err, identity.ErrInvalidCredentials):
		return NewError(NotLoggedIn, "Login incorrect", err)
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return NewError(FileUnavailable, "Permission denied", err)
	case errors.Is(err, ErrNotDirectory):
		return NewError(FileUnavailable, "Not a directory", err)
	case errors.Is(err, ErrNotFile):
		return NewError(FileUnavailable, "Not a file", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return NewError(FileUnavailable, "File not found", err)
	case errors.Is(err, pasv.ErrPoolExhausted):
		return NewError(ServiceUnavailable, "No PASV ports available", err)
	case errors.Is(err, ErrNoDataConn), errors.Is(err, pasv.ErrAcceptTimeout), errors.Is(err, pasv.ErrClosed):
		return NewError(CannotOpenData, "Can't open data connection", err)
	case errors.Is(err, ErrTransferAborted), errors.Is(err, pasv.ErrAborted), errors.Is(err, pasv.ErrConnLost):
		return NewError(TransferAborted, "Connection closed; transfer aborted", err)
	case errors.Is(err, pasv.ErrLocalIO):
		return NewError(LocalError, "Requested action aborted: local error in processing", err)
	default:
		return NewError(LocalError, "Internal server error", err)
	}
}
