// Package reply defines FTP control channel reply codes and the error type
// that carries a reply code back to the dispatcher.
package reply

import (
	"fmt"
	"strconv"
	"strings"
)

// Code is a three digit FTP reply code.
type Code int

// Reply codes used by the server.
const (
	OpeningData        Code = 150 // file status okay; about to open data connection
	CommandOK          Code = 200
	FileStatus         Code = 213
	SystemType         Code = 215
	ServiceReady       Code = 220
	Goodbye            Code = 221
	NoTransfer         Code = 225 // data connection open; no transfer in progress
	TransferComplete   Code = 226
	EnteringPassive    Code = 227
	LoggedIn           Code = 230
	FileActionOK       Code = 250
	PathCreated        Code = 257
	NeedPassword       Code = 331
	PendingFurtherInfo Code = 350
	ServiceUnavailable Code = 421
	CannotOpenData     Code = 425
	TransferAborted    Code = 426
	LocalError         Code = 451
	SyntaxError        Code = 500
	NotImplemented     Code = 502
	BadSequence        Code = 503
	ParamNotSupported  Code = 504
	NotLoggedIn        Code = 530
	FileUnavailable    Code = 550
)

// Class returns the first digit of the code, e.g. 2 for positive completion.
func (c Code) Class() int {
	return int(c) / 100
}

// ClassName returns a label for metrics: "1xx" .. "5xx".
func (c Code) ClassName() string {
	return strconv.Itoa(c.Class()) + "xx"
}

// Positive reports whether c is a 1xx, 2xx or 3xx reply.
func (c Code) Positive() bool {
	return c.Class() >= 1 && c.Class() <= 3
}

// Reply is one control channel response line.
type Reply struct {
	Code Code
	Text string
}

// New builds a Reply.
func New(code Code, text string) Reply {
	return Reply{Code: code, Text: text}
}

// Newf builds a Reply with a formatted text.
func Newf(code Code, format string, args ...any) Reply {
	return Reply{Code: code, Text: fmt.Sprintf(format, args...)}
}

// String renders the reply without the line terminator.
func (r Reply) String() string {
	return strconv.Itoa(int(r.Code)) + " " + r.Text
}

// Wire renders the reply as sent on the control connection. CR and LF in the
// text are stripped so a path cannot inject extra reply lines.
func (r Reply) Wire() []byte {
	text := strings.Map(func(c rune) rune {
		if c == '\r' || c == '\n' {
			return -1
		}
		return c
	}, r.Text)
	return []byte(strconv.Itoa(int(r.Code)) + " " + text + "\r\n")
}

// Quote renders a pathname for a 257 reply, doubling embedded quotes.
func Quote(p string) string {
	return `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
}
