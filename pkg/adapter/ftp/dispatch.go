package ftp

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/reply"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/session"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/internal/telemetry"
	"github.com/marmos91/dittoftp/pkg/identity"
)

// handlerFunc executes one command and returns its final reply. Intermediate
// replies (150) are written by the handler itself. A non-nil error is turned
// into a reply with reply.FromError.
type handlerFunc func(c *Connection, ctx context.Context, arg string) (reply.Reply, error)

// commandSpec describes how a verb is dispatched. Checks run in order:
// login, precondition, permission, handler.
type commandSpec struct {
	handler handlerFunc

	// auth requires the Authenticated state (530 otherwise).
	auth bool

	// precondition runs after the login check and before the permission check.
	precondition func(c *Connection) error

	// perm is the capability the verb needs. PermNone needs nothing.
	perm identity.Permission
}

var commands map[string]commandSpec

func init() {
	commands = map[string]commandSpec{
		"USER": {handler: (*Connection).handleUSER},
		"PASS": {handler: (*Connection).handlePASS},
		"SYST": {handler: (*Connection).handleSYST},
		"PWD":  {handler: (*Connection).handlePWD},
		"TYPE": {handler: (*Connection).handleTYPE},
		"QUIT": {handler: (*Connection).handleQUIT},
		"NOOP": {handler: (*Connection).handleNOOP},
		"ABOR": {handler: (*Connection).handleABOR},

		"CWD":  {handler: (*Connection).handleCWD, auth: true},
		"PASV": {handler: (*Connection).handlePASV, auth: true, perm: identity.PermRead},
		"LIST": {handler: (*Connection).handleLIST, auth: true, perm: identity.PermRead},
		"SIZE": {handler: (*Connection).handleSIZE, auth: true, perm: identity.PermRead},
		"RETR": {handler: (*Connection).handleRETR, auth: true, perm: identity.PermRead},
		"STOR": {handler: (*Connection).handleSTOR, auth: true, perm: identity.PermWrite},
		"MKD":  {handler: (*Connection).handleMKD, auth: true, perm: identity.PermMkdir},
		"RMD":  {handler: (*Connection).handleRMD, auth: true, perm: identity.PermDelete},
		"DELE": {handler: (*Connection).handleDELE, auth: true, perm: identity.PermDelete},
		"RNFR": {handler: (*Connection).handleRNFR, auth: true, perm: identity.PermRename},
		"RNTO": {handler: (*Connection).handleRNTO, auth: true, perm: identity.PermRename, precondition: renamePending},
	}
}

// parseCommand splits a control line into an upper-cased verb and the
// remainder of the line as a single argument.
func parseCommand(line string) (verb, arg string) {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return strings.ToUpper(line), ""
	}
	return strings.ToUpper(line[:i]), strings.TrimLeft(line[i:], " \t")
}

// traceLine renders a client line for logs and the observer, hiding passwords.
func traceLine(verb, arg, line string) string {
	if verb == "PASS" && arg != "" {
		return "PASS ****"
	}
	return line
}

// handle runs one command line and writes its final reply. The returned
// error is a control connection write failure.
func (c *Connection) handle(ctx context.Context, line string) error {
	verb, arg := parseCommand(line)
	spec, known := commands[verb]

	metricVerb := verb
	if !known {
		metricVerb = "OTHER"
	}

	traced := traceLine(verb, arg, line)
	c.adapter.observer.ControlLine(c.remote, ">> "+traced)

	lc := c.lc.WithCommand(verb)
	ctx, span := telemetry.StartFTPSpan(ctx, metricVerb,
		telemetry.ClientAddr(c.remote),
		telemetry.FTPSessionID(c.sessionID),
		telemetry.FTPState(session.Name(c.state)))
	defer span.End()
	lc = lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	logArg := arg
	if verb == "PASS" {
		logArg = "****"
	}
	logger.DebugCtx(ctx, "FTP command", logger.KeyArgument, logArg)

	start := time.Now()
	var r reply.Reply
	if !known {
		r = reply.New(reply.NotImplemented, "Command not implemented")
	} else {
		r = c.execute(ctx, spec, arg)
	}
	err := c.reply(r)

	span.SetAttributes(telemetry.FTPReplyCode(int(r.Code)))
	if u := c.authenticated(); u != nil {
		span.SetAttributes(attribute.String(telemetry.AttrUsername, u.User.Username))
	}
	if r.Code.Class() >= 4 {
		span.SetStatus(codes.Error, r.String())
	}
	if m := c.adapter.metrics; m != nil {
		m.RecordCommand(metricVerb, r.Code.ClassName(), time.Since(start))
	}
	logger.DebugCtx(ctx, "FTP reply",
		logger.Reply(int(r.Code)), logger.KeyReplyText, r.Text, logger.DurationMs(start))
	return err
}

// execute applies the dispatch checks and runs the handler. A panicking
// handler yields 451 and leaves the session usable.
func (c *Connection) execute(ctx context.Context, spec commandSpec, arg string) (r reply.Reply) {
	defer func() {
		if p := recover(); p != nil {
			logger.ErrorCtx(ctx, "FTP handler panic", "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
			r = reply.New(reply.LocalError, "Internal server error")
		}
	}()

	if spec.auth && c.authenticated() == nil {
		return reply.New(reply.NotLoggedIn, "Not logged in")
	}
	if spec.precondition != nil {
		if err := spec.precondition(c); err != nil {
			return reply.FromError(err).Reply()
		}
	}
	if spec.perm != identity.PermNone {
		var u *identity.User
		if a := c.authenticated(); a != nil {
			u = a.User
		}
		if !identity.HasPermission(u, spec.perm) {
			logger.InfoCtx(ctx, "FTP permission denied", "required", spec.perm.String())
			return reply.New(reply.FileUnavailable, "Permission denied")
		}
	}

	r, err := spec.handler(c, ctx, arg)
	if err != nil {
		pe := reply.FromError(err)
		if pe.Code() == uint32(reply.LocalError) {
			logger.ErrorCtx(ctx, "FTP command failed", logger.Err(err))
			telemetry.RecordError(ctx, err)
		} else {
			logger.DebugCtx(ctx, "FTP command rejected", logger.Reply(int(pe.Code())), logger.Err(err))
		}
		return pe.Reply()
	}
	return r
}

func renamePending(c *Connection) error {
	if a := c.authenticated(); a == nil || a.RenameFrom == "" {
		return reply.NewError(reply.BadSequence, "Bad sequence of commands", reply.ErrBadSequence)
	}
	return nil
}
