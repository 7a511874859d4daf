package pasv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

var (
	// ErrAborted is returned when a transfer is cancelled through its context (ABOR, session close).
	ErrAborted = errors.New("transfer aborted")

	// ErrConnLost wraps failures on the data connection.
	ErrConnLost = errors.New("data connection lost")

	// ErrLocalIO wraps failures reading or writing the local file.
	ErrLocalIO = errors.New("local I/O error")
)

type closeWriter interface {
	CloseWrite() error
}

// Send streams src to the data connection and half-closes it. The copy goes
// through buf, so at most len(buf) bytes of the source are held in memory.
func Send(ctx context.Context, conn net.Conn, src io.Reader, buf []byte) (int64, error) {
	stop := interruptOnCancel(ctx, conn)
	defer stop()

	n, err := io.CopyBuffer(taggedWriter{conn, ErrConnLost}, taggedReader{src, ErrLocalIO}, buf)
	if err == nil {
		if cw, ok := conn.(closeWriter); ok {
			err = cw.CloseWrite()
		} else {
			err = conn.Close()
		}
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrConnLost, err)
		}
	}
	return n, transferErr(ctx, err)
}

// Receive streams the data connection into dst until the client closes it.
func Receive(ctx context.Context, dst io.Writer, conn net.Conn, buf []byte) (int64, error) {
	stop := interruptOnCancel(ctx, conn)
	defer stop()

	n, err := io.CopyBuffer(taggedWriter{dst, ErrLocalIO}, taggedReader{conn, ErrConnLost}, buf)
	return n, transferErr(ctx, err)
}

// interruptOnCancel unblocks pending reads and writes on conn when ctx is cancelled.
func interruptOnCancel(ctx context.Context, conn net.Conn) func() bool {
	return context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
}

func transferErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	}
	return err
}

type taggedReader struct {
	r   io.Reader
	tag error
}

func (t taggedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %w", t.tag, err)
	}
	return n, err
}

type taggedWriter struct {
	w   io.Writer
	tag error
}

func (t taggedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		err = fmt.Errorf("%w: %w", t.tag, err)
	}
	return n, err
}
