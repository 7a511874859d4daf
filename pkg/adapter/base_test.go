package adapter

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoFactory serves line echo connections until the client or the server goes away.
type echoFactory struct {
	rejected atomic.Int32
}

type echoConn struct{ conn net.Conn }

func (f *echoFactory) NewConnection(conn net.Conn) ConnectionHandler {
	return &echoConn{conn: conn}
}

func (f *echoFactory) RejectConnection(conn net.Conn) {
	f.rejected.Add(1)
	_, _ = conn.Write([]byte("busy\r\n"))
}

func (c *echoConn) Serve(ctx context.Context) {
	r := bufio.NewReader(c.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := c.conn.Write([]byte(line)); err != nil {
			return
		}
	}
}

type countingMetrics struct {
	accepted, rejected, closed, forced atomic.Int32
}

func (m *countingMetrics) RecordConnectionAccepted()    { m.accepted.Add(1) }
func (m *countingMetrics) RecordConnectionRejected()    { m.rejected.Add(1) }
func (m *countingMetrics) RecordConnectionClosed()      { m.closed.Add(1) }
func (m *countingMetrics) RecordConnectionForceClosed() { m.forced.Add(1) }
func (m *countingMetrics) SetActiveConnections(int32)   {}

func startBase(t *testing.T, cfg BaseConfig, f ConnectionFactory, m ConnectionMetrics) (*BaseAdapter, chan error) {
	t.Helper()
	cfg.BindAddress = "127.0.0.1"
	b := NewBaseAdapter(cfg, "TEST")
	b.Metrics = m
	require.NoError(t, b.Listen())

	errc := make(chan error, 1)
	go func() { errc <- b.ServeWithFactory(context.Background(), f) }()
	return b, errc
}

func TestListenReportsBoundPort(t *testing.T) {
	b := NewBaseAdapter(BaseConfig{BindAddress: "127.0.0.1"}, "TEST")
	assert.Equal(t, 0, b.Port())

	require.NoError(t, b.Listen())
	require.NoError(t, b.Listen(), "second Listen is a no-op")
	assert.NotZero(t, b.Port())
	assert.Contains(t, b.GetListenerAddr(), "127.0.0.1:")

	require.NoError(t, b.Stop(context.Background()))
}

func TestListenFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	b := NewBaseAdapter(BaseConfig{BindAddress: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}, "TEST")
	assert.Error(t, b.Listen())
}

func TestServeAndStop(t *testing.T) {
	m := &countingMetrics{}
	b, errc := startBase(t, BaseConfig{ShutdownTimeout: time.Second}, &echoFactory{}, m)

	conn, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)
	assert.EqualValues(t, 1, b.GetActiveConnections())

	require.NoError(t, b.Stop(context.Background()))
	assert.NoError(t, <-errc)
	assert.EqualValues(t, 0, b.GetActiveConnections())
	assert.EqualValues(t, 1, m.accepted.Load())
	assert.EqualValues(t, 1, m.closed.Load())
}

func TestMaxConnectionsRejects(t *testing.T) {
	f := &echoFactory{}
	b, errc := startBase(t, BaseConfig{MaxConnections: 1, ShutdownTimeout: time.Second}, f, nil)

	first, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return b.GetActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	second, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer second.Close()

	line, err := bufio.NewReader(second).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "busy\r\n", line)
	assert.EqualValues(t, 1, f.rejected.Load())

	require.NoError(t, b.Stop(context.Background()))
	assert.NoError(t, <-errc)
}

// stuckConn ignores cancellation and read deadlines until its socket is closed.
type stuckFactory struct{}
type stuckConn struct{ conn net.Conn }

func (stuckFactory) NewConnection(conn net.Conn) ConnectionHandler { return &stuckConn{conn} }

func (c *stuckConn) Serve(context.Context) {
	buf := make([]byte, 1)
	for {
		if _, err := c.conn.Read(buf); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				_ = c.conn.SetReadDeadline(time.Time{})
				continue
			}
			return
		}
	}
}

func TestStopForceClosesStuckSessions(t *testing.T) {
	m := &countingMetrics{}
	b, errc := startBase(t, BaseConfig{ShutdownTimeout: 100 * time.Millisecond}, stuckFactory{}, m)

	conn, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return b.GetActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	err = b.Stop(context.Background())
	assert.Error(t, err)
	assert.EqualValues(t, 0, b.GetActiveConnections())
	assert.EqualValues(t, 1, m.forced.Load())
	assert.NoError(t, <-errc)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	b := NewBaseAdapter(BaseConfig{BindAddress: "127.0.0.1", ShutdownTimeout: time.Second}, "TEST")
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- b.ServeWithFactory(ctx, &echoFactory{}) }()
	<-b.ListenerReady

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeWithFactory did not return after cancel")
	}
}
