package ftp

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/dittoftp/pkg/identity"
)

const (
	bobPassword    = "bob-password"
	readerPassword = "reader-password"
)

type testServer struct {
	adapter  *Adapter
	addr     string
	root     string
	users    *identity.Registry
	observer *recordingObserver
}

func testUsers(t *testing.T) []identity.User {
	t.Helper()
	hash := func(pw string) string {
		h, err := identity.HashPasswordWithCost(pw, bcrypt.MinCost)
		require.NoError(t, err)
		return h
	}
	return []identity.User{
		{Username: "bob", PasswordHash: hash(bobPassword), Perms: identity.PermAll},
		{Username: "reader", PasswordHash: hash(readerPassword), Home: "shared", Perms: identity.PermRead},
	}
}

// passiveRange returns n consecutive ports starting at one the OS just
// handed out. Ports that turn out to be busy are skipped by pasv.Open.
func passiveRange(t *testing.T, n int) (int, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	low := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	if low+n-1 > 65535 {
		low = 65535 - n + 1
	}
	return low, low + n - 1
}

func newTestServer(t *testing.T, mutate ...func(*Config, *Options)) *testServer {
	t.Helper()

	root := t.TempDir()
	low, high := passiveRange(t, 10)
	cfg := Config{
		BindAddress:     "127.0.0.1",
		StorageRoot:     root,
		PassivePorts:    PassivePortRange{Low: low, High: high},
		DataConnTimeout: 2 * time.Second,
		Timeouts:        TimeoutsConfig{Shutdown: 2 * time.Second},
	}

	users, err := identity.NewRegistry(testUsers(t))
	require.NoError(t, err)
	obs := &recordingObserver{}
	opts := Options{Users: users, Observer: obs}
	for _, m := range mutate {
		m(&cfg, &opts)
	}

	a, err := New(cfg, opts)
	require.NoError(t, err)
	require.NoError(t, a.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = a.Stop(context.Background())
		<-done
	})

	return &testServer{adapter: a, addr: a.GetListenerAddr(), root: root, users: users, observer: obs}
}

// home returns the real home directory of user.
func (s *testServer) home(user string) string {
	u := s.users.Lookup(user)
	return filepath.Join(s.root, u.HomeName())
}

func (s *testServer) writeFile(t *testing.T, user, name string, data []byte) {
	t.Helper()
	p := filepath.Join(s.home(user), filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

type rawClient struct {
	t    *testing.T
	conn net.Conn
	tp   *textproto.Conn
}

func dialRaw(t *testing.T, addr string) *rawClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(15*time.Second)))
	c := &rawClient{t: t, conn: conn, tp: textproto.NewConn(conn)}
	t.Cleanup(func() { _ = c.tp.Close() })
	return c
}

func dialRawReady(t *testing.T, addr string) *rawClient {
	t.Helper()
	c := dialRaw(t, addr)
	c.expect(220)
	return c
}

func (c *rawClient) send(format string, args ...any) {
	c.t.Helper()
	require.NoError(c.t, c.tp.PrintfLine(format, args...))
}

func (c *rawClient) expect(code int) string {
	c.t.Helper()
	got, msg, err := c.tp.ReadCodeLine(0)
	require.NoError(c.t, err)
	require.Equal(c.t, code, got, "reply text: %s", msg)
	return msg
}

func (c *rawClient) cmd(code int, format string, args ...any) string {
	c.t.Helper()
	c.send(format, args...)
	return c.expect(code)
}

func (c *rawClient) login(user, password string) {
	c.t.Helper()
	c.cmd(331, "USER %s", user)
	c.cmd(230, "PASS %s", password)
}

// pasv issues PASV and returns the data address announced in the 227 reply.
func (c *rawClient) pasv() string {
	c.t.Helper()
	msg := c.cmd(227, "PASV")
	open, end := strings.Index(msg, "("), strings.Index(msg, ")")
	require.True(c.t, open >= 0 && end > open, msg)

	var h1, h2, h3, h4, p1, p2 int
	_, err := fmt.Sscanf(msg[open+1:end], "%d,%d,%d,%d,%d,%d", &h1, &h2, &h3, &h4, &p1, &p2)
	require.NoError(c.t, err)
	return fmt.Sprintf("%d.%d.%d.%d:%d", h1, h2, h3, h4, p1*256+p2)
}

func dialData(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(15*time.Second)))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type recordingObserver struct {
	mu       sync.Mutex
	control  []string
	data     []string
	sessions []string
	logs     []string
}

func (o *recordingObserver) ControlLine(_, line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.control = append(o.control, line)
}

func (o *recordingObserver) DataEvent(_, event string, port int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.data = append(o.data, fmt.Sprintf("%s:%d", event, port))
}

func (o *recordingObserver) SessionEvent(event, username, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = append(o.sessions, event+":"+username)
}

func (o *recordingObserver) Log(level, message string, _ map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logs = append(o.logs, level+":"+message)
}

func (o *recordingObserver) snapshot() (control, data, sessions []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.control...), append([]string(nil), o.data...), append([]string(nil), o.sessions...)
}
