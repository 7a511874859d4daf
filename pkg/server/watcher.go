package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/identity"
)

const (
	// DefaultPollInterval is how often the user source is re-read when no
	// file can be watched, and as a safety net when one can.
	DefaultPollInterval = 30 * time.Second

	// DefaultDebounce coalesces bursts of file events (SQLite writes the
	// database and its journal in several steps).
	DefaultDebounce = 250 * time.Millisecond
)

// UserSource loads the current set of FTP users.
type UserSource interface {
	LoadUsers(ctx context.Context) ([]identity.User, error)
}

// UserReloader receives reloaded user sets. Supervisor implements it.
type UserReloader interface {
	ReloadUsers(users []identity.User) error
}

// WatcherConfig configures a UserWatcher.
type WatcherConfig struct {
	// Path is a file whose changes trigger a reload, typically the SQLite
	// database. Empty disables file watching.
	Path string

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// UserWatcher keeps a UserReloader in sync with a UserSource.
//
// Changes are picked up through fsnotify on the directory holding Path
// (debounced, so an atomic rename or a journal flush counts once) and by a
// periodic poll. A reload only happens when the loaded set differs from the
// previous one.
type UserWatcher struct {
	source UserSource
	target UserReloader
	config WatcherConfig

	mu     sync.Mutex
	last   []identity.User
	loaded bool

	started atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}
}

// NewUserWatcher creates a watcher (not yet started).
func NewUserWatcher(source UserSource, target UserReloader, cfg WatcherConfig) *UserWatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &UserWatcher{
		source:  source,
		target:  target,
		config:  cfg,
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins watching. When Path cannot be watched the watcher falls back
// to polling only.
func (w *UserWatcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	var fw *fsnotify.Watcher
	if w.config.Path != "" {
		var err error
		fw, err = newFileWatcher(w.config.Path)
		if err != nil {
			logger.Warn("User watcher: file watch unavailable, polling only",
				"path", w.config.Path, logger.Err(err))
			fw = nil
		}
	}

	go w.run(ctx, fw)
	logger.Info("User watcher started", "path", w.config.Path, "poll_interval", w.config.PollInterval)
}

func newFileWatcher(path string) (*fsnotify.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: the file itself may be replaced by a rename.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return fw, nil
}

// Stop stops the watcher and waits for it to exit. Safe to call more than once.
func (w *UserWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *UserWatcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.stopped)

	var (
		fsEvents <-chan fsnotify.Event
		fsErrors <-chan error
	)
	if fw != nil {
		defer func() { _ = fw.Close() }()
		fsEvents, fsErrors = fw.Events, fw.Errors
	}

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	base := filepath.Base(w.config.Path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if !related(base, ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			debounce.Reset(w.config.Debounce)
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			logger.Warn("User watcher: file watch error", logger.Err(err))
		case <-debounce.C:
			w.Reload(ctx)
		case <-ticker.C:
			w.Reload(ctx)
		}
	}
}

// related reports whether name is the watched file or one of its SQLite
// side files (-journal, -wal, -shm).
func related(base, name string) bool {
	n := filepath.Base(name)
	if n == base {
		return true
	}
	for _, suffix := range []string{"-journal", "-wal", "-shm"} {
		if n == base+suffix {
			return true
		}
	}
	return false
}

// Reload loads the user set and hands it to the target if it changed.
// It reports whether a reload happened.
func (w *UserWatcher) Reload(ctx context.Context) bool {
	users, err := w.source.LoadUsers(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("User watcher: failed to load users", logger.Err(err))
		}
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded && sameUsers(w.last, users) {
		return false
	}
	if err := w.target.ReloadUsers(users); err != nil {
		logger.Warn("User watcher: reload rejected", logger.Err(err))
		return false
	}
	w.last, w.loaded = users, true
	return true
}

func sameUsers(a, b []identity.User) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]identity.User, len(a))
	for _, u := range a {
		index[u.Username] = u
	}
	for _, u := range b {
		if prev, ok := index[u.Username]; !ok || prev != u {
			return false
		}
	}
	return true
}
