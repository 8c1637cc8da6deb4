// Package reload watches the files behind stored configurations and reloads
// them into the store when any of them changes.
package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/store"
)

// DefaultDebounce is how long a configuration must be quiet before reloading.
// Shorter debounce values are raised to MinDebounce.
const (
	DefaultDebounce = 250 * time.Millisecond
	MinDebounce     = time.Millisecond
)

// Metrics receives reload outcomes.
type Metrics interface {
	ObserveReload(err error)
}

// Result reports one reload attempt.
type Result struct {
	Name    string
	Path    string
	Sources []string
	Err     error
	At      time.Time
}

type target struct {
	path    string
	sources []string
}

// Watcher reloads configurations into a store when a source file changes.
// Every file read by the last successful parse is watched, so editing an
// included file reloads the configurations that include it.
type Watcher struct {
	mu       sync.Mutex
	store    *store.Store
	debounce time.Duration
	log      logging.Logger
	metrics  Metrics

	targets map[string]*target
	index   map[string][]string // source path -> configuration names
	dirs    map[string]bool

	fsw       *fsnotify.Watcher
	listeners []func(Result)
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = max(d, MinDebounce)
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// New constructs a watcher over s.
func New(s *store.Store, opts ...Option) *Watcher {
	w := &Watcher{
		store:    s,
		debounce: DefaultDebounce,
		log:      logging.Noop(),
		targets:  make(map[string]*target),
		index:    make(map[string][]string),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddListener registers a callback invoked after every reload attempt.
func (w *Watcher) AddListener(fn func(Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Add loads path into the store under name and starts tracking its sources.
func (w *Watcher) Add(ctx context.Context, name, path string) error {
	m, err := w.store.Load(ctx, name, path)
	if err != nil {
		return err
	}
	return w.track(name, path, m.Sources())
}

// Reload loads name again from its original path.
func (w *Watcher) Reload(ctx context.Context, name string) Result {
	w.mu.Lock()
	t, ok := w.targets[name]
	w.mu.Unlock()

	res := Result{Name: name, At: time.Now()}
	if !ok {
		res.Err = fmt.Errorf("%w: %q is not watched", store.ErrNotFound, name)
		return res
	}
	res.Path = t.path

	m, err := w.store.Load(ctx, name, t.path)
	if err == nil {
		res.Sources = m.Sources()
		err = w.track(name, t.path, res.Sources)
	}
	res.Err = err
	if w.metrics != nil {
		w.metrics.ObserveReload(err)
	}

	if err != nil {
		w.log.Warn(ctx, "reload failed; keeping previous configuration",
			logging.String("name", name),
			logging.Err(err),
		)
	} else {
		w.log.Info(ctx, "configuration reloaded",
			logging.String("name", name),
			logging.Int("sources", len(res.Sources)),
		)
	}

	w.mu.Lock()
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(res)
	}
	return res
}

// Names returns the configurations watched by w, sorted.
func (w *Watcher) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.targets))
	for name := range w.targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (w *Watcher) track(name, path string, sources []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.targets[name]; ok {
		for _, src := range old.sources {
			w.index[src] = slices.DeleteFunc(w.index[src], func(n string) bool { return n == name })
			if len(w.index[src]) == 0 {
				delete(w.index, src)
			}
		}
	}
	w.targets[name] = &target{path: path, sources: sources}
	for _, src := range sources {
		w.index[src] = append(w.index[src], name)
	}
	return w.watchDirsLocked()
}

// watchDirsLocked adds the directory of every indexed source to the
// fsnotify watcher. Directories are watched rather than files so that
// editors which replace a file on save are still seen.
func (w *Watcher) watchDirsLocked() error {
	if w.fsw == nil {
		return nil
	}
	for src := range w.index {
		dir := filepath.Dir(src)
		if w.dirs[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}

func (w *Watcher) affected(path string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.index[filepath.Clean(path)])
}

// Start watches the tracked sources until ctx is cancelled. It returns a
// channel that is closed when the watcher finishes.
func (w *Watcher) Start(ctx context.Context) (<-chan struct{}, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.fsw = fsw
	err = w.watchDirsLocked()
	w.mu.Unlock()
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			w.mu.Lock()
			_ = w.fsw.Close()
			w.fsw = nil
			w.dirs = make(map[string]bool)
			w.mu.Unlock()
		}()

		pending := make(map[string]time.Time)
		ticker := time.NewTicker(w.debounce / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				for _, name := range w.affected(ev.Name) {
					pending[name] = time.Now()
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.log.Warn(ctx, "file watcher error", logging.Err(err))
			case now := <-ticker.C:
				for name, last := range pending {
					if now.Sub(last) < w.debounce {
						continue
					}
					delete(pending, name)
					w.Reload(ctx, name)
				}
			}
		}
	}()
	return done, nil
}
