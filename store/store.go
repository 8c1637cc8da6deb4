// Package store keeps named, fully parsed RDF configurations in memory and
// notifies subscribers when one is loaded or removed.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/rdf"
)

var (
	// ErrNotFound is returned when a named configuration is not in the store.
	ErrNotFound = errors.New("configuration not found")
	ErrNoName   = errors.New("empty configuration name")
	ErrNilMap   = errors.New("nil mapping")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventLoaded EventType = iota
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers after the store changes.
type Event struct {
	Type    EventType
	Name    string
	Mapping *rdf.Mapping
}

// Loader parses a configuration file. *rdf.Parser satisfies it.
type Loader interface {
	ParseFile(ctx context.Context, path string) (*rdf.Mapping, error)
}

// MetricsRecorder receives store size updates.
type MetricsRecorder interface {
	SetStoreCounts(configs, records int)
}

// Info describes a stored configuration.
type Info struct {
	Name     string
	Path     string
	Records  int
	Sources  []string
	LoadedAt time.Time
}

type entry struct {
	mapping  *rdf.Mapping
	path     string
	loadedAt time.Time
}

// Store is an in-memory, thread-safe set of named configurations.
type Store struct {
	mu sync.RWMutex

	configs map[string]*entry
	subs    map[int]func(Event)
	nextSub int

	loader  Loader
	log     logging.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLoader replaces the default parser used by Load.
func WithLoader(l Loader) Option {
	return func(s *Store) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics reports store sizes to m on every change.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Store) { s.metrics = m }
}

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		configs: make(map[string]*entry),
		subs:    make(map[int]func(Event)),
		loader:  rdf.NewParser(),
		log:     logging.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load parses path completely and then stores the result under name,
// replacing any previous mapping. On error the previous mapping is kept. The
// returned mapping belongs to the caller.
func (s *Store) Load(ctx context.Context, name, path string) (*rdf.Mapping, error) {
	if name == "" {
		return nil, ErrNoName
	}
	m, err := s.loader.ParseFile(ctx, path)
	if err != nil {
		s.log.Warn(ctx, "configuration load failed",
			logging.String("name", name),
			logging.String("path", path),
			logging.Err(err),
		)
		return nil, err
	}
	s.put(ctx, name, path, m)
	return m, nil
}

// Put stores a copy of an already built mapping under name.
func (s *Store) Put(ctx context.Context, name string, m *rdf.Mapping) error {
	switch {
	case name == "":
		return ErrNoName
	case m == nil:
		return fmt.Errorf("%w for %q", ErrNilMap, name)
	}
	s.put(ctx, name, "", m)
	return nil
}

func (s *Store) put(ctx context.Context, name, path string, m *rdf.Mapping) {
	m = m.Copy()
	s.mu.Lock()
	s.configs[name] = &entry{mapping: m, path: path, loadedAt: s.now()}
	event := Event{Type: EventLoaded, Name: name, Mapping: m.Copy()}
	subs := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info(ctx, "configuration loaded",
		logging.String("name", name),
		logging.String("path", path),
		logging.Int("records", m.Len()),
	)
	s.notify(subs, event)
}

// Get returns a copy of the named mapping.
func (s *Store) Get(name string) (*rdf.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.mapping.Copy(), nil
}

// Info describes the named configuration.
func (s *Store) Info(name string) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.configs[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.info(name), nil
}

func (e *entry) info(name string) Info {
	return Info{
		Name:     name,
		Path:     e.path,
		Records:  e.mapping.Len(),
		Sources:  e.mapping.Sources(),
		LoadedAt: e.loadedAt,
	}
}

// List returns the stored configuration names, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Remove deletes the named configuration and reports whether it existed.
func (s *Store) Remove(ctx context.Context, name string) bool {
	s.mu.Lock()
	e, ok := s.configs[name]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.configs, name)
	event := Event{Type: EventRemoved, Name: name, Mapping: e.mapping.Copy()}
	subs := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info(ctx, "configuration removed", logging.String("name", name))
	s.notify(subs, event)
	return true
}

// Subscribe registers a callback for store events. It returns an unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// snapshotLocked copies subscribers in registration order and refreshes the
// metrics gauges. Callers hold s.mu.
func (s *Store) snapshotLocked() []func(Event) {
	if s.metrics != nil {
		records := 0
		for _, e := range s.configs {
			records += e.mapping.Len()
		}
		s.metrics.SetStoreCounts(len(s.configs), records)
	}

	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	return subs
}

// notify runs outside the lock so subscribers may call back into the store.
func (s *Store) notify(subs []func(Event), event Event) {
	for _, sub := range subs {
		sub(event)
	}
}
