package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Logger is the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Entry is one strategy as listed by the store.
type Entry struct {
	Key        string     `json:"key"`
	Active     bool       `json:"active"`
	Definition Definition `json:"definition"`
}

// Store owns the strategy document.
//
// Mutators (Load, SetActive, Upsert, Remove) are serialized by writeMu.
// Each builds the next document from a copy, persists it when needed, and
// only then takes mu exclusively to swap it in. Readers take mu shared and
// never wait on I/O.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	source Source
	logger Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	doc     Document
	loaded  bool
}

// NewStore creates a store backed by source. The store starts with an
// empty document whose active key is "default" until Load succeeds.
func NewStore(source Source, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{
		source: source,
		logger: logger,
		doc:    emptyDocument(),
	}
}

// Load reads the document from the source and replaces the in-memory copy.
// On failure the current document is kept and a *ConfigError is returned.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc, err := s.source.Load(ctx)
	if err != nil {
		cfgErr := &ConfigError{Source: s.source.Location(), Err: err}
		s.logger.Warn("strategy load failed, keeping current strategies",
			"source", s.source.Location(),
			"error", err,
		)
		return cfgErr
	}

	s.swap(doc)
	s.logger.Info("strategies loaded",
		"source", s.source.Location(),
		"count", len(doc.Strategies),
		"active", doc.ActiveStrategy,
	)
	return nil
}

// Loaded reports whether a document has been loaded successfully.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Active returns the strategy bound to the active definition.
//
// When the active key is missing from the document the "default" entry is
// used; when that is missing too and the active key is "default" the
// built-in placeholder (all zero) is returned. Otherwise ErrStrategyNotFound.
func (s *Store) Active() (Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.doc.ActiveStrategy
	if def, ok := s.doc.Strategies[active]; ok {
		return New(active, def), nil
	}
	if def, ok := s.doc.Strategies[DefaultKey]; ok {
		return New(DefaultKey, def), nil
	}
	if active == DefaultKey {
		return New(DefaultKey, placeholderDefinition), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrStrategyNotFound, active)
}

// ActiveName returns the active strategy key.
func (s *Store) ActiveName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ActiveStrategy
}

// Get returns the definition stored under key.
func (s *Store) Get(key string) (Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.doc.Strategies[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return def, nil
}

// List returns every strategy sorted by key.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.doc.Strategies))
	for key, def := range s.doc.Strategies {
		entries = append(entries, Entry{
			Key:        key,
			Active:     key == s.doc.ActiveStrategy,
			Definition: def,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.clone()
}

// SetActive makes key the active strategy. DefaultKey is always accepted,
// even when the document does not define it. The change is persisted
// before it takes effect; on a persistence error nothing changes.
func (s *Store) SetActive(ctx context.Context, key string) error {
	return s.mutate(ctx, "set_active", func(next *Document) error {
		if _, ok := next.Strategies[key]; !ok && key != DefaultKey {
			return fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		next.ActiveStrategy = key
		return nil
	})
}

// Upsert creates or replaces the definition under key.
func (s *Store) Upsert(ctx context.Context, key string, def Definition) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, "upsert", func(next *Document) error {
		next.Strategies[key] = def
		return nil
	})
}

// Remove deletes the definition under key. The active strategy cannot be
// removed.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.mutate(ctx, "remove", func(next *Document) error {
		if _, ok := next.Strategies[key]; !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		if key == next.ActiveStrategy {
			return fmt.Errorf("%w: %q is the active strategy", ErrInUse, key)
		}
		delete(next.Strategies, key)
		return nil
	})
}

// mutate applies change to a copy of the document, persists the copy and
// swaps it in.
func (s *Store) mutate(ctx context.Context, op string, change func(next *Document) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// A failed initial load must not be overwritten by a partial document.
	if !s.Loaded() {
		return &ConfigError{Source: s.source.Location(), Err: errors.New("no strategy document loaded")}
	}

	next := s.Snapshot()
	if err := change(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	if err := s.source.Save(ctx, next); err != nil {
		s.logger.Error("persisting strategies failed",
			"op", op,
			"source", s.source.Location(),
			"error", err,
		)
		return fmt.Errorf("persisting strategies: %w", err)
	}

	s.swap(next)
	s.logger.Info("strategies updated", "op", op, "active", next.ActiveStrategy)
	return nil
}

func (s *Store) swap(doc Document) {
	s.mu.Lock()
	s.doc = doc
	s.loaded = true
	s.mu.Unlock()
}

// IsClientError reports whether err was caused by the caller's input
// rather than by persistence.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInUse) ||
		errors.Is(err, ErrInvalidDefinition)
}
