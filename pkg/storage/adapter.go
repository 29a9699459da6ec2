// Package storage persists workflow snapshots behind a small adapter
// interface, with debounced writes and overflow fallback.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotFound is returned by Load when no snapshot exists under the key.
var ErrNotFound = errors.New("storage: snapshot not found")

// OverflowError reports a snapshot rejected for exceeding an adapter's
// size limit.
type OverflowError struct {
	Size  int
	Limit int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("snapshot of %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
}

// Adapter reads and writes workflow snapshots by key.
type Adapter interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Clear(ctx context.Context, key string) error
}

// DefaultDebounce is the save coalescing window.
const DefaultDebounce = time.Second

// DebouncedSaver coalesces rapid snapshot updates into a single write
// per debounce window. When the primary adapter rejects a snapshot for
// size, the saver retries with a compressed form and falls back to the
// secondary adapter, logging the degraded mode.
type DebouncedSaver struct {
	primary   Adapter
	secondary Adapter
	compress  func([]byte) ([]byte, error)
	debounce  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending []byte
	key     string
}

// SaverOption configures a DebouncedSaver.
type SaverOption func(*DebouncedSaver)

// WithSecondary sets a fallback adapter used when the primary rejects
// a snapshot for size even after compression.
func WithSecondary(a Adapter) SaverOption {
	return func(s *DebouncedSaver) { s.secondary = a }
}

// WithCompressor sets the function used to shrink an oversized snapshot
// before retrying the primary adapter.
func WithCompressor(fn func([]byte) ([]byte, error)) SaverOption {
	return func(s *DebouncedSaver) { s.compress = fn }
}

// WithDebounce overrides the coalescing window. Zero writes immediately,
// which tests rely on.
func WithDebounce(d time.Duration) SaverOption {
	return func(s *DebouncedSaver) { s.debounce = d }
}

// WithLogger overrides the saver's logger.
func WithLogger(l *slog.Logger) SaverOption {
	return func(s *DebouncedSaver) { s.logger = l }
}

func NewDebouncedSaver(primary Adapter, opts ...SaverOption) *DebouncedSaver {
	s := &DebouncedSaver{
		primary:  primary,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule queues data for writing under key. Each call resets the
// debounce timer; only the last snapshot in a burst is written.
func (s *DebouncedSaver) Schedule(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.key = key
	s.pending = data

	if s.debounce == 0 {
		s.flushLocked()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.Flush)
}

// Flush writes any pending snapshot immediately.
func (s *DebouncedSaver) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *DebouncedSaver) flushLocked() {
	if s.pending == nil {
		return
	}
	data := s.pending
	key := s.key
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if err := s.write(context.Background(), key, data); err != nil {
		s.logger.Error("snapshot save failed", "key", key, "error", err)
	}
}

func (s *DebouncedSaver) write(ctx context.Context, key string, data []byte) error {
	err := s.primary.Save(ctx, key, data)
	if err == nil {
		return nil
	}

	var overflow *OverflowError
	if !errors.As(err, &overflow) {
		return err
	}

	if s.compress != nil {
		compressed, cerr := s.compress(data)
		if cerr == nil {
			if err = s.primary.Save(ctx, key, compressed); err == nil {
				s.logger.Warn("snapshot saved in compressed form", "key", key, "size", len(compressed))
				return nil
			}
			data = compressed
		}
	}

	if s.secondary == nil {
		return err
	}
	if err := s.secondary.Save(ctx, key, data); err != nil {
		return err
	}
	s.logger.Warn("snapshot saved to secondary storage", "key", key, "size", len(data))
	return nil
}
