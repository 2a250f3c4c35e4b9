// Package filters suppresses chat messages matching a user-maintained
// regex list. The list lives in filters.txt next to the config file and
// reloads automatically while the app runs.
package filters

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Store holds the compiled filter set. All methods are goroutine-safe:
// the UI loop reads while the file watcher reloads.
type Store struct {
	mu       sync.RWMutex
	path     string
	patterns []*regexp.Regexp
	enabled  bool
	reversed bool
}

// NewStore builds a store for the list at path and loads it once.
// A missing file is not an error; the set starts empty.
func NewStore(path string, enabled, reversed bool) (*Store, error) {
	s := &Store{path: path, enabled: enabled, reversed: reversed}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the filter file: one regex per line, blank lines and lines
// starting with # ignored. Lines that fail to compile are logged and
// skipped. A missing file yields an empty set. On a read failure the
// previous set is kept and the error returned.
func (s *Store) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.patterns = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("filters: read %s: %w", s.path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Debug("close filter file", slog.Any("err", err))
		}
	}()

	var patterns []*regexp.Regexp
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			slog.Warn("skipping invalid filter",
				slog.String("component", "filters"),
				slog.Int("line", lineNo), slog.Any("err", err))
			continue
		}
		patterns = append(patterns, re)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("filters: read %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.patterns = patterns
	s.mu.Unlock()
	return nil
}

// Contaminated reports whether text should be suppressed: any pattern
// matches, or, in reversed mode, no pattern matches. Always false while
// filtering is disabled.
func (s *Store) Contaminated(text string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled {
		return false
	}
	for _, re := range s.patterns {
		if re.MatchString(text) {
			return !s.reversed
		}
	}
	return s.reversed
}

// Enabled reports whether filtering is on.
func (s *Store) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Toggle flips filtering on/off and returns the new state.
func (s *Store) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = !s.enabled
	return s.enabled
}

// Reversed reports whether matching is inverted.
func (s *Store) Reversed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reversed
}

// Reverse flips inverted matching and returns the new state.
func (s *Store) Reverse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reversed = !s.reversed
	return s.reversed
}

// Len returns the number of compiled patterns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// Watch reloads the filter file when it changes, debounced so editors
// that write in bursts trigger a single reload. Blocks until ctx is
// cancelled. The parent directory is watched because most editors
// replace the file rather than write in place.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filters: watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			slog.Debug("close filter watcher", slog.Any("err", err))
		}
	}()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("filters: watch %s: %w", dir, err)
	}

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				pending = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("filter watcher error",
				slog.String("component", "filters"), slog.Any("err", err))
		case <-pending:
			timer, pending = nil, nil
			if err := s.Load(); err != nil {
				slog.Warn("filter reload failed, keeping previous set",
					slog.String("component", "filters"), slog.Any("err", err))
				continue
			}
			slog.Info("filters reloaded",
				slog.String("component", "filters"), slog.Int("patterns", s.Len()))
		}
	}
}
