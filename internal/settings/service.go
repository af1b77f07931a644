// Package settings persists per-capability enable toggles to a YAML
// file and exposes the disabled set as dismissed intent IDs for the
// routing layer. External edits to the file are picked up live.
package settings

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// knownIntents are the toggleable capability intent IDs, all enabled by
// default.
var knownIntents = []string{"calendar", "email", "meet", "classroom"}

type Service struct {
	path string

	mu      sync.RWMutex
	toggles map[string]bool
}

func NewService(path string) *Service {
	s := &Service{
		path:    path,
		toggles: defaultToggles(),
	}
	if err := s.load(); err != nil {
		slog.Warn("could not load settings, using defaults", "path", path, "error", err)
	}
	return s
}

func defaultToggles() map[string]bool {
	toggles := make(map[string]bool, len(knownIntents))
	for _, intent := range knownIntents {
		toggles[intent] = true
	}
	return toggles
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var stored map[string]bool
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = defaultToggles()
	for intent, enabled := range stored {
		s.toggles[intent] = enabled
	}
	return nil
}

// Toggles returns a copy of the current per-intent enable map.
func (s *Service) Toggles() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.toggles))
	for intent, enabled := range s.toggles {
		out[intent] = enabled
	}
	return out
}

// Update overwrites the given toggles and persists the full set. Unknown
// intent IDs are stored as-is so future capabilities keep their state.
func (s *Service) Update(toggles map[string]bool) error {
	s.mu.Lock()
	for intent, enabled := range toggles {
		s.toggles[intent] = enabled
	}
	snapshot := make(map[string]bool, len(s.toggles))
	for intent, enabled := range s.toggles {
		snapshot[intent] = enabled
	}
	s.mu.Unlock()

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// DismissedIntents returns the intent IDs currently toggled off, in
// stable order.
func (s *Service) DismissedIntents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var dismissed []string
	for intent, enabled := range s.toggles {
		if !enabled {
			dismissed = append(dismissed, intent)
		}
	}
	sort.Strings(dismissed)
	return dismissed
}

// Watch reloads the settings file when it changes on disk, until ctx is
// canceled. The parent directory is watched because editors and the
// atomic rename in Update replace the file node.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}
	slog.InfoContext(ctx, "watching settings file", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.load(); err != nil {
				slog.WarnContext(ctx, "settings reload failed", "error", err)
				continue
			}
			slog.InfoContext(ctx, "settings reloaded", "dismissed", s.DismissedIntents())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "settings watcher error", "error", err)
		}
	}
}
