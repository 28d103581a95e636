// Package statestore serializes and deserializes opaque search states to
// and from the shared filesystem, and provides the eventual-consistency
// wait the cluster environment relies on when a compute node has written a
// file that the login node may not yet see.
package statestore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aibasel/machetli-go/pkg/machetli"
)

// Store reads and writes States through a Codec.
type Store struct {
	codec machetli.Codec
}

// New returns a Store using codec. A nil codec defaults to machetli.GobCodec.
func New(codec machetli.Codec) *Store {
	if codec == nil {
		codec = machetli.NewGobCodec()
	}
	return &Store{codec: codec}
}

// Write encodes state and writes it to path.
func (s *Store) Write(state machetli.State, path string) error {
	data, err := s.codec.Encode(state)
	if err != nil {
		return fmt.Errorf("statestore: encode state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("statestore: write %q: %w", path, err)
	}
	return nil
}

// Read reads and decodes the state stored at path.
func (s *Store) Read(path string) (machetli.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("statestore: read %q: %w", path, err)
	}
	state, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("statestore: decode %q: %w", path, err)
	}
	return state, nil
}

// WaitFor checks once immediately and then once after each of
// ceil(limit/interval) intervals, returning true once every path in paths
// exists and false if the last scheduled check still finds one missing; a
// wait that times out therefore makes ceil(limit/interval)+1 scheduled
// checks. Between checks it also watches each path's parent directory with
// fsnotify, and every event triggers an extra check, so a file appearing
// well before the next scheduled tick is noticed immediately -- these
// extra checks only ever let WaitFor return *earlier* than the schedule
// would.
func (s *Store) WaitFor(paths []string, interval, limit time.Duration) bool {
	if len(paths) == 0 {
		return true
	}
	if interval <= 0 {
		interval = time.Second
	}

	remaining := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		remaining[p] = struct{}{}
	}
	removeExisting(remaining)
	if len(remaining) == 0 {
		return true
	}

	watcher, watchErr := fsnotify.NewWatcher()
	if watchErr == nil {
		defer watcher.Close()
		watchDirs(watcher, remaining)
	}

	attempts := int(math.Ceil(float64(limit) / float64(interval)))
	if attempts < 1 {
		attempts = 1
	}

	var events chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}

	for i := 0; i < attempts; i++ {
		timer := time.NewTimer(interval)
	pollWait:
		for {
			select {
			case <-timer.C:
				break pollWait
			case _, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				removeExisting(remaining)
				if len(remaining) == 0 {
					timer.Stop()
					return true
				}
				if watcher != nil {
					watchDirs(watcher, remaining)
				}
			}
		}

		removeExisting(remaining)
		if len(remaining) == 0 {
			return true
		}
		if watcher != nil {
			watchDirs(watcher, remaining)
		}
	}

	return false
}

func removeExisting(remaining map[string]struct{}) {
	for p := range remaining {
		if _, err := os.Stat(p); err == nil {
			delete(remaining, p)
		}
	}
}

func watchDirs(watcher *fsnotify.Watcher, remaining map[string]struct{}) {
	seen := make(map[string]struct{})
	for p := range remaining {
		dir := filepath.Dir(p)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		_ = watcher.Add(dir) // best effort; polling still covers a missing/late directory
	}
}
