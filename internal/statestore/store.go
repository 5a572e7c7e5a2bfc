// Package statestore persists small cross-restart records to disk with
// file locking, so state survives process restarts and stays consistent
// when several invocations run at once.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

const (
	// StateFileName is the default state file name.
	StateFileName = "state.json"

	// StateVersion is bumped when the on-disk layout changes.
	StateVersion = 1
)

// Entry is a single persisted record with its cache-creation timestamp.
type Entry struct {
	Payload json.RawMessage `json:"payload"`
	SavedAt time.Time       `json:"saved_at"`
}

// State is the on-disk document.
type State struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Version: StateVersion, Entries: make(map[string]Entry)}
}

// Store handles reading and writing persisted state with file locking.
type Store struct {
	dir string
}

// NewStore creates a state store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the full path to the state file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

// LockTimeout is the maximum time to wait for acquiring the file lock.
// If exceeded, operations proceed without locking (fail-open) to avoid hangs.
const LockTimeout = 100 * time.Millisecond

type fileLock struct {
	flock *flock.Flock
}

// acquireLock obtains an exclusive lock on the state directory.
//
// Fail-open semantics: returns nil (with no error) if the lock cannot be
// acquired within LockTimeout. A stale lock from a crashed process must not
// hang the poller; the worst case is one cycle reading a slightly older
// cached credential, which the resolution order tolerates.
func (s *Store) acquireLock() (*fileLock, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath())

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}

	return &fileLock{flock: fl}, nil
}

func (fl *fileLock) release() error {
	if fl == nil || fl.flock == nil {
		return nil
	}
	return fl.flock.Unlock()
}

// Get returns the entry under key, if present.
func (s *Store) Get(key string) (Entry, bool, error) {
	state, err := s.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := state.Entries[key]
	return e, ok, nil
}

// Put stores payload under key with the current timestamp.
func (s *Store) Put(key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.update(func(state *State) {
		state.Entries[key] = Entry{Payload: data, SavedAt: time.Now()}
	})
}

// Delete removes the entry under key.
func (s *Store) Delete(key string) error {
	return s.update(func(state *State) {
		delete(state.Entries, key)
	})
}

// Clear removes the state file entirely.
func (s *Store) Clear() error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	err = os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) load() (*State, error) {
	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}
	return s.loadUnsafe()
}

func (s *Store) loadUnsafe() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupted files are treated as empty rather than fatal.
		return NewState(), nil
	}
	if state.Entries == nil {
		state.Entries = make(map[string]Entry)
	}
	return &state, nil
}

// update atomically loads, modifies, and saves the state, holding the lock
// across the whole read-modify-write cycle.
func (s *Store) update(fn func(*State)) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	state, err := s.loadUnsafe()
	if err != nil {
		return err
	}

	fn(state)
	return s.saveUnsafe(state)
}

func (s *Store) saveUnsafe(state *State) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	state.Version = StateVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file with unique name (PID + timestamp)
	// to avoid conflicts when the lock could not be acquired.
	tmpPath := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	// On Windows, os.Rename fails if the destination exists.
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}
