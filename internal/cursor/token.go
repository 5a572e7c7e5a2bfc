package cursor

import (
	"encoding/json"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/gaamiranda/Claude-Checker/internal/statestore"
)

const (
	keyringService = "claude-checker"
	keyringAccount = "cursor-session"

	stateKey = "cursorSession"
)

// TokenStore holds the Cursor session cookie. The keyring is preferred;
// on headless systems without a secret service the state file is used so
// set-token still works there.
type TokenStore struct {
	state *statestore.Store

	// test seams
	keyringGet    func() (string, error)
	keyringSet    func(string) error
	keyringDelete func() error
}

// NewTokenStore creates a token store persisting its fallback under stateDir.
func NewTokenStore(stateDir string) *TokenStore {
	return &TokenStore{
		state: statestore.NewStore(stateDir),
		keyringGet: func() (string, error) {
			return keyring.Get(keyringService, keyringAccount)
		},
		keyringSet: func(token string) error {
			return keyring.Set(keyringService, keyringAccount, token)
		},
		keyringDelete: func() error {
			return keyring.Delete(keyringService, keyringAccount)
		},
	}
}

// Get returns the stored cookie, or "" when none is stored. Any keyring
// error falls through to the state file.
func (s *TokenStore) Get() string {
	if token, err := s.keyringGet(); err == nil {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}

	entry, ok, err := s.state.Get(stateKey)
	if err != nil || !ok {
		return ""
	}
	var token string
	if json.Unmarshal(entry.Payload, &token) != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

// Set stores the cookie in the keyring, falling back to the state file.
func (s *TokenStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if err := s.keyringSet(token); err == nil {
		// A stale file copy must not shadow future clears.
		_ = s.state.Delete(stateKey)
		return nil
	}
	return s.state.Put(stateKey, token)
}

// Clear removes the cookie from both backends.
func (s *TokenStore) Clear() error {
	_ = s.keyringDelete()
	return s.state.Delete(stateKey)
}
