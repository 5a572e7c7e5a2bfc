package auth

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/gaamiranda/Claude-Checker/internal/output"
	"github.com/gaamiranda/Claude-Checker/internal/statestore"
)

const (
	// memoryTTL bounds how long the in-process tier is served without
	// re-resolving from disk or the keychain.
	memoryTTL = 30 * time.Minute

	// persistKey is the statestore entry holding the cached credential.
	persistKey = "claudeOauth"
)

// Store resolves the canonical credential record from a tiered set of
// backing stores: in-process cache, persisted cache, platform secret store,
// fallback file. First hit wins.
type Store struct {
	mu sync.Mutex

	persisted *statestore.Store
	credFile  string

	// keyringGet is swappable for tests.
	keyringGet func() (string, error)

	mem         *CredentialRecord
	memCachedAt time.Time
}

// NewStore creates a credential store. stateDir holds the persisted
// cross-restart cache; credFile is the fallback credentials file.
func NewStore(stateDir, credFile string) *Store {
	return &Store{
		persisted:  statestore.NewStore(stateDir),
		credFile:   credFile,
		keyringGet: readKeyring,
	}
}

// WithKeyring overrides the platform keyring reader. Used by tests and
// callers that need to disable the keyring tier.
func (s *Store) WithKeyring(get func() (string, error)) *Store {
	s.keyringGet = get
	return s
}

// resolver returns (record, found, err). An error aborts resolution; a
// not-found falls through to the next tier.
type resolver func() (*CredentialRecord, bool, error)

// Get resolves the credential record. Staleness of the returned token is
// the caller's concern; only the tiers decide what they are willing to
// serve at all.
func (s *Store) Get() (*CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, resolve := range []resolver{
		s.fromMemory,
		s.fromPersisted,
		s.fromKeyring,
		s.fromFile,
	} {
		rec, found, err := resolve()
		if err != nil {
			return nil, err
		}
		if found {
			return rec.clone(), nil
		}
	}

	return nil, output.ErrCredentialNotFound()
}

// fromMemory serves the in-process tier while it is younger than memoryTTL,
// even if the token itself has expired.
func (s *Store) fromMemory() (*CredentialRecord, bool, error) {
	if s.mem == nil || time.Since(s.memCachedAt) >= memoryTTL {
		return nil, false, nil
	}
	return s.mem, true, nil
}

// fromPersisted serves the cross-restart tier. A record that is expired and
// has no refresh token can never be made usable again, so it is skipped
// rather than returned. Read errors are treated as a miss; this tier is
// only a cache.
func (s *Store) fromPersisted() (*CredentialRecord, bool, error) {
	entry, ok, err := s.persisted.Get(persistKey)
	if err != nil || !ok {
		return nil, false, nil
	}

	var rec CredentialRecord
	if err := json.Unmarshal(entry.Payload, &rec); err != nil || rec.AccessToken == "" {
		return nil, false, nil
	}
	if rec.IsExpired() && !rec.HasRefreshToken() {
		return nil, false, nil
	}
	return &rec, true, nil
}

// fromKeyring reads the platform secret store. A missing or unavailable
// entry falls through; a present entry that fails to decode is a hard
// error so corruption doesn't silently shadow real credentials.
func (s *Store) fromKeyring() (*CredentialRecord, bool, error) {
	data, err := s.keyringGet()
	if err != nil {
		return nil, false, nil
	}

	rec, err := decodeEnvelope([]byte(data))
	if err != nil {
		return nil, false, output.ErrCredentialInvalid(err)
	}

	s.populateMemory(rec)
	return rec, true, nil
}

// fromFile reads the fallback credentials file, trying the nested envelope
// then the legacy flat shape.
func (s *Store) fromFile() (*CredentialRecord, bool, error) {
	data, err := os.ReadFile(s.credFile)
	if err != nil {
		return nil, false, nil
	}

	rec, err := decodeCredentialsFile(data)
	if err != nil {
		return nil, false, output.ErrCredentialInvalid(err)
	}

	s.populateMemory(rec)
	return rec, true, nil
}

func (s *Store) populateMemory(rec *CredentialRecord) {
	s.mem = rec
	s.memCachedAt = time.Now()
}

// CacheRefreshed writes a freshly refreshed record through to both the
// in-process and persisted tiers. Called after every successful refresh.
func (s *Store) CacheRefreshed(rec *CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.populateMemory(rec.clone())
	return s.persisted.Put(persistKey, rec)
}

// Invalidate clears both cache tiers, forcing the next Get to re-resolve
// from the secret store or file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Store) invalidateLocked() {
	s.mem = nil
	s.memCachedAt = time.Time{}
	_ = s.persisted.Delete(persistKey)
}

// InvalidateIfSourceChanged clears the caches when the fallback credentials
// file has been modified since the in-process tier was populated. This lets
// a re-authentication performed outside this process be picked up without a
// restart. Idempotent when nothing changed.
func (s *Store) InvalidateIfSourceChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem == nil {
		return
	}
	info, err := os.Stat(s.credFile)
	if err != nil {
		return
	}
	if info.ModTime().After(s.memCachedAt) {
		s.invalidateLocked()
	}
}

// SourceFile returns the fallback credentials file path this store watches.
func (s *Store) SourceFile() string {
	return s.credFile
}
