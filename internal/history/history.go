// Package history keeps recent usage snapshots in a local bbolt database,
// so the last-known reading survives restarts and the history command has
// something to show.
package history

import (
	"encoding/json"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// FileName is the database file under the cache directory.
	FileName = "history.db"

	// maxEntries is kept per provider; older snapshots are pruned on append.
	maxEntries = 500

	openTimeout = time.Second
)

// Entry is one stored snapshot with the time it was recorded.
type Entry struct {
	At      time.Time
	Payload json.RawMessage
}

// Store is an append-only snapshot log, one bucket per provider, keyed by
// RFC3339Nano timestamp so byte order is time order.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the history database under dir.
func Open(dir string) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dir, FileName), 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records v under provider at the current time and prunes entries
// beyond the retention cap.
func (s *Store) Append(provider string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(provider))
		if err != nil {
			return err
		}
		key := []byte(time.Now().UTC().Format(time.RFC3339Nano))
		if err := b.Put(key, payload); err != nil {
			return err
		}

		// Stats().KeyN lags uncommitted writes, so count directly.
		count := 0
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		excess := count - maxEntries
		if excess <= 0 {
			return nil
		}
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

// Latest decodes the most recent snapshot for provider into out. The
// second return is false when the provider has no history yet.
func (s *Store) Latest(provider string, out any) (time.Time, bool, error) {
	var (
		at    time.Time
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(provider))
		if b == nil {
			return nil
		}
		k, v := b.Cursor().Last()
		if k == nil {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, string(k))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(v, out); err != nil {
			return err
		}
		at = t
		found = true
		return nil
	})
	return at, found, err
}

// Recent returns up to n snapshots for provider, newest first.
func (s *Store) Recent(provider string, n int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(provider))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			t, err := time.Parse(time.RFC3339Nano, string(k))
			if err != nil {
				return err
			}
			payload := make(json.RawMessage, len(v))
			copy(payload, v)
			entries = append(entries, Entry{At: t, Payload: payload})
		}
		return nil
	})
	return entries, err
}
