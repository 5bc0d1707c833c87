// Package correlate holds the tag-keyed correlation table shared between the
// send path and the asynchronous event-delivery path, and the router that
// turns delivered events into side effects.
package correlate

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"notifyd/internal/domain"
)

// Store is a concurrent tag -> CallbackMetadata table. Entries are written by
// request-handling goroutines and read by notifier-owned event goroutines;
// the table's lock is internal and distinct from any send-path lock, so a
// slow Show call never blocks event lookups.
type Store struct {
	cache *gocache.Cache
}

// NewStore creates a store. ttl <= 0 keeps entries for the process lifetime
// (unbounded growth at high send volume; the TTL opt-in caps it).
func NewStore(ttl time.Duration) *Store {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &Store{cache: gocache.New(expiration, cleanup)}
}

// Insert records metadata under a tag. Tags are unique by construction, so a
// duplicate insert is a programming error, reported to the caller rather
// than the client.
func (s *Store) Insert(tag string, meta domain.CallbackMetadata) error {
	if err := s.cache.Add(tag, meta, gocache.DefaultExpiration); err != nil {
		return fmt.Errorf("duplicate correlation tag %s: %w", tag, err)
	}
	return nil
}

// Lookup returns the metadata for a tag. A miss is a normal outcome (stale
// event after a restart, or an evicted entry) and carries no error.
func (s *Store) Lookup(tag string) (domain.CallbackMetadata, bool) {
	v, ok := s.cache.Get(tag)
	if !ok {
		return domain.CallbackMetadata{}, false
	}
	return v.(domain.CallbackMetadata), true
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
