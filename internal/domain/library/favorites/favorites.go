package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Key is the fixed key the favorite set is stored under.
const Key = "favoriteStories"

var (
	// ErrNotStored is returned by Load when nothing has been saved yet.
	ErrNotStored = errors.New("no favorites stored")

	// ErrFavoriteStoreCorrupt wraps stored data that cannot be decoded.
	ErrFavoriteStoreCorrupt = errors.New("favorite store corrupt")

	// ErrFavoritePersistFailure wraps any failure to write the set.
	ErrFavoritePersistFailure = errors.New("failed to persist favorites")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("favorite store is closed")
)

// Store persists the favorite set across restarts.
type Store interface {
	// Load returns the saved set, ErrNotStored when absent, or an error
	// wrapping ErrFavoriteStoreCorrupt when the data cannot be decoded.
	Load(ctx context.Context) (Set, error)

	// Save replaces the stored set.
	Save(ctx context.Context, set Set) error
}

// Set is an unordered set of story ids.
type Set map[int]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...int) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips membership and returns whether id is now in the set.
func (s Set) Toggle(id int) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// IDs returns the members in ascending order.
func (s Set) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	return NewSet(s.IDs()...)
}

// Equal reports set equality regardless of order.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted JSON array of ints.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes a JSON array of ints. Duplicates collapse.
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	if ids == nil {
		return fmt.Errorf("favorite set must be a JSON array")
	}
	*s = NewSet(ids...)
	return nil
}

// decode turns a stored value into a Set, tagging failures as corrupt.
func decode(data []byte) (Set, error) {
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFavoriteStoreCorrupt, err)
	}
	return s, nil
}
