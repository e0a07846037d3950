package library

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"shortshelf/internal/domain/library/favorites"
	"shortshelf/internal/domain/library/illustration"
	"shortshelf/internal/domain/library/resource"
	"shortshelf/internal/domain/story"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrResourceListingUnavailable = errors.New("story resources unavailable")
	ErrStoryIDUnparseable         = errors.New("story id not parseable from file name")
	ErrDuplicateStoryID           = errors.New("duplicate story id")
	ErrResourceUnreadable         = errors.New("story resource unreadable")

	// Re-exported so callers only need this package for error checks.
	ErrMissingContent         = story.ErrMissingContent
	ErrFavoriteStoreCorrupt   = favorites.ErrFavoriteStoreCorrupt
	ErrFavoritePersistFailure = favorites.ErrFavoritePersistFailure
)

// Diagnostic records a non-fatal problem met while loading or saving.
type Diagnostic struct {
	Resource string
	Err      error
}

func (d Diagnostic) String() string {
	if d.Resource == "" {
		return d.Err.Error()
	}
	return fmt.Sprintf("%s: %v", d.Resource, d.Err)
}

// Change describes one favorite toggle.
type Change struct {
	StoryID  int
	Favorite bool
}

// Observer is called synchronously after every toggle.
type Observer func(Change)

// Library owns the story collection and the favorite set.
//
// The collection is built once by New and never changes. The favorite set is
// changed only by ToggleFavorite, which persists it before notifying
// observers. Observers may query the library but must not toggle from inside
// a callback.
type Library struct {
	writeMu sync.Mutex
	mu      sync.RWMutex

	stories   []story.Item
	index     map[int]int
	favorites favorites.Set
	store     favorites.Store

	observers    map[int]Observer
	nextObserver int

	diagnostics []Diagnostic
}

// New loads every story from src and the favorite set from store. It never
// fails: unreadable input shrinks the collection or empties the favorites and
// is reported through Diagnostics.
func New(ctx context.Context, src resource.Source, store favorites.Store) *Library {
	l := &Library{
		index:     make(map[int]int),
		favorites: favorites.NewSet(),
		store:     store,
		observers: make(map[int]Observer),
	}

	l.loadStories(src)
	l.loadFavorites(ctx)
	l.syncFavorites()

	logrus.WithFields(logrus.Fields{
		"stories":     len(l.stories),
		"favorites":   len(l.favorites),
		"diagnostics": len(l.diagnostics),
	}).Info("Library loaded")

	return l
}

func (l *Library) loadStories(src resource.Source) {
	if src == nil {
		l.report("", ErrResourceListingUnavailable)
		return
	}

	resources, err := src.List()
	if err != nil {
		l.report("", fmt.Errorf("%w: %v", ErrResourceListingUnavailable, err))
		return
	}

	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Name < resources[j].Name
	})

	for _, res := range resources {
		if res.Err != nil {
			l.report(res.Name, fmt.Errorf("%w: %v", ErrResourceUnreadable, res.Err))
			continue
		}

		stem := strings.TrimSuffix(res.Name, path.Ext(res.Name))
		id, ok := parseID(stem)
		if !ok {
			l.report(res.Name, fmt.Errorf("%w: %q", ErrStoryIDUnparseable, stem))
			continue
		}

		if _, dup := l.index[id]; dup {
			l.report(res.Name, fmt.Errorf("%w: %d", ErrDuplicateStoryID, id))
			continue
		}

		item, err := story.Parse(res.Text, id)
		if err != nil {
			l.report(res.Name, err)
			continue
		}

		if item.Title == "" {
			item.Title = story.PlaceholderTitle(id)
		}

		l.index[id] = len(l.stories)
		l.stories = append(l.stories, item)

		logrus.WithFields(logrus.Fields{
			"id":    id,
			"title": item.Title,
			"runes": len([]rune(item.Content)),
			"file":  res.Name,
		}).Debug("Loaded story")
	}
}

// parseID accepts stems made only of digits naming a positive id, so "-001"
// and "+1" are rejected.
func parseID(stem string) (int, bool) {
	if stem == "" {
		return 0, false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	id, err := strconv.Atoi(stem)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func (l *Library) loadFavorites(ctx context.Context) {
	if l.store == nil {
		return
	}

	set, err := l.store.Load(ctx)
	switch {
	case err == nil:
		l.favorites = set
	case errors.Is(err, favorites.ErrNotStored):
		// first run
	case errors.Is(err, favorites.ErrFavoriteStoreCorrupt):
		l.report("", err)
	default:
		l.report("", fmt.Errorf("%w: %v", favorites.ErrFavoriteStoreCorrupt, err))
	}

	if l.favorites == nil {
		l.favorites = favorites.NewSet()
	}
}

// syncFavorites recomputes every story's Favorite flag. Callers hold mu or
// run before the library is shared.
func (l *Library) syncFavorites() {
	for i := range l.stories {
		l.stories[i].Favorite = l.favorites.Has(l.stories[i].ID)
	}
}

func (l *Library) report(name string, err error) {
	d := Diagnostic{Resource: name, Err: err}
	l.diagnostics = append(l.diagnostics, d)

	entry := logrus.WithError(err)
	if name != "" {
		entry = entry.WithField("file", name)
	}
	entry.Warn("Story library problem")
}

// Stories returns the whole collection in file name order.
func (l *Library) Stories() []story.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]story.Item, len(l.stories))
	copy(out, l.stories)
	return out
}

// Favorites returns the favorite stories in collection order. Favorite ids
// with no matching story are not included.
func (l *Library) Favorites() []story.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []story.Item
	for _, s := range l.stories {
		if l.favorites.Has(s.ID) {
			out = append(out, s)
		}
	}
	return out
}

// Story looks up a single story by id.
func (l *Library) Story(id int) (story.Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return story.Item{}, false
	}
	return l.stories[i], true
}

// Random picks a story uniformly. It reports false for an empty collection.
func (l *Library) Random(r *rand.Rand) (story.Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.stories) == 0 {
		return story.Item{}, false
	}
	return l.stories[r.Intn(len(l.stories))], true
}

// IsFavorite reports whether id is a known story marked as favorite.
func (l *Library) IsFavorite(id int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, known := l.index[id]
	return known && l.favorites.Has(id)
}

// FavoriteIDs returns the raw favorite set in ascending order, including ids
// that match no story.
func (l *Library) FavoriteIDs() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.favorites.IDs()
}

// ImageKeyFor returns the illustration key for a story id.
func (l *Library) ImageKeyFor(id int) string {
	return illustration.Key(id)
}

// Len returns the number of stories.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.stories)
}

// Diagnostics returns the problems met so far.
func (l *Library) Diagnostics() []Diagnostic {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Diagnostic, len(l.diagnostics))
	copy(out, l.diagnostics)
	return out
}

// ToggleFavorite flips id in the favorite set, saves the whole set and
// notifies observers before returning. It returns the new membership.
//
// Ids are not checked against the collection. A failed save is returned
// wrapped in ErrFavoritePersistFailure, but the toggle stays in effect for
// the rest of the session and observers are still notified.
func (l *Library) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	now := l.favorites.Toggle(id)
	snapshot := l.favorites.Clone()
	if i, ok := l.index[id]; ok {
		l.stories[i].Favorite = now
	}
	l.mu.Unlock()

	var persistErr error
	if l.store != nil {
		if err := l.store.Save(ctx, snapshot); err != nil {
			persistErr = fmt.Errorf("%w: %v", ErrFavoritePersistFailure, err)
			l.mu.Lock()
			l.report("", persistErr)
			l.mu.Unlock()
		}
	}

	l.notify(Change{StoryID: id, Favorite: now})

	return now, persistErr
}

// Subscribe registers an observer and returns a function that removes it.
func (l *Library) Subscribe(o Observer) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.nextObserver
	l.nextObserver++
	l.observers[key] = o

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.observers, key)
	}
}

func (l *Library) notify(c Change) {
	l.mu.RLock()
	keys := make([]int, 0, len(l.observers))
	for k := range l.observers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	observers := make([]Observer, 0, len(keys))
	for _, k := range keys {
		observers = append(observers, l.observers[k])
	}
	l.mu.RUnlock()

	for _, o := range observers {
		o(c)
	}
}
