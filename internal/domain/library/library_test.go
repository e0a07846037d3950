package library

import (
	"context"
	"errors"
	"math/rand"
	"shortshelf/internal/domain/library/favorites"
	"shortshelf/internal/domain/library/resource"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore loads an optional set and refuses every save.
type failingStore struct {
	loaded favorites.Set
	saves  int
}

func (f *failingStore) Load(ctx context.Context) (favorites.Set, error) {
	if f.loaded == nil {
		return nil, favorites.ErrNotStored
	}
	return f.loaded.Clone(), nil
}

func (f *failingStore) Save(ctx context.Context, set favorites.Set) error {
	f.saves++
	return errors.New("disk full")
}

// brokenStore fails to load with a plain I/O error.
type brokenStore struct{}

func (brokenStore) Load(ctx context.Context) (favorites.Set, error) {
	return nil, errors.New("permission denied")
}

func (brokenStore) Save(ctx context.Context, set favorites.Set) error { return nil }

// recordingStore keeps every saved snapshot in save order.
type recordingStore struct {
	mu    sync.Mutex
	saved []favorites.Set
}

func (r *recordingStore) Load(ctx context.Context) (favorites.Set, error) {
	return nil, favorites.ErrNotStored
}

func (r *recordingStore) Save(ctx context.Context, set favorites.Set) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, set.Clone())
	return nil
}

func (r *recordingStore) last() favorites.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil
	}
	return r.saved[len(r.saved)-1]
}

type listingError struct{}

func (listingError) List() ([]resource.Resource, error) {
	return nil, errors.New("no such directory")
}

func scenarioSource() resource.Static {
	// deliberately unsorted
	return resource.Static{
		{Name: "003.txt", Text: "<content>World</content>"},
		{Name: "abc.txt", Text: "<title>Nope</title><content>Skipped</content>"},
		{Name: "001.txt", Text: "<title>A</title><content>Hello</content>"},
	}
}

func storyIDs(l *Library, favoritesOnly bool) []int {
	items := l.Stories()
	if favoritesOnly {
		items = l.Favorites()
	}
	out := []int{}
	for _, s := range items {
		out = append(out, s.ID)
	}
	return out
}

func TestNew_Scenario(t *testing.T) {
	lib := New(context.Background(), scenarioSource(), favorites.NewMemoryStore())

	stories := lib.Stories()
	require.Len(t, stories, 2)

	assert.Equal(t, 1, stories[0].ID)
	assert.Equal(t, "A", stories[0].Title)
	assert.Equal(t, "Hello", stories[0].Content)

	assert.Equal(t, 3, stories[1].ID)
	assert.Equal(t, "Story 003", stories[1].Title)
	assert.Equal(t, "World", stories[1].Content)

	diags := lib.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "abc.txt", diags[0].Resource)
	assert.ErrorIs(t, diags[0].Err, ErrStoryIDUnparseable)
}

func TestNew_SkipsMissingContent(t *testing.T) {
	src := resource.Static{
		{Name: "001.txt", Text: "<content>one</content>"},
		{Name: "002.txt", Text: "<title>Only a title</title>"},
		{Name: "003.txt", Text: "<content>   </content>"},
		{Name: "004.txt", Text: "<content>four</content>"},
	}

	lib := New(context.Background(), src, nil)

	assert.Equal(t, []int{1, 4}, storyIDs(lib, false))
	assert.Equal(t, 2, lib.Len())

	diags := lib.Diagnostics()
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.ErrorIs(t, d.Err, ErrMissingContent)
	}
	assert.Equal(t, "002.txt", diags[0].Resource)
	assert.Equal(t, "003.txt", diags[1].Resource)
}

func TestNew_LexicographicOrder(t *testing.T) {
	src := resource.Static{
		{Name: "010.txt", Text: "<content>ten</content>"},
		{Name: "002.txt", Text: "<content>two</content>"},
		{Name: "100.txt", Text: "<content>hundred</content>"},
		{Name: "001.txt", Text: "<content>one</content>"},
	}

	lib := New(context.Background(), src, nil)
	assert.Equal(t, []int{1, 2, 10, 100}, storyIDs(lib, false))
}

func TestNew_RejectsSignedAndZeroIDs(t *testing.T) {
	src := resource.Static{
		{Name: "-001.txt", Text: "<content>negative</content>"},
		{Name: "+1.txt", Text: "<content>plus</content>"},
		{Name: "000.txt", Text: "<content>zero</content>"},
		{Name: "002.txt", Text: "<content>two</content>"},
	}

	lib := New(context.Background(), src, nil)
	assert.Equal(t, []int{2}, storyIDs(lib, false))

	diags := lib.Diagnostics()
	require.Len(t, diags, 3)
	for _, d := range diags {
		assert.ErrorIs(t, d.Err, ErrStoryIDUnparseable)
	}
}

func TestNew_ReportsUnreadableResources(t *testing.T) {
	src := resource.Static{
		{Name: "001.txt", Text: "<content>one</content>"},
		{Name: "002.txt", Err: errors.New("input/output error")},
	}

	lib := New(context.Background(), src, nil)
	assert.Equal(t, []int{1}, storyIDs(lib, false))

	diags := lib.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "002.txt", diags[0].Resource)
	assert.ErrorIs(t, diags[0].Err, ErrResourceUnreadable)
	assert.Contains(t, diags[0].String(), "input/output error")
}

func TestNew_DuplicateIDKeepsFirstFile(t *testing.T) {
	src := resource.Static{
		{Name: "01.txt", Text: "<content>second</content>"},
		{Name: "001.txt", Text: "<content>first</content>"},
	}

	lib := New(context.Background(), src, nil)

	stories := lib.Stories()
	require.Len(t, stories, 1)
	assert.Equal(t, "first", stories[0].Content)

	diags := lib.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "01.txt", diags[0].Resource)
	assert.ErrorIs(t, diags[0].Err, ErrDuplicateStoryID)
}

func TestNew_ListingUnavailable(t *testing.T) {
	lib := New(context.Background(), listingError{}, nil)

	assert.Empty(t, lib.Stories())
	assert.Empty(t, lib.Favorites())

	diags := lib.Diagnostics()
	require.Len(t, diags, 1)
	assert.ErrorIs(t, diags[0].Err, ErrResourceListingUnavailable)
}

func TestNew_NilSource(t *testing.T) {
	lib := New(context.Background(), nil, nil)

	assert.Equal(t, 0, lib.Len())
	require.Len(t, lib.Diagnostics(), 1)
	assert.ErrorIs(t, lib.Diagnostics()[0].Err, ErrResourceListingUnavailable)
}

func TestNew_LoadsPersistedFavorites(t *testing.T) {
	ctx := context.Background()
	store := favorites.NewMemoryStore()
	require.NoError(t, store.Save(ctx, favorites.NewSet(3)))

	lib := New(ctx, scenarioSource(), store)

	assert.True(t, lib.IsFavorite(3))
	assert.False(t, lib.IsFavorite(1))

	stories := lib.Stories()
	assert.False(t, stories[0].Favorite)
	assert.True(t, stories[1].Favorite)
}

func TestNew_CorruptFavoritesStartEmpty(t *testing.T) {
	store := favorites.NewMemoryStore()
	store.SetRaw([]byte(`{broken`))

	lib := New(context.Background(), scenarioSource(), store)

	assert.Empty(t, lib.FavoriteIDs())
	assert.Len(t, lib.Stories(), 2)

	var corrupt bool
	for _, d := range lib.Diagnostics() {
		if errors.Is(d.Err, ErrFavoriteStoreCorrupt) {
			corrupt = true
		}
	}
	assert.True(t, corrupt)
}

func TestNew_UnreadableFavoritesTreatedAsCorrupt(t *testing.T) {
	lib := New(context.Background(), scenarioSource(), brokenStore{})

	assert.Empty(t, lib.FavoriteIDs())

	diags := lib.Diagnostics()
	require.NotEmpty(t, diags)
	assert.ErrorIs(t, diags[len(diags)-1].Err, ErrFavoriteStoreCorrupt)
}

func TestToggleFavorite_Scenario(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, scenarioSource(), favorites.NewMemoryStore())

	_, err := lib.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	_, err = lib.ToggleFavorite(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, storyIDs(lib, true))

	_, err = lib.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, storyIDs(lib, true))
}

func TestToggleFavorite_FavoritesKeepCollectionOrder(t *testing.T) {
	ctx := context.Background()
	src := resource.Static{
		{Name: "001.txt", Text: "<content>a</content>"},
		{Name: "002.txt", Text: "<content>b</content>"},
		{Name: "003.txt", Text: "<content>c</content>"},
	}
	lib := New(ctx, src, nil)

	for _, id := range []int{3, 1, 2} {
		_, err := lib.ToggleFavorite(ctx, id)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{1, 2, 3}, storyIDs(lib, true))
	for _, s := range lib.Favorites() {
		assert.True(t, s.Favorite)
	}
}

func TestToggleFavorite_Idempotent(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, scenarioSource(), favorites.NewMemoryStore())

	before := lib.IsFavorite(1)

	now, err := lib.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, !before, now)

	now, err = lib.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, before, now)
	assert.Equal(t, before, lib.IsFavorite(1))
	assert.Empty(t, lib.FavoriteIDs())
}

func TestToggleFavorite_Persists(t *testing.T) {
	ctx := context.Background()
	store := favorites.NewMemoryStore()
	lib := New(ctx, scenarioSource(), store)

	_, err := lib.ToggleFavorite(ctx, 1)
	require.NoError(t, err)

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, saved.IDs())

	// a new library over the same store sees the favorite
	reloaded := New(ctx, scenarioSource(), store)
	assert.True(t, reloaded.IsFavorite(1))
}

func TestToggleFavorite_UnknownID(t *testing.T) {
	ctx := context.Background()
	store := favorites.NewMemoryStore()
	lib := New(ctx, scenarioSource(), store)

	now, err := lib.ToggleFavorite(ctx, 99)
	require.NoError(t, err)
	assert.True(t, now)

	// the set holds the id but queries never surface it
	assert.Equal(t, []int{99}, lib.FavoriteIDs())
	assert.False(t, lib.IsFavorite(99))
	assert.Empty(t, lib.Favorites())

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, saved.Has(99))
}

func TestToggleFavorite_StaleEntriesTolerated(t *testing.T) {
	ctx := context.Background()
	store := favorites.NewMemoryStore()
	require.NoError(t, store.Save(ctx, favorites.NewSet(1, 42)))

	lib := New(ctx, scenarioSource(), store)

	assert.Equal(t, []int{1, 42}, lib.FavoriteIDs())
	assert.Equal(t, []int{1}, storyIDs(lib, true))
	assert.False(t, lib.IsFavorite(42))
}

func TestToggleFavorite_PersistFailureKeepsToggle(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	lib := New(ctx, scenarioSource(), store)

	var seen []Change
	lib.Subscribe(func(c Change) { seen = append(seen, c) })

	now, err := lib.ToggleFavorite(ctx, 3)
	assert.ErrorIs(t, err, ErrFavoritePersistFailure)
	assert.True(t, now)
	assert.True(t, lib.IsFavorite(3))
	assert.Equal(t, 1, store.saves)

	assert.Equal(t, []Change{{StoryID: 3, Favorite: true}}, seen)

	diags := lib.Diagnostics()
	require.NotEmpty(t, diags)
	assert.ErrorIs(t, diags[len(diags)-1].Err, ErrFavoritePersistFailure)
}

func TestSubscribe_SynchronousNotification(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, scenarioSource(), favorites.NewMemoryStore())

	var observed []bool
	var favoritesSeen [][]int
	lib.Subscribe(func(c Change) {
		// observers can query the library and see the new state
		observed = append(observed, lib.IsFavorite(c.StoryID))
		var ids []int
		for _, s := range lib.Favorites() {
			ids = append(ids, s.ID)
		}
		favoritesSeen = append(favoritesSeen, ids)
	})

	_, err := lib.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	require.Len(t, observed, 1)
	assert.True(t, observed[0])
	assert.Equal(t, []int{1}, favoritesSeen[0])

	_, err = lib.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	require.Len(t, observed, 2)
	assert.False(t, observed[1])
	assert.Nil(t, favoritesSeen[1])
}

func TestToggleFavorite_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	src := resource.Static{}
	for _, name := range []string{"001", "002", "003", "004", "005"} {
		src = append(src, resource.Resource{Name: name + ".txt", Text: "<content>" + name + "</content>"})
	}
	store := &recordingStore{}
	lib := New(ctx, src, store)

	var notified sync.Mutex
	notifications := 0
	lib.Subscribe(func(c Change) {
		// observers see their own change already applied
		assert.Equal(t, c.Favorite, lib.IsFavorite(c.StoryID))
		notified.Lock()
		notifications++
		notified.Unlock()
	})

	const writers, toggles = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < toggles; i++ {
				// overlapping ids, including one no story has
				_, err := lib.ToggleFavorite(ctx, (w+i)%6+1)
				assert.NoError(t, err)
			}
		}(w)
	}

	done := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, s := range lib.Favorites() {
					assert.True(t, s.Favorite)
				}
				lib.IsFavorite(3)
				lib.Stories()
			}
		}()
	}

	wg.Wait()
	close(done)
	readers.Wait()

	assert.Equal(t, writers*toggles, notifications)
	assert.Len(t, store.saved, writers*toggles)

	last := store.last()
	require.NotNil(t, last)
	assert.Equal(t, last.IDs(), lib.FavoriteIDs())

	for _, s := range lib.Stories() {
		assert.Equal(t, last.Has(s.ID), s.Favorite, "story %d", s.ID)
		assert.Equal(t, last.Has(s.ID), lib.IsFavorite(s.ID))
	}
}

func TestSubscribe_Cancel(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, scenarioSource(), nil)

	var a, b int
	cancelA := lib.Subscribe(func(Change) { a++ })
	lib.Subscribe(func(Change) { b++ })

	_, _ = lib.ToggleFavorite(ctx, 1)
	cancelA()
	_, _ = lib.ToggleFavorite(ctx, 1)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestStories_ReturnsCopies(t *testing.T) {
	lib := New(context.Background(), scenarioSource(), nil)

	stories := lib.Stories()
	stories[0].Title = "changed"
	stories[0].Favorite = true

	fresh := lib.Stories()
	assert.Equal(t, "A", fresh[0].Title)
	assert.False(t, fresh[0].Favorite)
}

func TestStory_Lookup(t *testing.T) {
	lib := New(context.Background(), scenarioSource(), nil)

	s, ok := lib.Story(3)
	require.True(t, ok)
	assert.Equal(t, "World", s.Content)

	_, ok = lib.Story(2)
	assert.False(t, ok)
}

func TestIsFavorite_UnknownID(t *testing.T) {
	lib := New(context.Background(), scenarioSource(), nil)
	assert.False(t, lib.IsFavorite(12345))
}

func TestImageKeyFor(t *testing.T) {
	lib := New(context.Background(), nil, nil)

	assert.Equal(t, "000", lib.ImageKeyFor(0))
	assert.Equal(t, "000", lib.ImageKeyFor(11))
	assert.Equal(t, "001", lib.ImageKeyFor(12))
	assert.Equal(t, "010", lib.ImageKeyFor(10))
	assert.Equal(t, lib.ImageKeyFor(57), lib.ImageKeyFor(57))
}

func TestRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	empty := New(context.Background(), resource.Static{}, nil)
	_, ok := empty.Random(r)
	assert.False(t, ok)

	lib := New(context.Background(), scenarioSource(), nil)
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		s, ok := lib.Random(r)
		require.True(t, ok)
		seen[s.ID] = true
	}
	assert.Equal(t, map[int]bool{1: true, 3: true}, seen)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Resource: "abc.txt", Err: ErrStoryIDUnparseable}
	assert.Equal(t, "abc.txt: story id not parseable from file name", d.String())

	d = Diagnostic{Err: ErrResourceListingUnavailable}
	assert.Equal(t, "story resources unavailable", d.String())
}
