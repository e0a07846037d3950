package shelf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"shortshelf/assets"
	"shortshelf/internal/config"
	"shortshelf/internal/domain/library/favorites"
	"shortshelf/internal/domain/library/illustration"
	"shortshelf/internal/domain/library/resource"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// OpenSource returns the story source and the illustration finder for the
// configured stories directory. Pictures live next to the stories. An empty
// directory selects the bundled collection.
func OpenSource(s config.Settings) (resource.Source, *illustration.Finder) {
	var (
		fsys afero.Fs
		dir  string
	)

	if s.StoriesDir == "" {
		fsys = afero.FromIOFS{FS: assets.Bundle}
		dir = assets.StoriesDir
	} else {
		fsys = afero.NewReadOnlyFs(afero.NewOsFs())
		dir = s.StoriesDir
	}

	logrus.WithFields(logrus.Fields{
		"dir": dir,
		"ext": s.StoriesExt,
	}).Debug("Opening story source")

	return resource.NewDir(fsys, dir, s.StoriesExt), illustration.NewFinder(fsys, dir)
}

// nopCloser is returned for stores with nothing to release.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore creates the favorites store for the configured backend. The
// returned closer must be closed on exit.
func OpenStore(s config.Settings) (favorites.Store, io.Closer, error) {
	switch s.FavoritesBackend {
	case config.BackendMemory:
		return favorites.NewMemoryStore(), nopCloser{}, nil

	case config.BackendJSON:
		return favorites.NewFileStore(afero.NewOsFs(), s.FavoritesPath), nopCloser{}, nil

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(s.FavoritesPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create favorites directory: %w", err)
		}
		store, err := favorites.NewSQLiteStore(s.FavoritesPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown favorites backend %q", s.FavoritesBackend)
	}
}
