package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FileStore keeps favorites in a small JSON document of key/value pairs, the
// set living under Key. Other keys in the document are preserved on save.
type FileStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// Path returns the backing file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the set from disk.
func (f *FileStore) Load(ctx context.Context) (Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readDocument()
	if err != nil {
		return nil, err
	}

	raw, ok := doc[Key]
	if !ok {
		return nil, ErrNotStored
	}
	return decode(raw)
}

// Save writes the set to disk through a temporary file and rename.
func (f *FileStore) Save(ctx context.Context, set Set) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readDocument()
	if err != nil {
		if !errors.Is(err, ErrNotStored) {
			logrus.WithError(err).WithField("file", f.path).Warn("Overwriting unreadable favorites file")
		}
		doc = map[string]json.RawMessage{}
	}

	value, err := set.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	doc[Key] = value

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode favorites file: %w", err)
	}

	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create favorites directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write favorites file: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace favorites file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"favorites": len(set),
		"file":      f.path,
	}).Debug("Saved favorites")

	return nil
}

func (f *FileStore) readDocument() (map[string]json.RawMessage, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotStored
		}
		return nil, fmt.Errorf("failed to read favorites file: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFavoriteStoreCorrupt, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: favorites file is not an object", ErrFavoriteStoreCorrupt)
	}
	return doc, nil
}
