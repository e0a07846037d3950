// Package illustration maps stories onto the small set of bundled pictures.
package illustration

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"
)

// Count is the number of pictures stories cycle through.
const Count = 11

// ErrNotFound is returned when no picture exists for a key.
var ErrNotFound = errors.New("illustration not found")

// Key returns the zero-padded picture key for a story id. It is defined for
// every int, negative ids included.
func Key(id int) string {
	return fmt.Sprintf("%03d", ((id%Count)+Count)%Count)
}

// FileName is the bundled file name for a key.
func FileName(key string) string {
	return "pict" + key + ".jpg"
}

// Finder loads pictures from a directory of an afero file system.
type Finder struct {
	fs  afero.Fs
	dir string
}

// NewFinder creates a finder over dir.
func NewFinder(fs afero.Fs, dir string) *Finder {
	return &Finder{fs: fs, dir: dir}
}

// Path returns where the picture for key would live.
func (f *Finder) Path(key string) string {
	return path.Join(f.dir, FileName(key))
}

// Lookup returns the picture bytes for key.
func (f *Finder) Lookup(key string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read illustration %s: %w", key, err)
	}
	return data, nil
}
