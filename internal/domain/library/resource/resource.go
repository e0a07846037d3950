// Package resource lists the bundled story files.
package resource

import (
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DefaultExt is the extension story files are expected to carry.
const DefaultExt = ".txt"

// Resource is one story file and its raw contents. Err is set when the file
// was listed but could not be read.
type Resource struct {
	Name string
	Text string
	Err  error
}

// Source enumerates story resources. Order is not guaranteed.
type Source interface {
	List() ([]Resource, error)
}

// Dir lists story files in a single directory of an afero file system.
type Dir struct {
	fs  afero.Fs
	dir string
	ext string
}

// NewDir creates a source over dir. An empty ext means DefaultExt.
func NewDir(fs afero.Fs, dir, ext string) *Dir {
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Dir{fs: fs, dir: dir, ext: ext}
}

// Ext returns the extension this source filters on.
func (d *Dir) Ext() string {
	return d.ext
}

// List reads every regular file in the directory whose extension matches.
// Files that cannot be read are returned with Err set.
func (d *Dir) List() ([]Resource, error) {
	entries, err := afero.ReadDir(d.fs, d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.dir, err)
	}

	resources := make([]Resource, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != d.ext {
			continue
		}

		file := path.Join(d.dir, entry.Name())
		data, err := afero.ReadFile(d.fs, file)
		if err != nil {
			logrus.WithError(err).WithField("file", file).Debug("Could not read story file")
			resources = append(resources, Resource{Name: entry.Name(), Err: err})
			continue
		}

		resources = append(resources, Resource{
			Name: entry.Name(),
			Text: string(data),
		})
	}

	return resources, nil
}

// Static is a fixed list of resources, handy for tests and previews.
type Static []Resource

// List returns the resources as given.
func (s Static) List() ([]Resource, error) {
	out := make([]Resource, len(s))
	copy(out, s)
	return out, nil
}
