// Package assets embeds the story collection shipped with the binary.
package assets

import "embed"

// StoriesDir is the directory of Bundle holding the story files.
const StoriesDir = "stories"

//go:embed stories
var Bundle embed.FS
