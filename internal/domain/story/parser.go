package story

import (
	"errors"
	"strings"
)

const (
	titleOpen    = "<title>"
	titleClose   = "</title>"
	contentOpen  = "<content>"
	contentClose = "</content>"
)

// ErrMissingContent is returned when a resource has no usable <content> span.
var ErrMissingContent = errors.New("story has no content")

// Parse turns a tagged-text resource into an Item with the given id.
//
// The title is left empty when the <title> span is absent; callers decide on
// a placeholder. Parse performs no I/O and keeps no state between calls.
func Parse(raw string, id int) (Item, error) {
	content, ok := extract(raw, contentOpen, contentClose)
	if !ok || content == "" {
		return Item{}, ErrMissingContent
	}

	title, _ := extract(raw, titleOpen, titleClose)

	return Item{
		ID:      id,
		Title:   title,
		Content: content,
	}, nil
}

// extract returns the trimmed text between the first open tag and the first
// close tag that follows it.
func extract(text, open, close string) (string, bool) {
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	start += len(open)

	end := strings.Index(text[start:], close)
	if end < 0 {
		return "", false
	}

	return strings.TrimSpace(text[start : start+end]), true
}
