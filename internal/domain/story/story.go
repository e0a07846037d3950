package story

import "fmt"

// Item is one short text from the bundled collection.
type Item struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Favorite bool   `json:"favorite"`
}

// PlaceholderTitle is the title shown for stories without a <title> span.
func PlaceholderTitle(id int) string {
	return fmt.Sprintf("Story %03d", id)
}

// Preview returns the first n runes of the content followed by an ellipsis.
// Content that already fits is returned unchanged.
func (i Item) Preview(n int) string {
	runes := []rune(i.Content)
	if n <= 0 || len(runes) <= n {
		return i.Content
	}
	return string(runes[:n]) + "..."
}
