// Package digest renders extracted posts as the plain text handed to a summarizer.
package digest

import (
	"fmt"
	"strings"

	"github.com/davidroman0O/nairaland-archiver/internal/forum"
)

// Format writes one block per post: author line, one line per quote, the
// comment, the link, and a blank separator line.
func Format(posts []forum.Post) string {
	var b strings.Builder
	for _, post := range posts {
		fmt.Fprintf(&b, "Post by: %s\n", post.Author)
		for _, quote := range post.Quotes {
			fmt.Fprintf(&b, "Quoting: \"%s\"\n", quote)
		}
		fmt.Fprintf(&b, "Comment: %s\n", post.Text)
		fmt.Fprintf(&b, "Link: %s\n\n", post.Link)
	}
	return b.String()
}
