package forum

import "strings"

// UnknownAuthor is used when a post header carries no user link.
const UnknownAuthor = "Unknown"

// Post is one extracted post. It is built once per page parse and never
// modified afterwards.
type Post struct {
	Author string   `json:"author"`
	Text   string   `json:"post_text"`
	Quotes []string `json:"quoted_posts"`
	Link   string   `json:"link"`
}

// ID returns the permalink fragment of the post, or "" when the link has none.
func (p Post) ID() string {
	_, fragment, found := strings.Cut(p.Link, "#")
	if !found {
		return ""
	}
	return fragment
}

// PageURL returns the link without its fragment.
func (p Post) PageURL() string {
	page, _, _ := strings.Cut(p.Link, "#")
	return page
}

// JoinedQuotes renders the quotes as one " || " separated string.
func (p Post) JoinedQuotes() string {
	return strings.Join(p.Quotes, " || ")
}
