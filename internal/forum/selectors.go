package forum

import "strings"

// Selectors isolates every structural marker of the forum's markup. The
// resolver and the extractor only talk to the page through these values, so
// a layout change is a configuration change.
type Selectors struct {
	// ReplyLink matches the "start a reply" anchor next to the page controls.
	ReplyLink string `mapstructure:"reply-link"`
	// PaginationBlock is the enclosing element searched upwards from ReplyLink.
	PaginationBlock string `mapstructure:"pagination-block"`
	// PageControl matches the page number links and the bold current page.
	PageControl string `mapstructure:"page-control"`

	PostsTable string `mapstructure:"posts-table"`
	BodyCell   string `mapstructure:"body-cell"`
	Content    string `mapstructure:"content"`
	Quote      string `mapstructure:"quote"`
	// Row is the table row element; a post header is the row preceding the body row.
	Row      string `mapstructure:"row"`
	UserLink string `mapstructure:"user-link"`
	// PostAnchor matches the named anchor carrying the post id.
	PostAnchor       string `mapstructure:"post-anchor"`
	PostAnchorPrefix string `mapstructure:"post-anchor-prefix"`
}

// DefaultSelectors returns the markers of the current Nairaland layout.
func DefaultSelectors() Selectors {
	return Selectors{
		ReplyLink:        `a[href*="newpost?topic="]`,
		PaginationBlock:  "p",
		PageControl:      "a, b",
		PostsTable:       `table[summary="posts"]`,
		BodyCell:         "td.l.w.pd",
		Content:          "div.narrow",
		Quote:            "blockquote",
		Row:              "tr",
		UserLink:         "a.user",
		PostAnchor:       `a[name^="msg"]`,
		PostAnchorPrefix: "msg",
	}
}

// WithDefaults fills blank markers from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&s.ReplyLink, d.ReplyLink)
	fill(&s.PaginationBlock, d.PaginationBlock)
	fill(&s.PageControl, d.PageControl)
	fill(&s.PostsTable, d.PostsTable)
	fill(&s.BodyCell, d.BodyCell)
	fill(&s.Content, d.Content)
	fill(&s.Quote, d.Quote)
	fill(&s.Row, d.Row)
	fill(&s.UserLink, d.UserLink)
	fill(&s.PostAnchor, d.PostAnchor)
	fill(&s.PostAnchorPrefix, d.PostAnchorPrefix)
	return s
}
