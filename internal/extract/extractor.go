// Package extract turns one fetched topic page into post records.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
)

// Extractor parses topic pages using a fixed set of markup selectors.
type Extractor struct {
	sel forum.Selectors
}

// New creates an extractor. Blank selectors fall back to the defaults.
func New(sel forum.Selectors) *Extractor {
	return &Extractor{sel: sel.WithDefaults()}
}

// ExtractReader parses markup from r and extracts its posts.
func (e *Extractor) ExtractReader(r io.Reader, pageURL string) ([]forum.Post, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return e.Extract(doc, pageURL), nil
}

// ExtractHTML is ExtractReader for an in-memory page.
func (e *Extractor) ExtractHTML(markup, pageURL string) []forum.Post {
	posts, err := e.ExtractReader(strings.NewReader(markup), pageURL)
	if err != nil {
		return []forum.Post{}
	}
	return posts
}

// Extract returns the posts of the page in document order. A page without a
// posts table yields an empty slice; cells missing optional structure are
// skipped or defaulted. The document is left untouched.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) []forum.Post {
	posts := []forum.Post{}

	table := doc.Find(e.sel.PostsTable).First()
	if table.Length() == 0 {
		return posts
	}

	table.Find(e.sel.BodyCell).Each(func(_ int, cell *goquery.Selection) {
		if post, ok := e.parseCell(cell, pageURL); ok {
			posts = append(posts, post)
		}
	})

	return posts
}

// parseCell builds the record for one post body cell.
func (e *Extractor) parseCell(cell *goquery.Selection, pageURL string) (forum.Post, bool) {
	content := cell.Find(e.sel.Content).First()
	if content.Length() == 0 {
		return forum.Post{}, false
	}

	// Work on a detached copy so removing quotes does not alter the caller's document.
	content = content.Clone()

	quoteBlocks := content.Find(e.sel.Quote)
	quotes := make([]string, 0, quoteBlocks.Length())
	quoteBlocks.Each(func(_ int, q *goquery.Selection) {
		quotes = append(quotes, forum.FlattenText(q, " "))
	})
	quoteBlocks.Remove()

	text := forum.FlattenText(content, " ")
	if text == "" {
		return forum.Post{}, false
	}

	header := cell.Closest(e.sel.Row).PrevAllFiltered(e.sel.Row).First()
	if header.Length() == 0 {
		return forum.Post{}, false
	}

	return forum.Post{
		Author: e.author(header),
		Text:   text,
		Quotes: quotes,
		Link:   e.permalink(header, pageURL),
	}, true
}

func (e *Extractor) author(header *goquery.Selection) string {
	link := header.Find(e.sel.UserLink).First()
	if link.Length() == 0 {
		return forum.UnknownAuthor
	}
	name := strings.TrimSpace(link.Text())
	if name == "" {
		return forum.UnknownAuthor
	}
	return name
}

func (e *Extractor) permalink(header *goquery.Selection, pageURL string) string {
	name, ok := header.Find(e.sel.PostAnchor).First().Attr("name")
	if !ok || !strings.HasPrefix(name, e.sel.PostAnchorPrefix) {
		return pageURL
	}
	return pageURL + "#" + strings.TrimPrefix(name, e.sel.PostAnchorPrefix)
}
