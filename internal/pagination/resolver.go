// Package pagination works out which page URLs hold the last N pages of a topic.
package pagination

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/davidroman0O/nairaland-archiver/internal/fetcher"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
)

// Resolver reads a topic's first page and derives its page URLs.
type Resolver struct {
	fetcher fetcher.Fetcher
	sel     forum.Selectors
	log     logger.Logger
}

// New creates a resolver that loads first pages through f.
func New(f fetcher.Fetcher, sel forum.Selectors, log logger.Logger) *Resolver {
	return &Resolver{fetcher: f, sel: sel.WithDefaults(), log: log}
}

// Resolve returns the URLs of the last count pages of the topic in ascending
// page order. It never fails: when the first page cannot be fetched or shows
// no pagination, the normalized topic URL is the only page.
func (r *Resolver) Resolve(ctx context.Context, threadURL string, count int) []string {
	thread := forum.NormalizeThreadURL(threadURL)
	if count < 1 {
		count = 1
	}
	log := r.log.With(logger.String("topic", thread))

	body, err := r.fetcher.Fetch(ctx, thread)
	if err != nil {
		log.Warn("Could not load first page, assuming a single page", logger.Error(err))
		return []string{thread}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		log.Warn("Could not parse first page, assuming a single page", logger.Error(err))
		return []string{thread}
	}

	last, found := r.LastPage(doc)
	if !found {
		log.Debug("No pagination control found, assuming a single page")
		return []string{thread}
	}

	start := max(1, last-count+1)
	pages := forum.PageURLs(thread, start, last)
	log.Info("Resolved topic pages",
		logger.Int("total_pages", last),
		logger.Int("first_page", start),
		logger.Int("last_page", last))
	log.Debug("Page URLs", logger.Strings("urls", pages))

	return pages
}

// LastPage reads the highest page number from the pagination block that
// encloses the reply link. found is false when the reply link or its block
// is missing; a block without any numeric control reports page 1.
func (r *Resolver) LastPage(doc *goquery.Document) (last int, found bool) {
	reply := doc.Find(r.sel.ReplyLink).First()
	if reply.Length() == 0 {
		return 0, false
	}

	block := reply.ParentsFiltered(r.sel.PaginationBlock).First()
	if block.Length() == 0 {
		return 0, false
	}

	last = 1
	block.Find(r.sel.PageControl).Each(func(_ int, control *goquery.Selection) {
		if n, ok := parsePageNumber(forum.FlattenText(control, "")); ok && n > last {
			last = n
		}
	})
	return last, true
}

// parsePageNumber accepts "7" and "(7)".
func parsePageNumber(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if text == "" {
		return 0, false
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
