package archiver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/davidroman0O/nairaland-archiver/internal/fetcher"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
)

const testTopic = "https://www.nairaland.com/1234/lagos-traffic"

type testPost struct {
	id     string
	author string
	quote  string
	text   string
}

// renderPage builds a topic page in the forum's table layout with a
// pagination block listing pages 1..total and the current page in bold.
func renderPage(thread string, current, total int, posts []testPost) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="body"><p class="bold">`)
	for i := 1; i <= total; i++ {
		if i == current {
			fmt.Fprintf(&b, "<b>%d</b> ", i)
			continue
		}
		fmt.Fprintf(&b, `<a href="%s">(%d)</a> `, forum.PageURL(thread, i), i)
	}
	b.WriteString(`<a href="/newpost?topic=1234">(Reply)</a></p>`)
	b.WriteString(`<table summary="posts">`)
	for _, p := range posts {
		b.WriteString(`<tr><td class="bold l pu">`)
		if p.id != "" {
			fmt.Fprintf(&b, `<a name="msg%s"></a>`, p.id)
		}
		b.WriteString(`<a href="/1234/lagos-traffic">Re: Lagos Traffic</a> by `)
		if p.author != "" {
			fmt.Fprintf(&b, `<a class="user" href="/%s">%s</a>`, p.author, p.author)
		}
		b.WriteString(`</td></tr><tr><td class="l w pd"><div class="narrow">`)
		if p.quote != "" {
			fmt.Fprintf(&b, `<blockquote>%s</blockquote>`, p.quote)
		}
		b.WriteString(p.text)
		b.WriteString(`</div></td></tr>`)
	}
	b.WriteString(`</table></div></body></html>`)
	return b.String()
}

// fakeForum serves the pages of one topic. Pages can be appended between
// passes to simulate new replies.
type fakeForum struct {
	mu       sync.Mutex
	thread   string
	pages    [][]testPost
	failing  map[int]bool
	requests []string
}

func newFakeForum(thread string, pages ...[]testPost) *fakeForum {
	return &fakeForum{thread: thread, pages: pages, failing: map[int]bool{}}
}

func (f *fakeForum) addPage(posts []testPost) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, posts)
}

func (f *fakeForum) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeForum) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, url)

	total := len(f.pages)
	for i := 1; i <= total; i++ {
		if forum.PageURL(f.thread, i) != url {
			continue
		}
		if f.failing[i] {
			return "", &fetcher.StatusError{URL: url, Code: 500}
		}
		return renderPage(f.thread, i, total, f.pages[i-1]), nil
	}
	return "", &fetcher.StatusError{URL: url, Code: 404}
}
