// Package forum holds the topic URL rules, the post record and the markup
// selectors shared by the resolver and the extractor.
package forum

import (
	"net/url"
	"strconv"
	"strings"
)

// NormalizeThreadURL reduces a topic URL to scheme, host and the first two
// path segments (numeric topic id and slug). Page segments, query and
// fragment are dropped. URLs that do not carry at least two path segments,
// or that fail to parse, are returned unchanged.
func NormalizeThreadURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return raw
	}

	clean := url.URL{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   "/" + parts[0] + "/" + parts[1],
	}
	return clean.String()
}

// PageURL returns the URL of the 1-based page of a normalized thread. The
// first page is the bare thread URL; page k > 1 lives at thread + "/" + (k-1).
func PageURL(thread string, page int) string {
	if page <= 1 {
		return thread
	}
	return thread + "/" + strconv.Itoa(page-1)
}

// PageURLs returns the dense, ascending list of page URLs from first to last.
func PageURLs(thread string, first, last int) []string {
	if first < 1 {
		first = 1
	}
	urls := make([]string, 0, max(0, last-first+1))
	for page := first; page <= last; page++ {
		urls = append(urls, PageURL(thread, page))
	}
	return urls
}

// TopicID returns the numeric topic id of a thread URL, or "" when the URL
// does not look like a topic.
func TopicID(raw string) string {
	parsed, err := url.Parse(NormalizeThreadURL(raw))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
		return ""
	}
	return parts[0]
}

// Slug returns the human readable slug segment of a thread URL.
func Slug(raw string) string {
	parsed, err := url.Parse(NormalizeThreadURL(raw))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
