package archiver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/fetcher"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_CollectOverHTTP drives the real HTTP fetcher against a local forum.
func TestE2E_CollectOverHTTP(t *testing.T) {
	var f *fakeForum
	var userAgents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents = append(userAgents, r.UserAgent())
		body, err := f.Fetch(r.Context(), "http://"+r.Host+r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	thread := srv.URL + "/1234/lagos-traffic"
	f = newFakeForum(thread, page1, page2, page3)

	a, err := New(&Config{
		PageCount: 2,
		Fetch: fetcher.Config{
			Timeout:     5 * time.Second,
			RateLimitMs: 0,
			MaxRetries:  1,
			UserAgent:   "nairaland-archiver-test/1.0",
		},
	}, WithLogger(logger.NewNop()))
	require.NoError(t, err)

	c := a.Collect(context.Background(), thread+"/2", 10)

	assert.Equal(t, []string{thread, thread + "/1", thread + "/2"}, c.Pages)
	require.Len(t, c.Posts, 5)
	assert.Equal(t, "alice", c.Posts[0].Author)
	assert.Equal(t, thread+"#100", c.Posts[0].Link)
	assert.Equal(t, []string{"Traffic is bad today"}, c.Posts[1].Quotes)
	assert.Equal(t, "Third mainland is worse", c.Posts[1].Text)
	assert.Equal(t, thread+"/2#104", c.Posts[4].Link)

	for _, ua := range userAgents {
		assert.Equal(t, "nairaland-archiver-test/1.0", ua)
	}
	assert.True(t, strings.HasPrefix(c.Thread, "http://127.0.0.1"))
}
