package archiver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/cache"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
	"github.com/davidroman0O/nairaland-archiver/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindNewPosts(t *testing.T) {
	posts := []forum.Post{
		{Author: "a", Text: "one", Link: "u#1"},
		{Author: "b", Text: "two", Link: "u#2"},
		{Author: "c", Text: "three", Link: "u"},
		{Author: "b", Text: "two", Link: "u#2"},
	}

	tests := []struct {
		name     string
		saved    []string
		expected []string
	}{
		{"nothing saved - all are new", nil, []string{"u#1", "u#2", "u"}},
		{"some saved - only new ones returned", []string{"1"}, []string{"u#2", "u"}},
		{"all saved - no new posts", []string{"1", "2", postKey(posts[2])}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := &metadata.TopicMetadata{}
			for _, id := range tt.saved {
				meta.AddSavedPost(id, "", "", false)
			}

			var links []string
			for _, p := range findNewPosts(meta, posts) {
				links = append(links, p.Link)
			}
			assert.Equal(t, tt.expected, links)
		})
	}
}

func TestPostKey(t *testing.T) {
	assert.Equal(t, "12345", postKey(forum.Post{Link: "u/2#12345"}))

	a := postKey(forum.Post{Author: "x", Text: "hello", Link: "u/2"})
	b := postKey(forum.Post{Author: "x", Text: "hello again", Link: "u/2"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, postKey(forum.Post{Author: "x", Text: "hello", Link: "u/2"}))
}

func TestCheckTopicStoresOnlyNewPosts(t *testing.T) {
	f := newFakeForum(testTopic, page1, page2)
	mem := cache.NewMemory(cache.DefaultTTL)
	defer mem.Close()
	a := newTestArchiver(t, f, nil, WithCache(mem))

	n, err := a.CheckTopic(context.Background(), testTopic, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = a.CheckTopic(context.Background(), testTopic, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.addPage(page3)
	n, err = a.CheckTopic(context.Background(), testTopic, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the cache is bypassed so the new page is seen")

	posts, err := LoadPostsFile(filepath.Join(a.config.OutputDir, "1234", PostsJSONFileName))
	require.NoError(t, err)
	require.Len(t, posts, 5)
	assert.Equal(t, testTopic+"/2#104", posts[4].Link)

	meta, err := metadata.NewManager(a.config.OutputDir).LoadMetadata("1234", "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.LastPage)
	assert.Equal(t, 5, meta.PostsCount)
}

func TestMonitorTopicsValidation(t *testing.T) {
	f := newFakeForum(testTopic, page1)
	a := newTestArchiver(t, f, nil)
	ctx := context.Background()

	assert.Error(t, a.MonitorTopics(ctx, &MonitorConfig{Interval: time.Minute}))
	assert.Error(t, a.MonitorTopics(ctx, &MonitorConfig{TopicURLs: []string{testTopic}}))
	assert.ErrorIs(t, a.MonitorTopics(ctx, &MonitorConfig{TopicURLs: []string{"https://example.com/1/x"}, Interval: time.Minute}), ErrForeignURL)
	assert.ErrorIs(t, a.MonitorTopics(ctx, &MonitorConfig{TopicURLs: []string{testTopic}, Interval: time.Minute, PageCount: 99}), ErrInvalidPageCount)
}

func TestMonitorTopicsStopsAfterMaxDuration(t *testing.T) {
	f := newFakeForum(testTopic, page1)
	a := newTestArchiver(t, f, nil)

	start := time.Now()
	err := a.MonitorTopics(context.Background(), &MonitorConfig{
		TopicURLs:   []string{testTopic},
		Interval:    time.Hour,
		MaxDuration: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	posts, err := LoadPostsFile(filepath.Join(a.config.OutputDir, "1234", PostsJSONFileName))
	require.NoError(t, err)
	assert.Len(t, posts, 2, "the first check runs immediately")
}

func TestMonitorTopicsStopsOnInactivity(t *testing.T) {
	f := newFakeForum(testTopic, page1)
	a := newTestArchiver(t, f, nil)

	start := time.Now()
	err := a.MonitorTopics(context.Background(), &MonitorConfig{
		TopicURLs:        []string{testTopic},
		Interval:         time.Second,
		MaxDuration:      30 * time.Second,
		StopOnInactivity: 500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second, "the second check finds nothing new and ends the session")
	assert.GreaterOrEqual(t, f.requestCount(), 4, "two full passes")
}

func TestStopMonitoring(t *testing.T) {
	f := newFakeForum(testTopic, page1)
	a := newTestArchiver(t, f, nil)

	done := make(chan error, 1)
	go func() {
		done <- a.MonitorTopics(context.Background(), &MonitorConfig{
			TopicURLs: []string{testTopic},
			Interval:  time.Hour,
		})
	}()

	time.Sleep(50 * time.Millisecond)
	a.StopMonitoring()
	a.StopMonitoring()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
