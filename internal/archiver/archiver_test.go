package archiver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/davidroman0O/nairaland-archiver/internal/cache"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/davidroman0O/nairaland-archiver/internal/metadata"
	"github.com/davidroman0O/nairaland-archiver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	page1 = []testPost{
		{id: "100", author: "alice", text: "Traffic is bad today"},
		{id: "101", author: "bob", quote: "Traffic is bad today", text: "Third mainland is worse"},
	}
	page2 = []testPost{
		{id: "102", author: "carol", text: "Take the ferry"},
		{id: "", author: "", text: "anonymous reply"},
	}
	page3 = []testPost{
		{id: "104", author: "alice", quote: "Take the ferry", text: "Ferry is slow"},
	}
)

func newTestArchiver(t *testing.T, f *fakeForum, mutate func(*Config), opts ...Option) *Archiver {
	t.Helper()
	config := &Config{
		OutputDir:    t.TempDir(),
		PageCount:    2,
		DatabaseMode: DatabaseModeFile,
	}
	if mutate != nil {
		mutate(config)
	}
	opts = append([]Option{WithFetcher(f), WithLogger(logger.NewNop())}, opts...)
	a, err := New(config, opts...)
	require.NoError(t, err)
	return a
}

func TestValidateTopicURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		err  error
	}{
		{"topic", "https://www.nairaland.com/1234/lagos-traffic", nil},
		{"bare domain", "https://nairaland.com/1234/x", nil},
		{"page url", "https://www.nairaland.com/1234/x/5#msg1", nil},
		{"empty", "  ", ErrEmptyURL},
		{"foreign", "https://example.com/1234/x", ErrForeignURL},
		{"lookalike", "https://notnairaland.com/1234/x", ErrForeignURL},
		{"relative", "/1234/x", ErrForeignURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopicURL(tt.url)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidatePageCount(t *testing.T) {
	assert.NoError(t, ValidatePageCount(1))
	assert.NoError(t, ValidatePageCount(MaxPageCount))
	assert.ErrorIs(t, ValidatePageCount(0), ErrInvalidPageCount)
	assert.ErrorIs(t, ValidatePageCount(MaxPageCount+1), ErrInvalidPageCount)
}

func TestNewConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{PageCount: 51})
	assert.ErrorIs(t, err, ErrInvalidPageCount)

	_, err = New(&Config{DatabaseMode: "auto"})
	assert.Error(t, err)

	config := &Config{}
	_, err = New(config)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageCount, config.PageCount)
	assert.Equal(t, DefaultMaxConcurrency, config.MaxConcurrency)
	assert.Equal(t, DefaultDatabaseMode, config.DatabaseMode)
	assert.Equal(t, forum.DefaultSelectors(), config.Selectors)
}

func TestCollectLastPages(t *testing.T) {
	f := newFakeForum(testTopic, page1, page2, page3)
	a := newTestArchiver(t, f, nil)

	c := a.Collect(context.Background(), testTopic+"/1#msg102", 2)

	assert.Equal(t, testTopic, c.Thread)
	assert.Equal(t, "1234", c.TopicID)
	assert.Equal(t, "lagos-traffic", c.Slug)
	assert.Equal(t, []string{testTopic + "/1", testTopic + "/2"}, c.Pages)
	assert.Equal(t, 3, c.LastPage)

	require.Len(t, c.Posts, 3)
	assert.Equal(t, forum.Post{Author: "carol", Text: "Take the ferry", Quotes: []string{}, Link: testTopic + "/1#102"}, c.Posts[0])
	assert.Equal(t, forum.Post{Author: forum.UnknownAuthor, Text: "anonymous reply", Quotes: []string{}, Link: testTopic + "/1"}, c.Posts[1])
	assert.Equal(t, []string{"Take the ferry"}, c.Posts[2].Quotes)
	assert.Equal(t, "Ferry is slow", c.Posts[2].Text)
}

func TestCollectSkipsFailingPage(t *testing.T) {
	f := newFakeForum(testTopic, page1, page2, page3)
	f.failing[2] = true
	a := newTestArchiver(t, f, nil)

	c := a.Collect(context.Background(), testTopic, 3)

	require.Len(t, c.Posts, 3)
	assert.Equal(t, "alice", c.Posts[0].Author)
	assert.Equal(t, "bob", c.Posts[1].Author)
	assert.Equal(t, testTopic+"/2#104", c.Posts[2].Link)
}

func TestCollectUnreachableTopic(t *testing.T) {
	f := newFakeForum(testTopic)
	a := newTestArchiver(t, f, nil)

	c := a.Collect(context.Background(), testTopic, 2)
	assert.Equal(t, []string{testTopic}, c.Pages)
	assert.Empty(t, c.Posts)
	assert.NotNil(t, c.Posts)
}

func TestCollectUsesCache(t *testing.T) {
	f := newFakeForum(testTopic, page1, page2, page3)
	mem := cache.NewMemory(cache.DefaultTTL)
	defer mem.Close()
	a := newTestArchiver(t, f, nil, WithCache(mem))

	first := a.Collect(context.Background(), testTopic, 2)
	requests := f.requestCount()
	assert.Equal(t, 3, requests, "first page plus two content pages")

	second := a.Collect(context.Background(), testTopic, 2)
	assert.Equal(t, requests, f.requestCount())
	assert.Equal(t, first.Posts, second.Posts)

	a.Collect(context.Background(), testTopic, 3)
	assert.Equal(t, requests+2, f.requestCount(), "new count resolves again and fetches only the uncached page")
}

func TestArchiveTopics(t *testing.T) {
	f := newFakeForum(testTopic, page1, page2, page3)
	a := newTestArchiver(t, f, func(c *Config) { c.PageCount = 3 })

	results := a.ArchiveTopics(context.Background(), []string{testTopic, "https://example.com/1/x"})
	require.Len(t, results, 2)

	foreign := results["https://example.com/1/x"]
	assert.ErrorIs(t, foreign.Error, ErrForeignURL)

	result := results[testTopic]
	require.NoError(t, result.Error)
	assert.Equal(t, "1234", result.TopicID)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 5, result.PostsFound)
	assert.Equal(t, 5, result.PostsSaved)

	topicDir := filepath.Join(a.config.OutputDir, "1234")

	posts, err := LoadPostsFile(filepath.Join(topicDir, PostsJSONFileName))
	require.NoError(t, err)
	assert.Len(t, posts, 5)

	db, err := storage.Open(context.Background(), filepath.Join(topicDir, TopicDBFileName))
	require.NoError(t, err)
	defer db.Close()
	stored, err := storage.LoadPosts(context.Background(), db, "1234")
	require.NoError(t, err)
	assert.Equal(t, posts, stored)

	meta, err := metadata.NewManager(a.config.OutputDir).LoadMetadata("1234", "", "")
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusCompleted, meta.Status)
	assert.Equal(t, 5, meta.PostsCount)
	assert.Equal(t, 3, meta.LastPage)
	assert.True(t, meta.IsPostSaved("101"))
	require.NotNil(t, meta.Stats)
	assert.Equal(t, "alice", meta.Stats.MostActive)
	assert.Equal(t, 2, meta.Stats.PostsWithQuotes)
}

func TestArchiveIsIdempotent(t *testing.T) {
	f := newFakeForum(testTopic, page1, page2)
	a := newTestArchiver(t, f, nil)

	first := a.ArchiveTopics(context.Background(), []string{testTopic})[testTopic]
	require.NoError(t, first.Error)
	assert.Equal(t, 4, first.PostsSaved)

	second := a.ArchiveTopics(context.Background(), []string{testTopic})[testTopic]
	require.NoError(t, second.Error)
	assert.Equal(t, 4, second.PostsFound)
	assert.Equal(t, 0, second.PostsSaved)

	posts, err := LoadPostsFile(filepath.Join(a.config.OutputDir, "1234", PostsJSONFileName))
	require.NoError(t, err)
	assert.Len(t, posts, 4)
}

func TestArchiveRetryAfterDatabaseFailureDoesNotDuplicate(t *testing.T) {
	f := newFakeForum(testTopic, page1)
	a := newTestArchiver(t, f, nil)

	topicDir := filepath.Join(a.config.OutputDir, "1234")
	dbPath := filepath.Join(topicDir, TopicDBFileName)
	require.NoError(t, os.MkdirAll(dbPath, 0755))

	first := a.ArchiveTopics(context.Background(), []string{testTopic})[testTopic]
	require.Error(t, first.Error)
	_, err := os.Stat(filepath.Join(topicDir, PostsJSONFileName))
	assert.True(t, os.IsNotExist(err), "posts.json is not written when the database fails")

	require.NoError(t, os.RemoveAll(dbPath))

	second := a.ArchiveTopics(context.Background(), []string{testTopic})[testTopic]
	require.NoError(t, second.Error)
	assert.Equal(t, 2, second.PostsSaved)

	posts, err := LoadPostsFile(filepath.Join(topicDir, PostsJSONFileName))
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestSavePostsSkipsStoredPosts(t *testing.T) {
	a := newTestArchiver(t, newFakeForum(testTopic), nil)
	dir := t.TempDir()

	one := forum.Post{Author: "alice", Text: "first", Link: testTopic + "#1"}
	two := forum.Post{Author: "bob", Text: "second", Link: testTopic + "#2"}

	all, err := a.savePosts(dir, []forum.Post{one})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	all, err = a.savePosts(dir, []forum.Post{one, two})
	require.NoError(t, err)
	assert.Equal(t, []string{one.Link, two.Link}, []string{all[0].Link, all[1].Link})

	stored, err := LoadPostsFile(filepath.Join(dir, PostsJSONFileName))
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestArchiveMemoryDatabase(t *testing.T) {
	f := newFakeForum(testTopic, page1)
	a := newTestArchiver(t, f, func(c *Config) { c.DatabaseMode = DatabaseModeMemory })

	result := a.ArchiveTopics(context.Background(), []string{testTopic})[testTopic]
	require.NoError(t, result.Error)

	_, err := os.Stat(filepath.Join(a.config.OutputDir, "1234", TopicDBFileName))
	assert.True(t, os.IsNotExist(err))

	posts, err := LoadPostsFile(filepath.Join(a.config.OutputDir, "1234", PostsJSONFileName))
	require.NoError(t, err)
	assert.Len(t, posts, result.PostsSaved)
}

func TestArchiveRejectsNonTopic(t *testing.T) {
	f := newFakeForum(testTopic, page1)
	a := newTestArchiver(t, f, nil)

	result := a.ArchiveTopics(context.Background(), []string{"https://www.nairaland.com/links/news"})["https://www.nairaland.com/links/news"]
	assert.ErrorIs(t, result.Error, ErrNotTopic)
}

func TestLastPageNumber(t *testing.T) {
	assert.Equal(t, 0, lastPageNumber(testTopic, nil))
	assert.Equal(t, 1, lastPageNumber(testTopic, []string{testTopic}))
	assert.Equal(t, 7, lastPageNumber(testTopic, []string{testTopic + "/5", testTopic + "/6"}))
}
