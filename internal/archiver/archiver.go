package archiver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/davidroman0O/nairaland-archiver/internal/cache"
	"github.com/davidroman0O/nairaland-archiver/internal/extract"
	"github.com/davidroman0O/nairaland-archiver/internal/fetcher"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/davidroman0O/nairaland-archiver/internal/metadata"
	"github.com/davidroman0O/nairaland-archiver/internal/pagination"
	"github.com/davidroman0O/nairaland-archiver/internal/storage"
)

// Forum host accepted by ValidateTopicURL
const ForumDomain = "nairaland.com"

// Database modes
const (
	DatabaseModeMemory = storage.ModeMemory
	DatabaseModeFile   = storage.ModeFile
)

// File names
const (
	PostsJSONFileName = "posts.json"
	TopicDBFileName   = "topic.db"
	MetadataFileName  = metadata.FileName
)

// Default configuration values
const (
	DefaultDatabaseMode   = DatabaseModeFile
	DefaultPageCount      = 2
	MaxPageCount          = 50
	DefaultMaxConcurrency = 3
)

var (
	ErrEmptyURL         = errors.New("topic URL is required")
	ErrForeignURL       = errors.New("topic URL is not a " + ForumDomain + " link")
	ErrNotTopic         = errors.New("URL does not point to a topic")
	ErrInvalidPageCount = fmt.Errorf("page count must be between 1 and %d", MaxPageCount)
	ErrNoPosts          = errors.New("no posts were found")
)

// Config holds configuration for the archiver
type Config struct {
	OutputDir      string
	PageCount      int
	MaxConcurrency int
	DatabaseMode   string
	Fetch          fetcher.Config
	Selectors      forum.Selectors
}

func (c *Config) validate() error {
	if c.PageCount == 0 {
		c.PageCount = DefaultPageCount
	}
	if err := ValidatePageCount(c.PageCount); err != nil {
		return err
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	switch c.DatabaseMode {
	case "":
		c.DatabaseMode = DefaultDatabaseMode
	case DatabaseModeFile, DatabaseModeMemory:
	default:
		return fmt.Errorf("unknown database mode %q", c.DatabaseMode)
	}
	c.Selectors = c.Selectors.WithDefaults()
	return nil
}

// ValidateTopicURL checks that raw is an absolute link on the forum domain.
func ValidateTopicURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEmptyURL
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrForeignURL, raw)
	}
	host := strings.ToLower(parsed.Hostname())
	if host != ForumDomain && !strings.HasSuffix(host, "."+ForumDomain) {
		return fmt.Errorf("%w: %q", ErrForeignURL, raw)
	}
	return nil
}

// ValidatePageCount accepts 1..MaxPageCount.
func ValidatePageCount(n int) error {
	if n < 1 || n > MaxPageCount {
		return fmt.Errorf("%w, got %d", ErrInvalidPageCount, n)
	}
	return nil
}

// ArchiveResult represents the result of archiving a single topic
type ArchiveResult struct {
	URL        string
	TopicID    string
	Pages      int
	PostsFound int
	PostsSaved int
	Error      error
}

// Archiver handles resolving, extracting and persisting topics
type Archiver struct {
	config          *Config
	fetcher         fetcher.Fetcher
	resolver        *pagination.Resolver
	extractor       *extract.Extractor
	cache           cache.Cache
	log             logger.Logger
	metadataManager *metadata.Manager

	// one writer per topic directory
	topicLocks sync.Map

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option customizes an Archiver
type Option func(*Archiver)

// WithFetcher replaces the HTTP fetcher built from Config.Fetch.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(a *Archiver) { a.fetcher = f }
}

// WithCache memoizes page lists, page posts and summaries.
func WithCache(c cache.Cache) Option {
	return func(a *Archiver) { a.cache = c }
}

func WithLogger(l logger.Logger) Option {
	return func(a *Archiver) { a.log = l }
}

// New creates a new archiver instance
func New(config *Config, opts ...Option) (*Archiver, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	a := &Archiver{
		config: config,
		cache:  cache.Nop{},
		log:    logger.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetcher == nil {
		a.fetcher = fetcher.New(config.Fetch, a.log)
	}
	if config.OutputDir != "" {
		a.metadataManager = metadata.NewManager(config.OutputDir)
	}

	a.resolver = pagination.New(a.fetcher, config.Selectors, a.log)
	a.extractor = extract.New(config.Selectors)
	return a, nil
}

// Collection is the outcome of one resolve and extract pass over a topic.
type Collection struct {
	Thread   string
	TopicID  string
	Slug     string
	Pages    []string
	LastPage int
	Posts    []forum.Post
}

// ResolvePages returns the last count page URLs of a topic, through the cache.
func (a *Archiver) ResolvePages(ctx context.Context, topicURL string, count int) []string {
	return a.resolvePages(ctx, topicURL, count, true)
}

func (a *Archiver) resolvePages(ctx context.Context, topicURL string, count int, cached bool) []string {
	key := fmt.Sprintf("pages:%s:%d", forum.NormalizeThreadURL(topicURL), count)

	var pages []string
	if cached && cache.GetJSON(ctx, a.cache, key, &pages) && len(pages) > 0 {
		a.log.Debug("Page list served from cache", logger.String("key", key))
		return pages
	}

	pages = a.resolver.Resolve(ctx, topicURL, count)
	if err := cache.SetJSON(ctx, a.cache, key, pages); err != nil {
		a.log.Warn("Failed to cache page list", logger.Error(err))
	}
	return pages
}

// FetchPosts fetches pageURLs one after the other and concatenates their
// posts in page order. A page that fails to load contributes nothing.
func (a *Archiver) FetchPosts(ctx context.Context, pageURLs []string) []forum.Post {
	return a.fetchPosts(ctx, pageURLs, true)
}

func (a *Archiver) fetchPosts(ctx context.Context, pageURLs []string, cached bool) []forum.Post {
	all := []forum.Post{}
	for _, pageURL := range pageURLs {
		if ctx.Err() != nil {
			break
		}
		all = append(all, a.pagePosts(ctx, pageURL, cached)...)
	}
	return all
}

func (a *Archiver) pagePosts(ctx context.Context, pageURL string, cached bool) []forum.Post {
	key := "posts:" + pageURL
	log := a.log.With(logger.String("page", pageURL))

	var posts []forum.Post
	if cached && cache.GetJSON(ctx, a.cache, key, &posts) {
		log.Debug("Page posts served from cache", logger.Int("posts", len(posts)))
		return posts
	}

	body, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		log.Warn("Skipping page that could not be fetched", logger.Error(err))
		return nil
	}

	posts = a.extractor.ExtractHTML(body, pageURL)
	log.Debug("Extracted page", logger.Int("posts", len(posts)))
	if err := cache.SetJSON(ctx, a.cache, key, posts); err != nil {
		log.Warn("Failed to cache page posts", logger.Error(err))
	}
	return posts
}

// Collect resolves the last count pages of a topic and extracts their posts.
func (a *Archiver) Collect(ctx context.Context, topicURL string, count int) Collection {
	return a.collect(ctx, topicURL, count, true)
}

func (a *Archiver) collect(ctx context.Context, topicURL string, count int, cached bool) Collection {
	pages := a.resolvePages(ctx, topicURL, count, cached)
	c := Collection{
		Thread:  forum.NormalizeThreadURL(topicURL),
		TopicID: forum.TopicID(topicURL),
		Slug:    forum.Slug(topicURL),
		Pages:   pages,
		Posts:   a.fetchPosts(ctx, pages, cached),
	}
	c.LastPage = lastPageNumber(c.Thread, pages)
	return c
}

// lastPageNumber recovers the 1-based number of the final page URL.
func lastPageNumber(thread string, pages []string) int {
	if len(pages) == 0 {
		return 0
	}
	last := pages[len(pages)-1]
	suffix := strings.TrimPrefix(strings.TrimPrefix(last, thread), "/")
	if suffix == "" {
		return 1
	}
	var n int
	if _, err := fmt.Sscanf(suffix, "%d", &n); err != nil {
		return len(pages)
	}
	return n + 1
}

// ArchiveTopics archives multiple topics concurrently
func (a *Archiver) ArchiveTopics(ctx context.Context, topicURLs []string) map[string]ArchiveResult {
	results := make(map[string]ArchiveResult)
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, a.config.MaxConcurrency)

	for _, topicURL := range topicURLs {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result := a.archiveTopic(ctx, u)

			mu.Lock()
			results[u] = result
			mu.Unlock()
		}(topicURL)
	}

	wg.Wait()
	return results
}

// archiveTopic archives the last PageCount pages of a single topic
func (a *Archiver) archiveTopic(ctx context.Context, topicURL string) ArchiveResult {
	result := ArchiveResult{URL: topicURL}

	if a.metadataManager == nil {
		result.Error = errors.New("output directory is required")
		return result
	}
	if err := ValidateTopicURL(topicURL); err != nil {
		result.Error = err
		return result
	}
	result.TopicID = forum.TopicID(topicURL)
	if result.TopicID == "" {
		result.Error = fmt.Errorf("%w: %q", ErrNotTopic, topicURL)
		return result
	}

	log := a.log.With(logger.String("topic", result.TopicID))
	log.Info("Starting archive", logger.String("url", topicURL), logger.Int("pages", a.config.PageCount))

	collection := a.Collect(ctx, topicURL, a.config.PageCount)
	result.Pages = len(collection.Pages)
	result.PostsFound = len(collection.Posts)

	saved, err := a.persist(ctx, collection)
	result.PostsSaved = saved
	if err != nil {
		result.Error = err
		return result
	}

	log.Info("Completed archive",
		logger.Int("pages", result.Pages),
		logger.Int("posts_found", result.PostsFound),
		logger.Int("posts_saved", result.PostsSaved))
	return result
}
