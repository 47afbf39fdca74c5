package archiver

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/davidroman0O/nairaland-archiver/internal/analysis"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/davidroman0O/nairaland-archiver/internal/metadata"
	"github.com/davidroman0O/nairaland-archiver/internal/storage"
)

// postKey identifies a post across passes: its permalink id, or a content
// hash for posts that carry no anchor.
func postKey(p forum.Post) string {
	if id := p.ID(); id != "" {
		return id
	}
	sum := sha256.Sum256([]byte(p.Link + "\x00" + p.Author + "\x00" + p.Text))
	return "h" + hex.EncodeToString(sum[:8])
}

// findNewPosts returns the posts not yet recorded in meta, in order. Repeats
// within posts are dropped too.
func findNewPosts(meta *metadata.TopicMetadata, posts []forum.Post) []forum.Post {
	seen := make(map[string]bool)
	var fresh []forum.Post
	for _, post := range posts {
		key := postKey(post)
		if seen[key] || meta.IsPostSaved(key) {
			continue
		}
		seen[key] = true
		fresh = append(fresh, post)
	}
	return fresh
}

func (a *Archiver) topicLock(topicID string) *sync.Mutex {
	mu, _ := a.topicLocks.LoadOrStore(topicID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// persist appends the posts of c not seen before to the topic's posts.json
// and database, then refreshes its metadata. It returns how many were new.
func (a *Archiver) persist(ctx context.Context, c Collection) (int, error) {
	mu := a.topicLock(c.TopicID)
	mu.Lock()
	defer mu.Unlock()

	meta, err := a.metadataManager.LoadMetadata(c.TopicID, c.Slug, c.Thread)
	if err != nil {
		return 0, fmt.Errorf("failed to load metadata: %w", err)
	}

	topicDir := a.metadataManager.TopicDir(c.TopicID)
	if err := os.MkdirAll(topicDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create topic directory: %w", err)
	}

	fail := func(err error) (int, error) {
		meta.SetError(err)
		if saveErr := a.metadataManager.SaveMetadata(meta); saveErr != nil {
			a.log.Warn("Failed to save metadata", logger.String("topic", c.TopicID), logger.Error(saveErr))
		}
		return 0, err
	}

	fresh := findNewPosts(meta, c.Posts)

	// The database insert is idempotent, so it goes first: a failure there
	// leaves posts.json untouched for the retry.
	if err := a.saveDatabase(ctx, topicDir, c, fresh); err != nil {
		return fail(fmt.Errorf("failed to save database: %w", err))
	}

	all, err := a.savePosts(topicDir, fresh)
	if err != nil {
		return fail(fmt.Errorf("failed to save posts: %w", err))
	}

	for _, post := range fresh {
		meta.AddSavedPost(postKey(post), post.Author, post.Link, len(post.Quotes) > 0)
	}
	meta.SetPages(c.LastPage, len(c.Pages))
	stats := analysis.Analyze(all)
	meta.Stats = &stats
	meta.SetStatus(metadata.StatusCompleted)

	if err := a.metadataManager.SaveMetadata(meta); err != nil {
		return len(fresh), fmt.Errorf("failed to save metadata: %w", err)
	}
	return len(fresh), nil
}

// savePosts appends the posts of fresh not already in posts.json and returns
// the full list.
func (a *Archiver) savePosts(topicDir string, fresh []forum.Post) ([]forum.Post, error) {
	postsFile := filepath.Join(topicDir, PostsJSONFileName)

	all, err := LoadPostsFile(postsFile)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]bool, len(all))
	for _, post := range all {
		stored[postKey(post)] = true
	}
	added := 0
	for _, post := range fresh {
		if key := postKey(post); !stored[key] {
			stored[key] = true
			all = append(all, post)
			added++
		}
	}
	if added == 0 {
		if _, statErr := os.Stat(postsFile); statErr == nil {
			return all, nil
		}
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(postsFile, data, 0644); err != nil {
		return nil, err
	}
	return all, nil
}

// LoadPostsFile reads a posts.json file; a missing file is an empty list.
func LoadPostsFile(path string) ([]forum.Post, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []forum.Post{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var posts []forum.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if posts == nil {
		posts = []forum.Post{}
	}
	return posts, nil
}

// saveDatabase inserts fresh into the topic's topic.db. Memory mode keeps
// the archive JSON-only and writes nothing.
func (a *Archiver) saveDatabase(ctx context.Context, topicDir string, c Collection, fresh []forum.Post) error {
	if a.config.DatabaseMode == DatabaseModeMemory {
		return nil
	}

	db, err := storage.Open(ctx, filepath.Join(topicDir, TopicDBFileName))
	if err != nil {
		return err
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			a.log.Warn("Failed to close database", logger.Error(err))
		}
	}(db)

	_, err = storage.SavePosts(ctx, db, storage.TopicInfo{
		TopicID:  c.TopicID,
		Slug:     c.Slug,
		URL:      c.Thread,
		LastPage: c.LastPage,
	}, fresh)
	return err
}
