package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/forum"
)

// TopicInfo identifies the topic posts are saved under.
type TopicInfo struct {
	TopicID  string
	Slug     string
	URL      string
	LastPage int
}

// SavePosts writes the topic row and every post with its quotes in one
// transaction. It returns how many posts were new.
func SavePosts(ctx context.Context, db *sql.DB, topic TopicInfo, posts []forum.Post) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := New(db).WithTx(tx)
	now := time.Now().UTC()

	if err := qtx.UpsertTopic(ctx, UpsertTopicParams{
		TopicID:  topic.TopicID,
		Slug:     topic.Slug,
		URL:      topic.URL,
		LastPage: int64(topic.LastPage),
		Now:      now,
	}); err != nil {
		return 0, fmt.Errorf("failed to upsert topic %s: %w", topic.TopicID, err)
	}

	base, err := qtx.CountPosts(ctx, topic.TopicID)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}

	inserted := 0
	for i, post := range posts {
		id, created, err := qtx.CreatePost(ctx, CreatePostParams{
			TopicID:  topic.TopicID,
			PostID:   nullString(post.ID()),
			Position: base + int64(i),
			Author:   post.Author,
			PostText: post.Text,
			Link:     post.Link,
			PageURL:  post.PageURL(),
			SavedAt:  now,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to insert post %s: %w", post.Link, err)
		}
		if !created {
			continue
		}
		inserted++

		for j, quote := range post.Quotes {
			if err := qtx.CreateQuote(ctx, id, j, quote); err != nil {
				return 0, fmt.Errorf("failed to insert quote of %s: %w", post.Link, err)
			}
		}
	}

	if err := qtx.RefreshPostsCount(ctx, topic.TopicID); err != nil {
		return 0, fmt.Errorf("failed to refresh post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// LoadPosts reads a topic back as forum posts.
func LoadPosts(ctx context.Context, db *sql.DB, topicID string) ([]forum.Post, error) {
	rows, err := New(db).GetPostsByTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts of %s: %w", topicID, err)
	}
	posts := make([]forum.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, forum.Post{
			Author: row.Author,
			Text:   row.PostText,
			Quotes: row.Quotes,
			Link:   row.Link,
		})
	}
	return posts, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
