package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Topic struct {
	TopicID     string
	Slug        string
	URL         string
	LastPage    int64
	PostsCount  int64
	CreatedAt   time.Time
	LastUpdated time.Time
}

type Post struct {
	ID       int64
	TopicID  string
	PostID   sql.NullString
	Position int64
	Author   string
	PostText string
	Link     string
	PageURL  string
	SavedAt  time.Time
	Quotes   []string
}

const upsertTopic = `
INSERT INTO topics (topic_id, slug, url, last_page, posts_count, created_at, last_updated)
VALUES (?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(topic_id) DO UPDATE SET
    slug = excluded.slug,
    url = excluded.url,
    last_page = MAX(topics.last_page, excluded.last_page),
    last_updated = excluded.last_updated
`

type UpsertTopicParams struct {
	TopicID  string
	Slug     string
	URL      string
	LastPage int64
	Now      time.Time
}

func (q *Queries) UpsertTopic(ctx context.Context, arg UpsertTopicParams) error {
	_, err := q.db.ExecContext(ctx, upsertTopic, arg.TopicID, arg.Slug, arg.URL, arg.LastPage, arg.Now, arg.Now)
	return err
}

const getTopic = `
SELECT topic_id, slug, url, last_page, posts_count, created_at, last_updated
FROM topics WHERE topic_id = ?
`

func (q *Queries) GetTopic(ctx context.Context, topicID string) (Topic, error) {
	var t Topic
	err := q.db.QueryRowContext(ctx, getTopic, topicID).Scan(
		&t.TopicID, &t.Slug, &t.URL, &t.LastPage, &t.PostsCount, &t.CreatedAt, &t.LastUpdated,
	)
	return t, err
}

const refreshPostsCount = `
UPDATE topics SET posts_count = (SELECT COUNT(*) FROM posts WHERE posts.topic_id = topics.topic_id)
WHERE topic_id = ?
`

func (q *Queries) RefreshPostsCount(ctx context.Context, topicID string) error {
	_, err := q.db.ExecContext(ctx, refreshPostsCount, topicID)
	return err
}

const createPost = `
INSERT OR IGNORE INTO posts (topic_id, post_id, position, author, post_text, link, page_url, saved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePostParams struct {
	TopicID  string
	PostID   sql.NullString
	Position int64
	Author   string
	PostText string
	Link     string
	PageURL  string
	SavedAt  time.Time
}

// CreatePost inserts a post and returns its row id. A post whose permalink id
// is already stored for the topic is skipped and reported with created false.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (id int64, created bool, err error) {
	res, err := q.db.ExecContext(ctx, createPost,
		arg.TopicID, arg.PostID, arg.Position, arg.Author, arg.PostText, arg.Link, arg.PageURL, arg.SavedAt,
	)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err = res.LastInsertId()
	return id, err == nil, err
}

const createQuote = `
INSERT INTO quotes (post_ref, position, text) VALUES (?, ?, ?)
`

func (q *Queries) CreateQuote(ctx context.Context, postRef int64, position int, text string) error {
	_, err := q.db.ExecContext(ctx, createQuote, postRef, position, text)
	return err
}

const countPosts = `
SELECT COUNT(*) FROM posts WHERE topic_id = ?
`

func (q *Queries) CountPosts(ctx context.Context, topicID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPosts, topicID).Scan(&n)
	return n, err
}

const getPostsByTopic = `
SELECT id, topic_id, post_id, position, author, post_text, link, page_url, saved_at
FROM posts WHERE topic_id = ? ORDER BY id
`

const getQuotesByTopic = `
SELECT quotes.post_ref, quotes.text
FROM quotes JOIN posts ON posts.id = quotes.post_ref
WHERE posts.topic_id = ?
ORDER BY quotes.post_ref, quotes.position
`

// GetPostsByTopic returns the stored posts of a topic in insertion order with their quotes.
func (q *Queries) GetPostsByTopic(ctx context.Context, topicID string) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, getPostsByTopic, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Post
	index := make(map[int64]int)
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.TopicID, &p.PostID, &p.Position, &p.Author, &p.PostText, &p.Link, &p.PageURL, &p.SavedAt); err != nil {
			return nil, err
		}
		p.Quotes = []string{}
		index[p.ID] = len(items)
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qrows, err := q.db.QueryContext(ctx, getQuotesByTopic, topicID)
	if err != nil {
		return nil, err
	}
	defer qrows.Close()

	for qrows.Next() {
		var ref int64
		var text string
		if err := qrows.Scan(&ref, &text); err != nil {
			return nil, err
		}
		i, ok := index[ref]
		if !ok {
			return nil, fmt.Errorf("quote references unknown post %d", ref)
		}
		items[i].Quotes = append(items[i].Quotes, text)
	}
	return items, qrows.Err()
}
