// Package analysis computes statistics over extracted topic posts.
package analysis

import (
	"sort"

	"github.com/davidroman0O/nairaland-archiver/internal/forum"
)

// UserStats represents statistics for an author in a topic
type UserStats struct {
	Author      string   `json:"author"`
	PostCount   int      `json:"post_count"`
	QuoteCount  int      `json:"quote_count"`
	TextLength  int      `json:"text_length"`
	PostIDs     []string `json:"post_ids"`
	FirstPostID string   `json:"first_post_id,omitempty"`
	LastPostID  string   `json:"last_post_id,omitempty"`
}

// TopicStats summarizes a list of posts
type TopicStats struct {
	TotalPosts      int         `json:"total_posts"`
	UniqueAuthors   int         `json:"unique_authors"`
	PostsWithQuotes int         `json:"posts_with_quotes"`
	TotalQuotes     int         `json:"total_quotes"`
	UnknownAuthors  int         `json:"unknown_authors"`
	MostActive      string      `json:"most_active,omitempty"`
	TopPosters      []UserStats `json:"top_posters"`
}

// Analyze computes topic statistics. Authors are ranked by post count, ties by
// first appearance.
func Analyze(posts []forum.Post) TopicStats {
	stats := TopicStats{TotalPosts: len(posts)}

	byAuthor := make(map[string]*UserStats)
	var order []string

	for _, post := range posts {
		if len(post.Quotes) > 0 {
			stats.PostsWithQuotes++
			stats.TotalQuotes += len(post.Quotes)
		}
		if post.Author == forum.UnknownAuthor {
			stats.UnknownAuthors++
		}

		user := byAuthor[post.Author]
		if user == nil {
			user = &UserStats{Author: post.Author, PostIDs: []string{}}
			byAuthor[post.Author] = user
			order = append(order, post.Author)
		}

		user.PostCount++
		user.QuoteCount += len(post.Quotes)
		user.TextLength += len(post.Text)
		if id := post.ID(); id != "" {
			user.PostIDs = append(user.PostIDs, id)
			if user.FirstPostID == "" {
				user.FirstPostID = id
			}
			user.LastPostID = id
		}
	}

	stats.UniqueAuthors = len(byAuthor)
	stats.TopPosters = make([]UserStats, 0, len(order))
	for _, author := range order {
		stats.TopPosters = append(stats.TopPosters, *byAuthor[author])
	}
	sort.SliceStable(stats.TopPosters, func(i, j int) bool {
		return stats.TopPosters[i].PostCount > stats.TopPosters[j].PostCount
	})
	if len(stats.TopPosters) > 0 {
		stats.MostActive = stats.TopPosters[0].Author
	}

	return stats
}

// Top returns at most n of the ranked posters.
func (s TopicStats) Top(n int) []UserStats {
	if n < 0 || n >= len(s.TopPosters) {
		return s.TopPosters
	}
	return s.TopPosters[:n]
}
