package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/analysis"
)

// FileName is the per-topic state file
const FileName = ".metadata.json"

// Archiving states
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TopicMetadata represents the state of a topic's archiving process
type TopicMetadata struct {
	TopicID     string               `json:"topic_id"`
	Slug        string               `json:"slug"`
	URL         string               `json:"url"`
	CreatedAt   time.Time            `json:"created_at"`
	LastUpdated time.Time            `json:"last_updated"`
	LastPage    int                  `json:"last_page"`
	PagesCount  int                  `json:"pages_count"`
	PostsCount  int                  `json:"posts_count"`
	SavedPosts  map[string]PostInfo  `json:"saved_posts"`
	Stats       *analysis.TopicStats `json:"stats,omitempty"`
	Status      string               `json:"status"`
	LastError   string               `json:"last_error,omitempty"`
}

// PostInfo tracks information about saved posts
type PostInfo struct {
	PostID   string    `json:"post_id"`
	Author   string    `json:"author"`
	Link     string    `json:"link"`
	HasQuote bool      `json:"has_quote"`
	SavedAt  time.Time `json:"saved_at"`
}

// Manager handles metadata operations for topic archiving
type Manager struct {
	outputDir string
}

// NewManager creates a new metadata manager
func NewManager(outputDir string) *Manager {
	return &Manager{
		outputDir: outputDir,
	}
}

// TopicDir returns the directory holding every file of a topic
func (m *Manager) TopicDir(topicID string) string {
	return filepath.Join(m.outputDir, topicID)
}

// GetMetadataPath returns the path to the metadata file for a topic
func (m *Manager) GetMetadataPath(topicID string) string {
	return filepath.Join(m.TopicDir(topicID), FileName)
}

// LoadMetadata loads existing metadata for a topic, or creates new if it doesn't exist
func (m *Manager) LoadMetadata(topicID, slug, url string) (*TopicMetadata, error) {
	metadataPath := m.GetMetadataPath(topicID)

	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		now := time.Now()
		return &TopicMetadata{
			TopicID:     topicID,
			Slug:        slug,
			URL:         url,
			CreatedAt:   now,
			LastUpdated: now,
			SavedPosts:  make(map[string]PostInfo),
			Status:      StatusInProgress,
		}, nil
	}

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var metadata TopicMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file: %w", err)
	}
	if metadata.SavedPosts == nil {
		metadata.SavedPosts = make(map[string]PostInfo)
	}

	return &metadata, nil
}

// SaveMetadata saves metadata to the topic's directory
func (m *Manager) SaveMetadata(metadata *TopicMetadata) error {
	metadataPath := m.GetMetadataPath(metadata.TopicID)

	if err := os.MkdirAll(filepath.Dir(metadataPath), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	metadata.LastUpdated = time.Now()

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metadataPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	return nil
}

// ListTopics returns the ids of every topic directory that carries a metadata file, sorted.
func (m *Manager) ListTopics() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var topics []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(m.GetMetadataPath(entry.Name())); err == nil {
			topics = append(topics, entry.Name())
		}
	}
	sort.Strings(topics)
	return topics, nil
}

// IsPostSaved checks if a post has already been saved
func (metadata *TopicMetadata) IsPostSaved(postID string) bool {
	_, exists := metadata.SavedPosts[postID]
	return exists
}

// AddSavedPost records a newly saved post
func (metadata *TopicMetadata) AddSavedPost(postID, author, link string, hasQuote bool) {
	if metadata.SavedPosts == nil {
		metadata.SavedPosts = make(map[string]PostInfo)
	}

	metadata.SavedPosts[postID] = PostInfo{
		PostID:   postID,
		Author:   author,
		Link:     link,
		HasQuote: hasQuote,
		SavedAt:  time.Now(),
	}
	metadata.PostsCount = len(metadata.SavedPosts)
}

// SetPages records the page range seen on the last pass
func (metadata *TopicMetadata) SetPages(lastPage, fetched int) {
	if lastPage > metadata.LastPage {
		metadata.LastPage = lastPage
	}
	metadata.PagesCount = fetched
}

// SetStatus updates the archiving status
func (metadata *TopicMetadata) SetStatus(status string) {
	metadata.Status = status
	metadata.LastError = ""
	metadata.LastUpdated = time.Now()
}

// SetError sets an error status and message
func (metadata *TopicMetadata) SetError(err error) {
	metadata.Status = StatusFailed
	metadata.LastError = err.Error()
	metadata.LastUpdated = time.Now()
}
