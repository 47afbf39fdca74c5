// Package summarizer sends a topic digest to a large language model.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/logger"
)

// Provider names
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Default models per provider
const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

var (
	// ErrRateLimited marks a transient refusal that is worth retrying.
	ErrRateLimited = errors.New("summarizer rate limited")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMissingAPIKey is returned by New without an API key.
	ErrMissingAPIKey = errors.New("summarizer API key is required")
)

// Summarizer turns a digest into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, digest string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	Timeout time.Duration
	Retry   RetryConfig
}

// New builds the configured provider wrapped in WithRetry.
func New(cfg Config, log logger.Logger) (Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}

	var s Summarizer
	switch cfg.Provider {
	case ProviderGemini, "":
		s = NewGemini(cfg.APIKey, cfg.Model, cfg.BaseURL, client)
	case ProviderOpenAI:
		s = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, client)
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}

	return WithRetry(s, cfg.Retry, log), nil
}

// Prompt wraps the digest in the analyst instructions.
func Prompt(digest string) string {
	return `You are an expert at analyzing and summarizing online forum discussions.
Based on the following collection of posts from a Nairaland topic, please provide:
1.  **A Concise Summary:** A high-level overview of the main theme and what the current conversation is about. If multiple themes are being discussed, summarize each separately
2.  **Key Discussion Points:** Identify the 2-4 main arguments, opinions, or themes being discussed by the users.
3.  **Relevant Posts:** A bulleted list of the most significant or representative posts that capture the essence of the discussion. For each post, you MUST include the author and the full link. Select posts that show different perspectives or contain valuable insights **Crucially, present the link as plain text and do not format it as a clickable Markdown link.**

Note: Make the summary engaging and the aim should be to help the reader understand the topics well enough to decide if they want to engage with the full thread.

Here is the discussion:
---
` + digest + `
---
`
}
