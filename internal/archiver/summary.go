package archiver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/davidroman0O/nairaland-archiver/internal/digest"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/davidroman0O/nairaland-archiver/internal/summarizer"
)

// Summarize digests posts and asks s for a summary. Results are cached by
// the digest text, so an unchanged topic is summarized once per cache window.
func (a *Archiver) Summarize(ctx context.Context, s summarizer.Summarizer, posts []forum.Post) (string, error) {
	if len(posts) == 0 {
		return "", ErrNoPosts
	}

	text := digest.Format(posts)
	sum := sha256.Sum256([]byte(text))
	key := "summary:" + hex.EncodeToString(sum[:])

	if cached, ok := a.cache.Get(ctx, key); ok {
		a.log.Debug("Summary served from cache", logger.String("key", key))
		return string(cached), nil
	}

	summary, err := s.Summarize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to summarize %d posts: %w", len(posts), err)
	}
	a.cache.Set(ctx, key, []byte(summary))
	return summary, nil
}
