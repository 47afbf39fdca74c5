package summarizer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
)

// RetryConfig bounds the exponential backoff applied to ErrRateLimited.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig waits 2s, doubling up to 30s, for at most two minutes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
	}
}

type retrying struct {
	next Summarizer
	cfg  RetryConfig
	log  logger.Logger
}

// WithRetry retries rate limited calls of next; every other error is returned at once.
func WithRetry(next Summarizer, cfg RetryConfig, log logger.Logger) Summarizer {
	d := DefaultRetryConfig()
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = d.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = d.MaxInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = d.MaxElapsedTime
	}
	return &retrying{next: next, cfg: cfg, log: log}
}

func (r *retrying) Summarize(ctx context.Context, digest string) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.InitialInterval
	policy.MaxInterval = r.cfg.MaxInterval
	policy.MaxElapsedTime = r.cfg.MaxElapsedTime

	var summary string
	operation := func() error {
		s, err := r.next.Summarize(ctx, digest)
		if err == nil {
			summary = s
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warn("Summarizer rate limited, backing off", logger.Duration("wait", wait), logger.Error(err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return "", err
	}
	return summary, nil
}
