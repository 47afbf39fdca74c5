package archiver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/robfig/cron/v3"
)

// MinMonitorInterval keeps polling polite
const MinMonitorInterval = 30 * time.Second

// MonitorConfig controls a monitoring session
type MonitorConfig struct {
	TopicURLs   []string
	Interval    time.Duration
	MaxDuration time.Duration
	PageCount   int
	// StopOnInactivity ends monitoring once no topic has gained a post for this long. Zero disables it.
	StopOnInactivity time.Duration
}

// CheckResult reports one monitoring pass over a topic
type CheckResult struct {
	URL      string
	NewPosts int
	Err      error
}

// MonitorTopics checks every topic once, then again on each interval tick,
// until ctx ends or StopMonitoring is called. MaxDuration and StopOnInactivity
// bound the session further. Page lists and pages are always fetched fresh.
func (a *Archiver) MonitorTopics(ctx context.Context, cfg *MonitorConfig) error {
	if len(cfg.TopicURLs) == 0 {
		return errors.New("at least one topic URL is required")
	}
	if cfg.Interval <= 0 {
		return errors.New("monitoring interval must be positive")
	}
	if cfg.PageCount == 0 {
		cfg.PageCount = a.config.PageCount
	}
	if err := ValidatePageCount(cfg.PageCount); err != nil {
		return err
	}
	for _, u := range cfg.TopicURLs {
		if err := ValidateTopicURL(u); err != nil {
			return err
		}
	}
	if a.metadataManager == nil {
		return errors.New("output directory is required")
	}

	if cfg.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxDuration)
		defer cancel()
	}
	ctx, idle := context.WithCancelCause(ctx)
	defer idle(nil)

	var (
		mu           sync.Mutex
		lastActivity = time.Now()
	)
	tick := func() {
		results := a.checkAll(ctx, cfg)
		mu.Lock()
		defer mu.Unlock()
		for _, r := range results {
			if r.NewPosts > 0 {
				lastActivity = time.Now()
			}
		}
		if cfg.StopOnInactivity > 0 && time.Since(lastActivity) >= cfg.StopOnInactivity {
			idle(fmt.Errorf("no new posts for %s", cfg.StopOnInactivity))
		}
	}

	tick()

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.Interval), tick); err != nil {
		return fmt.Errorf("failed to schedule monitor: %w", err)
	}
	scheduler.Start()

	select {
	case <-ctx.Done():
		a.log.Info("Monitoring finished", logger.String("reason", context.Cause(ctx).Error()))
	case <-a.stopCh:
		a.log.Info("Monitoring stopped")
	}

	<-scheduler.Stop().Done()
	return nil
}

// StopMonitoring ends a running MonitorTopics. It is safe to call more than once.
func (a *Archiver) StopMonitoring() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

func (a *Archiver) checkAll(ctx context.Context, cfg *MonitorConfig) []CheckResult {
	results := make([]CheckResult, 0, len(cfg.TopicURLs))
	for _, u := range cfg.TopicURLs {
		if ctx.Err() != nil {
			break
		}
		n, err := a.CheckTopic(ctx, u, cfg.PageCount)
		if err != nil {
			a.log.Warn("Monitor check failed", logger.String("url", u), logger.Error(err))
		} else if n > 0 {
			a.log.Info("New posts archived", logger.String("url", u), logger.Int("new_posts", n))
		} else {
			a.log.Debug("No new posts", logger.String("url", u))
		}
		results = append(results, CheckResult{URL: u, NewPosts: n, Err: err})
	}
	return results
}

// CheckTopic re-reads the last count pages of a topic, bypassing the cache,
// and stores the posts not seen before.
func (a *Archiver) CheckTopic(ctx context.Context, topicURL string, count int) (int, error) {
	if a.metadataManager == nil {
		return 0, errors.New("output directory is required")
	}
	c := a.collect(ctx, topicURL, count, false)
	if c.TopicID == "" {
		return 0, fmt.Errorf("%w: %q", ErrNotTopic, topicURL)
	}
	return a.persist(ctx, c)
}
