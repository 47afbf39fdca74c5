package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/archiver"
	"github.com/davidroman0O/nairaland-archiver/internal/cache"
	"github.com/davidroman0O/nairaland-archiver/internal/fetcher"
	"github.com/davidroman0O/nairaland-archiver/internal/forum"
	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	outputDir   string
	rateLimitMs int
	maxRetries  int
	userAgent   string
	timeout     time.Duration
	pageCount   int
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nairaland-archiver",
	Short: "Read, archive and summarize Nairaland topics",
	Long: `A Nairaland topic reader that:
- Resolves the last N pages of a topic from its pagination block
- Extracts author, text, quoted replies and permalink of every post
- Archives topics to JSON and SQLite with metadata tracking
- Monitors active topics for new replies
- Summarizes recent discussion with an LLM`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.nairaland-archiver.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (default: ~/Documents/nairaland-archive)")
	rootCmd.PersistentFlags().IntVar(&rateLimitMs, "rate-limit", fetcher.DefaultRateLimitMs, "rate limit between requests in milliseconds")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", fetcher.DefaultMaxRetries, "maximum number of attempts per page")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "custom user agent (default: random)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", fetcher.DefaultTimeout, "timeout for a single page fetch")
	rootCmd.PersistentFlags().IntVarP(&pageCount, "pages", "p", archiver.DefaultPageCount,
		fmt.Sprintf("number of most recent pages to read (1-%d)", archiver.MaxPageCount))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().String("cache", cache.BackendMemory,
		"cache backend: '"+cache.BackendMemory+"', '"+cache.BackendRedis+"' or '"+cache.BackendNone+"'")
	rootCmd.PersistentFlags().Duration("cache-ttl", cache.DefaultTTL, "how long resolved pages and posts are reused")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "redis address for the redis cache backend")
	rootCmd.PersistentFlags().String("database-mode", archiver.DefaultDatabaseMode,
		"archive database mode: '"+archiver.DatabaseModeFile+"' or '"+archiver.DatabaseModeMemory+"'")

	// Bind flags to viper
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("rate-limit", rootCmd.PersistentFlags().Lookup("rate-limit"))
	viper.BindPFlag("max-retries", rootCmd.PersistentFlags().Lookup("max-retries"))
	viper.BindPFlag("user-agent", rootCmd.PersistentFlags().Lookup("user-agent"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("pages", rootCmd.PersistentFlags().Lookup("pages"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("cache.backend", rootCmd.PersistentFlags().Lookup("cache"))
	viper.BindPFlag("cache.ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	viper.BindPFlag("cache.redis-addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	viper.BindPFlag("database-mode", rootCmd.PersistentFlags().Lookup("database-mode"))
}

// initConfig reads in .env, config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: failed to load .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".nairaland-archiver")
	}

	viper.SetEnvPrefix("NAIRALAND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if outputDir == "" {
		home, _ := os.UserHomeDir()
		viper.SetDefault("output", filepath.Join(home, "Documents", "nairaland-archive"))
	}
	viper.SetDefault("log-level", "info")
	viper.SetDefault("summarizer.provider", "gemini")
	viper.SetDefault("summarizer.max-elapsed", 2*time.Minute)

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from verbose and log-level.
func newLogger() (logger.Logger, error) {
	level := viper.GetString("log-level")
	if viper.GetBool("verbose") {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Console: true})
}

// newCache builds the configured cache backend.
func newCache(log logger.Logger) (cache.Cache, error) {
	ttl := viper.GetDuration("cache.ttl")
	switch backend := viper.GetString("cache.backend"); backend {
	case cache.BackendMemory, "":
		return cache.NewMemory(ttl), nil
	case cache.BackendRedis:
		return cache.NewRedis(viper.GetString("cache.redis-addr"), ttl, log)
	case cache.BackendNone:
		return cache.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// archiverConfig reads the archiver settings shared by every command.
func archiverConfig() (*archiver.Config, error) {
	var selectors forum.Selectors
	if err := viper.UnmarshalKey("selectors", &selectors); err != nil {
		return nil, fmt.Errorf("invalid selectors: %w", err)
	}

	pages := viper.GetInt("pages")
	if err := archiver.ValidatePageCount(pages); err != nil {
		return nil, err
	}

	return &archiver.Config{
		OutputDir:      viper.GetString("output"),
		PageCount:      pages,
		MaxConcurrency: viper.GetInt("concurrency"),
		DatabaseMode:   viper.GetString("database-mode"),
		Fetch: fetcher.Config{
			Timeout:     viper.GetDuration("timeout"),
			RateLimitMs: viper.GetInt("rate-limit"),
			MaxRetries:  viper.GetInt("max-retries"),
			UserAgent:   viper.GetString("user-agent"),
		},
		Selectors: selectors,
	}, nil
}

// runtime bundles what a command needs and releases it on Close.
type runtime struct {
	config   *archiver.Config
	log      logger.Logger
	cache    cache.Cache
	archiver *archiver.Archiver
}

func newRuntime() (*runtime, error) {
	log, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	config, err := archiverConfig()
	if err != nil {
		return nil, err
	}

	c, err := newCache(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	arc, err := archiver.New(config, archiver.WithLogger(log), archiver.WithCache(c))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create archiver: %w", err)
	}

	return &runtime{config: config, log: log, cache: c, archiver: arc}, nil
}

func (r *runtime) Close() {
	if err := r.cache.Close(); err != nil {
		r.log.Warn("Failed to close cache", logger.Error(err))
	}
	_ = r.log.Sync()
}

// topicArg validates and returns the single topic URL argument.
func topicArg(args []string) (string, error) {
	topic := strings.TrimSpace(args[0])
	if err := archiver.ValidateTopicURL(topic); err != nil {
		return "", err
	}
	return topic, nil
}
