package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/davidroman0O/nairaland-archiver/internal/analysis"
	"github.com/davidroman0O/nairaland-archiver/internal/archiver"
	"github.com/davidroman0O/nairaland-archiver/internal/summarizer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <topic-url>",
	Short: "Summarize the most recent pages of a topic with an LLM",
	Long: `Collect the posts of the last N pages of a topic and ask an LLM for a summary,
the key discussion points and the most relevant posts.

The API key is read from summarizer.api-key, or from GEMINI_API_KEY / OPENAI_API_KEY
depending on the provider. A .env file in the working directory is loaded first.

Examples:
  nairaland-archiver summarize https://www.nairaland.com/1234567/some-topic
  nairaland-archiver summarize --provider openai --model gpt-4o-mini --pages 4 https://www.nairaland.com/1234567/some-topic`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().String("provider", summarizer.ProviderGemini,
		"LLM provider: '"+summarizer.ProviderGemini+"' or '"+summarizer.ProviderOpenAI+"'")
	summarizeCmd.Flags().String("model", "", "model name (default depends on provider)")
	summarizeCmd.Flags().String("api-key", "", "LLM API key")
	summarizeCmd.Flags().String("base-url", "", "override the provider endpoint")
	summarizeCmd.Flags().Duration("max-elapsed", summarizer.DefaultRetryConfig().MaxElapsedTime,
		"give up retrying rate limited requests after this long")

	viper.BindPFlag("summarizer.provider", summarizeCmd.Flags().Lookup("provider"))
	viper.BindPFlag("summarizer.model", summarizeCmd.Flags().Lookup("model"))
	viper.BindPFlag("summarizer.api-key", summarizeCmd.Flags().Lookup("api-key"))
	viper.BindPFlag("summarizer.base-url", summarizeCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("summarizer.max-elapsed", summarizeCmd.Flags().Lookup("max-elapsed"))
}

// summarizerConfig resolves the provider settings, falling back to the
// provider's conventional API key variable.
func summarizerConfig() summarizer.Config {
	provider := strings.ToLower(viper.GetString("summarizer.provider"))
	apiKey := viper.GetString("summarizer.api-key")
	if apiKey == "" {
		switch provider {
		case summarizer.ProviderOpenAI:
			apiKey = os.Getenv("OPENAI_API_KEY")
		default:
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	retry := summarizer.DefaultRetryConfig()
	if elapsed := viper.GetDuration("summarizer.max-elapsed"); elapsed > 0 {
		retry.MaxElapsedTime = elapsed
	}

	return summarizer.Config{
		Provider: provider,
		Model:    viper.GetString("summarizer.model"),
		APIKey:   apiKey,
		BaseURL:  viper.GetString("summarizer.base-url"),
		Retry:    retry,
	}
}

func runSummarize(cmd *cobra.Command, args []string) error {
	topic, err := topicArg(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := summarizer.New(summarizerConfig(), rt.log)
	if err != nil {
		return fmt.Errorf("failed to create summarizer: %w", err)
	}

	out := cmd.OutOrStdout()
	collection := rt.archiver.Collect(cmd.Context(), topic, rt.config.PageCount)
	if len(collection.Posts) == 0 {
		fmt.Fprintln(out, "No posts were found. The topic might be empty or the page structure may have changed.")
		return archiver.ErrNoPosts
	}

	fmt.Fprintf(out, "Found %d posts across %d page(s).\n", len(collection.Posts), len(collection.Pages))
	stats := analysis.Analyze(collection.Posts)
	var top []string
	for _, u := range stats.Top(3) {
		top = append(top, fmt.Sprintf("%s (%d)", u.Author, u.PostCount))
	}
	fmt.Fprintf(out, "%d authors, %d posts quoting others. Most active: %s\n\n",
		stats.UniqueAuthors, stats.PostsWithQuotes, strings.Join(top, ", "))

	summary, err := rt.archiver.Summarize(cmd.Context(), s, collection.Posts)
	if err != nil {
		if errors.Is(err, summarizer.ErrRateLimited) {
			return fmt.Errorf("the LLM provider is rate limiting requests, try again later: %w", err)
		}
		return err
	}

	fmt.Fprintln(out, summary)
	return nil
}
