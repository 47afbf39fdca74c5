package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/davidroman0O/nairaland-archiver/internal/archiver"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var maxConcurrency int

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <topic-url> [topic-url...]",
	Short: "Archive the most recent pages of one or more topics",
	Long: `Archive Nairaland topics with rate limited fetching and metadata tracking.
Each topic is written to <output>/<topic-id>/ as posts.json, topic.db and .metadata.json.
Posts already archived are not written again.

Examples:
  # Archive the last two pages of a topic
  nairaland-archiver archive https://www.nairaland.com/1234567/some-topic

  # Archive several topics, five pages each
  nairaland-archiver archive --pages 5 https://www.nairaland.com/1234567/a https://www.nairaland.com/7654321/b

  # Archive to a specific directory
  nairaland-archiver archive --output /path/to/archive https://www.nairaland.com/1234567/some-topic`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().IntVarP(&maxConcurrency, "concurrency", "c", archiver.DefaultMaxConcurrency, "maximum topics archived at once")

	viper.BindPFlag("concurrency", archiveCmd.Flags().Lookup("concurrency"))
}

func runArchive(cmd *cobra.Command, args []string) error {
	for _, topic := range args {
		if err := archiver.ValidateTopicURL(topic); err != nil {
			return err
		}
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.log.Debug(fmt.Sprintf("Archiving %d topics to %s", len(args), rt.config.OutputDir))

	results := rt.archiver.ArchiveTopics(cmd.Context(), args)

	urls := make([]string, 0, len(results))
	for u := range results {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Topic", "Pages", "Posts found", "New posts", "Result"})

	failed := 0
	for _, u := range urls {
		result := results[u]
		status := "OK " + filepath.Join(rt.config.OutputDir, result.TopicID)
		if result.Error != nil {
			status = "FAILED - " + result.Error.Error()
			failed++
		}
		t.AppendRow(table.Row{
			u,
			result.Pages,
			humanize.Comma(int64(result.PostsFound)),
			humanize.Comma(int64(result.PostsSaved)),
			status,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d topics failed", failed, len(urls))
	}
	return nil
}
