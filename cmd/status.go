package cmd

import (
	"fmt"
	"io"

	"github.com/davidroman0O/nairaland-archiver/internal/metadata"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [topic-id...]",
	Short: "Check archiving status of topics",
	Long: `Check the archiving status and metadata of one or more archived topics.

Examples:
  # Check status of a specific topic
  nairaland-archiver status 1234567

  # List all archived topics
  nairaland-archiver status --list`,
	RunE: runStatus,
}

var listAll bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&listAll, "list", false, "list all archived topics")
}

func runStatus(cmd *cobra.Command, args []string) error {
	metadataManager := metadata.NewManager(viper.GetString("output"))
	out := cmd.OutOrStdout()

	if listAll {
		return listArchivedTopics(out, metadataManager)
	}

	if len(args) == 0 {
		return fmt.Errorf("provide topic IDs to check status, or use --list to see all archived topics")
	}

	for _, topicID := range args {
		if err := showTopicStatus(out, metadataManager, topicID); err != nil {
			fmt.Fprintf(out, "Error checking topic %s: %v\n", topicID, err)
		}
	}

	return nil
}

func showTopicStatus(out io.Writer, metadataManager *metadata.Manager, topicID string) error {
	meta, err := metadataManager.LoadMetadata(topicID, "", "")
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}
	if meta.URL == "" {
		fmt.Fprintf(out, "Topic %s has not been archived\n", topicID)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Topic " + topicID)
	t.AppendRows([]table.Row{
		{"URL", meta.URL},
		{"Status", meta.Status},
		{"Created", humanize.Time(meta.CreatedAt)},
		{"Last updated", humanize.Time(meta.LastUpdated)},
		{"Last page", meta.LastPage},
		{"Posts saved", humanize.Comma(int64(meta.PostsCount))},
	})
	if meta.Stats != nil {
		t.AppendRow(table.Row{"Authors", humanize.Comma(int64(meta.Stats.UniqueAuthors))})
		t.AppendRow(table.Row{"Posts with quotes", humanize.Comma(int64(meta.Stats.PostsWithQuotes))})
		for i, u := range meta.Stats.Top(5) {
			t.AppendRow(table.Row{fmt.Sprintf("Top poster #%d", i+1), fmt.Sprintf("%s (%d)", u.Author, u.PostCount)})
		}
	}
	if meta.LastError != "" {
		t.AppendRow(table.Row{"Last error", meta.LastError})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	return nil
}

func listArchivedTopics(out io.Writer, metadataManager *metadata.Manager) error {
	topics, err := metadataManager.ListTopics()
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		fmt.Fprintln(out, "No archived topics found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Topic", "Slug", "Status", "Posts", "Last page", "Updated"})

	for _, topicID := range topics {
		meta, err := metadataManager.LoadMetadata(topicID, "", "")
		if err != nil {
			t.AppendRow(table.Row{topicID, "", "ERROR: " + err.Error(), "", "", ""})
			continue
		}

		status := meta.Status
		switch status {
		case metadata.StatusCompleted:
			status = "✓ " + status
		case metadata.StatusFailed:
			status = "✗ " + status
		default:
			status = "⧗ " + status
		}

		t.AppendRow(table.Row{
			topicID,
			meta.Slug,
			status,
			humanize.Comma(int64(meta.PostsCount)),
			meta.LastPage,
			humanize.Time(meta.LastUpdated),
		})
	}

	t.AppendFooter(table.Row{"Total", "", "", len(topics), "", ""})
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
