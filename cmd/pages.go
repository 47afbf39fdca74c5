package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <topic-url>",
	Short: "Print the URLs of the most recent pages of a topic",
	Long: `Resolve the last N pages of a topic and print one page URL per line, oldest first.

Examples:
  nairaland-archiver pages https://www.nairaland.com/1234567/some-topic
  nairaland-archiver pages --pages 5 https://www.nairaland.com/1234567/some-topic/12`,
	Args: cobra.ExactArgs(1),
	RunE: runPages,
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	topic, err := topicArg(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, page := range rt.archiver.ResolvePages(cmd.Context(), topic, rt.config.PageCount) {
		fmt.Fprintln(cmd.OutOrStdout(), page)
	}
	return nil
}
