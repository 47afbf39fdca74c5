package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var quotesJoined bool

var postsCmd = &cobra.Command{
	Use:   "posts <topic-url>",
	Short: "Print the posts of the most recent pages of a topic as JSON",
	Long: `Resolve the last N pages of a topic, extract every post and print them as a JSON array
with the keys author, post_text, quoted_posts and link.

Examples:
  nairaland-archiver posts https://www.nairaland.com/1234567/some-topic
  nairaland-archiver posts --pages 3 --quotes-joined https://www.nairaland.com/1234567/some-topic`,
	Args: cobra.ExactArgs(1),
	RunE: runPosts,
}

func init() {
	rootCmd.AddCommand(postsCmd)

	postsCmd.Flags().BoolVar(&quotesJoined, "quotes-joined", false, `render quoted_posts as one " || " separated string`)
	viper.BindPFlag("posts.quotes-joined", postsCmd.Flags().Lookup("quotes-joined"))
}

// joinedPost is the flat export shape of a post.
type joinedPost struct {
	Author string `json:"author"`
	Text   string `json:"post_text"`
	Quotes string `json:"quoted_posts"`
	Link   string `json:"link"`
}

func runPosts(cmd *cobra.Command, args []string) error {
	topic, err := topicArg(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	collection := rt.archiver.Collect(cmd.Context(), topic, rt.config.PageCount)

	var out any = collection.Posts
	if viper.GetBool("posts.quotes-joined") {
		flat := make([]joinedPost, 0, len(collection.Posts))
		for _, p := range collection.Posts {
			flat = append(flat, joinedPost{Author: p.Author, Text: p.Text, Quotes: p.JoinedQuotes(), Link: p.Link})
		}
		out = flat
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode posts: %w", err)
	}
	return nil
}
