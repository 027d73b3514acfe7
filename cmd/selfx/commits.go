package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"selfx-go/internal/selfx"
)

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "Read commits of a repository",
}

type commitView struct {
	Sha      string          `json:"sha"`
	Author   string          `json:"author"`
	Comments []selfx.Comment `json:"comments,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

func printCommit(cmd *cobra.Command, c selfx.Commit) error {
	view := commitView{Sha: c.ShaRef(), Author: c.Author()}
	if withComments, _ := cmd.Flags().GetBool("comments"); withComments {
		comments, err := c.Comments().All(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing comments: %w", err)
		}
		view.Comments = comments
	}
	if jsonOutput() {
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			view.Raw = c.JSON()
		}
		return printJSON(view)
	}

	fmt.Printf("%s  %s\n", view.Sha, view.Author)
	for _, cm := range view.Comments {
		fmt.Printf("    %s: %s\n", cm.Author, cm.Body)
	}
	return nil
}

var commitsGetCmd = &cobra.Command{
	Use:   "get REPO REF",
	Short: "Show one commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "GetCommit")
		if err != nil {
			return err
		}
		defer a.Close()

		commit, err := a.Commit(cmd.Context(), viper.GetString("provider"), args[0], args[1])
		if err != nil {
			return err
		}
		if commit == nil {
			fmt.Fprintf(os.Stderr, "Commit %s not found in %s.\n", args[1], args[0])
			return nil
		}
		return printCommit(cmd, commit)
	},
}

var commitsLatestCmd = &cobra.Command{
	Use:   "latest REPO",
	Short: "Show the most recent commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "LatestCommit")
		if err != nil {
			return err
		}
		defer a.Close()

		commit, err := a.LatestCommit(cmd.Context(), viper.GetString("provider"), args[0])
		if err != nil {
			return err
		}
		return printCommit(cmd, commit)
	},
}

var commitsCommentCmd = &cobra.Command{
	Use:   "comment REPO REF BODY",
	Short: "Comment on a commit",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CommentCommit")
		if err != nil {
			return err
		}
		defer a.Close()

		commit, err := a.Commit(cmd.Context(), viper.GetString("provider"), args[0], args[1])
		if err != nil {
			return err
		}
		if commit == nil {
			return fmt.Errorf("commit %s of %s: %w", args[1], args[0], selfx.ErrNotFound)
		}
		comment, err := commit.Comments().Post(cmd.Context(), args[2])
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(comment)
		}
		fmt.Printf("Commented on %s as %s\n", commit.ShaRef(), comment.Author)
		return nil
	},
}

var commitsWatchCmd = &cobra.Command{
	Use:   "watch REPO",
	Short: "Print the latest commit whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		a, err := newApp(cmd.Context(), "WatchCommits")
		if err != nil {
			return err
		}
		defer a.Close()

		errc := make(chan error, 1)
		go func() { errc <- a.ServeMetrics(cmd.Context()) }()

		err = a.WatchCommits(cmd.Context(), viper.GetString("provider"), args[0], interval, func(c selfx.Commit) error {
			fmt.Printf("%s  %s  %s\n", time.Now().Format("15:04:05"), c.ShaRef(), c.Author())
			return nil
		})
		if err != nil {
			return err
		}
		return <-errc
	},
}

func init() {
	for _, c := range []*cobra.Command{commitsGetCmd, commitsLatestCmd} {
		c.Flags().Bool("comments", false, "include the commit's comments")
		c.Flags().Bool("raw", false, "include the provider's JSON (with --json)")
	}
	commitsWatchCmd.Flags().Duration("interval", time.Minute, "polling interval")

	commitsCmd.AddCommand(commitsGetCmd)
	commitsCmd.AddCommand(commitsLatestCmd)
	commitsCmd.AddCommand(commitsCommentCmd)
	commitsCmd.AddCommand(commitsWatchCmd)
}
