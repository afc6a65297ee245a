package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ytbs/bettersearch/internal/tracker"
)

func newTrackerCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Query the issue tracker with the configured credentials",
	}

	client := func(cmd *cobra.Command) (*tracker.Client, error) {
		cfg, err := loadConfig(cmd, *cfgFile, nil)
		if err != nil {
			return nil, err
		}
		if !cfg.Tracker.Configured() {
			return nil, errors.New("tracker credentials missing: set YTBS_TRACKER_TOKEN and YTBS_TRACKER_ORG_ID")
		}
		return newTrackerClient(cfg.Tracker), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "queues",
		Short: "List queue keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(cmd)
			if err != nil {
				return err
			}
			queues, err := c.ListQueues(cmd.Context())
			if err != nil {
				return err
			}
			for _, q := range queues {
				fmt.Fprintln(cmd.OutOrStdout(), q.Key)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "issues [QUEUE...]",
		Short: "List issue keys, optionally restricted to queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(cmd)
			if err != nil {
				return err
			}
			issues, err := c.ListIssues(cmd.Context(), args)
			if err != nil {
				return err
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", issue.Key, issue.Status.Key, issue.Summary)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "comments ISSUE",
		Short: "List comment ids of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(cmd)
			if err != nil {
				return err
			}
			comments, err := c.ListComments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, comment := range comments {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", comment.ID, comment.Author.Display)
			}
			return nil
		},
	})

	cmd.AddCommand(newTrackerSyncCmd(client))
	return cmd
}

// newTrackerSyncCmd prints every synced issue as one JSON object per line.
func newTrackerSyncCmd(client func(*cobra.Command) (*tracker.Client, error)) *cobra.Command {
	var (
		since   string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "sync [QUEUE...]",
		Short: "Fetch issues with their comments as index-ready JSON lines",
		Long: "Without --since every issue of the given queues (all queues when none are named) is fetched.\n" +
			"With --since only issues updated at or after that RFC3339 time are fetched, across all queues.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sinceTime time.Time
			if since != "" {
				if len(args) > 0 {
					return errors.New("--since cannot be combined with queue arguments")
				}
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return errors.Wrapf(err, "parse --since %q", since)
				}
				sinceTime = t
			}

			c, err := client(cmd)
			if err != nil {
				return err
			}

			var (
				indexed []tracker.IndexedIssue
				result  *tracker.SyncResult
			)
			if sinceTime.IsZero() {
				indexed, result, err = c.InitialSync(cmd.Context(), args, workers)
			} else {
				indexed, result, err = c.UpdateSync(cmd.Context(), sinceTime, workers)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, issue := range indexed {
				if err := enc.Encode(issue); err != nil {
					return errors.Wrap(err, "write issue")
				}
			}
			if len(result.Errors) > 0 {
				slog.Warn("Some comments could not be fetched", "failed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only issues updated at or after this RFC3339 time")
	cmd.Flags().IntVar(&workers, "workers", tracker.DefaultSyncWorkers, "concurrent comment fetches")
	return cmd
}
