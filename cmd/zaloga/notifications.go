package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/notify"
)

func (c *cli) notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "notifications", Short: "Read branch notifications"}

	var opts notify.ListOptions
	list := &cobra.Command{
		Use:   "list <branch>",
		Short: "List a branch's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			ns, err := a.inbox.List(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "TIME", "READ", "TITLE", "MESSAGE")
			for _, n := range ns {
				row(tw, n.ID, stamp(&n.CreatedAt), n.IsRead, n.Title, n.Message)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&opts.UnreadOnly, "unread", false, "only unread notifications")
	list.Flags().IntVar(&opts.Limit, "limit", 0, "at most this many")

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			if err := a.inbox.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notification %s marked as read.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, read)
	return cmd
}
