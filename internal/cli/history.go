package cli

import "github.com/spf13/cobra"

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the request history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent requests, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}
	list.Flags().IntP("limit", "n", 20, "Number of entries to show")

	// "speclens history" behaves like "speclens history list".
	cmd.RunE = runHistoryList
	cmd.Flags().IntP("limit", "n", 20, "Number of entries to show")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			sess, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			entry, err := sess.ws.HistoryEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return a.out.JSON(entry)
			}
			a.out.HistoryDetail(entry)
			return nil
		},
	}
	show.Flags().Bool("json", false, "Print as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			sess, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.ws.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			a.out.Success("History cleared")
			return nil
		},
	}

	cmd.AddCommand(list, show, clearCmd)
	return cmd
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	sess, err := a.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := sess.ws.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	a.out.HistoryList(entries)
	return nil
}
