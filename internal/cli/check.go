package cli

import (
	"fmt"

	"github.com/kolah/speclens/internal/loader"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Check whether a remote spec changed since the given validators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			etag, _ := cmd.Flags().GetString("etag")
			lastModified, _ := cmd.Flags().GetString("last-modified")

			res, err := a.fetcher.CheckUpdate(cmd.Context(), loader.UpdateRequest{
				URL:          args[0],
				ETag:         etag,
				LastModified: lastModified,
			})
			if err != nil {
				return err
			}

			if !res.HasUpdate {
				a.out.Success("Not modified")
				return nil
			}
			msg := "Update available"
			if res.NewETag != "" {
				msg += fmt.Sprintf(" (etag %s)", res.NewETag)
			}
			if res.NewLastModified != "" {
				msg += fmt.Sprintf(" (last modified %s)", res.NewLastModified)
			}
			a.out.Warning(msg)
			return nil
		},
	}

	cmd.Flags().String("etag", "", "ETag of the cached copy")
	cmd.Flags().String("last-modified", "", "Last-Modified of the cached copy")

	return cmd
}
