package cli

import (
	"github.com/kolah/speclens/internal/config"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "speclens",
		Short:         "SpecLens - browse OpenAPI documents and try their endpoints",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindFlags(root)
	root.AddCommand(
		newServeCmd(),
		newEndpointsCmd(),
		newTagsCmd(),
		newExampleCmd(),
		newTryCmd(),
		newHistoryCmd(),
		newCheckCmd(),
	)

	return root
}
