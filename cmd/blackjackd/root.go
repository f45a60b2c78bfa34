package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blackjackd",
		Short: "Blackjack table server",
		Long: `blackjackd runs multi-table blackjack sessions over websockets.

Settings come from BLACKJACK_* environment variables, optionally loaded from
a dotenv file. Table rules come from the game config file.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files to load before reading the environment")

	root.AddCommand(newServeCmd(), newTokenCmd())
	return root
}
