package main

import (
	"fmt"
	"time"

	"blackjack/internal/config"
	"blackjack/internal/ports/ws"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <player-id>",
		Short: "Mint a session token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envFiles, _ := cmd.Flags().GetStringSlice("env-file")
			env, err := config.LoadServerEnv(envFiles...)
			if err != nil {
				return err
			}
			verifier, err := ws.NewTokenVerifier(env.JWTSecret)
			if err != nil {
				return err
			}
			tok, err := verifier.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
