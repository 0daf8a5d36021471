package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SPEAKER_TRACK/go-backend/internal/config"
	"SPEAKER_TRACK/go-backend/internal/handlers"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speaker-track",
		Short: "Lip-motion active speaker tracking with shot-boundary signals",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.SetupLogging(config.LoadConfig())
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd(), replayCmd(), hashTokenCmd())
	return cmd
}

func hashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to put in API_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := handlers.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
