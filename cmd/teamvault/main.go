package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Optional .env for local development; a missing file is not an error.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "teamvault",
		Short:         "Team and match data file sharing service",
		Version:       version,
		SilenceErrors: false,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newServeCommand(&cfgPath))
	cmd.AddCommand(newSweepCommand(&cfgPath))
	return cmd
}
