package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/slotdesk/libs/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "booking-service",
		Short:         "Multi-tenant appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(healthcheckCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
