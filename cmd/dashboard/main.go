package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/meghaexpress/hub-dashboard/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Megha Express hub dashboard",
		Long: `The hub dashboard serves the account portal: sign-in and sign-up
forms, the protected dashboard, and the route guard that keeps
signed-out visitors away from private pages.

Configuration is read from dashboard.yaml (or --config), then .env,
then DASHBOARD_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default ./dashboard.yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		routeCmd(&configPath),
		configCmd(&configPath),
		explainCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
