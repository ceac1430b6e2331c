// Package commands implements the wapboxctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// httpTimeout bounds every admin-endpoint request; the daemon being
// inspected is always local or LAN, so a hung request means something
// is actually wrong rather than merely slow.
const httpTimeout = 5 * time.Second

var (
	// httpClient is the client used for every admin-endpoint request.
	httpClient = &http.Client{Timeout: httpTimeout}

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the wapbox admin endpoint address (host:port).
	serverAddr string
)

// rootCmd is the top-level cobra command for wapboxctl.
var rootCmd = &cobra.Command{
	Use:   "wapboxctl",
	Short: "CLI client for the wapbox daemon's admin endpoint",
	Long:  "wapboxctl queries the wapbox daemon's read-only JSON admin endpoint to inspect live sessions and methods.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:9100",
		"wapbox admin endpoint address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
