package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionInfo mirrors internal/admin's /version JSON shape.
type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wapbox daemon's build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var v versionInfo
			if err := getJSON("/version", &v); err != nil {
				return fmt.Errorf("get version: %w", err)
			}
			fmt.Printf("wapbox %s\n", v.Version)
			fmt.Printf("  commit: %s\n", v.GitCommit)
			fmt.Printf("  built:  %s\n", v.BuildDate)
			return nil
		},
	}
}
