package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the wapbox daemon's health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var status map[string]string
			if err := getJSON("/healthz", &status); err != nil {
				return fmt.Errorf("check health: %w", err)
			}
			fmt.Println(status["status"])
			return nil
		},
	}
}
