package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect live WSP sessions",
	}

	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionMethodsCmd())

	return cmd
}

func sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all live WSP sessions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var sessions []sessionRow
			if err := getJSON("/sessions", &sessions); err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out, err := formatSessions(sessions, outputFormat)
			if err != nil {
				return fmt.Errorf("format sessions: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

func sessionMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods <session-id>",
		Short: "List the in-flight methods of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("parse session id %q: %w", args[0], err)
			}

			var methods []methodRow
			if err := getJSON(fmt.Sprintf("/sessions/%d/methods", id), &methods); err != nil {
				return fmt.Errorf("list methods for session %d: %w", id, err)
			}

			out, err := formatMethods(methods, outputFormat)
			if err != nil {
				return fmt.Errorf("format methods: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}
