package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtmirror/rtmirror/internal/journal"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Journal string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sync sessions",
		Long: `List the sessions recorded in a journal, most recent first.

Examples:
  rtmirror sessions --journal ./mirror.db
  rtmirror sessions --journal ./mirror.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	sessions, err := j.Sessions(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return out.Success(sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return nil
	}

	w := cmd.OutOrStdout()
	for _, s := range sessions {
		started := time.UnixMilli(s.StartedAt).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%s  %s  %d action(s)", s.ID, started, s.Actions)
		if s.RemoteURL != "" {
			fmt.Fprintf(w, "  %s", s.RemoteURL)
		}
		fmt.Fprintln(w)
	}
	return nil
}
