package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
	Session string
	Verify  bool
}

// ReplayResult holds the replay outcome for one session.
type ReplayResult struct {
	Session  string `json:"session"`
	Actions  int    `json:"actions"`
	Verified bool   `json:"verified,omitempty"`
	BadSeq   int64  `json:"bad_seq,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded session's actions",
		Long: `Re-emit a recorded session's actions in their original order, exactly
as they were dispatched during the live run. With --verify, every stored
payload is additionally checked to round-trip through the canonical encoding.

Exit codes:
  0 - Replay succeeded (and verification passed, if requested)
  1 - Verification failed
  2 - Command error (journal not found)

Examples:
  rtmirror replay --journal ./mirror.db --session 018f...
  rtmirror replay --journal ./mirror.db --session 018f... --verify --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplaySession(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to replay (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify payloads round-trip canonically")

	return cmd
}

func runReplaySession(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	printer := newActionPrinter(cmd.OutOrStdout(), opts.Format)
	var sink action.Dispatcher = printer
	if opts.Format == "json" && opts.Verify {
		// Keep stdout parseable: verification output replaces the trace.
		sink = action.Discard
	}

	n, err := j.Replay(ctx, opts.Session, sink)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay session", err)
	}

	result := ReplayResult{Session: opts.Session, Actions: n}

	if opts.Verify {
		badSeq, err := j.Verify(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to verify session", err)
		}
		result.Verified = badSeq == 0
		result.BadSeq = badSeq

		out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		if badSeq != 0 {
			msg := fmt.Sprintf("payload at seq %d does not round-trip", badSeq)
			if opts.Format == "json" {
				if jsonErr := out.Error("E_VERIFY", msg, result); jsonErr != nil {
					return jsonErr
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", msg)
			}
			return NewExitError(ExitFailure, "verification failed")
		}
		if opts.Format == "json" {
			return out.Success(result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d action(s) replayed, all payloads canonical\n", n)
		return nil
	}

	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "%d action(s) replayed\n", n)
	}
	return nil
}
