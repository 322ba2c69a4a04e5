package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/journal"
	"github.com/rtmirror/rtmirror/internal/manifest"
	"github.com/rtmirror/rtmirror/internal/populate"
	"github.com/rtmirror/rtmirror/internal/watch"
	"github.com/rtmirror/rtmirror/internal/wsremote"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Remote  string
	Journal string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Attach the manifest's watches and stream actions",
		Long: `Start a sync session: dial the remote store, attach every watch the
manifest declares, and print each resulting action to stdout as it is
dispatched. With --journal, actions are also recorded for later replay.

Example:
  rtmirror run ./watches.yaml
  rtmirror run ./watches.yaml --remote ws://localhost:9090/sync --journal ./mirror.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Remote, "remote", "", "remote store URL (overrides the manifest)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (optional)")

	return cmd
}

func runSync(opts *RunOptions, manifestPath string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("loading manifest", "path", manifestPath)
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid manifest", err)
	}

	remoteURL := opts.Remote
	if remoteURL == "" {
		remoteURL = m.Remote.URL
	}
	if remoteURL == "" {
		return NewExitError(ExitCommandError, "no remote URL: set remote.url in the manifest or pass --remote")
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	slog.Info("dialing remote", "url", remoteURL)
	client, err := wsremote.Dial(ctx, remoteURL, slog.Default())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to dial remote", err)
	}
	defer client.Close()

	dispatcher := action.Dispatcher(newActionPrinter(cmd.OutOrStdout(), opts.Format))

	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()

		session := journal.NewSessionID()
		if err := j.BeginSession(ctx, session, remoteURL, manifestPath, time.Now()); err != nil {
			return WrapExitError(ExitCommandError, "failed to begin session", err)
		}
		slog.Info("journaling session", "session", session, "path", opts.Journal)
		dispatcher = action.Tee(dispatcher, j.Recorder(session, nil, slog.Default()))
	}

	// Listener callbacks enqueue; a single drain loop feeds the printer and
	// journal so output order matches dispatch order.
	queue := action.NewQueue()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		_ = queue.Run(context.Background(), dispatcher)
	}()

	reg := watch.New(client, queue, watch.Options{
		Resolver: populate.NewRemoteResolver(client),
	})

	reqs := m.Requests()
	slog.Info("attaching watches", "count", len(reqs))
	if err := reg.WatchAll(ctx, reqs); err != nil {
		return WrapExitError(ExitFailure, "failed to attach watches", err)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintln(cmd.ErrOrStderr(), "Mirror running. Press Ctrl-C to stop.")
	<-ctx.Done()

	reg.UnwatchAll(reqs)
	queue.Close()
	<-drained
	slog.Info("mirror stopped",
		"suppressed_duplicates", reg.Suppressed(),
		"active_listeners", reg.ActiveListeners())
	return nil
}

// actionPrinter streams each dispatched action to w: canonical JSON lines in
// json format, a compact summary otherwise.
type actionPrinter struct {
	w      io.Writer
	format string
}

func newActionPrinter(w io.Writer, format string) *actionPrinter {
	return &actionPrinter{w: w, format: format}
}

func (p *actionPrinter) Dispatch(a action.Action) {
	if p.format == "json" {
		line, err := a.MarshalCanonical()
		if err != nil {
			slog.Error("marshal action failed", "type", a.Type, "path", a.Path, "error", err)
			return
		}
		fmt.Fprintf(p.w, "%s\n", line)
		return
	}

	switch {
	case a.Error != "":
		fmt.Fprintf(p.w, "%-18s %s  error=%s\n", a.Type, a.Path, a.Error)
	case a.Source != "":
		fmt.Fprintf(p.w, "%-18s %s  source=%s\n", a.Type, a.Path, a.Source)
	default:
		fmt.Fprintf(p.w, "%-18s %s\n", a.Type, a.Path)
	}
}
