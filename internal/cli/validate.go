package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/rtmirror/rtmirror/internal/manifest"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateResult is the JSON payload for a validate run.
type ValidateResult struct {
	Path    string                     `json:"path"`
	Valid   bool                       `json:"valid"`
	Watches int                        `json:"watches"`
	Errors  []manifest.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a watch manifest",
		Long: `Validate a watch manifest against the schema and semantic rules
without connecting to any remote.

Exit codes:
  0 - Manifest is valid
  1 - Validation failed
  2 - Command error (file not found)

Examples:
  rtmirror validate ./watches.yaml
  rtmirror validate ./watches.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	m, err := manifest.Load(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return WrapExitError(ExitCommandError, "failed to read manifest", err)
		}

		var verrs manifest.ValidationErrors
		result := ValidateResult{Path: path, Valid: false}
		if errors.As(err, &verrs) {
			result.Errors = verrs
		}

		if opts.Format == "json" {
			if jsonErr := out.Error("E_MANIFEST", err.Error(), result); jsonErr != nil {
				return jsonErr
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", path)
			if len(verrs) > 0 {
				for _, e := range verrs {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e.Error())
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", err.Error())
			}
		}
		return NewExitError(ExitFailure, "manifest validation failed")
	}

	if opts.Format == "json" {
		return out.Success(ValidateResult{Path: path, Valid: true, Watches: len(m.Watches)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d watch(es)\n", path, len(m.Watches))
	return nil
}
