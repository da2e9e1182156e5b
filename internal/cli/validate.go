package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/momentum/internal/config"
)

// ValidationResult holds validation results for JSON output. Failures are
// reported through the error envelope, not here: loading stops at the first
// positioned error, so a result only ever describes a valid config.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Collections []string `json:"collections,omitempty"`
	Globals     []string `json:"globals,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate collection and global declarations",
		Long: `Validate CUE collection and global declarations without starting an engine.

Checks slug patterns, field types, duplicate field names, and per-type
constraints such as select options and relationship targets.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, configDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	res, err := config.LoadDir(configDir)
	if err != nil {
		var loadErr *config.LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(ErrCodeValidation, loadErr.Error(), nil)
			return NewExitError(ExitFailure, loadErr.Error())
		}
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, configDir)

	result := ValidationResult{Valid: true}
	for _, col := range res.Collections {
		formatter.VerboseLog("Validated collection: %s (%d fields)", col.Slug, len(col.Fields))
		result.Collections = append(result.Collections, col.Slug)
	}
	for _, g := range res.Globals {
		formatter.VerboseLog("Validated global: %s", g.Slug)
		result.Globals = append(result.Globals, g.Slug)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Valid: %d collection(s), %d global(s)",
		len(result.Collections), len(result.Globals)))
}
