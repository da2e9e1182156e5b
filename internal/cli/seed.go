package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/momentum/internal/access"
	"github.com/roach88/momentum/internal/config"
	"github.com/roach88/momentum/internal/engine"
	"github.com/roach88/momentum/internal/seed"
	"github.com/roach88/momentum/internal/storage"
	"github.com/roach88/momentum/internal/storage/sqlite"
)

// SeedResult holds seed run results for JSON output.
type SeedResult struct {
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Documents map[string]string `json:"documents,omitempty"`
}

// NewSeedCommand creates the seed command group.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Idempotent data seeding",
	}
	cmd.AddCommand(newSeedRunCommand(rootOpts))
	return cmd
}

func newSeedRunCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		file   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "run <config-dir>",
		Short: "Apply a seed file against a database",
		Long: `Apply a YAML seed file through the engine. Safe to re-run: seeds already
applied with an unchanged checksum are skipped, changed seeds update the
document they own, and document ids never change once assigned.

With --db the seeds land in the SQLite database at the given path;
without it an in-memory store is used, which is only useful for a dry
run of the seed file itself.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, cmd, args[0], file, dbPath)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "seed file (YAML)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: in-memory)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(opts *RootOptions, cmd *cobra.Command, configDir, file, dbPath string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	res, err := config.LoadDir(configDir)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
	}

	seeds, err := seed.LoadFile(file)
	if err != nil {
		_ = formatter.Error(ErrCodeSeed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load seed file", err)
	}
	formatter.VerboseLog("Loaded %d seed(s) from %s", len(seeds), file)

	var adapter storage.Adapter
	if dbPath != "" {
		sa, err := sqlite.Open(dbPath)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "open database", err)
		}
		defer sa.Close()
		adapter = sa
	} else {
		adapter = storage.NewMemory()
	}

	eng, err := engine.New(adapter, res.Collections, res.Globals)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "build engine", err)
	}

	// Seeds run as an admin: they are deployment data, not user writes.
	eng = eng.WithContext(&access.User{ID: "seed", Admin: true})

	driver := seed.NewDriver(eng, seed.NewTracker(adapter))
	report, err := driver.Apply(cmd.Context(), seeds)
	if err != nil {
		_ = formatter.Error(ErrCodeSeed, err.Error(), nil)
		return WrapExitError(ExitFailure, "apply seeds", err)
	}

	result := SeedResult{
		Created:   report.Created,
		Updated:   report.Updated,
		Unchanged: report.Unchanged,
		Documents: report.Documents,
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Seeded: %d created, %d updated, %d unchanged",
		report.Created, report.Updated, report.Unchanged))
}
