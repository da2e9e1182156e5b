package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/roach88/momentum/internal/config"
	"github.com/roach88/momentum/internal/migrate"
)

// MigrateResult holds migration generation results for JSON output.
type MigrateResult struct {
	Name       string   `json:"name"`
	File       string   `json:"file,omitempty"`
	Operations []string `json:"operations"`
	Empty      bool     `json:"empty"`
}

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration tools",
	}
	cmd.AddCommand(newMigrateGenerateCommand(rootOpts))
	return cmd
}

func newMigrateGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name    string
		dialect string
		dbPath  string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "generate <config-dir>",
		Short: "Generate a migration from declared collections",
		Long: `Diff declared collections against a live database schema and generate a
reversible Go migration file.

Without --db the live schema is treated as empty, which produces the
initial migration. With --db the SQLite database at the given path is
introspected and only the delta is generated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateGenerate(rootOpts, cmd, args[0], name, dialect, dbPath, outDir)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "migration name (kebab-case)")
	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "target dialect (postgres|sqlite)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to introspect (optional)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write the migration file (default: stdout)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runMigrateGenerate(opts *RootOptions, cmd *cobra.Command, configDir, name, dialectStr, dbPath, outDir string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dialect := migrate.Dialect(dialectStr)
	if !dialect.Valid() {
		msg := fmt.Sprintf("unknown dialect %q", dialectStr)
		_ = formatter.Error(ErrCodeMigration, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	res, err := config.LoadDir(configDir)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
	}

	declared := make([]migrate.Table, 0, len(res.Collections))
	for _, col := range res.Collections {
		declared = append(declared, migrate.TableFor(col, dialect))
	}
	formatter.VerboseLog("Declared %d table(s) from %d collection(s)", len(declared), len(res.Collections))

	var live migrate.LiveSchema
	if dbPath != "" {
		db, err := sql.Open("sqlite3", dbPath)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "open database", err)
		}
		defer db.Close()

		live, err = migrate.IntrospectSQLite(cmd.Context(), db)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "introspect database", err)
		}
		formatter.VerboseLog("Introspected %d live table(s) from %s", len(live.Tables), dbPath)
	}

	diff := migrate.Diff(declared, live, dialect)
	source, err := migrate.GenerateMigrationFile(diff, migrate.FileOptions{
		Name:    name,
		Dialect: dialect,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeMigration, err.Error(), nil)
		return WrapExitError(ExitCommandError, "generate migration", err)
	}

	result := MigrateResult{
		Name:  name,
		Empty: diff.Empty(),
	}
	for _, op := range diff.Operations {
		result.Operations = append(result.Operations, op.Describe())
	}

	if outDir == "" {
		fmt.Fprint(cmd.OutOrStdout(), source)
		return nil
	}

	filename := fmt.Sprintf("%s_%s.go", time.Now().UTC().Format("20060102150405"), name)
	path := filepath.Join(outDir, filename)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		_ = formatter.Error(ErrCodeMigration, err.Error(), nil)
		return WrapExitError(ExitCommandError, "write migration", err)
	}
	result.File = path

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Wrote %s (%d operation(s))", path, len(diff.Operations)))
}
