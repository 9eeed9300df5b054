package migratecli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dmitrijs2005/accounts/internal/checksum"
	"github.com/dmitrijs2005/accounts/internal/server/migrations"
	"github.com/dmitrijs2005/accounts/internal/server/migrator"
	"github.com/spf13/cobra"
)

func (c *CLI) newUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations and record their checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rm, err := newRepoManager(c.logger)
			if err != nil {
				return err
			}
			return c.withDB(cmd.Context(), func(db *sql.DB) error {
				applied, err := rm.RunMigrations(cmd.Context(), db, c.locations()...)
				for _, e := range applied {
					status := "applied"
					if !e.Success {
						status = "failed"
					}
					fmt.Fprintf(c.out, "%s\t%s\t%d\n", status, e.Script, e.Checksum)
				}
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(c.out, "no pending migrations")
				}
				return nil
			})
		},
	}
}

func (c *CLI) newVerifyCmd() *cobra.Command {
	var (
		pattern     string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare embedded migration checksums with the schema history",
		Long: `Recompute the checksum of every migration script in the configured
locations and compare it with the value recorded when it was applied.

The number of successful migrations in the schema history must equal
--expected; a negative value means the number of scripts found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := migrations.Locations(migrations.FS, c.locations()...)
			if err != nil {
				return err
			}
			rm, err := newRepoManager(c.logger)
			if err != nil {
				return err
			}

			return c.withDB(cmd.Context(), func(db *sql.DB) error {
				v := migrator.NewVerifier(fsys, rm.History(db),
					migrator.WithPattern(pattern),
					migrator.WithConcurrency(concurrency),
					migrator.WithLogger(c.logger),
				)

				expected := c.v.GetInt(keyExpected)
				if expected < 0 {
					scripts, err := v.Scripts()
					if err != nil {
						return err
					}
					expected = len(scripts)
				}

				report, err := v.Verify(cmd.Context(), expected)
				if err != nil {
					return err
				}

				for _, s := range report.Scripts {
					if s.Err != nil {
						fmt.Fprintf(c.out, "FAILED\t%s\t%v\n", s.Script, s.Err)
						continue
					}
					fmt.Fprintf(c.out, "OK\t%s\t%d\n", s.Script, s.Computed)
				}
				fmt.Fprintf(c.out, "successful migrations: %d (expected %d)\n", report.Successful, report.Expected)

				if err := report.Err(); err != nil {
					return fmt.Errorf("%w: %w", errVerification, err)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int(keyExpected, -1, "expected number of successful migrations")
	cmd.Flags().StringVar(&pattern, "pattern", migrator.DefaultPattern, "script file name pattern")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "scripts checked in parallel")
	_ = c.v.BindPFlag(keyExpected, cmd.Flags().Lookup(keyExpected))

	return cmd
}

func (c *CLI) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the recorded schema history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rm, err := newRepoManager(c.logger)
			if err != nil {
				return err
			}
			return c.withDB(cmd.Context(), func(db *sql.DB) error {
				entries, err := rm.History(db).List(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "RANK\tVERSION\tSCRIPT\tCHECKSUM\tINSTALLED ON\tTIME\tSUCCESS")
				for _, e := range entries {
					fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%s\t%t\n",
						e.InstalledRank, e.Version, e.Script, e.Checksum,
						e.InstalledOn.UTC().Format("2006-01-02 15:04:05"), e.ExecutionTime, e.Success)
				}
				return w.Flush()
			})
		},
	}
}

func (c *CLI) newChecksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum FILE...",
		Short: "Print the checksum of migration files on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				sum, err := checksumFile(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%d\t%s\n", sum, name)
			}
			return nil
		},
	}
}

func checksumFile(name string) (int32, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, &checksum.ReadError{Script: filepath.Base(name), Err: err}
	}
	defer f.Close()
	return checksum.Compute(filepath.Base(name), f)
}
