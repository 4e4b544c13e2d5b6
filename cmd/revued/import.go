package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"revue/internal/catalog"
	"revue/internal/config"
	"revue/internal/csvimport"
	"revue/internal/review"
	"revue/internal/store"
	"revue/internal/user"
)

// newImportCmd runs the whole CSV pipeline offline: parse, match against the
// catalog, group per product and commit the matched groups. Imported reviews
// are owned by the account given with --user.
func newImportCmd(loadConfig func() (config.Config, *zap.Logger, error)) *cobra.Command {
	var file string
	var userEmail string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a review CSV file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			users := user.NewStore(db, cfg.BcryptCost, cfg.TestAccountSuffix)
			owner, err := users.GetByEmail(ctx, userEmail)
			if err != nil {
				return fmt.Errorf("resolve import owner %q: %w", userEmail, err)
			}

			parser := csvimport.Parser{
				OnError: func(kind csvimport.ErrorKind, row csvimport.RawRow) {
					if row != nil {
						log.Warn("row rejected",
							zap.String("kind", string(kind)),
							zap.String("row", row.String()))
					}
				},
			}
			parsed, err := parser.Parse(data)
			var rowErr *csvimport.RowError
			if errors.As(err, &rowErr) {
				return fmt.Errorf("no importable rows in %s: %s", file, rowErr.Kind)
			}
			if err != nil {
				return err
			}
			log.Info("file parsed",
				zap.Int("candidates", len(parsed.Candidates)),
				zap.Int("rejected", len(parsed.Unrecognized)))

			products := catalog.NewStore(db, log)
			links, err := csvimport.Match(ctx, products, parsed.Candidates)
			if err != nil {
				return err
			}
			grouping := csvimport.GroupByProduct(links)
			log.Info("candidates matched",
				zap.Int("total", grouping.Total()),
				zap.Int("importable", grouping.ImportableCount()),
				zap.Int("unmatched", grouping.UnmatchedCount()))

			if dryRun {
				return nil
			}
			exec := csvimport.Executor{
				Reviews: review.NewStore(db, log),
				Log:     log,
			}
			result, err := exec.Run(ctx, grouping, owner.UserID)
			if err != nil {
				return fmt.Errorf("committed %d reviews before failing: %w", result.ImportedCount, err)
			}
			log.Info("import finished", zap.Int("imported", result.ImportedCount))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	cmd.Flags().StringVar(&userEmail, "user", "", "email of the account that will own the reviews")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and match without writing reviews")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
