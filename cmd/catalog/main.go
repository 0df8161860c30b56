// Command catalog imports furniture catalog spreadsheets into the catalog store and
// exports the stored catalog back to xlsx.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/catalog-ingest/internal/app"
	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/importer"
	"github.com/joseph-ayodele/catalog-ingest/internal/repository"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "catalog",
		Short:        "Import furniture catalog spreadsheets",
		SilenceUsage: true,
	}
	root.AddCommand(newImportCmd(), newExportCmd(), newMigrateCmd())
	return root
}

func setup() (*common.Config, *slog.Logger) {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger
}

func newImportCmd() *cobra.Command {
	var (
		strategy    string
		imageColumn int
		inMemory    bool
		dryRun      bool
		force       bool
		nearby      bool
		verify      bool
	)
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import one spreadsheet and print a JSON summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			if cmd.Flags().Changed("strategy") {
				cfg.Import.MappingStrategy = strategy
			}
			if cmd.Flags().Changed("image-column") {
				cfg.Import.ImageColumn = imageColumn
			}
			if cmd.Flags().Changed("nearby-images") {
				cfg.Import.NearbyImages = nearby
			}
			if cmd.Flags().Changed("verify-images") {
				cfg.Import.VerifyImages = verify
			}

			a, err := app.New(cmd.Context(), cfg, logger, app.Options{
				InMemory:  inMemory,
				NoStore:   dryRun,
				NoUploads: dryRun,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Importer.ImportFile(cmd.Context(), args[0], importer.Options{Force: force, DryRun: dryRun})
			if summary != nil {
				if perr := printJSON(cmd, summary); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "Column mapping strategy: auto, fixed, heuristic or inferred")
	cmd.Flags().IntVar(&imageColumn, "image-column", 0, "Only attach images anchored in this 1-based column")
	cmd.Flags().BoolVar(&inMemory, "inmem", false, "Use a throwaway in-memory SQLite store")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and map without uploading images or writing the store")
	cmd.Flags().BoolVar(&force, "force", false, "Import even if identical bytes were already imported")
	cmd.Flags().BoolVar(&nearby, "nearby-images", false, "Accept an image one row above or one column left when the exact cell has none")
	cmd.Flags().BoolVar(&verify, "verify-images", false, "Skip png, jpeg and gif media that does not decode")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		out      string
		category string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored catalog to an xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			a, err := app.New(cmd.Context(), cfg, logger, app.Options{NoUploads: true})
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.Export.ExportCatalogXLSX(cmd.Context(), repository.ListOptions{Category: category})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			logger.Info("export.written", "path", out, "bytes", len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "catalog.xlsx", "Output file path")
	cmd.Flags().StringVar(&category, "category", "", "Only export products in this category")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			a, err := app.New(cmd.Context(), cfg, logger, app.Options{NoUploads: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.Migrate(cmd.Context()); err != nil {
				return common.NewAppError(common.CodeStore, "migrate", err)
			}
			logger.Info("migrate.ok", "dialect", a.Store.Dialect)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
