// Package app wires configuration into the store, pipeline and importer shared by the
// catalog binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/catalog-ingest/internal/blob"
	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/export"
	"github.com/joseph-ayodele/catalog-ingest/internal/harvest"
	"github.com/joseph-ayodele/catalog-ingest/internal/importer"
	"github.com/joseph-ayodele/catalog-ingest/internal/llm/openai"
	"github.com/joseph-ayodele/catalog-ingest/internal/mapping"
	"github.com/joseph-ayodele/catalog-ingest/internal/pipeline"
	"github.com/joseph-ayodele/catalog-ingest/internal/repository"
)

// InMemoryDSN is the SQLite database used by --inmem runs.
const InMemoryDSN = "file:catalog-inmem?mode=memory&cache=shared"

// Options override configuration for a single process.
type Options struct {
	// InMemory replaces the configured database with a throwaway SQLite one.
	InMemory bool
	// NoStore skips the database entirely, for dry runs.
	NoStore bool
	// NoUploads disables image harvesting.
	NoUploads bool
}

// App holds the wired components.
type App struct {
	Config   *common.Config
	Logger   *slog.Logger
	Store    *repository.Store
	Products repository.ProductRepository
	Jobs     repository.ImportJobRepository
	Pipeline *pipeline.Pipeline
	Importer *importer.Importer
	Export   *export.Service
}

// New validates cfg and builds every component. The caller must Close the App.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	mapper, err := NewMapper(cfg, logger)
	if err != nil {
		return nil, err
	}

	var up harvest.Uploader
	if !opts.NoUploads {
		up, err = NewUploader(ctx, cfg.Blob, logger)
		if err != nil {
			return nil, err
		}
	}

	a.Pipeline = pipeline.New(logger, pipeline.Config{
		KeyPrefix:    cfg.Import.ImageKeyPrefix,
		ImageColumn:  cfg.Import.ImageColumn,
		NearbyImages: cfg.Import.NearbyImages,
		VerifyImages: cfg.Import.VerifyImages,
	}, mapper, up)

	if !opts.NoStore {
		dbCfg := repository.Config{
			DSN:             cfg.Database.DSN,
			SQLitePath:      cfg.Database.SQLitePath,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}
		if opts.InMemory {
			dbCfg = repository.Config{SQLitePath: InMemoryDSN}
		}
		store, err := repository.Open(ctx, dbCfg, logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeStore, "open catalog store", err)
		}
		a.Store = store
		if opts.InMemory {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, common.NewAppError(common.CodeStore, "migrate in-memory store", err)
			}
		}
		a.Products = repository.NewProductRepository(store, logger)
		a.Jobs = repository.NewImportJobRepository(store, logger)
		a.Export = export.NewService(a.Products, logger)
	}

	a.Importer = importer.New(logger, a.Pipeline, a.Products, a.Jobs)
	return a, nil
}

// Close releases the store.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

// NewMapper builds the column mapper, attaching the OpenAI inferrer when an API key
// is configured and the strategy can use it.
func NewMapper(cfg *common.Config, logger *slog.Logger) (*mapping.Mapper, error) {
	strategy, err := mapping.ParseStrategy(cfg.Import.MappingStrategy)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
	}
	mc := mapping.Config{
		Strategy:     strategy,
		InferTimeout: cfg.Import.InferTimeout,
		Logger:       logger,
	}
	if cfg.InferenceEnabled() {
		mc.Inferrer = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		logger.Info("mapping.inference.enabled", "model", cfg.LLM.Model)
	}
	return mapping.New(mc), nil
}

// NewUploader builds the configured blob store.
func NewUploader(ctx context.Context, cfg common.BlobConfig, logger *slog.Logger) (harvest.Uploader, error) {
	switch cfg.Driver {
	case "s3":
		up, err := blob.NewS3Uploader(ctx, blob.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			PublicBaseURL:   cfg.PublicURL,
		}, logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "configure s3 uploader", err)
		}
		return up, nil
	case "dir", "":
		up, err := blob.NewDirUploader(cfg.Dir, cfg.PublicURL, logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "configure dir uploader", err)
		}
		return up, nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown blob driver %q", cfg.Driver), common.ErrInvalidInput)
}
