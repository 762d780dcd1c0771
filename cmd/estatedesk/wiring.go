package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/estatedesk/internal/analysis"
	"github.com/erazemk/estatedesk/internal/config"
	"github.com/erazemk/estatedesk/internal/imaging"
	"github.com/erazemk/estatedesk/internal/itemcache"
	"github.com/erazemk/estatedesk/internal/service"
	"github.com/erazemk/estatedesk/internal/storage"
)

// newStorage returns the configured photo storage.
func newStorage(ctx context.Context, cfg *config.Config, database *sql.DB) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3cfg := cfg.Storage.S3
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			PublicURL:       s3cfg.PublicURL,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
	case "", "db":
		return storage.NewDB(database), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// newAnalyzer returns the configured analysis provider.
func newAnalyzer(ctx context.Context, cfg *config.Config) (analysis.Analyzer, error) {
	switch cfg.Analysis.Provider {
	case "gemini":
		return analysis.NewGemini(ctx, analysis.GeminiConfig{
			APIKey: cfg.Analysis.Gemini.APIKey,
			Model:  cfg.Analysis.Gemini.Model,
		})
	case "", "placeholder":
		return analysis.Placeholder{}, nil
	}
	return nil, fmt.Errorf("unknown analysis provider %q", cfg.Analysis.Provider)
}

// newService assembles the item service from configuration.
func newService(ctx context.Context, cfg *config.Config, database *sql.DB) (*service.Service, error) {
	photos, err := newStorage(ctx, cfg, database)
	if err != nil {
		return nil, fmt.Errorf("setting up photo storage: %w", err)
	}
	analyzer, err := newAnalyzer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("setting up analysis: %w", err)
	}
	return service.New(database, service.Options{
		Storage:  photos,
		Analyzer: analyzer,
		Cache:    itemcache.New(cfg.CacheTTL(), nil),
		Policy:   cfg.ConflictPolicy(),
		Imaging: imaging.Options{
			MaxDimension: cfg.Upload.MaxDimension,
			MaxBytes:     cfg.Upload.MaxBytes,
		},
		UploadConcurrency:   cfg.Upload.Concurrency,
		AnalysisConcurrency: cfg.Analysis.Concurrency,
		AnalysisTimeout:     cfg.AnalysisTimeout(),
	}), nil
}
