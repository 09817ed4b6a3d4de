package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/database/mariadb"
	"github.com/kozaktomas/facescan/internal/database/postgres"
	"github.com/kozaktomas/facescan/internal/extractor"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/gallery"
	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/kozaktomas/facescan/internal/metrics"
	"go.uber.org/zap"
)

// app bundles the services shared by the serve and scan commands.
type app struct {
	cfg           *config.Config
	log           *zap.Logger
	pool          *postgres.Pool // nil when DATABASE_URL is unset
	gallery       *gallery.Store
	extractor     facematch.Extractor
	extractorName string
	pipeline      *facematch.Pipeline
}

// newApp loads configuration-driven services. opts overrides the match
// options from the environment when non-nil.
func newApp(ctx context.Context, cfg *config.Config, opts *facematch.Options) (*app, error) {
	log, err := logger.NewLogger(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	ctx = logger.ContextWithLogger(ctx, log)

	a := &app{cfg: cfg, log: log}

	if cfg.Database.URL != "" {
		a.pool, err = postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
	}

	a.gallery, err = loadGallery(ctx, cfg, a.pool)
	if err != nil {
		a.Close()
		return nil, err
	}
	snap := a.gallery.Snapshot()
	metrics.GalleryEntries.Set(float64(snap.Len()))
	log.Info("gallery loaded",
		zap.String("source", cfg.Gallery.Source),
		zap.Int("entries", snap.Len()),
		zap.Int("dim", snap.Dim()),
	)
	if snap.Dim() != 0 && snap.Dim() != cfg.Embedding.Dim {
		log.Warn("gallery descriptor length differs from EMBEDDING_DIM; scans will fail",
			zap.Int("gallery_dim", snap.Dim()),
			zap.Int("embedding_dim", cfg.Embedding.Dim),
		)
	}

	a.extractor, a.extractorName = newExtractor(cfg)

	matchOpts, err := cfg.MatchOptions()
	if err != nil {
		a.Close()
		return nil, err
	}
	if opts != nil {
		matchOpts = *opts
	}
	a.pipeline, err = facematch.NewPipeline(a.extractor, facematch.CosineScorer{}, a.gallery, matchOpts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the database pool.
func (a *app) Close() {
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.log.Warn("closing database", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// newExtractor returns the model-backed extractor when EMBEDDING_URL is
// set, otherwise the stub.
func newExtractor(cfg *config.Config) (facematch.Extractor, string) {
	if cfg.Embedding.URL != "" {
		return extractor.NewModelExtractor(cfg.Embedding.URL, cfg.Embedding.Dim,
			extractor.WithRetryAfter(cfg.Embedding.RetryAfter),
		), "model"
	}
	return extractor.NewStubExtractor(cfg.Embedding.Dim), "stub"
}

// loadGallery builds the live gallery from GALLERY_SOURCE.
func loadGallery(ctx context.Context, cfg *config.Config, pool *postgres.Pool) (*gallery.Store, error) {
	switch cfg.Gallery.Source {
	case config.GallerySourceDemo:
		return gallery.Load(ctx, gallery.DemoLoader{
			Size: cfg.Gallery.DemoSize,
			Dim:  cfg.Embedding.Dim,
			Seed: cfg.Gallery.DemoSeed,
		})

	case config.GallerySourceYAML:
		if cfg.Gallery.Path == "" {
			return nil, errors.New("GALLERY_PATH is required for the yaml gallery source")
		}
		return gallery.Load(ctx, gallery.YAMLLoader{Path: cfg.Gallery.Path})

	case config.GallerySourcePostgres:
		if pool == nil {
			return nil, errors.New("DATABASE_URL is required for the postgres gallery source")
		}
		return gallery.Load(ctx, postgres.NewGalleryRepository(pool))

	case config.GallerySourceMariaDB:
		mdb, err := mariadb.NewPool(ctx, cfg.Gallery.MariaDBDSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to reference database: %w", err)
		}
		defer mdb.Close()
		return gallery.Load(ctx, mariadb.NewGalleryReader(mdb))

	default:
		return nil, fmt.Errorf("unknown GALLERY_SOURCE %q", cfg.Gallery.Source)
	}
}
