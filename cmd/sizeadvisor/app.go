package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dailybelle/sizeadvisor/config"
	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/dailybelle/sizeadvisor/internal/infrastructure/auditlog"
	"github.com/dailybelle/sizeadvisor/internal/infrastructure/cache"
	"github.com/dailybelle/sizeadvisor/internal/infrastructure/csvtable"
	"github.com/dailybelle/sizeadvisor/internal/infrastructure/mailer"
	"github.com/dailybelle/sizeadvisor/internal/infrastructure/tg3d"
	"github.com/dailybelle/sizeadvisor/internal/logging"
	"github.com/dailybelle/sizeadvisor/internal/usecase"
	"go.uber.org/zap"
)

// app is the wired object graph shared by every subcommand
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	cache   *cache.MemoryCache
	loader  *csvtable.Loader
	matcher *usecase.MatchingService
	service *usecase.RecommendationService
	closers []func() error
}

type appOptions struct {
	withProvider bool // keyword lookups need the scan API
	withDelivery bool // mail and audit log
}

func newLogger(cfg *config.Config) (*zap.Logger, io.Closer, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:    level,
		Dev:      cfg.IsDevelopment(),
		FilePath: cfg.Log.FilePath,
		MaxAge:   cfg.Log.MaxAge,
	})
}

// catalogConfig maps the tables section onto the csv loader's column mapping
func catalogConfig(t config.TablesConfig) csvtable.CatalogConfig {
	c := csvtable.DefaultCatalogConfig()
	c.Dir = t.Dir
	c.SizeFile = t.SizeFile
	c.ProductFile = t.ProductFile
	c.AttributeFile = t.AttributeFile
	c.URLFile = t.URLFile

	group := t.GroupColumn
	if group == "" {
		group = csvtable.DefaultGroupColumn
	}
	c.SizeColumns = csvtable.SizeColumns{
		UpperMin:  t.Columns.UpperMin,
		UpperMax:  t.Columns.UpperMax,
		LowerMin:  t.Columns.LowerMin,
		LowerMax:  t.Columns.LowerMax,
		Group:     group,
		SizeLabel: t.Columns.SizeLabel,
	}
	c.ProductColumns = csvtable.ProductColumns{Group: group, ProductCode: t.Columns.ProductCode}
	c.AttributeColumns = csvtable.AttributeColumns{Attribute: t.Columns.Attribute, ProductCode: t.Columns.ProductCode}
	c.URLColumns = csvtable.URLColumns{ProductCode: t.Columns.URLProductCode, URL: t.Columns.URL}
	return c
}

// newTableLoader builds the table loader over a memory cache. The caller closes the cache.
func newTableLoader(cfg *config.Config, logger *zap.Logger) (*csvtable.Loader, *cache.MemoryCache) {
	memoryCache := cache.NewMemoryCacheWithCleanup(cfg.Cache.CleanupInterval)
	loader := csvtable.NewLoader(memoryCache, csvtable.LoaderConfig{
		Encodings:   cfg.Tables.Encodings,
		GroupColumn: cfg.Tables.GroupColumn,
		CacheTTL:    cfg.Cache.TTL,
	}, logger)
	return loader, memoryCache
}

// loadCatalog reads the four lookup tables through the cached loader. Files whose
// contents did not change since the last load are served from the cache.
func loadCatalog(ctx context.Context, cfg *config.Config, loader *csvtable.Loader, memoryCache *cache.MemoryCache, logger *zap.Logger) (*domain.Catalog, []csvtable.Issue, error) {
	catalog, issues, err := csvtable.BuildCatalog(ctx, loader, catalogConfig(cfg.Tables))
	if err != nil {
		return nil, nil, fmt.Errorf("load lookup tables: %w", err)
	}
	hits, misses := memoryCache.Stats()
	logger.Debug("table cache", zap.Int64("hits", hits), zap.Int64("misses", misses), zap.Int("entries", memoryCache.Size()))

	for _, issue := range issues {
		logger.Warn("table issue", zap.String("table", issue.Table), zap.Int("row", issue.Row), zap.String("message", issue.Message))
	}
	logger.Info("lookup tables loaded",
		zap.Int("sizes", len(catalog.Sizes)),
		zap.Int("products", len(catalog.Products)),
		zap.Int("attributes", len(catalog.Attributes)),
		zap.Int("urls", len(catalog.ProductURLs)))
	return catalog, issues, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	a.loader, a.cache = newTableLoader(cfg, logger)
	a.closers = append(a.closers, func() error { a.cache.Close(); return nil })

	catalog, _, err := loadCatalog(ctx, cfg, a.loader, a.cache, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.matcher = usecase.NewMatchingService(catalog, usecase.MatchConfig{
		AdjustAttribute: cfg.Matching.AdjustAttribute,
		AdjustOffset:    cfg.Matching.AdjustOffset,
	}, logger)

	var measurements *usecase.MeasurementService
	if opts.withProvider {
		measurements, err = newMeasurementService(cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var notifier domain.Notifier
	var audit domain.AuditLogger
	if opts.withDelivery {
		if cfg.Mail.Enabled {
			m, err := mailer.New(mailer.Config{
				Host:     cfg.Mail.Host,
				Port:     cfg.Mail.Port,
				Username: cfg.Mail.Username,
				Password: cfg.Mail.Password,
				FromName: cfg.Mail.FromName,
				Timeout:  cfg.Mail.Timeout,
			}, logger)
			if err != nil {
				a.Close()
				return nil, err
			}
			notifier = m
		}
		if cfg.Audit.Enabled {
			repo, err := a.openAudit(ctx)
			if err != nil {
				a.Close()
				return nil, err
			}
			audit = repo
		}
	}

	a.service = usecase.NewRecommendationService(a.matcher, measurements, notifier, audit,
		usecase.RecommendationServiceConfig{MailSubject: cfg.Mail.Subject}, logger)
	return a, nil
}

func newMeasurementService(cfg *config.Config, logger *zap.Logger) (*usecase.MeasurementService, error) {
	if err := cfg.RequireProvider(); err != nil {
		return nil, err
	}

	preprocessor, err := usecase.NewQueryPreprocessor(cfg.Matching.Mode)
	if err != nil {
		return nil, err
	}
	classifier, err := usecase.NewClassifier(cfg.Matching.Classifier, cfg.Matching.Vocabulary)
	if err != nil {
		return nil, err
	}
	normalizer := usecase.NewNormalizer(usecase.MeasurementDefaults{
		UpperBust:           cfg.Defaults.UpperBust,
		LowerBust:           cfg.Defaults.LowerBust,
		ShoulderNippleLeft:  cfg.Defaults.ShoulderNippleLeft,
		ShoulderNippleRight: cfg.Defaults.ShoulderNippleRight,
	})

	client := tg3d.NewClient(tg3d.Config{
		APIKey:            cfg.TG3D.APIKey,
		BaseURL:           cfg.TG3D.BaseURL,
		Timeout:           cfg.TG3D.Timeout,
		RetryMax:          cfg.TG3D.RetryMax,
		RequestsPerSecond: cfg.TG3D.RequestsPerSecond,
		Burst:             cfg.TG3D.Burst,
		PoseInterval:      cfg.TG3D.PoseInterval,
		BackoffBase:       cfg.TG3D.BackoffBase,
	}, logger)

	return usecase.NewMeasurementService(client, preprocessor, classifier, normalizer,
		usecase.MeasurementServiceConfig{RecordLimit: cfg.TG3D.RecordLimit}, logger), nil
}

func (a *app) openAudit(ctx context.Context) (*auditlog.Repository, error) {
	db, err := auditlog.Open(ctx, a.cfg.Audit.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	repo := auditlog.NewRepository(db, a.logger)
	if err := repo.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("prepare audit table: %w", err)
	}
	return repo, nil
}

// ReloadCatalog re-reads the lookup tables and swaps them into the matcher.
// On error the previous catalog stays in use.
func (a *app) ReloadCatalog(ctx context.Context) error {
	catalog, _, err := loadCatalog(ctx, a.cfg, a.loader, a.cache, a.logger)
	if err != nil {
		return err
	}
	a.matcher.SetCatalog(catalog)
	return nil
}

// Close releases the table cache and the audit database
func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
