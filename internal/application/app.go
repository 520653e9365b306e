package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/bias"
	"github.com/pep299/article-bias-analyzer/internal/cache"
	"github.com/pep299/article-bias-analyzer/internal/config"
	"github.com/pep299/article-bias-analyzer/internal/credential"
	"github.com/pep299/article-bias-analyzer/internal/logging"
	"github.com/pep299/article-bias-analyzer/internal/metrics"
	"github.com/pep299/article-bias-analyzer/internal/openai"
	"github.com/pep299/article-bias-analyzer/internal/page"
	"github.com/pep299/article-bias-analyzer/internal/store"
)

// Application holds every component wired together
type Application struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Store       store.Store
	OpenAI      *openai.Client
	Credentials *credential.Manager
	Cache       *cache.Manager
	Extractor   *page.Extractor
	Analyzer    *bias.Analyzer
	cleanup     []func() error
}

// New loads configuration and creates a new application instance
func New(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return NewWithConfig(ctx, cfg, logger)
}

// NewWithConfig creates an application from an already loaded config.
// The stored key, if any, is loaded into the session.
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Application, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := metrics.New()

	st := store.Resolve(ctx, store.Options{
		Type:               cfg.StorageType,
		GCSBucket:          cfg.GCSBucket,
		GCSPrefix:          cfg.GCSPrefix,
		GCSCredentialsFile: cfg.GCSCredentialsFile,
		RedisAddr:          cfg.RedisAddr,
		RedisPassword:      cfg.RedisPassword,
		RedisDB:            cfg.RedisDB,
		CheckTimeout:       cfg.ProbeTimeoutDuration(),
	}, logger)

	client := openai.NewClient(openai.Options{
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		MaxTokens:      cfg.OpenAIMaxTokens,
		Temperature:    cfg.OpenAITemperature,
		RequestTimeout: cfg.RequestTimeoutDuration(),
		ProbeTimeout:   cfg.ProbeTimeoutDuration(),
	}, logger.Named("openai"))

	credentials := credential.NewManager(st, client, credential.NewSession(), m, logger.Named("credential"))
	credentials.Load(ctx)

	cacheManager := newCacheManager(cfg, logger)

	extractor := page.NewExtractor(
		page.NewHTTPMessenger(cfg.FetchTimeoutDuration(), cfg.MaxArticleChars),
		logger.Named("page"),
	)

	analyzer := bias.NewAnalyzer(client, credentials, bias.Options{
		Content: extractor,
		Cache:   cacheManager,
		Metrics: m,
		Logger:  logger.Named("bias"),
		Timeout: cfg.RequestTimeoutDuration(),
	})

	app := &Application{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Store:       st,
		OpenAI:      client,
		Credentials: credentials,
		Cache:       cacheManager,
		Extractor:   extractor,
		Analyzer:    analyzer,
	}
	app.cleanup = append(app.cleanup, cacheManager.Close, st.Close)

	logger.Info("application ready",
		zap.String("storage", cfg.StorageType),
		zap.Bool("durable", st.Durable()),
		zap.String("model", cfg.OpenAIModel),
		zap.Bool("cache", cacheManager != nil))

	return app, nil
}

// newCacheManager returns nil when caching is disabled. An unreachable
// Redis cache falls back to memory.
func newCacheManager(cfg *config.Config, logger *zap.Logger) *cache.Manager {
	if cfg.CacheDuration <= 0 {
		return nil
	}

	opts := cache.Options{
		Type:          cfg.CacheType,
		Duration:      cfg.CacheTTL(),
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	}

	manager, err := cache.NewManager(opts)
	if err == nil {
		return manager
	}

	logger.Warn("estimate cache unavailable, using memory", zap.String("type", cfg.CacheType), zap.Error(err))
	opts.Type = "memory"
	manager, _ = cache.NewManager(opts)
	return manager
}

// Close cleans up application resources
func (a *Application) Close() error {
	var errs []error
	for _, fn := range a.cleanup {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
