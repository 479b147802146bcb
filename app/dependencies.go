package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/dupatihari/azure-rag-demo/handlers"
	"github.com/dupatihari/azure-rag-demo/repositories"
	"github.com/dupatihari/azure-rag-demo/repositories/postgres"
	"github.com/dupatihari/azure-rag-demo/services/audit"
	"github.com/dupatihari/azure-rag-demo/services/insights"
	"github.com/dupatihari/azure-rag-demo/services/providers"
	"github.com/dupatihari/azure-rag-demo/services/providers/gemini"
	"github.com/dupatihari/azure-rag-demo/services/providers/openai"
	"github.com/dupatihari/azure-rag-demo/services/search"
	"github.com/dupatihari/azure-rag-demo/services/storage"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for queued audit records
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when the audit trail is disabled
	Logger *zap.Logger

	RepoFactory  *postgres.RepositoryFactory
	AuditRepo    repositories.InsightAuditRepository
	AuditService *audit.AuditService

	Providers *providers.Registry
	Resolver  storage.URLResolver
	Pipeline  *insights.Pipeline

	InsightsHandler *handlers.InsightsHandler
	HealthHandler   *handlers.HealthHandler
	AuditHandler    *handlers.AuditHandler // nil when the audit trail is disabled
}

// NewDependencies creates and wires up all application dependencies.
// The audit database is connected only when cfg.Database is set.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	var factory *postgres.RepositoryFactory
	if cfg.Database != nil {
		f, err := postgres.NewRepositoryFactory(*cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		factory = f
	}
	return newDependencies(ctx, cfg, factory, logger)
}

// NewDependenciesWithRepositories wires the application on an already
// connected audit database.
func NewDependenciesWithRepositories(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	return newDependencies(ctx, cfg, factory, logger)
}

func newDependencies(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if factory != nil {
		if err := deps.initAudit(ctx, factory); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize audit trail: %w", err)
		}
	}

	if err := deps.initPipeline(cfg); err != nil {
		deps.shutdown()
		return nil, fmt.Errorf("failed to initialize insights pipeline: %w", err)
	}

	deps.initHandlers(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("search_backend", cfg.Search.Backend),
		zap.String("provider", cfg.Completion.Provider),
		zap.Bool("audit", deps.AuditService != nil),
		zap.Bool("url_resolver", deps.Resolver != nil))
	return deps, nil
}

// initAudit creates the schema and starts the audit workers
func (d *Dependencies) initAudit(ctx context.Context, factory *postgres.RepositoryFactory) error {
	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.AuditRepo = repos.InsightAudits

	svc := audit.NewAuditService(d.AuditRepo, d.Logger, audit.DefaultConfig())
	if err := svc.Start(); err != nil {
		return err
	}
	d.AuditService = svc

	d.Logger.Info("audit trail enabled")
	return nil
}

// initPipeline builds the retriever, invoker and pipeline
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	backends, err := search.NewFactory(cfg.Search, d.Logger)
	if err != nil {
		return err
	}

	if cfg.Storage.Enabled() {
		resolver, err := storage.NewMinioResolver(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create url resolver: %w", err)
		}
		d.Resolver = resolver
	}

	d.Providers = NewProviderRegistry()
	completions, err := d.Providers.Factory(cfg.Completion)
	if err != nil {
		return err
	}

	retriever := insights.NewRetriever(backends, insights.FieldMappingFrom(cfg.Search), d.Resolver, d.Logger)
	invoker := insights.NewInvoker(completions, cfg.Completion.Model, d.Logger)

	opts := []insights.Option{
		insights.WithTopK(cfg.Insights.TopK),
		insights.WithTimeout(cfg.Insights.RequestTimeout),
	}
	if d.AuditService != nil {
		opts = append(opts, insights.WithAuditor(d.AuditService))
	}
	d.Pipeline = insights.NewPipeline(retriever, invoker, d.Logger, opts...)
	return nil
}

func (d *Dependencies) initHandlers(cfg *config.Config) {
	d.InsightsHandler = handlers.NewInsightsHandler(d.Pipeline, cfg.Insights.DefaultQuestion, d.Logger)

	d.HealthHandler = handlers.NewHealthHandler(d.sqlDB(), cfg.Search.Backend, cfg.Completion.Provider, d.Logger)

	if d.AuditRepo != nil {
		d.AuditHandler = handlers.NewAuditHandler(d.AuditRepo, d.Logger)
	}
}

func (d *Dependencies) sqlDB() *sql.DB {
	if d.DB == nil {
		return nil
	}
	return d.DB.DB
}

// NewProviderRegistry returns a registry with every supported completion provider
func NewProviderRegistry() *providers.Registry {
	registry := providers.NewRegistry()
	_ = registry.Register(config.ProviderAzureOpenAI, openai.NewAzure)
	_ = registry.Register(config.ProviderOpenAI, openai.New)
	_ = registry.Register(config.ProviderGemini, gemini.New)
	return registry
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	errs := d.shutdown()

	// Sync logger
	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

func (d *Dependencies) shutdown() []error {
	var errs []error

	// Drain queued audit records before the pool goes away
	if d.AuditService != nil {
		if err := d.AuditService.Stop(auditStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.AuditService = nil
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}
	return errs
}
