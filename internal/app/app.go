package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"MaturityScanner/internal/config"
	"MaturityScanner/internal/determinism"
	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/infrastructure/alert"
	"MaturityScanner/internal/infrastructure/extract"
	httpprovider "MaturityScanner/internal/infrastructure/provider"
	"MaturityScanner/internal/infrastructure/storage"
	"MaturityScanner/internal/logging"
	"MaturityScanner/internal/ports"
	"MaturityScanner/internal/provider"
	"MaturityScanner/internal/ranker"
	"MaturityScanner/internal/resolver"
	"MaturityScanner/internal/rubric"
	"MaturityScanner/internal/scorer"
	"MaturityScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	registry *provider.Registry
	pipeline *usecase.Pipeline
	db       *sql.DB
	logger   *slog.Logger
}

// New builds a runnable application instance. Construction fails on invalid
// determinism settings, an unreadable rubric, or an unknown provider kind;
// nothing starts half-configured.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	fixedTime, err := cfg.Determinism.ParseFixedTime()
	if err != nil {
		return nil, &domain.ConfigError{Reason: "invalid determinism fixed time", Err: err}
	}
	det, err := determinism.New(determinism.Settings{
		Enabled:   cfg.Determinism.Enabled,
		FixedTime: fixedTime,
		Seed:      cfg.Determinism.Seed,
	})
	if err != nil {
		return nil, err
	}

	def, err := rubric.Load(cfg.Rubric.Path)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg.Providers)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, &domain.ConfigError{Reason: "open database", Err: err}
		}
	}
	repo := storage.NewPostgresRepository(db)

	var extractor ports.Extractor
	if cfg.Extractor.Endpoint != "" {
		extractor = extract.NewRemoteExtractor(cfg.Extractor)
	} else {
		extractor = extract.NewParagraphExtractor()
	}

	var alerter ports.Alerter
	if cfg.Alerts.WebhookURL != "" {
		alerter = alert.NewWebhookAlerter(cfg.Alerts.WebhookURL)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Resolver:  resolver.New(registry, cfg.Scoring.Timeout(), baseLogger.With("component", "resolver")),
		Extractor: extractor,
		Chunks:    repo,
		Ranker:    ranker.New(det, nil),
		Scorer:    scorer.New(def, det, baseLogger.With("component", "scorer")),
		Artifacts: repo,
		Alerter:   alerter,
		Det:       det,
		Rubric:    def,
		Alpha:     cfg.Scoring.Alpha,
		TopK:      cfg.Scoring.TopK,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		registry: registry,
		pipeline: pipeline,
		db:       db,
		logger:   baseLogger,
	}, nil
}

func buildRegistry(configs []config.ProviderConfig) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for _, pc := range configs {
		var p ports.Provider
		switch pc.Kind {
		case "filings":
			p = httpprovider.NewFilingsProvider(pc.Name, pc.Tier, pc.BaseURL, pc.APIKey, nil)
		case "registry":
			p = httpprovider.NewRegistryProvider(pc.Name, pc.Tier, pc.BaseURL, pc.APIKey, nil)
		case "webreport":
			p = httpprovider.NewWebReportProvider(pc.Name, pc.Tier, pc.BaseURL, nil)
		default:
			return nil, &domain.ConfigError{Reason: fmt.Sprintf("unknown provider kind %q", pc.Kind)}
		}
		registry.Register(p)
	}
	return registry, nil
}

// ScoreBatch runs the full rubric for one organization and year.
func (a *Application) ScoreBatch(ctx context.Context, org string, year int) (usecase.BatchResult, error) {
	if a.pipeline == nil {
		return usecase.BatchResult{}, fmt.Errorf("application not initialized")
	}
	units := a.pipeline.UnitsFromRubric(org, year)
	return a.pipeline.RunBatch(ctx, units, a.cfg.Scoring.Parallelism), nil
}

// ProviderNames lists the registered providers in resolution order.
func (a *Application) ProviderNames() []string {
	if a.registry == nil {
		return nil
	}
	names := make([]string, 0)
	for _, p := range a.registry.Ordered() {
		names = append(names, fmt.Sprintf("%s (tier %d)", p.Name(), p.Tier()))
	}
	return names
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
