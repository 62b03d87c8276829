package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/harborline/catalog-assistant/internal/config"
	"github.com/harborline/catalog-assistant/internal/core/ports"
	"github.com/harborline/catalog-assistant/internal/core/usecase"
	openaillm "github.com/harborline/catalog-assistant/internal/infrastructure/llm/openai"
	"github.com/harborline/catalog-assistant/internal/infrastructure/repository/postgres"
	"github.com/harborline/catalog-assistant/internal/infrastructure/resilience"
	"github.com/harborline/catalog-assistant/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Log     *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	Searcher ports.ProductSearcher
	Chat     ports.ChatService
	Stats    ports.StatsProvider

	closeFn func()
}

func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewProductRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	llm := openaillm.New(openaillm.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		ChatModel:       cfg.ChatModel,
		FastModel:       cfg.FastModel,
		EmbedModel:      cfg.EmbedModel,
		EmbedDimensions: cfg.EmbedDimensions,
	}, executor)

	httpMetrics := metrics.NewHTTPServerMetrics("api")

	searcher := usecase.NewHybridSearch(store, llm, usecase.SearchConfig{
		BaseMatchCount: cfg.MatchCount,
	}, log, httpMetrics.SearchObserver("api"))
	pre := usecase.NewPreprocessor(llm, usecase.PreprocessConfig{}, log)
	builder := usecase.NewContextBuilder(cfg.DatasheetBaseURL)
	stats := usecase.NewStatsCache(store, time.Duration(cfg.StatsTTLSeconds)*time.Second)
	chat := usecase.NewChat(pre, searcher, builder, stats, llm, usecase.ChatConfig{
		Deadline:   time.Duration(cfg.RequestDeadlineSeconds) * time.Second,
		MatchCount: cfg.MatchCount,
	}, log)

	return &App{
		Config:  cfg,
		Log:     log,
		Metrics: httpMetrics,

		Searcher: searcher,
		Chat:     chat,
		Stats:    stats,

		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
