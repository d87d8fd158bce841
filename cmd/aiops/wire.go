package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahul/aiops/internal/agent"
	"github.com/rahul/aiops/internal/governance"
	"github.com/rahul/aiops/internal/llm"
	"github.com/rahul/aiops/internal/observability"
	"github.com/rahul/aiops/internal/store"
	"github.com/rahul/aiops/internal/tools"
	"github.com/rahul/aiops/pkg/config"
)

// app holds the long-lived components built from config.
type app struct {
	orchestrator *agent.Orchestrator
	metrics      *observability.Metrics
	logger       *observability.Logger
	closers      []func() error
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		LLMLogPath: cfg.Logging.LLMLogPath,
		MaxSize:    int64(cfg.Logging.MaxSizeMB) * 1024 * 1024,
	})
	if err != nil {
		return nil, err
	}
	return buildAppWithLogger(ctx, cfg, logger)
}

func buildAppWithLogger(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*app, error) {
	a := &app{logger: logger, metrics: observability.NewMetrics()}

	model, err := llm.NewModel(llm.ProviderConfig{
		Name:    cfg.Provider.Name,
		APIKey:  cfg.Provider.APIKey.Value(),
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init model: %w", err)
	}
	client := llm.NewClient(model, cfg.Provider.Name, logger)
	client.Temperature = cfg.Provider.Temperature

	var cache tools.GeoCache
	if cfg.Cache.Path != "" {
		gc, err := store.NewGeoCache(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open geocode cache: %w", err)
		}
		a.closers = append(a.closers, gc.Close)
		cache = gc
	}

	weather := tools.NewWeatherTool(tools.WeatherConfig{
		GeocodeURL:  cfg.Tools.Weather.GeocodeURL,
		ForecastURL: cfg.Tools.Weather.ForecastURL,
		UserAgent:   cfg.Tools.Weather.UserAgent,
		Timeout:     cfg.Tools.Weather.Timeout,
		GeocodeRate: cfg.Tools.Weather.GeocodeRate,
	}, cache)

	github, err := tools.NewGitHubTool(ctx, tools.GitHubConfig{
		Token:   cfg.Tools.GitHub.Token.Value(),
		BaseURL: cfg.Tools.GitHub.BaseURL,
		Limit:   cfg.Tools.GitHub.Limit,
		Timeout: cfg.Tools.GitHub.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	registry := tools.NewRegistry(weather, github)

	policy, err := governance.NewToolPolicy(cfg.Governance.DenyTools, cfg.Governance.DenyPatterns)
	if err != nil {
		a.Close()
		return nil, err
	}

	prompts, err := agent.NewPromptManager(cfg.Prompts.Dir)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orchestrator = agent.NewOrchestrator(
		agent.NewPlanner(client, registry, prompts, logger),
		agent.NewExecutor(registry, policy, logger, a.metrics),
		agent.NewVerifier(client, prompts, logger),
		logger,
		a.metrics,
	)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if a.logger != nil {
		// Sync on stderr fails with EINVAL on some platforms; ignore it.
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
