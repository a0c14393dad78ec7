package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jonathan/application-advisor/internal/advisor"
	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/config"
	"github.com/jonathan/application-advisor/internal/llm"
	"github.com/jonathan/application-advisor/internal/logger"
	"github.com/jonathan/application-advisor/internal/session"
)

// app bundles everything a command needs after wiring.
type app struct {
	orch   *advisor.Orchestrator
	cfg    config.Config
	logger *zap.Logger
	client llm.Client
	pg     *session.PostgresStore
}

// close releases held resources.
func (a *app) close() {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
	_ = a.logger.Sync()
}

// loadConfig merges the optional config file with environment defaults.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        8080,
		MaxQnATurns: advisor.DefaultMaxQnAUserTurns,
	})
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if cfg.APIKey == "" {
		return config.Config{}, fmt.Errorf("GEMINI_API_KEY environment variable or 'api_key' config entry is required")
	}
	return cfg, nil
}

// newApp wires the orchestrator from config: Gemini client, capability suite,
// and a Postgres-backed store when a database URL is configured.
func newApp(ctx context.Context, jsonLogs bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(jsonLogs, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	modelCfg := llm.DefaultGeminiConfig()
	if cfg.LiteModel != "" {
		modelCfg = modelCfg.WithModel(llm.TierLite, cfg.LiteModel)
	}
	if cfg.StandardModel != "" {
		modelCfg = modelCfg.WithModel(llm.TierStandard, cfg.StandardModel)
	}
	if cfg.AdvancedModel != "" {
		modelCfg = modelCfg.WithModel(llm.TierAdvanced, cfg.AdvancedModel)
	}

	client, err := llm.NewClient(ctx, modelCfg, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	a := &app{cfg: cfg, logger: log, client: client}

	var store session.Store
	if cfg.DatabaseURL != "" {
		pg, err := session.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		a.pg = pg
		store = pg
	} else {
		store = session.NewMemoryStore()
	}

	suite := capability.NewGeminiSuite(client, log)
	a.orch = advisor.New(advisor.Config{
		Store:           store,
		Capabilities:    suite.Ports(),
		Logger:          log,
		MaxQnAUserTurns: cfg.MaxQnATurns,
	})
	return a, nil
}
