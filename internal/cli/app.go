package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pachico/pachico/internal/config"
	"github.com/pachico/pachico/internal/logger"
	"github.com/pachico/pachico/internal/service"
	"github.com/pachico/pachico/pkg/agent"
	"github.com/pachico/pachico/pkg/nutrition"
	"github.com/pachico/pachico/pkg/session"
	"github.com/pachico/pachico/pkg/tools"
	"github.com/pachico/pachico/pkg/turnqueue"
)

// app holds the wired components shared by the serve and chat commands.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	service *service.Service

	sessions *session.Store
	foodLog  *nutrition.Store
	usda     *nutrition.USDAClient
}

// buildApp loads configuration and wires the orchestrator stack.
func buildApp(consoleLogs bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: consoleLogs && cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zl := log.GetZerolog()

	sessions, err := session.Open(filepath.Join(cfg.DataDir, "sessions.db"))
	if err != nil {
		return nil, err
	}

	foodLog, err := nutrition.OpenStore(filepath.Join(cfg.DataDir, "nutrition.db"))
	if err != nil {
		return nil, err
	}

	usda, err := nutrition.NewUSDAClient(cfg.USDA.APIKey, filepath.Join(cfg.DataDir, "food_cache.db"))
	if err != nil {
		return nil, err
	}

	exportsDir := filepath.Join(cfg.DataDir, "exports")

	registry := tools.NewRegistry()
	if err := nutrition.RegisterTools(registry, nutrition.ToolDeps{
		Store:      foodLog,
		USDA:       usda,
		ExportsDir: exportsDir,
	}); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	provider, err := agent.NewLLMProvider(agent.ProviderConfig{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		return nil, err
	}

	orchestrator, err := agent.New(agent.Config{
		Store:     sessions,
		Router:    agent.NewRouter(provider, zl),
		Loop:      agent.NewLoop(provider, registry, cfg.LLM.Model, cfg.LLM.MaxTokens, zl),
		Artifacts: agent.NewDirArtifactStore(cfg.DataDir),
		Logger:    zl,
	})
	if err != nil {
		return nil, err
	}

	svc := service.New(orchestrator, turnqueue.New(), zl)

	return &app{
		cfg:      cfg,
		log:      log,
		service:  svc,
		sessions: sessions,
		foodLog:  foodLog,
		usda:     usda,
	}, nil
}

// logger returns the wired zerolog logger.
func (a *app) logger() zerolog.Logger {
	return a.log.GetZerolog()
}

// close releases all resources in reverse wiring order.
func (a *app) close() {
	a.service.Close()
	a.usda.Close()
	a.foodLog.Close()
	a.sessions.Close()
	a.log.Close()
}
