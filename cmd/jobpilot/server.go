package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/okofler/jobpilot/internal/api"
	"github.com/okofler/jobpilot/internal/catalog"
	"github.com/okofler/jobpilot/internal/catalog/providers"
	"github.com/okofler/jobpilot/internal/config"
	"github.com/okofler/jobpilot/internal/llm"
	"github.com/okofler/jobpilot/internal/logger"
	"github.com/okofler/jobpilot/internal/recommend"
	"github.com/okofler/jobpilot/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the jobpilot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// app bundles the wired application components shared by the serve, refresh
// and analyze commands.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	store   *storage.Store
	cache   *catalog.Cache
	advisor *recommend.Advisor
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	cache := catalog.New(cfg.Catalog.SchemaVersion, store, buildProviders(cfg, log), log)
	planner := llm.NewPlanner(buildEngine(ctx, cfg, log), log)
	advisor := recommend.New(cache, planner, store, log)

	return &app{cfg: cfg, log: log, store: store, cache: cache, advisor: advisor}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
	a.log.Sync()
}

// buildProviders turns the configured endpoint map into catalog providers.
// Unknown keys are skipped with a warning instead of failing startup.
func buildProviders(cfg config.Config, log *zap.Logger) []catalog.Provider {
	timeout := 8 * time.Second
	if cfg.Catalog.FetchTimeout != "" {
		d, err := time.ParseDuration(cfg.Catalog.FetchTimeout)
		if err != nil {
			log.Warn("invalid catalog fetch timeout, using default 8s",
				zap.String("value", cfg.Catalog.FetchTimeout), zap.Error(err))
		} else {
			timeout = d
		}
	}
	client := &http.Client{Timeout: timeout}

	var list []catalog.Provider
	for _, key := range []string{"community", "official", "curated", "awesome"} {
		endpoint, ok := cfg.Catalog.Endpoints[key]
		if !ok || endpoint == "" {
			continue
		}
		switch key {
		case "community":
			list = append(list, providers.NewCommunity(endpoint, client))
		case "official":
			list = append(list, providers.NewOfficial(endpoint, client))
		case "curated":
			list = append(list, providers.NewCurated(endpoint, client))
		case "awesome":
			list = append(list, providers.NewAwesome(endpoint, client))
		}
	}
	for key := range cfg.Catalog.Endpoints {
		switch key {
		case "community", "official", "curated", "awesome":
		default:
			log.Warn("unknown catalog endpoint key, skipping", zap.String("key", key))
		}
	}
	return list
}

func buildEngine(ctx context.Context, cfg config.Config, log *zap.Logger) llm.Engine {
	switch cfg.LLM.Provider {
	case "local":
		return llm.NewLocal(cfg.LLM.BaseURL, cfg.LLM.Model)
	case "gemini":
		eng, err := llm.NewGemini(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model)
		if err != nil {
			log.Warn("gemini engine unavailable, blueprints fall back to templates", zap.Error(err))
			return llm.Disabled{}
		}
		return eng
	default:
		return llm.Disabled{}
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "jobpilot version %s\n", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Warm the catalog in the background; requests degrade gracefully until
	// the first refresh lands.
	go func() {
		for _, res := range a.cache.RefreshAll(ctx) {
			if !res.Success {
				a.log.Warn("initial catalog refresh failed",
					zap.String("source", res.Source), zap.String("error", res.Error))
			}
		}
	}()

	handler := api.NewHandler(api.AppDeps{
		Advisor: a.advisor,
		Catalog: a.cache,
		Store:   a.store,
		Token:   a.cfg.Server.Token,
		Logger:  a.log,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio transport.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Advisor: a.advisor,
		Catalog: a.cache,
		Store:   a.store,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("MCP stdio server error", zap.Error(err))
		}
	}()
	a.log.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("jobpilot listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
