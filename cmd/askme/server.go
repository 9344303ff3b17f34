package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nmoreau/askme/internal/api"
	"github.com/nmoreau/askme/internal/chat"
	"github.com/nmoreau/askme/internal/composer"
	"github.com/nmoreau/askme/internal/config"
	"github.com/nmoreau/askme/internal/knowledge"
	"github.com/nmoreau/askme/internal/provider"
	"github.com/nmoreau/askme/internal/ratelimit"
	"github.com/nmoreau/askme/internal/retrieval"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the askme HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpEnabled, _ := cmd.Flags().GetBool("mcp")
		return runServer(mcpEnabled)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also expose the knowledge base as an MCP server on stdio")
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func buildAdapter(cfg config.Config) (provider.Adapter, error) {
	settings := provider.Settings{
		BaseURL:          cfg.Provider.BaseURL,
		Model:            cfg.Provider.Model,
		Timeout:          cfg.Provider.Timeout,
		MaxRetries:       cfg.Provider.MaxRetries,
		InitialBackoff:   cfg.Provider.InitialBackoff,
		MaxMessageLength: cfg.Prompt.MaxMessageLength,
	}
	switch cfg.Provider.Name {
	case provider.NameGroq:
		settings.APIKey = cfg.Provider.GroqAPIKey
	case provider.NameGemini:
		settings.APIKey = cfg.Provider.GeminiAPIKey
	}
	return provider.New(cfg.Provider.Name, settings)
}

func promptDefaults(cfg config.Config) chat.PromptConfig {
	return chat.PromptConfig{
		MaxContextEntries:  cfg.Prompt.MaxContextEntries,
		RelevanceThreshold: cfg.Prompt.RelevanceThreshold,
		Language:           cfg.Prompt.Language,
		IncludeGuardrails:  cfg.Prompt.IncludeGuardrails,
		MaxHistoryTurns:    cfg.Prompt.MaxHistoryTurns,
		MaxMessageLength:   cfg.Prompt.MaxMessageLength,
	}
}

func runServer(mcpEnabled bool) error {
	fmt.Fprintf(os.Stderr, "askme version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg.Log.Level)

	base, err := knowledge.Load(cfg.Knowledge.Source, cfg.Knowledge.MinEntries)
	if err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}
	slog.Info("knowledge base loaded",
		"entries", len(base.Entries),
		"topics", len(base.Topics()),
		"source", cfg.Knowledge.Source)

	adapter, err := buildAdapter(cfg)
	if err != nil {
		return fmt.Errorf("configuring provider %s: %w", cfg.Provider.Name, err)
	}
	slog.Info("provider configured", "provider", adapter.Name())

	limiter := ratelimit.New(ratelimit.Options{
		MaxTokens:  cfg.RateLimit.MaxTokens,
		RefillRate: cfg.RateLimit.RefillRate,
		Window:     cfg.RateLimit.Window,
	})
	defer limiter.Destroy()

	retriever := retrieval.New(base)
	comp := composer.New(retriever, cfg.Persona.Name, cfg.Persona.Title)

	deps := api.Deps{
		Adapter:   adapter,
		Limiter:   limiter,
		Composer:  comp,
		Retriever: retriever,
		Defaults:  promptDefaults(cfg),
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("askme listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if mcpEnabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Base:     base,
			Deps:     deps,
			Persona:  cfg.Persona.Name,
			Language: cfg.Prompt.Language,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
