package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/dupatihari/azure-rag-demo/mcpserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMCPCmd() *cobra.Command {
	var stdio bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose get_campaign_insights as an MCP tool",
		Long: `Starts an MCP server that forwards get_campaign_insights calls to INSIGHTS_FUNCTION_URL.
By default it serves streamable HTTP at /mcp; --stdio serves over stdin/stdout instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serveMCP(ctx, stdio)
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve over stdin/stdout")
	return cmd
}

func serveMCP(ctx context.Context, stdio bool) error {
	cfg, err := config.NewToolAdapter(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	s := mcpserver.New(cfg, version, logger)

	if stdio {
		logger.Info("serving mcp over stdio")
		return s.ServeStdio()
	}

	if cfg.APIKey == "" && cfg.JWTSecret == "" {
		logger.Warn("mcp endpoint is unauthenticated")
	}

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: s.Handler(),
	}
	logger.Info("starting mcp tool adapter",
		zap.String("path", mcpserver.EndpointPath),
		zap.Float64("rate_limit_rps", cfg.RateLimitRPS))

	return runServer(ctx, srv, cfg.RequestTimeout, logger)
}
