package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dupatihari/azure-rag-demo/app"
	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Run the insights pipeline once and print the answer JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.New(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			question := cfg.Insights.DefaultQuestion
			if len(args) == 1 {
				question = args[0]
			}
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("a question is required")
			}

			logger, err := initLogger(cfg.Observability)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return ask(ctx, cfg, question, cmd.OutOrStdout(), logger)
		},
	}
}

func ask(ctx context.Context, cfg *config.Config, question string, out io.Writer, logger *zap.Logger) error {
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	env, err := deps.Pipeline.GetInsights(ctx, question)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
