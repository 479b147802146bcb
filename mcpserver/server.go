// Package mcpserver exposes the insights endpoint as an MCP tool.
//
// The server holds no pipeline of its own. Every tool call is forwarded
// as one HTTP GET to the configured insights URL.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/dupatihari/azure-rag-demo/middleware"
	"github.com/dupatihari/azure-rag-demo/utils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	ServerName   = "campaign-insights-mcp"
	ToolName     = "get_campaign_insights"
	EndpointPath = "/mcp"
)

// Server is the MCP tool adapter
type Server struct {
	mcp     *server.MCPServer
	cfg     *config.ToolAdapterConfig
	fetcher InsightsFetcher
	logger  *zap.Logger
}

// New creates the adapter for cfg.FunctionURL
func New(cfg *config.ToolAdapterConfig, version string, logger *zap.Logger) *Server {
	return NewWithFetcher(cfg, version, NewInsightsClient(cfg.FunctionURL, cfg.RequestTimeout, logger), logger)
}

// NewWithFetcher creates the adapter with a custom fetcher
func NewWithFetcher(cfg *config.ToolAdapterConfig, version string, fetcher InsightsFetcher, logger *zap.Logger) *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
	}
	s.mcp.AddTool(insightsTool(), s.handleGetCampaignInsights)
	return s
}

func insightsTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Answer a question about marketing campaigns from the indexed campaign documents. "+
			"Returns JSON: {question, rag: {summary, keyPoints, recommendations}, citations: [{id, title, source}]}"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural-language question about a campaign"),
		),
	)
}

func (s *Server) handleGetCampaignInsights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	body, err := s.fetcher.FetchInsights(ctx, question)
	if err != nil {
		s.logger.Warn("insights tool call failed", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(body), nil
}

// Handler serves streamable HTTP at /mcp behind the configured access gate
func (s *Server) Handler() http.Handler {
	auth := middleware.NewAuthMiddleware(
		middleware.NewAuthenticator(s.cfg.APIKey, s.cfg.JWTSecret, s.cfg.JWTIssuer), s.logger)
	limiter := middleware.NewRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, s.logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, map[string]string{"status": "healthy"})
	})

	streamable := server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(EndpointPath))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Use(limiter.Limit)
		r.Handle(EndpointPath, streamable)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})
	return r
}

// ServeStdio serves the tool over stdin/stdout until the input closes
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
