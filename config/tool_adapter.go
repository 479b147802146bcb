package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// ToolAdapterConfig configures the MCP server that forwards tool calls
// to the insights HTTP endpoint.
type ToolAdapterConfig struct {
	Host string
	Port int `env:"PORT" validate:"gt=0,lte=65535"`

	// FunctionURL is the insights endpoint, e.g. https://host/api/getcampaigninsights
	FunctionURL    string `env:"INSIGHTS_FUNCTION_URL" validate:"required,url"`
	RequestTimeout time.Duration

	// Access gate. APIKey wins when both are set; neither leaves the server open.
	APIKey    string
	JWTSecret string
	JWTIssuer string

	RateLimitRPS   float64
	RateLimitBurst int

	Observability ObservabilityConfig
	Environment   string
}

// NewToolAdapter loads the MCP adapter configuration from the environment
func NewToolAdapter(ctx context.Context) (*ToolAdapterConfig, error) {
	_ = godotenv.Load(".env")

	cfg := &ToolAdapterConfig{
		Host:           getEnv("MCP_HOST", "0.0.0.0"),
		Port:           getPort(8000, "MCP_PORT", "PORT"),
		FunctionURL:    getEnv("INSIGHTS_FUNCTION_URL", getEnv("CAMPAIGN_INSIGHTS_FUNCTION_URL", "")),
		RequestTimeout: getEnvAsDuration("INSIGHTS_FUNCTION_TIMEOUT", 60*time.Second),
		APIKey:         getEnv("MCP_API_KEY", ""),
		JWTSecret:      getEnv("MCP_JWT_SECRET", ""),
		JWTIssuer:      getEnv("MCP_JWT_ISSUER", ""),
		RateLimitRPS:   getEnvAsFloat("MCP_RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvAsInt("MCP_RATE_LIMIT_BURST", 5),
		Observability:  loadObservabilityConfig(),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the adapter configuration
func (c *ToolAdapterConfig) Validate() error {
	return validateStruct(*c)
}

// Address returns the listen address
func (c *ToolAdapterConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
