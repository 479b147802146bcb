package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dupatihari/azure-rag-demo/services"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	SearchBackendAzure    = "azure"
	SearchBackendWeaviate = "weaviate"

	ProviderAzureOpenAI = "azure-openai"
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Search        SearchConfig
	Completion    CompletionConfig
	Storage       StorageConfig
	Database      *DatabaseConfig // Optional: audit trail is disabled when nil
	Insights      InsightsConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int `env:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// AdminAPIKey guards the audit listing. Empty leaves it unmounted.
	AdminAPIKey string
}

// SearchConfig describes the document index queried by the retriever.
// For the weaviate backend Endpoint is the Weaviate URL and Index the class name.
type SearchConfig struct {
	Backend      string `env:"SEARCH_BACKEND" validate:"oneof=azure weaviate"`
	Endpoint     string `env:"SEARCH_ENDPOINT" validate:"required,url"`
	Index        string `env:"SEARCH_INDEX" validate:"required"`
	APIKey       string `env:"SEARCH_API_KEY" validate:"required_if=Backend azure"`
	APIVersion   string `env:"SEARCH_API_VERSION"`
	TitleField   string `env:"SEARCH_TITLE_FIELD" validate:"required"`
	IDField      string `env:"SEARCH_ID_FIELD" validate:"required"`
	ContentField string `env:"SEARCH_CONTENT_FIELD" validate:"required"`
	SourceField  string `env:"SEARCH_SOURCE_FIELD"` // defaults to TitleField
	Timeout      time.Duration
}

// CompletionConfig describes the chat completion deployment
type CompletionConfig struct {
	Provider   string `env:"COMPLETION_PROVIDER" validate:"oneof=azure-openai openai gemini"`
	Endpoint   string `env:"COMPLETION_ENDPOINT" validate:"required_unless=Provider gemini"`
	APIKey     string `env:"COMPLETION_API_KEY" validate:"required"`
	Model      string `env:"COMPLETION_MODEL" validate:"required"`
	APIVersion string `env:"COMPLETION_API_VERSION"`
	Timeout    time.Duration
}

// StorageConfig holds the optional object store used to resolve document URLs
type StorageConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	URLExpiry time.Duration
}

// Enabled reports whether document URL resolution is configured
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// InsightsConfig holds pipeline policy
type InsightsConfig struct {
	// DefaultQuestion is used when a request carries no question. Empty disables the fallback.
	DefaultQuestion string
	TopK            int `env:"INSIGHTS_TOP_K" validate:"gt=0"`
	RequestTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `env:"LOG_LEVEL" validate:"required"`
	LogFormat string `env:"LOG_FORMAT" validate:"oneof=json console text"`
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(8080, "PORT", "SERVER_PORT"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
			AdminAPIKey:     getEnv("ADMIN_API_KEY", ""),
		},
		Search: SearchConfig{
			Backend:      getEnv("SEARCH_BACKEND", SearchBackendAzure),
			Endpoint:     getEnv("SEARCH_ENDPOINT", ""),
			Index:        getEnv("SEARCH_INDEX", ""),
			APIKey:       getEnv("SEARCH_API_KEY", ""),
			APIVersion:   getEnv("SEARCH_API_VERSION", "2023-11-01"),
			TitleField:   getEnv("SEARCH_TITLE_FIELD", "name"),
			IDField:      getEnv("SEARCH_ID_FIELD", "id"),
			ContentField: getEnv("SEARCH_CONTENT_FIELD", "content"),
			SourceField:  getEnv("SEARCH_SOURCE_FIELD", ""),
			Timeout:      getEnvAsDuration("SEARCH_TIMEOUT", 30*time.Second),
		},
		Completion: CompletionConfig{
			Provider:   getEnv("COMPLETION_PROVIDER", ProviderAzureOpenAI),
			Endpoint:   getEnv("COMPLETION_ENDPOINT", ""),
			APIKey:     getEnv("COMPLETION_API_KEY", ""),
			Model:      getEnv("COMPLETION_MODEL", ""),
			APIVersion: getEnv("COMPLETION_API_VERSION", "2024-02-15-preview"),
			Timeout:    getEnvAsDuration("COMPLETION_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Region:    getEnv("STORAGE_REGION", ""),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", true),
			URLExpiry: getEnvAsDuration("STORAGE_URL_EXPIRY", time.Hour),
		},
		Database: loadDatabaseConfig(),
		Insights: InsightsConfig{
			DefaultQuestion: getEnv("INSIGHTS_DEFAULT_QUESTION", ""),
			TopK:            getEnvAsInt("INSIGHTS_TOP_K", 5),
			RequestTimeout:  getEnvAsDuration("INSIGHTS_REQUEST_TIMEOUT", 90*time.Second),
		},
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if err := validateStruct(c.Server, c.Search, c.Completion, c.Insights, c.Observability); err != nil {
		return err
	}

	if err := validate.Var(c.Completion.Endpoint, "omitempty,url"); err != nil {
		return services.NewDomainError(services.ErrorTypeConfiguration,
			"invalid configuration: COMPLETION_ENDPOINT", err).WithDetail("COMPLETION_ENDPOINT", "must be a valid URL")
	}

	if c.Database != nil && c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return services.WrapConfiguration("database user is required", nil)
		}
		if c.Database.Database == "" {
			return services.WrapConfiguration("database name is required", nil)
		}
	}

	return nil
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars.
// Returns nil when neither is set.
func loadDatabaseConfig() *DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return &pool
	}
	if host := getEnv("DB_HOST", ""); host != "" {
		pool.Host = host
		pool.Port = getEnvAsInt("DB_PORT", 5432)
		pool.User = getEnv("DB_USER", "")
		pool.Password = getEnv("DB_PASSWORD", "")
		pool.Database = getEnv("DB_NAME", "")
		pool.SSLMode = getEnv("DB_SSLMODE", "disable")
		return &pool
	}
	return nil
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report failures by environment variable name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// validateStruct runs tag validation over each section and folds failures
// into a single configuration error naming every offending variable.
func validateStruct(sections ...interface{}) error {
	fields := make(map[string]string)
	for _, s := range sections {
		err := validate.Struct(s)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return services.WrapConfiguration("invalid configuration", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe)
		}
	}
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	domainErr := services.NewDomainError(services.ErrorTypeConfiguration,
		"invalid configuration: "+strings.Join(names, ", "), nil)
	for name, msg := range fields {
		domainErr.WithDetail(name, msg)
	}
	return domainErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}

// Helper functions

// getPort returns the first parseable port among keys, or def
func getPort(def int, keys ...string) int {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return def
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
