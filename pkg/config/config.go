package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is read when present. Missing file means env-only configuration.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for ekaya-sqlchat.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"5001"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// CORSAllowedOriginsStr is a comma-separated list of browser origins allowed to call the API.
	CORSAllowedOriginsStr string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`

	// CORSAllowedOrigins is the parsed list from CORSAllowedOriginsStr (not from config file).
	CORSAllowedOrigins []string `yaml:"-"`

	// Datasource the questions are asked against
	Datasource DatasourceConfig `yaml:"datasource"`

	// Language model used for SQL generation
	LLM LLMConfig `yaml:"llm"`

	// Per-stage timeouts
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// Query execution and forwarding
	Query QueryConfig `yaml:"query"`
}

// DatasourceConfig holds the connection parameters for the target database server.
// The database name is chosen per request.
type DatasourceConfig struct {
	Type                  string `yaml:"type" env:"DB_TYPE" env-default:"mysql"`
	Host                  string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port                  int    `yaml:"port" env:"DB_PORT" env-default:"0"` // 0 = dialect default
	User                  string `yaml:"user" env:"DB_USER" env-default:"root"`
	Password              string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	SSLMode               string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:""`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds" env:"DB_CONNECT_TIMEOUT_SECONDS" env-default:"10"`
}

// LLMConfig holds the language-model provider settings.
type LLMConfig struct {
	// Provider is "openai" for any OpenAI-compatible endpoint (OpenAI, Groq, vLLM, Ollama)
	// or "anthropic" for the Anthropic Messages API.
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL     string  `yaml:"base_url" env:"LLM_BASE_URL" env-default:""` // empty = provider default
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"llama-3.3-70b-versatile"`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.2"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"512"`
	MaxRetries  int     `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"2"`

	// Circuit breaker: trip after CircuitThreshold consecutive failures,
	// probe again after CircuitResetSeconds.
	CircuitThreshold    int `yaml:"circuit_threshold" env:"LLM_CIRCUIT_THRESHOLD" env-default:"5"`
	CircuitResetSeconds int `yaml:"circuit_reset_seconds" env:"LLM_CIRCUIT_RESET_SECONDS" env-default:"30"`
}

// Provider endpoints used when LLM_BASE_URL is empty.
const (
	DefaultOpenAIBaseURL    = "https://api.groq.com/openai/v1"
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
)

// EffectiveBaseURL returns BaseURL, or the provider's default endpoint when unset.
func (l LLMConfig) EffectiveBaseURL() string {
	if l.BaseURL != "" {
		return l.BaseURL
	}
	if l.Provider == "anthropic" {
		return DefaultAnthropicBaseURL
	}
	return DefaultOpenAIBaseURL
}

// TimeoutConfig bounds each blocking stage of the pipeline.
type TimeoutConfig struct {
	SchemaSeconds int `yaml:"schema_seconds" env:"SCHEMA_TIMEOUT_SECONDS" env-default:"10"`
	LLMSeconds    int `yaml:"llm_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"30"`
	QuerySeconds  int `yaml:"query_seconds" env:"QUERY_TIMEOUT_SECONDS" env-default:"30"`
}

// QueryConfig controls statement execution and the optional query-service hop.
type QueryConfig struct {
	// ReadOnly rejects statements that are not reads before they reach the database.
	ReadOnly bool `yaml:"read_only" env:"QUERY_READ_ONLY" env-default:"false"`

	// ServiceURL forwards /query, /databases and /columns to a separate query
	// service when set. Empty means the pipeline runs in-process.
	ServiceURL string `yaml:"service_url" env:"QUERY_SERVICE_URL" env-default:""`

	// HistorySize is how many successful runs are kept for GET /history.
	HistorySize int `yaml:"history_size" env:"QUERY_HISTORY_SIZE" env-default:"100"`
}

// Schema returns the schema introspection timeout.
func (t TimeoutConfig) Schema() time.Duration { return time.Duration(t.SchemaSeconds) * time.Second }

// LLM returns the language-model call timeout.
func (t TimeoutConfig) LLM() time.Duration { return time.Duration(t.LLMSeconds) * time.Second }

// Query returns the statement execution timeout.
func (t TimeoutConfig) Query() time.Duration { return time.Duration(t.QuerySeconds) * time.Second }

// Load reads configuration from config.yaml (if present) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (DB_PASSWORD, LLM_API_KEY) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.parseComplexFields()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.CORSAllowedOrigins = parseList(c.CORSAllowedOriginsStr)
	c.Datasource.Type = strings.ToLower(strings.TrimSpace(c.Datasource.Type))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
}

// Validate checks that the configuration can run the service.
func (c *Config) Validate() error {
	var errs []error

	switch c.Datasource.Type {
	case "mysql", "postgres", "mssql":
	default:
		errs = append(errs, fmt.Errorf("unsupported datasource type %q (want mysql, postgres or mssql)", c.Datasource.Type))
	}
	if strings.TrimSpace(c.Datasource.Host) == "" {
		errs = append(errs, errors.New("datasource host is required"))
	}
	if c.Datasource.Port < 0 || c.Datasource.Port > 65535 {
		errs = append(errs, fmt.Errorf("datasource port %d out of range", c.Datasource.Port))
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm provider %q (want openai or anthropic)", c.LLM.Provider))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm model is required"))
	}
	if c.LLM.APIKey == "" && !isLocalEndpoint(c.LLM.EffectiveBaseURL()) {
		errs = append(errs, errors.New("LLM_API_KEY is required for non-local endpoints"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errs = append(errs, fmt.Errorf("llm temperature %.2f must be between 0 and 1", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm max_tokens must be positive"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm max_retries must not be negative"))
	}

	if c.Timeouts.SchemaSeconds <= 0 || c.Timeouts.LLMSeconds <= 0 || c.Timeouts.QuerySeconds <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}

	if c.Query.ServiceURL != "" {
		if u, err := url.Parse(c.Query.ServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("query service_url %q is not an absolute URL", c.Query.ServiceURL))
		}
	}

	return errors.Join(errs...)
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}

// IsLocal reports whether the service runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// isLocalEndpoint returns true for endpoints that usually run without an API key (Ollama, vLLM).
func isLocalEndpoint(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "host.docker.internal":
		return true
	}
	return false
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
