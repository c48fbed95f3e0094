package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// Config holds the embcompare configuration.
type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	Logging        LoggingConfig        `yaml:"logging"`
	Auth           AuthConfig           `yaml:"auth"`
	VectorStore    VectorStoreConfig    `yaml:"vector_store"`
	Compare        CompareConfig        `yaml:"compare"`
	EmbeddingCache EmbeddingCacheConfig `yaml:"embedding_cache"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Providers      []ProviderConfig     `yaml:"providers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Vector store drivers.
const (
	DriverValkey  = "valkey"
	DriverRedis   = "redis"
	DriverQdrant  = "qdrant"
	DriverChromem = "chromem"
)

// VectorStoreConfig selects and configures the vector database.
type VectorStoreConfig struct {
	Driver           string        `yaml:"driver"` // valkey, redis, qdrant, chromem (default: valkey)
	Addrs            []string      `yaml:"addrs"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	VectorField      string        `yaml:"vector_field"`
	TextField        string        `yaml:"text_field"`
	ReadinessTimeout int           `yaml:"readiness_timeout_sec"`
	Qdrant           QdrantConfig  `yaml:"qdrant"`
	Chromem          ChromemConfig `yaml:"chromem"`
}

// QdrantConfig holds qdrant gRPC settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// ChromemConfig holds embedded chromem settings. Empty path keeps the DB in memory.
type ChromemConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// CompareConfig holds dispatcher settings.
type CompareConfig struct {
	DefaultTopK        int         `yaml:"default_top_k"`
	MaxTopK            int         `yaml:"max_top_k"`
	PipelineTimeoutSec int         `yaml:"pipeline_timeout_sec"`
	CollectStats       bool        `yaml:"collect_stats"`
	Retry              RetryConfig `yaml:"retry"`
}

// RetryConfig holds the backoff policy shared by all providers.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms"`
}

// EmbeddingCacheConfig holds the Valkey-backed query embedding cache settings.
type EmbeddingCacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TTLSec    int    `yaml:"ttl_sec"`
	KeyPrefix string `yaml:"key_prefix"`
}

// TracingConfig holds OpenTelemetry OTLP span export settings.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"` // host:port of an OTLP gRPC collector
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate"`
}

// ProviderConfig holds one embedding provider.
type ProviderConfig struct {
	Name              string            `yaml:"name"`
	Kind              string            `yaml:"kind"` // openai, voyage, vertex
	Model             string            `yaml:"model"`
	Dimensions        int               `yaml:"dimensions"`
	APIKey            string            `yaml:"api_key"`
	BaseURL           string            `yaml:"base_url"`
	Project           string            `yaml:"project"`
	Region            string            `yaml:"region"`
	CredentialsFile   string            `yaml:"credentials_file"`
	RequestsPerMinute int               `yaml:"requests_per_minute"`
	Namespaces        map[string]string `yaml:"namespaces"` // domain -> namespace
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env vars, decodes, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.VectorStore.Driver == "" {
		c.VectorStore.Driver = DriverValkey
	}
	if c.VectorStore.VectorField == "" {
		c.VectorStore.VectorField = "embedding"
	}
	if c.VectorStore.TextField == "" {
		c.VectorStore.TextField = "text"
	}
	if c.VectorStore.ReadinessTimeout <= 0 {
		c.VectorStore.ReadinessTimeout = 10
	}
	if c.VectorStore.Qdrant.Port <= 0 {
		c.VectorStore.Qdrant.Port = 6334
	}
	if c.Compare.DefaultTopK <= 0 {
		c.Compare.DefaultTopK = 10
	}
	if c.Compare.MaxTopK <= 0 {
		c.Compare.MaxTopK = domain.MaxTopK
	}
	if c.Compare.PipelineTimeoutSec <= 0 {
		c.Compare.PipelineTimeoutSec = 30
	}
	if c.Compare.Retry.MaxAttempts <= 0 {
		c.Compare.Retry.MaxAttempts = 3
	}
	if c.Compare.Retry.BaseDelayMS <= 0 {
		c.Compare.Retry.BaseDelayMS = 1000
	}
	if c.Compare.Retry.MaxDelayMS <= 0 {
		c.Compare.Retry.MaxDelayMS = 10000
	}
	if c.Tracing.Enabled && c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1
	}
	if c.EmbeddingCache.TTLSec <= 0 {
		c.EmbeddingCache.TTLSec = 7 * 24 * 3600
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		if p.Name == "" {
			p.Name = p.Kind
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.VectorStore.Driver {
	case DriverValkey, DriverRedis:
		if len(c.VectorStore.Addrs) == 0 {
			return fmt.Errorf("vector_store.addrs is required for driver %q", c.VectorStore.Driver)
		}
	case DriverQdrant:
		if c.VectorStore.Qdrant.Host == "" {
			return fmt.Errorf("vector_store.qdrant.host is required")
		}
	case DriverChromem:
	default:
		return fmt.Errorf("vector_store.driver must be one of valkey, redis, qdrant, chromem, got %q", c.VectorStore.Driver)
	}

	if c.EmbeddingCache.Enabled && !c.VectorStore.usesValkey() {
		return fmt.Errorf("embedding_cache requires the valkey or redis driver, got %q", c.VectorStore.Driver)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	if c.Compare.MaxTopK > domain.MaxTopK {
		return fmt.Errorf("compare.max_top_k must be at most %d, got %d", domain.MaxTopK, c.Compare.MaxTopK)
	}
	if c.Compare.DefaultTopK > c.Compare.MaxTopK {
		return fmt.Errorf("compare.default_top_k (%d) exceeds compare.max_top_k (%d)",
			c.Compare.DefaultTopK, c.Compare.MaxTopK)
	}
	if c.Compare.Retry.MaxDelayMS < c.Compare.Retry.BaseDelayMS {
		return fmt.Errorf("compare.retry.max_delay_ms must be >= base_delay_ms")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if err := p.validate(); err != nil {
			return fmt.Errorf("providers[%d]: %w", i, err)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("providers[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func (v VectorStoreConfig) usesValkey() bool {
	return v.Driver == DriverValkey || v.Driver == DriverRedis
}

func (p ProviderConfig) validate() error {
	switch domain.ProviderKind(p.Kind) {
	case domain.KindOpenAI, domain.KindVoyage:
	case domain.KindVertex:
		if p.Project == "" || p.Region == "" {
			return fmt.Errorf("%s: vertex requires project and region", p.Name)
		}
	default:
		return fmt.Errorf("%s: kind must be openai, voyage or vertex, got %q", p.Name, p.Kind)
	}
	if p.Model == "" {
		return fmt.Errorf("%s: model is required", p.Name)
	}
	if p.Dimensions <= 0 {
		return fmt.Errorf("%s: dimensions must be positive", p.Name)
	}
	if p.RequestsPerMinute < 0 {
		return fmt.Errorf("%s: requests_per_minute must not be negative", p.Name)
	}
	for d := range p.Namespaces {
		if _, err := domain.ParseSearchDomain(d); err != nil {
			return fmt.Errorf("%s: namespaces: %w", p.Name, err)
		}
	}
	return nil
}

// CredentialRef describes where a provider's credential comes from without revealing it.
func (p ProviderConfig) CredentialRef() string {
	switch {
	case p.CredentialsFile != "":
		return "file:" + p.CredentialsFile
	case p.APIKey != "":
		return "api_key"
	case domain.ProviderKind(p.Kind) == domain.KindVertex:
		return "application-default"
	default:
		return "none"
	}
}

// DomainProviders converts provider settings into domain configs, preserving order.
func (c *Config) DomainProviders() []domain.ProviderConfig {
	out := make([]domain.ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		ns := make(map[domain.SearchDomain]string, len(p.Namespaces))
		for d, n := range p.Namespaces {
			sd, err := domain.ParseSearchDomain(d)
			if err != nil {
				continue
			}
			ns[sd] = n
		}
		out = append(out, domain.ProviderConfig{
			Name:          p.Name,
			Kind:          domain.ProviderKind(p.Kind),
			Model:         p.Model,
			Dimensions:    p.Dimensions,
			CredentialRef: p.CredentialRef(),
			Namespaces:    ns,
		})
	}
	return out
}

// PipelineTimeout returns the per-pipeline deadline.
func (c CompareConfig) PipelineTimeout() time.Duration {
	return time.Duration(c.PipelineTimeoutSec) * time.Second
}

// BaseDelay returns the initial retry delay.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the retry delay cap.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
