package embcompare

import (
	"log/slog"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type providerEntry struct {
	provider Provider
	embedder Embedder
}

type clientConfig struct {
	driver      string // "valkey", "redis", "qdrant" or "chromem"
	addrs       []string
	password    string
	vectorField string
	qdrantHost  string
	qdrantPort  int
	qdrantKey   string
	chromemDB   *chromem.DB

	providers []providerEntry

	defaultTopK     int
	maxTopK         int
	pipelineTimeout time.Duration
	maxAttempts     int
	baseDelay       time.Duration
	maxDelay        time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to search a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to search a Redis Stack instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithVectorField sets the indexed vector attribute used by Valkey/Redis KNN queries.
// Default: "embedding".
func WithVectorField(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorField = name
	})
}

// WithQdrant configures the client to search a Qdrant instance over gRPC.
func WithQdrant(host string, port int, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "qdrant"
		c.qdrantHost = host
		c.qdrantPort = port
		c.qdrantKey = apiKey
	})
}

// WithChromem searches an embedded chromem-go database.
// Namespaces map to collections of d.
func WithChromem(d *chromem.DB) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "chromem"
		c.chromemDB = d
	})
}

// WithProvider adds a provider. Providers are compared in the order they are added.
func WithProvider(p Provider, e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.providers = append(c.providers, providerEntry{provider: p, embedder: e})
	})
}

// WithTopK sets the default and maximum number of matches per provider.
// Defaults: 5 and 100.
func WithTopK(defaultTopK, maxTopK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = defaultTopK
		c.maxTopK = maxTopK
	})
}

// WithPipelineTimeout bounds one provider's embed and search. Default: 30s.
func WithPipelineTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.pipelineTimeout = d
	})
}

// WithRetry configures exponential backoff for transient failures.
// Defaults: 3 attempts, 1s base delay, 10s cap.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
