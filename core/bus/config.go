package bus

import "github.com/dmitrymomot/msgbus/core/config"

// Config holds the bus settings that can be supplied through the environment.
type Config struct {
	// StreamBufferSize is the per-stream buffer used by PublishSequence providers.
	StreamBufferSize int `env:"BUS_STREAM_BUFFER_SIZE" envDefault:"1"`

	// MaxRepublishDepth bounds recursive republishing of returned messages.
	// Zero means unlimited.
	MaxRepublishDepth int `env:"BUS_MAX_REPUBLISH_DEPTH" envDefault:"0"`

	// ResolverCacheSize is the number of message types whose matching
	// subscriptions are memoized.
	ResolverCacheSize int `env:"BUS_RESOLVER_CACHE_SIZE" envDefault:"512"`

	// DefaultMaxParallelism bounds Parallel subscriptions that set no limit of
	// their own. Zero means unbounded.
	DefaultMaxParallelism int `env:"BUS_DEFAULT_MAX_PARALLELISM" envDefault:"0"`
}

// DefaultConfig returns the settings used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		StreamBufferSize:  1,
		ResolverCacheSize: 512,
	}
}

// NewFromEnv loads Config from the environment and creates a bus with it.
// Options are applied after the loaded configuration and may override it.
func NewFromEnv(opts ...Option) (*Bus, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return New(append([]Option{WithConfig(cfg)}, opts...)...)
}
