// Package config loads typed configuration from environment variables.
// Each configuration type is parsed once and cached for subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/msgbus/core/config"
//
//	type WorkerConfig struct {
//		Concurrency int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
//		Timeout     time.Duration `env:"WORKER_TIMEOUT" envDefault:"30s"`
//		Queue       string        `env:"WORKER_QUEUE,required"`
//	}
//
//	func main() {
//		var cfg WorkerConfig
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// The bus package reads its own settings this way, see bus.NewFromEnv.
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 WorkerConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 WorkerConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently:
//
//	type MetricsConfig struct {
//		Namespace string `env:"METRICS_NAMESPACE" envDefault:"app"`
//	}
//
//	// Each type has its own cache entry
//	config.MustLoad(&WorkerConfig{})
//	config.MustLoad(&MetricsConfig{})
//
// Parse failures wrap ErrParsing. A failed load is not cached.
package config
