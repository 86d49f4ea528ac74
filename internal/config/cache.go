package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CacheConfig defines settings for the response cache middleware.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// Only single match lookups go through the cache and running matches are
// never stored, so every cached payload is a FINISHED match.
type CacheConfig struct {
	Enabled      bool            `env:"ENABLED" envDefault:"true"`
	Methods      map[string]bool `env:"-"`
	RawMethods   []string        `env:"METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration   `env:"TTL" envDefault:"30s"`
	KeyStrategy  string          `env:"KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string          `env:"PREFIX" envDefault:"cache"`
	MaxBodyBytes int             `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadCacheConfig reads CACHE_* variables.  Methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	var cfg CacheConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CACHE_"}); err != nil {
		cfg = CacheConfig{
			Enabled:      true,
			RawMethods:   []string{"GET"},
			TTL:          30 * time.Second,
			KeyStrategy:  "route_query",
			Prefix:       "cache",
			MaxBodyBytes: 1 << 20,
		}
	}
	cfg.Methods = parseMethods(cfg.RawMethods)
	return cfg
}

func parseMethods(raw []string) map[string]bool {
	m := map[string]bool{}
	for _, p := range raw {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
