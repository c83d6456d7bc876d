package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Env                string `mapstructure:"env"`
	LocalStackEndpoint string `mapstructure:"localstack_endpoint"`
	Signer             SignerConfig
	Store              StoreConfig
	Redis              RedisConfig
	Query              QueryConfig
}

// SignerConfig holds signer-specific settings.
type SignerConfig struct {
	SocketPath    string `mapstructure:"socket_path"`
	SessionTTLSec int    `mapstructure:"session_ttl_sec"`
	KMSKeyID      string `mapstructure:"kms_key_id"`
	AWSRegion     string `mapstructure:"aws_region"`
}

// StoreConfig selects and configures the Driver the node and certificate
// layers persist through.
type StoreConfig struct {
	// Driver selects the backing implementation: "memory" for the
	// in-memory reference Driver, anything else is rejected at startup
	// until a persistent driver is wired.
	Driver string `mapstructure:"driver"`
}

// RedisConfig holds the connection settings for the warm license-tree
// cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttl_sec"`
}

// TTL returns the warm cache entry lifetime as a time.Duration.
func (r RedisConfig) TTL() time.Duration { return time.Duration(r.TTLSec) * time.Second }

// QueryConfig bounds the query processor's level-synchronous traversal so
// a misconfigured or adversarial request cannot walk the graph unbounded.
type QueryConfig struct {
	MaxLevels        int `mapstructure:"max_levels"`
	MaxCandidates    int `mapstructure:"max_candidates"`
	MaxMatchesTotal  int `mapstructure:"max_matches_total"`
	FetchConcurrency int `mapstructure:"fetch_concurrency"`
}

// Load reads configuration from environment variables prefixed with
// ODINGRAPH_, falling back to the defaults set below.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ODINGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")

	v.SetDefault("signer.socket_path", "/var/run/odingraph/signer.sock")
	v.SetDefault("signer.session_ttl_sec", 3600)
	v.SetDefault("signer.aws_region", "us-east-1")

	v.SetDefault("store.driver", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl_sec", 300)

	v.SetDefault("query.max_levels", 16)
	v.SetDefault("query.max_candidates", 10000)
	v.SetDefault("query.max_matches_total", 1000)
	v.SetDefault("query.fetch_concurrency", 8)

	cfg := &Config{}

	cfg.Env = v.GetString("env")
	cfg.LocalStackEndpoint = v.GetString("localstack_endpoint")

	cfg.Signer = SignerConfig{
		SocketPath:    v.GetString("signer.socket_path"),
		SessionTTLSec: v.GetInt("signer.session_ttl_sec"),
		KMSKeyID:      v.GetString("signer.kms_key_id"),
		AWSRegion:     v.GetString("signer.aws_region"),
	}

	cfg.Store = StoreConfig{
		Driver: v.GetString("store.driver"),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
		TTLSec:   v.GetInt("redis.ttl_sec"),
	}

	cfg.Query = QueryConfig{
		MaxLevels:        v.GetInt("query.max_levels"),
		MaxCandidates:    v.GetInt("query.max_candidates"),
		MaxMatchesTotal:  v.GetInt("query.max_matches_total"),
		FetchConcurrency: v.GetInt("query.fetch_concurrency"),
	}

	return cfg, nil
}
