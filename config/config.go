// Package config loads facade settings from an optional YAML file and
// CCFACADE_* environment variables on top of defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/unkn0wn-root/ccfacade/retry"
)

const EnvPrefix = "CCFACADE"

type Config struct {
	Project   string          `mapstructure:"project"`
	Schema    string          `mapstructure:"schema"`
	Backoff   BackoffConfig   `mapstructure:"backoff"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Log       LogConfig       `mapstructure:"log"`
}

type BackoffConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

func (b BackoffConfig) Policy() retry.Policy {
	return retry.Policy{
		InitialDelay: b.InitialDelay,
		Multiplier:   b.Multiplier,
		MaxDelay:     b.MaxDelay,
		MaxAttempts:  b.MaxAttempts,
	}
}

// StoreConfig selects the backing store.
//
// Only redis is shared and durable. bigcache and ristretto keep records in
// the process that wrote them, so separate CLI runs never see each other's
// records. ristretto may also decline a write (admission, or a full set
// buffer), which surfaces as docstore.ErrRejected, and may evict an accepted
// record later, so a read after a successful store can miss.
type StoreConfig struct {
	Backend        string        `mapstructure:"backend"` // redis | bigcache | ristretto
	Codec          string        `mapstructure:"codec"`   // json | msgpack | cbor
	MaxRecordBytes int           `mapstructure:"max_record_bytes"`
	RecordTTL      time.Duration `mapstructure:"record_ttl"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	GenTTL       time.Duration `mapstructure:"gen_ttl"`
	CommitLease  time.Duration `mapstructure:"commit_lease"`
}

type PublisherConfig struct {
	StreamPrefix string `mapstructure:"stream_prefix"`
	Source       string `mapstructure:"source"`
	Channel      string `mapstructure:"channel"`
	MaxLen       int64  `mapstructure:"max_len"` // approximate cap per stream; 0 => unbounded
}

type UpstreamConfig struct {
	CaseServiceURL  string        `mapstructure:"case_service_url"`
	AddressIndexURL string        `mapstructure:"address_index_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Backend string `mapstructure:"backend"` // zap | logrus | slog
	Level   string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	p := retry.DefaultPolicy()
	v.SetDefault("project", "")
	v.SetDefault("schema", "cachedcase")

	v.SetDefault("backoff.initial_delay", p.InitialDelay)
	v.SetDefault("backoff.multiplier", p.Multiplier)
	v.SetDefault("backoff.max_delay", p.MaxDelay)
	v.SetDefault("backoff.max_attempts", p.MaxAttempts)

	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.codec", "json")
	v.SetDefault("store.max_record_bytes", 1<<20)
	v.SetDefault("store.record_ttl", time.Duration(0))

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.gen_ttl", time.Duration(0))
	v.SetDefault("redis.commit_lease", 10*time.Second)

	v.SetDefault("publisher.stream_prefix", "ccfacade:")
	v.SetDefault("publisher.source", "CONTACT_CENTRE_API")
	v.SetDefault("publisher.channel", "CC")
	v.SetDefault("publisher.max_len", int64(100_000))

	v.SetDefault("upstream.case_service_url", "http://localhost:8161")
	v.SetDefault("upstream.address_index_url", "http://localhost:9000")
	v.SetDefault("upstream.timeout", 5*time.Second)

	v.SetDefault("log.backend", "zap")
	v.SetDefault("log.level", "info")
}

// Load reads path (if non-empty) and the environment. CCFACADE_BACKOFF_MAX_ATTEMPTS
// overrides backoff.max_attempts, and so on.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// InProcessStore reports whether records live only in this process.
func (c *Config) InProcessStore() bool {
	return c.Store.Backend == "bigcache" || c.Store.Backend == "ristretto"
}

func (c *Config) Validate() error {
	var errs []error
	if c.Project == "" {
		errs = append(errs, errors.New("project is required"))
	}
	if c.Schema == "" {
		errs = append(errs, errors.New("schema is required"))
	}
	if c.Backoff.MaxAttempts <= 0 {
		errs = append(errs, errors.New("backoff.max_attempts must be positive"))
	}
	switch c.Store.Backend {
	case "redis", "bigcache", "ristretto":
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of redis, bigcache, ristretto", c.Store.Backend))
	}
	switch c.Store.Codec {
	case "json", "msgpack", "cbor":
	default:
		errs = append(errs, fmt.Errorf("store.codec %q is not one of json, msgpack, cbor", c.Store.Codec))
	}
	switch c.Log.Backend {
	case "zap", "logrus", "slog":
	default:
		errs = append(errs, fmt.Errorf("log.backend %q is not one of zap, logrus, slog", c.Log.Backend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
