// Package config loads webflow settings from flags, WEBFLOW_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aretw0/webflow/internal/logging"
)

// EnvPrefix prefixes every environment variable: WEBFLOW_STORE, WEBFLOW_REDIS_ADDR...
const EnvPrefix = "WEBFLOW"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the resolved application configuration.
type Config struct {
	Store         string        `mapstructure:"store" validate:"oneof=memory file redis sqlite"`
	Codec         string        `mapstructure:"codec" validate:"oneof=gob json"`
	FileDir       string        `mapstructure:"file-dir" validate:"required_if=Store file"`
	SQLitePath    string        `mapstructure:"sqlite-path" validate:"required_if=Store sqlite"`
	RedisAddr     string        `mapstructure:"redis-addr" validate:"required_if=Store redis"`
	RedisPassword string        `mapstructure:"redis-password"`
	RedisDB       int           `mapstructure:"redis-db" validate:"gte=0"`
	RedisPrefix   string        `mapstructure:"redis-prefix"`
	RedisTTL      time.Duration `mapstructure:"redis-ttl" validate:"gte=0"`
	EncryptionKey string        `mapstructure:"encryption-key" validate:"omitempty,len=64,hexadecimal"`
	CacheTTL      time.Duration `mapstructure:"cache-ttl" validate:"gte=0"`
	LockTTL       time.Duration `mapstructure:"lock-ttl" validate:"gte=0"`
	HTTPAddr      string        `mapstructure:"http-addr" validate:"required"`
	LogLevel      string        `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	LogFormat     string        `mapstructure:"log-format" validate:"oneof=text json"`
	Strict        bool          `mapstructure:"strict"`
}

// RegisterFlags adds one flag per setting to fs, with the defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file (yaml, json or toml)")
	fs.String("store", StoreMemory, "Execution store: memory, file, redis or sqlite")
	fs.String("codec", "gob", "Snapshot codec: gob or json")
	fs.String("file-dir", ".webflow/executions", "Directory of the file store")
	fs.String("sqlite-path", "webflow.db", "Database path of the sqlite store")
	fs.String("redis-addr", "localhost:6379", "Address of the redis store")
	fs.String("redis-password", "", "Password of the redis store")
	fs.Int("redis-db", 0, "Database number of the redis store")
	fs.String("redis-prefix", "", "Key prefix of the redis store (default webflow:execution:)")
	fs.Duration("redis-ttl", 0, "Expiry of stored executions in redis (0 keeps them)")
	fs.String("encryption-key", "", "Hex encoded 32 byte key encrypting stored snapshots")
	fs.Duration("cache-ttl", 0, "In-memory snapshot cache expiry (0 disables the cache)")
	fs.Duration("lock-ttl", 30*time.Second, "Expiry of distributed execution locks")
	fs.String("http-addr", ":8080", "Listen address of the HTTP and SSE servers")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("log-format", "text", "Log record format on Stderr: text or json")
	fs.Bool("strict", false, "Reject events whose state id does not match the stored position")
}

// Load resolves the configuration. fs may be nil, in which case only the
// environment and the defaults apply.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if fs == nil {
		fs = pflag.NewFlagSet("webflow", pflag.ContinueOnError)
		RegisterFlags(fs)
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Key decodes EncryptionKey. It returns nil when encryption is off.
func (c *Config) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	return key, nil
}
