// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvJSONOverride names the environment variable holding a JSON document merged over main.toml.
	EnvJSONOverride = "NEWSDESK_CONFIG_JSON"

	// EnvPrefix is the prefix for single key overrides, e.g. NEWSDESK_AUTH_TOKENSECRET.
	EnvPrefix = "NEWSDESK"

	// DefaultTokenTTL is the identity token lifetime used when Auth.TokenTTL is unset.
	DefaultTokenTTL = 7 * 24 * time.Hour

	// DefaultClockSkew is the tolerance applied to token expiry and issue times.
	DefaultClockSkew = 30 * time.Second

	// DefaultIssuer is written to the iss claim when Auth.Issuer is unset.
	DefaultIssuer = "newsdesk"

	// DefaultShutDownTime is the graceful shutdown wait in seconds.
	DefaultShutDownTime = 5

	// DefaultCacheSize is the number of roles held by the in-process permission cache.
	DefaultCacheSize = 1024

	// DefaultCacheTTL bounds how long a cached permission set may live.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultRedisKeyPrefix prefixes all permission cache keys in redis.
	DefaultRedisKeyPrefix = "newsdesk:rbac"

	masked = "******"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, "main.toml"))
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvJSONOverride)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// Masked returns a copy of the config with secrets replaced, safe for printing.
func (c Config) Masked() Config {
	if c.DB.Password != "" {
		c.DB.Password = masked
	}

	if c.Auth.TokenSecret != "" {
		c.Auth.TokenSecret = masked
	}

	if c.Cache.Redis.Password != "" {
		c.Cache.Redis.Password = masked
	}

	if c.Seed.AdminPassword != "" {
		c.Seed.AdminPassword = masked
	}

	return c
}

// validate checks the settings the service can not start without and fills in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = DefaultShutDownTime
	}

	if err := validateDB(&c.DB); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	if err := validateAuth(&c.Auth, c.DevMode); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	if err := validateCache(&c.Cache); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}

func validateDB(db *DB) error {
	if db.GormEngine == "" {
		db.GormEngine = EngineMySQL
	}

	switch db.GormEngine {
	case EngineMySQL, EnginePostgres:
		return nil
	case EngineSQLite:
		if db.Path == "" {
			return ErrEmptySQLitePath
		}

		return nil
	default:
		return ErrUnknownDBEngine
	}
}

func validateAuth(a *Auth, devMode bool) error {
	if a.TokenSecret == "" && !devMode {
		return ErrEmptyTokenSecret
	}

	if a.TokenTTL < 0 || a.ClockSkew < 0 || a.DecisionTimeout < 0 {
		return ErrNegativeDuration
	}

	if a.TokenTTL == 0 {
		a.TokenTTL = DefaultTokenTTL
	}

	if a.ClockSkew == 0 {
		a.ClockSkew = DefaultClockSkew
	}

	if a.Issuer == "" {
		a.Issuer = DefaultIssuer
	}

	return nil
}

func validateCache(c *Cache) error {
	if c.Backend == "" {
		c.Backend = CacheNone
	}

	if c.Size < 0 || c.TTL < 0 {
		return ErrNegativeCacheSetting
	}

	if c.Size == 0 {
		c.Size = DefaultCacheSize
	}

	if c.TTL == 0 {
		c.TTL = DefaultCacheTTL
	}

	switch c.Backend {
	case CacheNone, CacheMemory:
		return nil
	case CacheRedis:
		if c.Redis.Addr == "" {
			return ErrEmptyRedisAddr
		}

		if c.Redis.KeyPrefix == "" {
			c.Redis.KeyPrefix = DefaultRedisKeyPrefix
		}

		return nil
	default:
		return ErrUnknownCacheBackend
	}
}
