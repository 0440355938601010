package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectConfigPath(t *testing.T) string {
	t.Helper()

	// Get the project root by going up from internal/config
	projectRoot, err := filepath.Abs("../../")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(projectConfigPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	// Test basic config fields
	if cfg.Title == "" {
		t.Error("Config.Title should not be empty")
	}

	if cfg.Webserver.Port == 0 {
		t.Error("Webserver.Port should not be 0")
	}

	if cfg.Webserver.URL == "" {
		t.Error("Webserver.URL should not be empty")
	}

	assert.Equal(t, EngineSQLite, cfg.DB.GormEngine)
	assert.Equal(t, 200*time.Millisecond, cfg.DB.SlowThreshold)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, DefaultClockSkew, cfg.Auth.ClockSkew)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, "newsdesk-api", cfg.Log.ServiceName)
	assert.True(t, cfg.Log.Console.Enabled)
	assert.Equal(t, "access.log", cfg.Log.File.AccessLog)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir())
	require.Error(t, err)
}

func TestReadConfigJSONOverride(t *testing.T) {
	t.Setenv(EnvJSONOverride, `{"Title":"override","Webserver":{"Port":4000,"URL":"http://example.com"}}`)

	cfg, err := ReadConfig(projectConfigPath(t))
	require.NoError(t, err)

	assert.Equal(t, "override", cfg.Title)
	assert.Equal(t, 4000, cfg.Webserver.Port)
	// untouched keys keep their file values
	assert.Equal(t, EngineSQLite, cfg.DB.GormEngine)
}

func TestReadConfigBrokenJSONOverride(t *testing.T) {
	t.Setenv(EnvJSONOverride, `{"Title":`)

	_, err := ReadConfig(projectConfigPath(t))
	require.Error(t, err)
}

func TestReadConfigEnvKeyOverride(t *testing.T) {
	t.Setenv("NEWSDESK_AUTH_TOKENSECRET", "from-env-secret")

	cfg, err := ReadConfig(projectConfigPath(t))
	require.NoError(t, err)

	assert.Equal(t, "from-env-secret", cfg.Auth.TokenSecret)
}

func validConfig() Config {
	return Config{
		Title: "test",
		DB:    DB{GormEngine: EngineMySQL},
		Webserver: Webserver{
			Port: 3001,
			URL:  "http://localhost",
		},
		Auth: Auth{TokenSecret: "secret"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name: "valid",
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Webserver.Port = 0 },
			wantErr: ErrWebServerPortCanNotBeZero,
		},
		{
			name:    "empty url",
			mutate:  func(c *Config) { c.Webserver.URL = "" },
			wantErr: ErrEmptyURL,
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.DB.GormEngine = "oracle" },
			wantErr: ErrUnknownDBEngine,
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.DB.GormEngine = EngineSQLite },
			wantErr: ErrEmptySQLitePath,
		},
		{
			name:    "missing token secret",
			mutate:  func(c *Config) { c.Auth.TokenSecret = "" },
			wantErr: ErrEmptyTokenSecret,
		},
		{
			name: "missing token secret in dev mode",
			mutate: func(c *Config) {
				c.Auth.TokenSecret = ""
				c.DevMode = true
			},
		},
		{
			name:    "negative ttl",
			mutate:  func(c *Config) { c.Auth.TokenTTL = -time.Second },
			wantErr: ErrNegativeDuration,
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: ErrUnknownCacheBackend,
		},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.Cache.Backend = CacheRedis },
			wantErr: ErrEmptyRedisAddr,
		},
		{
			name:    "negative cache size",
			mutate:  func(c *Config) { c.Cache.Size = -1 },
			wantErr: ErrNegativeCacheSetting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			err := validate(&cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.DB.GormEngine = ""
	cfg.Cache.Backend = CacheRedis
	cfg.Cache.Redis.Addr = "localhost:6379"

	require.NoError(t, validate(&cfg))

	assert.Equal(t, EngineMySQL, cfg.DB.GormEngine)
	assert.Equal(t, DefaultShutDownTime, cfg.Webserver.ShutDownTime)
	assert.Equal(t, DefaultTokenTTL, cfg.Auth.TokenTTL)
	assert.Equal(t, DefaultClockSkew, cfg.Auth.ClockSkew)
	assert.Equal(t, DefaultIssuer, cfg.Auth.Issuer)
	assert.Equal(t, DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, DefaultRedisKeyPrefix, cfg.Cache.Redis.KeyPrefix)
}

func TestMaskedAndDump(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = "db-pass"
	cfg.Cache.Redis.Password = "redis-pass"

	m := cfg.Masked()
	assert.Equal(t, masked, m.Auth.TokenSecret)
	assert.Equal(t, masked, m.DB.Password)
	assert.Equal(t, masked, m.Cache.Redis.Password)
	assert.Empty(t, m.Seed.AdminPassword)
	// original untouched
	assert.Equal(t, "secret", cfg.Auth.TokenSecret)

	out, err := DumpConfig(m)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.NotContains(t, out, "db-pass")

	out, err = DumpConfigJSON(m)
	require.NoError(t, err)
	assert.Contains(t, out, `"Title": "test"`)
	assert.NotContains(t, out, "redis-pass")
}
