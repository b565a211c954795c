package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Database.Store)
	assert.Equal(t, []string{"*"}, cfg.Security.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Redis.DirectoryTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE", StoreMemory)
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("ROLE_REGISTRY_FILE", "/etc/suivi/roles.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Database.Store)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Security.RateLimitWindow)
	assert.Equal(t, 300, cfg.Security.RateLimitRequests)
	assert.Equal(t, "/etc/suivi/roles.yaml", cfg.Domain.RoleRegistryFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port is required"},
		{name: "unknown store", mutate: func(c *Config) { c.Database.Store = "mongo" }, wantErr: `unknown store "mongo"`},
		{
			name:    "postgres needs a URL",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "database URL is required for the postgres store",
		},
		{
			name: "memory store refused in production",
			mutate: func(c *Config) {
				c.Database.Store = StoreMemory
				c.Server.Environment = "production"
				c.Security.JWTSecret = "s3cret"
			},
			wantErr: "the memory store cannot be used in production",
		},
		{
			name:    "rate limit needs redis",
			mutate:  func(c *Config) { c.Security.RateLimitEnabled = true },
			wantErr: "rate limiting requires REDIS_URL",
		},
		{
			name:    "default secret refused in production",
			mutate:  func(c *Config) { c.Server.Environment = "production" },
			wantErr: "JWT secret must be set in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
