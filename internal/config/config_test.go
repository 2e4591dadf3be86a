package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hsrelay/internal/hubspot"
)

func TestGetConfigDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("HSRELAY_ENV", Test)

	c := GetConfig()

	assert.Equal(t, "hsrelay", c.AppName)
	assert.Equal(t, "3000", c.AppPort)
	assert.True(t, c.IsTest())
	assert.Equal(t, string(hubspot.FormsAPIIntegration), c.FormsAPI)
	assert.Equal(t, 4, c.DispatchWorkers)
	assert.True(t, c.SkipBots)
	assert.Equal(t, "storage/hsrelay-test.db", c.DatabaseName)
	assert.Same(t, c, GetConfig(), "config is cached")
}

func TestGetConfigFromEnvironment(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("HSRELAY_ENV", Production)
	t.Setenv("HSRELAY_ACCOUNT_ID", "12345")
	t.Setenv("HSRELAY_REGION_PREFIX", "eu1")
	t.Setenv("HSRELAY_DOMAIN_NAME", "domain.com")
	t.Setenv("HSRELAY_FORMS_API", "v3")
	t.Setenv("HSRELAY_EXCLUDED_IPS", "10.0.0.0/8, 192.168.1.7")
	t.Setenv("HSRELAY_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c := GetConfig()

	assert.True(t, c.IsProduction())
	assert.Equal(t, hubspot.Settings{
		AccountID:    "12345",
		RegionPrefix: "eu1",
		DomainName:   "domain.com",
		FormsAPI:     hubspot.FormsAPIIntegration,
	}, c.HubSpotSettings())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOriginList())
	assert.True(t, c.IsIPExcluded("10.1.2.3"))
	assert.True(t, c.IsIPExcluded("192.168.1.7"))
	assert.True(t, c.IsIPExcluded("::ffff:10.9.9.9"))
	assert.False(t, c.IsIPExcluded("192.168.1.8"))
	assert.False(t, c.IsIPExcluded("not-an-ip"))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Environment: Development, FormsAPI: "v2", DispatchWorkers: 1}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad environment", mutate: func(c *Config) { c.Environment = "staging" }, wantErr: "invalid environment"},
		{name: "bad forms api", mutate: func(c *Config) { c.FormsAPI = "v4" }, wantErr: "invalid forms api"},
		{name: "no workers", mutate: func(c *Config) { c.DispatchWorkers = 0 }, wantErr: "dispatch workers"},
		{name: "bad ip", mutate: func(c *Config) { c.ExcludedIPs = "10.0.0.300" }, wantErr: "excluded ips"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseIPList(t *testing.T) {
	prefixes, err := ParseIPList(" 10.0.0.1/8 ,, ::1 ")
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "::1/128", prefixes[1].String())

	empty, err := ParseIPList("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCookieMaxAge(t *testing.T) {
	c := &Config{CookieDefaultDays: 180, CookieInfiniteDays: 390}

	assert.Zero(t, c.CookieMaxAge(hubspot.ScopeSession))
	assert.Equal(t, 180*24*time.Hour, c.CookieMaxAge(hubspot.ScopeDefault))
	assert.Equal(t, 390*24*time.Hour, c.CookieMaxAge(hubspot.ScopeInfinite))
}

func TestConfigDrivesCartridgeLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	dir := t.TempDir()
	c := &Config{
		AppName:          "hsrelay",
		Environment:      Production,
		LogLevel:         LogLevelWarn,
		LogsDirectory:    dir,
		LogsMaxSizeInMb:  1,
		LogsMaxBackups:   2,
		LogsMaxAgeInDays: 3,
	}

	var provider cartridge.LogConfigProvider = c
	logCfg := cartridge.LogConfigFromProvider(provider)
	assert.Equal(t, "warn", logCfg.Level)
	assert.Equal(t, dir, logCfg.Directory)
	assert.Equal(t, "hsrelay", logCfg.AppName)

	logger := cartridge.NewLogger(c, nil).With("component", "test")
	logger.Info("hidden")
	logger.Warn("delivery failed", "status", 502)

	data, err := os.ReadFile(filepath.Join(dir, "hsrelay.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"msg":"delivery failed"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), `"status":502`)
}

func TestConfigImplementsCartridgeConfig(t *testing.T) {
	c := &Config{AppPort: "8080", Environment: Test}

	var runtime cartridge.Config = c
	assert.Equal(t, "8080", runtime.GetPort())
	assert.True(t, runtime.IsTest())
	assert.Empty(t, runtime.GetPublicDirectory())
	assert.Equal(t, 1, c.GetMaxIdleConns())
}
