// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"net/netip"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"hsrelay/internal/hubspot"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// HubSpot portal
	AccountID    string `mapstructure:"accountid"`
	RegionPrefix string `mapstructure:"regionprefix"`
	DomainName   string `mapstructure:"domainname"`
	FormsAPI     string `mapstructure:"formsapi"`

	// Cookie settings
	CookieDomain       string `mapstructure:"cookiedomain"`
	CookieSecure       bool   `mapstructure:"cookiesecure"`
	CookieDefaultDays  int    `mapstructure:"cookiedefaultdays"`
	CookieInfiniteDays int    `mapstructure:"cookieinfinitedays"`

	// Ingest filtering
	AllowedOrigins string `mapstructure:"allowedorigins"`
	ExcludedIPs    string `mapstructure:"excludedips"`
	SkipBots       bool   `mapstructure:"skipbots"`

	// Outbound dispatch
	DispatchWorkers        int `mapstructure:"dispatchworkers"`
	DispatchQueueSize      int `mapstructure:"dispatchqueuesize"`
	DispatchTimeoutSeconds int `mapstructure:"dispatchtimeoutseconds"`

	// Delivery journal
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	DeliveryLog           bool   `mapstructure:"deliverylog"`
	DeliveryRetentionDays int    `mapstructure:"deliveryretentiondays"`

	excludedPrefixes []netip.Prefix
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "hsrelay")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("formsapi", string(hubspot.FormsAPIIntegration))
		v.SetDefault("cookiesecure", true)
		v.SetDefault("cookiedefaultdays", 180)
		v.SetDefault("cookieinfinitedays", 390)
		v.SetDefault("skipbots", true)
		v.SetDefault("dispatchworkers", 4)
		v.SetDefault("dispatchqueuesize", 1024)
		v.SetDefault("dispatchtimeoutseconds", 10)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("deliverylog", true)
		v.SetDefault("deliveryretentiondays", 14)

		v.BindEnv("appname", "HSRELAY_APP_NAME")
		v.BindEnv("appport", "HSRELAY_APP_PORT")
		v.BindEnv("environment", "HSRELAY_ENV")
		v.BindEnv("loglevel", "HSRELAY_LOG_LEVEL")
		v.BindEnv("logsdir", "HSRELAY_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "HSRELAY_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "HSRELAY_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "HSRELAY_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("accountid", "HSRELAY_ACCOUNT_ID")
		v.BindEnv("regionprefix", "HSRELAY_REGION_PREFIX")
		v.BindEnv("domainname", "HSRELAY_DOMAIN_NAME")
		v.BindEnv("formsapi", "HSRELAY_FORMS_API")
		v.BindEnv("cookiedomain", "HSRELAY_COOKIE_DOMAIN")
		v.BindEnv("cookiesecure", "HSRELAY_COOKIE_SECURE")
		v.BindEnv("cookiedefaultdays", "HSRELAY_COOKIE_DEFAULT_DAYS")
		v.BindEnv("cookieinfinitedays", "HSRELAY_COOKIE_INFINITE_DAYS")
		v.BindEnv("allowedorigins", "HSRELAY_ALLOWED_ORIGINS")
		v.BindEnv("excludedips", "HSRELAY_EXCLUDED_IPS")
		v.BindEnv("skipbots", "HSRELAY_SKIP_BOTS")
		v.BindEnv("dispatchworkers", "HSRELAY_DISPATCH_WORKERS")
		v.BindEnv("dispatchqueuesize", "HSRELAY_DISPATCH_QUEUE_SIZE")
		v.BindEnv("dispatchtimeoutseconds", "HSRELAY_DISPATCH_TIMEOUT_SECONDS")
		v.BindEnv("storagepath", "HSRELAY_STORAGE_PATH")
		v.BindEnv("deliverylog", "HSRELAY_DELIVERY_LOG")
		v.BindEnv("deliveryretentiondays", "HSRELAY_DELIVERY_RETENTION_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.Validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()

		if cfg.AccountID == "" {
			log.Println("config: HSRELAY_ACCOUNT_ID is not set, tracking requests will carry an empty portal")
		}
	})
	return cfg
}

// Validate checks the configuration for errors and parses derived values
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	switch hubspot.FormsAPI(c.FormsAPI) {
	case hubspot.FormsAPILegacy, hubspot.FormsAPIIntegration:
	default:
		return fmt.Errorf("invalid forms api: %s", c.FormsAPI)
	}

	if c.DispatchWorkers < 1 {
		return fmt.Errorf("dispatch workers must be positive, got %d", c.DispatchWorkers)
	}

	prefixes, err := ParseIPList(c.ExcludedIPs)
	if err != nil {
		return fmt.Errorf("excluded ips: %w", err)
	}
	c.excludedPrefixes = prefixes

	return nil
}

// ParseIPList parses a comma separated list of addresses and CIDR ranges.
func ParseIPList(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range splitList(raw) {
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory implements cartridge.Config. The relay serves no static
// assets.
func (c *Config) GetPublicDirectory() string {
	return ""
}

// GetAssetsPrefix implements cartridge.Config.
func (c *Config) GetAssetsPrefix() string {
	return ""
}

// GetAppName returns the application name, also used for the log file name.
func (c *Config) GetAppName() string {
	return c.AppName
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// HubSpotSettings returns the portal settings the tracking component runs with.
func (c *Config) HubSpotSettings() hubspot.Settings {
	return hubspot.Settings{
		AccountID:    c.AccountID,
		RegionPrefix: c.RegionPrefix,
		DomainName:   c.DomainName,
		FormsAPI:     hubspot.FormsAPI(c.FormsAPI),
	}
}

// AllowedOriginList returns the configured origins. An empty list allows all.
func (c *Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

// IsIPExcluded reports whether events from ip must not be forwarded.
func (c *Config) IsIPExcluded(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.excludedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// CookieMaxAge returns the lifetime for a cookie scope. Session cookies get
// zero, which leaves Max-Age off.
func (c *Config) CookieMaxAge(scope hubspot.CookieScope) time.Duration {
	switch scope {
	case hubspot.ScopeSession:
		return 0
	case hubspot.ScopeInfinite:
		return time.Duration(c.CookieInfiniteDays) * 24 * time.Hour
	}
	return time.Duration(c.CookieDefaultDays) * 24 * time.Hour
}

// DispatchTimeout returns the per-request timeout of the outbound dispatcher.
func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

// GetMaxOpenConns returns the connection limit for the delivery journal.
// SQLite allows a single writer, tests use one connection.
func (c *Config) GetMaxOpenConns() int {
	if c.Environment == Test {
		return 1
	}
	return 4
}

// GetMaxIdleConns keeps half of the journal pool warm.
func (c *Config) GetMaxIdleConns() int {
	if c.Environment == Test {
		return 1
	}
	return 2
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
