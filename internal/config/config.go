package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "ArchiveSync/1.0 (+https://github.com/Belphemur/ArchiveSync)"

// EnvPrefix prefixes every environment variable override, e.g. TASYNC_ARCHIVE_URL.
const EnvPrefix = "TASYNC"

// Service holds the connection settings of a remote service.
type Service struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type Config struct {
	Archive               Service `mapstructure:"archive"`
	MediaServer           Service `mapstructure:"media_server"`
	ProxyConnectionString string  `mapstructure:"proxy_connection_string"`
	ClientTimeout         string  `mapstructure:"client_timeout"` // Go duration string like "30s", "1m", etc.
	UserAgent             string  `mapstructure:"user_agent"`
	Retry                 struct {
		MaxRetries int    `mapstructure:"max_retries"`
		Delay      string `mapstructure:"delay"`
		MaxDelay   string `mapstructure:"max_delay"`
	} `mapstructure:"retry"`
	LogLevel string `mapstructure:"log_level"`
	Log      struct {
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
	} `mapstructure:"log"`
	Cache struct {
		Type  string `mapstructure:"type"` // "none" or "redis"
		TTL   string `mapstructure:"ttl"`  // Go duration string like "24h", "720h", etc.
		Redis struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`
	Metrics struct {
		PushURL string `mapstructure:"push_url"`
		Job     string `mapstructure:"job"`
	} `mapstructure:"metrics"`
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
	Overview struct {
		MaxLength       int  `mapstructure:"max_length"`
		StripLinks      bool `mapstructure:"strip_links"`
		StripHashtags   bool `mapstructure:"strip_hashtags"`
		StripSeparators bool `mapstructure:"strip_separators"`
	} `mapstructure:"overview"`
}

// SetDefaults registers every key with its default value. Registering all
// keys is also what lets AutomaticEnv resolve them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("archive.url", "")
	v.SetDefault("archive.token", "")
	v.SetDefault("media_server.url", "")
	v.SetDefault("media_server.token", "")
	v.SetDefault("proxy_connection_string", "")
	v.SetDefault("client_timeout", "30s")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("retry.max_retries", 0)
	v.SetDefault("retry.delay", "1s")
	v.SetDefault("retry.max_delay", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.ttl", "720h")
	v.SetDefault("cache.redis.address", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "archivesync")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("overview.max_length", 500)
	v.SetDefault("overview.strip_links", true)
	v.SetDefault("overview.strip_hashtags", true)
	v.SetDefault("overview.strip_separators", true)
}

// LoadConfig reads configuration from configFile, or from config.yaml in the
// working directory or ./config when configFile is empty, then applies
// environment overrides. A missing default config file is not an error.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Add specific environment variable for log level
	_ = v.BindEnv("log_level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")

	SetDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, validateService("archive", c.Archive)...)
	errs = append(errs, validateService("media_server", c.MediaServer)...)

	for key, value := range map[string]string{
		"client_timeout":  c.ClientTimeout,
		"retry.delay":     c.Retry.Delay,
		"retry.max_delay": c.Retry.MaxDelay,
		"cache.ttl":       c.Cache.TTL,
	} {
		if _, err := parseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries))
	}

	switch c.Cache.Type {
	case "none":
	case "redis":
		if c.Cache.Redis.Address == "" {
			errs = append(errs, errors.New("cache.redis.address is required when cache.type is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.type must be none or redis, got %q", c.Cache.Type))
	}

	if c.ProxyConnectionString != "" {
		if _, err := url.Parse(c.ProxyConnectionString); err != nil {
			errs = append(errs, fmt.Errorf("proxy_connection_string: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateService(name string, s Service) []error {
	var errs []error
	if s.URL == "" {
		errs = append(errs, fmt.Errorf("%s.url is required", name))
	} else if u, err := url.Parse(s.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s.url must be an absolute http(s) URL, got %q", name, s.URL))
	}
	if s.Token == "" {
		errs = append(errs, fmt.Errorf("%s.token is required", name))
	}
	return errs
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %s", value)
	}
	return d, nil
}

// Timeout returns the HTTP client timeout, falling back to 30s.
func (c *Config) Timeout() time.Duration {
	return durationOr(c.ClientTimeout, 30*time.Second)
}

// RetryDelay returns the initial retry backoff, falling back to 1s.
func (c *Config) RetryDelay() time.Duration {
	return durationOr(c.Retry.Delay, time.Second)
}

// RetryMaxDelay returns the retry backoff cap, falling back to 10s.
func (c *Config) RetryMaxDelay() time.Duration {
	return durationOr(c.Retry.MaxDelay, 10*time.Second)
}

// CacheTTL returns the thumbnail cache TTL, falling back to 30 days.
func (c *Config) CacheTTL() time.Duration {
	return durationOr(c.Cache.TTL, 30*24*time.Hour)
}

func durationOr(value string, fallback time.Duration) time.Duration {
	d, err := parseDuration(value)
	if err != nil || d == 0 {
		return fallback
	}
	return d
}
