package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrorPolicy selects what a loader does with a row that fails to insert.
type ErrorPolicy string

const (
	AbortOnError ErrorPolicy = "abort"
	SkipOnError  ErrorPolicy = "skip"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Registry RegistryConfig `mapstructure:"registry"`
	Log      LogConfig      `mapstructure:"log"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	API      APIConfig      `mapstructure:"api"`
}

// DatabaseConfig keeps the option names of the Database section used by the
// site configuration files.
type DatabaseConfig struct {
	DSN            string        `mapstructure:"dsn"`
	Name           string        `mapstructure:"db_name"`
	Host           string        `mapstructure:"db_host"`
	Port           int           `mapstructure:"db_port"`
	Username       string        `mapstructure:"db_username"`
	Password       string        `mapstructure:"db_password"`
	SSLMode        string        `mapstructure:"db_sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type LoaderConfig struct {
	Workers     int         `mapstructure:"workers"`
	Pattern     string      `mapstructure:"pattern"`
	Delimiter   string      `mapstructure:"delimiter"`
	OnError     ErrorPolicy `mapstructure:"on_error"`
	MeterColumn string      `mapstructure:"meter_column"`
	Migrate     bool        `mapstructure:"migrate"`
}

type RegistryConfig struct {
	CacheSize      int `mapstructure:"cache_size"`
	LookupAttempts int `mapstructure:"lookup_attempts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Addr           string `mapstructure:"addr"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	// Database
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.db_name", "meters")
	v.SetDefault("database.db_host", "localhost")
	v.SetDefault("database.db_port", 5432)
	v.SetDefault("database.db_username", "postgres")
	v.SetDefault("database.db_password", "")
	v.SetDefault("database.db_sslmode", "disable")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.connect_timeout", 10*time.Second)

	// Loader
	v.SetDefault("loader.workers", 4)
	v.SetDefault("loader.pattern", "*.csv")
	v.SetDefault("loader.delimiter", ",")
	v.SetDefault("loader.on_error", string(AbortOnError))
	v.SetDefault("loader.meter_column", "Meter Name")
	v.SetDefault("loader.migrate", true)

	v.SetDefault("registry.cache_size", 4096)
	v.SetDefault("registry.lookup_attempts", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// AWS
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "meter-data")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.region", "us-east-1")
	v.SetDefault("notify.topic_arn", "")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "energy/readings")
	v.SetDefault("mqtt.client_id", "meter-ingestor")
	v.SetDefault("api.addr", ":8080")
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"workers":   "loader.workers",
	"pattern":   "loader.pattern",
	"on-error":  "loader.on_error",
	"delimiter": "loader.delimiter",
	"migrate":   "loader.migrate",
	"log-level": "log.level",
}

// Load builds the configuration from defaults, an optional .env file, an
// optional config file, the environment and finally flags. An empty path
// searches for meterloader.{yaml,toml,json} in the working directory and
// $HOME/.config/meterloader; not finding one is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
		}
	} else {
		v.SetConfigName("meterloader")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/meterloader")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The API and ingestor have always honoured DB_DSN.
	if err := v.BindEnv("database.dsn", "DATABASE_DSN", "DB_DSN"); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Loader.OnError = ErrorPolicy(strings.ToLower(string(cfg.Loader.OnError)))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	invalid := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Database.DSN == "" {
		if c.Database.Host == "" {
			invalid("database.db_host is required")
		}
		if c.Database.Name == "" {
			invalid("database.db_name is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			invalid("database.db_port %d out of range", c.Database.Port)
		}
	}
	if c.Loader.Workers < 1 {
		invalid("loader.workers must be at least 1, got %d", c.Loader.Workers)
	}
	if c.Loader.Pattern == "" {
		invalid("loader.pattern is required")
	}
	if _, err := c.Loader.Comma(); err != nil {
		invalid("loader.delimiter: %v", err)
	}
	switch c.Loader.OnError {
	case AbortOnError, SkipOnError:
	default:
		invalid("loader.on_error must be %q or %q, got %q", AbortOnError, SkipOnError, c.Loader.OnError)
	}
	if c.Registry.LookupAttempts < 1 {
		invalid("registry.lookup_attempts must be at least 1")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		invalid("archive.bucket is required when archive.enabled is set")
	}
	if c.Notify.Enabled && c.Notify.TopicARN == "" {
		invalid("notify.topic_arn is required when notify.enabled is set")
	}
	return result.ErrorOrNil()
}

// Comma returns the field delimiter as a rune. "\t" and "tab" select a tab.
func (l LoaderConfig) Comma() (rune, error) {
	d := l.Delimiter
	if d == `\t` || strings.EqualFold(d, "tab") {
		return '\t', nil
	}
	r := []rune(d)
	if len(r) != 1 {
		return 0, fmt.Errorf("must be a single character, got %q", d)
	}
	if r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("%q cannot be used as a delimiter", d)
	}
	return r[0], nil
}

// ConnString returns the DSN, building a postgres URL from the individual
// options when no DSN is configured.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.Username, d.Password)
	} else if d.Username != "" {
		u.User = url.User(d.Username)
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout/time.Second)))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
