// Package config provides functionality for managing configuration options
// for the terminal client and the web gateway using command-line flags,
// environment variables and an optional JSON config file.
//
// Precedence, highest first: flag, environment (JOBBOARD_ prefix), config
// file, default.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "JOBBOARD"

// Keys understood by Load.
const (
	KeyConfig           = "config"
	KeyAPIURL           = "api_url"
	KeyAPICAFile        = "api_ca_file"
	KeyRequestTimeout   = "request_timeout"
	KeyRateLimit        = "rate_limit"
	KeyLogLevel         = "log_level"
	KeySessionFile      = "session_file"
	KeyAddress          = "address"
	KeyDatabaseDSN      = "database_dsn"
	KeyTLSCert          = "tls_cert"
	KeyTLSKey           = "tls_key"
	KeySessionIdle      = "session_idle"
	KeySessionRetention = "session_retention"
	KeyCleanerInterval  = "cleaner_interval"
)

// Defaults.
const (
	DefaultAPIURL           = "http://localhost:1337"
	DefaultRequestTimeout   = 10 * time.Second
	DefaultLogLevel         = "info"
	DefaultClientLogLevel   = "warn"
	DefaultAddress          = "localhost:8080"
	DefaultSessionIdle      = 30 * time.Minute
	DefaultSessionRetention = 30 * 24 * time.Hour
	DefaultCleanerInterval  = time.Hour
)

// Options holds the configuration values for the application.
type Options struct {
	// Config is the path to the JSON config file, if any.
	Config string `mapstructure:"config"`

	// APIURL is the base URL of the content backend.
	APIURL string `mapstructure:"api_url"`
	// APICAFile is an extra PEM bundle trusted for the backend.
	APICAFile string `mapstructure:"api_ca_file"`
	// RequestTimeout bounds each backend request.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// RateLimit caps backend requests per second. Zero is unlimited.
	RateLimit float64 `mapstructure:"rate_limit"`
	LogLevel  string  `mapstructure:"log_level"`

	// SessionFile is where the terminal client keeps its session.
	SessionFile string `mapstructure:"session_file"`

	// Address defines the gateway's listening address (ip:port).
	Address string `mapstructure:"address"`
	// DatabaseDSN holds the PostgreSQL connection string of the gateway.
	DatabaseDSN string `mapstructure:"database_dsn"`
	TLSCert     string `mapstructure:"tls_cert"`
	TLSKey      string `mapstructure:"tls_key"`

	SessionIdle      time.Duration `mapstructure:"session_idle"`
	SessionRetention time.Duration `mapstructure:"session_retention"`
	CleanerInterval  time.Duration `mapstructure:"cleaner_interval"`
}

// DefaultSessionFile returns ~/.jobboard/session.json.
func DefaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".jobboard", "session.json")
	}
	return filepath.Join(home, ".jobboard", "session.json")
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyConfig, "")
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyAPICAFile, "")
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyRateLimit, 0.0)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeySessionFile, DefaultSessionFile())
	v.SetDefault(KeyAddress, DefaultAddress)
	v.SetDefault(KeyDatabaseDSN, "")
	v.SetDefault(KeyTLSCert, "")
	v.SetDefault(KeyTLSKey, "")
	v.SetDefault(KeySessionIdle, DefaultSessionIdle)
	v.SetDefault(KeySessionRetention, DefaultSessionRetention)
	v.SetDefault(KeyCleanerInterval, DefaultCleanerInterval)
}

// flagKeys maps flag names onto config keys.
var flagKeys = map[string]string{
	"config":            KeyConfig,
	"api-url":           KeyAPIURL,
	"api-ca-file":       KeyAPICAFile,
	"request-timeout":   KeyRequestTimeout,
	"rate-limit":        KeyRateLimit,
	"log-level":         KeyLogLevel,
	"session-file":      KeySessionFile,
	"address":           KeyAddress,
	"database-dsn":      KeyDatabaseDSN,
	"tls-cert":          KeyTLSCert,
	"tls-key":           KeyTLSKey,
	"session-idle":      KeySessionIdle,
	"session-retention": KeySessionRetention,
	"cleaner-interval":  KeyCleanerInterval,
}

func addCommonFlags(fs *pflag.FlagSet, logLevel string) {
	fs.StringP("config", "c", "", "path to JSON config file")
	fs.String("api-url", DefaultAPIURL, "content backend base URL")
	fs.String("api-ca-file", "", "extra CA bundle trusted for the backend")
	fs.Duration("request-timeout", DefaultRequestTimeout, "timeout of one backend request")
	fs.Float64("rate-limit", 0, "backend requests per second (0 = unlimited)")
	fs.String("log-level", logLevel, "log level (debug, info, warn, error)")
}

// AddClientFlags defines the terminal client's flags.
func AddClientFlags(fs *pflag.FlagSet) {
	addCommonFlags(fs, DefaultClientLogLevel)
	fs.String("session-file", DefaultSessionFile(), "file holding the saved session")
}

// AddServerFlags defines the gateway's flags.
func AddServerFlags(fs *pflag.FlagSet) {
	addCommonFlags(fs, DefaultLogLevel)
	fs.StringP("address", "a", DefaultAddress, "run on ip:port server")
	fs.StringP("database-dsn", "d", "", "db address")
	fs.String("tls-cert", "", "TLS certificate file")
	fs.String("tls-key", "", "TLS private key file")
	fs.Duration("session-idle", DefaultSessionIdle, "drop in-memory sessions idle this long")
	fs.Duration("session-retention", DefaultSessionRetention, "delete stored sessions untouched this long")
	fs.Duration("cleaner-interval", DefaultCleanerInterval, "how often stored sessions are cleaned")
}

// New returns a viper instance with defaults, the environment and the flags
// defined on fs bound. Flags not defined on fs are skipped.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyConfig, EnvPrefix+"_CONFIG", "CONFIG"); err != nil {
		return nil, errors.Wrap(err, "bind config env")
	}
	if err := v.BindEnv(KeyAddress, EnvPrefix+"_ADDRESS", "SERVER_ADDRESS"); err != nil {
		return nil, errors.Wrap(err, "bind address env")
	}

	if fs != nil {
		// The client and the gateway default to different levels.
		if f := fs.Lookup("log-level"); f != nil {
			v.SetDefault(KeyLogLevel, f.DefValue)
		}
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "bind flag %s", name)
			}
		}
	}
	return v, nil
}

// Load reads the config file named by the config key, if present, and
// decodes every key into Options. A named file that does not exist is
// skipped; one that cannot be parsed is an error.
func Load(v *viper.Viper) (*Options, error) {
	if path := v.GetString(KeyConfig); path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "error while parsing config file %s", path)
			}
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	opts.SessionFile = expandHome(opts.SessionFile)
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *Options) validate() error {
	u, err := url.Parse(o.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.WithHint(errors.Newf("invalid %s %q", KeyAPIURL, o.APIURL),
			"use an absolute http or https URL")
	}
	if o.RequestTimeout <= 0 {
		return errors.Newf("%s must be positive, got %s", KeyRequestTimeout, o.RequestTimeout)
	}
	if o.RateLimit < 0 {
		return errors.Newf("%s must not be negative, got %v", KeyRateLimit, o.RateLimit)
	}
	return nil
}

// ValidateServer checks the keys the gateway needs on top of Load's checks.
func (o *Options) ValidateServer() error {
	if o.DatabaseDSN == "" {
		return errors.WithHint(errors.Newf("%s is required", KeyDatabaseDSN),
			"pass -d or set JOBBOARD_DATABASE_DSN")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.Newf("%s and %s must be set together", KeyTLSCert, KeyTLSKey)
	}
	for key, d := range map[string]time.Duration{
		KeySessionIdle:      o.SessionIdle,
		KeySessionRetention: o.SessionRetention,
		KeyCleanerInterval:  o.CleanerInterval,
	} {
		if d <= 0 {
			return errors.Newf("%s must be positive, got %s", key, d)
		}
	}
	return nil
}

// TLSEnabled reports whether the gateway serves HTTPS.
func (o *Options) TLSEnabled() bool { return o.TLSCert != "" && o.TLSKey != "" }

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
