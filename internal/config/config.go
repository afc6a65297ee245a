// Package config loads the service settings from defaults, an optional
// ytbs.yaml, YTBS_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// YTBS_TRACKER_TOKEN for tracker.token.
const EnvPrefix = "ytbs"

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	TLS     TLSConfig     `mapstructure:"tls"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig controls the HTTP listener and the static bundle.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// TLSConfig names the PEM files the listener terminates TLS with.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// TrackerConfig holds the issue tracker credentials. They are only ever
// read from configuration, never compiled in.
type TrackerConfig struct {
	Token    string        `mapstructure:"token"`
	OrgID    string        `mapstructure:"org_id"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Probe    bool          `mapstructure:"probe"`
}

// Configured reports whether both credentials are present.
func (t TrackerConfig) Configured() bool {
	return t.Token != "" && t.OrgID != ""
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns the built-in values for every key.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":       "0.0.0.0:7860",
		"server.static_dir": "frontend",
		"tls.enabled":       true,
		"tls.cert_file":     "cert.pem",
		"tls.key_file":      "key.pem",
		"tracker.token":     "",
		"tracker.org_id":    "",
		"tracker.base_url":  "https://api.tracker.yandex.net/v3",
		"tracker.timeout":   30 * time.Second,
		"tracker.cache_ttl": 5 * time.Minute,
		"tracker.probe":     false,
		"log.level":         "info",
		"log.format":        "text",
	}
}

// Load builds the configuration. configFile may be empty, in which case
// ytbs.yaml is looked up in the working directory and its absence is not an
// error. flags maps configuration keys to command-line flags; a flag
// overrides its key only when set on the command line.
func Load(configFile string, flags map[string]*pflag.Flag) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ytbs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return c, errors.Wrap(err, "read config")
		}
	} else {
		slog.Debug("Config file loaded", "path", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return c, errors.Wrapf(err, "bind flag %s", key)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks the structural constraints of the configuration.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.TLS.Enabled && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return errors.New("tls.cert_file and tls.key_file are required when tls.enabled is set")
	}
	if (c.Tracker.Token == "") != (c.Tracker.OrgID == "") {
		return errors.New("tracker.token and tracker.org_id must be set together")
	}
	if c.Tracker.Timeout < 0 || c.Tracker.CacheTTL < 0 {
		return errors.New("tracker durations must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("log.format %q unknown: want text|json", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, errors.Errorf("log.level %q unknown: want debug|info|warn|error", name)
	}
	return level, nil
}
