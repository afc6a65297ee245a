package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ytbs.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7860", cfg.Server.Addr)
	assert.Equal(t, "frontend", cfg.Server.StaticDir)
	assert.True(t, cfg.TLS.Enabled)
	assert.Equal(t, "cert.pem", cfg.TLS.CertFile)
	assert.Equal(t, "key.pem", cfg.TLS.KeyFile)
	assert.Equal(t, 30*time.Second, cfg.Tracker.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Tracker.CacheTTL)
	assert.False(t, cfg.Tracker.Configured())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	p := writeConfig(t, `server:
  addr: "127.0.0.1:9000"
tls:
  enabled: false
tracker:
  timeout: 5s
log:
  format: json
`)
	cfg, err := Load(p, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.False(t, cfg.TLS.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Tracker.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "frontend", cfg.Server.StaticDir, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeConfig(t, `server:
  addr: "127.0.0.1:9000"
`)
	t.Setenv("YTBS_SERVER_ADDR", "127.0.0.1:9100")
	t.Setenv("YTBS_TRACKER_TOKEN", "tok")
	t.Setenv("YTBS_TRACKER_ORG_ID", "org")

	cfg, err := Load(p, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Addr)
	assert.True(t, cfg.Tracker.Configured())
	assert.Equal(t, "tok", cfg.Tracker.Token)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("YTBS_SERVER_ADDR", "127.0.0.1:9100")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", "", "")
	require.NoError(t, fs.Parse([]string{"--addr", "127.0.0.1:9200"}))

	cfg, err := Load("", map[string]*pflag.Flag{"server.addr": fs.Lookup("addr")})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9200", cfg.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/ytbs.yaml", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Addr: ":7860"},
			TLS:    TLSConfig{Enabled: true, CertFile: "cert.pem", KeyFile: "key.pem"},
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, true},
		{"tls without key", func(c *Config) { c.TLS.KeyFile = "" }, true},
		{"plaintext without files", func(c *Config) { c.TLS = TLSConfig{} }, false},
		{"token without org", func(c *Config) { c.Tracker.Token = "t" }, true},
		{"org without token", func(c *Config) { c.Tracker.OrgID = "o" }, true},
		{"negative timeout", func(c *Config) { c.Tracker.Timeout = -time.Second }, true},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
