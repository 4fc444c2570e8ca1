package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "all", cfg.Collect.Endpoints)
	assert.Equal(t, 60*time.Second, cfg.Collect.Interval)
	assert.Equal(t, 0, cfg.Collect.Iterations)
	assert.Equal(t, 10, cfg.Collect.SaveInterval)
	assert.Equal(t, "jsonl", cfg.Collect.Extension)
	assert.Equal(t, "browser", cfg.Session.Mode)
	assert.True(t, cfg.Session.Headless)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "save interval below one",
			mutate:  func(c *Config) { c.Collect.SaveInterval = 0 },
			wantErr: "SaveInterval",
		},
		{
			name:    "negative iterations",
			mutate:  func(c *Config) { c.Collect.Iterations = -1 },
			wantErr: "Iterations",
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.Collect.Interval = -time.Second },
			wantErr: "Interval",
		},
		{
			name:    "empty selection",
			mutate:  func(c *Config) { c.Collect.Endpoints = " , " },
			wantErr: "endpoint selection is empty",
		},
		{
			name:    "unknown session mode",
			mutate:  func(c *Config) { c.Session.Mode = "magic" },
			wantErr: "Mode",
		},
		{
			name:    "bad endpoint url",
			mutate:  func(c *Config) { c.Endpoints = map[string]string{"XX": "not a url"} },
			wantErr: "Endpoints",
		},
		{
			name:    "bad email",
			mutate:  func(c *Config) { c.Account.Email = "nope" },
			wantErr: "Email",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSession(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateSession(), "browser mode needs no cookie")

	cfg.Session.Mode = "static"
	assert.NoError(t, cfg.Validate())
	err := cfg.ValidateSession()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires the \"sessionid\" cookie")

	cfg.Session.Cookies = map[string]string{"sessionid": "abc"}
	assert.NoError(t, cfg.ValidateSession())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SIMCOLLECT_EMAIL", "op@example.com")
	t.Setenv("SIMCOLLECT_ENDPOINTS", "EN,ZH")
	t.Setenv("SIMCOLLECT_OUTPUT_DIR", "/tmp/out")
	t.Setenv("SIMCOLLECT_INTERVAL", "15")
	t.Setenv("SIMCOLLECT_ITERATIONS", "4")
	t.Setenv("SIMCOLLECT_SAVE_INTERVAL", "2")
	t.Setenv("SIMCOLLECT_SESSION_COOKIE", "cookie-value")
	t.Setenv("SIMCOLLECT_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "op@example.com", cfg.Account.Email)
	assert.Equal(t, "EN,ZH", cfg.Collect.Endpoints)
	assert.Equal(t, "/tmp/out", cfg.Collect.OutputDir)
	assert.Equal(t, 15*time.Second, cfg.Collect.Interval)
	assert.Equal(t, 4, cfg.Collect.Iterations)
	assert.Equal(t, 2, cfg.Collect.SaveInterval)
	assert.Equal(t, "cookie-value", cfg.Session.Cookies["sessionid"])
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvDurationString(t *testing.T) {
	t.Setenv("SIMCOLLECT_INTERVAL", "2m")
	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 2*time.Minute, cfg.Collect.Interval)
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("SIMCOLLECT_ITERATIONS", "many")
	t.Setenv("SIMCOLLECT_INTERVAL", "soon")
	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIMCOLLECT_ITERATIONS")
	assert.Contains(t, err.Error(), "SIMCOLLECT_INTERVAL")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
collect:
  endpoints: R2_H
  output_dir: ./chat
  interval: 30s
  save_interval: 3
endpoints:
  TEST: https://example.com/api/chatroom/?chatroom=T
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "R2_H", cfg.Collect.Endpoints)
	assert.Equal(t, "./chat", cfg.Collect.OutputDir)
	assert.Equal(t, 30*time.Second, cfg.Collect.Interval)
	assert.Equal(t, 3, cfg.Collect.SaveInterval)
	assert.Equal(t, "jsonl", cfg.Collect.Extension)
	assert.Equal(t, "https://example.com/api/chatroom/?chatroom=T", cfg.Endpoints["TEST"])
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"endpoints":     "EN",
		"output":        "/data",
		"interval":      5 * time.Second,
		"iterations":    3,
		"save-interval": 2,
		"extension":     ".txt",
		"headless":      false,
		"log-level":     "error",
	})

	assert.Equal(t, "EN", cfg.Collect.Endpoints)
	assert.Equal(t, "/data", cfg.Collect.OutputDir)
	assert.Equal(t, 5*time.Second, cfg.Collect.Interval)
	assert.Equal(t, 3, cfg.Collect.Iterations)
	assert.Equal(t, 2, cfg.Collect.SaveInterval)
	assert.Equal(t, "txt", cfg.Collect.Extension)
	assert.False(t, cfg.Session.Headless)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Collect.Endpoints = "ZH,EN"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "ZH,EN", loaded.Collect.Endpoints)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collect:\n  iterations: 7\n  save_interval: 4\n"), 0644))
	t.Setenv("SIMCOLLECT_SAVE_INTERVAL", "5")

	cfg, err := Load(path, map[string]interface{}{"iterations": 9})
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Collect.Iterations)
	assert.Equal(t, 5, cfg.Collect.SaveInterval)
}
