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

func parse(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "config.yaml", `
target: file.local
user: fileuser
pass: filepass
port: 9001
workers: 2
scrape_timeout: 30s
df_exclude: "^boot"
skip_snmp: true
`)
	t.Setenv("TRUENAS_PASS", "envpass")
	t.Setenv("TRUENAS_COLLECTOR_WORKERS", "8")

	cfg, err := Load(parse(t, "--config", path, "--port", "9002", "--target", "flag.local"))
	require.NoError(t, err)

	assert.Equal(t, "flag.local", cfg.Target, "flag beats file")
	assert.Equal(t, "fileuser", cfg.User, "file beats default")
	assert.Equal(t, "envpass", cfg.Pass, "env beats file")
	assert.Equal(t, 9002, cfg.Port, "flag beats file")
	assert.Equal(t, 8, cfg.Workers, "env beats file")
	assert.Equal(t, 30*time.Second, cfg.ScrapeTimeout)
	assert.True(t, cfg.SkipSNMP)
	assert.Equal(t, DefaultSmartCacheHours, cfg.SmartCacheHours)
	assert.Equal(t, path, cfg.ConfigFilePath)

	re, err := cfg.DFExcludeRegexp()
	require.NoError(t, err)
	assert.True(t, re.MatchString("boot-pool"))
}

func TestLoadJSONFile(t *testing.T) {
	path := writeFile(t, "config.json", `{"target": "json.local", "user": "u", "pass": "p", "smart_cache_hours": 1}`)
	t.Setenv("TRUENAS_EXPORTER_CONFIG", path)

	cfg, err := Load(parse(t))
	require.NoError(t, err)
	assert.Equal(t, "json.local", cfg.Target)
	assert.Equal(t, time.Hour, cfg.SmartCacheTTL())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr error
	}{
		{
			name:    "no credentials",
			args:    []string{"--target", "nas"},
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "only user",
			env:     map[string]string{"TRUENAS_USER": "root"},
			args:    []string{"--target", "nas"},
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "no target",
			env:     map[string]string{"TRUENAS_USER": "root", "TRUENAS_PASS": "x"},
			wantErr: ErrMissingTarget,
		},
		{
			name: "bad regexp",
			env:  map[string]string{"TRUENAS_USER": "root", "TRUENAS_PASS": "x"},
			args: []string{"--target", "nas", "--df-exclude", "(["},
		},
		{
			name: "bad workers",
			env:  map[string]string{"TRUENAS_USER": "root", "TRUENAS_PASS": "x"},
			args: []string{"--target", "nas", "--workers", "0"},
		},
		{
			name: "bad env value",
			env:  map[string]string{"TRUENAS_USER": "root", "TRUENAS_PASS": "x", "TRUENAS_EXPORTER_PORT": "abc"},
			args: []string{"--target", "nas"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRUENAS_USER", "")
			t.Setenv("TRUENAS_PASS", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(parse(t, tt.args...))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(parse(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestLoadBadFileScrapeTimeout(t *testing.T) {
	t.Setenv("TRUENAS_USER", "root")
	t.Setenv("TRUENAS_PASS", "x")
	path := writeFile(t, "config.yaml", "target: nas.local\nscrape_timeout: soon\n")

	_, err := Load(parse(t, "--config", path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape_timeout")
}
