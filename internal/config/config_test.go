package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every LOADDASH_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, SourceAuto, cfg.Dataset.Kind)
				assert.Equal(t, "data/donnees_nettoyees.xlsx", cfg.Dataset.Path)
				assert.True(t, cfg.Dataset.Watch)
				assert.Equal(t, 500, cfg.Export.PreviewRows)
				assert.Equal(t, "donnees_filtrees_credits_auto.csv", cfg.Export.Filename)
				assert.Equal(t, "loandash", cfg.Telemetry.ServiceName)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"LOADDASH_SERVER_PORT":              "9090",
				"LOADDASH_SERVER_READ_TIMEOUT":      "30s",
				"LOADDASH_SECURITY_ALLOWED_ORIGINS": "http://a.example,https://b.example",
				"LOADDASH_LOGGING_LEVEL":            "debug",
				"LOADDASH_DATASET_KIND":             "CSV",
				"LOADDASH_DATASET_SOURCE_PATH":      "/srv/demandes.csv",
				"LOADDASH_EXPORT_BOM":               "true",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, SourceCSV, cfg.Dataset.Kind)
				assert.Equal(t, "/srv/demandes.csv", cfg.Dataset.Path)
				assert.True(t, cfg.Export.BOM)
			},
		},
		{
			name: "file overlays defaults",
			file: `
server:
  port: 7070
dataset:
  kind: gsheet
  spreadsheet_id: abc123
  range: "Demandes!A:Q"
  watch: false
export:
  preview_rows: 100
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
				assert.Equal(t, SourceGSheet, cfg.Dataset.Kind)
				assert.Equal(t, "abc123", cfg.Dataset.SpreadsheetID)
				assert.Equal(t, 100, cfg.Export.PreviewRows)
			},
		},
		{
			name: "environment wins over file",
			file: "server:\n  port: 7070\n",
			env:  map[string]string{"LOADDASH_SERVER_PORT": "6060"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
			},
		},
		{
			name: "durations in file",
			file: "dataset:\n  debounce: 2s\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Second, cfg.Dataset.Debounce)
			},
		},
		{
			name:    "unknown key in file",
			file:    "server:\n  prot: 1\n",
			wantErr: "failed to load config from file",
		},
		{
			name:    "invalid port",
			env:     map[string]string{"LOADDASH_SERVER_PORT": "99999"},
			wantErr: "invalid server port",
		},
		{
			name:    "non-numeric port",
			env:     map[string]string{"LOADDASH_SERVER_PORT": "http"},
			wantErr: "failed to load config from env",
		},
		{
			name:    "negative timeout",
			env:     map[string]string{"LOADDASH_SERVER_READ_TIMEOUT": "-5s"},
			wantErr: "read timeout",
		},
		{
			name:    "empty allowed origins with CORS",
			env:     map[string]string{"LOADDASH_SECURITY_ALLOWED_ORIGINS": ""},
			wantErr: "allowed origin",
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"LOADDASH_LOGGING_LEVEL": "verbose"},
			wantErr: "invalid log level",
		},
		{
			name:    "unknown dataset kind",
			env:     map[string]string{"LOADDASH_DATASET_KIND": "parquet"},
			wantErr: "unknown dataset kind",
		},
		{
			name:    "gsheet without spreadsheet",
			env:     map[string]string{"LOADDASH_DATASET_KIND": "gsheet"},
			wantErr: "spreadsheet id",
		},
		{
			name: "gsheet cannot be watched",
			env: map[string]string{
				"LOADDASH_DATASET_KIND":           "gsheet",
				"LOADDASH_DATASET_SPREADSHEET_ID": "abc",
			},
			wantErr: "watch",
		},
		{
			name:    "negative preview",
			env:     map[string]string{"LOADDASH_EXPORT_PREVIEW_ROWS": "-1"},
			wantErr: "preview rows",
		},
		{
			name: "unknown output falls back to console",
			env:  map[string]string{"LOADDASH_LOGGING_OUTPUT": "syslog", "LOADDASH_LOGGING_FORMAT": "xml"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var path string
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetConfigFilePath(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOADDASH_CONFIG", "/etc/loandash/config.yaml")
	assert.Equal(t, "/etc/loandash/config.yaml", getConfigFilePath())
}

func TestServerAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", ServerConfig{Host: "127.0.0.1", Port: 8080}.Address())
	assert.Equal(t, ":9000", ServerConfig{Port: 9000}.Address())
}
