package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	tests := []struct {
		name string
		cfg  PathsConfig
		want Paths
	}{
		{
			name: "defaults under base",
			cfg:  PathsConfig{BaseDir: base},
			want: Paths{
				BaseDir:    base,
				DataDir:    filepath.Join(base, "data"),
				ExportsDir: filepath.Join(base, "exports"),
				LogsDir:    filepath.Join(base, "logs"),
			},
		},
		{
			name: "absolute directories are kept",
			cfg:  PathsConfig{BaseDir: base, ExportsDir: abs, LogsDir: "var/log"},
			want: Paths{
				BaseDir:    base,
				DataDir:    filepath.Join(base, "data"),
				ExportsDir: abs,
				LogsDir:    filepath.Join(base, "var", "log"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := GetPaths(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *p)
		})
	}
}

func TestGetPathsDefaultsToWorkingDirectory(t *testing.T) {
	p, err := GetPaths(PathsConfig{})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.BaseDir))
	assert.Equal(t, filepath.Join(p.BaseDir, "exports"), p.ExportsDir)
}

func TestPathsResolve(t *testing.T) {
	p := &Paths{BaseDir: "/srv/loandash"}

	assert.Equal(t, "/srv/loandash/data/demandes.xlsx", p.Resolve("data/demandes.xlsx"))
	assert.Equal(t, "/tmp/x.csv", p.Resolve("/tmp/x.csv"))
	assert.Equal(t, "", p.Resolve(""))
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	p, err := GetPaths(PathsConfig{BaseDir: base})
	require.NoError(t, err)

	require.NoError(t, p.EnsureDirectories())
	assert.DirExists(t, p.ExportsDir)
	assert.DirExists(t, p.LogsDir)
	assert.False(t, FileExists(p.DataDir))

	assert.Equal(t, filepath.Join(p.ExportsDir, "view.csv"), p.GetExportPath("view.csv"))
	assert.Equal(t, filepath.Join(p.LogsDir, "app.log"), p.GetLogPath("app.log"))
}
