package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/geoclient/internal/paths"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// isolate clears every variable the loader reads and returns a fresh
// config and data directory.
func isolate(t *testing.T) (configDir, dataDir string) {
	t.Helper()
	for _, k := range []string{
		paths.EnvConfigDir, paths.EnvDataDir,
		"GEOCLIENT_SERVER", "GEOCLIENT_TIMEOUT", "GEOCLIENT_LOG_LEVEL",
		"GEOCLIENT_LOG_FORMAT", "GEOCLIENT_COOKIE", "GEOCLIENT_SETTINGS_FILE",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	for _, k := range types.SettingsKeys {
		t.Setenv(SettingsEnvVar(k), "")
		os.Unsetenv(SettingsEnvVar(k))
	}
	root := t.TempDir()
	return filepath.Join(root, "config"), filepath.Join(root, "data")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	configDir, dataDir := isolate(t)

	cfg, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, EnvFiles: []string{}})
	require.NoError(t, err)

	assert.Equal(t, types.DefaultServer, cfg.Server)
	assert.Equal(t, types.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, types.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, types.DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, configDir, cfg.ConfigDir)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, types.Settings{}, cfg.Settings, "a missing bundle stays empty")
}

func TestLoad_ConfigFile(t *testing.T) {
	configDir, _ := isolate(t)
	writeFile(t, paths.ConfigFile(configDir), `
server: https://geo.example.org
data_dir: /srv/geo
timeout: 5s
log_level: debug
settings:
  apiPointsUrl: /api/points/
  apiCsrfUrl: /api/get-csrf-token/
`)

	cfg, err := Load(Options{ConfigDirFlag: configDir, EnvFiles: []string{}})
	require.NoError(t, err)

	assert.Equal(t, "https://geo.example.org", cfg.Server)
	assert.Equal(t, "/srv/geo", cfg.DataDir)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/api/points/", cfg.Settings.APIPointsURL)
	assert.Equal(t, "/api/get-csrf-token/", cfg.Settings.APICSRFURL)
	assert.Empty(t, cfg.Settings.APIUploadURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	configDir, dataDir := isolate(t)
	writeFile(t, paths.ConfigFile(configDir), "server: https://file.example.org\n")
	t.Setenv("GEOCLIENT_SERVER", "https://env.example.org")
	t.Setenv("GEOCLIENT_TIMEOUT", "2s")

	cfg, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, EnvFiles: []string{}})
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.org", cfg.Server)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	configDir, dataDir := isolate(t)
	t.Setenv("GEOCLIENT_SERVER", "https://env.example.org")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(FlagServer, "", "")
	fs.String(FlagLogLevel, "", "")
	require.NoError(t, fs.Parse([]string{"--server", "https://flag.example.org"}))

	cfg, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, Flags: fs, EnvFiles: []string{}})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.org", cfg.Server)
	assert.Equal(t, types.DefaultLogLevel, cfg.LogLevel, "an unchanged flag keeps the default")
}

func TestLoad_SettingsLayering(t *testing.T) {
	configDir, dataDir := isolate(t)
	writeFile(t, paths.ConfigFile(configDir), `
settings_file: bundle.json
settings:
  apiPointsUrl: /yaml/points/
  apiUploadUrl: /yaml/upload/
  apiCsrfUrl: /yaml/csrf/
`)
	writeFile(t, filepath.Join(configDir, "bundle.json"),
		`{"apiUploadUrl": "/json/upload/", "apiCsrfUrl": "/json/csrf/", "unknown": 1}`)
	t.Setenv(SettingsEnvVar(types.KeyAPICSRFURL), "/env/csrf/")

	cfg, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, EnvFiles: []string{}})
	require.NoError(t, err)

	assert.Equal(t, "/yaml/points/", cfg.Settings.APIPointsURL)
	assert.Equal(t, "/json/upload/", cfg.Settings.APIUploadURL)
	assert.Equal(t, "/env/csrf/", cfg.Settings.APICSRFURL)
}

func TestLoad_SettingsFileErrors(t *testing.T) {
	configDir, dataDir := isolate(t)

	t.Run("missing", func(t *testing.T) {
		t.Setenv("GEOCLIENT_SETTINGS_FILE", filepath.Join(configDir, "absent.json"))
		_, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, EnvFiles: []string{}})
		assert.ErrorIs(t, err, ErrSettingsFile)
	})

	t.Run("malformed", func(t *testing.T) {
		bad := filepath.Join(configDir, "bad.json")
		writeFile(t, bad, `{"apiPointsUrl": 5}`)
		t.Setenv("GEOCLIENT_SETTINGS_FILE", bad)
		_, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, EnvFiles: []string{}})
		assert.ErrorIs(t, err, ErrSettingsFile)
	})
}

func TestLoad_DotEnv(t *testing.T) {
	configDir, dataDir := isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	writeFile(t, envFile, "GEOCLIENT_SERVER=https://dotenv.example.org\n")
	t.Cleanup(func() { os.Unsetenv("GEOCLIENT_SERVER") })

	cfg, err := Load(Options{
		ConfigDirFlag: configDir,
		DataDirFlag:   dataDir,
		EnvFiles:      []string{envFile, filepath.Join(t.TempDir(), "missing.env")},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.org", cfg.Server)
}

func TestLoad_Invalid(t *testing.T) {
	configDir, dataDir := isolate(t)
	writeFile(t, paths.ConfigFile(configDir), "server: not-a-url\n")

	_, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, EnvFiles: []string{}})
	assert.ErrorIs(t, err, types.ErrServerInvalid)
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	configDir, dataDir := isolate(t)
	writeFile(t, paths.ConfigFile(configDir), "server: [unterminated\n")

	_, err := Load(Options{ConfigDirFlag: configDir, DataDirFlag: dataDir, EnvFiles: []string{}})
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	configDir, dataDir := isolate(t)

	path, created, err := WriteDefault(configDir, "", dataDir)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, paths.ConfigFile(configDir), path)

	cfg, err := Load(Options{ConfigDirFlag: configDir, EnvFiles: []string{}})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultServer, cfg.Server)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, types.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, types.DefaultEndpoints(), cfg.Settings)

	writeFile(t, path, "server: https://kept.example.org\n")
	_, created, err = WriteDefault(configDir, "", dataDir)
	require.NoError(t, err)
	assert.False(t, created, "existing config is left alone")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server: https://kept.example.org\n", string(data))
}
