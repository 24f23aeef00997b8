// Package config loads geoclient's configuration. Values come, lowest to
// highest, from built-in defaults, config.yaml in the configuration
// directory, GEOCLIENT_* environment variables (a .env file is loaded first)
// and command-line flags. The settings bundle is layered separately: the
// settings map in config.yaml, then the JSON settings file, then
// GEOCLIENT_SETTINGS_<KEY> variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/geoclient/internal/paths"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "GEOCLIENT"

// Flag names bound to configuration keys.
const (
	FlagServer    = "server"
	FlagTimeout   = "timeout"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
	FlagCookie    = "cookie"
	FlagSettings  = "settings"
)

// flagKeys maps flag names to viper keys.
var flagKeys = map[string]string{
	FlagServer:    "server",
	FlagTimeout:   "timeout",
	FlagLogLevel:  "log_level",
	FlagLogFormat: "log_format",
	FlagCookie:    "cookie",
	FlagSettings:  "settings_file",
}

// ErrSettingsFile is returned when the settings file cannot be used.
var ErrSettingsFile = errors.New("invalid settings file")

// Options control a Load.
type Options struct {
	// ConfigDirFlag and DataDirFlag are the --config-dir and --data-dir
	// values; empty means unset.
	ConfigDirFlag string
	DataDirFlag   string

	// Flags, when set, overrides configuration keys with changed flags.
	Flags *pflag.FlagSet

	// EnvFiles are loaded with godotenv before anything else. Missing
	// files are ignored. Nil means ".env".
	EnvFiles []string
}

// Load resolves the configuration directory, reads config.yaml from it and
// returns the validated Config with DataDir resolved to an absolute path.
// A missing config.yaml is not an error.
func Load(opts Options) (types.Config, error) {
	if err := loadDotEnv(opts.EnvFiles); err != nil {
		return types.Config{}, err
	}

	configDir, err := paths.ResolveConfigDir(opts.ConfigDirFlag)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return types.Config{}, fmt.Errorf("reading config file %s: %w", v.ConfigFileUsed(), err)
	}

	settingsFlagSet := false
	if opts.Flags != nil {
		for name, key := range flagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return types.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
		settingsFlagSet = opts.Flags.Changed(FlagSettings)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.ConfigDir = configDir

	if cfg.SettingsFile != "" {
		path := cfg.SettingsFile
		if !filepath.IsAbs(path) && !settingsFlagSet && v.InConfig("settings_file") {
			path = filepath.Join(configDir, path)
		}
		fileSettings, err := ReadSettingsFile(path)
		if err != nil {
			return types.Config{}, err
		}
		cfg.Settings = cfg.Settings.Merge(fileSettings)
	}
	cfg.Settings = cfg.Settings.Merge(SettingsFromEnv())

	dataDir, err := paths.ResolveDataDir(opts.DataDirFlag, cfg.DataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server", types.DefaultServer)
	v.SetDefault("timeout", types.DefaultTimeout)
	v.SetDefault("log_level", types.DefaultLogLevel)
	v.SetDefault("log_format", types.DefaultLogFormat)
	v.SetDefault("cookie", "")
	v.SetDefault("settings_file", "")
	v.SetDefault("data_dir", "")
}

func loadDotEnv(files []string) error {
	if files == nil {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// ReadSettingsFile decodes a JSON settings bundle, the same object a page
// would expose as its settings global. Unknown keys are ignored.
func ReadSettingsFile(path string) (types.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Settings{}, fmt.Errorf("%w: %v", ErrSettingsFile, err)
	}
	var s types.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return types.Settings{}, fmt.Errorf("%w: %s: %v", ErrSettingsFile, path, err)
	}
	return s, nil
}

// SettingsFromEnv reads GEOCLIENT_SETTINGS_<KEY> variables, where KEY is the
// bundle key upper-cased (GEOCLIENT_SETTINGS_APIPOINTSURL).
func SettingsFromEnv() types.Settings {
	m := make(map[string]string, len(types.SettingsKeys))
	for _, k := range types.SettingsKeys {
		if v, ok := os.LookupEnv(SettingsEnvVar(k)); ok {
			m[k] = v
		}
	}
	return types.SettingsFromMap(m)
}

// SettingsEnvVar returns the environment variable name for a bundle key.
func SettingsEnvVar(key string) string {
	return EnvPrefix + "_SETTINGS_" + strings.ToUpper(key)
}
