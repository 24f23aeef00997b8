package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds the client configuration loaded at startup.
type Config struct {
	ConfigDir    string        `json:"-" yaml:"-" mapstructure:"-"`
	Server       string        `json:"server" yaml:"server" mapstructure:"server"`
	DataDir      string        `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout,omitempty" mapstructure:"timeout"`
	LogLevel     string        `json:"log_level" yaml:"log_level,omitempty" mapstructure:"log_level"`
	LogFormat    string        `json:"log_format" yaml:"log_format,omitempty" mapstructure:"log_format"`
	Cookie       string        `json:"cookie,omitempty" yaml:"cookie,omitempty" mapstructure:"cookie"`
	SettingsFile string        `json:"settings_file,omitempty" yaml:"settings_file,omitempty" mapstructure:"settings_file"`
	Settings     Settings      `json:"settings" yaml:"settings" mapstructure:"settings"`
}

// Defaults applied by the config loader.
const (
	DefaultServer    = "http://localhost:8000"
	DefaultTimeout   = 15 * time.Second
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config validation errors.
var (
	ErrServerEmpty      = errors.New("server must not be empty")
	ErrServerInvalid    = errors.New("server must be an absolute http(s) URL")
	ErrTimeoutInvalid   = errors.New("timeout must be positive")
	ErrLogFormatUnknown = errors.New("unknown log format")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Server == "" {
		return ErrServerEmpty
	}
	u, err := url.Parse(c.Server)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrServerInvalid
	}
	if c.Timeout <= 0 {
		return ErrTimeoutInvalid
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return ErrLogFormatUnknown
	}
	return nil
}
