package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Server: "http://localhost:8000", Timeout: time.Second}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "empty server returns ErrServerEmpty",
			mutate:  func(c *Config) { c.Server = "" },
			wantErr: ErrServerEmpty,
		},
		{
			name:    "relative server returns ErrServerInvalid",
			mutate:  func(c *Config) { c.Server = "/api/" },
			wantErr: ErrServerInvalid,
		},
		{
			name:    "non-http scheme returns ErrServerInvalid",
			mutate:  func(c *Config) { c.Server = "ftp://example.com" },
			wantErr: ErrServerInvalid,
		},
		{
			name:    "zero timeout returns ErrTimeoutInvalid",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrTimeoutInvalid,
		},
		{
			name:    "unknown log format returns ErrLogFormatUnknown",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: ErrLogFormatUnknown,
		},
		{
			name:    "json log format is valid",
			mutate:  func(c *Config) { c.LogFormat = "json" },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
