package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero max idle rounds",
			mutate: func(cfg *Config) {
				cfg.MaxIdleRounds = 0
			},
			wantErr: "max idle rounds",
		},
		{
			name: "empty listing url",
			mutate: func(cfg *Config) {
				cfg.ListingURL = ""
			},
			wantErr: "listing URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.ListingURL = "http://"
			},
			wantErr: "listing URL",
		},
		{
			name: "file url with rod driver",
			mutate: func(cfg *Config) {
				cfg.ListingURL = "file:///tmp/listing.html"
			},
			wantErr: "replay driver",
		},
		{
			name: "unknown driver",
			mutate: func(cfg *Config) {
				cfg.Driver = "selenium"
			},
			wantErr: "driver",
		},
		{
			name: "negative stability timeout",
			mutate: func(cfg *Config) {
				cfg.StabilityTimeout = -1 * time.Second
			},
			wantErr: "stability timeout",
		},
		{
			name: "hard wait shorter than stability",
			mutate: func(cfg *Config) {
				cfg.StabilityTimeout = 10 * time.Second
				cfg.HardWaitTimeout = time.Second
			},
			wantErr: "hard wait",
		},
		{
			name: "negative target",
			mutate: func(cfg *Config) {
				cfg.TargetCount = -5
			},
			wantErr: "target count",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 10 * time.Second
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "bad output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xlsx"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestReplayAcceptsFileURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = DriverReplay
	cfg.ListingURL = "file:///tmp/listing.html"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("replay config should validate, got %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("REVIEWS_TARGET", " 250 ")
	t.Setenv("REVIEWS_HEADLESS", "false")
	t.Setenv("REVIEWS_HARD_WAIT", "45s")
	t.Setenv("REVIEWS_BAD", "many")

	if v, ok, err := EnvInt("REVIEWS_TARGET"); err != nil || !ok || v != 250 {
		t.Fatalf("EnvInt = %d, %v, %v", v, ok, err)
	}
	if v, ok, err := EnvBool("REVIEWS_HEADLESS"); err != nil || !ok || v {
		t.Fatalf("EnvBool = %v, %v, %v", v, ok, err)
	}
	if v, ok, err := EnvDuration("REVIEWS_HARD_WAIT"); err != nil || !ok || v != 45*time.Second {
		t.Fatalf("EnvDuration = %v, %v, %v", v, ok, err)
	}
	if _, _, err := EnvInt("REVIEWS_BAD"); err == nil {
		t.Fatalf("expected parse error for REVIEWS_BAD")
	}
	if _, ok := EnvString("REVIEWS_UNSET"); ok {
		t.Fatalf("unset key should not be reported")
	}
}
