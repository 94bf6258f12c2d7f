package cmd

import (
	"errors"
	"testing"

	"github.com/dataops-tools/model-diff/cmd/report"
)

func validTestConfig() *Config {
	return &Config{
		Model:   "orders",
		BaseRef: "main",
		HeadRef: "HEAD",
		Sample:  20,
		Format:  "text",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid minimal config",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "missing model",
			mutate:  func(c *Config) { c.Model = "" },
			wantErr: ErrModelRequired,
		},
		{
			name:    "model with sql injection",
			mutate:  func(c *Config) { c.Model = "orders; drop table users" },
			wantErr: ErrModelInvalid,
		},
		{
			name:    "model with dash",
			mutate:  func(c *Config) { c.Model = "my-model" },
			wantErr: ErrModelInvalid,
		},
		{
			name:    "model starting with digit",
			mutate:  func(c *Config) { c.Model = "1orders" },
			wantErr: ErrModelInvalid,
		},
		{
			name:    "model starting with underscore is fine",
			mutate:  func(c *Config) { c.Model = "_int_orders" },
			wantErr: nil,
		},
		{
			name:    "missing base ref",
			mutate:  func(c *Config) { c.BaseRef = "" },
			wantErr: ErrBaseRefRequired,
		},
		{
			name:    "missing head ref",
			mutate:  func(c *Config) { c.HeadRef = "" },
			wantErr: ErrHeadRefRequired,
		},
		{
			name:    "bad key column",
			mutate:  func(c *Config) { c.KeyColumns = []string{"id", "bad col"} },
			wantErr: ErrKeyColumnInvalid,
		},
		{
			name:    "negative sample",
			mutate:  func(c *Config) { c.Sample = -1 },
			wantErr: ErrSampleNegative,
		},
		{
			name:    "zero sample is fine",
			mutate:  func(c *Config) { c.Sample = 0 },
			wantErr: nil,
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Format = "yaml" },
			wantErr: ErrFormatInvalid,
		},
		{
			name: "publish without endpoint",
			mutate: func(c *Config) {
				c.Publish = PublishConfig{Enabled: true, Bucket: "b", Key: "k", Compression: "none"}
			},
			wantErr: ErrPublishEndpointMissing,
		},
		{
			name: "publish without bucket",
			mutate: func(c *Config) {
				c.Publish = PublishConfig{Enabled: true, Endpoint: "http://minio:9000", Key: "k", Compression: "none"}
			},
			wantErr: ErrPublishBucketMissing,
		},
		{
			name: "publish without key template",
			mutate: func(c *Config) {
				c.Publish = PublishConfig{Enabled: true, Endpoint: "http://minio:9000", Bucket: "b", Compression: "none"}
			},
			wantErr: ErrPublishKeyMissing,
		},
		{
			name: "publish with bad compression",
			mutate: func(c *Config) {
				c.Publish = PublishConfig{Enabled: true, Endpoint: "http://minio:9000", Bucket: "b", Key: "k", Compression: "bzip2"}
			},
			wantErr: ErrCompressionInvalid,
		},
		{
			name: "publish disabled skips publish checks",
			mutate: func(c *Config) {
				c.Publish = PublishConfig{Enabled: false}
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigMode(t *testing.T) {
	cfg := validTestConfig()
	if got := cfg.Mode(); got != report.ModeStatsOnly {
		t.Errorf("Mode without keys = %q, want %q", got, report.ModeStatsOnly)
	}
	cfg.KeyColumns = []string{"id"}
	if got := cfg.Mode(); got != report.ModeFullDiff {
		t.Errorf("Mode with keys = %q, want %q", got, report.ModeFullDiff)
	}
}
