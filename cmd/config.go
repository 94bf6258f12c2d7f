package cmd

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dataops-tools/model-diff/cmd/report"
)

// Static errors for configuration validation
var (
	ErrModelRequired          = errors.New("model name is required")
	ErrModelInvalid           = errors.New("model name is invalid: must start with a letter or underscore and contain only letters, numbers, and underscores")
	ErrBaseRefRequired        = errors.New("base ref is required")
	ErrHeadRefRequired        = errors.New("head ref is required")
	ErrKeyColumnInvalid       = errors.New("key column is invalid: must start with a letter or underscore and contain only letters, numbers, and underscores")
	ErrSampleNegative         = errors.New("sample must be >= 0")
	ErrFormatInvalid          = errors.New("format must be one of: text, json, markdown")
	ErrPublishEndpointMissing = errors.New("S3 endpoint is required when publishing")
	ErrPublishBucketMissing   = errors.New("S3 bucket is required when publishing")
	ErrPublishKeyMissing      = errors.New("S3 object key is required when publishing")
	ErrCompressionInvalid     = errors.New("compression must be one of: zstd, lz4, gzip, none")
)

// Config is the fully merged run configuration (flags, config file, env).
type Config struct {
	Debug     bool
	LogFormat string
	DryRun    bool

	Model       string
	BaseRef     string
	HeadRef     string
	KeyColumns  []string
	Where       string
	Sample      int
	KeepSchemas bool
	ColStats    bool

	ProjectDir  string
	ProfilesDir string
	Profile     string
	Target      string

	Format string
	Output string

	Publish PublishConfig
}

// PublishConfig configures optional upload of the rendered report to
// S3-compatible object storage.
type PublishConfig struct {
	Enabled          bool
	Endpoint         string
	Bucket           string
	AccessKey        string
	SecretKey        string
	Region           string
	Key              string
	Compression      string
	CompressionLevel int
}

// validIdentifier matches dbt model names and warehouse column names; both
// are interpolated (quoted) into SQL, but rejecting junk early gives better
// errors than a warehouse parse failure.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var validFormats = map[string]bool{"text": true, "json": true, "markdown": true}

var validCompressions = map[string]bool{"zstd": true, "lz4": true, "gzip": true, "none": true}

// Validate checks the merged configuration before any warehouse connection
// is opened.
func (c *Config) Validate() error {
	if c.Model == "" {
		return ErrModelRequired
	}
	if !validIdentifier.MatchString(c.Model) {
		return fmt.Errorf("%w: %s", ErrModelInvalid, c.Model)
	}
	if c.BaseRef == "" {
		return ErrBaseRefRequired
	}
	if c.HeadRef == "" {
		return ErrHeadRefRequired
	}
	for _, k := range c.KeyColumns {
		if !validIdentifier.MatchString(k) {
			return fmt.Errorf("%w: %s", ErrKeyColumnInvalid, k)
		}
	}
	if c.Sample < 0 {
		return ErrSampleNegative
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("%w, got: %s", ErrFormatInvalid, c.Format)
	}

	if c.Publish.Enabled {
		if c.Publish.Endpoint == "" {
			return ErrPublishEndpointMissing
		}
		if c.Publish.Bucket == "" {
			return ErrPublishBucketMissing
		}
		if c.Publish.Key == "" {
			return ErrPublishKeyMissing
		}
		if !validCompressions[c.Publish.Compression] {
			return fmt.Errorf("%w, got: %s", ErrCompressionInvalid, c.Publish.Compression)
		}
	}

	return nil
}

// Mode returns the run mode implied by the key column list.
func (c *Config) Mode() string {
	if len(c.KeyColumns) > 0 {
		return report.ModeFullDiff
	}
	return report.ModeStatsOnly
}
