package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/attachment"
	"github.com/ruslano69/tdtp-airtable/pkg/resilience"
	"github.com/ruslano69/tdtp-airtable/pkg/resultlog"
	"github.com/ruslano69/tdtp-airtable/pkg/retry"
	"github.com/ruslano69/tdtp-airtable/pkg/writer"
)

// Переменные окружения для секретов
const (
	envAPIKey = "AIRTABLE_API_KEY"
	envBaseID = "AIRTABLE_BASE_ID"
)

// Config represents the main configuration structure
type Config struct {
	Airtable    AirtableConfig    `yaml:"airtable"`
	Write       WriteConfig       `yaml:"write"`
	Attachments AttachmentsConfig `yaml:"attachments,omitempty"`
	Retry       retry.Config      `yaml:"retry"`
	Breaker     resilience.Config `yaml:"circuit_breaker"`
	ResultLog   resultlog.Config  `yaml:"result_log,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty"`
}

// AirtableConfig contains connection settings
type AirtableConfig struct {
	BaseID     string `yaml:"base_id"`
	APIKey     string `yaml:"api_key,omitempty"` // пусто = AIRTABLE_API_KEY
	Table      string `yaml:"table"`
	Endpoint   string `yaml:"endpoint,omitempty"`
	Timeout    int    `yaml:"timeout"` // Request timeout in seconds
	PrimaryKey string `yaml:"primary_key,omitempty"`
}

// WriteConfig contains write protocol settings
type WriteConfig struct {
	Typecast       bool   `yaml:"typecast"`
	Robust         bool   `yaml:"robust"`
	Overwrite      bool   `yaml:"overwrite"`
	UpsertFallback string `yaml:"upsert_fallback"` // always, not_found
}

// AttachmentsConfig contains attachment staging settings
type AttachmentsConfig struct {
	Bucket       string              `yaml:"bucket,omitempty"` // пусто = TEMP_FILES_BUCKET
	URLLifetime  int                 `yaml:"s3_url_lifetime"`  // Presigned URL lifetime in seconds
	KeepOld      bool                `yaml:"keep_old_attachments"`
	DeleteLocal  bool                `yaml:"delete_local_file_when_done"`
	DeleteStaged bool                `yaml:"delete_staged_file_when_done"`
	S3           attachment.S3Config `yaml:"s3,omitempty"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig returns configuration with library defaults
func DefaultConfig() *Config {
	wo := writer.DefaultOptions()
	ao := attachment.DefaultOptions()
	return &Config{
		Airtable: AirtableConfig{Timeout: 30},
		Write: WriteConfig{
			Typecast:       wo.Typecast,
			Robust:         wo.Robust,
			UpsertFallback: wo.UpsertFallback.String(),
		},
		Attachments: AttachmentsConfig{
			URLLifetime: int(ao.URLLifetime / time.Second),
			KeepOld:     ao.KeepOld,
		},
		Retry:   adapters.DefaultRetryConfig(),
		Breaker: resilience.DefaultConfig("airtable"),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from YAML file.
// Missing keys keep their defaults; secrets fall back to environment.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// applyEnv fills empty secrets from environment
func (c *Config) applyEnv() {
	if c.Airtable.APIKey == "" {
		c.Airtable.APIKey = os.Getenv(envAPIKey)
	}
	if c.Airtable.BaseID == "" {
		c.Airtable.BaseID = os.Getenv(envBaseID)
	}
	if c.Attachments.Bucket == "" {
		c.Attachments.Bucket = os.Getenv(attachment.BucketEnv)
	}
}

// SaveConfig saves configuration to YAML file
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateSampleConfig creates sample configuration
func CreateSampleConfig() *Config {
	config := DefaultConfig()
	config.Airtable.BaseID = "appXXXXXXXXXXXXXX"
	config.Airtable.Table = "Experiments"
	config.Airtable.PrimaryKey = "Name"
	config.Attachments.Bucket = "my-temp-files"
	config.Attachments.S3.Region = "us-west-1"
	config.ResultLog = resultlog.Config{
		Enabled: false,
		Address: "localhost:6379",
		Name:    "experiments",
		TTL:     86400,
	}
	return config
}

// AdapterConfig builds remote table configuration
func (c *Config) AdapterConfig(backend, tableName string) adapters.Config {
	name := c.Airtable.Table
	if tableName != "" {
		name = tableName
	}
	return adapters.Config{
		Type:     backend,
		BaseID:   c.Airtable.BaseID,
		APIKey:   c.Airtable.APIKey,
		Table:    name,
		Endpoint: c.Airtable.Endpoint,
		Timeout:  time.Duration(c.Airtable.Timeout) * time.Second,
		Retry:    c.Retry,
		Breaker:  c.Breaker,
	}
}

// WriterOptions builds write protocol options
func (c *Config) WriterOptions() (writer.Options, error) {
	fallback, err := writer.ParseUpsertFallback(c.Write.UpsertFallback)
	if err != nil {
		return writer.Options{}, err
	}
	return writer.Options{
		Typecast:       c.Write.Typecast,
		Robust:         c.Write.Robust,
		UpsertFallback: fallback,
	}, nil
}

// AttachmentOptions builds attachment staging options
func (c *Config) AttachmentOptions() attachment.Options {
	return attachment.Options{
		Bucket:       c.Attachments.Bucket,
		URLLifetime:  time.Duration(c.Attachments.URLLifetime) * time.Second,
		KeepOld:      c.Attachments.KeepOld,
		DeleteLocal:  c.Attachments.DeleteLocal,
		DeleteStaged: c.Attachments.DeleteStaged,
		Typecast:     c.Write.Typecast,
	}
}
