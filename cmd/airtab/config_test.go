package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/writer"
)

func TestLoadConfig_KeepsDefaults(t *testing.T) {
	t.Setenv(envAPIKey, "key-from-env")
	t.Setenv(envBaseID, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlText := `
airtable:
  base_id: appABC
  table: Experiments
write:
  robust: false
  upsert_fallback: not_found
retry:
  max_attempts: 2
  initial_delay: 100ms
`
	if err := os.WriteFile(path, []byte(yamlText), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Airtable.APIKey != "key-from-env" {
		t.Errorf("APIKey = %q, want value from env", config.Airtable.APIKey)
	}
	if config.Airtable.BaseID != "appABC" {
		t.Errorf("BaseID = %q, want appABC", config.Airtable.BaseID)
	}
	if config.Airtable.Timeout != 30 {
		t.Errorf("Timeout = %d, want default 30", config.Airtable.Timeout)
	}
	if !config.Write.Typecast {
		t.Error("typecast default must survive partial config")
	}
	if config.Retry.MaxAttempts != 2 || config.Retry.InitialDelay != 100*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", config.Retry)
	}
	if !config.Retry.Enabled {
		t.Error("retry must stay enabled")
	}

	opts, err := config.WriterOptions()
	if err != nil {
		t.Fatalf("WriterOptions() error = %v", err)
	}
	if opts.Robust || opts.UpsertFallback != writer.FallbackNotFound {
		t.Errorf("unexpected writer options: %+v", opts)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("airtable: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestSampleConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer
	if err := createConfigTemplate(path, &out); err != nil {
		t.Fatalf("createConfigTemplate() error = %v", err)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("output should mention %s: %q", path, out.String())
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Airtable.Table != "Experiments" || config.Attachments.URLLifetime != 300 {
		t.Errorf("unexpected sample config: %+v", config)
	}

	ao := config.AttachmentOptions()
	if ao.URLLifetime != 300*time.Second || !ao.KeepOld {
		t.Errorf("unexpected attachment options: %+v", ao)
	}

	ac := config.AdapterConfig("airtable", "Other")
	if ac.Table != "Other" || ac.Timeout != 30*time.Second {
		t.Errorf("unexpected adapter config: %+v", ac)
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
	got := splitList(" Name, Score ,,Notes")
	if strings.Join(got, "|") != "Name|Score|Notes" {
		t.Errorf("splitList() = %v", got)
	}
}

func TestRun_CommandValidation(t *testing.T) {
	ctx := context.Background()
	var out, errOut bytes.Buffer

	if err := run(ctx, []string{"--pull", "--push", "x.json"}, &out, &errOut); err == nil {
		t.Error("expected error for two commands")
	}
	if err := run(ctx, []string{"--memory", "--push", "x.json", "--mode", "replace"}, &out, &errOut); err == nil {
		t.Error("expected error for unknown mode")
	}
	if err := run(ctx, []string{"--nosuchflag"}, &out, &errOut); err == nil {
		t.Error("expected flag parse error")
	}
}

func TestRun_MemoryPullAndUpload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var out, errOut bytes.Buffer
	output := filepath.Join(dir, "empty.json")
	if err := run(ctx, []string{"--memory", "--table", "Runs", "--pull", "--output", output}, &out, &errOut); err != nil {
		t.Fatalf("pull error = %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("pull output missing: %v", err)
	}

	if err := run(ctx, []string{"--memory", "--upload", output, "--primary-key", "Name"}, &out, &errOut); err != nil {
		t.Fatalf("upload error = %v", err)
	}
	if !strings.Contains(out.String(), "0 failed") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "warn", Format: "json"}, false, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"message":"shown"`) {
		t.Errorf("unexpected log output: %s", buf.String())
	}

	buf.Reset()
	logger = newLogger(LogConfig{Level: "warn", Format: "json"}, true, &buf)
	logger.Debug().Msg("debug")
	if !strings.Contains(buf.String(), "debug") {
		t.Error("-v must enable debug level")
	}
}
