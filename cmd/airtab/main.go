package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-airtable/cmd/airtab/commands"
	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	_ "github.com/ruslano69/tdtp-airtable/pkg/adapters/memory"
	"github.com/ruslano69/tdtp-airtable/pkg/airtable"
	"github.com/ruslano69/tdtp-airtable/pkg/attachment"
	"github.com/ruslano69/tdtp-airtable/pkg/bind"
	"github.com/ruslano69/tdtp-airtable/pkg/resultlog"
)

// errRowsFailed - команда выполнена, но часть строк не записана
var errRowsFailed = errors.New("some rows failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errRowsFailed):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	default:
		fatal("%v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags, err := ParseFlags(args)
	if err != nil {
		return err
	}

	// Handle version / help
	if *flags.Version {
		PrintVersion()
		return nil
	}
	if *flags.Help {
		PrintHelp()
		return nil
	}

	// Handle config creation
	if *flags.CreateConfig {
		return createConfigTemplate(*flags.Config, stdout)
	}

	switch flags.commandCount() {
	case 0:
		PrintHelp()
		return fmt.Errorf("no command specified")
	case 1:
	default:
		return fmt.Errorf("only one of --pull, --push, --upload, --attach may be given")
	}

	config, err := loadConfigOrDefault(*flags.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *flags.PrimaryKey != "" {
		config.Airtable.PrimaryKey = *flags.PrimaryKey
	}

	logger := newLogger(config.Log, *flags.Verbose, stderr)

	remote, err := openRemote(config, flags, logger)
	if err != nil {
		return err
	}

	writerOpts, err := config.WriterOptions()
	if err != nil {
		return err
	}
	bindOpts := bind.Options{
		PrimaryKey: config.Airtable.PrimaryKey,
		Writer:     writerOpts,
		Logger:     logger,
	}

	publisher := newPublisher(config.ResultLog, remote.Name())
	if publisher != nil {
		defer publisher.Close()
	}

	var report *bind.Report
	switch {
	case *flags.Pull:
		return commands.Pull(ctx, commands.PullOptions{
			Remote:     remote,
			OutputFile: commands.OutputFile(*flags.Output, remote.Name(), commands.FormatXLSX),
			SheetName:  *flags.Sheet,
			Fields:     flags.FieldList(),
			Bind:       bindOpts,
		}, stdout)

	case *flags.Push != "":
		mode, err := adapters.ParseWriteMode(*flags.Mode)
		if err != nil {
			return err
		}
		report, err = commands.Push(ctx, commands.PushOptions{
			Remote:    remote,
			InputFile: *flags.Push,
			SheetName: *flags.Sheet,
			Mode:      mode,
			Fields:    flags.FieldList(),
			Bind:      bindOpts,
			Publisher: publisherOrNil(publisher),
		}, stdout)
		if err != nil {
			return err
		}

	case *flags.Upload != "":
		report, err = commands.Upload(ctx, commands.UploadOptions{
			Remote:    remote,
			InputFile: *flags.Upload,
			SheetName: *flags.Sheet,
			Overwrite: *flags.Overwrite || config.Write.Overwrite,
			Bind:      bindOpts,
			Publisher: publisherOrNil(publisher),
		}, stdout)
		if err != nil {
			return err
		}

	case *flags.Attach != "":
		stager, err := newStager(ctx, config, *flags.Memory, logger)
		if err != nil {
			return err
		}
		return commands.Attach(ctx, commands.AttachOptions{
			Remote:   remote,
			Stager:   stager,
			FilePath: *flags.Attach,
			Record:   *flags.Record,
			Field:    *flags.Field,
			Bind:     bindOpts,
		}, stdout)
	}

	if report != nil && report.Summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errRowsFailed, report.Summary.Failed, report.Summary.Total)
	}
	return nil
}

// loadConfigOrDefault: отсутствующий config.yaml по умолчанию не ошибка
func loadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		config := DefaultConfig()
		config.applyEnv()
		return config, nil
	}
	return LoadConfig(path)
}

// newLogger configures zerolog for the CLI
func newLogger(cfg LogConfig, verbose bool, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// openRemote opens the Airtable table or an in-memory one with --memory
func openRemote(config *Config, flags *Flags, logger zerolog.Logger) (adapters.Table, error) {
	if *flags.Memory {
		cfg := config.AdapterConfig("memory", *flags.Table)
		if cfg.Table == "" {
			cfg.Table = "memory"
		}
		return adapters.New(cfg)
	}

	cfg := config.AdapterConfig("airtable", *flags.Table)
	client, err := airtable.NewClient(cfg, airtable.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return client.Table(cfg.Table)
}

// newStager builds attachment staging over S3 or memory
func newStager(ctx context.Context, config *Config, memory bool, logger zerolog.Logger) (*attachment.Stager, error) {
	opts := config.AttachmentOptions()

	var store attachment.ObjectStore
	if memory {
		store = attachment.NewMemoryStore()
		if opts.Bucket == "" {
			opts.Bucket = "memory"
		}
	} else {
		s3Store, err := attachment.NewS3Store(ctx, config.Attachments.S3)
		if err != nil {
			return nil, err
		}
		store = s3Store
	}
	return attachment.NewStager(store, opts).WithLogger(logger), nil
}

// newPublisher returns nil when the result log is disabled
func newPublisher(cfg resultlog.Config, tableName string) *resultlog.RedisPublisher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Name == "" {
		cfg.Name = tableName
	}
	return resultlog.NewRedisPublisher(cfg)
}

// publisherOrNil избегает interface с nil указателем внутри
func publisherOrNil(p *resultlog.RedisPublisher) commands.Publisher {
	if p == nil {
		return nil
	}
	return p
}

// createConfigTemplate creates a sample configuration file
func createConfigTemplate(path string, out io.Writer) error {
	if err := SaveConfig(path, CreateSampleConfig()); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "✓ Created sample config: %s\n", path)
	fmt.Fprintln(out, "Set AIRTABLE_API_KEY, edit base_id and table, then run:")
	fmt.Fprintf(out, "  airtab --pull --config %s\n", path)
	return nil
}

// fatal prints error and exits
func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
