package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/attachment"
	"github.com/ruslano69/tdtp-airtable/pkg/bind"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// AttachOptions holds options for attach
type AttachOptions struct {
	Remote   adapters.Table
	Stager   *attachment.Stager
	FilePath string
	// Record - record id или значение первичного ключа
	Record string
	Field  string
	Bind   bind.Options
}

// Attach stages a local file and appends it to an attachment field
func Attach(ctx context.Context, opts AttachOptions, out io.Writer) error {
	if opts.Record == "" || opts.Field == "" {
		return fmt.Errorf("--record and --field are required for --attach")
	}
	fmt.Fprintf(out, "Attaching %s to '%s'.%s...\n", opts.FilePath, opts.Record, opts.Field)

	row := table.NewRow(nil)
	row.Label = opts.Record
	if !table.LooksLikeRecordID(opts.Record) {
		if opts.Bind.PrimaryKey == "" {
			return fmt.Errorf("'%s' is not a record id and no primary key is configured", opts.Record)
		}
		row.Set(opts.Bind.PrimaryKey, opts.Record)
	}

	rec, err := attachment.Attachment{
		FilePath: opts.FilePath,
		Field:    opts.Field,
		Row:      bind.NewRow(row, opts.Remote, opts.Bind),
	}.Upload(ctx, opts.Stager)
	if err != nil {
		return fmt.Errorf("attach failed: %w", err)
	}

	n := 0
	if list, ok := rec.Fields.Get(opts.Field); ok {
		if items, ok := list.([]any); ok {
			n = len(items)
		}
	}
	fmt.Fprintf(out, "✓ Record %s: %d attachment(s) in '%s'\n", rec.ID, n, opts.Field)
	return nil
}
