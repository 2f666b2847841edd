package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/bind"
)

// PullOptions holds options for pull
type PullOptions struct {
	Remote     adapters.Table
	OutputFile string
	SheetName  string
	Fields     []string // nil = все колонки
	Bind       bind.Options
}

// Pull reads the whole remote table and saves it to a file
func Pull(ctx context.Context, opts PullOptions, out io.Writer) error {
	fmt.Fprintf(out, "Pulling table '%s'...\n", opts.Remote.Name())

	bt, err := bind.Pull(ctx, opts.Remote, opts.Bind)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}
	fmt.Fprintf(out, "✓ Records: %d\n", bt.Len())
	fmt.Fprintf(out, "✓ Columns: %d\n", len(bt.Table.Columns))

	tbl := bt.Table
	if opts.Fields != nil {
		tbl, err = tbl.Select(nil, opts.Fields)
		if err != nil {
			return fmt.Errorf("select fields: %w", err)
		}
	}

	if err := WriteTable(opts.OutputFile, opts.SheetName, tbl); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.OutputFile, err)
	}
	fmt.Fprintf(out, "✓ Saved: %s\n", opts.OutputFile)
	return nil
}
