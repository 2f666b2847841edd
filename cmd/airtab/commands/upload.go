package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/bind"
)

// UploadOptions holds options for upload
type UploadOptions struct {
	Remote    adapters.Table
	InputFile string
	SheetName string
	Overwrite bool
	Bind      bind.Options
	Publisher Publisher
}

// Upload matches file rows to remote records by primary key,
// inserting absent ones and updating present ones on overwrite
func Upload(ctx context.Context, opts UploadOptions, out io.Writer) (*bind.Report, error) {
	fmt.Fprintf(out, "Uploading %s to '%s'...\n", opts.InputFile, opts.Remote.Name())

	tbl, err := ReadTable(opts.InputFile, opts.SheetName)
	if err != nil {
		return nil, publish(ctx, opts.Publisher, nil, fmt.Errorf("failed to read %s: %w", opts.InputFile, err), out)
	}
	fmt.Fprintf(out, "✓ Rows: %d\n", tbl.Len())

	report, err := bind.Upload(ctx, opts.Remote, tbl, bind.UploadOptions{
		Options:   opts.Bind,
		Overwrite: opts.Overwrite,
	})
	if err != nil {
		return report, publish(ctx, opts.Publisher, report, fmt.Errorf("upload failed: %w", err), out)
	}

	PrintReport(out, report)
	return report, publish(ctx, opts.Publisher, report, nil, out)
}
