package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/bind"
)

// Publisher публикует итог push (resultlog.RedisPublisher)
type Publisher interface {
	Publish(ctx context.Context, report *bind.Report, execErr error) error
}

// PushOptions holds options for push
type PushOptions struct {
	Remote    adapters.Table
	InputFile string
	SheetName string
	Mode      adapters.WriteMode
	Fields    []string
	Bind      bind.Options
	Publisher Publisher // nil = не публиковать
}

// Push writes rows of a file to the remote table in the given mode
func Push(ctx context.Context, opts PushOptions, out io.Writer) (*bind.Report, error) {
	fmt.Fprintf(out, "Pushing %s to '%s' (%s)...\n", opts.InputFile, opts.Remote.Name(), opts.Mode)

	tbl, err := ReadTable(opts.InputFile, opts.SheetName)
	if err != nil {
		return nil, publish(ctx, opts.Publisher, nil, fmt.Errorf("failed to read %s: %w", opts.InputFile, err), out)
	}
	fmt.Fprintf(out, "✓ Rows: %d\n", tbl.Len())
	if tbl.HasRecordIndex() {
		fmt.Fprintf(out, "✓ Rows are matched by %s\n", tbl.IndexName)
	}

	bt := bind.Bind(tbl, opts.Remote, opts.Bind)
	report, err := bt.Push(ctx, opts.Mode, bind.PushOptions{Fields: opts.Fields})
	if err != nil {
		return report, publish(ctx, opts.Publisher, report, fmt.Errorf("push failed: %w", err), out)
	}

	PrintReport(out, report)
	return report, publish(ctx, opts.Publisher, report, nil, out)
}

// PrintReport prints push summary and failed rows
func PrintReport(out io.Writer, report *bind.Report) {
	s := report.Summary
	fmt.Fprintf(out, "✓ Done in %v: %d succeeded, %d partial, %d failed, %d skipped (total %d)\n",
		report.Duration.Round(time.Millisecond), s.Succeeded, s.Partial, s.Failed, s.Skipped, s.Total)

	for _, rr := range report.Rows {
		switch rr.Outcome {
		case bind.OutcomePartial:
			fmt.Fprintf(out, "  ~ row %d (%s): fields not written: %v\n", rr.Index, rr.Label, rr.Result.FailedFields())
		case bind.OutcomeFailed:
			fmt.Fprintf(out, "  ✗ row %d (%s): %s\n", rr.Index, rr.Label, rr.Error)
		}
	}
}

// publish отправляет результат; ошибка публикации не заменяет ошибку push
func publish(ctx context.Context, p Publisher, report *bind.Report, execErr error, out io.Writer) error {
	if p == nil {
		return execErr
	}
	if err := p.Publish(ctx, report, execErr); err != nil {
		fmt.Fprintf(out, "⚠ Result not published: %v\n", err)
	}
	return execErr
}
