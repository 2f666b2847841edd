package main

import (
	"flag"
	"strings"
)

// Flags holds all command-line flags
type Flags struct {
	// Commands
	Pull   *bool
	Push   *string
	Upload *string
	Attach *string

	// Options
	Config     *string
	Table      *string
	Output     *string
	Sheet      *string
	Fields     *string
	PrimaryKey *string
	Mode       *string
	Overwrite  *bool
	Record     *string
	Field      *string
	Memory     *bool

	// Config Creation
	CreateConfig *bool

	// Misc
	Verbose *bool
	Version *bool
	Help    *bool
}

// ParseFlags defines and parses all command-line flags
func ParseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("airtab", flag.ContinueOnError)
	f := &Flags{}

	// Commands
	f.Pull = fs.Bool("pull", false, "Pull the whole table into a file (--output)")
	f.Push = fs.String("push", "", "Push rows of a file to the table (file path)")
	f.Upload = fs.String("upload", "", "Upload a file matching rows by primary key (file path)")
	f.Attach = fs.String("attach", "", "Attach a local file to a record field (file path)")

	// Options
	f.Config = fs.String("config", "config.yaml", "Configuration file path")
	f.Table = fs.String("table", "", "Table name (overrides airtable.table from config)")
	f.Output = fs.String("output", "", "Output file: .xlsx, .json or .json.zst (default: <table>.xlsx)")
	f.Sheet = fs.String("sheet", "", "Excel sheet name (default: table name / first sheet)")
	f.Fields = fs.String("fields", "", "Comma-separated subset of fields to pull or push")
	f.PrimaryKey = fs.String("primary-key", "", "Primary key field (default: first column)")
	f.Mode = fs.String("mode", "upsert", "Push mode: insert, update, upsert, delete")
	f.Overwrite = fs.Bool("overwrite", false, "Update records that already exist during --upload")
	f.Record = fs.String("record", "", "Record id or primary key value for --attach")
	f.Field = fs.String("field", "", "Attachment field for --attach")
	f.Memory = fs.Bool("memory", false, "Use an in-memory table and object store (dry run)")

	// Config Creation
	f.CreateConfig = fs.Bool("create-config", false, "Create sample config file (config.yaml)")

	// Misc
	f.Verbose = fs.Bool("v", false, "Verbose (debug) logging")
	f.Version = fs.Bool("version", false, "Show version information")
	f.Help = fs.Bool("help", false, "Show detailed help with examples")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// FieldList splits --fields; empty means all fields
func (f *Flags) FieldList() []string {
	return splitList(*f.Fields)
}

// commandCount counts specified commands
func (f *Flags) commandCount() int {
	n := 0
	if *f.Pull {
		n++
	}
	for _, s := range []string{*f.Push, *f.Upload, *f.Attach} {
		if s != "" {
			n++
		}
	}
	return n
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
