package main

import "fmt"

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("airtab version %s\n", version)
	fmt.Println("TDTP Airtable - table binding for the Airtable REST API")
}

// PrintHelp prints comprehensive help information
func PrintHelp() {
	fmt.Println("airtab - pull, push and upload Airtable tables")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  airtab [command] [options]")
	fmt.Println()

	fmt.Println("COMMANDS:")
	fmt.Println("    --pull                     Pull the whole table into a file")
	fmt.Println("    --push <file>              Push file rows (--mode insert|update|upsert|delete)")
	fmt.Println("    --upload <file>            Insert absent rows by primary key (--overwrite updates)")
	fmt.Println("    --attach <file>            Stage a file in S3 and append it to --field of --record")
	fmt.Println()

	fmt.Println("OPTIONS:")
	fmt.Println("    --config <file>            Configuration file (default: config.yaml)")
	fmt.Println("    --table <name>             Table name (overrides config)")
	fmt.Println("    --output <file>            Output file for --pull")
	fmt.Println("    --sheet <name>             Excel sheet name")
	fmt.Println("    --fields <a,b,c>           Subset of fields")
	fmt.Println("    --primary-key <field>      Primary key field (default: first column)")
	fmt.Println("    --memory                   In-memory table and object store (dry run)")
	fmt.Println("    --create-config            Create sample config.yaml")
	fmt.Println("    -v                         Debug logging")
	fmt.Println()

	fmt.Println("FILES:")
	fmt.Println("    .xlsx                      Headers 'name (TYPE)', primary key marked with *")
	fmt.Println("    .json, .json.zst           Snapshot (zstd when .zst), xxh3 checksum")
	fmt.Println()

	fmt.Println("ENVIRONMENT:")
	fmt.Println("    AIRTABLE_API_KEY           API key when airtable.api_key is empty")
	fmt.Println("    AIRTABLE_BASE_ID           Base id when airtable.base_id is empty")
	fmt.Println("    TEMP_FILES_BUCKET          Attachment bucket when attachments.bucket is empty")
	fmt.Println()

	fmt.Println("EXAMPLES:")
	fmt.Println("  airtab --pull --output experiments.xlsx")
	fmt.Println("  airtab --push experiments.xlsx --mode update --fields Score,Notes")
	fmt.Println("  airtab --upload new_runs.json.zst --primary-key Name --overwrite")
	fmt.Println("  airtab --attach plot.png --record run-42 --field Plots --primary-key Name")
}
