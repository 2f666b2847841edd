// Package snapshot сохраняет таблицы в JSON файлы и читает их обратно.
// Файлы с расширением .zst сжимаются zstd. Строки защищены xxh3 checksum.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// Version - версия формата файла
const Version = 1

type file struct {
	Version    int             `json:"version"`
	Name       string          `json:"name"`
	IndexName  string          `json:"index_name,omitempty"`
	PrimaryKey string          `json:"primary_key,omitempty"`
	Columns    []string        `json:"columns"`
	SavedAt    time.Time       `json:"saved_at"`
	Checksum   string          `json:"checksum"`
	Rows       json.RawMessage `json:"rows"`
}

type row struct {
	Label    string        `json:"label,omitempty"`
	RecordID string        `json:"record_id,omitempty"`
	Fields   *table.Fields `json:"fields"`
}

// IsCompressed - путь указывает на сжатый snapshot
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Save записывает таблицу в path
func Save(path string, tbl *table.Table) error {
	rows := make([]row, len(tbl.Rows))
	for i, r := range tbl.Rows {
		rows[i] = row{Label: r.Label, RecordID: r.RecordID, Fields: r.Fields}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("snapshot: encode rows: %w", err)
	}

	data, err := json.Marshal(file{
		Version:    Version,
		Name:       tbl.Name,
		IndexName:  tbl.IndexName,
		PrimaryKey: tbl.PrimaryKey,
		Columns:    tbl.Columns,
		SavedAt:    time.Now().UTC(),
		Checksum:   checksum(rowsJSON),
		Rows:       rowsJSON,
	})
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var enc *zstd.Encoder
	if IsCompressed(path) {
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("snapshot: failed to create zstd encoder: %w", err)
		}
		w = enc
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("snapshot: flush zstd: %w", err)
		}
	}
	return f.Close()
}

// Load читает таблицу из path
func Load(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsCompressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}

	var snap file
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", snap.Version)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, snap.Rows); err != nil {
		return nil, fmt.Errorf("snapshot: rows: %w", err)
	}
	if got := checksum(compact.Bytes()); got != snap.Checksum {
		return nil, fmt.Errorf("snapshot: checksum mismatch in %s: expected %s, got %s", path, snap.Checksum, got)
	}

	var rows []row
	if err := json.Unmarshal(snap.Rows, &rows); err != nil {
		return nil, fmt.Errorf("snapshot: decode rows: %w", err)
	}

	tbl := table.NewTable(snap.Name, snap.Columns...)
	tbl.IndexName = snap.IndexName
	tbl.PrimaryKey = snap.PrimaryKey
	for _, r := range rows {
		tr := table.NewRow(r.Fields)
		tr.Label = r.Label
		tr.RecordID = r.RecordID
		tbl.Append(tr)
	}
	return tbl, nil
}

func checksum(data []byte) string {
	return strconv.FormatUint(xxh3.Hash(data), 16)
}
