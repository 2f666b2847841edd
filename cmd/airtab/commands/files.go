package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
	"github.com/ruslano69/tdtp-airtable/pkg/snapshot"
	"github.com/ruslano69/tdtp-airtable/pkg/xlsx"
)

// Форматы файлов таблиц
const (
	FormatXLSX     = "xlsx"
	FormatJSON     = "json"
	FormatJSONZstd = "json.zst"
)

// DetectFormat определяет формат файла по расширению
func DetectFormat(path string) (string, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json.zst"):
		return FormatJSONZstd, nil
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s (use .xlsx, .json or .json.zst)", filepath.Base(path))
	}
}

// ReadTable читает таблицу из файла
func ReadTable(path, sheet string) (*table.Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return xlsx.FromXLSX(path, sheet)
	}
	return snapshot.Load(path)
}

// WriteTable записывает таблицу в файл
func WriteTable(path, sheet string, tbl *table.Table) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if format == FormatXLSX {
		return xlsx.ToXLSX(tbl, path, sheet)
	}
	return snapshot.Save(path, tbl)
}

// OutputFile возвращает путь вывода: явный или <table>.<ext>
func OutputFile(output, tableName, ext string) string {
	if output != "" {
		return output
	}
	name := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(tableName)
	if name == "" {
		name = "table"
	}
	return name + "." + ext
}
