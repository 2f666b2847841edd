package xlsx

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tdtp-airtable/pkg/core/schema"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// ListDelimiter - разделитель элементов списка в ячейке
const ListDelimiter = ", "

// ToXLSX - export table to XLSX file
//
// Headers show field names with types (e.g., "Score (INTEGER)").
// The primary key is marked with *. A table pulled from remote keeps its
// record_id index as the first, untyped column.
//
// Example:
//
//	err := xlsx.ToXLSX(bt.Table, "experiments.xlsx", "Experiments")
func ToXLSX(tbl *table.Table, filePath string, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = tbl.Name
		if sheetName == "" {
			sheetName = "Sheet1"
		}
	}

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	styles, err := newCellStyles(f)
	if err != nil {
		return err
	}

	headers := make([]string, 0, len(tbl.Columns)+1)
	offset := 0
	if tbl.IndexName != "" {
		headers = append(headers, tbl.IndexName)
		offset = 1
	}
	fieldDefs := tbl.Schema()
	for _, fd := range fieldDefs {
		header := fmt.Sprintf("%s (%s)", fd.Name, fd.Type)
		if fd.Key {
			header += " *"
		}
		headers = append(headers, header)
	}

	for col, header := range headers {
		cell := columnName(col+1) + "1"
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range tbl.Rows {
		line := strconv.Itoa(rowIdx + 2)
		if offset == 1 {
			label := row.Label
			if label == "" {
				label = row.RecordID
			}
			f.SetCellValue(sheetName, "A"+line, label)
		}
		for col, fd := range fieldDefs {
			v, ok := row.Fields.Get(fd.Name)
			if !ok || v == nil {
				continue
			}
			cell := columnName(col+1+offset) + line
			if err := f.SetCellValue(sheetName, cell, toExcel(schema.Coerce(v))); err != nil {
				return fmt.Errorf("row %d, field %s: %w", rowIdx, fd.Name, err)
			}
			if style, ok := styles[fd.Type]; ok {
				f.SetCellStyle(sheetName, cell, cell, style)
			}
		}
	}

	for col := range headers {
		colName := columnName(col + 1)
		f.SetColWidth(sheetName, colName, colName, 15)
	}

	return f.SaveAs(filePath)
}

// FromXLSX - read table from XLSX file
//
// Expects headers in format "field_name (TYPE)" or "field_name (TYPE) *" for
// the primary key. An untyped "record_id" first column becomes the row index.
//
// Example:
//
//	tbl, err := xlsx.FromXLSX("experiments.xlsx", "Experiments")
func FromXLSX(filePath string, sheetName string) (*table.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("sheet %s has no header row", sheetName)
	}

	headerRow := rows[0]
	indexName := ""
	start := 0
	if len(headerRow) > 0 && strings.TrimSpace(headerRow[0]) == table.RecordIDIndex {
		indexName = table.RecordIDIndex
		start = 1
	}

	columns := make([]string, 0, len(headerRow))
	types := make([]schema.DataType, 0, len(headerRow))
	primaryKey := ""
	for _, header := range headerRow[start:] {
		name, fieldType, isKey := parseHeader(header)
		columns = append(columns, name)
		types = append(types, fieldType)
		if isKey {
			primaryKey = name
		}
	}

	flat := make([]map[string]any, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		dataRow := rows[rowIdx]
		m := make(map[string]any, len(columns)+1)
		if indexName != "" && len(dataRow) > 0 && dataRow[0] != "" {
			m[indexName] = dataRow[0]
		}
		for col, name := range columns {
			i := col + start
			if i >= len(dataRow) {
				m[name] = nil
				continue
			}
			m[name] = convertFromExcel(dataRow[i], types[col])
		}
		flat = append(flat, m)
	}

	tbl, err := table.FromFlat(sheetName, columns, flat, indexName)
	if err != nil {
		return nil, err
	}
	tbl.PrimaryKey = primaryKey
	return tbl, nil
}

// parseHeader - parse header string "field_name (TYPE)" or "field_name (TYPE) *"
func parseHeader(header string) (name string, fieldType schema.DataType, isKey bool) {
	name = header
	fieldType = schema.TypeText

	if strings.HasSuffix(header, " *") {
		isKey = true
		header = strings.TrimSuffix(header, " *")
		name = header
	}

	if idx := strings.LastIndex(header, "("); idx > 0 {
		if endIdx := strings.LastIndex(header, ")"); endIdx > idx {
			typeStr := strings.TrimSpace(header[idx+1 : endIdx])
			if schema.IsValidType(schema.DataType(typeStr)) {
				name = strings.TrimSpace(header[:idx])
				fieldType = schema.DataType(typeStr)
			}
		}
	}

	return name, fieldType, isKey
}

// toExcel converts a coerced value into something excelize can store.
// Lists are flattened with UnpackList, attachments become their URLs.
func toExcel(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case *big.Int:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	case []any:
		if urls, ok := attachmentURLs(x); ok {
			return strings.Join(urls, ListDelimiter)
		}
		unpacked := table.UnpackList(x, ListDelimiter)
		if _, still := unpacked.([]any); !still {
			return toExcel(unpacked)
		}
		return jsonString(x)
	case []string:
		return table.UnpackList(x, ListDelimiter)
	case map[string]any:
		return jsonString(x)
	default:
		return v
	}
}

func attachmentURLs(list []any) ([]string, bool) {
	if len(list) == 0 {
		return nil, false
	}
	urls := make([]string, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		u, ok := m["url"].(string)
		if !ok {
			return nil, false
		}
		urls = append(urls, u)
	}
	return urls, true
}

func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// convertFromExcel - convert cell text back to a typed value
func convertFromExcel(value string, fieldType schema.DataType) any {
	if value == "" {
		return nil
	}

	switch fieldType {
	case schema.TypeInteger:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		if fl, err := strconv.ParseFloat(value, 64); err == nil {
			return fl
		}
	case schema.TypeReal:
		if fl, err := strconv.ParseFloat(value, 64); err == nil {
			return fl
		}
	case schema.TypeBoolean:
		switch strings.ToUpper(value) {
		case "TRUE", "1":
			return true
		case "FALSE", "0":
			return false
		}
	case schema.TypeList:
		parts := strings.Split(value, ListDelimiter)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	case schema.TypeAttachment:
		parts := strings.Split(value, ListDelimiter)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = map[string]any{"url": p}
		}
		return out
	}

	return value
}

// newCellStyles - number formats per column type
func newCellStyles(f *excelize.File) (map[schema.DataType]int, error) {
	formats := map[schema.DataType]int{
		schema.TypeInteger: 1,  // 0
		schema.TypeText:    49, // @
	}
	styles := make(map[schema.DataType]int, len(formats))
	for t, numFmt := range formats {
		id, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s style: %w", t, err)
		}
		styles[t] = id
	}
	return styles, nil
}

// columnName - convert column index to Excel column name (1 → A, 27 → AA)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
