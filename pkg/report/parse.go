package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// UnsupportedFileMessage is the single cell shown for files that cannot be parsed.
const UnsupportedFileMessage = "Unsupported file type."

// Table is a parsed data file. Rows[0] is the header row.
type Table struct {
	Rows      [][]string `json:"rows"`
	Supported bool       `json:"supported"`
}

// ParseDataFile reads a CSV or XLSX upload into a table. Other extensions
// yield a one-cell table carrying UnsupportedFileMessage with Supported false.
func ParseDataFile(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err := parseCSV(r)
		if err != nil {
			return nil, err
		}
		return &Table{Rows: rows, Supported: true}, nil
	case ".xlsx":
		rows, err := parseXLSX(r)
		if err != nil {
			return nil, err
		}
		return &Table{Rows: rows, Supported: true}, nil
	default:
		return &Table{Rows: [][]string{{UnsupportedFileMessage}}, Supported: false}, nil
	}
}

func parseCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func parseXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
