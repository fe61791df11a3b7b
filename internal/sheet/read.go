// Package sheet reads and writes the spreadsheets that flow through the
// count-proposal pipeline.
//
// Reading returns a raw cell grid ([Table]); interpretation of headers and
// columns belongs to the caller. Writing takes fully-built [Workbook] values
// and persists them with a temp-file-then-rename so a failed run never leaves
// a half-written report behind under the final name.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyFile is returned when an upload has no rows at all.
var ErrEmptyFile = errors.New("empty file")

// ErrUnsupportedFormat is returned for uploads that are neither xlsx nor CSV.
var ErrUnsupportedFormat = errors.New("invalid spreadsheet: unsupported file format")

// Format identifies the container format of an upload.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// zipMagic starts every OOXML workbook.
var zipMagic = []byte("PK\x03\x04")

// Table is the raw cell grid of one worksheet or CSV file.
// Rows may be ragged: trailing empty cells are not padded.
type Table struct {
	Name string
	Rows [][]string
}

// DetectFormat guesses the format from the file extension.
func DetectFormat(fileName string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// Read parses an uploaded spreadsheet. The first worksheet of a workbook is
// used, matching how the weekly export is produced. When the extension is
// not recognised the content is sniffed instead.
func Read(r io.Reader, fileName string) (*Table, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxTextSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > MaxTextSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", MaxTextSize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	format := DetectFormat(fileName)
	if format == FormatUnknown {
		if bytes.HasPrefix(data, zipMagic) {
			format = FormatXLSX
		} else if utf8Printable(data) {
			format = FormatCSV
		}
	}

	var table *Table
	switch format {
	case FormatXLSX:
		table, err = readXLSX(bytes.NewReader(data))
	case FormatCSV:
		table, err = readCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
	if err != nil {
		return nil, err
	}

	if table.Name == "" {
		table.Name = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return table, nil
}

// ReadFile opens path and parses it with [Read].
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return Read(f, filepath.Base(path))
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	// Raw values keep UPCs as the digits that were stored instead of the
	// display format ("7.50E+12").
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: read %q: %w", sheets[0], err)
	}

	return &Table{Name: sheets[0], Rows: rows}, nil
}

func readCSV(r io.Reader) (*Table, error) {
	data, err := readText(r)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return &Table{Rows: rows}, nil
}

// utf8Printable reports whether the first KB looks like text.
func utf8Printable(data []byte) bool {
	if len(data) > 1024 {
		data = data[:1024]
	}
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}
