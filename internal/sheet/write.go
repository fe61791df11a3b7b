package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// MaxSheetNameLength is Excel's hard limit for worksheet names.
const MaxSheetNameLength = 31

// defaultSheetName is the worksheet excelize creates with a new file.
const defaultSheetName = "Sheet1"

// Sheet is one worksheet: a header row followed by data rows.
// Cell values are written with their Go type, so ints stay numeric and
// strings (UPCs included) stay text.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Workbook is a set of sheets destined for a single file.
type Workbook struct {
	FileName string
	Sheets   []Sheet
}

// WriteFile writes wb to path. Sheet names are sanitised and de-duplicated
// first. The file appears under path only once it is complete.
func WriteFile(path string, wb Workbook) error {
	if len(wb.Sheets) == 0 {
		return fmt.Errorf("workbook %s has no sheets", wb.FileName)
	}

	f := excelize.NewFile()
	defer f.Close()

	names := UniqueSheetNames(sheetNames(wb.Sheets))

	for i, s := range wb.Sheets {
		name := names[i]
		if i == 0 {
			if err := f.SetSheetName(defaultSheetName, name); err != nil {
				return fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}

		if err := writeSheet(f, name, s); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	return WriteAtomic(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func writeSheet(f *excelize.File, name string, s Sheet) error {
	header := make([]any, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", name, err)
	}

	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, name, err)
		}
	}
	return nil
}

func sheetNames(sheets []Sheet) []string {
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	return names
}

// SanitizeSheetName makes name acceptable to Excel: forbidden characters
// become '_', leading/trailing apostrophes are dropped and the result is cut
// to 31 characters. Empty names become "Sheet".
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")

	if utf8.RuneCountInString(name) > MaxSheetNameLength {
		name = string([]rune(name)[:MaxSheetNameLength])
	}
	if name == "" {
		return "Sheet"
	}
	return name
}

// UniqueSheetNames sanitises every name and appends " (n)" to repeats.
// Excel compares sheet names case-insensitively, so uniqueness does too.
func UniqueSheetNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))

	for i, n := range names {
		base := SanitizeSheetName(n)
		candidate := base
		for k := 2; seen[strings.ToLower(candidate)]; k++ {
			suffix := " (" + strconv.Itoa(k) + ")"
			trimmed := []rune(base)
			if len(trimmed)+len(suffix) > MaxSheetNameLength {
				trimmed = trimmed[:MaxSheetNameLength-len(suffix)]
			}
			candidate = string(trimmed) + suffix
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

// WriteAtomic creates path by writing to a temporary file in the same
// directory and renaming it into place once write returns successfully.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
