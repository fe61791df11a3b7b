package core

// convert.go turns raw spreadsheet cells into canonical values.
//
// Weekly inventory exports are produced by hand from several systems, so the
// same logical value shows up in many shapes:
//   - UPCs read back as floats ("7501234567890.0") or in scientific notation
//   - Excel text-forcing wrappers (="0012345")
//   - Quantities with a decimal part or a negative sign
//   - Size labels that are numbers in one export and text in another

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// HeaderIndex maps a lowercased, cleaned header cell to its column position.
type HeaderIndex map[string]int

var (
	floatArtifact = regexp.MustCompile(`^(\d+)\.0+$`)
	sciNotation   = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)[eE][+-]?\d+$`)
	allDigits     = regexp.MustCompile(`^\d+$`)
)

// MaxQuantity bounds a single on-hand cell. Sums of bounded cells stay far
// inside int64.
const MaxQuantity = math.MaxInt32

var (
	// ErrNotANumber is wrapped by FieldValueError for unparseable quantities.
	ErrNotANumber = errors.New("not a number")
	// ErrQuantityRange is wrapped by FieldValueError for quantities above
	// MaxQuantity.
	ErrQuantityRange = errors.New("quantity out of range")
)

var maxQuantity = decimal.NewFromInt(MaxQuantity)

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching. When a header repeats,
// the leftmost column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key == "" {
			continue
		}
		if _, exists := idx[key]; exists {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// NormalizeUPC returns the canonical string form of a UPC cell.
//
// "123.0" becomes "123" and integral scientific notation is expanded
// ("7.5E+12" becomes "7500000000000"). Anything else, including values with
// leading zeros and non-numeric identifiers, is returned cleaned but
// otherwise unchanged. The function is idempotent.
func NormalizeUPC(s string) string {
	s = CleanCell(s)
	if s == "" {
		return ""
	}

	if m := floatArtifact.FindStringSubmatch(s); m != nil {
		return m[1]
	}

	if sciNotation.MatchString(s) {
		d, err := decimal.NewFromString(s)
		if err == nil && d.IsInteger() && !d.IsNegative() {
			return d.String()
		}
	}

	return s
}

// ParseQuantity converts an on-hand quantity cell to a non-negative integer.
// Blank cells count as zero. Fractions are truncated toward zero and
// negative stock is clamped to zero. Values above MaxQuantity fail with
// ErrQuantityRange.
func ParseQuantity(s string) (int, error) {
	s = CleanCell(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrNotANumber
	}
	d = d.Truncate(0)
	if d.IsNegative() {
		return 0, nil
	}
	if d.GreaterThan(maxQuantity) {
		return 0, ErrQuantityRange
	}
	return int(d.IntPart()), nil
}

// NormalizeSize canonicalizes a size label so that "7.0" and "7" land in the
// same pivot column.
func NormalizeSize(s string) string {
	s = CleanCell(s)
	if m := floatArtifact.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	return allDigits.MatchString(s)
}
