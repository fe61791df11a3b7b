package sheet

// encoding.go cleans up text-based uploads before they reach the CSV parser.
//
// Store exports saved from Excel on Windows routinely carry a UTF-8 BOM and
// the odd Latin-1 byte in color or style names. Both break header matching:
// the BOM glues itself to the first column name and invalid bytes make the
// encoding/csv reader bail out mid-file.
//
// The whole upload is held in memory anyway (reports need every row before
// sorting), so cleanup works on the complete byte slice instead of wrapping
// the reader.

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

// utf8BOM is the byte-order mark Windows tools prepend to UTF-8 text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MaxTextSize caps how much of a text upload is read into memory (100MB).
var MaxTextSize int64 = 100 * 1024 * 1024

// readText reads r fully, drops a leading BOM and replaces invalid UTF-8
// sequences with '?'.
func readText(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxTextSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > MaxTextSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", MaxTextSize)
	}

	data = StripBOM(data)
	return SanitizeUTF8(data), nil
}

// StripBOM removes a UTF-8 byte-order mark from the start of data.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// SanitizeUTF8 replaces every invalid UTF-8 byte with '?'.
// Single-byte replacement keeps column widths stable for fixed-layout exports.
func SanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			out = append(out, '?')
			data = data[1:]
			continue
		}
		out = append(out, data[:size]...)
		data = data[size:]
	}
	return out
}
