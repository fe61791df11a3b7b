// Package bundle packs generated report files into a single zip archive for
// download.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/countsheet/internal/sheet"
)

// PackagingError reports an artifact that could not be bundled, usually
// because the step that should have produced it failed without saying so.
type PackagingError struct {
	Path string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging failed: artifact %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// Entry describes one file stored in an archive.
type Entry struct {
	Name string
	Size int64
}

// Create writes a zip archive at dst holding every file in paths. Entry names
// are the files' base names. All paths are checked before anything is
// written; a missing or non-regular file yields a *PackagingError and no
// archive.
//
// modTime is stamped on every entry so identical inputs give identical
// archives. Pass the zero time to use each file's own modification time.
func Create(dst string, paths []string, modTime time.Time) ([]Entry, error) {
	if len(paths) == 0 {
		return nil, &PackagingError{Path: dst, Err: errors.New("nothing to bundle")}
	}

	infos := make([]fs.FileInfo, len(paths))
	seen := make(map[string]string, len(paths))
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &PackagingError{Path: p, Err: err}
		}
		if !info.Mode().IsRegular() {
			return nil, &PackagingError{Path: p, Err: errors.New("not a regular file")}
		}
		name := filepath.Base(p)
		if prev, dup := seen[name]; dup {
			return nil, &PackagingError{Path: p, Err: fmt.Errorf("entry name %q also used by %s", name, prev)}
		}
		seen[name] = p
		infos[i] = info
	}

	entries := make([]Entry, 0, len(paths))
	err := sheet.WriteAtomic(dst, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for i, p := range paths {
			entry, err := addFile(zw, p, infos[i], modTime)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return zw.Close()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func addFile(zw *zip.Writer, path string, info fs.FileInfo, modTime time.Time) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, &PackagingError{Path: path, Err: err}
	}
	defer f.Close()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return Entry{}, fmt.Errorf("zip header for %s: %w", info.Name(), err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate
	if !modTime.IsZero() {
		header.Modified = modTime
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return Entry{}, fmt.Errorf("zip entry %s: %w", header.Name, err)
	}
	n, err := io.Copy(w, f)
	if err != nil {
		return Entry{}, fmt.Errorf("zip copy %s: %w", header.Name, err)
	}

	return Entry{Name: header.Name, Size: n}, nil
}
