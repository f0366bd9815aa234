// Package discover finds candidate documents in a source directory. Matching
// follows the original tool's rules: shell globs applied case-insensitively to
// the base name, exclusions evaluated before inclusions.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File is one discovered document with the source attributes captured at
// discovery time.
type File struct {
	// Path is the absolute location of the file.
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Ext returns the lower-cased extension including the dot.
func (f File) Ext() string { return strings.ToLower(filepath.Ext(f.Name)) }

// IsPDF reports whether the file is already a PDF.
func (f File) IsPDF() bool { return f.Ext() == ".pdf" }

// IsOfficeDocument reports whether the file needs conversion before merging.
func (f File) IsOfficeDocument() bool {
	ext := f.Ext()
	return ext == ".doc" || ext == ".docx"
}

// Error is a fatal discovery failure: the directory is missing or unreadable.
type Error struct {
	Dir string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("discover %s: %v", e.Dir, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Filter holds include and exclude glob patterns.
type Filter struct {
	Include []string
	Exclude []string
}

// Matches reports whether a base name passes the filter. Patterns and names
// are compared lower-cased; an exclude match wins over any include match.
func (f Filter) Matches(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range f.Exclude {
		if ok, _ := filepath.Match(strings.ToLower(p), lower); ok {
			return false
		}
	}
	for _, p := range f.Include {
		if ok, _ := filepath.Match(strings.ToLower(p), lower); ok {
			return true
		}
	}
	return false
}

// Scan lists the directory (non-recursively) and returns matching files in
// lexicographic name order, which becomes the batch's requested order. An
// empty result is not an error; callers decide whether zero matches is fatal.
func Scan(dir string, filter Filter) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Dir: dir, Err: err}
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !filter.Matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, &Error{Dir: dir, Err: err}
		}
		abs, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, &Error{Dir: dir, Err: err}
		}
		files = append(files, File{
			Path:    abs,
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	// os.ReadDir already sorts by filename; files inherits that order.
	return files, nil
}
