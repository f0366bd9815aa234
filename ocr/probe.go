package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageTextFlags reports, for each one-based page, whether it already carries
// extractable text. Pages whose content cannot be parsed count as textless so
// they fall through to recognition.
func pageTextFlags(path string) ([]bool, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	n := r.NumPage()
	flags := make([]bool, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			flags = append(flags, false)
			continue
		}
		text, err := pageText(p)
		flags = append(flags, err == nil && strings.TrimSpace(text) != "")
	}
	return flags, nil
}

// pageText wraps GetPlainText; the parser panics on some malformed content
// streams, so the panic is converted into an error here.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract text: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}

// PageTextCoverage returns the page count and the number of pages with an
// existing text layer.
func (s *Service) PageTextCoverage(ctx context.Context, path string) (pages, withText int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	flags, err := s.pageFlags(path)
	if err != nil {
		return 0, 0, err
	}
	for _, ok := range flags {
		if ok {
			withText++
		}
	}
	return len(flags), withText, nil
}
