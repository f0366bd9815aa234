package ocr

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPageImages pulls the raw embedded images for the selected one-based
// pages. When a page embeds several images only the first is kept; scanned
// documents carry one full-page image per page.
func extractPageImages(path string, pages []int) (map[int][]byte, error) {
	if len(pages) == 0 {
		return map[int][]byte{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	selected := make([]string, 0, len(pages))
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}
	images, err := api.ExtractImagesRaw(f, selected, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("extract images from %s: %w", filepath.Base(path), err)
	}

	byPage := make(map[int][]byte, len(pages))
	for _, pageImages := range images {
		for _, img := range pageImages {
			if _, ok := byPage[img.PageNr]; ok {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read page %d image: %w", img.PageNr, err)
			}
			byPage[img.PageNr] = data
		}
	}
	return byPage, nil
}
