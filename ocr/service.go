package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gardar/ocrchestra/pkg/pdfocr"

	"github.com/docfold/docfold/observability"
)

// DefaultDPI is assumed for extracted page images that carry no resolution
// hint of their own.
const DefaultDPI = 300

// Service makes image-only PDFs searchable. It probes pages for an existing
// text layer, recognizes the textless ones through Engine, and stamps the
// hOCR output back onto the document as a hidden text layer.
//
// A Service is safe for concurrent use as long as its Engine is.
type Service struct {
	Engine    Engine
	Languages []string
	DPI       int
	Log       observability.Logger

	// Seams for tests; production code keeps the defaults.
	pageFlags  func(path string) ([]bool, error)
	extract    func(path string, pages []int) (map[int][]byte, error)
	applyLayer func(pdfData, hocr []byte, page int) ([]byte, error)
}

// NewService returns a Service recognizing with engine in the given
// languages.
func NewService(engine Engine, languages []string, log observability.Logger) *Service {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Service{
		Engine:     engine,
		Languages:  languages,
		DPI:        DefaultDPI,
		Log:        log,
		pageFlags:  pageTextFlags,
		extract:    extractPageImages,
		applyLayer: applyHOCRLayer,
	}
}

// MakeSearchable writes a searchable copy of source into scratchDir and
// returns its path. Pages that already carry text are left untouched; pages
// without an extractable image are skipped with a warning rather than failing
// the document. Engine and context errors abort the whole document so the
// caller can classify timeouts.
func (s *Service) MakeSearchable(ctx context.Context, source, scratchDir string) (string, error) {
	base := filepath.Base(source)

	flags, err := s.pageFlags(source)
	if err != nil {
		return "", err
	}
	var need []int
	for i, hasText := range flags {
		if !hasText {
			need = append(need, i+1)
		}
	}
	if len(need) == 0 {
		return source, nil
	}

	images, err := s.extract(source, need)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", base, err)
	}

	recognized := 0
	for _, page := range need {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("recognize %s: %w", base, err)
		}
		raw, ok := images[page]
		if !ok {
			s.Log.Warn("page has no embedded image, skipping",
				observability.String("source", base),
				observability.Int("page", page))
			continue
		}
		payload, format := normalizePNG(raw)
		result, err := s.Engine.Recognize(ctx, Input{
			ID:         fmt.Sprintf("%s#%d", base, page),
			Image:      payload,
			Format:     format,
			PageNumber: page,
			DPI:        s.dpi(),
			Languages:  s.Languages,
		})
		if err != nil {
			return "", fmt.Errorf("recognize %s page %d: %w", base, page, err)
		}
		if len(result.HOCR) == 0 {
			s.Log.Debug("no text recognized on page",
				observability.String("source", base),
				observability.Int("page", page))
			continue
		}
		data, err = s.applyLayer(data, result.HOCR, page)
		if err != nil {
			return "", fmt.Errorf("apply text layer to %s page %d: %w", base, page, err)
		}
		recognized++
	}

	artifact := filepath.Join(scratchDir, base)
	if err := os.WriteFile(artifact, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", artifact, err)
	}
	s.Log.Info("made document searchable",
		observability.String("source", base),
		observability.Int("pages_recognized", recognized))
	return artifact, nil
}

func (s *Service) dpi() int {
	if s.DPI > 0 {
		return s.DPI
	}
	return DefaultDPI
}

// applyHOCRLayer overlays one page's hOCR onto the document as an invisible
// text layer.
func applyHOCRLayer(pdfData, hocr []byte, page int) ([]byte, error) {
	return pdfocr.ApplyOCR(pdfData, hocr, pdfocr.OCRConfig{
		StartPage: page,
		Font:      pdfocr.DefaultFont,
	})
}
