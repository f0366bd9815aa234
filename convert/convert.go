// Package convert renders office documents (DOC/DOCX) to PDF through an
// external office suite. The production implementation shells out to
// LibreOffice in headless mode; tests substitute fakes behind the
// batch.Converter contract.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docfold/docfold/observability"
)

// DefaultBinary is the LibreOffice launcher probed on PATH.
const DefaultBinary = "soffice"

// Available reports where the office converter binary resolves on PATH.
func Available() (string, error) {
	return exec.LookPath(DefaultBinary)
}

// LibreOffice converts documents with `soffice --headless --convert-to pdf`.
// It is safe for concurrent use; each call writes into its own scratch
// directory.
type LibreOffice struct {
	// Binary overrides the launcher path. Empty means DefaultBinary.
	Binary string
	Log    observability.Logger
}

// NewLibreOffice returns a converter logging through log.
func NewLibreOffice(log observability.Logger) *LibreOffice {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &LibreOffice{Log: log}
}

// ConvertToPDF renders source into scratchDir and returns the artifact path.
// Cancellation and deadline errors from ctx surface wrapped so callers can
// classify timeouts.
func (l *LibreOffice) ConvertToPDF(ctx context.Context, source, scratchDir string) (string, error) {
	bin := l.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	log := l.Log
	if log == nil {
		log = observability.NopLogger{}
	}

	cmd := exec.CommandContext(ctx, bin,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", scratchDir,
		source,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("convert %s: %w", filepath.Base(source), ctxErr)
		}
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return "", fmt.Errorf("convert %s: %v: %s", filepath.Base(source), err, detail)
		}
		return "", fmt.Errorf("convert %s: %w", filepath.Base(source), err)
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	artifact := filepath.Join(scratchDir, stem+".pdf")
	if _, err := os.Stat(artifact); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("convert %s: converter produced no output", filepath.Base(source))
		}
		return "", fmt.Errorf("convert %s: %w", filepath.Base(source), err)
	}
	log.Debug("converted document",
		observability.String("source", source),
		observability.String("artifact", artifact))
	return artifact, nil
}
