package convert

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// stubSoffice writes an executable script that mimics the launcher's
// "--outdir DIR SOURCE" contract by copying the source to DIR/<stem>.pdf.
func stubSoffice(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub converter script requires a unix shell")
	}
	script := `#!/bin/sh
outdir="$5"
src="$6"
name=$(basename "$src")
stem="${name%.*}"
cp "$src" "$outdir/$stem.pdf"
`
	path := filepath.Join(t.TempDir(), "soffice-stub")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestConvertToPDFWithStub(t *testing.T) {
	src := filepath.Join(t.TempDir(), "letter.docx")
	if err := os.WriteFile(src, []byte("fake docx"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	scratch := t.TempDir()

	l := &LibreOffice{Binary: stubSoffice(t)}
	artifact, err := l.ConvertToPDF(context.Background(), src, scratch)
	if err != nil {
		t.Fatalf("ConvertToPDF: %v", err)
	}
	if filepath.Base(artifact) != "letter.pdf" {
		t.Fatalf("artifact = %q, want letter.pdf in scratch", artifact)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestConvertToPDFMissingBinary(t *testing.T) {
	l := &LibreOffice{Binary: "docfold-no-such-converter"}
	_, err := l.ConvertToPDF(context.Background(), "in.docx", t.TempDir())
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

func TestConvertToPDFNoOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub converter script requires a unix shell")
	}
	// A converter that exits 0 without producing the artifact.
	path := filepath.Join(t.TempDir(), "soffice-noop")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	src := filepath.Join(t.TempDir(), "memo.doc")
	if err := os.WriteFile(src, []byte("fake doc"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	l := &LibreOffice{Binary: path}
	_, err := l.ConvertToPDF(context.Background(), src, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no output") {
		t.Fatalf("expected no-output error, got %v", err)
	}
}
