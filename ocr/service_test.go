package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

type fakeEngine struct {
	pages []int
	hocr  map[int][]byte
	err   error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, in Input) (Result, error) {
	if f.err != nil {
		return Result{}, f.err
	}
	f.pages = append(f.pages, in.PageNumber)
	return Result{InputID: in.ID, PlainText: "hello", HOCR: f.hocr[in.PageNumber]}, nil
}

// testService wires the filesystem and layer seams to fakes so tests can run
// against arbitrary bytes instead of real PDFs.
func testService(engine Engine, flags []bool, images map[int][]byte) (*Service, *[]int) {
	var applied []int
	s := NewService(engine, []string{"eng"}, nil)
	s.pageFlags = func(string) ([]bool, error) { return flags, nil }
	s.extract = func(_ string, _ []int) (map[int][]byte, error) { return images, nil }
	s.applyLayer = func(data, _ []byte, page int) ([]byte, error) {
		applied = append(applied, page)
		return data, nil
	}
	return s, &applied
}

func writeSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(src, []byte("%PDF-fake"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return src
}

func TestMakeSearchableRecognizesOnlyTextlessPages(t *testing.T) {
	engine := &fakeEngine{hocr: map[int][]byte{2: []byte("<html/>")}}
	s, applied := testService(engine, []bool{true, false, true}, map[int][]byte{2: []byte("img")})
	src := writeSource(t)
	scratch := t.TempDir()

	artifact, err := s.MakeSearchable(context.Background(), src, scratch)
	if err != nil {
		t.Fatalf("MakeSearchable: %v", err)
	}
	if len(engine.pages) != 1 || engine.pages[0] != 2 {
		t.Fatalf("recognized pages = %v, want [2]", engine.pages)
	}
	if len(*applied) != 1 || (*applied)[0] != 2 {
		t.Fatalf("layered pages = %v, want [2]", *applied)
	}
	if filepath.Dir(artifact) != scratch || filepath.Base(artifact) != "scan.pdf" {
		t.Fatalf("artifact = %q, want scan.pdf under scratch", artifact)
	}
}

func TestMakeSearchableReturnsSourceWhenAllPagesHaveText(t *testing.T) {
	engine := &fakeEngine{}
	s, _ := testService(engine, []bool{true, true}, nil)
	src := writeSource(t)

	artifact, err := s.MakeSearchable(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("MakeSearchable: %v", err)
	}
	if artifact != src {
		t.Fatalf("artifact = %q, want source passthrough", artifact)
	}
	if len(engine.pages) != 0 {
		t.Fatalf("engine should not run, recognized %v", engine.pages)
	}
}

func TestMakeSearchableSkipsPagesWithoutImages(t *testing.T) {
	engine := &fakeEngine{}
	s, applied := testService(engine, []bool{false}, map[int][]byte{})
	src := writeSource(t)

	artifact, err := s.MakeSearchable(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("MakeSearchable: %v", err)
	}
	if len(engine.pages) != 0 || len(*applied) != 0 {
		t.Fatalf("nothing should be recognized without an image")
	}
	got, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(got) != "%PDF-fake" {
		t.Fatalf("artifact altered without any recognized text")
	}
}

func TestMakeSearchableEngineErrorAborts(t *testing.T) {
	engine := &fakeEngine{err: errors.New("boom")}
	s, _ := testService(engine, []bool{false}, map[int][]byte{1: []byte("img")})

	_, err := s.MakeSearchable(context.Background(), writeSource(t), t.TempDir())
	if err == nil || !errors.Is(err, engine.err) {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestMakeSearchableHonorsCancellation(t *testing.T) {
	engine := &fakeEngine{}
	s, _ := testService(engine, []bool{false}, map[int][]byte{1: []byte("img")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.MakeSearchable(ctx, writeSource(t), t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNormalizePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	out, format := normalizePNG(pngBuf.Bytes())
	if format != ImageFormatPNG || !bytes.Equal(out, pngBuf.Bytes()) {
		t.Fatalf("png input should pass through unchanged")
	}

	var tiffBuf bytes.Buffer
	if err := tiff.Encode(&tiffBuf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	out, format = normalizePNG(tiffBuf.Bytes())
	if format != ImageFormatPNG || !bytes.HasPrefix(out, pngMagic) {
		t.Fatalf("tiff input should re-encode as png")
	}

	garbage := []byte("not an image")
	out, format = normalizePNG(garbage)
	if format != "" || !bytes.Equal(out, garbage) {
		t.Fatalf("undecodable input should return unchanged")
	}
}
