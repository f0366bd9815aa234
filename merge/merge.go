// Package merge assembles processed PDF artifacts into one output document
// and stamps it with bookmarks, provenance metadata, optimization, and
// optional encryption. The heavy lifting is delegated to pdfcpu; this package
// owns the staging order and the provenance format.
package merge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/docfold/docfold/observability"
)

// PropSourceDocuments is the document property recording which source files
// the output was combined from. Verification reads it back.
const PropSourceDocuments = "SourceDocuments"

// Document is one merge input in final order.
type Document struct {
	// Identity is the source path the document is tracked under.
	Identity string
	// Name is the source base name, used for bookmarks and provenance.
	Name string
	// Artifact is the PDF file to merge (the source itself or a converted or
	// OCR-processed copy).
	Artifact string
}

// Options controls the post-merge stages.
type Options struct {
	// Bookmarks adds one top-level bookmark per source document.
	Bookmarks bool
	// Metadata is stamped verbatim as document properties. Empty disables the
	// stage.
	Metadata map[string]string
	// CompressionLevel <= 0 disables the optimization pass.
	CompressionLevel int
	// Password encrypts the output when non-empty. The same value is used for
	// the user and owner password.
	Password string
}

// Error is a fatal merge failure; the batch has no output to salvage.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("merge %s: %v", e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// PDFCPU merges with the pdfcpu toolkit.
type PDFCPU struct {
	Log observability.Logger

	// Seams for tests; production code keeps the pdfcpu-backed defaults.
	pageCount     func(path string) (int, error)
	mergeFiles    func(inFiles []string, outFile string) error
	addBookmarks  func(inFile, outFile string, bms []pdfcpu.Bookmark) error
	addProperties func(inFile, outFile string, props map[string]string) error
	optimize      func(inFile, outFile string) error
	encrypt       func(inFile, outFile, password string) error
	validate      func(inFile string) error
}

// NewPDFCPU returns a merger logging through log.
func NewPDFCPU(log observability.Logger) *PDFCPU {
	if log == nil {
		log = observability.NopLogger{}
	}
	conf := func() *model.Configuration { return model.NewDefaultConfiguration() }
	return &PDFCPU{
		Log:       log,
		pageCount: api.PageCountFile,
		mergeFiles: func(inFiles []string, outFile string) error {
			return api.MergeCreateFile(inFiles, outFile, false, conf())
		},
		addBookmarks: func(inFile, outFile string, bms []pdfcpu.Bookmark) error {
			return api.AddBookmarksFile(inFile, outFile, bms, true, conf())
		},
		addProperties: func(inFile, outFile string, props map[string]string) error {
			return api.AddPropertiesFile(inFile, outFile, props, conf())
		},
		optimize: func(inFile, outFile string) error {
			return api.OptimizeFile(inFile, outFile, conf())
		},
		encrypt: func(inFile, outFile, password string) error {
			c := conf()
			c.UserPW = password
			c.OwnerPW = password
			return api.EncryptFile(inFile, outFile, c)
		},
		validate: func(inFile string) error {
			return api.ValidateFile(inFile, conf())
		},
	}
}

// Merge combines docs into outPath, staging intermediate files in scratchDir.
// It returns the total page count of the output.
func (m *PDFCPU) Merge(ctx context.Context, docs []Document, outPath, scratchDir string, opts Options) (int, error) {
	if len(docs) == 0 {
		return 0, &Error{Stage: "assemble", Err: fmt.Errorf("no documents to merge")}
	}

	counts := make([]int, len(docs))
	inFiles := make([]string, len(docs))
	total := 0
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return 0, &Error{Stage: "assemble", Err: err}
		}
		n, err := m.pageCount(d.Artifact)
		if err != nil {
			return 0, &Error{Stage: "assemble", Err: fmt.Errorf("%s: %w", d.Name, err)}
		}
		counts[i] = n
		inFiles[i] = d.Artifact
		total += n
	}

	step := 0
	stage := func(name string) string {
		step++
		return filepath.Join(scratchDir, fmt.Sprintf("stage-%02d-%s.pdf", step, name))
	}

	cur := stage("merged")
	if err := m.mergeFiles(inFiles, cur); err != nil {
		return 0, &Error{Stage: "assemble", Err: err}
	}

	if opts.Bookmarks {
		out := stage("bookmarks")
		if err := m.addBookmarks(cur, out, bookmarks(docs, counts)); err != nil {
			return 0, &Error{Stage: "bookmarks", Err: err}
		}
		cur = out
	}

	if len(opts.Metadata) > 0 {
		out := stage("properties")
		if err := m.addProperties(cur, out, opts.Metadata); err != nil {
			return 0, &Error{Stage: "metadata", Err: err}
		}
		cur = out
	}

	if opts.CompressionLevel > 0 {
		out := stage("optimized")
		if err := m.optimize(cur, out); err != nil {
			return 0, &Error{Stage: "optimize", Err: err}
		}
		cur = out
	}

	// Validation cannot open encrypted output without credentials, so it
	// always runs on the pre-encryption artifact.
	if err := m.validate(cur); err != nil {
		return 0, &Error{Stage: "validate", Err: err}
	}

	if opts.Password != "" {
		out := stage("encrypted")
		if err := m.encrypt(cur, out, opts.Password); err != nil {
			return 0, &Error{Stage: "encrypt", Err: err}
		}
		cur = out
	}

	if err := finalize(cur, outPath); err != nil {
		return 0, &Error{Stage: "finalize", Err: err}
	}
	m.Log.Info("merged documents",
		observability.Int("documents", len(docs)),
		observability.Int("pages", total),
		observability.String("output", outPath))
	return total, nil
}

// bookmarks builds one top-level bookmark per document, titled with the
// source name minus its extension and anchored at the document's first page
// in the merged output.
func bookmarks(docs []Document, counts []int) []pdfcpu.Bookmark {
	bms := make([]pdfcpu.Bookmark, 0, len(docs))
	page := 1
	for i, d := range docs {
		title := strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
		bms = append(bms, pdfcpu.Bookmark{Title: title, PageFrom: page})
		page += counts[i]
	}
	return bms
}

// ProvenanceValue renders the source names for the SourceDocuments property.
// Backslashes and commas in names are escaped so parsing can split the value
// unambiguously.
func ProvenanceValue(names []string) string {
	escaped := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ReplaceAll(name, `\`, `\\`)
		name = strings.ReplaceAll(name, `,`, `\,`)
		escaped = append(escaped, name)
	}
	return strings.Join(escaped, ", ")
}

// finalize moves the last staged file into place, copying when the output
// lives on a different filesystem than the scratch directory.
func finalize(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
