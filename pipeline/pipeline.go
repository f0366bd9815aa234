// Package pipeline drives a combination run end to end: discover candidate
// documents, process them concurrently into PDF artifacts, sequence the
// survivors, and merge them into one output document. Task failures degrade
// the batch instead of aborting it; only discovery and merge failures are
// fatal.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/docfold/docfold/batch"
	"github.com/docfold/docfold/config"
	"github.com/docfold/docfold/discover"
	"github.com/docfold/docfold/merge"
	"github.com/docfold/docfold/observability"
)

// ErrNoDocuments means discovery matched nothing; there is no batch to run.
var ErrNoDocuments = errors.New("no matching documents found")

// ErrNothingToMerge means every task failed, leaving no artifacts to merge.
var ErrNothingToMerge = errors.New("all documents failed processing")

// Merger is the assembly collaborator, satisfied by merge.PDFCPU.
type Merger interface {
	Merge(ctx context.Context, docs []merge.Document, outPath, scratchDir string, opts merge.Options) (int, error)
	Verify(ctx context.Context, path string, expected []string) (*merge.VerifyReport, error)
}

// Pipeline holds the configured collaborators for one or more runs.
type Pipeline struct {
	Config     *config.Config
	Converter  batch.Converter
	Prober     batch.TextProber
	Recognizer batch.Recognizer
	Merger     Merger
	Log        observability.Logger
}

// New returns a Pipeline over cfg and the given collaborators.
func New(cfg *config.Config, converter batch.Converter, prober batch.TextProber, recognizer batch.Recognizer, merger Merger, log observability.Logger) *Pipeline {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Pipeline{
		Config:     cfg,
		Converter:  converter,
		Prober:     prober,
		Recognizer: recognizer,
		Merger:     merger,
		Log:        log,
	}
}

// Summary is the result of a combination run.
type Summary struct {
	// Report is the frozen batch report with one outcome per discovered file.
	Report *batch.Report
	// Ordered lists the merged identities in final assembly order.
	Ordered []string
	// OutputPath is the merged document location.
	OutputPath string
	// OutputPages is the merged document's page count.
	OutputPages int
}

// Partial reports whether the run merged some documents while others failed.
func (s *Summary) Partial() bool {
	return s.Report.FailureCount() > 0 && s.Report.SuccessCount() > 0
}

// Combine runs the full pipeline: inputDir is scanned, every match is
// processed, and the successful artifacts are merged into outPath. A non-nil
// Summary accompanies fatal merge errors so callers can still report
// per-document outcomes.
func (p *Pipeline) Combine(ctx context.Context, inputDir, outPath string) (*Summary, error) {
	cfg := p.Config

	files, err := discover.Scan(inputDir, discover.Filter{
		Include: cfg.IncludePatterns,
		Exclude: cfg.ExcludePatterns,
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, inputDir)
	}
	key, err := p.orderKey()
	if err != nil {
		return nil, err
	}

	scratchRoot, err := os.MkdirTemp("", "docfold-")
	if err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	defer os.RemoveAll(scratchRoot)

	d := &batch.Dispatcher{
		Workers:        cfg.MaxWorkers,
		FailFast:       cfg.FailFast,
		ConvertTimeout: cfg.ConvertTimeout(),
		OCRTimeout:     cfg.OCRTimeout(),
		ScratchRoot:    scratchRoot,
		Converter:      p.Converter,
		Prober:         p.Prober,
		Recognizer:     p.Recognizer,
		Log:            p.Log,
	}
	report, err := d.Run(ctx, buildTasks(files, cfg.OCREnabled))
	if err != nil {
		return nil, err
	}
	summary := &Summary{Report: report, OutputPath: outPath}
	if report.SuccessCount() == 0 {
		return summary, fmt.Errorf("%w (%d failures)", ErrNothingToMerge, report.FailureCount())
	}

	summary.Ordered = key.Order(report)
	docs := make([]merge.Document, 0, len(summary.Ordered))
	names := make([]string, 0, len(summary.Ordered))
	for _, id := range summary.Ordered {
		t, _ := report.Task(id)
		o, _ := report.Outcome(id)
		docs = append(docs, merge.Document{Identity: id, Name: t.Name, Artifact: o.Artifact})
		names = append(names, t.Name)
	}

	opts := merge.Options{
		Bookmarks:        cfg.AddBookmarks,
		CompressionLevel: cfg.CompressionLevel,
		Password:         cfg.Password,
	}
	if cfg.AddMetadata {
		opts.Metadata = map[string]string{
			merge.PropSourceDocuments: merge.ProvenanceValue(names),
			"DocumentCount":           strconv.Itoa(len(names)),
		}
	}
	pages, err := p.Merger.Merge(ctx, docs, outPath, scratchRoot, opts)
	if err != nil {
		return summary, err
	}
	summary.OutputPages = pages
	return summary, nil
}

// Verify discovers the expected sources in inputDir and checks mergedPath's
// recorded provenance against them.
func (p *Pipeline) Verify(ctx context.Context, mergedPath, inputDir string) (*merge.VerifyReport, error) {
	files, err := discover.Scan(inputDir, discover.Filter{
		Include: p.Config.IncludePatterns,
		Exclude: p.Config.ExcludePatterns,
	})
	if err != nil {
		return nil, err
	}
	expected := make([]string, 0, len(files))
	for _, f := range files {
		expected = append(expected, f.Name)
	}
	return p.Merger.Verify(ctx, mergedPath, expected)
}

// PlannedTask is one dry-run entry: what Combine would do with a file.
type PlannedTask struct {
	Name      string
	Kind      batch.Kind
	SizeBytes int64
	// Pages and PagesWithText come from the validation probe. Zero for
	// office documents, which have no PDF to probe before conversion.
	Pages         int
	PagesWithText int
	// Problem is non-empty when the probe rejected the file.
	Problem string
}

// Searchable reports whether every probed page already carries text.
func (t PlannedTask) Searchable() bool {
	return t.Problem == "" && t.PagesWithText >= t.Pages
}

// Plan previews a run: the planned work per file plus validation results.
type Plan struct {
	Tasks       []PlannedTask
	SortOrder   string
	Converts    int
	OCRChecks   int
	Passthrough int
	Unreadable  int
}

// Check scans inputDir, validates every PDF candidate through the text
// probe, and reports what a run would process. Nothing is converted,
// recognized, or merged.
func (p *Pipeline) Check(ctx context.Context, inputDir string) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := discover.Scan(inputDir, discover.Filter{
		Include: p.Config.IncludePatterns,
		Exclude: p.Config.ExcludePatterns,
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, inputDir)
	}

	plan := &Plan{SortOrder: p.Config.SortOrder}
	for _, t := range buildTasks(files, p.Config.OCREnabled) {
		pt := PlannedTask{Name: t.Name, Kind: t.Kind, SizeBytes: t.Size}
		if t.Kind == batch.KindConvertToPDF {
			plan.Converts++
			plan.Tasks = append(plan.Tasks, pt)
			continue
		}
		pages, withText, err := p.Prober.PageTextCoverage(ctx, t.Source)
		if err != nil {
			pt.Problem = err.Error()
			plan.Unreadable++
		} else {
			pt.Pages, pt.PagesWithText = pages, withText
			if t.Kind == batch.KindCheckAndOCR {
				plan.OCRChecks++
			} else {
				plan.Passthrough++
			}
		}
		plan.Tasks = append(plan.Tasks, pt)
	}
	return plan, nil
}

// buildTasks assigns a processing kind per discovered file. Non-office files
// are treated as PDF candidates; the readability probe rejects anything that
// is not actually a PDF.
func buildTasks(files []discover.File, ocrEnabled bool) []batch.Task {
	tasks := make([]batch.Task, 0, len(files))
	for _, f := range files {
		kind := batch.KindPassthroughPDF
		switch {
		case f.IsOfficeDocument():
			kind = batch.KindConvertToPDF
		case ocrEnabled:
			kind = batch.KindCheckAndOCR
		}
		tasks = append(tasks, batch.Task{
			Identity: f.Path,
			Name:     f.Name,
			Kind:     kind,
			Source:   f.Path,
			Size:     f.Size,
			ModTime:  f.ModTime,
		})
	}
	return tasks
}

// orderKey maps the configured sort order to an ordering key, reading the
// custom order file when needed.
func (p *Pipeline) orderKey() (batch.Key, error) {
	switch p.Config.SortOrder {
	case config.SortByDate:
		return batch.Key{Mode: batch.ByModTime}, nil
	case config.SortBySize:
		return batch.Key{Mode: batch.BySize}, nil
	case config.SortByCustom:
		entries, err := readOrderFile(p.Config.CustomOrderFile)
		if err != nil {
			return batch.Key{}, err
		}
		return batch.Key{Mode: batch.ExplicitList, Explicit: entries}, nil
	default:
		return batch.Key{Mode: batch.ByName}, nil
	}
}

// readOrderFile parses one entry per line; blank lines and '#' comments are
// ignored.
func readOrderFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read order file: %w", err)
	}
	defer f.Close()

	var entries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read order file: %w", err)
	}
	return entries, nil
}
