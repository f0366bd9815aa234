package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docfold/docfold/observability"
)

// Converter is the office-document conversion collaborator. Production
// implementations shell out to an office suite; tests use in-memory fakes.
type Converter interface {
	// ConvertToPDF renders source to a PDF inside scratchDir and returns the
	// artifact path.
	ConvertToPDF(ctx context.Context, source, scratchDir string) (string, error)
}

// TextProber inspects a PDF for extractable text. Opening the file doubles as
// the readability check for passthrough tasks.
type TextProber interface {
	// PageTextCoverage returns the page count and the number of pages that
	// carry extractable text.
	PageTextCoverage(ctx context.Context, path string) (pages, withText int, err error)
}

// Recognizer is the OCR collaborator: it produces a searchable PDF artifact
// from an image-only PDF.
type Recognizer interface {
	MakeSearchable(ctx context.Context, source, scratchDir string) (string, error)
}

// Dispatcher executes a batch of tasks on a bounded worker pool. A failing
// task never stops, cancels, or corrupts other in-flight tasks; with FailFast
// enabled the dispatcher merely stops scheduling new tasks after the first
// observed failure and records the remainder as skipped, so every descriptor
// still receives exactly one outcome.
type Dispatcher struct {
	// Workers bounds concurrent external-collaborator calls. Must be > 0.
	Workers  int
	FailFast bool

	// ConvertTimeout and OCRTimeout bound a single task's external call.
	// Zero disables the bound. Timeouts apply per task, never per batch.
	ConvertTimeout time.Duration
	OCRTimeout     time.Duration

	// ScratchRoot receives one uuid-named subdirectory per task so concurrent
	// tasks never share mutable files.
	ScratchRoot string

	Converter  Converter
	Prober     TextProber
	Recognizer Recognizer

	Log observability.Logger
}

// Run executes all tasks and returns the frozen batch report. The returned
// error covers dispatcher misuse (bad worker count, duplicate identities),
// not task failures; those are captured in the report.
func (d *Dispatcher) Run(ctx context.Context, tasks []Task) (*Report, error) {
	if d.Workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", d.Workers)
	}
	log := d.Log
	if log == nil {
		log = observability.NopLogger{}
	}

	agg, err := NewAggregator(tasks)
	if err != nil {
		return nil, err
	}

	// Unbuffered: a send completes only when a worker picks the task up, so
	// fail-fast can suppress everything not yet handed to a worker.
	work := make(chan Task)
	workers := make(chan struct{}, d.Workers)
	for i := 0; i < d.Workers; i++ {
		go func() {
			defer func() { workers <- struct{}{} }()
			for t := range work {
				if d.FailFast {
					// Closes the hand-off race: a task already on the channel
					// when the first failure lands is skipped, not executed.
					if _, failures := agg.Counts(); failures > 0 {
						d.skipRemaining(agg, []Task{t}, "not scheduled: fail-fast after earlier failure", log)
						continue
					}
				}
				o := d.execute(ctx, t, log)
				if err := agg.Record(o); err != nil {
					log.Error("outcome dropped", observability.String("identity", t.Identity), observability.Error("error", err))
				}
			}
		}()
	}

schedule:
	for i, t := range tasks {
		if d.FailFast {
			if _, failures := agg.Counts(); failures > 0 {
				d.skipRemaining(agg, tasks[i:], "not scheduled: fail-fast after earlier failure", log)
				break schedule
			}
		}
		select {
		case work <- t:
		case <-ctx.Done():
			d.skipRemaining(agg, tasks[i:], "not scheduled: "+ctx.Err().Error(), log)
			break schedule
		}
	}
	close(work)
	for i := 0; i < d.Workers; i++ {
		<-workers
	}

	return agg.Report()
}

// skipRemaining records a skipped outcome for every task in rest that has no
// outcome yet. In-flight tasks already hold their identity's slot by the time
// their outcome is recorded, so Record conflicts here are impossible: rest
// contains only never-scheduled tasks.
func (d *Dispatcher) skipRemaining(agg *Aggregator, rest []Task, msg string, log observability.Logger) {
	for _, t := range rest {
		o := Outcome{
			Identity: t.Identity,
			Err:      &TaskError{Kind: ErrorKindSkipped, Message: msg},
		}
		if err := agg.Record(o); err != nil {
			log.Error("skip not recorded", observability.String("identity", t.Identity), observability.Error("error", err))
			continue
		}
		log.Debug("task skipped", observability.String("identity", t.Identity))
	}
}

func (d *Dispatcher) execute(ctx context.Context, t Task, log observability.Logger) Outcome {
	start := time.Now()
	var (
		artifact string
		taskErr  *TaskError
	)

	switch t.Kind {
	case KindPassthroughPDF:
		artifact, taskErr = d.passthrough(ctx, t)
	case KindConvertToPDF:
		artifact, taskErr = d.convert(ctx, t)
	case KindCheckAndOCR:
		artifact, taskErr = d.checkAndOCR(ctx, t)
	default:
		taskErr = &TaskError{Kind: ErrorKindValidation, Message: fmt.Sprintf("unknown task kind %d", t.Kind)}
	}

	o := Outcome{
		Identity: t.Identity,
		Duration: time.Since(start),
		Err:      taskErr,
	}
	if taskErr != nil {
		log.Warn("task failed",
			observability.String("identity", t.Identity),
			observability.String("kind", string(taskErr.Kind)),
			observability.String("detail", taskErr.Message),
			observability.Duration("took", o.Duration))
		return o
	}

	o.Artifact = artifact
	o.ProducedAt = time.Now()
	if fi, err := os.Stat(artifact); err == nil {
		o.SizeBytes = fi.Size()
	}
	log.Debug("task complete",
		observability.String("identity", t.Identity),
		observability.String("task", t.Kind.String()),
		observability.String("artifact", artifact),
		observability.Duration("took", o.Duration))
	return o
}

func (d *Dispatcher) passthrough(ctx context.Context, t Task) (string, *TaskError) {
	if _, _, err := d.Prober.PageTextCoverage(ctx, t.Source); err != nil {
		return "", &TaskError{Kind: ErrorKindValidation, Message: fmt.Sprintf("%s: %v", t.Name, err)}
	}
	return t.Source, nil
}

func (d *Dispatcher) convert(ctx context.Context, t Task) (string, *TaskError) {
	scratch, err := d.scratchDir()
	if err != nil {
		return "", &TaskError{Kind: ErrorKindConversion, Message: err.Error()}
	}
	cctx := ctx
	if d.ConvertTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, d.ConvertTimeout)
		defer cancel()
	}
	artifact, err := d.Converter.ConvertToPDF(cctx, t.Source, scratch)
	if err != nil {
		msg := fmt.Sprintf("%s: %v", t.Name, err)
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("%s: timed out after %s", t.Name, d.ConvertTimeout)
		}
		return "", &TaskError{Kind: ErrorKindConversion, Message: msg}
	}
	return artifact, nil
}

func (d *Dispatcher) checkAndOCR(ctx context.Context, t Task) (string, *TaskError) {
	pages, withText, err := d.Prober.PageTextCoverage(ctx, t.Source)
	if err != nil {
		return "", &TaskError{Kind: ErrorKindValidation, Message: fmt.Sprintf("%s: %v", t.Name, err)}
	}
	if withText >= pages {
		// Every page already carries text (or the document is empty).
		return t.Source, nil
	}

	scratch, err := d.scratchDir()
	if err != nil {
		return "", &TaskError{Kind: ErrorKindOCR, Message: err.Error()}
	}
	octx := ctx
	if d.OCRTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, d.OCRTimeout)
		defer cancel()
	}
	artifact, err := d.Recognizer.MakeSearchable(octx, t.Source, scratch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TaskError{
				Kind:    ErrorKindOCRTimeout,
				Message: fmt.Sprintf("%s: timed out after %s", t.Name, d.OCRTimeout),
			}
		}
		return "", &TaskError{Kind: ErrorKindOCR, Message: fmt.Sprintf("%s: %v", t.Name, err)}
	}
	return artifact, nil
}

func (d *Dispatcher) scratchDir() (string, error) {
	dir := filepath.Join(d.ScratchRoot, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}
