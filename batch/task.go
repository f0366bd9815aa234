package batch

import "time"

// Kind selects the work performed for one input document.
type Kind int

const (
	// KindPassthroughPDF validates that the source PDF is readable and hands
	// it to assembly unchanged.
	KindPassthroughPDF Kind = iota
	// KindConvertToPDF converts an office document (DOC/DOCX) to PDF via the
	// converter collaborator.
	KindConvertToPDF
	// KindCheckAndOCR probes a PDF for extractable text and runs OCR on it
	// when one or more pages are image-only.
	KindCheckAndOCR
)

func (k Kind) String() string {
	switch k {
	case KindPassthroughPDF:
		return "passthrough-pdf"
	case KindConvertToPDF:
		return "convert-to-pdf"
	case KindCheckAndOCR:
		return "check-and-ocr"
	default:
		return "unknown"
	}
}

// Task describes one input document and the work it requires. Tasks are
// created at discovery time and never mutated; the dispatcher owns them
// exclusively while in flight. Size and ModTime are captured from the source
// file at discovery so the ordering stage needs no filesystem access.
type Task struct {
	// Identity is the stable key for the task, unique within a batch. It is
	// the absolute source path.
	Identity string
	// Name is the base name of the source file, used for bookmarks,
	// provenance metadata, and explicit-order matching.
	Name string
	Kind Kind
	// Source is the location read by the worker. Equal to Identity for
	// directory discovery; kept separate so identities stay stable if inputs
	// are ever staged elsewhere.
	Source  string
	Size    int64
	ModTime time.Time
}

// ErrorKind classifies a per-task failure.
type ErrorKind string

const (
	ErrorKindConversion ErrorKind = "conversion"
	ErrorKindOCR        ErrorKind = "ocr"
	ErrorKindOCRTimeout ErrorKind = "ocr-timeout"
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindSkipped marks tasks that were never scheduled because
	// fail-fast suppressed them after an earlier failure. Recording them
	// keeps the report's completion invariant intact.
	ErrorKindSkipped ErrorKind = "skipped"
)

// TaskError is the failure half of an Outcome.
type TaskError struct {
	Kind    ErrorKind
	Message string
}

func (e *TaskError) Error() string { return string(e.Kind) + ": " + e.Message }

// Outcome is the immutable result of executing one Task. Exactly one Outcome
// exists per Task; the aggregator owns it for the rest of the batch lifecycle.
type Outcome struct {
	// Identity references the originating Task.
	Identity string
	// Artifact is the location of the produced (or passed-through) PDF.
	// Empty on failure.
	Artifact   string
	SizeBytes  int64
	ProducedAt time.Time
	// Duration is the wall-clock time spent executing the task, external
	// calls included.
	Duration time.Duration
	// Err is nil on success.
	Err *TaskError
}

// Failed reports whether the outcome records a failure.
func (o Outcome) Failed() bool { return o.Err != nil }
