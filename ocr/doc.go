package ocr

// Package ocr turns image-only PDF pages into searchable ones. It probes each
// page for an existing text layer, runs the pages without one through a
// pluggable recognition engine (Tesseract by default), and stamps the
// recognized hOCR back onto the document as an invisible text layer. The
// Engine interface is intentionally small so providers can be backed by
// native libraries or remote APIs without leaking provider-specific concerns
// into callers.
