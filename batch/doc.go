package batch

// Package batch implements the concurrent document-processing core: immutable
// task descriptors, a bounded worker-pool dispatcher that invokes the external
// conversion and OCR collaborators, a thread-safe result aggregator that
// preserves the requested order across out-of-order completions, and the pure
// ordering stage that sequences successful artifacts for final assembly.
