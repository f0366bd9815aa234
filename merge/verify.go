package merge

import (
	"context"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/cli"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// VerifyReport compares the provenance recorded in a merged document against
// the sources the caller expected.
type VerifyReport struct {
	Pages int
	// Present are expected sources found in the recorded provenance.
	Present []string
	// Missing are expected sources absent from the recorded provenance.
	Missing []string
	// Extra are recorded sources the caller did not expect.
	Extra []string
}

// OK reports whether the recorded provenance matches the expectation exactly.
func (r *VerifyReport) OK() bool { return len(r.Missing) == 0 && len(r.Extra) == 0 }

// Verify validates the merged document and diffs its SourceDocuments
// property against expected.
func (m *PDFCPU) Verify(ctx context.Context, path string, expected []string) (*VerifyReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Stage: "verify", Err: err}
	}
	conf := model.NewDefaultConfiguration()
	if err := api.ValidateFile(path, conf); err != nil {
		return nil, &Error{Stage: "verify", Err: err}
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, &Error{Stage: "verify", Err: err}
	}
	lines, err := cli.ListPropertiesFile(path, conf)
	if err != nil {
		return nil, &Error{Stage: "verify", Err: err}
	}

	recorded := parseProvenance(lines)
	report := diffSources(expected, recorded)
	report.Pages = pages
	return report, nil
}

// parseProvenance extracts the SourceDocuments names from pdfcpu's property
// listing, whose lines have the form "key = value".
func parseProvenance(lines []string) []string {
	for _, line := range lines {
		key, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(key) != PropSourceDocuments {
			continue
		}
		return splitProvenance(value)
	}
	return nil
}

// splitProvenance is the inverse of ProvenanceValue: it splits on unescaped
// commas and unescapes the names, so names containing commas or backslashes
// round-trip intact.
func splitProvenance(value string) []string {
	var names []string
	var b strings.Builder
	flush := func() {
		if name := strings.TrimSpace(b.String()); name != "" {
			names = append(names, name)
		}
		b.Reset()
	}
	escaped := false
	for _, r := range value {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return names
}

func diffSources(expected, recorded []string) *VerifyReport {
	have := make(map[string]bool, len(recorded))
	for _, name := range recorded {
		have[name] = true
	}
	want := make(map[string]bool, len(expected))
	report := &VerifyReport{}
	for _, name := range expected {
		want[name] = true
		if have[name] {
			report.Present = append(report.Present, name)
		} else {
			report.Missing = append(report.Missing, name)
		}
	}
	for _, name := range recorded {
		if !want[name] {
			report.Extra = append(report.Extra, name)
		}
	}
	sort.Strings(report.Extra)
	return report
}
