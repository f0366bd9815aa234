package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docfold/docfold/batch"
	"github.com/docfold/docfold/config"
	"github.com/docfold/docfold/convert"
	"github.com/docfold/docfold/merge"
	"github.com/docfold/docfold/observability"
	"github.com/docfold/docfold/ocr"
	"github.com/docfold/docfold/ocr/tesseract"
	"github.com/docfold/docfold/pipeline"
)

func newCombineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine <input-dir> <output.pdf>",
		Short: "Process and merge every matching document in a directory",
		Long:  `Combine discovers PDF, DOC, and DOCX files in a directory, converts and
OCR-processes them concurrently, and merges the results into one PDF.

A failing document never aborts the batch: the output is still produced from
the documents that succeeded, and the run exits with code 3.

Examples:
  docfold combine ./invoices combined.pdf
  docfold combine ./scans out.pdf --ocr-language deu --workers 8
  docfold combine ./docs out.pdf --sort custom --order-file order.txt
  docfold combine ./docs out.pdf --check`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runCombine,
	}
	f := cmd.Flags()
	f.Int("workers", 0, "concurrent processing workers")
	f.Int("compression", 0, "output compression level (1-9)")
	f.String("sort", "", "merge order: name, date, size, custom")
	f.String("order-file", "", "explicit order file for --sort custom")
	f.Bool("ocr", false, "make image-only PDF pages searchable")
	f.String("ocr-language", "", "recognition language(s), e.g. eng or eng+deu")
	f.StringSlice("include", nil, "include glob patterns")
	f.StringSlice("exclude", nil, "exclude glob patterns")
	f.Bool("bookmarks", false, "add one bookmark per source document")
	f.Bool("metadata", false, "record source provenance in the output")
	f.String("password", "", "encrypt the output with this password")
	f.Bool("fail-fast", false, "stop scheduling new documents after the first failure")
	f.Bool("check", false, "preview the run without processing anything")
	f.String("save-config", "", "write the effective configuration to this file")
	return cmd
}

// applyCombineFlags overrides config values with explicitly set flags.
// Unchanged flags leave the file or default value in place, so boolean
// options can be switched both on and off from the command line.
func applyCombineFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.MaxWorkers, _ = f.GetInt("workers")
	}
	if f.Changed("compression") {
		cfg.CompressionLevel, _ = f.GetInt("compression")
	}
	if f.Changed("sort") {
		cfg.SortOrder, _ = f.GetString("sort")
	}
	if f.Changed("order-file") {
		cfg.CustomOrderFile, _ = f.GetString("order-file")
	}
	if f.Changed("ocr") {
		cfg.OCREnabled, _ = f.GetBool("ocr")
	}
	if f.Changed("ocr-language") {
		cfg.OCRLanguage, _ = f.GetString("ocr-language")
	}
	if f.Changed("include") {
		cfg.IncludePatterns, _ = f.GetStringSlice("include")
	}
	if f.Changed("exclude") {
		cfg.ExcludePatterns, _ = f.GetStringSlice("exclude")
	}
	if f.Changed("bookmarks") {
		cfg.AddBookmarks, _ = f.GetBool("bookmarks")
	}
	if f.Changed("metadata") {
		cfg.AddMetadata, _ = f.GetBool("metadata")
	}
	if f.Changed("password") {
		cfg.Password, _ = f.GetString("password")
	}
	if f.Changed("fail-fast") {
		cfg.FailFast, _ = f.GetBool("fail-fast")
	}
}

// newCombinePipeline builds the production collaborators. It is a package
// variable so command tests can substitute fakes.
var newCombinePipeline = func(cfg *config.Config, log observability.Logger) *pipeline.Pipeline {
	recognizer := ocr.NewService(tesseract.New(), strings.Split(cfg.OCRLanguage, "+"), log)
	return pipeline.New(cfg,
		convert.NewLibreOffice(log),
		recognizer,
		recognizer,
		merge.NewPDFCPU(log),
		log,
	)
}

func runCombine(cmd *cobra.Command, args []string) error {
	cfg, log, closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	applyCombineFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return usage(err)
	}
	if path, _ := cmd.Flags().GetString("save-config"); path != "" {
		if err := cfg.Save(path); err != nil {
			return fatal(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
	}
	inputDir, outPath := args[0], args[1]

	p := newCombinePipeline(cfg, log)
	if check, _ := cmd.Flags().GetBool("check"); check {
		plan, err := p.Check(cmd.Context(), inputDir)
		if err != nil {
			return fatal(err)
		}
		printPlan(cmd, plan)
		return nil
	}

	summary, err := p.Combine(cmd.Context(), inputDir, outPath)
	if err != nil {
		if summary != nil {
			printFailures(cmd, summary.Report)
		}
		return fatal(err)
	}

	report := summary.Report
	fmt.Fprintf(cmd.OutOrStdout(), "combined %d of %d documents into %s (%d pages)\n",
		report.SuccessCount(), report.Size(), summary.OutputPath, summary.OutputPages)
	if summary.Partial() {
		printFailures(cmd, report)
		return &exitCodeError{
			code: exitPartial,
			err:  fmt.Errorf("%d of %d documents failed", report.FailureCount(), report.Size()),
		}
	}
	return nil
}

func printPlan(cmd *cobra.Command, plan *pipeline.Plan) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "would process %d documents (sort order: %s)\n", len(plan.Tasks), plan.SortOrder)
	for _, t := range plan.Tasks {
		status := "needs conversion"
		switch {
		case t.Problem != "":
			status = "unreadable: " + t.Problem
		case t.Kind != batch.KindConvertToPDF && t.Searchable():
			status = "searchable"
		case t.Kind != batch.KindConvertToPDF:
			status = fmt.Sprintf("image-only pages: %d of %d", t.Pages-t.PagesWithText, t.Pages)
		}
		fmt.Fprintf(out, "  %-14s %s (%d bytes) - %s\n", t.Kind, t.Name, t.SizeBytes, status)
	}
	fmt.Fprintf(out, "passthrough: %d, convert: %d, ocr checks: %d, unreadable: %d\n",
		plan.Passthrough, plan.Converts, plan.OCRChecks, plan.Unreadable)
}

func printFailures(cmd *cobra.Command, report *batch.Report) {
	out := cmd.ErrOrStderr()
	for _, o := range report.Failures() {
		name := o.Identity
		if t, ok := report.Task(o.Identity); ok {
			name = t.Name
		}
		fmt.Fprintf(out, "failed: %s [%s] %s\n", name, o.Err.Kind, o.Err.Message)
	}
}
