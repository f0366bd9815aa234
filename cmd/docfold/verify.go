package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docfold/docfold/merge"
	"github.com/docfold/docfold/pipeline"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <combined.pdf> <input-dir>",
		Short: "Check a combined PDF against the documents in a directory",
		Long:  `Verify validates a combined PDF and compares its recorded source
provenance against the documents currently discovered in the input
directory. The comparison uses the same include and exclude patterns as
combine.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runVerify,
	}
	cmd.Flags().StringSlice("include", nil, "include glob patterns")
	cmd.Flags().StringSlice("exclude", nil, "exclude glob patterns")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, log, closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	f := cmd.Flags()
	if f.Changed("include") {
		cfg.IncludePatterns, _ = f.GetStringSlice("include")
	}
	if f.Changed("exclude") {
		cfg.ExcludePatterns, _ = f.GetStringSlice("exclude")
	}
	if err := cfg.Validate(); err != nil {
		return usage(err)
	}

	p := pipeline.New(cfg, nil, nil, nil, merge.NewPDFCPU(log), log)
	report, err := p.Verify(cmd.Context(), args[0], args[1])
	if err != nil {
		return fatal(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d pages, %d of %d expected sources recorded\n",
		args[0], report.Pages, len(report.Present), len(report.Present)+len(report.Missing))
	for _, name := range report.Missing {
		fmt.Fprintf(out, "  missing: %s\n", name)
	}
	for _, name := range report.Extra {
		fmt.Fprintf(out, "  extra:   %s\n", name)
	}
	if !report.OK() {
		return fatal(fmt.Errorf("verification failed: %d missing, %d extra",
			len(report.Missing), len(report.Extra)))
	}
	fmt.Fprintln(out, "verification passed")
	return nil
}
