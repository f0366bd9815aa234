package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docfold/docfold/config"
	"github.com/docfold/docfold/convert"
	"github.com/docfold/docfold/ocr/tesseract"
)

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "init-config [path]",
		Short:        "Write a config file with the default settings",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "docfold.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return usage(fmt.Errorf("%s already exists", path))
			}
			if err := config.Default().Save(path); err != nil {
				return fatal(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func newDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Report which optional external tools are installed",
		Long:  `Deps probes for the external tools that enable optional features:
LibreOffice for DOC/DOCX conversion and Tesseract for OCR. Combining plain
PDFs works without either.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if path, err := convert.Available(); err == nil {
				fmt.Fprintf(out, "libreoffice: %s\n", path)
			} else {
				fmt.Fprintln(out, "libreoffice: not found (DOC/DOCX conversion unavailable)")
			}
			if path, err := tesseract.Available(); err == nil {
				fmt.Fprintf(out, "tesseract:   %s\n", path)
			} else {
				fmt.Fprintln(out, "tesseract:   not found (OCR unavailable)")
			}
			return nil
		},
	}
}
