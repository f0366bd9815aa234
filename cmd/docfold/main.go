// Command docfold combines the PDF and office documents in a directory into
// one PDF, converting and OCR-processing sources as needed.
//
// Exit codes: 0 on full success, 1 on fatal errors, 2 on usage errors, 3 when
// the output was produced but some documents failed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docfold/docfold/config"
	"github.com/docfold/docfold/observability"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitUsage   = 2
	exitPartial = 3
)

// exitCodeError carries the process exit code alongside the cause. Errors
// without one (cobra's own flag and argument errors) exit with exitUsage.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func fatal(err error) error { return &exitCodeError{code: exitFatal, err: err} }
func usage(err error) error { return &exitCodeError{code: exitUsage, err: err} }

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(newRootCmd().ExecuteContext(ctx))
}

// exitCode maps a command error to the process exit code. Errors without an
// explicit code are cobra's own flag and argument failures.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return exitUsage
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "docfold",
		Short:        "Combine PDF and office documents into one searchable PDF",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("log-file", "", "also append logs to this file")

	root.AddCommand(newCombineCmd(), newVerifyCmd(), newInitConfigCmd(), newDepsCmd())
	return root
}

// setup loads the configuration and builds the logger shared by every
// command. The returned closer flushes buffered log output.
func setup(cmd *cobra.Command) (*config.Config, observability.Logger, func(), error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, fatal(err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile == "" {
		logFile = cfg.LogFile
	}
	log, closer, err := observability.NewZapLogger(verbose, logFile)
	if err != nil {
		return nil, nil, nil, fatal(fmt.Errorf("set up logging: %w", err))
	}
	return cfg, log, func() { _ = closer() }, nil
}
