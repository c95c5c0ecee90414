package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ppiankov/docspectre/internal/app"
	"github.com/ppiankov/docspectre/internal/collector"
	"github.com/ppiankov/docspectre/internal/logging"
	"github.com/ppiankov/docspectre/internal/sharepoint"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	verbose    bool
	isFirstRun bool
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitNetwork    = 5
)

func main() {
	logging.Init(false)
	isFirstRun = app.IsFirstRun()

	root := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(classifyError(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docspectre",
		Short: "SharePoint document version cost analyzer",
		Long: `docspectre finds the largest documents in a SharePoint site, reconstructs
how much storage each one really uses once its version history is counted,
and reports who owns that cost and which files nobody has touched in months.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewAnalyzeCmd())
	root.AddCommand(NewSchemaCmd())
	root.AddCommand(NewVersionCmd())

	return root
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitInternal
	}

	if sharepoint.IsNotFound(err) {
		return ExitNotFound
	}

	if sharepoint.IsPermanent(err) || collector.IsAuthError(err) {
		return ExitNetwork
	}

	if os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "not a directory") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") {
		return ExitNotFound
	}

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "network is unreachable") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "expected") {
		return ExitInvalidArg
	}

	return ExitInternal
}
