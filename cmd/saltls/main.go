package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	document_symbols "github.com/walteh/saltls/cmd/saltls/document-symbols"
	get_completions "github.com/walteh/saltls/cmd/saltls/get-completions"
	get_diagnostics "github.com/walteh/saltls/cmd/saltls/get-diagnostics"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var debugLogs bool

	rootCmd := &cobra.Command{
		Use:   "saltls",
		Short: "Parsing tools for salt state files",
	}

	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable debug logging")

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.AddCommand(get_diagnostics.NewGetDiagnosticsCommand())
	rootCmd.AddCommand(get_completions.NewGetCompletionsCommand())
	rootCmd.AddCommand(document_symbols.NewDocumentSymbolsCommand())

	rootCmd.SilenceUsage = true

	ctx := context.Background()
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if debugLogs {
			level = zerolog.DebugLevel
		}
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
		cmd.SetContext(logger.WithContext(cmd.Context()))
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
