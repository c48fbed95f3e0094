package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/formatter"
	logpkg "github.com/kailas-cloud/embcompare/internal/logger"
	compareuc "github.com/kailas-cloud/embcompare/internal/usecase/compare"
)

var (
	compareDomain    string
	compareTopK      int
	compareProviders []string
	compareExport    string
	compareFormat    string
	compareWidth     int
	compareVerbose   bool
)

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <query>",
		Short: "Run one query against every provider and show results side by side",
		Long: `Embed the query with every configured provider, search each provider's namespace
and print the ranked matches side by side.

Examples:
  embcompare compare "senior data engineer"
  embcompare compare "kubernetes" --domain skills --top-k 10
  embcompare compare "nurse" --provider openai-small --provider voyage --export`,
		Args: cobra.ExactArgs(1),
		RunE: runCompare,
	}

	cmd.Flags().StringVarP(&compareDomain, "domain", "d", string(domain.DomainTitles), "search domain (titles, skills)")
	cmd.Flags().IntVarP(&compareTopK, "top-k", "k", 0, "matches per provider (default from config)")
	cmd.Flags().StringSliceVarP(&compareProviders, "provider", "p", nil, "restrict to these providers (repeatable)")
	cmd.Flags().StringVar(&compareExport, "export", "", "write the JSON export into this directory")
	cmd.Flags().Lookup("export").NoOptDefVal = "."
	cmd.Flags().StringVarP(&compareFormat, "format", "f", "text", "output format (text, json)")
	cmd.Flags().IntVar(&compareWidth, "width", 0, "terminal width for text output")
	cmd.Flags().BoolVarP(&compareVerbose, "verbose", "v", false, "show pipeline logs")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	out, err := formatter.New(compareFormat, compareWidth)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logpkg.NewCLILogger(compareVerbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.compare.Compare(ctx, compareuc.Request{
		Query:     args[0],
		Domain:    compareDomain,
		TopK:      compareTopK,
		Providers: compareProviders,
	})
	if err != nil {
		return err
	}

	rendered, err := out.Format(&report)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(rendered); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if compareExport != "" {
		path, err := writeExport(compareExport, &report)
		if err != nil {
			return err
		}
		logger.Info("Export written", zap.String("path", path))
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Results exported to %s\n", path)
	}
	return nil
}

// writeExport stores the JSON document under dir with a timestamped name.
func writeExport(dir string, report *domain.ComparisonReport) (string, error) {
	data, err := formatter.NewJSON().Format(report)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, formatter.FileName(report.Timestamp))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
