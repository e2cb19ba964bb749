package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"prcrawl/config"
	"prcrawl/logger"
	"prcrawl/service"
)

var rootCmd = &cobra.Command{
	Use:   "prcrawl",
	Short: "Collects the commits of pull requests listed in a dataset.",
	Long: `prcrawl reads a dataset of pull requests (html_url, number), clones each
repository once, lists the commits every pull request adds on top of its base
branch, and appends them to a CSV results table one repository at a time.`,
	SilenceUsage: true,
	RunE:         run,
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"config":        config.KeyConfigFile,
	"input":         config.KeyInputPath,
	"output":        config.KeyResultsPath,
	"workspace":     config.KeyWorkspaceDir,
	"base-branches": config.KeyBaseBranches,
	"git":           config.KeyGitBinary,
	"git-timeout":   config.KeyGitTimeout,
	"log-level":     config.KeyLogLevel,
	"database":      config.KeyDBEnabled,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("config", "", "Path to an env-style config file (default .env)")
	flags.StringP("input", "i", "", "Pull request dataset, CSV or JSON lines (required)")
	flags.StringP("output", "o", "", "Results CSV path (default pr_commits_results.csv)")
	flags.StringP("workspace", "w", "", "Directory repositories are cloned into (default ./repos)")
	flags.String("base-branches", "", "Comma separated base branches tried in order (default main,master)")
	flags.String("git", "", "git binary to run (default git)")
	flags.String("git-timeout", "", "Timeout for every git invocation (default 30m)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (default info)")
	flags.Bool("database", false, "Also write results to Postgres (POSTGRES_* settings)")

	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if err := cfg.Load(); err != nil {
		return err
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.NewService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Error during service shutdown", zap.Error(err))
		}
	}()

	summary, err := svc.Run(ctx)
	if err != nil {
		logger.Error("Crawl failed", zap.Error(err))
		return err
	}

	logger.Info("Results saved",
		zap.String("path", cfg.ResultsPath),
		zap.Int("rows", summary.Rows))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
