// Command marketflow-analyze runs the VPA/Wyckoff engine against a ticker,
// either once or on a recurring schedule, following the teacher's cobra
// root-command-plus-subcommand CLI shape.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	marketflow "github.com/marketflow/vpa-engine"
	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/marketflow/vpa-engine/internal/mflog"
	"github.com/marketflow/vpa-engine/internal/paramsfile"
	"github.com/marketflow/vpa-engine/internal/providers/postgres"
)

var (
	rootCmd = &cobra.Command{
		Use:   "marketflow-analyze",
		Short: "Multi-timeframe volume-price analysis and Wyckoff signal engine",
		Long:  `Runs the VPA/Wyckoff analysis engine against a ticker using bars stored in Postgres.`,
	}

	configFile string
	logLevel   string
	ticker     string
	watch      string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is config/.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Analyze a ticker once or on a recurring schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker = args[0]
		return runAnalyze(cmd.Context())
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&watch, "watch", "", "run on a recurring cron schedule instead of once (e.g. \"0 */15 * * * *\")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAnalyze(ctx context.Context) error {
	cfg, err := paramsfile.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := mflog.New(cfg.Environment, mflog.Level(cfg.LogLevel))

	provider, err := postgres.Open(ctx, postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer provider.Close()

	params, err := bars.NewParameters(cfg.ToOptions()...)
	if err != nil {
		return fmt.Errorf("build parameters: %w", err)
	}

	facade := marketflow.New(params, provider, logger)

	if watch == "" {
		return analyzeOnce(ctx, facade)
	}
	return analyzeOnSchedule(ctx, facade, watch)
}

func analyzeOnce(ctx context.Context, facade *marketflow.Facade) error {
	result, err := facade.Analyze(ctx, ticker)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", ticker, err)
	}
	return printResult(result)
}

func analyzeOnSchedule(ctx context.Context, facade *marketflow.Facade, schedule string) error {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		result, err := facade.Analyze(runCtx, ticker)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scheduled analysis failed: %v\n", err)
			return
		}
		if err := printResult(result); err != nil {
			fmt.Fprintf(os.Stderr, "print result failed: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	defer c.Stop()

	<-ctx.Done()
	return nil
}

func printResult(result *marketflow.AnalysisResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
