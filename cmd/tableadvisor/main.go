// Command tableadvisor analyzes BigQuery table metadata and query history and writes
// prioritized optimization recommendations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/tableadvisor/internal/config"
	"github.com/kailas-cloud/tableadvisor/internal/version"
)

// flags are command-line overrides applied on top of the YAML config.
type flags struct {
	configPath string
	env        string
	snapshot   string
	output     string
	topN       int
	noLLM      bool
	noVectorDB bool
	resetIndex bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "tableadvisor",
		Short: "Recommend BigQuery partitioning, clustering and query optimizations",
		Long: `tableadvisor reads table metadata and query history from a snapshot file or a live
BigQuery project, applies heuristic rules, optionally asks a language model about the most
expensive queries, and writes a prioritized recommendation report.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(&f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, f.env)
		},
	}

	pf := root.Flags()
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file (default: config/<env>.yaml)")
	pf.StringVar(&f.env, "env", config.GetEnv(), "environment name: local, dev, prod")
	pf.StringVar(&f.snapshot, "snapshot", "", "read metadata from this JSON snapshot instead of the configured source")
	pf.StringVarP(&f.output, "output", "o", "", "CSV report path (overrides output.csv_path)")
	pf.IntVar(&f.topN, "top", 0, "number of top recommendations to print (overrides output.top_n)")
	pf.BoolVar(&f.noLLM, "no-llm", false, "skip model-assisted analysis")
	pf.BoolVar(&f.noVectorDB, "no-vector-db", false, "skip the similarity index")
	pf.BoolVar(&f.resetIndex, "reset-index", false, "drop and recreate the similarity index (after an embedding dimension change)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})
	return root
}

// loadConfig reads the YAML config, applies flag overrides and validates the result.
func loadConfig(f *flags) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load(f.env)
	}
	if err != nil {
		return config.Config{}, err
	}

	if f.snapshot != "" {
		cfg.Collector.Source = "snapshot"
		cfg.Collector.SnapshotPath = f.snapshot
	}
	if f.output != "" {
		cfg.Output.CSVPath = f.output
	}
	if f.topN > 0 {
		cfg.Output.TopN = f.topN
	}
	off := false
	if f.noLLM {
		cfg.Analysis.UseLLM = &off
	}
	if f.noVectorDB {
		cfg.Analysis.UseVectorDB = &off
	}
	if f.resetIndex {
		cfg.VectorStore.ResetIndex = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
