package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-ml/strata/bench"
	"github.com/strata-ml/strata/envconfig"
	"github.com/strata-ml/strata/server"
)

// BenchHandler runs forward-pass benchmarks against a local
// checkpoint and prints a summary table, or JSON with --json.
func BenchHandler(cmd *cobra.Command, args []string) error {
	cfg := bench.DefaultConfig()
	cfg.Threads = int(envconfig.Threads())

	var err error
	if cfg.Iterations, err = cmd.Flags().GetInt("iterations"); err != nil {
		return err
	}
	if cfg.WarmupRuns, err = cmd.Flags().GetInt("warmup"); err != nil {
		return err
	}
	if cfg.BatchSizes, err = cmd.Flags().GetIntSlice("batch-sizes"); err != nil {
		return err
	}
	if cfg.Seed, err = cmd.Flags().GetUint64("seed"); err != nil {
		return err
	}
	if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return err
	}

	path, err := server.ModelPath(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("model '%s' not found", args[0])
	}

	results, err := bench.Run(cmd.Context(), args[0], path, cfg)
	if err != nil {
		return err
	}

	report := bench.NewReport(results, cfg)

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if asJSON {
		if err := report.WriteJSON(os.Stdout); err != nil {
			return err
		}
	} else {
		report.WriteTable(os.Stdout)
	}

	csvPath, err := cmd.Flags().GetString("csv")
	if err != nil {
		return err
	}
	if csvPath != "" {
		if err := report.ExportCSV(csvPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", csvPath)
	}

	return nil
}

func newBenchCmd() *cobra.Command {
	defaults := bench.DefaultConfig()

	benchCmd := &cobra.Command{
		Use:   "bench MODEL",
		Short: "Benchmark a model's forward pass",
		Args:  cobra.ExactArgs(1),
		RunE:  BenchHandler,
	}

	benchCmd.Flags().Int("iterations", defaults.Iterations, "Measured iterations per batch size")
	benchCmd.Flags().Int("warmup", defaults.WarmupRuns, "Warmup iterations before measuring")
	benchCmd.Flags().IntSlice("batch-sizes", defaults.BatchSizes, "Batch sizes to benchmark")
	benchCmd.Flags().Uint64("seed", defaults.Seed, "Seed for the synthetic test inputs")
	benchCmd.Flags().String("csv", "", "Also write results to a CSV file")
	benchCmd.Flags().Bool("json", false, "Print the full report as JSON")
	benchCmd.Flags().BoolP("verbose", "v", false, "Log progress to stderr while running")

	return benchCmd
}
