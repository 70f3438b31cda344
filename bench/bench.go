// Package bench measures checkpoint forward-pass performance. Each run
// loads one checkpoint and times encode or decode passes across a set
// of batch sizes, reporting latency quantiles, throughput and heap
// allocation per configuration.
package bench

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/strata-ml/strata/ml"
	"github.com/strata-ml/strata/model"
	_ "github.com/strata-ml/strata/model/models"
)

// Config holds the knobs for a benchmark run.
type Config struct {
	// Iterations is the number of measured passes per batch size.
	Iterations int `json:"iterations"`

	// WarmupRuns passes run before the clock starts. Warmup keeps
	// one-time allocation out of the measurements.
	WarmupRuns int `json:"warmup_runs"`

	BatchSizes []int  `json:"batch_sizes"`
	Seed       uint64 `json:"seed"`

	// Threads caps backend parallelism. Zero lets the backend choose.
	Threads int `json:"threads"`

	Verbose bool `json:"-"`
}

// DefaultConfig returns the configuration the CLI uses when no flags
// are given.
func DefaultConfig() Config {
	return Config{
		Iterations: 20,
		WarmupRuns: 3,
		BatchSizes: []int{1, 4, 16},
		Seed:       42,
	}
}

func (c Config) validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}

	if len(c.BatchSizes) == 0 {
		return fmt.Errorf("at least one batch size is required")
	}

	for _, bs := range c.BatchSizes {
		if bs < 1 {
			return fmt.Errorf("batch size must be positive, got %d", bs)
		}
	}

	return nil
}

// Result summarizes the measured passes for one batch size. Latencies
// are per batch; Throughput normalizes to samples per second.
type Result struct {
	RunID        string        `json:"run_id"`
	Model        string        `json:"model"`
	Architecture string        `json:"architecture"`
	Op           string        `json:"op"`
	BatchSize    int           `json:"batch_size"`
	Iterations   int           `json:"iterations"`
	TotalTime    time.Duration `json:"total_time"`
	AvgLatency   time.Duration `json:"avg_latency"`
	MinLatency   time.Duration `json:"min_latency"`
	MaxLatency   time.Duration `json:"max_latency"`
	P50Latency   time.Duration `json:"p50_latency"`
	P95Latency   time.Duration `json:"p95_latency"`
	Throughput   float64       `json:"throughput"`
	AllocDelta   uint64        `json:"alloc_bytes"`
	LatentDim    int           `json:"latent_dim"`
}

// Run loads the checkpoint at path and measures forward passes for
// every configured batch size. Encoder checkpoints are fed synthetic
// image batches, decoder checkpoints synthetic latent batches. name is
// the model name reported in the results.
func Run(ctx context.Context, name, path string, cfg Config) ([]Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m, err := model.New(path, ml.BackendParams{NumThreads: cfg.Threads})
	if err != nil {
		return nil, err
	}
	defer m.Backend().Close()

	if err := m.Backend().Load(ctx, nil); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	c := m.Config()
	runID := uuid.NewString()

	var results []Result
	for _, bs := range cfg.BatchSizes {
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "benchmarking %s batch=%d\n", name, bs)
		}

		r, err := measure(m, bs, cfg)
		if err != nil {
			return nil, err
		}

		r.RunID = runID
		r.Model = name
		r.Architecture = c.Architecture()
		r.LatentDim = int(c.Uint("latent_dim"))
		results = append(results, r)
	}

	return results, nil
}

func measure(m model.Model, batchSize int, cfg Config) (Result, error) {
	forward, op, err := forwardFunc(m, batchSize, cfg.Seed)
	if err != nil {
		return Result{}, err
	}

	for range cfg.WarmupRuns {
		if err := forward(); err != nil {
			return Result{}, err
		}
	}

	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	latencies := make([]time.Duration, 0, cfg.Iterations)
	for range cfg.Iterations {
		start := time.Now()
		if err := forward(); err != nil {
			return Result{}, err
		}
		latencies = append(latencies, time.Since(start))
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	r := summarize(latencies, batchSize)
	r.Op = op
	r.AllocDelta = after.TotalAlloc - before.TotalAlloc
	return r, nil
}

// forwardFunc builds the timed closure for the model kind. Each call
// gets a fresh backend context so graph allocations from one pass do
// not linger into the next.
func forwardFunc(m model.Model, batchSize int, seed uint64) (func() error, string, error) {
	c := m.Config()

	switch m := m.(type) {
	case model.Encoder:
		channels := int(c.Uint("channels", 3))
		size := int(c.Uint("image_size", 64))
		imgs := testImages(batchSize, channels, size, seed)

		return func() error {
			ctx := m.Backend().NewContext()
			defer ctx.Close()

			t := ctx.Input().FromFloats(imgs, batchSize, channels, size, size)
			_, err := model.Encode(ctx, m, t, nil)
			return err
		}, "encode", nil
	case model.Decoder:
		dim := int(c.Uint("latent_dim"))
		latents := testLatents(batchSize, dim, seed)

		return func() error {
			ctx := m.Backend().NewContext()
			defer ctx.Close()

			t := ctx.Input().FromFloats(latents, batchSize, dim)
			_, err := model.Decode(ctx, m, t, nil)
			return err
		}, "decode", nil
	}

	return nil, "", fmt.Errorf("architecture %q does not support benchmarking", c.Architecture())
}

// summarize reduces per-pass latencies to the reported statistics.
func summarize(latencies []time.Duration, batchSize int) Result {
	xs := make([]float64, len(latencies))
	var total time.Duration
	for i, d := range latencies {
		xs[i] = float64(d)
		total += d
	}
	sort.Float64s(xs)

	r := Result{
		BatchSize:  batchSize,
		Iterations: len(latencies),
		TotalTime:  total,
		AvgLatency: total / time.Duration(len(latencies)),
		MinLatency: time.Duration(xs[0]),
		MaxLatency: time.Duration(xs[len(xs)-1]),
		P50Latency: time.Duration(stat.Quantile(0.50, stat.Empirical, xs, nil)),
		P95Latency: time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
	}

	if total > 0 {
		r.Throughput = float64(batchSize*len(latencies)) / total.Seconds()
	}

	return r
}
