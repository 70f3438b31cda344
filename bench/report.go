package bench

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/strata-ml/strata/format"
)

// SystemInfo records where a benchmark ran.
type SystemInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUs      int    `json:"cpus"`
	GoVersion string `json:"go_version"`
}

// Report bundles the results of one benchmark invocation with the
// configuration and host details needed to compare runs.
type Report struct {
	Timestamp time.Time  `json:"timestamp"`
	System    SystemInfo `json:"system"`
	Config    Config     `json:"config"`
	Results   []Result   `json:"results"`
}

// NewReport builds a report for results measured under cfg on this
// host.
func NewReport(results []Result, cfg Config) *Report {
	return &Report{
		Timestamp: time.Now(),
		System: SystemInfo{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUs:      runtime.NumCPU(),
			GoVersion: runtime.Version(),
		},
		Config:  cfg,
		Results: results,
	}
}

// WriteTable renders the results as the table shown by the CLI.
func (r *Report) WriteTable(w io.Writer) {
	fmt.Fprintf(w, "host %s/%s, %d cpus, %s\n\n", r.System.OS, r.System.Arch, r.System.CPUs, r.System.GoVersion)

	var data [][]string
	for _, res := range r.Results {
		data = append(data, []string{
			res.Model,
			res.Op,
			strconv.Itoa(res.BatchSize),
			res.AvgLatency.Round(time.Microsecond).String(),
			res.P50Latency.Round(time.Microsecond).String(),
			res.P95Latency.Round(time.Microsecond).String(),
			fmt.Sprintf("%.1f", res.Throughput),
			format.HumanBytes(int64(res.AllocDelta)),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"MODEL", "OP", "BATCH", "AVG", "P50", "P95", "SAMPLES/S", "ALLOC"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ExportCSV writes one CSV row per result to the file at path.
func (r *Report) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.WriteCSV(f)
}

// WriteCSV writes the results in CSV form, one row per batch size.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{
		"run_id", "model", "architecture", "op", "batch_size", "iterations",
		"avg_latency_ms", "min_latency_ms", "max_latency_ms",
		"p50_latency_ms", "p95_latency_ms",
		"throughput", "alloc_bytes", "latent_dim",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, res := range r.Results {
		row := []string{
			res.RunID,
			res.Model,
			res.Architecture,
			res.Op,
			strconv.Itoa(res.BatchSize),
			strconv.Itoa(res.Iterations),
			millis(res.AvgLatency),
			millis(res.MinLatency),
			millis(res.MaxLatency),
			millis(res.P50Latency),
			millis(res.P95Latency),
			strconv.FormatFloat(res.Throughput, 'f', 2, 64),
			strconv.FormatUint(res.AllocDelta, 10),
			strconv.Itoa(res.LatentDim),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 3, 64)
}
