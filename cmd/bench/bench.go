package bench

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/ValentinKolb/dCol/lib/collections"
	"github.com/ValentinKolb/dCol/lib/common"
	vmetrics "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// benchmark is one named parallel benchmark. setup prepares the collections
// and returns the operation measured per iteration.
type benchmark struct {
	name  string
	setup func(b *testing.B, ctx context.Context) func(ctx context.Context, i int) error
}

var latencies = gometrics.NewRegistry()

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for collections")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", benchNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	for _, bm := range benchmarks() {
		if shouldSkip(bm.name) {
			results[bm.name] = testing.BenchmarkResult{}
			printResult(bm.name, testing.BenchmarkResult{})
			continue
		}
		result := testing.Benchmark(func(b *testing.B) { runParallel(b, bm) })
		results[bm.name] = result
		printResult(bm.name, result)
	}

	printLatencies()

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if viper.GetBool("metrics") {
		fmt.Println()
		vmetrics.WritePrometheus(os.Stdout, false)
	}

	return nil
}

// runParallel runs one benchmark and records the latency of every operation
func runParallel(b *testing.B, bm benchmark) {
	ctx := context.Background()
	op := bm.setup(b, ctx)

	// a fresh timer per run, the last (longest) run is reported
	timer := gometrics.NewTimer()
	latencies.Unregister(bm.name)
	if err := latencies.Register(bm.name, timer); err != nil {
		log.Printf("(%s) - error registering timer: %v\n", bm.name, err)
	}

	b.SetParallelism(benchNumThreads)

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			start := time.Now()
			if err := op(ctx, counter); err != nil {
				log.Printf("(%s) - error: %v\n", bm.name, err)
			}
			timer.UpdateSince(start)
			counter++
		}
	})
}

// benchmarks returns all benchmarks in the order they run
func benchmarks() []benchmark {
	return []benchmark{
		{name: "dict-set", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			m := openMapping[string, []byte](b, "dict-set")
			value := []byte("test")
			return func(ctx context.Context, i int) error {
				return m.Set(ctx, getKey(i), value)
			}
		}},
		{name: "dict-set-large", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			m := openMapping[string, []byte](b, "dict-set-large")
			value := make([]byte, benchLargeValueSizeKB*1024)
			return func(ctx context.Context, i int) error {
				return m.Set(ctx, getKey(i), value)
			}
		}},
		{name: "dict-get", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			m := openMapping[string, []byte](b, "dict-get")
			fillMapping(b, ctx, m)
			return func(ctx context.Context, i int) error {
				_, _, err := m.Lookup(ctx, getKey(i))
				return err
			}
		}},
		{name: "dict-has-not", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			m := openMapping[string, []byte](b, "dict-has-not")
			return func(ctx context.Context, i int) error {
				_, err := m.Contains(ctx, getKey(i))
				return err
			}
		}},
		{name: "dict-mixed", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			m := openMapping[string, []byte](b, "dict-mixed")
			fillMapping(b, ctx, m)
			value := []byte("test")
			return func(ctx context.Context, i int) error {
				key := getKey(i)
				var err error
				switch i % 4 {
				case 0: // set
					err = m.Set(ctx, key, value)
				case 1: // get
					_, _, err = m.Lookup(ctx, key)
				case 2: // delete
					_, err = m.Delete(ctx, key)
				case 3: // has
					_, err = m.Contains(ctx, key)
				}
				return err
			}
		}},
		{name: "list-append", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			s := openSequence(b, "list-append")
			return func(ctx context.Context, i int) error {
				return s.Append(ctx, "test")
			}
		}},
		{name: "list-get", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			s := openSequence(b, "list-get")
			values := make([]string, benchKeySpread)
			for i := range values {
				values[i] = getKey(i)
			}
			if err := s.Extend(ctx, values...); err != nil {
				log.Printf("(list-get) - error filling sequence: %v\n", err)
			}
			return func(ctx context.Context, i int) error {
				_, err := s.Get(ctx, i%benchKeySpread)
				return err
			}
		}},
		{name: "lock-cycle", setup: func(b *testing.B, ctx context.Context) func(context.Context, int) error {
			m := openMapping[string, int](b, "lock-cycle")
			return func(ctx context.Context, i int) error {
				return m.WithLock(ctx, false, func(ctx context.Context) error {
					n, err := m.GetOr(ctx, "counter", 0)
					if err != nil {
						return err
					}
					return m.Set(ctx, "counter", n+1)
				})
			}
		}},
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// openMapping opens a benchmark mapping that is purged when b finishes
func openMapping[K, V any](b *testing.B, test string) *collections.Mapping[K, V] {
	opts, err := collections.OptionsFromConfig(config)
	if err != nil {
		b.Fatalf("(%s) - invalid options: %v", test, err)
	}
	m, err := collections.NewMapping[K, V](pool, benchName(test), opts...)
	if err != nil {
		b.Fatalf("(%s) - error opening mapping: %v", test, err)
	}
	b.Cleanup(func() { closeHandle(test, m.Close) })
	return m
}

// openSequence opens a benchmark sequence that is purged when b finishes
func openSequence(b *testing.B, test string) *collections.Sequence[string] {
	opts, err := collections.OptionsFromConfig(config)
	if err != nil {
		b.Fatalf("(%s) - invalid options: %v", test, err)
	}
	s, err := collections.NewSequence[string](pool, benchName(test), opts...)
	if err != nil {
		b.Fatalf("(%s) - error opening sequence: %v", test, err)
	}
	b.Cleanup(func() { closeHandle(test, s.Close) })
	return s
}

func closeHandle(test string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Printf("(%s) - error cleaning up: %v\n", test, err)
	}
}

// fillMapping sets every benchmark key once
func fillMapping(b *testing.B, ctx context.Context, m *collections.Mapping[string, []byte]) {
	items := make([]collections.Item[string, []byte], benchKeySpread)
	for i := range items {
		items[i] = collections.Item[string, []byte]{Key: getKey(i), Value: []byte("test")}
	}
	if err := m.Update(ctx, items...); err != nil {
		b.Fatalf("error filling mapping: %v", err)
	}
}

func benchName(test string) string {
	return fmt.Sprintf("%s-%s", benchKeyPrefix, test)
}

// getKey returns one of benchKeySpread keys (with wraparound)
func getKey(i int) string {
	return fmt.Sprintf("key-%d", i%benchKeySpread)
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	return slices.Contains(benchSkip, test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// printLatencies prints the latency percentiles of every benchmark that ran
func printLatencies() {
	percentiles := []float64{0.5, 0.9, 0.99}

	fmt.Println()
	fmt.Printf("%-20s%12s%12s%12s%12s%12s\n", "latency", "count", "p50", "p90", "p99", "max")
	for _, bm := range benchmarks() {
		timer, ok := latencies.Get(bm.name).(gometrics.Timer)
		if !ok {
			continue
		}
		snap := timer.Snapshot()
		ps := snap.Percentiles(percentiles)
		fmt.Printf("%-20s%12d%12s%12s%12s%12s\n", bm.name, snap.Count(),
			time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]), time.Duration(snap.Max()))
	}
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config common.ClientConfig) (err error) {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P99", "Skipped",
		"Endpoint", "DB", "ReconnectRetries", "KeyCodec", "ValueCodec",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, bm := range benchmarks() {
		result, ok := results[bm.name]
		if !ok {
			continue
		}

		var nsPerOp float64
		var opsPerSec float64
		var p99 time.Duration
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
			if timer, ok := latencies.Get(bm.name).(gometrics.Timer); ok {
				p99 = time.Duration(timer.Percentile(0.99))
			}
		}

		row := []string{
			bm.name,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			p99.String(),
			skipped,
			config.Addr(),
			strconv.Itoa(config.DB),
			strconv.Itoa(config.ReconnectRetries),
			config.KeyCodec,
			config.ValueCodec,
			strconv.Itoa(benchNumThreads),
			strconv.Itoa(benchLargeValueSizeKB),
			strconv.Itoa(benchKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", bm.name, err)
		}
	}

	return nil
}
