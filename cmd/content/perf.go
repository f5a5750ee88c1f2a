package content

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dShare/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dShare nodes",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	perfTests = []string{"create", "create-large", "aggregate", "aggregate-batch", "remove"}
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. create,remove)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the create-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	endpoint := util.GetEndpoint()
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for dShare nodes")
	fmt.Println()
	fmt.Printf("Endpoint: %s\n", endpoint)
	fmt.Printf("Threads:  %d\n", perfNumThreads)
	fmt.Printf("Keys:     %d\n", perfKeySpread)
	fmt.Println()
	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)

	benchmarks := map[string]func(b *testing.B){
		"create": func(b *testing.B) {
			benchCreate(ctx, b, endpoint, "create", []byte("test"))
		},
		"create-large": func(b *testing.B) {
			benchCreate(ctx, b, endpoint, "create-large", make([]byte, perfLargeValueSizeKB*1024))
		},
		"aggregate": func(b *testing.B) {
			keys := prepareKeys(ctx, b, endpoint, "aggregate")
			b.SetParallelism(perfNumThreads)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					if _, err := rpcClient.AggregateKey(ctx, endpoint, keys[counter%len(keys)]); err != nil {
						log.Printf("(aggregate) - error reading key: %v\n", err)
					}
					counter++
				}
			})
		},
		"aggregate-batch": func(b *testing.B) {
			keys := prepareKeys(ctx, b, endpoint, "aggregate-batch")
			b.SetParallelism(perfNumThreads)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if _, err := rpcClient.Aggregate(ctx, endpoint, keys...); err != nil {
						log.Printf("(aggregate-batch) - error reading keys: %v\n", err)
					}
				}
			})
		},
		"remove": func(b *testing.B) {
			keys := prepareKeys(ctx, b, endpoint, "remove")
			b.SetParallelism(perfNumThreads)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					// removing an already removed key is a valid no-op
					if err := rpcClient.Remove(ctx, endpoint, keys[counter%len(keys)]); err != nil {
						log.Printf("(remove) - error removing key: %v\n", err)
					}
					counter++
				}
			})
		},
	}

	for _, test := range perfTests {
		if shouldSkip(test) {
			results[test] = testing.BenchmarkResult{}
			printResult(test, results[test])
			continue
		}
		results[test] = testing.Benchmark(benchmarks[test])
		printResult(test, results[test])
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, endpoint, results); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", csvPath)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// benchCreate creates values in parallel and removes all created keys afterwards
func benchCreate(ctx context.Context, b *testing.B, endpoint, test string, value []byte) {
	var mu sync.Mutex
	var created []string

	b.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		cleanup(ctx, endpoint, test, created)
	})

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key, err := rpcClient.Create(ctx, endpoint, value)
			if err != nil {
				log.Printf("(%s) - error creating value: %v\n", test, err)
				continue
			}
			mu.Lock()
			created = append(created, key)
			mu.Unlock()
		}
	})
}

// prepareKeys creates perfKeySpread values and registers their removal
func prepareKeys(ctx context.Context, b *testing.B, endpoint, test string) []string {
	keys := make([]string, 0, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		key, err := rpcClient.Create(ctx, endpoint, []byte(fmt.Sprintf("%s-%d", test, i)))
		if err != nil {
			b.Fatalf("(%s) - error creating value: %v", test, err)
		}
		keys = append(keys, key)
	}

	b.Cleanup(func() { cleanup(ctx, endpoint, test, keys) })
	return keys
}

// cleanup removes keys in batches
func cleanup(ctx context.Context, endpoint, test string, keys []string) {
	for batch := range slices.Chunk(keys, 100) {
		if err := rpcClient.Remove(ctx, endpoint, batch...); err != nil {
			log.Printf("(%s) - error removing keys: %v\n", test, err)
		}
	}
}

// rate converts a benchmark result, ok is false for skipped benchmarks
func rate(result testing.BenchmarkResult) (nsPerOp, opsPerSec float64, ok bool) {
	if result.NsPerOp() == 0 {
		return 0, 0, false
	}
	nsPerOp = math.Max(float64(result.NsPerOp()), 1)
	return nsPerOp, 1e9 / nsPerOp, true
}

// printResult prints one benchmark line
func printResult(test string, result testing.BenchmarkResult) {
	nsPerOp, opsPerSec, ok := rate(result)
	if !ok {
		fmt.Printf("%-20sskipped\n", test)
		return
	}
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV stores the results together with the benchmark parameters
func writeResultsToCSV(csvPath, endpoint string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	rows := [][]string{{
		"test", "ns_per_op", "duration_per_op", "ops_per_sec", "skipped",
		"endpoint", "read_grace_ms", "threads", "large_value_kb", "keys",
	}}
	for _, test := range perfTests {
		nsPerOp, opsPerSec, ok := rate(results[test])
		rows = append(rows, []string{
			test,
			strconv.FormatFloat(nsPerOp, 'f', 0, 64),
			time.Duration(nsPerOp).String(),
			strconv.FormatFloat(opsPerSec, 'f', 0, 64),
			strconv.FormatBool(!ok),
			endpoint,
			strconv.Itoa(viper.GetInt("read-grace-ms")),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		})
	}

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
