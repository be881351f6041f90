package encode

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dWire/cmd/util"
	"github.com/ValentinKolb/dWire/lib/buffer"
	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/ValentinKolb/dWire/rpc/serializer"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the token encoder",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfValueCount = 1024
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. int32,message-json)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the message benchmarks"))
	key = "values"
	PerfCmd.Flags().Int(key, 1024, util.WrapString("How many values every writer benchmark writes per operation"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	PerfCmd.Flags().Bool(key, false, util.WrapString("Print the pool metrics in Prometheus text format after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfValueCount = viper.GetInt("values")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfNumThreads <= 0 || perfValueCount <= 0 {
		return fmt.Errorf("threads and values must be positive")
	}
	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Performance testing tool for the token encoder")

	// Print configuration
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, util.GetEncoderConfig().String())
	fmt.Fprintf(out, "Threads: %d\n", perfNumThreads)
	fmt.Fprintf(out, "Values: %d\n", perfValueCount)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)
	tokenSerializer := serializer.NewTokenSerializer(nil, serializer.NewRegistry())
	jsonSerializer := serializer.NewJSONSerializer()

	for _, bench := range perfBenchmarks(tokenSerializer, jsonSerializer) {
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bench.name) {
				return
			}
			bench.run(b)
		})
		results[bench.name] = result
		printResult(bench.name, result)
	}

	// Print message sizes
	fmt.Fprintln(out)
	printStats("token", tokenSerializer.Stats())
	printStats("json", jsonSerializer.Stats())

	if viper.GetBool("metrics") {
		fmt.Fprintln(out)
		metrics.WritePrometheus(out, false)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetEncoderConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

type perfBenchmark struct {
	name string
	run  func(b *testing.B)
}

// perfBenchmarks returns the benchmarks in the order they are run
func perfBenchmarks(token, json serializer.IMessageSerializer) []perfBenchmark {
	int32s := make([]int32, perfValueCount)
	for i := range int32s {
		int32s[i] = int32(i)
	}
	objects := make([]any, perfValueCount)
	for i := range objects {
		objects[i] = map[string]any{"id": int32(i), "name": "value-" + strconv.Itoa(i)}
	}
	shared := make([]byte, 256)
	references := make([]any, perfValueCount)
	for i := range references {
		references[i] = shared
	}

	target := &ids.ActivationAddress{Grain: ids.NewGrainID(ids.NewIntegerKey(42, 0))}
	sender := &ids.ActivationAddress{
		Node:       ids.ZeroNodeAddress,
		Grain:      ids.NewGrainID(ids.NewStringKey("perf", 0)),
		Activation: ids.NewActivationID(),
	}
	message := common.NewRequest(sender, target, &common.InvokeMethodRequest{
		InterfaceID: 1,
		MethodID:    2,
		Arguments:   []any{int32(1), "key", make([]byte, 1024), time.Second},
	})

	return []perfBenchmark{
		{"int32", writerBenchmark(func(w *serializer.Writer) {
			for _, v := range int32s {
				w.Int32(v)
			}
		})},
		{"int32-bulk", writerBenchmark(func(w *serializer.Writer) {
			w.Int32s(int32s)
		})},
		{"string", writerBenchmark(func(w *serializer.Writer) {
			for i := 0; i < perfValueCount; i++ {
				w.String("Lorem ipsum dolor sit amet")
			}
		})},
		{"objects", contextBenchmark(objects)},
		{"references", contextBenchmark(references)},
		{"message-token", messageBenchmark(token, message)},
		{"message-json", messageBenchmark(json, message)},
	}
}

// writerBenchmark runs fn against a fresh writer on a reused sink
func writerBenchmark(fn func(w *serializer.Writer)) func(b *testing.B) {
	return func(b *testing.B) {
		sink := buffer.NewSink(nil)
		defer sink.Release()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			w, _ := serializer.NewWriter(sink)
			fn(w)
			if err := w.Error(); err != nil {
				b.Fatalf("writing values: %v", err)
			}
			sink.Release()
		}
	}
}

// contextBenchmark serializes values through a context
func contextBenchmark(values []any) func(b *testing.B) {
	return func(b *testing.B) {
		sink := buffer.NewSink(nil)
		defer sink.Release()
		ctx := serializer.NewContext(sink, nil, nil)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			ctx.Reset()
			w, _ := serializer.NewContextWriter(ctx)
			w.SerializeInner(values, serializer.TypeObject)
			if err := w.Error(); err != nil {
				b.Fatalf("serializing values: %v", err)
			}
			sink.Release()
		}
	}
}

// messageBenchmark serializes msg from all threads
func messageBenchmark(s serializer.IMessageSerializer, msg *common.Message) func(b *testing.B) {
	return func(b *testing.B) {
		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := s.Serialize(msg); err != nil {
					util.Logger.Errorf("(message) - error serializing: %v", err)
				}
			}
		})
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
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

// printStats prints the message sizes seen by a serializer
func printStats(name string, stats serializer.Stats) {
	if stats.Messages == 0 {
		fmt.Printf("%-20sno messages\n", name)
		return
	}
	fmt.Printf("%-20s%d messages\tmean %.0f bytes\tp99 %.0f bytes\tmax %d bytes\n",
		name, stats.Messages, stats.MeanSize, stats.P99Size, stats.MaxSize)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.EncoderConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"BytesPerOp", "AllocsPerOp",
		"MinSegmentSize", "MaxSegmentSize",
		"Threads", "Values",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.FormatInt(result.AllocedBytesPerOp(), 10),
			strconv.FormatInt(result.AllocsPerOp(), 10),
			strconv.Itoa(config.Pool.MinimumSize),
			strconv.Itoa(config.Pool.MaxSegmentSize),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueCount),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
