package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wakeword-data/wakeword-data/internal/batch"
	"github.com/wakeword-data/wakeword-data/internal/client"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Send synthetic uploads and report latency percentiles",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().Int("count", 100, "Number of uploads to send")
	benchCmd.Flags().Int("concurrency", 4, "Number of concurrent workers")
	benchCmd.Flags().Int("size", 16*1024, "Synthetic sample size in bytes")
	benchCmd.Flags().String("wake-word", "okay_nabu", "Wake word label for synthetic samples")

	rootCmd.AddCommand(benchCmd)
}

type benchResult struct {
	duration time.Duration
	err      error
}

type summary struct {
	durations []time.Duration
	total     int
	success   int
}

func (s *summary) add(result benchResult) {
	s.total++
	if result.err == nil {
		s.success++
		s.durations = append(s.durations, result.duration)
	}
}

func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	rank := p * float64(len(values)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(values) {
		return values[lower]
	}
	weight := rank - float64(lower)
	return time.Duration(float64(values[lower])*(1-weight) + float64(values[upper])*weight)
}

func average(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range values {
		total += v
	}
	return total / time.Duration(len(values))
}

func runBench(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	size, _ := cmd.Flags().GetInt("size")
	wakeWord, _ := cmd.Flags().GetString("wake-word")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := newClient()
	manager := batch.NewManager(batch.Config{Workers: concurrency})
	defer manager.Shutdown(context.Background())

	payload := bytes.Repeat([]byte{0x1a}, size)
	var (
		mu  sync.Mutex
		sum summary
	)

	start := time.Now()
	manager.Each(ctx, count, func(ctx context.Context, i int) error {
		began := time.Now()
		_, err := c.Upload(ctx, bytes.NewReader(payload), int64(size), "audio/webm", client.UploadParams{
			WakeWord: wakeWord,
			TraceID:  fmt.Sprintf("bench-%d-%d", start.UnixNano(), i),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "request error: %v\n", err)
		}

		mu.Lock()
		sum.add(benchResult{duration: time.Since(began), err: err})
		mu.Unlock()
		return err
	})
	elapsed := time.Since(start)

	fmt.Printf("Total requests: %d\n", sum.total)
	fmt.Printf("Success: %d, Failed: %d\n", sum.success, sum.total-sum.success)
	if elapsed > 0 {
		fmt.Printf("Throughput: %.1f req/s\n", float64(sum.total)/elapsed.Seconds())
	}

	if len(sum.durations) > 0 {
		fmt.Printf("Average duration: %s\n", average(sum.durations))
		fmt.Printf("P50: %s\n", percentile(sum.durations, 0.50))
		fmt.Printf("P75: %s\n", percentile(sum.durations, 0.75))
		fmt.Printf("P90: %s\n", percentile(sum.durations, 0.90))
		fmt.Printf("P95: %s\n", percentile(sum.durations, 0.95))
	}

	if sum.success < count {
		return fmt.Errorf("%d of %d uploads failed", count-sum.success, count)
	}
	return nil
}
