// Package loadtest exercises a sync server with concurrent devices.
//
// It simulates N devices pushing and listing roster records at once and
// reports latency percentiles, which is how a deployment is checked before a
// ward starts depending on it.
package loadtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/palliative-rounds/rounds/internal/schema"
	syncpkg "github.com/palliative-rounds/rounds/internal/sync"
)

// LatencyStats captures performance metrics from a run.
type LatencyStats struct {
	Min        time.Duration
	Max        time.Duration
	Mean       time.Duration
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	TotalCalls int
	Errors     int
	Durations  []time.Duration
}

// Options configure a run.
type Options struct {
	// Devices is how many concurrent clients to simulate.
	Devices int
	// CallsPerDevice is how many save+list pairs each device performs.
	CallsPerDevice int
}

// Run populates the remote with synthetic patients and hammers it with
// concurrent saves and lists, returning aggregated latency statistics.
func Run(ctx context.Context, remote syncpkg.RemoteStore, opts Options) (*LatencyStats, error) {
	if opts.Devices <= 0 {
		opts.Devices = 10
	}
	if opts.CallsPerDevice <= 0 {
		opts.CallsPerDevice = 20
	}

	var wg sync.WaitGroup
	resultsChan := make(chan []time.Duration, opts.Devices)
	errorsChan := make(chan error, opts.Devices*opts.CallsPerDevice)

	for i := 0; i < opts.Devices; i++ {
		wg.Add(1)
		go func(deviceID int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, opts.CallsPerDevice*2)
			for j := 0; j < opts.CallsPerDevice; j++ {
				p := syntheticPatient(deviceID, j)

				start := time.Now()
				_, err := remote.Save(ctx, schema.ColPatients, p)
				durations = append(durations, time.Since(start))
				if err != nil {
					errorsChan <- fmt.Errorf("device %d save %d: %w", deviceID, j, err)
					continue
				}

				start = time.Now()
				_, err = remote.List(ctx, schema.ColPatients)
				durations = append(durations, time.Since(start))
				if err != nil {
					errorsChan <- fmt.Errorf("device %d list %d: %w", deviceID, j, err)
				}
			}
			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	var allDurations []time.Duration
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}
	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no calls completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	return stats, nil
}

// syntheticPatient builds a deterministic fake record, unique per device and
// iteration so repeated runs upsert rather than grow without bound.
func syntheticPatient(deviceID, n int) schema.Patient {
	return schema.NormalizePatient(schema.Patient{
		ID:        fmt.Sprintf("bench_%03d_%04d", deviceID, n),
		Section:   schema.Text(schema.Sections[n%len(schema.Sections)]),
		UpdatedAt: schema.NowStamp(),
		Bio: map[string]schema.Text{
			"Patient Name": schema.Text(fmt.Sprintf("Bench Patient %d-%d", deviceID, n)),
			"Room":         schema.Text(fmt.Sprintf("%c-%02d", 'A'+deviceID%4, n%40)),
		},
	})
}

func computeLatencyStats(durations []time.Duration) *LatencyStats {
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	percentile := func(p float64) time.Duration {
		idx := int(float64(len(sorted)-1) * p)
		return sorted[idx]
	}

	return &LatencyStats{
		Min:        sorted[0],
		Max:        sorted[len(sorted)-1],
		Mean:       total / time.Duration(len(sorted)),
		P50:        percentile(0.50),
		P95:        percentile(0.95),
		P99:        percentile(0.99),
		TotalCalls: len(sorted),
		Durations:  sorted,
	}
}

// PrintStats writes a human-readable summary to stdout.
func (s *LatencyStats) PrintStats() {
	fmt.Printf("Calls:  %d (%d errors)\n", s.TotalCalls, s.Errors)
	fmt.Printf("Min:    %v\n", s.Min)
	fmt.Printf("Mean:   %v\n", s.Mean)
	fmt.Printf("P50:    %v\n", s.P50)
	fmt.Printf("P95:    %v\n", s.P95)
	fmt.Printf("P99:    %v\n", s.P99)
	fmt.Printf("Max:    %v\n", s.Max)
}
