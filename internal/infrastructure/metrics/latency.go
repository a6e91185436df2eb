package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// LatencyTracker tracks upstream latency quantiles per method using DDSketch.
type LatencyTracker struct {
	mu               sync.Mutex
	sketches         map[string]*ddsketch.DDSketch
	relativeAccuracy float64
}

// NewLatencyTracker creates a tracker. relativeAccuracy is the quantile error bound (0.01 = 1%).
func NewLatencyTracker(relativeAccuracy float64) *LatencyTracker {
	return &LatencyTracker{
		sketches:         make(map[string]*ddsketch.DDSketch),
		relativeAccuracy: relativeAccuracy,
	}
}

// Record records a duration for the given method.
func (lt *LatencyTracker) Record(method string, duration time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	sketch, exists := lt.sketches[method]
	if !exists {
		var err error
		sketch, err = ddsketch.LogUnboundedDenseDDSketch(lt.relativeAccuracy)
		if err != nil {
			sketch, _ = ddsketch.NewDefaultDDSketch(lt.relativeAccuracy)
		}
		lt.sketches[method] = sketch
	}

	// milliseconds
	_ = sketch.Add(float64(duration.Microseconds()) / 1000.0)
}

// Stats summarizes one method.
type Stats struct {
	Method string
	Count  int64
	Min    float64
	P50    float64
	P90    float64
	P99    float64
	Max    float64
}

// GetStats returns statistics for the given method.
func (lt *LatencyTracker) GetStats(method string) (Stats, error) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.statsLocked(method)
}

func (lt *LatencyTracker) statsLocked(method string) (Stats, error) {
	sketch, exists := lt.sketches[method]
	if !exists {
		return Stats{}, fmt.Errorf("no data for method: %s", method)
	}

	count := sketch.GetCount()
	if count == 0 {
		return Stats{Method: method}, nil
	}

	min, _ := sketch.GetMinValue()
	p50, _ := sketch.GetValueAtQuantile(0.50)
	p90, _ := sketch.GetValueAtQuantile(0.90)
	p99, _ := sketch.GetValueAtQuantile(0.99)
	max, _ := sketch.GetMaxValue()

	return Stats{
		Method: method,
		Count:  int64(count),
		Min:    min,
		P50:    p50,
		P90:    p90,
		P99:    p99,
		Max:    max,
	}, nil
}

// GetAllStats returns statistics for every tracked method, sorted by method name.
func (lt *LatencyTracker) GetAllStats() []Stats {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	stats := make([]Stats, 0, len(lt.sketches))
	for method := range lt.sketches {
		if stat, err := lt.statsLocked(method); err == nil {
			stats = append(stats, stat)
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Method < stats[j].Method })
	return stats
}

func (s Stats) String() string {
	if s.Count == 0 {
		return fmt.Sprintf("%s: no data", s.Method)
	}
	return fmt.Sprintf("%s (n=%d): min=%.2fms p50=%.2fms p90=%.2fms p99=%.2fms max=%.2fms",
		s.Method, s.Count, s.Min, s.P50, s.P90, s.P99, s.Max)
}
