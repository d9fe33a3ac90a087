package workload

import (
	"sync"
	"time"
	"unsafe"

	"github.com/influxdata/tdigest"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dveres/segalloc/internal/allocator"
)

// Config controls one Run: how many workers hammer the allocator, how many
// operations each performs, the size mix they draw from, and how long a
// successful allocation is held before being released.
type Config struct {
	Workers     int
	Ops         int
	Mix         Mix
	HoldTime    time.Duration
	LargeCutoff int // bytes; separates "small" from "large" in the report, independent of the allocator's own LargeThreshold.
}

// DefaultConfig mirrors spec.md §8 scenario 3's shape: 16 workers, 100 ops
// each, the default size mix.
func DefaultConfig() Config {
	return Config{
		Workers:     16,
		Ops:         100,
		Mix:         DefaultMix(),
		HoldTime:    time.Microsecond,
		LargeCutoff: 51200,
	}
}

// Report summarizes one Run: counts, failure counts split by size class, and
// latency percentiles over every successful Allocate call.
type Report struct {
	TotalOps       int
	SmallSucceeded int
	SmallFailed    int
	LargeSucceeded int
	LargeFailed    int
	LatencyP50     time.Duration
	LatencyP90     time.Duration
	LatencyP99     time.Duration
}

// LargeSuccessRatio is the fraction of large-class requests that succeeded,
// or 0 if none were attempted.
func (r Report) LargeSuccessRatio() float64 {
	total := r.LargeSucceeded + r.LargeFailed
	if total == 0 {
		return 0
	}

	return float64(r.LargeSucceeded) / float64(total)
}

// Metrics are the run's Prometheus collectors. Callers register them once
// against a registry of their choosing; Run only observes into them.
type Metrics struct {
	Attempts  *prometheus.CounterVec
	Successes *prometheus.CounterVec
	Latency   prometheus.Histogram
}

// NewMetrics constructs a fresh, unregistered Metrics set.
func NewMetrics() *Metrics {
	return &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "segalloc",
			Subsystem: "workload",
			Name:      "allocate_attempts_total",
			Help:      "Allocation attempts by size class.",
		}, []string{"class"}),
		Successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "segalloc",
			Subsystem: "workload",
			Name:      "allocate_successes_total",
			Help:      "Successful allocations by size class.",
		}, []string{"class"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "segalloc",
			Subsystem: "workload",
			Name:      "allocate_latency_seconds",
			Help:      "Allocate call latency, successful calls only.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 16),
		}),
	}
}

// Register adds every collector in m to reg.
func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.Attempts, m.Successes, m.Latency)
}

// Run drives cfg.Workers goroutines, each issuing cfg.Ops Allocate/Release
// pairs against a, and returns a Report summarizing the whole run. metrics
// may be nil, in which case no Prometheus observations are recorded.
func Run(a *allocator.Allocator, cfg Config, metrics *Metrics) Report {
	digest := tdigest.NewWithCompression(100)

	var mu sync.Mutex
	var wg sync.WaitGroup

	var smallOK, smallFail, largeOK, largeFail int

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)

		go func(seed int64) {
			defer wg.Done()

			gen := NewGenerator(cfg.Mix, seed)

			for i := 0; i < cfg.Ops; i++ {
				size := gen.Next()
				class := "small"
				if size > cfg.LargeCutoff {
					class = "large"
				}

				if metrics != nil {
					metrics.Attempts.WithLabelValues(class).Inc()
				}

				start := time.Now()
				ptr := a.Allocate(size)
				elapsed := time.Since(start)

				mu.Lock()
				if ptr != nil {
					digest.Add(elapsed.Seconds(), 1)
					if class == "small" {
						smallOK++
					} else {
						largeOK++
					}
				} else {
					if class == "small" {
						smallFail++
					} else {
						largeFail++
					}
				}
				mu.Unlock()

				if metrics != nil && ptr != nil {
					metrics.Successes.WithLabelValues(class).Inc()
					metrics.Latency.Observe(elapsed.Seconds())
				}

				if ptr != nil {
					if cfg.HoldTime > 0 {
						time.Sleep(cfg.HoldTime)
					}

					touch(ptr, size)
					a.Release(ptr)
				}
			}
		}(int64(w) + 1)
	}

	wg.Wait()

	return Report{
		TotalOps:       cfg.Workers * cfg.Ops,
		SmallSucceeded: smallOK,
		SmallFailed:    smallFail,
		LargeSucceeded: largeOK,
		LargeFailed:    largeFail,
		LatencyP50:     secondsToDuration(digest.Quantile(0.50)),
		LatencyP90:     secondsToDuration(digest.Quantile(0.90)),
		LatencyP99:     secondsToDuration(digest.Quantile(0.99)),
	}
}

// touch writes a single byte at the front and back of the block, keeping
// the compiler honest that the returned pointer is a real, addressable
// block rather than letting an optimization pass reason it away unused.
func touch(ptr unsafe.Pointer, size int) {
	if size <= 0 {
		return
	}

	b := (*byte)(ptr)
	*b = 1

	if size > 1 {
		last := (*byte)(unsafe.Add(ptr, size-1))
		*last = 1
	}
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}

	return time.Duration(s * float64(time.Second))
}
