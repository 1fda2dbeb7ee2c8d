// Package stats aggregates request latencies and outcomes into HDR
// histograms, overall and per endpoint.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Recorder collects request results. It is safe for concurrent use.
type Recorder struct {
	mu sync.RWMutex

	total    atomic.Int64
	success  atomic.Int64
	failed   atomic.Int64
	timeouts atomic.Int64

	// latency in microseconds
	histogram *hdrhistogram.Histogram
	endpoints map[string]*endpointStats

	start time.Time
	end   time.Time
}

type endpointStats struct {
	mu        sync.Mutex
	total     int64
	failed    int64
	histogram *hdrhistogram.Histogram
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

// NewRecorder returns an empty recorder whose clock starts now.
func NewRecorder() *Recorder {
	return &Recorder{
		histogram: newHistogram(),
		endpoints: make(map[string]*endpointStats),
		start:     time.Now(),
	}
}

// Result is one finished request.
type Result struct {
	Endpoint string
	Status   int
	Duration time.Duration
	Failed   bool
	TimedOut bool
}

func clampLatency(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	return us
}

// Record adds r to the totals.
func (r *Recorder) Record(res Result) {
	r.total.Add(1)
	switch {
	case res.TimedOut:
		r.timeouts.Add(1)
		r.failed.Add(1)
	case res.Failed:
		r.failed.Add(1)
	default:
		r.success.Add(1)
	}

	us := clampLatency(res.Duration)

	r.mu.Lock()
	_ = r.histogram.RecordValue(us)
	es, ok := r.endpoints[res.Endpoint]
	if !ok {
		es = &endpointStats{histogram: newHistogram()}
		r.endpoints[res.Endpoint] = es
	}
	r.mu.Unlock()

	es.mu.Lock()
	es.total++
	if res.Failed || res.TimedOut {
		es.failed++
	}
	_ = es.histogram.RecordValue(us)
	es.mu.Unlock()
}

// Stop freezes the elapsed time used for the rate.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.end = time.Now()
}

// Summary is a point-in-time view of a Recorder.
type Summary struct {
	Elapsed  time.Duration
	Total    int64
	Success  int64
	Failed   int64
	Timeouts int64
	RPS      float64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration

	Endpoints []EndpointSummary
}

// EndpointSummary is the breakdown for one endpoint.
type EndpointSummary struct {
	Endpoint string
	Total    int64
	Failed   int64
	P50      time.Duration
	P95      time.Duration
	Mean     time.Duration
}

// ErrorRate returns the failed share of all requests.
func (s *Summary) ErrorRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Total)
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// Summary computes the current summary. Endpoints are sorted by name.
func (r *Recorder) Summary() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	elapsed := time.Since(r.start)
	if !r.end.IsZero() {
		elapsed = r.end.Sub(r.start)
	}

	s := &Summary{
		Elapsed:  elapsed,
		Total:    r.total.Load(),
		Success:  r.success.Load(),
		Failed:   r.failed.Load(),
		Timeouts: r.timeouts.Load(),
	}
	if elapsed > 0 {
		s.RPS = float64(s.Total) / elapsed.Seconds()
	}
	if s.Total > 0 {
		s.P50 = us(r.histogram.ValueAtQuantile(50))
		s.P95 = us(r.histogram.ValueAtQuantile(95))
		s.P99 = us(r.histogram.ValueAtQuantile(99))
		s.Min = us(r.histogram.Min())
		s.Max = us(r.histogram.Max())
		s.Mean = us(int64(r.histogram.Mean()))
	}

	for name, es := range r.endpoints {
		es.mu.Lock()
		s.Endpoints = append(s.Endpoints, EndpointSummary{
			Endpoint: name,
			Total:    es.total,
			Failed:   es.failed,
			P50:      us(es.histogram.ValueAtQuantile(50)),
			P95:      us(es.histogram.ValueAtQuantile(95)),
			Mean:     us(int64(es.histogram.Mean())),
		})
		es.mu.Unlock()
	}
	sort.Slice(s.Endpoints, func(i, j int) bool {
		return s.Endpoints[i].Endpoint < s.Endpoints[j].Endpoint
	})

	return s
}
