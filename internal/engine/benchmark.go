package engine

import (
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"
)

// BenchmarkResult reports a RunBenchmark pass.
type BenchmarkResult struct {
	Operations   int     `json:"operations"`
	Duration     int64   `json:"duration_ns"`
	OpsPerSec    float64 `json:"ops_per_sec"`
	AvgLatencyNs int64   `json:"avg_latency_ns"`

	SAddOpsPerSec      float64 `json:"sadd_ops_per_sec"`
	SIsMemberOpsPerSec float64 `json:"sismember_ops_per_sec"`
	SRemOpsPerSec      float64 `json:"srem_ops_per_sec"`

	P50LatencyNs  int64 `json:"p50_latency_ns"`
	P99LatencyNs  int64 `json:"p99_latency_ns"`
	P999LatencyNs int64 `json:"p999_latency_ns"`

	Concurrency       int     `json:"concurrency"`
	ConcurrentOps     int     `json:"concurrent_ops_per_sec,omitempty"`
	ConcurrentLatency int64   `json:"concurrent_avg_latency_ns,omitempty"`
	ScaleFactor       float64 `json:"scale_factor,omitempty"`
}

const benchKey = "__bench_set"

// RunBenchmark drives n SADD, SISMEMBER and SREM commands through the full
// dispatcher on database db, then a concurrent mixed phase. The scratch
// key is removed afterwards.
func (s *Server) RunBenchmark(db, n int) (BenchmarkResult, error) {
	if n <= 0 {
		n = 1000
	}
	if n > 100000 {
		n = 100000
	}
	h := s.NewHandle()
	if err := h.Select(db); err != nil {
		return BenchmarkResult{}, err
	}
	defer h.DoString("DEL", benchKey)

	members := make([][]byte, n)
	for i := range members {
		members[i] = []byte("m" + strconv.Itoa(i))
	}
	key := []byte(benchKey)
	timed := func(cmd string, lat []int64) time.Duration {
		name := []byte(cmd)
		start := time.Now()
		for i := 0; i < n; i++ {
			t0 := time.Now()
			h.Do(name, key, members[i])
			lat[i] = time.Since(t0).Nanoseconds()
		}
		return time.Since(start)
	}

	all := make([]int64, 3*n)
	addElapsed := timed("SADD", all[:n])
	isElapsed := timed("SISMEMBER", all[n:2*n])
	remElapsed := timed("SREM", all[2*n:])

	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 2 {
		workers = 2
	}
	perWorker := max(n/workers, 1)

	var wg sync.WaitGroup
	concStart := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			wh := s.NewHandle()
			_ = wh.Select(db)
			for i := 0; i < perWorker; i++ {
				m := members[(offset+i)%n]
				wh.Do([]byte("SADD"), key, m)
				wh.Do([]byte("SISMEMBER"), key, m)
			}
		}(w * perWorker)
	}
	wg.Wait()
	concElapsed := time.Since(concStart)
	concTotal := workers * perWorker * 2

	total := 3 * n
	seqElapsed := addElapsed + isElapsed + remElapsed
	seqOps := float64(total) / seqElapsed.Seconds()
	concOps := float64(concTotal) / concElapsed.Seconds()

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return BenchmarkResult{
		Operations:   total,
		Duration:     seqElapsed.Nanoseconds(),
		OpsPerSec:    seqOps,
		AvgLatencyNs: seqElapsed.Nanoseconds() / int64(total),

		SAddOpsPerSec:      float64(n) / addElapsed.Seconds(),
		SIsMemberOpsPerSec: float64(n) / isElapsed.Seconds(),
		SRemOpsPerSec:      float64(n) / remElapsed.Seconds(),

		P50LatencyNs:  percentile(all, 0.50),
		P99LatencyNs:  percentile(all, 0.99),
		P999LatencyNs: percentile(all, 0.999),

		Concurrency:       workers,
		ConcurrentOps:     int(concOps),
		ConcurrentLatency: concElapsed.Nanoseconds() / int64(concTotal),
		ScaleFactor:       math.Round(concOps/seqOps*100) / 100,
	}, nil
}

// percentile returns the value at p (0.0-1.0) of an ascending slice.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
