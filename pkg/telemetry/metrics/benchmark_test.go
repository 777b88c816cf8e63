package metrics

import (
	"strconv"
	"testing"
	"time"
)

func Benchmark_Collector_RecordSpanOpened(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordSpanOpened(SinkChrome)
	}
}

func Benchmark_Collector_ObserveSpanDuration_Parallel(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.ObserveSpanDuration("load_block", time.Millisecond)
		}
	})
}

func Benchmark_CardinalityLimiter_Allow(b *testing.B) {
	cl := NewCardinalityLimiter(100)
	labels := make([]string, 200)
	for i := range labels {
		labels[i] = "span_" + strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cl.Allow(labels[i%len(labels)])
	}
}
