package metrics

import (
	"time"

	"go.opencensus.io/stats"
)

// CallMetrics is a common set of metrics reporting about calls to an RPC service
type CallMetrics struct {
	Count        *stats.Int64Measure   `metric:"callCount" description:"number of calls" tags:"service,method"`
	Failures     *stats.Int64Measure   `metric:"callFailures" description:"number of failed calls" tags:"service,method"`
	Timing       *stats.Float64Measure `metric:"timing" unit:"milliseconds" description:"duration of a call" tags:"service,method"`
	Instructions *stats.Int64Measure   `metric:"instructions" unit:"instructions" description:"instructions counted during a call" extraviews:"sum" tags:"service,method"`
}

func (c *CallMetrics) tags(service, method string) map[string]string {
	return map[string]string{"service": service, "method": method}
}

// Called records a call, with the instructions it took and its outcome.
//
// Example:
//
//	var myCallMetrics = &CallMetrics{}
//
//	func (s *myService) Call(method string) (err error) {
//	  var instructions uint64
//	  defer func(start time.Time) {
//	    myCallMetrics.Called(start, "myService", method)(instructions, err)
//	  }(time.Now())
//	  ...
//	}
func (c *CallMetrics) Called(start time.Time, service, method string) func(uint64, error) {
	return func(instructions uint64, err error) {
		tags := c.tags(service, method)
		Since(start, c.Timing, tags)
		Inc(c.Count, tags)
		Int64(c.Instructions, int64(instructions), tags)
		if err != nil {
			Inc(c.Failures, tags)
		}
	}
}

// BenchMetrics is a common set of metrics reporting about benchmark runs
type BenchMetrics struct {
	Instructions  *stats.Int64Measure `metric:"instructions" unit:"instructions" description:"instructions counted by a benchmark" extraviews:"lastvalue" tags:"suite,bench"`
	HeapIncrease  *stats.Int64Measure `metric:"heapIncrease" unit:"bytes" description:"bytes allocated on the heap by a benchmark" tags:"suite,bench"`
	StoreIncrease *stats.Int64Measure `metric:"storeIncrease" unit:"bytes" description:"growth of the persistent memory during a benchmark" tags:"suite,bench"`
	Runs          *stats.Int64Measure `metric:"runs" description:"number of benchmark runs" tags:"suite,bench"`
	Failures      *stats.Int64Measure `metric:"failures" description:"number of failed benchmark runs" tags:"suite,bench"`
}

func (b *BenchMetrics) tags(suite, bench string) map[string]string {
	return map[string]string{"suite": suite, "bench": bench}
}

// Measured records the outcome of a benchmark run
func (b *BenchMetrics) Measured(suite, bench string, instructions, heap, store uint64) {
	tags := b.tags(suite, bench)
	Inc(b.Runs, tags)
	Int64(b.Instructions, int64(instructions), tags)
	Int64(b.HeapIncrease, int64(heap), tags)
	Int64(b.StoreIncrease, int64(store), tags)
}

// Failed records a failed benchmark run
func (b *BenchMetrics) Failed(suite, bench string) {
	tags := b.tags(suite, bench)
	Inc(b.Runs, tags)
	Inc(b.Failures, tags)
}
