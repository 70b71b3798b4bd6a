package bufferpool

import (
	"sync/atomic"
	"time"

	"github.com/armon/go-metrics"
)

// poolMetrics emits cache hit/miss/eviction/write-back counters through
// go-metrics, independent of any consensus or transport layer — it is wired
// directly to the manager rather than pulled in transitively. go-metrics'
// sinks are built for export (StatsD, in-memory windows), not for reading a
// running total back out, so the hit/miss running totals the stats endpoint
// reports are tracked separately in plain atomic counters alongside the
// go-metrics emission.
type poolMetrics struct {
	m        *metrics.Metrics
	instance string

	hits   atomic.Uint64
	misses atomic.Uint64
}

func newPoolMetrics(instance string) *poolMetrics {
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	conf := metrics.DefaultConfig("bufferpool")
	conf.EnableHostname = false

	m, err := metrics.New(conf, sink)
	if err != nil {
		// go-metrics' in-memory sink never fails to construct; fall back to
		// a fresh instance rather than letting a cache hit panic.
		m, _ = metrics.NewGlobal(conf, sink)
	}

	return &poolMetrics{m: m, instance: instance}
}

func (p *poolMetrics) hit() {
	p.m.IncrCounter([]string{"bufferpool", p.instance, "hit"}, 1)
	p.hits.Add(1)
}

func (p *poolMetrics) miss() {
	p.m.IncrCounter([]string{"bufferpool", p.instance, "miss"}, 1)
	p.misses.Add(1)
}

func (p *poolMetrics) eviction()  { p.m.IncrCounter([]string{"bufferpool", p.instance, "eviction"}, 1) }
func (p *poolMetrics) writeBack() { p.m.IncrCounter([]string{"bufferpool", p.instance, "writeback"}, 1) }
func (p *poolMetrics) exhausted() { p.m.IncrCounter([]string{"bufferpool", p.instance, "exhausted"}, 1) }

// Hits and Misses report running totals for the stats introspection endpoint.
func (p *poolMetrics) Hits() uint64   { return p.hits.Load() }
func (p *poolMetrics) Misses() uint64 { return p.misses.Load() }
