package buffer

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "bufferpool"

// Metrics counts pool activity. Every series carries a "pool" label with the
// pool id, so several pools can share one registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	evictions  prometheus.Counter
	writeBacks prometheus.Counter
	flushes    prometheus.Counter
	exhausted  prometheus.Counter
	ioErrors   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, bpm *BufferPoolManager) (*Metrics, error) {
	labels := prometheus.Labels{"pool": bpm.id}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(name, help string, fn func() float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, fn)
	}

	m := &Metrics{
		hits:       counter("hits_total", "Page requests served from a resident frame."),
		misses:     counter("misses_total", "Page requests that had to load a frame."),
		evictions:  counter("evictions_total", "Frames reclaimed from the replacer."),
		writeBacks: counter("dirty_writebacks_total", "Dirty victims written to disk before reuse."),
		flushes:    counter("flushes_total", "Pages written to disk by explicit flushes."),
		exhausted:  counter("exhausted_total", "Requests rejected because every frame was pinned."),
		ioErrors:   counter("io_errors_total", "Disk manager calls that failed."),
	}
	collectors := []prometheus.Collector{
		m.hits, m.misses, m.evictions, m.writeBacks, m.flushes, m.exhausted, m.ioErrors,
		gauge("frames", "Number of frames in the pool.", func() float64 {
			return float64(bpm.size)
		}),
		gauge("resident_pages", "Pages currently held in a frame.", func() float64 {
			return float64(bpm.pageTable.len())
		}),
		gauge("free_frames", "Frames holding no page.", func() float64 {
			bpm.mu.Lock()
			defer bpm.mu.Unlock()
			return float64(bpm.freeList.Len())
		}),
		gauge("evictable_frames", "Unpinned frames the replacer may evict.", func() float64 {
			bpm.mu.Lock()
			defer bpm.mu.Unlock()
			return float64(bpm.replacer.Size())
		}),
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, registered := range collectors[:i] {
				reg.Unregister(registered)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) evict(dirty bool) {
	if m == nil {
		return
	}
	m.evictions.Inc()
	if dirty {
		m.writeBacks.Inc()
	}
}

func (m *Metrics) flush() {
	if m != nil {
		m.flushes.Inc()
	}
}

func (m *Metrics) exhaust() {
	if m != nil {
		m.exhausted.Inc()
	}
}

func (m *Metrics) ioError() {
	if m != nil {
		m.ioErrors.Inc()
	}
}
