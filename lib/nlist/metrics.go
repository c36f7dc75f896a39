package nlist

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the statistics of one or more Engines to Prometheus.
// Engines aren't safe for concurrent use, so the Collector serves copies of
// the statistics taken by Observe, which should be called from the goroutine
// that drives each Engine.
type Collector struct {
	updates, forced, dangerous, overflows *prometheus.Desc
	meanNeigh, maxNeigh, rbuff, smallest  *prometheus.Desc

	mu    sync.Mutex
	ranks map[int]observation
}

type observation struct {
	stats Stats
	rbuff float64
}

var _ prometheus.Collector = &Collector{}

// NewCollector returns a Collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	labels := []string{"rank"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "nlist", name), help, labels, nil)
	}

	return &Collector{
		updates:   desc("updates_total", "Normal neighbor list rebuilds."),
		forced:    desc("forced_updates_total", "Forced neighbor list rebuilds."),
		dangerous: desc("dangerous_updates_total", "Rebuilds at the first check after a rebuild."),
		overflows: desc("overflows_total", "Builds redone because a particle had too many neighbors."),
		meanNeigh: desc("neighbors_mean", "Mean number of neighbors per local particle."),
		maxNeigh:  desc("neighbors_max", "Largest number of neighbors of any local particle."),
		rbuff:     desc("buffer_radius", "Buffer radius added to every cutoff."),
		smallest:  desc("shortest_rebuild_steps", "Fewest steps between two normal rebuilds."),
		ranks:     map[int]observation{},
	}
}

// Observe records the current statistics of e.
func (c *Collector) Observe(e *Engine) {
	obs := observation{stats: e.Stats(), rbuff: e.RBuff()}
	c.mu.Lock()
	c.ranks[e.comm.Rank()] = obs
	c.mu.Unlock()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.updates, c.forced, c.dangerous, c.overflows,
		c.meanNeigh, c.maxNeigh, c.rbuff, c.smallest,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for rank, obs := range c.ranks {
		r := strconv.Itoa(rank)
		s := obs.stats
		ch <- prometheus.MustNewConstMetric(c.updates, prometheus.CounterValue, float64(s.Updates), r)
		ch <- prometheus.MustNewConstMetric(c.forced, prometheus.CounterValue, float64(s.ForcedUpdates), r)
		ch <- prometheus.MustNewConstMetric(c.dangerous, prometheus.CounterValue, float64(s.DangerousUpdates), r)
		ch <- prometheus.MustNewConstMetric(c.overflows, prometheus.CounterValue, float64(s.Overflows), r)
		ch <- prometheus.MustNewConstMetric(c.meanNeigh, prometheus.GaugeValue, s.NNeighMean, r)
		ch <- prometheus.MustNewConstMetric(c.maxNeigh, prometheus.GaugeValue, float64(s.NNeighMax), r)
		ch <- prometheus.MustNewConstMetric(c.rbuff, prometheus.GaugeValue, obs.rbuff, r)
		ch <- prometheus.MustNewConstMetric(c.smallest, prometheus.GaugeValue, float64(s.SmallestRebuild), r)
	}
}
