package module

import (
	"sync"

	"github.com/mvchalupnik/qudi/events"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qudi"

type moduleCollector struct {
	upDesc             *prometheus.Desc
	stateDesc          *prometheus.Desc
	activationTimeDesc *prometheus.Desc
	overrunsDesc       *prometheus.Desc
	modMgr             *Manager
}

// overrun counts and their event subscription are process-wide; the
// collector itself is rebuilt whenever the http server restarts
var overrunStats = struct {
	sync.Mutex
	counts map[[2]string]float64
}{counts: make(map[[2]string]float64)}

var overrunSubscribe sync.Once

// NewModuleCollector returns a prometheus Collector exposing per-module statistics.
func NewModuleCollector(mgr *Manager) prometheus.Collector {
	var (
		subsystem  = "module"
		labelNames = []string{"name", "base"}
	)

	c := &moduleCollector{
		upDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "up"),
			"Module activated",
			labelNames,
			nil,
		),
		stateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "state"),
			"Module state",
			labelNames,
			nil,
		),
		activationTimeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "activation_time_seconds"),
			"Module activation time",
			labelNames,
			nil,
		),
		overrunsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "acquisition", "overruns_total"),
			"Buffer overruns per module and channel",
			[]string{"name", "channel"},
			nil,
		),
		modMgr: mgr,
	}
	overrunSubscribe.Do(func() {
		events.Subscribe("ACQUISITION_OVERRUN", func(event events.Event) {
			if oe, ok := event.(*events.AcquisitionOverrunEvent); ok {
				overrunStats.Lock()
				overrunStats.counts[[2]string{oe.ModuleName, oe.Channel}]++
				overrunStats.Unlock()
			}
		})
	})
	return c
}

// Describe generates prometheus metric description
func (c *moduleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.upDesc
	ch <- c.stateDesc
	ch <- c.activationTimeDesc
	ch <- c.overrunsDesc
}

// Collect gathers prometheus metrics for all managed modules
func (c *moduleCollector) Collect(ch chan<- prometheus.Metric) {
	c.modMgr.ForEachModule(func(m *Managed) {
		labels := []string{m.GetName(), m.Descriptor().Base}

		ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, float64(m.State()), labels...)
		if m.IsActivated() {
			ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 1, labels...)
			ch <- prometheus.MustNewConstMetric(c.activationTimeDesc, prometheus.CounterValue, float64(m.ActivationTime().Unix()), labels...)
		} else {
			ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 0, labels...)
		}
	})

	overrunStats.Lock()
	defer overrunStats.Unlock()
	for key, count := range overrunStats.counts {
		ch <- prometheus.MustNewConstMetric(c.overrunsDesc, prometheus.CounterValue, count, key[0], key[1])
	}
}
