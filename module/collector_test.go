package module

import (
	"testing"

	"github.com/mvchalupnik/qudi/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func overrunCount(t *testing.T, c prometheus.Collector, name string, channel string) float64 {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	assert.Nil(t, err)
	for _, mf := range families {
		if mf.GetName() != "qudi_acquisition_overruns_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["name"] == name && labels["channel"] == channel {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// rebuilding the collector, as a server restart does, must not register a
// second event listener or reset the counts
func TestOverrunCountSurvivesCollectorRebuild(t *testing.T) {
	mgr := NewManager()
	first := NewModuleCollector(mgr)
	second := NewModuleCollector(mgr)

	events.Emit(events.CreateAcquisitionOverrunEvent("daqsim", "ctrA", -200279, "hint"))

	assert.Equal(t, float64(1), overrunCount(t, first, "daqsim", "ctrA"))
	assert.Equal(t, float64(1), overrunCount(t, second, "daqsim", "ctrA"))
}
